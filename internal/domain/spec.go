package domain

type SpecFormat string

const (
	SpecFormatOpenAPI SpecFormat = "openapi"
	SpecFormatRAML    SpecFormat = "raml"
)

// Parameter is one declared operation parameter.
type Parameter struct {
	Name     string
	Location string
	Required bool
}

// Endpoint is one path+method operation of a parsed specification.
type Endpoint struct {
	Path          string
	Method        string
	Summary       string
	Parameters    []Parameter
	ResponseCodes []int
}

// ParsedSpecification is the normalized result of the specification
// pipeline. It carries only what the source document declares.
type ParsedSpecification struct {
	Format       SpecFormat
	Title        string
	Version      string
	Servers      []string
	Endpoints    []Endpoint
	SourceFile   string
	ArchiveFiles []string
}
