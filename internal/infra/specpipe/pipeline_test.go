package specpipe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"exmcp/internal/domain"
)

type fakeFiles struct {
	files []domain.AssetFile
	err   error
}

func (f *fakeFiles) AssetFiles(context.Context, domain.AssetRef) ([]domain.AssetFile, string, error) {
	return f.files, "1.0.0", f.err
}

type fakeDownloader struct {
	data map[string][]byte
}

func (f *fakeDownloader) Download(_ context.Context, url string, maxBytes int64) ([]byte, error) {
	data, ok := f.data[url]
	if !ok {
		return nil, domain.E(domain.CodeNotFound, "download", "no such archive", nil)
	}
	if int64(len(data)) > maxBytes {
		return nil, domain.E(domain.CodeArchiveTooLarge, "download", "archive too large", nil)
	}
	return data, nil
}

func specFile(classifier, packaging, mainFile, link string) domain.AssetFile {
	return domain.AssetFile{
		Classifier:   classifier,
		Packaging:    packaging,
		MainFile:     mainFile,
		ExternalLink: link,
	}
}

var testRef = domain.AssetRef{GroupID: "com.acme", AssetID: "payments-api", Version: "1.0.0"}

func TestExtractOpenAPIRoundTrip(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"api.yaml": minimalOpenAPI,
	})
	p := NewPipeline(
		&fakeFiles{files: []domain.AssetFile{specFile("oas", "zip", "api.yaml", "zip://spec")}},
		&fakeDownloader{data: map[string][]byte{"zip://spec": archive}},
		Limits{}, nil, nil,
	)

	spec, err := p.Extract(context.Background(), testRef)
	require.NoError(t, err)
	require.Equal(t, domain.SpecFormatOpenAPI, spec.Format)
	require.Len(t, spec.Endpoints, 1)
	require.Equal(t, "/payments", spec.Endpoints[0].Path)
	require.Equal(t, "POST", spec.Endpoints[0].Method)
	require.Equal(t, "api.yaml", spec.SourceFile)
	require.Equal(t, []string{"api.yaml"}, spec.ArchiveFiles)
}

func TestExtractPrefersOASOverRAML(t *testing.T) {
	oasArchive := buildZip(t, map[string]string{"api.yaml": minimalOpenAPI})
	p := NewPipeline(
		&fakeFiles{files: []domain.AssetFile{
			specFile("fat-raml", "zip", "api.raml", "zip://raml"),
			specFile("oas", "zip", "api.yaml", "zip://oas"),
		}},
		&fakeDownloader{data: map[string][]byte{
			"zip://oas":  oasArchive,
			"zip://raml": buildZip(t, map[string]string{"api.raml": sampleRAML}),
		}},
		Limits{}, nil, nil,
	)

	spec, err := p.Extract(context.Background(), testRef)
	require.NoError(t, err)
	require.Equal(t, domain.SpecFormatOpenAPI, spec.Format)
}

func TestExtractFallsBackToRAML(t *testing.T) {
	p := NewPipeline(
		&fakeFiles{files: []domain.AssetFile{specFile("fat-raml", "zip", "", "zip://raml")}},
		&fakeDownloader{data: map[string][]byte{
			"zip://raml": buildZip(t, map[string]string{"accounts.raml": sampleRAML}),
		}},
		Limits{}, nil, nil,
	)

	spec, err := p.Extract(context.Background(), testRef)
	require.NoError(t, err)
	require.Equal(t, domain.SpecFormatRAML, spec.Format)
	require.Equal(t, "Accounts API", spec.Title)
}

func TestExtractIdentifiesByOpenAPIKeyProbe(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"aaa-types.yaml": "components: {}",
		"zzz-spec.yaml":  minimalOpenAPI,
	})
	p := NewPipeline(
		&fakeFiles{files: []domain.AssetFile{specFile("oas", "zip", "", "zip://spec")}},
		&fakeDownloader{data: map[string][]byte{"zip://spec": archive}},
		Limits{}, nil, nil,
	)

	spec, err := p.Extract(context.Background(), testRef)
	require.NoError(t, err)
	require.Equal(t, "zzz-spec.yaml", spec.SourceFile)
}

func TestExtractHonorsMainFile(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"api.yaml":    "title: decoy, not a spec",
		"actual.yaml": minimalOpenAPI,
	})
	p := NewPipeline(
		&fakeFiles{files: []domain.AssetFile{specFile("oas", "zip", "actual.yaml", "zip://spec")}},
		&fakeDownloader{data: map[string][]byte{"zip://spec": archive}},
		Limits{}, nil, nil,
	)

	spec, err := p.Extract(context.Background(), testRef)
	require.NoError(t, err)
	require.Equal(t, "actual.yaml", spec.SourceFile)
}

func TestExtractNonZipPackaging(t *testing.T) {
	p := NewPipeline(
		&fakeFiles{files: []domain.AssetFile{specFile("oas", "yaml", "api.yaml", "raw://spec")}},
		&fakeDownloader{data: map[string][]byte{"raw://spec": []byte(minimalOpenAPI)}},
		Limits{}, nil, nil,
	)

	spec, err := p.Extract(context.Background(), testRef)
	require.NoError(t, err)
	require.Equal(t, domain.SpecFormatOpenAPI, spec.Format)
}

func TestExtractNoSpecificationFile(t *testing.T) {
	p := NewPipeline(
		&fakeFiles{files: []domain.AssetFile{specFile("docs", "zip", "", "zip://docs")}},
		&fakeDownloader{}, Limits{}, nil, nil,
	)

	_, err := p.Extract(context.Background(), testRef)
	require.Error(t, err)
	require.True(t, domain.IsCode(err, domain.CodeNoSpecification))
}

func TestExtractPathTraversalFailsPipeline(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"../../etc/passwd": "root:x:0:0",
		"api.yaml":         minimalOpenAPI,
	})
	p := NewPipeline(
		&fakeFiles{files: []domain.AssetFile{specFile("oas", "zip", "", "zip://spec")}},
		&fakeDownloader{data: map[string][]byte{"zip://spec": archive}},
		Limits{}, nil, nil,
	)

	_, err := p.Extract(context.Background(), testRef)
	require.Error(t, err)
	require.True(t, domain.IsCode(err, domain.CodeMalformedArchive))
}

func TestExtractMalformedRootFailsWhole(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"api.yaml": "openapi: 3.0.0\n  broken:\nindent",
	})
	p := NewPipeline(
		&fakeFiles{files: []domain.AssetFile{specFile("oas", "zip", "api.yaml", "zip://spec")}},
		&fakeDownloader{data: map[string][]byte{"zip://spec": archive}},
		Limits{}, nil, nil,
	)

	_, err := p.Extract(context.Background(), testRef)
	require.Error(t, err)
	require.True(t, domain.IsCode(err, domain.CodeMalformedSpec))
}

func TestExtractOversizedArchive(t *testing.T) {
	archive := buildZip(t, map[string]string{"api.yaml": minimalOpenAPI})
	p := NewPipeline(
		&fakeFiles{files: []domain.AssetFile{specFile("oas", "zip", "", "zip://spec")}},
		&fakeDownloader{data: map[string][]byte{"zip://spec": archive}},
		Limits{MaxArchiveBytes: 16}, nil, nil,
	)

	_, err := p.Extract(context.Background(), testRef)
	require.Error(t, err)
	require.True(t, domain.IsCode(err, domain.CodeArchiveTooLarge))
}
