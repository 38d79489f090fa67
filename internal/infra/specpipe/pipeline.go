package specpipe

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"exmcp/internal/domain"
	"exmcp/internal/infra/telemetry"
)

// FileLister resolves an asset's packaged file listing.
type FileLister interface {
	AssetFiles(ctx context.Context, ref domain.AssetRef) ([]domain.AssetFile, string, error)
}

// Downloader fetches archive bytes from a pre-signed link.
type Downloader interface {
	Download(ctx context.Context, url string, maxBytes int64) ([]byte, error)
}

// classifierPriority orders the packaged files the catalog may advertise;
// OpenAPI documents are preferred over RAML.
var classifierPriority = []string{"oas", "fat-oas", "raml", "fat-raml"}

// rootNames are conventional root-document names, checked in order.
var rootNames = []string{
	"api.yaml", "api.yml", "api.json",
	"openapi.yaml", "openapi.yml", "openapi.json",
	"swagger.yaml", "swagger.yml", "swagger.json",
	"api.raml",
}

// Stage names, used for logging and metrics. The stages run strictly in
// this order; any failure is terminal for the invocation.
const (
	stageLocating    = "locating"
	stageDownloading = "downloading"
	stageExtracting  = "extracting"
	stageIdentifying = "identifying"
	stageParsing     = "parsing"
	stageDone        = "done"
)

// Pipeline turns one asset reference into a parsed specification. Each
// invocation is self-contained: the archive lives in memory for the call
// and nothing is shared across invocations.
type Pipeline struct {
	files      FileLister
	downloader Downloader
	limits     Limits
	logger     *zap.Logger
	metrics    *telemetry.Metrics
}

func NewPipeline(files FileLister, downloader Downloader, limits Limits, logger *zap.Logger, metrics *telemetry.Metrics) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		files:      files,
		downloader: downloader,
		limits:     limits.withDefaults(),
		logger:     logger.Named("specpipe"),
		metrics:    metrics,
	}
}

// Extract runs the full pipeline for one asset.
func (p *Pipeline) Extract(ctx context.Context, ref domain.AssetRef) (domain.ParsedSpecification, error) {
	spec, stage, err := p.run(ctx, ref)
	p.metrics.ObservePipeline(stage, err)
	if err != nil {
		p.logger.Warn("specification pipeline failed",
			telemetry.AssetField(ref.String()),
			telemetry.StageField(stage),
			zap.Error(err),
		)
		return domain.ParsedSpecification{}, err
	}
	p.logger.Info("specification extracted",
		telemetry.AssetField(ref.String()),
		zap.String("source", spec.SourceFile),
		zap.String("format", string(spec.Format)),
		zap.Int("endpoints", len(spec.Endpoints)),
	)
	return spec, nil
}

func (p *Pipeline) run(ctx context.Context, ref domain.AssetRef) (domain.ParsedSpecification, string, error) {
	specFile, err := p.locate(ctx, ref)
	if err != nil {
		return domain.ParsedSpecification{}, stageLocating, err
	}

	data, err := p.downloader.Download(ctx, specFile.ExternalLink, p.limits.MaxArchiveBytes)
	if err != nil {
		return domain.ParsedSpecification{}, stageDownloading, err
	}

	entries, names, err := p.materialize(specFile, data)
	if err != nil {
		return domain.ParsedSpecification{}, stageExtracting, err
	}

	root, err := identifyRoot(entries, specFile.MainFile)
	if err != nil {
		return domain.ParsedSpecification{}, stageIdentifying, err
	}

	var spec domain.ParsedSpecification
	if isRAML(root.data) {
		spec, err = parseRAML(root.path, root.data)
	} else {
		spec, err = parseOpenAPI(root.path, root.data)
	}
	if err != nil {
		return domain.ParsedSpecification{}, stageParsing, err
	}
	spec.ArchiveFiles = names
	return spec, stageDone, nil
}

// locate picks the packaged file holding the specification, preferring
// OpenAPI classifiers over RAML ones.
func (p *Pipeline) locate(ctx context.Context, ref domain.AssetRef) (domain.AssetFile, error) {
	const op = "specpipe.locate"

	files, _, err := p.files.AssetFiles(ctx, ref)
	if err != nil {
		return domain.AssetFile{}, err
	}

	for _, classifier := range classifierPriority {
		for _, f := range files {
			if strings.EqualFold(f.Classifier, classifier) && f.ExternalLink != "" {
				return f, nil
			}
		}
	}
	return domain.AssetFile{}, domain.E(domain.CodeNoSpecification, op,
		fmt.Sprintf("asset %s has no packaged specification", ref), nil)
}

// materialize turns the downloaded bytes into archive entries. Non-zip
// packaging means the download is the document itself.
func (p *Pipeline) materialize(specFile domain.AssetFile, data []byte) ([]entry, []string, error) {
	if strings.EqualFold(specFile.Packaging, "zip") {
		return extractArchive(data, p.limits)
	}
	name := specFile.MainFile
	if name == "" {
		name = "api." + strings.ToLower(specFile.Packaging)
	}
	return []entry{{path: name, data: data}}, []string{name}, nil
}

// identifyRoot selects the root specification document: the archive's
// declared main file or a conventional root name, else the first document
// that parses with an openapi/swagger key, else the first RAML file.
func identifyRoot(entries []entry, mainFile string) (entry, error) {
	const op = "specpipe.identify"

	if len(entries) == 0 {
		return entry{}, domain.E(domain.CodeNoSpecification, op, "archive holds no specification documents", nil)
	}

	byPath := make(map[string]entry, len(entries))
	for _, e := range entries {
		byPath[e.path] = e
	}
	if mainFile != "" {
		if e, ok := byPath[mainFile]; ok {
			return e, nil
		}
	}
	for _, name := range rootNames {
		if e, ok := byPath[name]; ok {
			return e, nil
		}
	}
	if e, ok := shallowestRAML(entries); ok {
		// A root-level .raml beats probing, matching how RAML archives
		// are laid out; non-root RAML files are library fragments.
		if !strings.Contains(e.path, "/") {
			return e, nil
		}
	}

	ordered := append([]entry(nil), entries...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].path < ordered[j].path })

	for _, e := range ordered {
		ext := strings.ToLower(path.Ext(e.path))
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}
		doc, err := decodeDocument(e.path, e.data)
		if err != nil {
			continue
		}
		if hasOpenAPIKey(doc) {
			return e, nil
		}
	}
	if e, ok := shallowestRAML(entries); ok {
		return e, nil
	}
	return entry{}, domain.E(domain.CodeNoSpecification, op, "no root specification document identified", nil)
}

func shallowestRAML(entries []entry) (entry, bool) {
	var best entry
	found := false
	for _, e := range entries {
		if strings.ToLower(path.Ext(e.path)) != ".raml" {
			continue
		}
		if !found || depthOf(e.path) < depthOf(best.path) ||
			(depthOf(e.path) == depthOf(best.path) && e.path < best.path) {
			best = e
			found = true
		}
	}
	return best, found
}

func depthOf(p string) int {
	return strings.Count(p, "/")
}
