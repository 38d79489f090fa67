package server

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"exmcp/internal/buildinfo"
	"exmcp/internal/domain"
	"exmcp/internal/infra/telemetry"
)

// Searcher is the slice of the search engine the tools need.
type Searcher interface {
	Search(ctx context.Context, term, category string, limit int) ([]domain.CatalogAsset, error)
}

// Catalog is the slice of the catalog client the tools and resources need.
type Catalog interface {
	ListAssets(ctx context.Context, term string, types []string, limit int) ([]domain.CatalogAsset, error)
	AssetDetails(ctx context.Context, ref domain.AssetRef) (domain.CatalogAsset, error)
	AssetFiles(ctx context.Context, ref domain.AssetRef) ([]domain.AssetFile, string, error)
}

// Extractor runs the specification pipeline for one asset.
type Extractor interface {
	Extract(ctx context.Context, ref domain.AssetRef) (domain.ParsedSpecification, error)
}

// Server exposes the catalog over MCP: six tools and two browsable
// resources, served over stdio.
type Server struct {
	searcher Searcher
	catalog  Catalog
	pipeline Extractor
	logger   *zap.Logger
	metrics  *telemetry.Metrics
	server   *mcp.Server
}

func New(searcher Searcher, catalog Catalog, pipeline Extractor, logger *zap.Logger, metrics *telemetry.Metrics) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		searcher: searcher,
		catalog:  catalog,
		pipeline: pipeline,
		logger:   logger.Named("server"),
		metrics:  metrics,
	}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "exchange-mcp",
		Version: buildinfo.Version,
	}, &mcp.ServerOptions{
		HasTools:     true,
		HasResources: true,
	})
	s.registerTools()
	s.registerResources()
	return s
}

// Run serves MCP over stdio until ctx is cancelled or the peer
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("server starting (stdio transport)")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect attaches the server to an arbitrary transport. Tests use this
// with in-memory transports.
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, transport, nil)
}
