package server

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"exmcp/internal/domain"
)

const (
	resourceURIAPIs       = "exchange://apis"
	resourceURIConnectors = "exchange://connectors"
)

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         resourceURIAPIs,
		Name:        "Catalog APIs",
		Description: "All REST, SOAP, and HTTP APIs published in the Exchange catalog",
		MIMEType:    "text/markdown",
	}, s.listingResource(resourceURIAPIs, domain.DefaultAPITypes))

	s.server.AddResource(&mcp.Resource{
		URI:         resourceURIConnectors,
		Name:        "Catalog connectors",
		Description: "All connectors published in the Exchange catalog",
		MIMEType:    "text/markdown",
	}, s.listingResource(resourceURIConnectors, domain.ConnectorTypes))
}

func (s *Server) listingResource(uri string, types []string) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		assets, err := s.catalog.ListAssets(ctx, "", types, domain.DefaultSearchFetch)
		if err != nil {
			s.logger.Warn("resource read failed", zap.String("uri", uri), zap.Error(err))
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      uri,
				MIMEType: "text/markdown",
				Text:     renderAssetList(assets, "", ""),
			}},
		}, nil
	}
}
