package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"exmcp/internal/domain"
	"exmcp/internal/infra/telemetry"
)

// toolFunc is the inner shape of every tool: decoded args in, rendered
// text out, typed error on failure.
type toolFunc func(ctx context.Context, args json.RawMessage) (string, error)

// addTool registers one tool behind the shared guard: panics become
// typed internal errors, typed errors become IsError results instead of
// protocol failures, and every call is timed.
func (s *Server) addTool(name, description string, schema map[string]any, fn toolFunc) {
	s.server.AddTool(&mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
	}, s.guard(name, fn))
}

func (s *Server) guard(name string, fn toolFunc) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		text, err := func() (out string, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = domain.E(domain.CodeInternal, name, fmt.Sprintf("panic: %v", r), nil)
				}
			}()
			return fn(ctx, json.RawMessage(req.Params.Arguments))
		}()
		duration := time.Since(start)
		s.metrics.ObserveToolCall(name, duration, err)

		if err != nil {
			s.logger.Warn("tool call failed",
				telemetry.ToolField(name),
				telemetry.DurationField(duration),
				zap.Error(err),
			)
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: errorText(err)}},
			}, nil
		}
		s.logger.Debug("tool call completed",
			telemetry.ToolField(name),
			telemetry.DurationField(duration),
		)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil
	}
}

// errorText renders a failure for the model: the error code up front so
// the caller can branch on it, then the human-readable chain.
func errorText(err error) string {
	if code, ok := domain.CodeFrom(err); ok {
		return fmt.Sprintf("Error [%s]: %s", code, err.Error())
	}
	return "Error: " + err.Error()
}

func decodeArgs(args json.RawMessage, into any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, into); err != nil {
		return domain.E(domain.CodeInvalidArgument, "server.decode_args", "malformed tool arguments", err)
	}
	return nil
}

func parseRef(raw, op string) (domain.AssetRef, error) {
	if raw == "" {
		return domain.AssetRef{}, domain.E(domain.CodeInvalidArgument, op, "asset_id is required", nil)
	}
	return domain.ParseAssetRef(raw)
}

func (s *Server) handleSearchAPIs(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Query    string `json:"query"`
		Category string `json:"category"`
		Limit    int    `json:"limit"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	assets, err := s.searcher.Search(ctx, in.Query, in.Category, in.Limit)
	if err != nil {
		return "", err
	}
	return renderAssetList(assets, in.Query, in.Category), nil
}

func (s *Server) handleAPIsByCategory(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Category string `json:"category"`
		Query    string `json:"query"`
		Limit    int    `json:"limit"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.Category == "" {
		return "", domain.E(domain.CodeInvalidArgument, "server.find_apis_by_category", "category is required", nil)
	}
	assets, err := s.searcher.Search(ctx, in.Query, in.Category, in.Limit)
	if err != nil {
		return "", err
	}
	return renderAssetList(assets, in.Query, in.Category), nil
}

func (s *Server) handleAPIDetails(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		AssetID string `json:"asset_id"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	ref, err := parseRef(in.AssetID, "server.get_api_details")
	if err != nil {
		return "", err
	}
	asset, err := s.catalog.AssetDetails(ctx, ref)
	if err != nil {
		return "", err
	}
	return renderAssetDetails(asset), nil
}

func (s *Server) handleAPIFiles(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		AssetID string `json:"asset_id"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	ref, err := parseRef(in.AssetID, "server.get_api_files")
	if err != nil {
		return "", err
	}
	files, version, err := s.catalog.AssetFiles(ctx, ref)
	if err != nil {
		return "", err
	}
	return renderFiles(ref, version, files), nil
}

func (s *Server) handleAPISpecification(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		AssetID string `json:"asset_id"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	ref, err := parseRef(in.AssetID, "server.get_api_specification")
	if err != nil {
		return "", err
	}
	spec, err := s.pipeline.Extract(ctx, ref)
	if err != nil {
		return "", err
	}
	return renderSpecification(ref, spec), nil
}

func (s *Server) handleAnalyzeEndpoints(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		AssetID string `json:"asset_id"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	ref, err := parseRef(in.AssetID, "server.analyze_api_endpoints")
	if err != nil {
		return "", err
	}
	spec, err := s.pipeline.Extract(ctx, ref)
	if err != nil {
		return "", err
	}
	return renderAnalysis(ref, spec), nil
}
