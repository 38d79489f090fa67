package anypoint

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"exmcp/internal/domain"
	"exmcp/internal/infra/telemetry"
)

const (
	assetsPathV2 = "/exchange/api/v2/assets"
	assetsPathV1 = "/exchange/api/v1/assets"
)

// ListAssets fetches the organization's asset listing in one call. term is
// passed through as the server-side search hint; callers still filter
// locally. The result is bounded by limit.
func (c *Client) ListAssets(ctx context.Context, term string, types []string, limit int) ([]domain.CatalogAsset, error) {
	const operation = "list_assets"

	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}
	query := url.Values{}
	query.Set("search", term)
	query.Set("organizationId", c.cfg.OrgID)
	query.Set("offset", "0")
	query.Set("limit", strconv.Itoa(limit))
	query.Set("includeSnapshots", "true")
	for _, t := range types {
		if t != "" {
			query.Add("types", t)
		}
	}

	body, err := c.get(ctx, operation, assetsPathV2, query)
	if err != nil {
		return nil, err
	}

	raw, err := decodeAssetList(body)
	if err != nil {
		return nil, domain.E(domain.CodeUnexpectedResponse, operation, "decode asset listing", err)
	}

	assets := make([]domain.CatalogAsset, 0, len(raw))
	for _, entry := range raw {
		assets = append(assets, assetFromRaw(entry))
	}
	c.logger.Debug("asset listing fetched",
		telemetry.OperationField(operation),
		zap.Int("count", len(assets)),
		zap.String("term", term),
	)
	return assets, nil
}

// AssetDetails resolves one asset's full metadata. The catalog exposes
// several detail endpoints across API versions; the first one that answers
// wins, then the general listing is consulted as a last resort. An asset
// the catalog does not know yields CodeNotFound, never an empty value.
func (c *Client) AssetDetails(ctx context.Context, ref domain.AssetRef) (domain.CatalogAsset, error) {
	const operation = "asset_details"

	var paths []string
	if ref.Version != "" {
		paths = append(paths,
			fmt.Sprintf("%s/%s/%s/%s", assetsPathV2, ref.GroupID, ref.AssetID, ref.Version),
		)
	}
	paths = append(paths,
		fmt.Sprintf("%s/%s/%s", assetsPathV2, ref.GroupID, ref.AssetID),
	)
	if ref.Version != "" {
		paths = append(paths,
			fmt.Sprintf("%s/%s/%s/%s", assetsPathV1, ref.GroupID, ref.AssetID, ref.Version),
		)
	}
	paths = append(paths,
		fmt.Sprintf("%s/%s/%s", assetsPathV1, ref.GroupID, ref.AssetID),
	)

	var lastErr error
	for _, path := range paths {
		body, err := c.get(ctx, operation, path, nil)
		if err != nil {
			if !domain.IsCode(err, domain.CodeNotFound) {
				lastErr = err
			}
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal(body, &raw); err != nil {
			lastErr = domain.E(domain.CodeUnexpectedResponse, operation, "decode asset detail", err)
			continue
		}
		return assetFromRaw(raw), nil
	}

	// The detail endpoints miss some snapshot-only assets that the listing
	// still reports.
	if asset, ok := c.findInListing(ctx, ref); ok {
		return asset, nil
	}

	if lastErr != nil {
		return domain.CatalogAsset{}, lastErr
	}
	return domain.CatalogAsset{}, domain.E(domain.CodeNotFound, operation,
		fmt.Sprintf("asset %s not found in catalog", ref), nil)
}

func (c *Client) findInListing(ctx context.Context, ref domain.AssetRef) (domain.CatalogAsset, bool) {
	assets, err := c.ListAssets(ctx, ref.AssetID, nil, domain.DefaultSearchLimit)
	if err != nil {
		return domain.CatalogAsset{}, false
	}
	for _, asset := range assets {
		if asset.GroupID == ref.GroupID && asset.AssetID == ref.AssetID {
			return asset, true
		}
	}
	return domain.CatalogAsset{}, false
}

// AssetFiles returns the asset's packaged file listing and the resolved
// version. The detail document usually carries the files inline; otherwise
// the files sub-resource is consulted.
func (c *Client) AssetFiles(ctx context.Context, ref domain.AssetRef) ([]domain.AssetFile, string, error) {
	const operation = "asset_files"

	asset, err := c.AssetDetails(ctx, ref)
	if err != nil {
		return nil, "", err
	}
	version := ref.Version
	if version == "" {
		version = asset.Version
	}
	if len(asset.Files) > 0 {
		return asset.Files, version, nil
	}
	if version == "" {
		return nil, "", domain.E(domain.CodeNotFound, operation,
			fmt.Sprintf("asset %s has no resolvable version", ref), nil)
	}

	path := fmt.Sprintf("%s/%s/%s/%s/files", assetsPathV2, ref.GroupID, ref.AssetID, version)
	body, err := c.get(ctx, operation, path, nil)
	if err != nil {
		return nil, "", err
	}

	var raw []map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		// Some deployments wrap the listing in an object.
		var wrapped struct {
			Files []map[string]any `json:"files"`
		}
		if err2 := json.Unmarshal(body, &wrapped); err2 != nil {
			return nil, "", domain.E(domain.CodeUnexpectedResponse, operation, "decode files listing", err)
		}
		raw = wrapped.Files
	}

	files := make([]domain.AssetFile, 0, len(raw))
	for _, entry := range raw {
		files = append(files, fileFromRaw(entry))
	}
	return files, version, nil
}

// decodeAssetList tolerates the response shapes the catalog is known to
// produce: a bare array, or an object keyed by assets, data, or items.
func decodeAssetList(body []byte) ([]map[string]any, error) {
	var direct []map[string]any
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	for _, key := range []string{"assets", "data", "items"} {
		raw, ok := wrapped[key]
		if !ok {
			continue
		}
		var list []map[string]any
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode %q list: %w", key, err)
		}
		return list, nil
	}
	return nil, fmt.Errorf("asset listing has no recognized collection key")
}

func assetFromRaw(raw map[string]any) domain.CatalogAsset {
	asset := domain.CatalogAsset{
		GroupID:     stringField(raw, "groupId"),
		AssetID:     stringField(raw, "assetId"),
		Name:        stringField(raw, "name"),
		Version:     stringField(raw, "version"),
		AssetType:   stringField(raw, "type"),
		Description: stringField(raw, "description"),
		Raw:         raw,
	}
	if asset.Name == "" {
		asset.Name = asset.AssetID
	}
	asset.Tags = tagsFromRaw(raw)
	if files, ok := raw["files"].([]any); ok {
		for _, f := range files {
			if m, ok := f.(map[string]any); ok {
				asset.Files = append(asset.Files, fileFromRaw(m))
			}
		}
	}
	return asset
}

// tagsFromRaw flattens both tag shapes the catalog emits: objects with a
// value key, and plain strings. Category values are folded in as tags.
func tagsFromRaw(raw map[string]any) []string {
	var tags []string
	appendTag := func(v any) {
		switch t := v.(type) {
		case string:
			if t != "" {
				tags = append(tags, t)
			}
		case map[string]any:
			if value := stringField(t, "value"); value != "" {
				tags = append(tags, value)
			}
		}
	}
	if list, ok := raw["tags"].([]any); ok {
		for _, v := range list {
			appendTag(v)
		}
	}
	if list, ok := raw["categories"].([]any); ok {
		for _, v := range list {
			if m, ok := v.(map[string]any); ok {
				if values, ok := m["value"].([]any); ok {
					for _, vv := range values {
						appendTag(vv)
					}
					continue
				}
			}
			appendTag(v)
		}
	}
	return tags
}

func fileFromRaw(raw map[string]any) domain.AssetFile {
	return domain.AssetFile{
		Classifier:   stringField(raw, "classifier"),
		Packaging:    stringField(raw, "packaging"),
		MainFile:     stringField(raw, "mainFile"),
		ExternalLink: stringField(raw, "externalLink"),
		CreatedDate:  stringField(raw, "createdDate"),
	}
}

func stringField(raw map[string]any, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}
