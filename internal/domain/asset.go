package domain

import (
	"fmt"
	"strings"
)

// AssetRef addresses one cataloged asset as groupId/assetId with an
// optional pinned version.
type AssetRef struct {
	GroupID string
	AssetID string
	Version string
}

func (r AssetRef) String() string {
	if r.Version == "" {
		return r.GroupID + "/" + r.AssetID
	}
	return r.GroupID + "/" + r.AssetID + "/" + r.Version
}

// ParseAssetRef parses "groupId/assetId" or "groupId/assetId/version".
func ParseAssetRef(s string) (AssetRef, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	switch len(parts) {
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return AssetRef{}, E(CodeInvalidArgument, "domain.ParseAssetRef", fmt.Sprintf("invalid asset id %q", s), nil)
		}
		return AssetRef{GroupID: parts[0], AssetID: parts[1]}, nil
	case 3:
		if parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return AssetRef{}, E(CodeInvalidArgument, "domain.ParseAssetRef", fmt.Sprintf("invalid asset id %q", s), nil)
		}
		return AssetRef{GroupID: parts[0], AssetID: parts[1], Version: parts[2]}, nil
	default:
		return AssetRef{}, E(CodeInvalidArgument, "domain.ParseAssetRef", fmt.Sprintf("asset id %q must be groupId/assetId[/version]", s), nil)
	}
}

// AssetFile is one packaged file advertised by an asset, e.g. the OAS or
// RAML specification archive.
type AssetFile struct {
	Classifier   string
	Packaging    string
	MainFile     string
	ExternalLink string
	CreatedDate  string
}

// CatalogAsset is one catalog entry. Instances are immutable once fetched
// within a request; there is no cross-request cache.
type CatalogAsset struct {
	GroupID     string
	AssetID     string
	Name        string
	Version     string
	AssetType   string
	Description string
	Tags        []string
	Files       []AssetFile
	Raw         map[string]any
}

func (a CatalogAsset) Ref() AssetRef {
	return AssetRef{GroupID: a.GroupID, AssetID: a.AssetID, Version: a.Version}
}

// HasTag reports whether the asset carries the tag, case-insensitively.
func (a CatalogAsset) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
