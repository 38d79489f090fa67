package server

import (
	"fmt"
	"sort"
	"strings"

	"exmcp/internal/domain"
)

// Rendering targets a model reading the text, not a terminal: compact
// markdown with the asset identifier always present so follow-up tool
// calls can address the same asset.

func renderAssetList(assets []domain.CatalogAsset, term, category string) string {
	var b strings.Builder
	switch {
	case term == "" && category == "":
		b.WriteString("# Catalog APIs\n\n")
	case category == "":
		fmt.Fprintf(&b, "# APIs matching %q\n\n", term)
	case term == "":
		fmt.Fprintf(&b, "# APIs in category %q\n\n", category)
	default:
		fmt.Fprintf(&b, "# APIs in category %q matching %q\n\n", category, term)
	}

	if len(assets) == 0 {
		b.WriteString("No matching APIs found.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%d result(s).\n\n", len(assets))
	for _, asset := range assets {
		fmt.Fprintf(&b, "## %s\n", asset.Name)
		fmt.Fprintf(&b, "- Asset ID: `%s`\n", asset.Ref())
		if asset.Version != "" {
			fmt.Fprintf(&b, "- Version: %s\n", asset.Version)
		}
		if asset.AssetType != "" {
			fmt.Fprintf(&b, "- Type: %s\n", asset.AssetType)
		}
		if asset.Description != "" {
			fmt.Fprintf(&b, "- Description: %s\n", firstLine(asset.Description))
		}
		if len(asset.Tags) > 0 {
			fmt.Fprintf(&b, "- Tags: %s\n", strings.Join(asset.Tags, ", "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func renderAssetDetails(asset domain.CatalogAsset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", asset.Name)
	fmt.Fprintf(&b, "- Asset ID: `%s`\n", asset.Ref())
	if asset.Version != "" {
		fmt.Fprintf(&b, "- Version: %s\n", asset.Version)
	}
	if asset.AssetType != "" {
		fmt.Fprintf(&b, "- Type: %s\n", asset.AssetType)
	}
	if len(asset.Tags) > 0 {
		fmt.Fprintf(&b, "- Tags: %s\n", strings.Join(asset.Tags, ", "))
	}
	if asset.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(asset.Description))
	}
	if len(asset.Files) > 0 {
		b.WriteString("\n## Packaged files\n\n")
		for _, f := range asset.Files {
			b.WriteString(renderFileLine(f))
		}
	}
	return b.String()
}

func renderFiles(ref domain.AssetRef, version string, files []domain.AssetFile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Files for `%s`\n\n", ref)
	if version != "" {
		fmt.Fprintf(&b, "Resolved version: %s\n\n", version)
	}
	if len(files) == 0 {
		b.WriteString("No packaged files.\n")
		return b.String()
	}
	for _, f := range files {
		b.WriteString(renderFileLine(f))
	}
	return b.String()
}

func renderFileLine(f domain.AssetFile) string {
	parts := []string{fmt.Sprintf("classifier=%s", valueOr(f.Classifier, "-"))}
	if f.Packaging != "" {
		parts = append(parts, "packaging="+f.Packaging)
	}
	if f.MainFile != "" {
		parts = append(parts, "mainFile="+f.MainFile)
	}
	if f.ExternalLink != "" {
		parts = append(parts, "downloadable=yes")
	} else {
		parts = append(parts, "downloadable=no")
	}
	if f.CreatedDate != "" {
		parts = append(parts, "created="+f.CreatedDate)
	}
	return "- " + strings.Join(parts, " ") + "\n"
}

func renderSpecification(ref domain.AssetRef, spec domain.ParsedSpecification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Specification for `%s`\n\n", ref)
	fmt.Fprintf(&b, "- Format: %s\n", spec.Format)
	if spec.Title != "" {
		fmt.Fprintf(&b, "- Title: %s\n", spec.Title)
	}
	if spec.Version != "" {
		fmt.Fprintf(&b, "- Version: %s\n", spec.Version)
	}
	if len(spec.Servers) > 0 {
		fmt.Fprintf(&b, "- Servers: %s\n", strings.Join(spec.Servers, ", "))
	}
	fmt.Fprintf(&b, "- Source document: %s\n", spec.SourceFile)
	if len(spec.ArchiveFiles) > 0 {
		fmt.Fprintf(&b, "- Archive contents: %s\n", strings.Join(spec.ArchiveFiles, ", "))
	}

	fmt.Fprintf(&b, "\n## Endpoints (%d)\n\n", len(spec.Endpoints))
	for _, e := range spec.Endpoints {
		fmt.Fprintf(&b, "- `%s %s`", e.Method, e.Path)
		if e.Summary != "" {
			fmt.Fprintf(&b, ": %s", e.Summary)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderAnalysis(ref domain.AssetRef, spec domain.ParsedSpecification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Endpoint analysis for `%s`\n\n", ref)
	if spec.Title != "" {
		fmt.Fprintf(&b, "%s", spec.Title)
		if spec.Version != "" {
			fmt.Fprintf(&b, " (%s)", spec.Version)
		}
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Total endpoints: %d\n", len(spec.Endpoints))

	byMethod := map[string]int{}
	for _, e := range spec.Endpoints {
		byMethod[e.Method]++
	}
	if len(byMethod) > 0 {
		methods := make([]string, 0, len(byMethod))
		for m := range byMethod {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		b.WriteString("\n## Method distribution\n\n")
		for _, m := range methods {
			fmt.Fprintf(&b, "- %s: %d\n", m, byMethod[m])
		}
	}

	if len(spec.Endpoints) > 0 {
		b.WriteString("\n## Operations\n\n")
		for _, e := range spec.Endpoints {
			fmt.Fprintf(&b, "### %s %s\n", e.Method, e.Path)
			if e.Summary != "" {
				fmt.Fprintf(&b, "%s\n", e.Summary)
			}
			if len(e.Parameters) > 0 {
				params := make([]string, 0, len(e.Parameters))
				for _, p := range e.Parameters {
					tag := p.Location
					if p.Required {
						tag += ", required"
					}
					params = append(params, fmt.Sprintf("%s (%s)", p.Name, tag))
				}
				fmt.Fprintf(&b, "- Parameters: %s\n", strings.Join(params, "; "))
			}
			if len(e.ResponseCodes) > 0 {
				codes := make([]string, len(e.ResponseCodes))
				for i, c := range e.ResponseCodes {
					codes[i] = fmt.Sprintf("%d", c)
				}
				fmt.Fprintf(&b, "- Responses: %s\n", strings.Join(codes, ", "))
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
