package specpipe

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"exmcp/internal/domain"
)

var ramlMethods = map[string]struct{}{
	"get": {}, "post": {}, "put": {}, "patch": {},
	"delete": {}, "head": {}, "options": {},
}

// maxRAMLDepth bounds resource flattening: one level of nesting is
// honored, anything deeper is collected best-effort.
const maxRAMLDepth = 4

func isRAML(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, "\xef\xbb\xbf \t\r\n"), []byte("#%RAML"))
}

// parseRAML derives the endpoint inventory from a RAML document. Support
// is intentionally partial: resources and methods are enumerated with
// nested resources flattened onto their parent path; traits and resource
// types are ignored.
func parseRAML(name string, data []byte) (domain.ParsedSpecification, error) {
	const op = "specpipe.parse_raml"

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return domain.ParsedSpecification{}, domain.E(domain.CodeMalformedSpec, op,
			fmt.Sprintf("parse %q", name), err)
	}

	spec := domain.ParsedSpecification{
		Format:     domain.SpecFormatRAML,
		SourceFile: name,
		Title:      asString(doc["title"]),
		Version:    asString(doc["version"]),
	}
	if base := asString(doc["baseUri"]); base != "" {
		spec.Servers = []string{base}
	}

	spec.Endpoints = ramlResources(doc, "", 0)
	return spec, nil
}

// ramlResources walks resource nodes (keys starting with "/"), joining
// nested paths onto the parent.
func ramlResources(node map[string]any, parent string, depth int) []domain.Endpoint {
	if depth > maxRAMLDepth {
		return nil
	}

	keys := make([]string, 0, len(node))
	for k := range node {
		if strings.HasPrefix(k, "/") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var endpoints []domain.Endpoint
	for _, key := range keys {
		resource, ok := asMap(node[key])
		if !ok {
			continue
		}
		full := parent + key
		endpoints = append(endpoints, ramlMethodsOf(resource, full)...)
		endpoints = append(endpoints, ramlResources(resource, full, depth+1)...)
	}
	return endpoints
}

func ramlMethodsOf(resource map[string]any, path string) []domain.Endpoint {
	shared := ramlParameters(resource, "path")

	names := make([]string, 0, len(resource))
	for k := range resource {
		if _, ok := ramlMethods[strings.ToLower(k)]; ok {
			names = append(names, strings.ToLower(k))
		}
	}
	sort.Strings(names)

	var endpoints []domain.Endpoint
	for _, method := range names {
		endpoint := domain.Endpoint{
			Path:       path,
			Method:     strings.ToUpper(method),
			Parameters: append([]domain.Parameter(nil), shared...),
		}
		if opNode, ok := asMap(resource[method]); ok {
			endpoint.Summary = ramlSummary(opNode)
			endpoint.Parameters = append(endpoint.Parameters, ramlParameters(opNode, "query")...)
			endpoint.ResponseCodes = responseCodes(opNode["responses"])
		}
		endpoints = append(endpoints, endpoint)
	}
	return endpoints
}

func ramlSummary(opNode map[string]any) string {
	if s := asString(opNode["displayName"]); s != "" {
		return s
	}
	return firstLine(asString(opNode["description"]))
}

// ramlParameters reads uriParameters or queryParameters depending on the
// location asked for. RAML parameters default to required for uri
// parameters and optional for query parameters.
func ramlParameters(node map[string]any, location string) []domain.Parameter {
	key := "queryParameters"
	defaultRequired := false
	if location == "path" {
		key = "uriParameters"
		defaultRequired = true
	}
	decl, ok := asMap(node[key])
	if !ok {
		return nil
	}

	names := make([]string, 0, len(decl))
	for name := range decl {
		names = append(names, name)
	}
	sort.Strings(names)

	var params []domain.Parameter
	for _, name := range names {
		required := defaultRequired
		if spec, ok := asMap(decl[name]); ok {
			if r, ok := spec["required"].(bool); ok {
				required = r
			}
		}
		params = append(params, domain.Parameter{
			Name:     name,
			Location: location,
			Required: required,
		})
	}
	return params
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
