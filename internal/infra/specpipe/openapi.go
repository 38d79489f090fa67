package specpipe

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"exmcp/internal/domain"
)

// methodOrder fixes the per-path method enumeration so the endpoint
// inventory is deterministic.
var methodOrder = []string{"get", "post", "put", "patch", "delete", "head", "options", "trace"}

// decodeDocument parses a YAML or JSON specification document into a
// generic map. JSON gets the native decoder; everything else goes through
// YAML, which also accepts JSON bodies with a misleading extension.
func decodeDocument(name string, data []byte) (map[string]any, error) {
	if strings.EqualFold(path.Ext(name), ".json") {
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// hasOpenAPIKey reports whether the document declares itself OpenAPI or
// Swagger at the top level.
func hasOpenAPIKey(doc map[string]any) bool {
	_, openapi := doc["openapi"]
	_, swagger := doc["swagger"]
	return openapi || swagger
}

// parseOpenAPI derives the endpoint inventory from an OpenAPI 3 or
// Swagger 2 document. Only declared content is extracted; nothing is
// inferred.
func parseOpenAPI(name string, data []byte) (domain.ParsedSpecification, error) {
	const op = "specpipe.parse_openapi"

	doc, err := decodeDocument(name, data)
	if err != nil {
		return domain.ParsedSpecification{}, domain.E(domain.CodeMalformedSpec, op,
			fmt.Sprintf("parse %q", name), err)
	}
	if !hasOpenAPIKey(doc) {
		return domain.ParsedSpecification{}, domain.E(domain.CodeMalformedSpec, op,
			fmt.Sprintf("%q has no openapi or swagger declaration", name), nil)
	}

	spec := domain.ParsedSpecification{
		Format:     domain.SpecFormatOpenAPI,
		SourceFile: name,
	}

	if info, ok := asMap(doc["info"]); ok {
		spec.Title = asString(info["title"])
		spec.Version = asString(info["version"])
	}
	spec.Servers = openAPIServers(doc)

	paths, ok := asMap(doc["paths"])
	if !ok {
		return spec, nil
	}

	pathKeys := make([]string, 0, len(paths))
	for p := range paths {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	for _, p := range pathKeys {
		item, ok := asMap(paths[p])
		if !ok {
			continue
		}
		shared := parameterList(item["parameters"])
		for _, method := range methodOrder {
			opNode, ok := asMap(item[method])
			if !ok {
				continue
			}
			endpoint := domain.Endpoint{
				Path:          p,
				Method:        strings.ToUpper(method),
				Summary:       operationSummary(opNode),
				Parameters:    append(append([]domain.Parameter(nil), shared...), parameterList(opNode["parameters"])...),
				ResponseCodes: responseCodes(opNode["responses"]),
			}
			spec.Endpoints = append(spec.Endpoints, endpoint)
		}
	}
	return spec, nil
}

func openAPIServers(doc map[string]any) []string {
	var servers []string
	if list, ok := doc["servers"].([]any); ok {
		for _, s := range list {
			if m, ok := asMap(s); ok {
				if u := asString(m["url"]); u != "" {
					servers = append(servers, u)
				}
			}
		}
		return servers
	}
	// Swagger 2 spells the base URL as host + basePath.
	host := asString(doc["host"])
	if host == "" {
		return nil
	}
	scheme := "https"
	if schemes, ok := doc["schemes"].([]any); ok && len(schemes) > 0 {
		if s := asString(schemes[0]); s != "" {
			scheme = s
		}
	}
	return []string{scheme + "://" + host + asString(doc["basePath"])}
}

func operationSummary(opNode map[string]any) string {
	if s := asString(opNode["summary"]); s != "" {
		return s
	}
	return asString(opNode["description"])
}

func parameterList(node any) []domain.Parameter {
	list, ok := node.([]any)
	if !ok {
		return nil
	}
	var params []domain.Parameter
	for _, raw := range list {
		m, ok := asMap(raw)
		if !ok {
			continue
		}
		name := asString(m["name"])
		if name == "" {
			continue
		}
		required, _ := m["required"].(bool)
		params = append(params, domain.Parameter{
			Name:     name,
			Location: asString(m["in"]),
			Required: required,
		})
	}
	return params
}

func responseCodes(node any) []int {
	responses, ok := asMap(node)
	if !ok {
		return nil
	}
	var codes []int
	for key := range responses {
		if code, err := strconv.Atoi(key); err == nil {
			codes = append(codes, code)
		}
	}
	sort.Ints(codes)
	return codes
}

// asMap normalizes both mapping shapes the YAML decoder produces; keys
// that are not strings (unquoted response codes, RAML version numbers)
// are stringified.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[asString(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case int:
		return strconv.Itoa(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}
