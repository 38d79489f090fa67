package server

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

var assetIDProperty = map[string]any{
	"type":        "string",
	"description": "Asset identifier as groupId/assetId or groupId/assetId/version",
}

var limitProperty = map[string]any{
	"type":        "integer",
	"description": "Maximum number of results to return",
}

func (s *Server) registerTools() {
	s.addTool("search_apis",
		"Search the Exchange catalog for APIs by name, description, or tag. "+
			"Returns ranked matches with their asset identifiers.",
		objectSchema(map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search term matched against name, description, and tags",
			},
			"category": map[string]any{
				"type":        "string",
				"description": "Optional category or tag filter, combined with the query",
			},
			"limit": limitProperty,
		}),
		s.handleSearchAPIs,
	)

	s.addTool("get_api_details",
		"Fetch full catalog metadata for one API asset, including its "+
			"versions, tags, and packaged files.",
		objectSchema(map[string]any{
			"asset_id": assetIDProperty,
		}, "asset_id"),
		s.handleAPIDetails,
	)

	s.addTool("find_apis_by_category",
		"List APIs carrying a category or tag, optionally narrowed by a "+
			"search term. Both filters must match.",
		objectSchema(map[string]any{
			"category": map[string]any{
				"type":        "string",
				"description": "Category or tag value, matched case-insensitively",
			},
			"query": map[string]any{
				"type":        "string",
				"description": "Optional search term combined with the category",
			},
			"limit": limitProperty,
		}, "category"),
		s.handleAPIsByCategory,
	)

	s.addTool("get_api_specification",
		"Download and parse an API's specification document (OpenAPI or "+
			"RAML). Returns the title, version, servers, and endpoint inventory.",
		objectSchema(map[string]any{
			"asset_id": assetIDProperty,
		}, "asset_id"),
		s.handleAPISpecification,
	)

	s.addTool("get_api_files",
		"List the packaged files of an API asset: classifiers, packaging, "+
			"main file, and download availability.",
		objectSchema(map[string]any{
			"asset_id": assetIDProperty,
		}, "asset_id"),
		s.handleAPIFiles,
	)

	s.addTool("analyze_api_endpoints",
		"Parse an API's specification and summarize its endpoints: method "+
			"distribution, parameter counts, and per-operation detail.",
		objectSchema(map[string]any{
			"asset_id": assetIDProperty,
		}, "asset_id"),
		s.handleAnalyzeEndpoints,
	)
}
