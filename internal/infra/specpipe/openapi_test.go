package specpipe

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"exmcp/internal/domain"
)

const minimalOpenAPI = `openapi: 3.0.0
info:
  title: Payments API
  version: 1.2.0
servers:
  - url: https://api.acme.com/payments
paths:
  /payments:
    post:
      summary: Initiate a payment
      parameters:
        - name: Idempotency-Key
          in: header
          required: true
      responses:
        '201':
          description: created
        '400':
          description: bad request
`

func TestParseOpenAPIMinimalDocument(t *testing.T) {
	spec, err := parseOpenAPI("api.yaml", []byte(minimalOpenAPI))
	require.NoError(t, err)

	require.Equal(t, domain.SpecFormatOpenAPI, spec.Format)
	require.Equal(t, "Payments API", spec.Title)
	require.Equal(t, "1.2.0", spec.Version)
	require.Equal(t, []string{"https://api.acme.com/payments"}, spec.Servers)

	want := []domain.Endpoint{{
		Path:    "/payments",
		Method:  "POST",
		Summary: "Initiate a payment",
		Parameters: []domain.Parameter{
			{Name: "Idempotency-Key", Location: "header", Required: true},
		},
		ResponseCodes: []int{201, 400},
	}}
	require.Empty(t, cmp.Diff(want, spec.Endpoints))
}

func TestParseOpenAPIMergesPathLevelParameters(t *testing.T) {
	doc := `openapi: 3.0.0
info:
  title: Accounts
  version: "1.0"
paths:
  /accounts/{id}:
    parameters:
      - name: id
        in: path
        required: true
    get:
      summary: Fetch one account
      responses:
        200:
          description: ok
    delete:
      responses:
        204:
          description: gone
`
	spec, err := parseOpenAPI("api.yaml", []byte(doc))
	require.NoError(t, err)
	require.Len(t, spec.Endpoints, 2)

	// Fixed method order: get before delete.
	require.Equal(t, "GET", spec.Endpoints[0].Method)
	require.Equal(t, "DELETE", spec.Endpoints[1].Method)
	for _, e := range spec.Endpoints {
		require.Equal(t, []domain.Parameter{{Name: "id", Location: "path", Required: true}}, e.Parameters)
	}
	require.Equal(t, []int{200}, spec.Endpoints[0].ResponseCodes)
	require.Equal(t, []int{204}, spec.Endpoints[1].ResponseCodes)
}

func TestParseOpenAPISwagger2BaseURL(t *testing.T) {
	doc := `{
  "swagger": "2.0",
  "info": {"title": "Legacy", "version": "0.9"},
  "host": "legacy.acme.com",
  "basePath": "/v1",
  "schemes": ["https"],
  "paths": {"/things": {"get": {"responses": {"200": {"description": "ok"}}}}}
}`
	spec, err := parseOpenAPI("api.json", []byte(doc))
	require.NoError(t, err)
	require.Equal(t, []string{"https://legacy.acme.com/v1"}, spec.Servers)
	require.Len(t, spec.Endpoints, 1)
	require.Equal(t, "/things", spec.Endpoints[0].Path)
}

func TestParseOpenAPIMalformedDocument(t *testing.T) {
	_, err := parseOpenAPI("api.yaml", []byte("openapi: 3.0.0\n  bad:\nindent"))
	require.Error(t, err)
	require.True(t, domain.IsCode(err, domain.CodeMalformedSpec))
}

func TestParseOpenAPIMissingDeclaration(t *testing.T) {
	_, err := parseOpenAPI("api.yaml", []byte("title: not a spec"))
	require.Error(t, err)
	require.True(t, domain.IsCode(err, domain.CodeMalformedSpec))
}
