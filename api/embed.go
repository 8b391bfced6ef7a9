// Package api carries the OpenAPI description of the HTTP API.
package api

import _ "embed"

// OpenAPISpec holds the raw OpenAPI 3.0 document served at /api/docs/openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPISpec []byte
