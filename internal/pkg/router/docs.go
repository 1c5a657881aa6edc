package router

import (
	"context"
	"fmt"
	"regexp"

	"github.com/getkin/kin-openapi/openapi3"
)

var fiberParam = regexp.MustCompile(`:([A-Za-z0-9_]+)`)

// LoadOpenAPI loads and validates the OpenAPI document served under
// /docs/api/v1. A broken document fails startup instead of the docs page.
func LoadOpenAPI(path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return doc, nil
}

// OpenAPIPath converts a fiber route ("/billing/:provider") to its OpenAPI
// form ("/billing/{provider}").
func OpenAPIPath(route string) string {
	return fiberParam.ReplaceAllString(route, "{$1}")
}
