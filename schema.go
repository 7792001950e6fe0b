package schemathesis

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
)

// Schema is a resolved API schema. It is shared by every test bound to the
// same Parametrizer and is read-only once resolved.
type Schema struct {
	raw map[string]any
}

// NewSchema wraps a raw schema mapping.
func NewSchema(raw map[string]any) *Schema {
	return &Schema{raw: raw}
}

// RawSchema returns the mapping the schema was built from.
func (s *Schema) RawSchema() map[string]any {
	return s.raw
}

// Version returns the "swagger" or "openapi" version string, or "" if the
// document declares neither.
func (s *Schema) Version() string {
	if v, ok := s.raw["swagger"].(string); ok {
		return v
	}
	if v, ok := s.raw["openapi"].(string); ok {
		return v
	}
	return ""
}

// Operation is a single method on a single path of the schema.
type Operation struct {
	Method string
	Path   string
	ID     string
	Raw    map[string]any
}

// String returns "METHOD /path".
func (o Operation) String() string {
	return o.Method + " " + o.Path
}

var httpMethods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// Operations lists every operation under "paths", ordered by path and then
// by method.
func (s *Schema) Operations() []Operation {
	paths, _ := s.raw["paths"].(map[string]any)

	var ops []Operation
	for path, item := range paths {
		item, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, method := range httpMethods {
			raw, ok := item[method].(map[string]any)
			if !ok {
				continue
			}
			id, _ := raw["operationId"].(string)
			ops = append(ops, Operation{
				Method: strings.ToUpper(method),
				Path:   path,
				ID:     id,
				Raw:    raw,
			})
		}
	}

	slices.SortFunc(ops, func(a, b Operation) int {
		return cmp.Or(strings.Compare(a.Path, b.Path), strings.Compare(a.Method, b.Method))
	})
	return ops
}

// Document parses the schema into an OpenAPI 3 document. Swagger 2.0
// schemas are converted.
func (s *Schema) Document(ctx context.Context) (*openapi3.T, error) {
	data, err := json.Marshal(s.raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}

	version := s.Version()
	switch {
	case strings.HasPrefix(version, "2"):
		var doc2 openapi2.T
		if err := json.Unmarshal(data, &doc2); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
		}
		doc, err := openapi2conv.ToV3(&doc2)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
		}
		return doc, nil

	case strings.HasPrefix(version, "3"):
		loader := openapi3.NewLoader()
		loader.Context = ctx
		doc, err := loader.LoadFromData(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
		}
		return doc, nil

	default:
		return nil, fmt.Errorf("%w: unknown version %q", ErrInvalidSchema, version)
	}
}

// Validate checks the schema against the OpenAPI specification.
func (s *Schema) Validate(ctx context.Context) error {
	doc, err := s.Document(ctx)
	if err != nil {
		return err
	}
	if err := doc.Validate(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	return nil
}
