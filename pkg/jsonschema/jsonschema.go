// Package jsonschema derives form schemas from JSON Schema documents that
// describe a flat object. Property mapping follows the OpenAPI source, since
// OpenAPI schema objects are a JSON Schema dialect.
package jsonschema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formadvisor/pkg/openapi"
	"github.com/goliatone/go-formadvisor/pkg/schema"
)

const defaultFormID = "form"

// ErrNotJSONSchema is returned for documents that do not look like a JSON
// Schema object.
var ErrNotJSONSchema = errors.New("jsonschema: document is not a JSON Schema object")

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// Detect reports whether raw is a JSON Schema document: it declares $schema,
// or it has top-level properties and no native fields list.
func Detect(raw []byte) bool {
	doc, err := decode(raw)
	if err != nil {
		return false
	}
	return isJSONSchema(doc)
}

// Parse decodes a JSON or YAML JSON Schema document into a FormSchema. The
// form id comes from $id (its last path segment without extensions), then
// from the title, then defaults to "form".
func Parse(raw []byte) (schema.FormSchema, error) {
	doc, err := decode(raw)
	if err != nil {
		return schema.FormSchema{}, err
	}
	if !isJSONSchema(doc) {
		return schema.FormSchema{}, ErrNotJSONSchema
	}

	normalised, err := json.Marshal(doc)
	if err != nil {
		return schema.FormSchema{}, fmt.Errorf("jsonschema: %w", err)
	}
	var root openapi3.Schema
	if err := root.UnmarshalJSON(normalised); err != nil {
		return schema.FormSchema{}, fmt.Errorf("jsonschema: decode: %w", err)
	}

	form, err := openapi.FormSchemaFromSchema(formID(doc), &root)
	if err != nil {
		return schema.FormSchema{}, fmt.Errorf("jsonschema: %w", err)
	}
	return form, nil
}

func decode(raw []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("jsonschema: document payload is empty")
	}
	// YAML is a superset of JSON, so one decoder serves both.
	var doc map[string]any
	if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("jsonschema: decode: %w", err)
	}
	return doc, nil
}

func isJSONSchema(doc map[string]any) bool {
	if _, ok := doc["$schema"]; ok {
		return true
	}
	_, hasProperties := doc["properties"]
	_, hasFields := doc["fields"]
	return hasProperties && !hasFields
}

func formID(doc map[string]any) string {
	if id, ok := doc["$id"].(string); ok && id != "" {
		base := path.Base(strings.TrimSuffix(id, "#"))
		if i := strings.Index(base, "."); i > 0 {
			base = base[:i]
		}
		if slug := slugify(base); slug != "" {
			return slug
		}
	}
	if title, ok := doc["title"].(string); ok {
		if slug := slugify(title); slug != "" {
			return slug
		}
	}
	return defaultFormID
}

func slugify(s string) string {
	return strings.Trim(slugSeparators.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
