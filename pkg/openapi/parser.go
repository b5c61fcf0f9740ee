package openapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formadvisor/pkg/schema"
)

var (
	// ErrNoOperations is returned when a document declares no operations.
	ErrNoOperations = errors.New("openapi: document does not contain any operations")
	// ErrOperationNotFound is returned for an unknown operation id.
	ErrOperationNotFound = errors.New("openapi: operation not found")
	// ErrNoRequestBody is returned when an operation has no object request body.
	ErrNoRequestBody = errors.New("openapi: operation has no object request body")
	// ErrNotObject is returned when a schema has no object properties to map.
	ErrNotObject = errors.New("openapi: schema is not an object")
)

// requestMediaTypes lists the body encodings inspected, in preference order.
var requestMediaTypes = []string{
	"application/json",
	"application/x-www-form-urlencoded",
	"multipart/form-data",
}

// Operation wraps one OpenAPI operation.
type Operation struct {
	ID          string
	Method      string
	Path        string
	Summary     string
	Description string

	op *openapi3.Operation
}

// Document is a parsed and validated OpenAPI document.
type Document struct {
	spec       *openapi3.T
	operations []Operation
}

// ParseOption configures Parse.
type ParseOption func(*parseOptions)

type parseOptions struct {
	validate bool
}

// WithoutValidation skips document validation after loading.
func WithoutValidation() ParseOption {
	return func(o *parseOptions) {
		o.validate = false
	}
}

// Parse loads an OpenAPI document from JSON or YAML bytes.
func Parse(ctx context.Context, raw []byte, options ...ParseOption) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	opts := parseOptions{validate: true}
	for _, opt := range options {
		if opt != nil {
			opt(&opts)
		}
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if opts.validate {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi: validate: %w", err)
		}
	}

	doc := &Document{spec: spec, operations: collectOperations(spec)}
	if len(doc.operations) == 0 {
		return nil, ErrNoOperations
	}
	return doc, nil
}

// Load fetches src through loader and parses it. A nil loader reads local
// files only.
func Load(ctx context.Context, loader *schema.Loader, src schema.Source, options ...ParseOption) (*Document, error) {
	if loader == nil {
		loader = schema.NewLoader()
	}
	raw, err := loader.Document(ctx, src)
	if err != nil {
		return nil, err
	}
	return Parse(ctx, raw.Raw(), options...)
}

// Operations returns every operation sorted by id.
func (d *Document) Operations() []Operation {
	return append([]Operation(nil), d.operations...)
}

// Operation looks up an operation by id.
func (d *Document) Operation(id string) (Operation, error) {
	for _, op := range d.operations {
		if op.ID == id {
			return op, nil
		}
	}
	return Operation{}, fmt.Errorf("%w: %q", ErrOperationNotFound, id)
}

// FormSchema converts the named operation into a FormSchema.
func (d *Document) FormSchema(operationID string) (schema.FormSchema, error) {
	op, err := d.Operation(operationID)
	if err != nil {
		return schema.FormSchema{}, err
	}
	return FormSchemaFromOperation(op)
}

func collectOperations(spec *openapi3.T) []Operation {
	if spec.Paths == nil {
		return nil
	}
	var out []Operation
	for path, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for method, operation := range item.Operations() {
			if operation == nil {
				continue
			}
			method = strings.ToUpper(method)
			id := operation.OperationID
			if id == "" {
				id = strings.ToLower(method) + ":" + path
			}
			out = append(out, Operation{
				ID:          id,
				Method:      method,
				Path:        path,
				Summary:     operation.Summary,
				Description: operation.Description,
				op:          operation,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// requestSchema picks the body schema for the first supported media type.
func (o Operation) requestSchema() *openapi3.Schema {
	if o.op == nil || o.op.RequestBody == nil || o.op.RequestBody.Value == nil {
		return nil
	}
	content := o.op.RequestBody.Value.Content
	for _, mediaType := range requestMediaTypes {
		if mt := content.Get(mediaType); mt != nil && mt.Schema != nil && mt.Schema.Value != nil {
			return mt.Schema.Value
		}
	}
	keys := make([]string, 0, len(content))
	for key := range content {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if mt := content[key]; mt != nil && mt.Schema != nil && mt.Schema.Value != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

// Detect reports whether raw looks like an OpenAPI or Swagger document rather
// than a native form schema.
func Detect(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	if trimmed[0] == '{' {
		var payload map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			return false
		}
		_, isOpenAPI := payload["openapi"]
		_, isSwagger := payload["swagger"]
		return isOpenAPI || isSwagger
	}
	for _, line := range strings.Split(string(trimmed), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "openapi:") || strings.HasPrefix(line, "swagger:") {
			return true
		}
	}
	return false
}
