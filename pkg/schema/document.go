package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document wraps a raw schema payload and its origin.
type Document struct {
	source Source
	format Format
	raw    []byte
}

// NewDocument constructs a Document wrapper while validating the inputs.
func NewDocument(src Source, raw []byte) (Document, error) {
	if src == nil {
		return Document{}, errors.New("schema: source is required")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Document{}, errors.New("schema: raw document is empty")
	}

	clone := append([]byte(nil), raw...)
	return Document{source: src, format: FormatOf(src), raw: clone}, nil
}

// Source returns the origin metadata for the document.
func (d Document) Source() Source {
	return d.source
}

// Raw returns a copy of the payload.
func (d Document) Raw() []byte {
	return append([]byte(nil), d.raw...)
}

// Location returns the string identifier for the origin.
func (d Document) Location() string {
	if d.source == nil {
		return ""
	}
	return d.source.Location()
}

// Decode parses the payload into a FormSchema. JSON documents are decoded
// strictly; YAML documents reject unknown keys as well.
func (d Document) Decode() (FormSchema, error) {
	var out FormSchema
	switch d.format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(d.raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&out); err != nil {
			return FormSchema{}, fmt.Errorf("schema: decode %s: %w", d.Location(), err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(d.raw))
		dec.KnownFields(true)
		if err := dec.Decode(&out); err != nil {
			return FormSchema{}, fmt.Errorf("schema: decode %s: %w", d.Location(), err)
		}
	}
	return out, nil
}
