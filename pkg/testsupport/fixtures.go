package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formadvisor/pkg/schema"
	"github.com/goliatone/go-formadvisor/pkg/validation"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// ContactSchema returns a schema exercising every field type.
func ContactSchema() schema.FormSchema {
	return schema.FormSchema{
		ID:          "contact",
		Title:       "Contact us",
		Description: "We reply within two days.",
		SubmitLabel: "Send",
		Fields: []schema.FieldDefinition{
			{ID: "name", Type: schema.FieldTypeText, Label: "Name", Placeholder: "Ada Lovelace", Required: true,
				Constraints: &schema.Constraints{MinLength: intPtr(2), MaxLength: intPtr(80)}},
			{ID: "email", Type: schema.FieldTypeEmail, Label: "Email", Required: true},
			{ID: "age", Type: schema.FieldTypeNumber, Label: "Age",
				Constraints: &schema.Constraints{Min: floatPtr(13), Max: floatPtr(120)}},
			{ID: "topic", Type: schema.FieldTypeSelect, Label: "Topic", Required: true, Options: []schema.Option{
				{Value: "sales", Label: "Sales"},
				{Value: "support", Label: "Support"},
			}},
			{ID: "contact_method", Type: schema.FieldTypeRadio, Label: "Preferred contact", Options: []schema.Option{
				{Value: "email", Label: "Email"},
				{Value: "phone", Label: "Phone"},
			}},
			{ID: "message", Type: schema.FieldTypeTextarea, Label: "Message", Required: true},
			{ID: "birthday", Type: schema.FieldTypeDate, Label: "Birthday"},
			{ID: "newsletter", Type: schema.FieldTypeCheckbox, Label: "Subscribe to the newsletter", Required: true},
		},
	}
}

// MustCompile compiles s or fails the test.
func MustCompile(t testing.TB, s schema.FormSchema) *validation.Validator {
	t.Helper()

	v, err := validation.Compile(s)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return v
}

// MustLoadSchema reads a JSON or YAML schema fixture.
func MustLoadSchema(t testing.TB, path string) schema.FormSchema {
	t.Helper()

	s, err := schema.LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	return s
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t testing.TB, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t testing.TB, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
