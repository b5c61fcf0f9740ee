package openapi_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formadvisor/pkg/openapi"
	"github.com/goliatone/go-formadvisor/pkg/schema"
	"github.com/goliatone/go-formadvisor/pkg/validation"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func loadContact(t *testing.T) *openapi.Document {
	t.Helper()
	raw, err := os.ReadFile("testdata/contact.yaml")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	doc, err := openapi.Parse(context.Background(), raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestOperationsSortedByID(t *testing.T) {
	t.Parallel()

	doc := loadContact(t)
	var ids []string
	for _, op := range doc.Operations() {
		ids = append(ids, op.ID)
	}
	if diff := cmp.Diff([]string{"createContact", "getContact"}, ids); diff != "" {
		t.Fatalf("operations mismatch (-want +got):\n%s", diff)
	}
}

func TestFormSchemaFromOperation(t *testing.T) {
	t.Parallel()

	form, err := loadContact(t).FormSchema("createContact")
	if err != nil {
		t.Fatalf("form schema: %v", err)
	}

	want := schema.FormSchema{
		ID:          "createContact",
		Title:       "Contact us",
		Description: "We reply within two days.",
		SubmitLabel: "Send",
		Fields: []schema.FieldDefinition{
			{ID: "name", Type: schema.FieldTypeText, Label: "Name", Placeholder: "Ada Lovelace", Required: true,
				Constraints: &schema.Constraints{MinLength: intPtr(2), MaxLength: intPtr(80)}},
			{ID: "email", Type: schema.FieldTypeEmail, Label: "Email", Required: true},
			{ID: "age", Type: schema.FieldTypeNumber, Label: "Age",
				Constraints: &schema.Constraints{Min: floatPtr(13), Max: floatPtr(120)}},
			{ID: "birthday", Type: schema.FieldTypeDate, Label: "Birthday"},
			{ID: "contactMethod", Type: schema.FieldTypeRadio, Label: "Contact method", Options: []schema.Option{
				{Value: "email", Label: "Email"},
				{Value: "phone", Label: "Phone"},
			}},
			{ID: "message", Type: schema.FieldTypeTextarea, Label: "Your message"},
			{ID: "newsletter", Type: schema.FieldTypeCheckbox, Label: "Newsletter"},
			{ID: "postcode", Type: schema.FieldTypeText, Label: "Postcode",
				Constraints: &schema.Constraints{Pattern: "[0-9]{5}"}},
			{ID: "topic", Type: schema.FieldTypeSelect, Label: "Topic", Required: true, Options: []schema.Option{
				{Value: "sales", Label: "Sales team"},
				{Value: "support", Label: "Support desk"},
			}},
		},
	}
	if diff := cmp.Diff(want, form); diff != "" {
		t.Fatalf("form mismatch (-want +got):\n%s", diff)
	}

	v, err := validation.Compile(form)
	if err != nil {
		t.Fatalf("derived schema must compile: %v", err)
	}
	outcome, err := v.Check("postcode", "1234")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if outcome.Valid || outcome.Rule != validation.RulePattern {
		t.Fatalf("expected pattern failure, got %+v", outcome)
	}
}

func TestFormSchemaErrors(t *testing.T) {
	t.Parallel()

	doc := loadContact(t)
	if _, err := doc.FormSchema("getContact"); !errors.Is(err, openapi.ErrNoRequestBody) {
		t.Fatalf("expected ErrNoRequestBody, got %v", err)
	}
	if _, err := doc.FormSchema("missing"); !errors.Is(err, openapi.ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}
}

func TestParseRejectsEmptyDocuments(t *testing.T) {
	t.Parallel()

	if _, err := openapi.Parse(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
	raw := []byte(`{"openapi":"3.0.3","info":{"title":"x","version":"1"},"paths":{}}`)
	if _, err := openapi.Parse(context.Background(), raw); !errors.Is(err, openapi.ErrNoOperations) {
		t.Fatalf("expected ErrNoOperations, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	doc, err := openapi.Load(context.Background(), nil, schema.SourceFromFile("testdata/contact.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := doc.Operation("createContact"); err != nil {
		t.Fatalf("operation: %v", err)
	}
}

func TestLabel(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"contact_method": "Contact method",
		"contactMethod":  "Contact method",
		"first-name":     "First name",
		"address2":       "Address 2",
		"email":          "Email",
		"":               "",
	}
	for in, want := range tests {
		if got := openapi.Label(in); got != want {
			t.Errorf("Label(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{name: "json openapi", raw: `{"openapi":"3.0.3"}`, want: true},
		{name: "json swagger", raw: `{"swagger":"2.0"}`, want: true},
		{name: "yaml openapi", raw: "# api\nopenapi: 3.1.0\ninfo: {}", want: true},
		{name: "native json", raw: `{"id":"contact","fields":[]}`, want: false},
		{name: "native yaml", raw: "id: contact\ntitle: openapi: not a key", want: false},
		{name: "empty", raw: "  ", want: false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := openapi.Detect([]byte(tc.raw)); got != tc.want {
				t.Fatalf("Detect() = %v, want %v", got, tc.want)
			}
		})
	}
}
