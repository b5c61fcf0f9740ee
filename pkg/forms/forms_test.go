package forms_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formadvisor/pkg/forms"
	"github.com/goliatone/go-formadvisor/pkg/openapi"
	"github.com/goliatone/go-formadvisor/pkg/render"
	"github.com/goliatone/go-formadvisor/pkg/renderers/tui"
	"github.com/goliatone/go-formadvisor/pkg/schema"
	"github.com/goliatone/go-formadvisor/pkg/testsupport"
	"github.com/goliatone/go-formadvisor/pkg/validation"
)

func fixture(name string) schema.Source {
	return schema.SourceFromFile(filepath.Join("testdata", name))
}

func TestResolveNativeAndOpenAPISources(t *testing.T) {
	t.Parallel()

	svc := forms.New()
	ctx := testsupport.Context()

	native, err := svc.Resolve(ctx, forms.Request{Source: fixture("contact.yaml")})
	if err != nil {
		t.Fatalf("resolve native: %v", err)
	}
	if diff := cmp.Diff([]string{"name", "email", "message"}, native.FieldIDs()); diff != "" {
		t.Fatalf("native fields mismatch (-want +got):\n%s", diff)
	}

	derived, err := svc.Resolve(ctx, forms.Request{Source: fixture("signup.json"), OperationID: "signup"})
	if err != nil {
		t.Fatalf("resolve openapi: %v", err)
	}
	if derived.Title != "Create account" {
		t.Fatalf("unexpected title %q", derived.Title)
	}
	if diff := cmp.Diff([]string{"age", "email"}, derived.FieldIDs()); diff != "" {
		t.Fatalf("derived fields mismatch (-want +got):\n%s", diff)
	}

	fromJSONSchema, err := svc.Resolve(ctx, forms.Request{Source: fixture("newsletter.schema.json")})
	if err != nil {
		t.Fatalf("resolve json schema: %v", err)
	}
	if fromJSONSchema.ID != "newsletter" || len(fromJSONSchema.Fields) != 4 {
		t.Fatalf("unexpected json schema form: %+v", fromJSONSchema)
	}
}

func TestResolveErrors(t *testing.T) {
	t.Parallel()

	svc := forms.New()
	ctx := testsupport.Context()

	tests := []struct {
		name string
		req  forms.Request
		want error
	}{
		{name: "no source", req: forms.Request{}, want: forms.ErrNoSource},
		{name: "openapi without operation", req: forms.Request{Source: fixture("signup.json")}, want: forms.ErrOperationRequired},
		{name: "unknown operation", req: forms.Request{Source: fixture("signup.json"), OperationID: "nope"}, want: openapi.ErrOperationNotFound},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := svc.Resolve(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestValidatorIsCachedByFingerprint(t *testing.T) {
	t.Parallel()

	cache := validation.NewCache()
	svc := forms.New(forms.WithCache(cache))
	ctx := testsupport.Context()

	first, err := svc.Validator(ctx, forms.Request{Source: fixture("contact.yaml")})
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	s := testsupport.ContactSchema()
	second, err := svc.Validator(ctx, forms.Request{Source: fixture("contact.yaml")})
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	if first != second {
		t.Fatal("expected the cached validator to be reused")
	}
	if _, err := svc.Validator(ctx, forms.Request{Schema: &s}); err != nil {
		t.Fatalf("validator from schema: %v", err)
	}
	if cache.Len() != 2 {
		t.Fatalf("expected 2 cached validators, got %d", cache.Len())
	}

	broken := schema.FormSchema{ID: "broken", Fields: []schema.FieldDefinition{{ID: "topic", Type: schema.FieldTypeSelect}}}
	if _, err := svc.Validator(ctx, forms.Request{Schema: &broken}); !errors.Is(err, validation.ErrMissingOptions) {
		t.Fatalf("expected ErrMissingOptions, got %v", err)
	}
}

func TestSessionAndRender(t *testing.T) {
	t.Parallel()

	registry := render.NewRegistry()
	registry.MustRegister(tui.New())
	svc := forms.New(
		forms.WithRegistry(registry),
		forms.WithDefaultToolkit(tui.Name),
		forms.WithSessionOptions(),
	)
	ctx := context.Background()

	s, err := svc.Session(ctx, forms.Request{Source: fixture("contact.yaml")})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	defer s.Close()

	if _, err := s.Set("email", "ada"); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, err := svc.Render(ctx, "", s.States())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	got := string(out)
	for _, want := range []string{"✓ Name: -", "✗ Email: ada", "Please enter a valid email address"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in output:\n%s", want, got)
		}
	}

	if _, err := svc.Render(ctx, "missing", s.States()); !errors.Is(err, render.ErrStrategyNotFound) {
		t.Fatalf("expected ErrStrategyNotFound, got %v", err)
	}
	if diff := cmp.Diff([]string{tui.Name}, svc.Toolkits()); diff != "" {
		t.Fatalf("toolkits mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultRegistryRendersHTML(t *testing.T) {
	t.Parallel()

	svc := forms.New()
	ctx := context.Background()
	s, err := svc.Session(ctx, forms.Request{Source: fixture("contact.yaml")})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	defer s.Close()

	out, err := svc.Render(ctx, "", s.States())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(out), `name="email"`) {
		t.Fatalf("expected email input in output:\n%s", out)
	}
}
