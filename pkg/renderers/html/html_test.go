package html_test

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-formadvisor/pkg/render"
	"github.com/goliatone/go-formadvisor/pkg/renderers/html"
	"github.com/goliatone/go-formadvisor/pkg/schema"
	"github.com/goliatone/go-formadvisor/pkg/session"
	"github.com/goliatone/go-formadvisor/pkg/testsupport"
)

func newToolkit(t *testing.T) *html.Toolkit {
	t.Helper()
	toolkit, err := html.New()
	if err != nil {
		t.Fatalf("new toolkit: %v", err)
	}
	return toolkit
}

func TestToolkitCoversEveryFieldType(t *testing.T) {
	t.Parallel()

	toolkit := newToolkit(t)
	if _, err := render.NewDispatcherFor(toolkit); err != nil {
		t.Fatalf("dispatcher: %v", err)
	}

	registry := render.NewRegistry()
	registry.MustRegister(toolkit)
	if _, err := registry.Dispatcher(html.Name); err != nil {
		t.Fatalf("registry dispatcher: %v", err)
	}
}

func TestRenderSession(t *testing.T) {
	t.Parallel()

	v := testsupport.MustCompile(t, testsupport.ContactSchema())
	sched := &testsupport.ManualScheduler{}
	s := session.New(v, session.WithScheduler(sched))
	defer s.Close()

	for id, value := range map[string]any{"email": "bob", "message": "hi", "topic": "support", "newsletter": true} {
		if _, err := s.Set(id, value); err != nil {
			t.Fatalf("set %s: %v", id, err)
		}
	}
	sched.FireAll()
	if err := s.Wait(testsupport.Context()); err != nil {
		t.Fatalf("wait: %v", err)
	}

	out, err := newToolkit(t).RenderSession(context.Background(), s, html.WithFormErrors("Server is busy", "Server is busy"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	page := string(out)

	for _, want := range []string{
		`<form id="contact" class="fa-form"`,
		`<h2 class="fa-form__title">Contact us</h2>`,
		`name="_session" value="` + s.ID() + `"`,
		`type="email" id="email" name="email" value="bob"`,
		`Please enter a valid email address`,
		`fa-advisory--error`,
		`fa-advisory--info" data-confidence="0.6">Brief content, consider adding more detail`,
		`<option value="support" selected>Support</option>`,
		`name="newsletter" value="on" checked`,
		`type="radio" name="contact_method" value="phone"`,
		`type="date" id="birthday"`,
		`<button type="submit">Send</button>`,
	} {
		if !strings.Contains(page, want) {
			t.Fatalf("expected %q in output:\n%s", want, page)
		}
	}
	if strings.Count(page, "Server is busy") != 1 {
		t.Fatalf("form errors should be deduplicated:\n%s", page)
	}
	if strings.Contains(page, `id="name-error"`) {
		t.Fatalf("untouched fields must not render errors:\n%s", page)
	}
}

func TestRenderSanitisesSchemaText(t *testing.T) {
	t.Parallel()

	form := schema.FormSchema{ID: "f", Title: "<b>Hi</b> & welcome", Fields: []schema.FieldDefinition{
		{ID: "bio", Type: schema.FieldTypeText, Label: `Bio<script>alert(1)</script>`},
	}}
	v := testsupport.MustCompile(t, form)
	s := session.New(v, session.WithScheduler(&testsupport.ManualScheduler{}))
	defer s.Close()

	out, err := newToolkit(t).Render(context.Background(), form, s.States())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	page := string(out)
	if strings.Contains(page, "<script") || strings.Contains(page, "<b>") {
		t.Fatalf("markup leaked into output:\n%s", page)
	}
	if !strings.Contains(page, "Hi &amp; welcome") {
		t.Fatalf("expected escaped title:\n%s", page)
	}
	if !strings.Contains(page, `<button type="submit">Submit</button>`) {
		t.Fatalf("expected default submit label:\n%s", page)
	}
}
