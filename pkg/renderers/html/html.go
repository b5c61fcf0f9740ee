package html

import (
	"bytes"
	"context"
	"fmt"
	stdhtml "html"
	"io/fs"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formadvisor/pkg/render"
	"github.com/goliatone/go-formadvisor/pkg/schema"
	"github.com/goliatone/go-formadvisor/pkg/session"
)

// Name is the toolkit name registered with render.Registry.
const Name = "html"

// ContentType is the media type of rendered output.
const ContentType = "text/html; charset=utf-8"

// Option configures the toolkit.
type Option func(*Toolkit)

// WithTemplates replaces the built-in templates. The filesystem must carry
// the same file names as TemplatesFS.
func WithTemplates(files fs.FS) Option {
	return func(t *Toolkit) {
		if files != nil {
			t.templates = files
		}
	}
}

// WithPolicy replaces the sanitising policy applied to schema text and
// messages before they are templated.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(t *Toolkit) {
		if policy != nil {
			t.policy = policy
		}
	}
}

// Toolkit renders fields as HTML fragments with pongo2 templates.
type Toolkit struct {
	templates fs.FS
	policy    *bluemonday.Policy
	set       *pongo2.TemplateSet

	mu    sync.RWMutex
	cache map[string]*pongo2.Template
}

// New builds an HTML toolkit.
func New(options ...Option) (*Toolkit, error) {
	t := &Toolkit{
		templates: TemplatesFS(),
		policy:    bluemonday.StrictPolicy(),
		cache:     make(map[string]*pongo2.Template),
	}
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
	t.set = pongo2.NewSet("formadvisor-html", pongo2.NewFSLoader(t.templates))

	for _, name := range []string{"input.tmpl", "textarea.tmpl", "select.tmpl", "radio.tmpl", "checkbox.tmpl", "form.tmpl"} {
		if _, err := t.template(name); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Name implements render.Toolkit.
func (t *Toolkit) Name() string {
	return Name
}

// Strategy implements render.Toolkit.
func (t *Toolkit) Strategy(ft schema.FieldType) render.Strategy {
	switch ft {
	case schema.FieldTypeText:
		return t.widget("input.tmpl", "text")
	case schema.FieldTypeEmail:
		return t.widget("input.tmpl", "email")
	case schema.FieldTypeNumber:
		return t.widget("input.tmpl", "number")
	case schema.FieldTypeDate:
		return t.widget("input.tmpl", "date")
	case schema.FieldTypeTextarea:
		return t.widget("textarea.tmpl", "")
	case schema.FieldTypeSelect:
		return t.widget("select.tmpl", "")
	case schema.FieldTypeRadio:
		return t.widget("radio.tmpl", "")
	case schema.FieldTypeCheckbox:
		return t.widget("checkbox.tmpl", "")
	default:
		return nil
	}
}

// RenderOption tweaks a whole-form render.
type RenderOption func(*formConfig)

type formConfig struct {
	hidden []render.HiddenField
	errors []string
}

// WithHidden adds hidden inputs to the form.
func WithHidden(fields ...render.HiddenField) RenderOption {
	return func(cfg *formConfig) {
		cfg.hidden = append(cfg.hidden, fields...)
	}
}

// WithFormErrors adds form-level messages, for example from
// render.MapErrorPayload.
func WithFormErrors(messages ...string) RenderOption {
	return func(cfg *formConfig) {
		cfg.errors = render.MergeFormErrors(cfg.errors, messages...)
	}
}

// Render paints a complete form from the given field states.
func (t *Toolkit) Render(ctx context.Context, form schema.FormSchema, states []session.FieldState, options ...RenderOption) ([]byte, error) {
	cfg := formConfig{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	dispatcher, err := render.NewDispatcherFor(t)
	if err != nil {
		return nil, err
	}
	fragments, err := dispatcher.DispatchAll(ctx, states)
	if err != nil {
		return nil, err
	}
	rendered := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		rendered = append(rendered, string(fragment.Content))
	}

	hidden := make([]map[string]any, 0, len(cfg.hidden))
	for _, field := range render.SortHidden(cfg.hidden) {
		hidden = append(hidden, map[string]any{"name": field.Name, "value": field.Value})
	}
	formErrors := make([]string, 0, len(cfg.errors))
	for _, message := range cfg.errors {
		formErrors = append(formErrors, t.plain(message))
	}
	submit := strings.TrimSpace(form.SubmitLabel)
	if submit == "" {
		submit = "Submit"
	}

	return t.execute("form.tmpl", pongo2.Context{
		"form": map[string]any{
			"id":           form.ID,
			"title":        t.plain(form.Title),
			"description":  t.plain(form.Description),
			"submit_label": t.plain(submit),
			"errors":       formErrors,
			"hidden":       hidden,
		},
		"fragments": rendered,
	})
}

// RenderSession paints the current state of a session, adding the session
// id as a hidden input.
func (t *Toolkit) RenderSession(ctx context.Context, s *session.Session, options ...RenderOption) ([]byte, error) {
	options = append([]RenderOption{WithHidden(render.Hidden("_session", s.ID()))}, options...)
	return t.Render(ctx, s.Validator().Schema(), s.States(), options...)
}

func (t *Toolkit) widget(name, inputType string) render.Strategy {
	return render.StrategyFunc(func(_ context.Context, field render.Instruction) ([]byte, error) {
		return t.execute(name, pongo2.Context{
			"field":      t.fieldContext(field),
			"input_type": inputType,
		})
	})
}

func (t *Toolkit) fieldContext(field render.Instruction) map[string]any {
	options := make([]map[string]any, 0, len(field.Options))
	for _, opt := range field.Options {
		options = append(options, map[string]any{
			"value":    opt.Value,
			"label":    t.plain(opt.Label),
			"selected": field.Selected(opt.Value),
		})
	}
	findings := make([]map[string]any, 0, len(field.Findings))
	for _, f := range field.Findings {
		findings = append(findings, map[string]any{
			"severity":   string(f.Severity),
			"message":    t.plain(f.Message),
			"confidence": strconv.FormatFloat(f.Confidence, 'f', -1, 64),
		})
	}
	return map[string]any{
		"id":          field.FieldID,
		"type":        string(field.Type),
		"widget":      field.Widget,
		"label":       t.plain(field.Label),
		"placeholder": t.plain(field.Placeholder),
		"required":    field.Required,
		"value":       valueString(field.Value),
		"checked":     field.Checked(),
		"error":       t.plain(field.Error),
		"pending":     field.Pending,
		"phase":       string(field.Phase),
		"options":     options,
		"findings":    findings,
	}
}

// plain strips markup from s. The result is unescaped again because pongo2
// escapes on output.
func (t *Toolkit) plain(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return stdhtml.UnescapeString(t.policy.Sanitize(s))
}

func (t *Toolkit) execute(name string, data pongo2.Context) ([]byte, error) {
	tmpl, err := t.template(name)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(data, &buf); err != nil {
		return nil, fmt.Errorf("html: execute %q: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (t *Toolkit) template(name string) (*pongo2.Template, error) {
	t.mu.RLock()
	tmpl, ok := t.cache[name]
	t.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if tmpl, ok := t.cache[name]; ok {
		return tmpl, nil
	}
	tmpl, err := t.set.FromFile(name)
	if err != nil {
		return nil, fmt.Errorf("html: load template %q: %w", name, err)
	}
	t.cache[name] = tmpl
	return tmpl, nil
}

func valueString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(time.DateOnly)
	default:
		return fmt.Sprint(v)
	}
}
