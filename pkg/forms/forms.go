package forms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-formadvisor/pkg/jsonschema"
	"github.com/goliatone/go-formadvisor/pkg/openapi"
	"github.com/goliatone/go-formadvisor/pkg/render"
	"github.com/goliatone/go-formadvisor/pkg/renderers/html"
	"github.com/goliatone/go-formadvisor/pkg/schema"
	"github.com/goliatone/go-formadvisor/pkg/session"
	"github.com/goliatone/go-formadvisor/pkg/validation"
)

const defaultToolkitName = html.Name

var (
	// ErrNoSource is returned when a request names neither a source nor a schema.
	ErrNoSource = errors.New("forms: source or schema is required")
	// ErrOperationRequired is returned for OpenAPI sources without an operation id.
	ErrOperationRequired = errors.New("forms: operation id is required for OpenAPI sources")
)

// Option configures a Service.
type Option func(*Service)

// WithLoader sets the loader used to fetch sources.
func WithLoader(loader *schema.Loader) Option {
	return func(s *Service) {
		s.loader = loader
	}
}

// WithCache shares a validator cache between services.
func WithCache(cache *validation.Cache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithRegistry sets the toolkit registry used by Render.
func WithRegistry(registry *render.Registry) Option {
	return func(s *Service) {
		s.registry = registry
	}
}

// WithDefaultToolkit names the toolkit used when Render receives "".
func WithDefaultToolkit(name string) Option {
	return func(s *Service) {
		s.defaultToolkit = name
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithSessionOptions appends options applied to every session opened by the
// service.
func WithSessionOptions(options ...session.Option) Option {
	return func(s *Service) {
		s.sessionOptions = append(s.sessionOptions, options...)
	}
}

// Service resolves schemas from sources and hands out compiled validators,
// sessions, and rendered output. Missing dependencies are filled with the
// built-in implementations: a file loader, a fresh cache, and a registry
// holding the HTML toolkit.
type Service struct {
	loader         *schema.Loader
	cache          *validation.Cache
	registry       *render.Registry
	defaultToolkit string
	logger         *slog.Logger
	sessionOptions []session.Option
	initialiseErr  error
}

// New constructs a Service.
func New(options ...Option) *Service {
	s := &Service{defaultToolkit: defaultToolkitName}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	s.applyDefaults()
	return s
}

// Request identifies the form to work with.
type Request struct {
	// Source locates a native schema document or an OpenAPI document.
	// Optional when Schema is supplied.
	Source schema.Source

	// Schema bypasses loading.
	Schema *schema.FormSchema

	// OperationID selects the operation of an OpenAPI source.
	OperationID string
}

// Resolve returns the FormSchema described by req.
func (s *Service) Resolve(ctx context.Context, req Request) (schema.FormSchema, error) {
	if err := ctx.Err(); err != nil {
		return schema.FormSchema{}, err
	}
	if req.Schema != nil {
		return req.Schema.Clone(), nil
	}
	if req.Source == nil {
		return schema.FormSchema{}, ErrNoSource
	}

	doc, err := s.loader.Document(ctx, req.Source)
	if err != nil {
		return schema.FormSchema{}, fmt.Errorf("forms: load %s: %w", req.Source.Location(), err)
	}

	raw := doc.Raw()
	switch {
	case openapi.Detect(raw):
		return s.fromOpenAPI(ctx, raw, req.OperationID)
	case jsonschema.Detect(raw):
		return jsonschema.Parse(raw)
	default:
		return doc.Decode()
	}
}

func (s *Service) fromOpenAPI(ctx context.Context, raw []byte, operationID string) (schema.FormSchema, error) {
	if operationID == "" {
		return schema.FormSchema{}, ErrOperationRequired
	}
	spec, err := openapi.Parse(ctx, raw)
	if err != nil {
		return schema.FormSchema{}, err
	}
	form, err := spec.FormSchema(operationID)
	if err != nil {
		return schema.FormSchema{}, err
	}
	s.logger.Debug("form derived from openapi operation",
		"operation", operationID,
		"fields", len(form.Fields),
	)
	return form, nil
}

// Validator resolves req and returns its compiled validator. Validators are
// cached by schema fingerprint.
func (s *Service) Validator(ctx context.Context, req Request) (*validation.Validator, error) {
	form, err := s.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	v, err := s.cache.Get(form)
	if err != nil {
		return nil, fmt.Errorf("forms: compile %q: %w", form.ID, err)
	}
	return v, nil
}

// Session opens a new session for req. Per-call options are applied after the
// service-wide ones.
func (s *Service) Session(ctx context.Context, req Request, options ...session.Option) (*session.Session, error) {
	v, err := s.Validator(ctx, req)
	if err != nil {
		return nil, err
	}
	opts := make([]session.Option, 0, len(s.sessionOptions)+len(options)+1)
	opts = append(opts, session.WithLogger(s.logger))
	opts = append(opts, s.sessionOptions...)
	opts = append(opts, options...)
	return session.New(v, opts...), nil
}

// Render paints every field of states with the named toolkit and
// concatenates the fragments. An empty name selects the default toolkit.
func (s *Service) Render(ctx context.Context, toolkit string, states []session.FieldState) ([]byte, error) {
	if s.initialiseErr != nil {
		return nil, s.initialiseErr
	}
	if toolkit == "" {
		toolkit = s.defaultToolkit
	}
	dispatcher, err := s.registry.Dispatcher(toolkit)
	if err != nil {
		return nil, fmt.Errorf("forms: toolkit %q: %w", toolkit, err)
	}
	fragments, err := dispatcher.DispatchAll(ctx, states)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for _, fragment := range fragments {
		buf.Write(fragment.Content)
	}
	return buf.Bytes(), nil
}

// Toolkits lists the registered toolkit names.
func (s *Service) Toolkits() []string {
	return s.registry.List()
}

func (s *Service) applyDefaults() {
	if s.loader == nil {
		s.loader = schema.NewLoader()
	}
	if s.cache == nil {
		s.cache = validation.NewCache()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.registry == nil {
		s.registry = render.NewRegistry()
		toolkit, err := html.New()
		if err != nil {
			s.initialiseErr = fmt.Errorf("forms: default toolkit: %w", err)
			return
		}
		s.registry.MustRegister(toolkit)
	}
}
