// Package formadvisor validates schema-driven forms. A FormSchema is compiled
// once into a Validator; sessions layer debounced, staleness-safe advisory
// checks on top of the synchronous structural verdicts, and submitters gate
// the final payload on both.
package formadvisor

import (
	"context"

	"github.com/goliatone/go-formadvisor/pkg/advisory"
	"github.com/goliatone/go-formadvisor/pkg/forms"
	"github.com/goliatone/go-formadvisor/pkg/schema"
	"github.com/goliatone/go-formadvisor/pkg/session"
	"github.com/goliatone/go-formadvisor/pkg/submission"
	"github.com/goliatone/go-formadvisor/pkg/validation"
)

// FormSchema aliases schema.FormSchema for callers that only import the root
// package.
type FormSchema = schema.FormSchema

// FieldDefinition aliases schema.FieldDefinition.
type FieldDefinition = schema.FieldDefinition

// Validator aliases the compiled structural validator.
type Validator = validation.Validator

// Session aliases the per-form advisory session.
type Session = session.Session

// FieldState aliases a session field snapshot.
type FieldState = session.FieldState

// Submitter aliases the submission controller.
type Submitter = submission.Controller

// Result aliases the submission decision.
type Result = submission.Result

// Finding aliases an advisory finding.
type Finding = advisory.Finding

// Compile validates s and builds its structural validator.
func Compile(s FormSchema) (*Validator, error) {
	return validation.Compile(s)
}

// LoadFile reads a JSON or YAML form schema document.
func LoadFile(ctx context.Context, path string) (FormSchema, error) {
	return schema.LoadFile(ctx, path)
}

// NewSession opens an advisory session over v. Without WithEvaluator the
// built-in rule engine is used.
func NewSession(v *Validator, options ...session.Option) *Session {
	return session.New(v, options...)
}

// NewSubmitter builds a submission controller over v. Without WithEvaluator
// the built-in rule engine is used.
func NewSubmitter(v *Validator, options ...submission.Option) *Submitter {
	return submission.New(v, options...)
}

// NewEngine builds the advisory rule engine.
func NewEngine(options ...advisory.Option) *advisory.Engine {
	return advisory.New(options...)
}

// NewService exposes the source-to-render pipeline.
func NewService(options ...forms.Option) *forms.Service {
	return forms.New(options...)
}

// WithOnSubmit registers the collaborator receiving accepted payloads.
func WithOnSubmit(fn submission.SubmitFunc) submission.Option {
	return submission.WithOnSubmit(fn)
}

// WithOnChange registers the session change listener.
func WithOnChange(fn func(FieldState)) session.Option {
	return session.WithOnChange(fn)
}
