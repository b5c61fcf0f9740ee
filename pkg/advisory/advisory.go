package advisory

import (
	"context"

	"github.com/goliatone/go-formadvisor/pkg/schema"
)

// Severity ranks an advisory finding. Only SeverityError blocks submission.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Blocking reports whether findings of this severity prevent submission.
func (s Severity) Blocking() bool {
	return s == SeverityError
}

// Finding is one advisory observation about a field value.
type Finding struct {
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Confidence float64  `json:"confidence"`
	Rule       string   `json:"rule,omitempty"`
}

// Request identifies the value under evaluation. Hint carries the raw field
// definition when the caller has one.
type Request struct {
	FieldID string
	Type    schema.FieldType
	Value   any
	Hint    *schema.FieldDefinition
}

// RequestFor builds a Request from a field definition.
func RequestFor(field schema.FieldDefinition, value any) Request {
	hint := field
	return Request{FieldID: field.ID, Type: field.Type, Value: value, Hint: &hint}
}

// Evaluator is the asynchronous advisory boundary. Implementations must honour
// ctx cancellation; callers treat latency as unbounded. A real external
// service can be substituted here without changing any caller.
type Evaluator interface {
	Evaluate(ctx context.Context, req Request) ([]Finding, error)
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(ctx context.Context, req Request) ([]Finding, error)

// Evaluate delegates to the underlying function.
func (fn EvaluatorFunc) Evaluate(ctx context.Context, req Request) ([]Finding, error) {
	return fn(ctx, req)
}

// HasBlocking reports whether any finding blocks submission.
func HasBlocking(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity.Blocking() {
			return true
		}
	}
	return false
}

// MinConfidence returns the lowest confidence among findings. The boolean is
// false when findings is empty.
func MinConfidence(findings []Finding) (float64, bool) {
	if len(findings) == 0 {
		return 0, false
	}
	lowest := findings[0].Confidence
	for _, f := range findings[1:] {
		if f.Confidence < lowest {
			lowest = f.Confidence
		}
	}
	return lowest, true
}
