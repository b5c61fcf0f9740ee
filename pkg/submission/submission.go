package submission

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formadvisor/pkg/advisory"
	"github.com/goliatone/go-formadvisor/pkg/validation"
)

const tracerName = "github.com/goliatone/go-formadvisor/pkg/submission"

// SubmitFunc receives the validated, coerced values of an accepted form.
type SubmitFunc func(ctx context.Context, data map[string]any) error

// Option customises a Controller.
type Option func(*Controller)

// WithEvaluator sets the advisory boundary used for the final pass.
func WithEvaluator(ev advisory.Evaluator) Option {
	return func(c *Controller) {
		if ev != nil {
			c.evaluator = ev
		}
	}
}

// WithOnSubmit sets the collaborator that receives accepted data.
func WithOnSubmit(fn SubmitFunc) Option {
	return func(c *Controller) {
		c.onSubmit = fn
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records submission decisions.
func WithMetrics(metrics *Metrics) Option {
	return func(c *Controller) {
		c.metrics = metrics
	}
}

// WithTracer sets the tracer used for submission spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithConcurrency bounds parallel advisory evaluations during a submit.
func WithConcurrency(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// Result is the outcome of one submission attempt. Rejections are reported
// here rather than as errors.
type Result struct {
	Accepted bool           `json:"accepted"`
	Data     map[string]any `json:"data"`
	// BlockingErrors lists the field ids that prevented submission, in schema
	// order.
	BlockingErrors []string `json:"blockingErrors,omitempty"`
	// Errors holds the blocking message for each id in BlockingErrors.
	Errors map[string]string `json:"errors,omitempty"`
	// Advisories holds every finding from the final advisory pass, keyed by
	// field id. Empty when the structural check failed.
	Advisories map[string][]advisory.Finding `json:"advisories,omitempty"`
	// Confidence is the lowest confidence among Advisories, or zero when
	// there are no findings.
	Confidence float64 `json:"confidence,omitempty"`
}

// Controller runs the final validation for a form and decides whether to
// hand the values to the submit collaborator. It holds no per-submission
// state, so retries only repeat the collaborator call.
type Controller struct {
	validator   *validation.Validator
	evaluator   advisory.Evaluator
	onSubmit    SubmitFunc
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer
	concurrency int
}

// New builds a Controller for the compiled validator.
func New(v *validation.Validator, options ...Option) *Controller {
	c := &Controller{
		validator:   v,
		evaluator:   advisory.New(),
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracerName),
		concurrency: 4,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Submit validates values and, when they pass, forwards the coerced data to
// the submit collaborator.
//
// Structural failures reject immediately without any advisory call. Otherwise
// every non-blank field is evaluated without debounce; error-severity
// findings reject the form, while warnings and info findings are returned as
// metadata on an accepted result. An advisory failure for a field is logged
// and treated as no findings. The returned error is reserved for context
// cancellation and collaborator failures.
func (c *Controller) Submit(ctx context.Context, values map[string]any) (Result, error) {
	ctx, span := c.tracer.Start(ctx, "formadvisor.submit", trace.WithAttributes(
		attribute.String("formadvisor.schema", c.validator.Schema().ID),
	))
	defer span.End()

	report := c.validator.CheckAll(values)
	if !report.Valid() {
		c.metrics.inc(decisionStructural)
		span.SetAttributes(attribute.String("formadvisor.decision", decisionStructural))
		result := Result{
			Data:           copyValues(values),
			BlockingErrors: report.Failed,
			Errors:         make(map[string]string, len(report.Failed)),
		}
		for _, id := range report.Failed {
			result.Errors[id] = report.Outcomes[id].Message
		}
		return result, nil
	}

	advisories, err := c.evaluateAll(ctx, values)
	if err != nil {
		c.metrics.inc(decisionFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("submission: advisory pass: %w", err)
	}

	result := Result{Advisories: advisories}
	var all []advisory.Finding
	for _, field := range c.validator.Fields() {
		findings := advisories[field.ID]
		all = append(all, findings...)
		for _, f := range findings {
			if f.Severity.Blocking() {
				if result.Errors == nil {
					result.Errors = make(map[string]string)
				}
				result.BlockingErrors = append(result.BlockingErrors, field.ID)
				result.Errors[field.ID] = f.Message
				break
			}
		}
	}
	if confidence, ok := advisory.MinConfidence(all); ok {
		result.Confidence = confidence
	}

	if len(result.BlockingErrors) > 0 {
		c.metrics.inc(decisionAdvisory)
		span.SetAttributes(attribute.String("formadvisor.decision", decisionAdvisory))
		result.Data = copyValues(values)
		return result, nil
	}

	data, err := c.validator.CoerceAll(values)
	if err != nil {
		c.metrics.inc(decisionFailed)
		return Result{}, fmt.Errorf("submission: %w", err)
	}
	result.Data = data

	if c.onSubmit != nil {
		if err := c.onSubmit(ctx, data); err != nil {
			c.metrics.inc(decisionFailed)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return Result{}, fmt.Errorf("submission: submit collaborator: %w", err)
		}
	}

	c.metrics.inc(decisionAccepted)
	span.SetAttributes(attribute.String("formadvisor.decision", decisionAccepted))
	result.Accepted = true
	return result, nil
}

func (c *Controller) evaluateAll(ctx context.Context, values map[string]any) (map[string][]advisory.Finding, error) {
	fields := c.validator.Fields()
	found := make([][]advisory.Finding, len(fields))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, field := range fields {
		value := values[field.ID]
		if validation.IsBlank(value) {
			continue
		}
		i, req := i, advisory.RequestFor(field, value)
		g.Go(func() error {
			findings, err := c.evaluator.Evaluate(gctx, req)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				c.logger.Warn("advisory evaluation failed during submit",
					"field", req.FieldID, "error", err)
				return nil
			}
			found[i] = findings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]advisory.Finding)
	for i, field := range fields {
		if len(found[i]) > 0 {
			out[field.ID] = found[i]
		}
	}
	return out, nil
}

func copyValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
