package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/goliatone/go-formadvisor/pkg/advisory"
	"github.com/goliatone/go-formadvisor/pkg/forms"
	"github.com/goliatone/go-formadvisor/pkg/render"
	"github.com/goliatone/go-formadvisor/pkg/schema"
	"github.com/goliatone/go-formadvisor/pkg/session"
	"github.com/goliatone/go-formadvisor/pkg/submission"
	"github.com/goliatone/go-formadvisor/pkg/validation"
)

const remoteTimeout = 10 * time.Second

// app holds the collaborators shared by every command.
type app struct {
	cfg       Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	evaluator advisory.Evaluator
	service   *forms.Service
	sessions  *session.Metrics
	submits   *submission.Metrics
	out       io.Writer
}

func newApp(cfg Config, out, errOut io.Writer) (*app, error) {
	logger := newLogger(cfg, errOut)
	registry := prometheus.NewRegistry()

	sessions, err := session.NewMetrics(registry)
	if err != nil {
		return nil, err
	}
	submits, err := submission.NewMetrics(registry)
	if err != nil {
		return nil, err
	}

	var evaluator advisory.Evaluator = advisory.New(advisory.WithLatency(cfg.AdvisoryLatency))
	if limiter := advisory.NewLimiter(cfg.AdvisoryRPS); limiter != nil {
		evaluator = advisory.RateLimited(evaluator, limiter)
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		evaluator: evaluator,
		sessions:  sessions,
		submits:   submits,
		out:       out,
	}
	a.service = forms.New(
		forms.WithLoader(schema.NewLoader(
			schema.WithHTTPClient(&http.Client{}),
			schema.WithRequestTimeout(remoteTimeout),
		)),
		forms.WithCache(validation.NewCache()),
		forms.WithLogger(logger),
		forms.WithSessionOptions(
			session.WithEvaluator(evaluator),
			session.WithDebounce(cfg.FieldDebounce),
			session.WithFormDebounce(cfg.FormDebounce),
			session.WithMetrics(sessions),
		),
	)
	return a, nil
}

func (a *app) request(path, operationID string) (forms.Request, error) {
	src, err := schema.ParseSource(path)
	if err != nil {
		return forms.Request{}, err
	}
	return forms.Request{Source: src, OperationID: operationID}, nil
}

func (a *app) submitter(v *validation.Validator, onSubmit submission.SubmitFunc) *submission.Controller {
	return submission.New(v,
		submission.WithEvaluator(a.evaluator),
		submission.WithLogger(a.logger),
		submission.WithMetrics(a.submits),
		submission.WithOnSubmit(onSubmit),
	)
}

// writeMetrics dumps the registry in the Prometheus text format.
func (a *app) writeMetrics(w io.Writer) error {
	families, err := a.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := enc.Encode(family); err != nil {
			return err
		}
	}
	return nil
}

// parseAssignments turns field=value arguments into a value map.
func parseAssignments(v *validation.Validator, args []string) (map[string]any, error) {
	values := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid assignment %q: want field=value", arg)
		}
		field, known := v.Field(key)
		if !known {
			return nil, fmt.Errorf("%w %q", validation.ErrUnknownField, key)
		}
		values[key] = render.ParseInput(field.Type, raw)
	}
	return values, nil
}
