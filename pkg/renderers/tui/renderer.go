package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-formadvisor/pkg/render"
	"github.com/goliatone/go-formadvisor/pkg/schema"
	"github.com/goliatone/go-formadvisor/pkg/session"
	"github.com/goliatone/go-formadvisor/pkg/validation"
)

// Name is the toolkit name registered with render.Registry.
const Name = "tui"

const (
	defaultMaxAttempts = 3
	skipOption         = "(skip)"
)

// Option configures the renderer.
type Option func(*Renderer)

// WithPromptDriver swaps the survey-backed driver, mainly for tests.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Renderer) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithOutput sets where the default driver prints messages.
func WithOutput(out io.Writer) Option {
	return func(r *Renderer) {
		if out != nil {
			r.out = out
		}
	}
}

// WithMaxAttempts bounds how often a field is re-prompted after a
// structural failure.
func WithMaxAttempts(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Renderer fills a session interactively in the terminal and prints a
// per-field summary. It doubles as a render.Toolkit whose strategies produce
// plain-text summary lines.
type Renderer struct {
	driver      PromptDriver
	out         io.Writer
	maxAttempts int
	logger      *slog.Logger
}

// New constructs a terminal renderer.
func New(options ...Option) *Renderer {
	r := &Renderer{
		out:         os.Stdout,
		maxAttempts: defaultMaxAttempts,
		logger:      slog.Default(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = newSurveyDriver(r.out)
	}
	return r
}

// Name implements render.Toolkit.
func (r *Renderer) Name() string {
	return Name
}

// Strategy implements render.Toolkit.
func (r *Renderer) Strategy(ft schema.FieldType) render.Strategy {
	switch ft {
	case schema.FieldTypeText, schema.FieldTypeEmail, schema.FieldTypeNumber,
		schema.FieldTypeTextarea, schema.FieldTypeDate:
		return render.StrategyFunc(summary)
	case schema.FieldTypeSelect, schema.FieldTypeRadio:
		return render.StrategyFunc(choiceSummary)
	case schema.FieldTypeCheckbox:
		return render.StrategyFunc(checkboxSummary)
	default:
		return nil
	}
}

// Fill prompts for every field of the session in schema order. Each answer is
// pushed through the session; answers failing structural validation are
// re-prompted. Once all fields are answered, pending advisory work is flushed
// and awaited, and a summary of every field is printed.
func (r *Renderer) Fill(ctx context.Context, s *session.Session) error {
	dispatcher, err := render.NewDispatcherFor(r)
	if err != nil {
		return err
	}

	for _, field := range s.Validator().Fields() {
		if err := r.fillField(ctx, dispatcher, s, field); err != nil {
			return err
		}
	}

	if err := s.Flush(); err != nil {
		return err
	}
	if err := s.Wait(ctx); err != nil {
		return fmt.Errorf("tui: wait for advisories: %w", err)
	}
	return r.Summarize(ctx, s)
}

// Summarize prints the current state of every field.
func (r *Renderer) Summarize(ctx context.Context, s *session.Session) error {
	dispatcher, err := render.NewDispatcherFor(r)
	if err != nil {
		return err
	}
	fragments, err := dispatcher.DispatchAll(ctx, s.States())
	if err != nil {
		return err
	}
	for _, fragment := range fragments {
		if err := r.driver.Info(ctx, strings.TrimRight(string(fragment.Content), "\n")); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) fillField(ctx context.Context, dispatcher *render.Dispatcher, s *session.Session, field schema.FieldDefinition) error {
	check := func(raw string) error {
		outcome, err := s.Validator().Check(field.ID, render.ParseInput(field.Type, raw))
		if err != nil {
			return err
		}
		if !outcome.Valid {
			return fmt.Errorf("%s", outcome.Message)
		}
		return nil
	}

	for attempt := 1; ; attempt++ {
		raw, err := r.prompt(ctx, field, check)
		if err != nil {
			return err
		}
		outcome, err := dispatcher.Edit(s, field, raw)
		if err != nil {
			return err
		}
		if outcome.Valid {
			return nil
		}
		r.logger.Debug("structural check failed", "field", field.ID, "attempt", attempt, "rule", outcome.Rule)
		if err := r.driver.Info(ctx, "  ✗ "+outcome.Message); err != nil {
			return err
		}
		if attempt >= r.maxAttempts {
			return fmt.Errorf("%w: %s", ErrTooManyAttempts, field.ID)
		}
	}
}

func (r *Renderer) prompt(ctx context.Context, field schema.FieldDefinition, check func(string) error) (string, error) {
	message := field.DisplayLabel()
	if field.Required && field.Type != schema.FieldTypeCheckbox {
		message += " *"
	}

	switch field.Type {
	case schema.FieldTypeText, schema.FieldTypeEmail, schema.FieldTypeNumber, schema.FieldTypeDate:
		help := field.Placeholder
		if field.Type == schema.FieldTypeDate && help == "" {
			help = "YYYY-MM-DD"
		}
		return r.driver.Input(ctx, InputConfig{Message: message, Help: help, Validator: check})
	case schema.FieldTypeTextarea:
		return r.driver.TextArea(ctx, TextAreaConfig{Message: message, Help: field.Placeholder})
	case schema.FieldTypeSelect, schema.FieldTypeRadio:
		labels := make([]string, 0, len(field.Options)+1)
		values := make([]string, 0, len(field.Options)+1)
		if !field.Required {
			labels = append(labels, skipOption)
			values = append(values, "")
		}
		for _, opt := range field.Options {
			label := opt.Label
			if label == "" {
				label = opt.Value
			}
			labels = append(labels, label)
			values = append(values, opt.Value)
		}
		idx, err := r.driver.Select(ctx, SelectConfig{Message: message, Options: labels, Help: field.Placeholder})
		if err != nil {
			return "", err
		}
		if idx < 0 || idx >= len(values) {
			return "", nil
		}
		return values[idx], nil
	case schema.FieldTypeCheckbox:
		ok, err := r.driver.Confirm(ctx, ConfirmConfig{Message: message})
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(ok), nil
	default:
		return "", fmt.Errorf("tui: unsupported field type %q", field.Type)
	}
}

func summary(_ context.Context, field render.Instruction) ([]byte, error) {
	return line(field, displayValue(field.Value)), nil
}

func choiceSummary(_ context.Context, field render.Instruction) ([]byte, error) {
	value := displayValue(field.Value)
	for _, opt := range field.Options {
		if field.Selected(opt.Value) && opt.Label != "" {
			value = opt.Label
		}
	}
	return line(field, value), nil
}

func checkboxSummary(_ context.Context, field render.Instruction) ([]byte, error) {
	value := "no"
	if field.Checked() {
		value = "yes"
	}
	return line(field, value), nil
}

func line(field render.Instruction, value string) []byte {
	var b strings.Builder
	marker := "✓"
	if field.Invalid() {
		marker = "✗"
	}
	fmt.Fprintf(&b, "%s %s: %s\n", marker, field.Label, value)
	if field.Invalid() {
		fmt.Fprintf(&b, "    %s\n", field.Error)
	}
	if field.Pending {
		b.WriteString("    (checking...)\n")
	}
	for _, f := range field.Findings {
		fmt.Fprintf(&b, "    [%s] %s (%.0f%%)\n", f.Severity, f.Message, f.Confidence*100)
	}
	return []byte(b.String())
}

func displayValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "-"
	case string:
		if strings.TrimSpace(v) == "" {
			return "-"
		}
		return v
	case time.Time:
		return v.Format(validation.DateLayout)
	default:
		return fmt.Sprint(v)
	}
}
