package render

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-formadvisor/pkg/schema"
	"github.com/goliatone/go-formadvisor/pkg/session"
	"github.com/goliatone/go-formadvisor/pkg/validation"
)

var (
	// ErrStrategyNotFound is returned when no strategy handles a field type.
	ErrStrategyNotFound = errors.New("render: strategy not found")
	// ErrUnsupportedType is returned when registering for an unknown type.
	ErrUnsupportedType = errors.New("render: unsupported field type")
)

// Strategy paints a single field.
type Strategy interface {
	RenderField(ctx context.Context, field Instruction) ([]byte, error)
}

// StrategyFunc adapts a function into a Strategy.
type StrategyFunc func(ctx context.Context, field Instruction) ([]byte, error)

// RenderField delegates to the underlying function.
func (fn StrategyFunc) RenderField(ctx context.Context, field Instruction) ([]byte, error) {
	return fn(ctx, field)
}

// Toolkit supplies a strategy for every field type.
type Toolkit interface {
	Name() string
	Strategy(t schema.FieldType) Strategy
}

// EditSink receives user edits. *session.Session satisfies it.
type EditSink interface {
	Set(fieldID string, value any) (validation.Outcome, error)
}

// Fragment is the rendered output of one field.
type Fragment struct {
	FieldID string
	Content []byte
}

// Dispatcher routes each field to the strategy registered for its type.
type Dispatcher struct {
	mu         sync.RWMutex
	strategies map[schema.FieldType]Strategy
}

// NewDispatcher returns a dispatcher with no strategies.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{strategies: make(map[schema.FieldType]Strategy)}
}

// NewDispatcherFor returns a dispatcher wired to every strategy of toolkit.
func NewDispatcherFor(toolkit Toolkit) (*Dispatcher, error) {
	d := NewDispatcher()
	if err := d.Use(toolkit); err != nil {
		return nil, err
	}
	return d, nil
}

// Register sets the strategy for t, replacing any previous one.
func (d *Dispatcher) Register(t schema.FieldType, strategy Strategy) error {
	if !t.Valid() {
		return fmt.Errorf("%w %q", ErrUnsupportedType, t)
	}
	if strategy == nil {
		return fmt.Errorf("render: strategy for %q is required", t)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.strategies[t] = strategy
	return nil
}

// Use registers a toolkit's strategy for every field type. It fails when the
// toolkit leaves a type uncovered.
func (d *Dispatcher) Use(toolkit Toolkit) error {
	if toolkit == nil {
		return fmt.Errorf("render: toolkit is required")
	}
	for _, t := range schema.FieldTypes() {
		strategy := toolkit.Strategy(t)
		if strategy == nil {
			return fmt.Errorf("%w: toolkit %q has no strategy for %q", ErrStrategyNotFound, toolkit.Name(), t)
		}
		if err := d.Register(t, strategy); err != nil {
			return err
		}
	}
	return nil
}

// Strategy returns the strategy for t.
func (d *Dispatcher) Strategy(t schema.FieldType) (Strategy, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	strategy, ok := d.strategies[t]
	if !ok {
		return nil, fmt.Errorf("%w for %q", ErrStrategyNotFound, t)
	}
	return strategy, nil
}

// Dispatch renders one field state.
func (d *Dispatcher) Dispatch(ctx context.Context, state session.FieldState) ([]byte, error) {
	strategy, err := d.Strategy(state.Definition.Type)
	if err != nil {
		return nil, err
	}
	out, err := strategy.RenderField(ctx, NewInstruction(state))
	if err != nil {
		return nil, fmt.Errorf("render: field %q: %w", state.Definition.ID, err)
	}
	return out, nil
}

// DispatchAll renders every state in order.
func (d *Dispatcher) DispatchAll(ctx context.Context, states []session.FieldState) ([]Fragment, error) {
	out := make([]Fragment, 0, len(states))
	for _, state := range states {
		content, err := d.Dispatch(ctx, state)
		if err != nil {
			return nil, err
		}
		out = append(out, Fragment{FieldID: state.Definition.ID, Content: content})
	}
	return out, nil
}

// Edit parses raw UI input for field and forwards it to sink.
func (d *Dispatcher) Edit(sink EditSink, field schema.FieldDefinition, raw string) (validation.Outcome, error) {
	if sink == nil {
		return validation.Outcome{}, fmt.Errorf("render: edit sink is required")
	}
	return sink.Set(field.ID, ParseInput(field.Type, raw))
}
