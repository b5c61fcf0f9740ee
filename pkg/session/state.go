package session

import (
	"github.com/goliatone/go-formadvisor/pkg/advisory"
	"github.com/goliatone/go-formadvisor/pkg/schema"
	"github.com/goliatone/go-formadvisor/pkg/validation"
)

// Phase is the advisory lifecycle position of a field.
type Phase string

const (
	// PhaseIdle means the field is blank or untouched; no advisory work exists.
	PhaseIdle Phase = "idle"
	// PhaseDebouncing means a non-blank value is waiting for the debounce
	// window to elapse.
	PhaseDebouncing Phase = "debouncing"
	// PhasePending means an advisory evaluation is in flight.
	PhasePending Phase = "pending"
	// PhaseResolved means the latest committed evaluation is shown.
	PhaseResolved Phase = "resolved"
)

// AdvisoryStatus is the advisory status surfaced to renderers.
type AdvisoryStatus string

const (
	AdvisoryIdle     AdvisoryStatus = "idle"
	AdvisoryPending  AdvisoryStatus = "pending"
	AdvisoryResolved AdvisoryStatus = "resolved"
)

// AdvisoryOutcome is the advisory half of a field's validation outcome.
// Findings always belong to EvaluatedValue, which may lag behind the field's
// current value while a newer evaluation is debouncing or in flight.
type AdvisoryOutcome struct {
	Status         AdvisoryStatus     `json:"status"`
	Findings       []advisory.Finding `json:"findings,omitempty"`
	EvaluatedValue any                `json:"evaluatedValue,omitempty"`
}

// FieldState is the merged per-field presentation state handed to renderers.
type FieldState struct {
	Definition schema.FieldDefinition `json:"definition"`
	Value      any                    `json:"value,omitempty"`
	Touched    bool                   `json:"touched"`
	Structural validation.Outcome     `json:"structural"`
	Advisory   AdvisoryOutcome        `json:"advisory"`
	Phase      Phase                  `json:"phase"`
	// Token is the latest evaluation request issued for the field.
	Token uint64 `json:"token"`
}

// Blocking reports whether the field currently shows a structural failure or
// a blocking advisory finding.
func (f FieldState) Blocking() bool {
	if f.Touched && !f.Structural.Valid {
		return true
	}
	return advisory.HasBlocking(f.Advisory.Findings)
}

// slot is the mutable per-field record owned by a Session.
type slot struct {
	def        schema.FieldDefinition
	value      any
	touched    bool
	structural validation.Outcome
	phase      Phase
	token      uint64
	timer      Timer
	cancel     func()
	shown      AdvisoryOutcome
	resolved   *AdvisoryOutcome
}

func newSlot(def schema.FieldDefinition) *slot {
	return &slot{
		def:        def,
		structural: validation.Outcome{Valid: true},
		phase:      PhaseIdle,
		shown:      AdvisoryOutcome{Status: AdvisoryIdle},
	}
}

func (s *slot) busy() bool {
	return s.timer != nil || s.cancel != nil
}

// stop cancels the debounce timer and any in-flight evaluation.
func (s *slot) stop() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// restore falls back to the last committed outcome, or idle when none exists.
func (s *slot) restore() {
	if s.resolved != nil {
		s.phase = PhaseResolved
		s.shown = *s.resolved
		return
	}
	s.phase = PhaseIdle
	s.shown = AdvisoryOutcome{Status: AdvisoryIdle}
}

func (s *slot) snapshot() FieldState {
	return FieldState{
		Definition: s.def,
		Value:      s.value,
		Touched:    s.touched,
		Structural: s.structural,
		Advisory:   cloneOutcome(s.shown),
		Phase:      s.phase,
		Token:      s.token,
	}
}

func cloneOutcome(in AdvisoryOutcome) AdvisoryOutcome {
	out := in
	if in.Findings != nil {
		out.Findings = append([]advisory.Finding(nil), in.Findings...)
	}
	return out
}
