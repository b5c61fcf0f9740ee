package session

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formadvisor/pkg/advisory"
	"github.com/goliatone/go-formadvisor/pkg/validation"
)

// job is one advisory evaluation bound to the token it was issued under.
type job struct {
	ctx     context.Context
	fieldID string
	token   uint64
	req     advisory.Request
}

func (s *Session) scheduleFormLocked() {
	if s.formTimer != nil {
		s.formTimer.Stop()
	}
	s.formSeq++
	seq := s.formSeq
	s.formTimer = s.scheduler.AfterFunc(s.formDebounce, func() {
		s.fireForm(seq)
	})
	s.broadcastLocked()
}

func (s *Session) stopFormLocked() {
	if s.formTimer != nil {
		s.formTimer.Stop()
		s.formTimer = nil
	}
	s.formSeq++
}

// fire runs when a field's debounce window elapses. A token mismatch means
// the value changed after the timer was armed, so the stale timer is ignored.
func (s *Session) fire(fieldID string, token uint64) {
	s.mu.Lock()
	sl := s.slots[fieldID]
	if s.closed || sl == nil || sl.token != token || sl.timer == nil {
		s.mu.Unlock()
		return
	}
	sl.timer = nil
	next := s.startLocked(fieldID, sl)
	s.mu.Unlock()

	s.drain()
	s.launch([]job{next})
}

func (s *Session) fireForm(seq uint64) {
	s.mu.Lock()
	if s.closed || seq != s.formSeq || s.formTimer == nil {
		s.mu.Unlock()
		return
	}
	s.formTimer = nil
	jobs := s.formPassLocked()
	s.mu.Unlock()

	s.drain()
	s.launch(jobs)
}

// formPassLocked issues a fresh token for every non-blank field and starts
// its evaluation. Blank fields stay idle.
func (s *Session) formPassLocked() []job {
	var jobs []job
	for _, id := range s.order {
		sl := s.slots[id]
		if validation.IsBlank(sl.value) {
			continue
		}
		sl.stop()
		sl.token++
		jobs = append(jobs, s.startLocked(id, sl))
	}
	if len(jobs) == 0 {
		s.broadcastLocked()
	}
	return jobs
}

func (s *Session) startLocked(fieldID string, sl *slot) job {
	ctx, cancel := context.WithCancel(s.base)
	sl.cancel = cancel
	sl.phase = PhasePending
	sl.shown.Status = AdvisoryPending
	s.metrics.inc(outcomeStarted)
	s.emitLocked(sl)
	return job{
		ctx:     ctx,
		fieldID: fieldID,
		token:   sl.token,
		req:     advisory.RequestFor(sl.def, sl.value),
	}
}

func (s *Session) launch(jobs []job) {
	switch len(jobs) {
	case 0:
		return
	case 1:
		go s.run(jobs[0])
		return
	}
	go func() {
		var g errgroup.Group
		g.SetLimit(s.concurrency)
		for _, j := range jobs {
			j := j
			g.Go(func() error {
				s.run(j)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

func (s *Session) run(j job) {
	ctx, span := s.tracer.Start(j.ctx, "advisory.evaluate", trace.WithAttributes(
		attribute.String("formadvisor.session", s.id),
		attribute.String("formadvisor.field", j.fieldID),
		attribute.Int64("formadvisor.token", int64(j.token)),
	))
	defer span.End()

	findings, err := s.evaluator.Evaluate(ctx, j.req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.complete(j, findings, err)
}

// complete commits an evaluation result when its token is still current and
// discards it otherwise.
func (s *Session) complete(j job, findings []advisory.Finding, err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	sl := s.slots[j.fieldID]
	if sl.token != j.token {
		s.metrics.inc(outcomeDiscarded)
		s.logger.Debug("discarded stale advisory result",
			"field", j.fieldID, "token", j.token, "current", sl.token)
		s.mu.Unlock()
		return
	}
	if sl.cancel != nil {
		sl.cancel()
		sl.cancel = nil
	}

	if err != nil {
		s.metrics.inc(outcomeFailed)
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("advisory evaluation failed",
				"field", j.fieldID, "token", j.token, "error", err)
		}
		sl.restore()
	} else {
		s.metrics.inc(outcomeCommitted)
		outcome := AdvisoryOutcome{
			Status:         AdvisoryResolved,
			Findings:       append([]advisory.Finding(nil), findings...),
			EvaluatedValue: j.req.Value,
		}
		sl.resolved = &outcome
		sl.phase = PhaseResolved
		sl.shown = cloneOutcome(outcome)
	}
	s.emitLocked(sl)
	s.mu.Unlock()

	s.drain()
}

// emitLocked queues a snapshot for listeners and wakes Wait callers.
func (s *Session) emitLocked(sl *slot) {
	s.broadcastLocked()
	if s.onChange == nil {
		return
	}
	s.queue = append(s.queue, sl.snapshot())
}

// drain delivers queued snapshots. Only one goroutine drains at a time;
// snapshots queued by a listener re-entering the session are picked up by
// the active drain loop, preserving order.
func (s *Session) drain() {
	s.mu.Lock()
	if s.draining || s.onChange == nil {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		s.onChange(next)
		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
}
