// Package orchestrator drives the refinement state machine: Decompose once,
// then Strategize -> Generate -> Evaluate -> decide, looping until a terminal
// phase. It is the only component that mutates mission state, and it owns the
// retry policy for transient stage faults.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rose/internal/contract"
	"rose/internal/metrics"
	"rose/internal/mission"
	"rose/internal/stage"
)

// MissionFailure is unrecoverable for the current mission: retries for the
// named stage are exhausted and no prompt is claimed as final.
type MissionFailure struct {
	Stage string
	Err   error
}

func (e *MissionFailure) Error() string {
	return fmt.Sprintf("mission failed at stage %s: %v", e.Stage, e.Err)
}

func (e *MissionFailure) Unwrap() error { return e.Err }

// RetryPolicy bounds how often a stage call is reattempted. Schema faults are
// retried immediately with identical inputs; service faults back off first.
type RetryPolicy struct {
	SchemaRetries  int
	ServiceRetries int
	Backoff        time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{SchemaRetries: 2, ServiceRetries: 3, Backoff: time.Second}
}

// ProgressEvent is emitted after each completed stage call. Observability
// only; not part of the correctness contract.
type ProgressEvent struct {
	Stage      string
	Iteration  int
	DurationMs int64
}

const defaultStageTimeout = 30 * time.Second

type Option func(*Machine)

func WithRetryPolicy(p RetryPolicy) Option {
	return func(m *Machine) { m.retry = p }
}

func WithStageTimeout(d time.Duration) Option {
	return func(m *Machine) { m.stageTimeout = d }
}

func WithProgress(fn func(ProgressEvent)) Option {
	return func(m *Machine) { m.onProgress = fn }
}

func WithMissionID(id string) Option {
	return func(m *Machine) { m.mm.MissionID = id }
}

// Machine is one mission's state machine. Not safe for concurrent use;
// distinct missions are independent and may run in parallel freely.
type Machine struct {
	svc   stage.Service
	st    *mission.State
	phase mission.Phase
	next  string

	retry        RetryPolicy
	stageTimeout time.Duration
	onProgress   func(ProgressEvent)

	mm      *metrics.MissionMetrics
	failure error
}

func New(svc stage.Service, st *mission.State, opts ...Option) *Machine {
	m := &Machine{
		svc:          svc,
		st:           st,
		phase:        mission.PhaseRefining,
		next:         stage.NameDecompose,
		retry:        DefaultRetryPolicy(),
		stageTimeout: defaultStageTimeout,
		mm:           &metrics.MissionMetrics{Start: time.Now()},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) Phase() mission.Phase { return m.phase }

func (m *Machine) Metrics() *metrics.MissionMetrics { return m.mm }

// Result reports the mission outcome. On DONE_EXHAUSTED the best-so-far
// prompt is returned with its last evaluation; on DONE_FAILED no prompt is
// returned as authoritative.
func (m *Machine) Result() mission.Result {
	res := mission.Result{
		Evaluation: m.st.LastEvaluation,
		Iterations: m.st.Iterations,
		Phase:      m.phase,
	}
	if m.phase != mission.DoneFailed {
		res.FinalPrompt = m.st.CurrentPrompt
	}
	return res
}

// Run steps the machine until a terminal phase and returns the result. The
// returned error is non-nil only for DONE_FAILED (or cancellation).
func (m *Machine) Run(ctx context.Context) (mission.Result, error) {
	for !m.phase.Terminal() {
		if _, err := m.Step(ctx); err != nil {
			break
		}
	}
	m.mm.Iterations = m.st.Iterations
	m.mm.TerminalState = string(m.phase)
	m.mm.Finalize()
	return m.Result(), m.failure
}

// Step executes the next stage of the machine. Once a terminal phase is
// reached further calls are no-ops returning the same terminal result.
func (m *Machine) Step(ctx context.Context) (mission.Phase, error) {
	if m.phase.Terminal() {
		return m.phase, m.failure
	}

	switch m.next {
	case stage.NameDecompose:
		delta, err := m.call(ctx, stage.NameDecompose, stage.Decompose)
		if err != nil {
			return m.fail(stage.NameDecompose, err)
		}
		m.st.Apply(delta)
		m.next = stage.NameStrategize

	case stage.NameStrategize:
		delta, err := m.call(ctx, stage.NameStrategize, stage.Strategize)
		if err != nil {
			return m.fail(stage.NameStrategize, err)
		}
		m.st.Apply(delta)
		m.next = stage.NameGenerate

	case stage.NameGenerate:
		delta, err := m.call(ctx, stage.NameGenerate, stage.Generate)
		if err != nil {
			return m.fail(stage.NameGenerate, err)
		}
		m.st.Apply(delta)
		m.next = stage.NameEvaluate

	case stage.NameEvaluate:
		delta, err := m.call(ctx, stage.NameEvaluate, stage.Evaluate)
		if err != nil {
			return m.fail(stage.NameEvaluate, err)
		}
		m.st.Apply(delta)
		m.phase = Decide(m.st)
		m.next = stage.NameStrategize
	}

	return m.phase, nil
}

// Decide is the decision policy, evaluated after each Evaluate. Exhaustion is
// checked first: it is authoritative even when the final evaluation happens
// to be sufficient.
func Decide(st *mission.State) mission.Phase {
	if st.Iterations >= st.MaxIterations {
		return mission.DoneExhausted
	}
	if st.LastEvaluation != nil && st.LastEvaluation.Sufficient {
		return mission.DoneSuccess
	}
	return mission.PhaseRefining
}

func (m *Machine) fail(stageName string, err error) (mission.Phase, error) {
	m.phase = mission.DoneFailed
	if errors.Is(err, context.Canceled) {
		// Caller cancelled between retries; not a stage fault.
		m.failure = err
	} else {
		m.failure = &MissionFailure{Stage: stageName, Err: err}
	}
	return m.phase, m.failure
}

type stageFunc func(context.Context, stage.Service, *mission.State) (mission.Delta, error)

// call runs one stage with the per-call timeout and the bounded retry
// policy. A cancelled mission aborts the in-flight call and discards partial
// results; nothing unvalidated ever reaches the state record.
func (m *Machine) call(ctx context.Context, name string, fn stageFunc) (mission.Delta, error) {
	schemaLeft := m.retry.SchemaRetries
	serviceLeft := m.retry.ServiceRetries

	attempt := 0
	for {
		attempt++

		callCtx, cancel := context.WithTimeout(ctx, m.stageTimeout)
		start := time.Now()
		delta, err := fn(callCtx, m.svc, m.st)
		cancel()

		cm := metrics.CallMetrics{
			Stage:     name,
			Iteration: m.st.Iterations,
			Attempt:   attempt,
			Start:     start,
			End:       time.Now(),
			Success:   err == nil,
		}
		cm.DurationMs = cm.End.Sub(cm.Start).Milliseconds()
		if err != nil {
			cm.Err = err.Error()
		}
		m.mm.Calls = append(m.mm.Calls, cm)

		if err == nil {
			if m.onProgress != nil {
				m.onProgress(ProgressEvent{Stage: name, Iteration: m.st.Iterations, DurationMs: cm.DurationMs})
			}
			return delta, nil
		}

		// Caller cancelled: not retryable.
		if ctx.Err() != nil {
			return mission.Delta{}, ctx.Err()
		}

		var serr *contract.SchemaError
		if errors.As(err, &serr) {
			if schemaLeft <= 0 {
				return mission.Delta{}, err
			}
			schemaLeft--
			continue // same inputs, retried immediately
		}

		// Everything else is a service fault (transport, timeout, rate limit).
		if serviceLeft <= 0 {
			return mission.Delta{}, err
		}
		serviceLeft--

		select {
		case <-time.After(time.Duration(attempt) * m.retry.Backoff):
		case <-ctx.Done():
			return mission.Delta{}, ctx.Err()
		}
	}
}
