// Package sequencer runs an ordered list of bootstrap steps, stopping at the
// first required step that fails.
package sequencer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nvitorovic/scaffold-eth-2/pkg/common/iface"
	"github.com/nvitorovic/scaffold-eth-2/pkg/hooks"
)

type State int

const (
	NotStarted State = iota
	Running
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "not started"
	}
}

type StepFunc func(ctx context.Context) error

type Step struct {
	Name string
	Run  StepFunc
	// BestEffort steps log their failure and let the sequence continue
	BestEffort bool
}

type StepResult struct {
	Name     string
	State    State
	Duration time.Duration
	Err      error
}

// Sequence is a named, ordered list of steps. It runs at most once.
type Sequence struct {
	name   string
	steps  []Step
	logger iface.Logger

	mu      sync.Mutex
	state   State
	results []StepResult
}

func New(name string, logger iface.Logger) *Sequence {
	return &Sequence{name: name, logger: logger}
}

func (s *Sequence) Name() string { return s.name }

// Add appends a required step.
func (s *Sequence) Add(name string, run StepFunc) *Sequence {
	s.steps = append(s.steps, Step{Name: name, Run: run})
	return s
}

// AddBestEffort appends a step whose failure does not abort the sequence.
func (s *Sequence) AddBestEffort(name string, run StepFunc) *Sequence {
	s.steps = append(s.steps, Step{Name: name, Run: run, BestEffort: true})
	return s
}

func (s *Sequence) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Results returns one entry per step that was started.
func (s *Sequence) Results() []StepResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StepResult(nil), s.results...)
}

func (s *Sequence) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Sequence) record(r StepResult) {
	s.mu.Lock()
	s.results = append(s.results, r)
	s.mu.Unlock()
}

// Run executes the steps in order. The first failing required step aborts the
// remaining ones; nothing is retried or rolled back.
func (s *Sequence) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.state != NotStarted {
		s.mu.Unlock()
		return fmt.Errorf("sequence %s already %s", s.name, s.state)
	}
	s.state = Running
	s.mu.Unlock()

	s.logger.Title("%s", s.name)
	start := time.Now()

	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			s.setState(Failed)
			return fmt.Errorf("%s: cancelled before %q: %w", s.name, step.Name, err)
		}

		s.logger.Info("[%d/%d] %s", i+1, len(s.steps), step.Name)
		stepStart := time.Now()
		err := step.Run(ctx)
		result := StepResult{Name: step.Name, State: Done, Duration: time.Since(stepStart), Err: err}
		if err != nil {
			result.State = Failed
		}
		s.record(result)
		s.track(ctx, result)

		if err == nil {
			s.logger.Debug("%s finished in %s", step.Name, result.Duration.Round(time.Millisecond))
			continue
		}
		if step.BestEffort {
			s.logger.Warn("%s failed, continuing: %v", step.Name, err)
			continue
		}

		s.logger.Error("%s failed: %v", step.Name, err)
		s.setState(Failed)
		return fmt.Errorf("%s: step %q failed: %w", s.name, step.Name, err)
	}

	s.setState(Done)
	s.logger.Info("✅ %s completed in %s", s.name, time.Since(start).Round(time.Millisecond))
	return nil
}

func (s *Sequence) track(ctx context.Context, r StepResult) {
	props := map[string]interface{}{
		"sequence":    s.name,
		"step":        r.Name,
		"state":       r.State.String(),
		"duration_ms": r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		props["error"] = r.Err.Error()
	}
	_ = hooks.Track(ctx, hooks.FormatCustomMetric(ctx, "step"), props)
}
