// Package harness orchestrates concurrent correctness scenarios against an
// epoch-versioned ordered index.
//
// A scenario is a fixed composition: capability check, data preparation, one
// or more barrier-released concurrent mutation phases, oracle verification of
// the final readable state, teardown. Scenarios whose required capabilities
// are absent are skipped and reported distinctly from pass and fail. All
// violations found in a scenario are accumulated and reported together; a
// scenario always runs to completion.
//
// There is no timeout anywhere in the harness: a worker stalled inside the
// index under test hangs the scenario, which is the desired failure mode for
// diagnosing liveness bugs.
package harness

import (
	"fmt"
	"time"

	"github.com/aalhour/indexharness/internal/dataset"
	"github.com/aalhour/indexharness/internal/epoch"
	"github.com/aalhour/indexharness/internal/logging"
	"github.com/aalhour/indexharness/internal/oracle"
	"github.com/aalhour/indexharness/internal/report"
)

// Factory creates a fresh index under test for one scenario. The index
// receives the key comparator and the epoch manager it must stamp versions
// from; the harness owns both.
type Factory func(keyCompare func(a, b []byte) int, mgr *epoch.Manager) any

// Config holds scenario parameters.
type Config struct {
	// ThreadNum is the number of concurrent workers. The concurrent
	// structural-modification scenario requires a multiple of four.
	ThreadNum int

	// ExecNum is the number of operations per worker per phase.
	ExecNum int

	// Seed drives the shuffled visit orders. Zero uses the fixed default.
	Seed uint64

	// KeyKind and PayKind select the key and payload universes.
	KeyKind dataset.Kind
	PayKind dataset.Kind

	// Logger receives scenario lifecycle messages. Defaults to Discard.
	Logger logging.Logger

	// History, when non-nil, records phase-level operation history.
	History *report.History

	// Settle overrides the barrier settle interval. Zero keeps the default.
	Settle time.Duration
}

// DefaultConfig returns the standard scenario parameters: eight workers,
// one thousand operations each, unsigned fixed-size keys and payloads.
func DefaultConfig() Config {
	return Config{
		ThreadNum: 8,
		ExecNum:   1000,
		KeyKind:   dataset.U64,
		PayKind:   dataset.U64,
		Logger:    logging.Discard,
	}
}

// Status is a scenario verdict.
type Status int

const (
	// Passed means the scenario ran with no violations.
	Passed Status = iota
	// Failed means at least one violation was recorded.
	Failed
	// Skipped means a required capability was absent.
	Skipped
)

// String returns the verdict name as used in reports.
func (s Status) String() string {
	switch s {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is one scenario's outcome.
type Result struct {
	Name       string
	Status     Status
	SkipReason string
	Violations []oracle.Violation
	Elapsed    time.Duration
}

// WriteOperation selects the mutating operation a composite scenario pairs
// with its verification phase.
type WriteOperation int

const (
	// OpNone runs no mutation phase.
	OpNone WriteOperation = iota
	// OpWrite pairs an upsert phase.
	OpWrite
	// OpInsert pairs an insert phase.
	OpInsert
	// OpUpdate pairs an update phase.
	OpUpdate
	// OpDelete pairs a delete phase.
	OpDelete
)

// String returns the operation name.
func (op WriteOperation) String() string {
	switch op {
	case OpNone:
		return "None"
	case OpWrite:
		return "Write"
	case OpInsert:
		return "Insert"
	case OpUpdate:
		return "Update"
	case OpDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// Harness runs scenarios against indexes produced by a factory.
type Harness struct {
	cfg     Config
	factory Factory
	log     logging.Logger
}

// New returns a harness. Invalid config values fall back to defaults.
func New(factory Factory, cfg Config) *Harness {
	def := DefaultConfig()
	if cfg.ThreadNum <= 0 {
		cfg.ThreadNum = def.ThreadNum
	}
	if cfg.ExecNum <= 0 {
		cfg.ExecNum = def.ExecNum
	}
	return &Harness{
		cfg:     cfg,
		factory: factory,
		log:     logging.OrDefault(cfg.Logger),
	}
}

// run wraps a scenario body with fixture lifecycle, timing, and verdict
// bookkeeping.
func (h *Harness) run(name string, body func(fx *fixture) (skipReason string)) Result {
	h.log.Infof(logging.NSScenario+"%s: starting", name)
	if h.cfg.History != nil {
		h.cfg.History.Recordf("scenario %s: start", name)
	}

	start := time.Now()
	fx := h.newFixture()
	skipReason := body(fx)
	fx.teardown()
	elapsed := time.Since(start)

	res := Result{Name: name, Elapsed: elapsed}
	if skipReason != "" {
		res.Status = Skipped
		res.SkipReason = skipReason
		h.log.Infof(logging.NSScenario+"%s: skipped (%s)", name, skipReason)
	} else if violations := fx.col.Drain(); len(violations) > 0 {
		res.Status = Failed
		res.Violations = violations
		h.log.Errorf(logging.NSScenario+"%s: failed with %d violations", name, len(violations))
	} else {
		res.Status = Passed
		h.log.Infof(logging.NSScenario+"%s: passed in %s", name, elapsed)
	}
	if h.cfg.History != nil {
		h.cfg.History.Recordf("scenario %s: %s", name, res.Status)
	}
	return res
}
