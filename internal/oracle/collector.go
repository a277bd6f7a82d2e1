// Package oracle computes expected results for index operations and records
// every divergence between expected and actual behavior.
//
// Violations are accumulated, never thrown: a scenario runs to completion so
// that all of its violations are reported together, not just the first. The
// Collector is safe for concurrent use by every worker in a scenario.
package oracle

import (
	"fmt"
	"sync"
)

// Kind classifies a verification failure.
type Kind int

const (
	// MissingKey: a read expected to succeed found nothing.
	MissingKey Kind = iota
	// UnexpectedKey: a read expected to miss returned a value.
	UnexpectedKey
	// WrongPayload: a returned payload differs from the expected one.
	WrongPayload
	// OrderViolation: scan keys were not strictly ascending.
	OrderViolation
	// RangeViolation: a scan returned too few or too many entries.
	RangeViolation
	// UnexpectedCode: an operation's result code contradicts expectation.
	UnexpectedCode
	// StaleSnapshot: a snapshot read surfaced a post-capture mutation.
	StaleSnapshot
	// ForeignValue: a read returned bytes never handed to any writer.
	ForeignValue
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case MissingKey:
		return "MissingKey"
	case UnexpectedKey:
		return "UnexpectedKey"
	case WrongPayload:
		return "WrongPayload"
	case OrderViolation:
		return "OrderViolation"
	case RangeViolation:
		return "RangeViolation"
	case UnexpectedCode:
		return "UnexpectedCode"
	case StaleSnapshot:
		return "StaleSnapshot"
	case ForeignValue:
		return "ForeignValue"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Violation is one recorded divergence.
type Violation struct {
	Kind Kind
	Msg  string
}

// String formats the violation for logs and reports.
func (v Violation) String() string {
	return v.Kind.String() + ": " + v.Msg
}

// Collector accumulates violations from concurrent workers.
type Collector struct {
	mu         sync.Mutex
	violations []Violation
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Reportf records a violation.
func (c *Collector) Reportf(kind Kind, format string, args ...any) {
	c.mu.Lock()
	c.violations = append(c.violations, Violation{Kind: kind, Msg: fmt.Sprintf(format, args...)})
	c.mu.Unlock()
}

// Violations returns a copy of everything recorded so far.
func (c *Collector) Violations() []Violation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Violation, len(c.violations))
	copy(out, c.violations)
	return out
}

// Len returns the number of recorded violations.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.violations)
}

// Drain returns all recorded violations and resets the collector, so one
// collector can serve consecutive scenarios.
func (c *Collector) Drain() []Violation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.violations
	c.violations = nil
	return out
}
