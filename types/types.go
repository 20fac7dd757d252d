package types

import (
	"strings"
	"time"
)

// Status represents the possible states of a test in a series
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusPass     Status = "pass"
	StatusSoftfail Status = "softfail"
	StatusFail     Status = "fail"
	StatusDone     Status = "done"
)

// outcomes a script may legitimately report when it finishes
var knownOutcomes = map[Status]bool{
	StatusPass:     true,
	StatusSoftfail: true,
	StatusFail:     true,
	StatusDone:     true,
}

// NormalizeOutcome maps a raw status string reported by a test script onto
// the closed outcome vocabulary. Anything outside the known set becomes
// StatusDone so that scripts using newer result conventions terminate the
// test without halting the series.
func NormalizeOutcome(raw string) Status {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if knownOutcomes[s] {
		return s
	}
	return StatusDone
}

// Halting reports whether an outcome stops the whole series.
func (s Status) Halting() bool {
	return s == StatusFail
}

// Terminal reports whether a status describes a finished test.
func (s Status) Terminal() bool {
	return knownOutcomes[s]
}

// TestEntry describes one test in a series descriptor. Entries are immutable
// once parsed; insertion order in the descriptor is execution order.
type TestEntry struct {
	Name   string         `yaml:"name" json:"name"`
	Script string         `yaml:"file" json:"file"`
	Args   map[string]any `yaml:"args,omitempty" json:"args,omitempty"`
}

// TestItem pairs a TestEntry with its mutable runtime state. Items are
// created when a series loads and replaced wholesale on a series switch.
// Only the presentation loop mutates them.
type TestItem struct {
	Entry    TestEntry
	Status   Status
	Duration time.Duration
	Error    string // error text from the last run attempt, if any
}

// NewTestItem creates a pending item for an entry.
func NewTestItem(entry TestEntry) *TestItem {
	return &TestItem{
		Entry:  entry,
		Status: StatusPending,
	}
}
