package metrics

import (
	"context"
	"time"
)

// Collector records dispatch events.
type Collector interface {
	Record(ctx context.Context, ev *Event) error
	Close() error
}

// Repository defines the interface for event storage
type Repository interface {
	Record(ev *Event) error
	Flush() error
	Close() error
}

// Kind distinguishes mode requests from boost requests.
type Kind string

const (
	KindMode  Kind = "mode"
	KindBoost Kind = "boost"
)

// Outcome is what the coordinator did with a request.
type Outcome string

const (
	OutcomeApplied    Outcome = "applied"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeOverridden Outcome = "overridden"
)

// Event is one dispatched request.
type Event struct {
	Timestamp  time.Time
	Kind       Kind
	Name       string
	Enabled    bool
	DurationMs int32
	Outcome    Outcome
}
