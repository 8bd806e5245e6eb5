package power

import (
	"context"
	"io"
	"time"

	"codeberg.org/mutker/powerhintd/internal/metrics"
)

// HintBackend applies named hints. Activation is advisory: errors are
// reported so they can be logged, never so they can be retried.
type HintBackend interface {
	Activate(name string) error
	ActivateFor(name string, d time.Duration) error
	Deactivate(name string) error
	ActiveHints() []string

	IsHintSupported(name string) bool
	IsProfileSupported(name string) bool
	IsSessionSupported() bool
	ReportingRateLimit() time.Duration
	IsRunning() bool

	Dump(w io.Writer) error
}

// DeviceHook lets a platform claim modes before generic dispatch.
type DeviceHook interface {
	// HandleMode returns true when the platform fully handled the request.
	HandleMode(mode Mode, enabled bool) bool
	// ModeSupport returns an authoritative answer when ok is true.
	ModeSupport(mode Mode) (supported, ok bool)
}

// SessionRegistry tracks performance sessions.
type SessionRegistry interface {
	OnModeChanged(mode string, enabled bool)
	Open(cfg SessionConfig) (SessionInfo, error)
	Close(handle string) error
	Dump(w io.Writer) error
}

// ActivityDetector receives user interaction signals.
type ActivityDetector interface {
	OnUserInteraction(d time.Duration)
}

type dumper interface {
	Dump(w io.Writer) error
}

// Properties is the persisted configuration read at construction.
type Properties interface {
	Get(key, def string) string
}

// Recorder stores dispatch outcomes.
type Recorder interface {
	Record(ctx context.Context, ev *metrics.Event) error
}

// SessionTag classifies the workload of a session.
type SessionTag string

const (
	SessionTagOther   SessionTag = "OTHER"
	SessionTagSurface SessionTag = "SURFACEFLINGER"
	SessionTagHWUI    SessionTag = "HWUI"
	SessionTagGame    SessionTag = "GAME"
	SessionTagApp     SessionTag = "APP"
)

// SessionConfig describes a session creation request.
type SessionConfig struct {
	TGID           int32
	UID            int32
	ThreadIDs      []int32
	TargetDuration time.Duration
	Tag            SessionTag
}

// SessionInfo identifies an open session.
type SessionInfo struct {
	ID     int64
	Handle string
}
