package power

import "sync"

// FlagSnapshot is a point-in-time copy of the global flags.
type FlagSnapshot struct {
	SustainedPerformance bool
	BatterySaver         bool
}

// Suppressing reports whether either flag blocks non-exempt hints.
func (s FlagSnapshot) Suppressing() bool {
	return s.SustainedPerformance || s.BatterySaver
}

// globalFlags holds the process-wide power state. Writers hold the lock for a
// full read-modify-write of one mode dispatch.
type globalFlags struct {
	mu                   sync.RWMutex
	sustainedPerformance bool
	batterySaver         bool
}

func (f *globalFlags) snapshot() FlagSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return FlagSnapshot{
		SustainedPerformance: f.sustainedPerformance,
		BatterySaver:         f.batterySaver,
	}
}

// The setters below require f.mu to be held.

func (f *globalFlags) setSustainedPerformance(on bool) {
	f.sustainedPerformance = on
}

func (f *globalFlags) setBatterySaver(on bool) {
	f.batterySaver = on
}

func (f *globalFlags) suppressingLocked() bool {
	return f.sustainedPerformance || f.batterySaver
}
