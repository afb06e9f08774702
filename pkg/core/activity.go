package core

import "time"

// IndexID identifies a brain for the purposes of worker/activity
// lifecycle tracking. It is a distinct type from BrainID rather than a
// plain alias so lifecycle bookkeeping can evolve independently of
// identity (e.g. a host could track activity for brains it has not
// yet loaded, identified only by their string name).
type IndexID string

// ActivityState is the worker-pool / daemon-visible activity state of
// a brain, layered underneath and independent of a fiber's own
// Maturation stage (§3's STM/Working/Episodic/Semantic machine).
// Active/Idle/Sleeping/Dormant governs when background daemons run
// and when the worker pool evicts a brain's dedicated goroutine from
// memory, not how any individual memory decays.
type ActivityState int

const (
	StateActive ActivityState = iota
	StateIdle
	StateSleeping
	StateDormant
)

// BrainState is one brain's activity bookkeeping: when it was last
// invoked, how many times, and the thresholds governing its next
// transition.
type BrainState struct {
	IndexID      IndexID
	State        ActivityState
	LastInvoke   time.Time
	SessionStart time.Time
	InvokeCount  uint64

	IdleThreshold  time.Duration
	SleepThreshold time.Duration
}

// NewBrainState creates a freshly active state for id.
func NewBrainState(id IndexID) *BrainState {
	now := time.Now()
	return &BrainState{
		IndexID:      id,
		State:        StateActive,
		LastInvoke:   now,
		SessionStart: now,
	}
}
