package countdown

import "sync/atomic"

type State int32

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateCompleted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Terminal reports whether the countdown can no longer tick.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateStopped
}

// Snapshot is a point-in-time copy of the countdown state.
type Snapshot struct {
	Remaining int
	State     State
}

func (s Snapshot) Running() bool { return s.State == StateRunning }
func (s Snapshot) Paused() bool  { return s.State == StatePaused }

// status is written only by the tick goroutine (and by Start/Stop while no
// tick goroutine exists) and read from anywhere.
type status struct {
	state     atomic.Int32
	remaining atomic.Int64
}

func (s *status) load() Snapshot {
	return Snapshot{
		Remaining: int(s.remaining.Load()),
		State:     State(s.state.Load()),
	}
}

func (s *status) setState(st State) {
	s.state.Store(int32(st))
}

func (s *status) setRemaining(n int) {
	s.remaining.Store(int64(n))
}
