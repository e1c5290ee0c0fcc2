// pkg/engine/state.go
package engine

// Status is the session's state machine position
type Status int

const (
	StatusIdle Status = iota
	StatusCountdown
	StatusRunning
	StatusPaused
	StatusOver
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusCountdown:
		return "countdown"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusOver:
		return "over"
	default:
		return "unknown"
	}
}

// Outcome is how a finished session ended
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeWon
	OutcomeLost
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWon:
		return "won"
	case OutcomeLost:
		return "lost"
	default:
		return "none"
	}
}

// TickResult describes what happened during one tick.
// Outcome is set only on the tick that ended the session.
type TickResult struct {
	Status            Status
	Destroyed         int
	LifeLost          bool
	PaddleHit         bool
	CountdownFinished bool
	Tracked           bool
	Outcome           Outcome
}
