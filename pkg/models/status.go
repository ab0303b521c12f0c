// Package models defines the core entities of the campaign orchestration engine.
package models

// Status is the shared lifecycle vocabulary for campaigns and nodes. The
// graph builder, the state machines, and the scheduler all agree on "done",
// "actionable", and "bad" exclusively through this enumeration.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusReady    Status = "ready"
	StatusRunning  Status = "running"
	StatusPaused   Status = "paused"
	StatusBlocked  Status = "blocked"
	StatusFailed   Status = "failed"
	StatusRejected Status = "rejected"
	StatusAccepted Status = "accepted"
	StatusRescued  Status = "rescued"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusWaiting,
	StatusReady,
	StatusRunning,
	StatusPaused,
	StatusBlocked,
	StatusFailed,
	StatusRejected,
	StatusAccepted,
	StatusRescued,
}

// IsBad reports whether the status is in the bad set. Blocked is part of the
// bad set for actionability purposes but remains operator-recoverable.
func (s Status) IsBad() bool {
	return s == StatusBlocked || s == StatusFailed || s == StatusRejected
}

// IsGood reports whether the status is terminal-good.
func (s Status) IsGood() bool {
	return s == StatusAccepted || s == StatusRescued
}

// IsTerminal reports whether the status excludes a node from further
// scheduling on the normal path.
func (s Status) IsTerminal() bool {
	return s.IsBad() || s.IsGood()
}

// Valid reports whether the status is a member of the enumeration.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}

	return false
}

// NextStatus returns the status the daemon should drive a node toward given
// its current one. Statuses outside the normal prepare/start/finish path
// (paused, blocked, terminal) have no next status: they wait for an operator.
func NextStatus(current Status) (Status, bool) {
	switch current {
	case StatusWaiting:
		return StatusReady, true
	case StatusReady:
		return StatusRunning, true
	case StatusRunning:
		return StatusAccepted, true
	default:
		return "", false
	}
}
