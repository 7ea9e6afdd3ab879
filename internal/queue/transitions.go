package queue

import "errors"

var ErrInvalidTransition = errors.New("invalid status transition")

// transitions lists the reachable targets for each non-terminal status.
// Every move is explicit and staff-triggered; no state may be skipped, so a
// visit is always accounted for at check-in before being called.
var transitions = map[Status][]Status{
	StatusScheduled:  {StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusCheckedIn:  {StatusInProgress, StatusNoShow},
	StatusInProgress: {StatusCompleted},
}

// CanTransition reports whether moving from one status to another is a legal
// single step.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}
