package domain

import "slices"

// Workflow maps each status to the set of statuses directly reachable from it.
type Workflow map[IssueStatus][]IssueStatus

// DefaultWorkflow returns a fresh copy of the built-in transition table.
func DefaultWorkflow() Workflow {
	return Workflow{
		StatusToDo:       {StatusInProgress, StatusDone},
		StatusInProgress: {StatusToDo, StatusInReview, StatusDone},
		StatusInReview:   {StatusInProgress, StatusDone},
		StatusDone:       {StatusInProgress, StatusToDo},
	}
}

// Allowed returns the statuses reachable from from. A status missing from the
// table has no outgoing transitions.
func (w Workflow) Allowed(from IssueStatus) []IssueStatus {
	return slices.Clone(w[from])
}

// CanTransition reports whether moving from -> to is permitted. Staying in the
// same status is always permitted.
func (w Workflow) CanTransition(from, to IssueStatus) bool {
	if from == to {
		return true
	}
	return slices.Contains(w[from], to)
}

// Clone deep-copies the table.
func (w Workflow) Clone() Workflow {
	if w == nil {
		return nil
	}
	out := make(Workflow, len(w))
	for from, next := range w {
		out[from] = slices.Clone(next)
	}
	return out
}

// Validate rejects tables referencing unknown statuses.
func (w Workflow) Validate() error {
	for from, next := range w {
		if !IsValidStatus(from) {
			return ErrInvalidStatus
		}
		for _, to := range next {
			if !IsValidStatus(to) {
				return ErrInvalidStatus
			}
		}
	}
	return nil
}
