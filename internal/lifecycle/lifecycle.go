// Package lifecycle owns the document state machine. The transition table
// here is the only path between document statuses; repositories enforce it
// physically with conditional updates keyed on the expected source status.
package lifecycle

import (
	"github.com/mikobrno/pdfkar/internal/model"
	"github.com/mikobrno/pdfkar/pkg/errors"
)

// Event names a cause of a document transition.
type Event string

const (
	EventJobClaimed     Event = "job_claimed"
	EventJobCompleted   Event = "job_completed"
	EventJobFailed      Event = "job_failed"
	EventReviewAccepted Event = "review_accepted"
)

var transitions = map[model.DocumentStatus]map[Event]model.DocumentStatus{
	model.DocumentStatusQueued: {
		EventJobClaimed: model.DocumentStatusProcessing,
	},
	model.DocumentStatusProcessing: {
		EventJobCompleted: model.DocumentStatusAwaitingReview,
		EventJobFailed:    model.DocumentStatusFailed,
	},
	model.DocumentStatusAwaitingReview: {
		EventReviewAccepted: model.DocumentStatusCompleted,
	},
}

// Next returns the status a document in `from` moves to on `event`. Any
// pair outside the table is an invariant violation, including every
// attempt to move out of a terminal status.
func Next(from model.DocumentStatus, event Event) (model.DocumentStatus, error) {
	if targets, ok := transitions[from]; ok {
		if to, ok := targets[event]; ok {
			return to, nil
		}
	}
	return "", errors.NewInvariantViolation("document", string(from),
		"no transition for event "+string(event))
}

// Edge returns the (from, to) status pair for `event`. Repositories use
// it to phrase a transition as UPDATE ... SET status = to WHERE status =
// from, so the table here stays the single source of the pairs.
func Edge(event Event) (model.DocumentStatus, model.DocumentStatus) {
	from := Source(event)
	return from, transitions[from][event]
}

// Source returns the only status from which `event` may fire. The
// transition table is unambiguous in that direction too, which is what
// lets repositories phrase transitions as a single conditional update.
func Source(event Event) model.DocumentStatus {
	for from, targets := range transitions {
		if _, ok := targets[event]; ok {
			return from
		}
	}
	return ""
}
