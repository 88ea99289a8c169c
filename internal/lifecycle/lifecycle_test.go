package lifecycle

import (
	"testing"

	"github.com/mikobrno/pdfkar/internal/model"
	"github.com/mikobrno/pdfkar/pkg/errors"
)

func TestNextFollowsTable(t *testing.T) {
	cases := []struct {
		from  model.DocumentStatus
		event Event
		to    model.DocumentStatus
	}{
		{model.DocumentStatusQueued, EventJobClaimed, model.DocumentStatusProcessing},
		{model.DocumentStatusProcessing, EventJobCompleted, model.DocumentStatusAwaitingReview},
		{model.DocumentStatusProcessing, EventJobFailed, model.DocumentStatusFailed},
		{model.DocumentStatusAwaitingReview, EventReviewAccepted, model.DocumentStatusCompleted},
	}
	for _, tc := range cases {
		got, err := Next(tc.from, tc.event)
		if err != nil {
			t.Fatalf("Next(%s, %s): %v", tc.from, tc.event, err)
		}
		if got != tc.to {
			t.Fatalf("Next(%s, %s) = %s, want %s", tc.from, tc.event, got, tc.to)
		}
	}
}

func TestNextRejectsUndefinedTransitions(t *testing.T) {
	cases := []struct {
		from  model.DocumentStatus
		event Event
	}{
		{model.DocumentStatusQueued, EventJobCompleted},
		{model.DocumentStatusQueued, EventReviewAccepted},
		{model.DocumentStatusProcessing, EventJobClaimed},
		{model.DocumentStatusAwaitingReview, EventJobCompleted},
		{model.DocumentStatusCompleted, EventReviewAccepted},
		{model.DocumentStatusCompleted, EventJobClaimed},
		{model.DocumentStatusFailed, EventJobClaimed},
		{model.DocumentStatusFailed, EventReviewAccepted},
	}
	for _, tc := range cases {
		if _, err := Next(tc.from, tc.event); err == nil {
			t.Fatalf("Next(%s, %s) accepted an undefined transition", tc.from, tc.event)
		} else if !errors.IsInvariantViolation(err) {
			t.Fatalf("Next(%s, %s) returned %T, want InvariantViolationError", tc.from, tc.event, err)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []model.DocumentStatus{model.DocumentStatusCompleted, model.DocumentStatusFailed} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []model.DocumentStatus{model.DocumentStatusQueued, model.DocumentStatusProcessing, model.DocumentStatusAwaitingReview} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestEdgeMatchesNext(t *testing.T) {
	for _, event := range []Event{EventJobClaimed, EventJobCompleted, EventJobFailed, EventReviewAccepted} {
		from, to := Edge(event)
		want, err := Next(from, event)
		if err != nil {
			t.Fatalf("Next(%s, %s): %v", from, event, err)
		}
		if to != want {
			t.Fatalf("Edge(%s) = (%s, %s), want target %s", event, from, to, want)
		}
	}
}

func TestSourceIsUnambiguous(t *testing.T) {
	cases := map[Event]model.DocumentStatus{
		EventJobClaimed:     model.DocumentStatusQueued,
		EventJobCompleted:   model.DocumentStatusProcessing,
		EventJobFailed:      model.DocumentStatusProcessing,
		EventReviewAccepted: model.DocumentStatusAwaitingReview,
	}
	for event, want := range cases {
		if got := Source(event); got != want {
			t.Fatalf("Source(%s) = %s, want %s", event, got, want)
		}
	}
}
