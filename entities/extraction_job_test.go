package entities

import "testing"

func TestJobStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to JobStatus }{
		{JobStatusPending, JobStatusProcessing},
		{JobStatusProcessing, JobStatusProcessed},
		{JobStatusProcessing, JobStatusError},
		{JobStatusProcessed, JobStatusAccepted},
		{JobStatusProcessed, JobStatusRejected},
		{JobStatusError, JobStatusPending},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Errorf("%s -> %s should be legal", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to JobStatus }{
		{JobStatusPending, JobStatusProcessed},
		{JobStatusPending, JobStatusAccepted},
		{JobStatusProcessed, JobStatusPending},
		{JobStatusAccepted, JobStatusRejected},
		{JobStatusAccepted, JobStatusPending},
		{JobStatusRejected, JobStatusAccepted},
		{JobStatusError, JobStatusProcessed},
	}
	for _, tc := range denied {
		if tc.from.CanTransitionTo(tc.to) {
			t.Errorf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}

func TestJobStatusHasFields(t *testing.T) {
	withFields := []JobStatus{JobStatusProcessed, JobStatusAccepted, JobStatusRejected}
	for _, s := range withFields {
		if !s.HasFields() {
			t.Errorf("%s should require extracted fields", s)
		}
	}
	without := []JobStatus{JobStatusPending, JobStatusProcessing, JobStatusError}
	for _, s := range without {
		if s.HasFields() {
			t.Errorf("%s should not require extracted fields", s)
		}
	}
}
