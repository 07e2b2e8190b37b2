package entities

import (
	"encoding/json"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of one receipt extraction attempt.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusProcessed  JobStatus = "processed"
	JobStatusError      JobStatus = "error"
	JobStatusAccepted   JobStatus = "accepted"
	JobStatusRejected   JobStatus = "rejected"
)

// transitions holds every legal status change. Anything not listed is
// rejected with invalid_state; terminal states have no successors except
// the explicit error->pending re-queue.
var transitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusProcessing},
	JobStatusProcessing: {JobStatusProcessed, JobStatusError},
	JobStatusProcessed:  {JobStatusAccepted, JobStatusRejected},
	JobStatusError:      {JobStatusPending},
}

func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no worker may touch the job anymore.
// error is terminal for workers but still re-queueable by the user.
func (s JobStatus) Terminal() bool {
	return s == JobStatusAccepted || s == JobStatusRejected || s == JobStatusError
}

// HasFields reports whether extracted fields must be present for this status.
func (s JobStatus) HasFields() bool {
	return s == JobStatusProcessed || s == JobStatusAccepted || s == JobStatusRejected
}

type ExtractionJob struct {
	ID                uuid.UUID      `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID            uuid.UUID      `gorm:"index" json:"user_id"`
	ImageKey          string         `json:"image_key"`
	Status            JobStatus      `gorm:"type:varchar(16);index" json:"status"`
	RetryCount        int            `json:"retry_count"`
	ErrorReason       string         `json:"error_reason,omitempty"`
	RawProviderOutput json.RawMessage `gorm:"type:jsonb" json:"raw_provider_output,omitempty"`
	Fields            json.RawMessage `gorm:"type:jsonb" json:"fields,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
	Timestamp
}
