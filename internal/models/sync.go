package models

import "time"

// SubjectBatch is one page of subjects delivered by the sync collaborator.
type SubjectBatch struct {
	Cursor   string    `json:"cursor"`
	Subjects []Subject `json:"subjects" validate:"required,min=1"`
}

// SyncJobState tracks an asynchronous batch.
type SyncJobState string

const (
	SyncJobPending   SyncJobState = "PENDING"
	SyncJobSucceeded SyncJobState = "SUCCEEDED"
	SyncJobFailed    SyncJobState = "FAILED"
)

// SyncResult summarises the application of one batch.
type SyncResult struct {
	Applied int     `json:"applied"`
	Skipped []int64 `json:"skipped,omitempty"`
}

// SyncJobStatus is the externally visible state of a submitted batch.
type SyncJobStatus struct {
	ID          string       `json:"id"`
	State       SyncJobState `json:"state"`
	Cursor      string       `json:"cursor,omitempty"`
	Subjects    int          `json:"subjects"`
	Result      SyncResult   `json:"result"`
	Error       string       `json:"error,omitempty"`
	SubmittedAt time.Time    `json:"submitted_at"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty"`
}
