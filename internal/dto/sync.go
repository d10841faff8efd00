package dto

import "github.com/smouldering-durtles/wk-search/internal/models"

// SyncAcceptedResponse acknowledges a queued batch.
type SyncAcceptedResponse struct {
	JobID string `json:"job_id"`
}

// FullResyncRequest replaces every stored subject.
type FullResyncRequest struct {
	Cursor   string           `json:"cursor"`
	Subjects []models.Subject `json:"subjects" binding:"required"`
}

// SubjectKeysResponse lists the search keys indexed for a subject.
type SubjectKeysResponse struct {
	ID   int64    `json:"id"`
	Keys []string `json:"keys"`
}
