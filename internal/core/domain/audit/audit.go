package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event is one evaluation request as seen by the audit trail. It carries
// metadata only; requirement text and results are never stored.
type Event struct {
	ID                uuid.UUID `json:"id" db:"id"`
	ClientKey         string    `json:"client_key" db:"client_key"`
	Action            string    `json:"action" db:"action"`
	Outcome           string    `json:"outcome" db:"outcome"`
	Model             string    `json:"model" db:"model"`
	DurationMs        int64     `json:"duration_ms" db:"duration_ms"`
	RequirementLength int       `json:"requirement_length" db:"requirement_length"`
	RequestID         string    `json:"request_id" db:"request_id"`
	Timestamp         time.Time `json:"timestamp" db:"timestamp"`
}

type Action string

const (
	ActionEvaluate Action = "evaluate"
)

// CreateEventRequest represents the request to create an audit event
type CreateEventRequest struct {
	ClientKey         string
	Action            Action
	Outcome           string
	Model             string
	Duration          time.Duration
	RequirementLength int
	RequestID         string
}
