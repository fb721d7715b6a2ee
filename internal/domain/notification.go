package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	// EventApplicationSent confirms the submission to the applicant.
	EventApplicationSent EventType = "APPLICATION_SENT"
	// EventApplicationReceived informs the supervising professor.
	EventApplicationReceived  EventType = "APPLICATION_RECEIVED"
	EventApplicationWithdrawn EventType = "APPLICATION_WITHDRAWN"
)

type NotificationEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          EventType `json:"type"`
	ApplicationID uuid.UUID `json:"applicationId"`
	JobID         uuid.UUID `json:"jobId"`
	RecipientID   uuid.UUID `json:"recipientId"`
	OccurredAt    time.Time `json:"occurredAt"`
}
