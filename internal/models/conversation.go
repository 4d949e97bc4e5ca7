package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message author types. System messages are the chat side-channel for state
// transitions and carry a machine-readable payload.
const (
	MessageAuthorUser   = "user"
	MessageAuthorSystem = "system"
)

// System message types emitted by the escrow orchestrator.
const (
	SystemMessageQuoteAccepted  = "quote_accepted"
	SystemMessageEscrowFunded   = "escrow_funded"
	SystemMessageEscrowReleased = "escrow_released"
	SystemMessageEscrowRefunded = "escrow_refunded"
	SystemMessageEscrowDisputed = "escrow_disputed"
	SystemMessageJobStatus      = "job_status_changed"
)

// Conversation is the chat between a seeker and a provider about a job.
type Conversation struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	JobID      *uuid.UUID `db:"job_id" json:"job_id,omitempty"`
	SeekerID   uuid.UUID  `db:"seeker_id" json:"seeker_id"`
	ProviderID uuid.UUID  `db:"provider_id" json:"provider_id"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Message is one chat message, authored by a user or by the system.
type Message struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	ConversationID uuid.UUID       `db:"conversation_id" json:"conversation_id"`
	AuthorType     string          `db:"author_type" json:"author_type"`
	AuthorID       *uuid.UUID      `db:"author_id" json:"author_id,omitempty"`
	Content        string          `db:"content" json:"content"`
	SystemType     *string         `db:"system_type" json:"system_type,omitempty"`
	Payload        json.RawMessage `db:"payload" json:"payload,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time      `db:"updated_at" json:"updated_at,omitempty"`
}

// Notification is an event delivered to a user, persisted for history and
// unread counts.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
