package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/winnipeg-connect/backend/internal/models"
)

// ConversationRepository handles the conversations and messages tables.
// System messages share the messages table with user chat; they are ordinary
// rows with author_type 'system' and a machine-readable payload.
type ConversationRepository struct {
	db *sqlx.DB
}

func NewConversationRepository(db *sqlx.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// GetOrCreate returns the conversation for a (seeker, provider, job) triple,
// creating it on first contact. ON CONFLICT keeps concurrent first messages
// from creating two threads.
func (r *ConversationRepository) GetOrCreate(ctx context.Context, seekerID, providerID uuid.UUID, jobID *uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	query := `
		INSERT INTO conversations (seeker_id, provider_id, job_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (seeker_id, provider_id, job_id) DO UPDATE SET seeker_id = EXCLUDED.seeker_id
		RETURNING id, job_id, seeker_id, provider_id, created_at
	`
	if err := r.db.GetContext(ctx, &conv, query, seekerID, providerID, jobID); err != nil {
		return nil, fmt.Errorf("conversation repository: get or create %w", err)
	}
	return &conv, nil
}

// GetByID returns a conversation by identifier.
func (r *ConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	query := `SELECT id, job_id, seeker_id, provider_id, created_at FROM conversations WHERE id = $1`
	if err := r.db.GetContext(ctx, &conv, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("conversation repository: get by id %w", err)
	}
	return &conv, nil
}

// GetByJob returns the conversation tied to a job between its two parties.
func (r *ConversationRepository) GetByJob(ctx context.Context, jobID, seekerID, providerID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	query := `SELECT id, job_id, seeker_id, provider_id, created_at
		FROM conversations WHERE job_id = $1 AND seeker_id = $2 AND provider_id = $3`
	if err := r.db.GetContext(ctx, &conv, query, jobID, seekerID, providerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("conversation repository: get by job %w", err)
	}
	return &conv, nil
}

// ListMine returns all conversations the user participates in, most recently
// active first.
func (r *ConversationRepository) ListMine(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	query := `
		SELECT c.id, c.job_id, c.seeker_id, c.provider_id, c.created_at
		FROM conversations c
		LEFT JOIN LATERAL (
			SELECT created_at FROM messages WHERE conversation_id = c.id ORDER BY created_at DESC LIMIT 1
		) m ON TRUE
		WHERE c.seeker_id = $1 OR c.provider_id = $1
		ORDER BY COALESCE(m.created_at, c.created_at) DESC
	`
	var conversations []models.Conversation
	if err := r.db.SelectContext(ctx, &conversations, query, userID); err != nil {
		return nil, fmt.Errorf("conversation repository: list mine %w", err)
	}
	return conversations, nil
}

// CreateMessage stores a chat message.
func (r *ConversationRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (conversation_id, author_type, author_id, content, system_type, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		msg.ConversationID, msg.AuthorType, msg.AuthorID, msg.Content, msg.SystemType, msg.Payload,
	).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return fmt.Errorf("conversation repository: create message %w", err)
	}
	return nil
}

// ListMessages returns messages of a conversation, oldest first.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	query := `
		SELECT id, conversation_id, author_type, author_id, content, system_type, payload, created_at, updated_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, conversationID, limit, offset); err != nil {
		return nil, fmt.Errorf("conversation repository: list messages %w", err)
	}
	return messages, nil
}

// GetLastMessage returns the newest message of a conversation, or nil when
// the thread is empty.
func (r *ConversationRepository) GetLastMessage(ctx context.Context, conversationID uuid.UUID) (*models.Message, error) {
	var message models.Message
	query := `
		SELECT id, conversation_id, author_type, author_id, content, system_type, payload, created_at, updated_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &message, query, conversationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("conversation repository: get last message %w", err)
	}
	return &message, nil
}
