package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/winnipeg-connect/backend/internal/logger"
	"github.com/winnipeg-connect/backend/internal/models"
	"github.com/winnipeg-connect/backend/internal/pkg/apperror"
	"github.com/winnipeg-connect/backend/internal/validation"
)

// ConversationRepository describes the chat storage contract.
type ConversationRepository interface {
	GetOrCreate(ctx context.Context, seekerID, providerID uuid.UUID, jobID *uuid.UUID) (*models.Conversation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error)
	GetLastMessage(ctx context.Context, conversationID uuid.UUID) (*models.Message, error)
}

// ConversationService handles user chat and the system message side-channel
// the escrow and job lifecycles write into.
type ConversationService struct {
	repo ConversationRepository
	hub  WSNotifier
}

func NewConversationService(repo ConversationRepository) *ConversationService {
	return &ConversationService{repo: repo}
}

func (s *ConversationService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// StartOrGet opens (or returns) the conversation between the caller and the
// other party about a job.
func (s *ConversationService) StartOrGet(ctx context.Context, seekerID, providerID uuid.UUID, jobID *uuid.UUID) (*models.Conversation, error) {
	return s.repo.GetOrCreate(ctx, seekerID, providerID, jobID)
}

// ConversationView pairs a conversation with its newest message.
type ConversationView struct {
	models.Conversation
	LastMessage *models.Message `json:"last_message,omitempty"`
}

// ListMine returns the user's conversations with their last messages.
func (s *ConversationService) ListMine(ctx context.Context, userID uuid.UUID) ([]ConversationView, error) {
	conversations, err := s.repo.ListMine(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]ConversationView, 0, len(conversations))
	for _, conv := range conversations {
		view := ConversationView{Conversation: conv}
		if last, err := s.repo.GetLastMessage(ctx, conv.ID); err == nil {
			view.LastMessage = last
		}
		views = append(views, view)
	}
	return views, nil
}

// SendMessage posts a user message into a conversation the user belongs to.
func (s *ConversationService) SendMessage(ctx context.Context, conversationID, authorID uuid.UUID, content string) (*models.Message, error) {
	if err := validation.ValidateLength("message", content, validation.MinMessageLength, validation.MaxMessageLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	conv, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if conv.SeekerID != authorID && conv.ProviderID != authorID {
		return nil, apperror.ErrForbidden
	}

	msg := &models.Message{
		ConversationID: conversationID,
		AuthorType:     models.MessageAuthorUser,
		AuthorID:       &authorID,
		Content:        content,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	recipient := conv.SeekerID
	if authorID == conv.SeekerID {
		recipient = conv.ProviderID
	}
	s.broadcast(recipient, "message.new", msg)

	return msg, nil
}

// ListMessages returns a conversation's messages to a participant.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID, userID uuid.UUID, limit, offset int) ([]models.Message, error) {
	conv, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if conv.SeekerID != userID && conv.ProviderID != userID {
		return nil, apperror.ErrForbidden
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListMessages(ctx, conversationID, limit, offset)
}

// EmitSystemMessage drops a machine-readable event into the job
// conversation between the two parties, creating the thread if needed.
func (s *ConversationService) EmitSystemMessage(ctx context.Context, jobID, seekerID, providerID uuid.UUID, systemType string, payload interface{}) error {
	conv, err := s.repo.GetOrCreate(ctx, seekerID, providerID, &jobID)
	if err != nil {
		return err
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("conversation service: marshal system payload %w", err)
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		AuthorType:     models.MessageAuthorSystem,
		Content:        systemMessageText(systemType),
		SystemType:     &systemType,
		Payload:        payloadBytes,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return err
	}

	s.broadcast(seekerID, "message.system", msg)
	s.broadcast(providerID, "message.system", msg)

	return nil
}

// systemMessageText is the human-readable fallback shown in clients that do
// not render the structured payload.
func systemMessageText(systemType string) string {
	switch systemType {
	case models.SystemMessageQuoteAccepted:
		return "Quote accepted. The job is now in progress."
	case models.SystemMessageEscrowFunded:
		return "Payment received and held in escrow."
	case models.SystemMessageEscrowReleased:
		return "Escrow funds released to the provider."
	case models.SystemMessageEscrowRefunded:
		return "Escrow funds refunded to the seeker."
	case models.SystemMessageEscrowDisputed:
		return "A dispute was opened on this payment."
	case models.SystemMessageJobStatus:
		return "The job status changed."
	default:
		return systemType
	}
}

func (s *ConversationService) broadcast(userID uuid.UUID, event string, data interface{}) {
	if s.hub == nil {
		return
	}
	if err := s.hub.BroadcastToUser(userID, event, data); err != nil {
		logger.Log.WithError(err).WithField("event", event).Debug("conversation service: ws broadcast")
	}
}
