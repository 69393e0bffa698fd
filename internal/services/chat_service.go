package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huddle-app/huddle-backend/internal/logger"
	"github.com/huddle-app/huddle-backend/internal/metrics"
	"github.com/huddle-app/huddle-backend/internal/models"
	"github.com/jackc/pgx/v5"
)

const maxMessageLength = 4000

type messageStore interface {
	Create(ctx context.Context, message *models.Message) error
	ListForParticipant(ctx context.Context, participantID string) ([]models.Message, error)
	ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error)
}

type recordReader interface {
	Get(ctx context.Context, collection, id string) (*models.Record, error)
}

type sendLimiter interface {
	Allow(ctx context.Context, scope string) (bool, error)
}

type ChatService struct {
	messages messageStore
	records  recordReader
	limiter  sendLimiter
	metrics  *metrics.ChatMetrics
	log      *logger.Logger
	now      func() time.Time
}

type SendMessageInput struct {
	ReceiverID   string
	ReceiverRole string
	Content      string
}

func NewChatService(
	messages messageStore,
	records recordReader,
	limiter sendLimiter,
	chatMetrics *metrics.ChatMetrics,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		messages: messages,
		records:  records,
		limiter:  limiter,
		metrics:  chatMetrics,
		log:      log,
		now:      time.Now,
	}
}

// SendMessage appends a message from viewer. Names are denormalized onto the
// message at send time.
func (s *ChatService) SendMessage(ctx context.Context, viewer Viewer, input SendMessageInput) (*models.Message, error) {
	content := strings.TrimSpace(input.Content)
	receiverID := strings.TrimSpace(input.ReceiverID)
	if viewer.ID == "" || receiverID == "" || content == "" || len(content) > maxMessageLength {
		s.metrics.IncRejected("invalid")
		return nil, ErrInvalidInput
	}
	if receiverID == viewer.ID {
		s.metrics.IncRejected("self")
		return nil, ErrInvalidInput
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "messages:"+viewer.ID)
		switch {
		case err != nil:
			s.log.Error(s.log.WithUserID(ctx, viewer.ID), "message rate limit check failed", err)
		case !allowed:
			s.metrics.IncRejected("rate_limited")
			return nil, ErrRateLimited
		}
	}

	sender, err := s.LookupParty(ctx, viewer.ID, string(viewer.Role))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	receiver, err := s.LookupParty(ctx, receiverID, input.ReceiverRole)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.IncRejected("unknown_receiver")
		}
		return nil, err
	}

	message := &models.Message{
		ID:             uuid.NewString(),
		SenderID:       viewer.ID,
		SenderRole:     sender.Role,
		SenderName:     sender.Name,
		ReceiverID:     receiver.ID,
		ReceiverRole:   receiver.Role,
		ReceiverName:   receiver.Name,
		Content:        content,
		ConversationID: ConversationID(viewer.ID, receiver.ID),
		Participants:   []string{viewer.ID, receiver.ID},
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, err
	}

	s.metrics.IncMessagesSent()
	return message, nil
}

// Inbox runs the participant query and aggregates the full snapshot.
func (s *ChatService) Inbox(ctx context.Context, viewer Viewer) ([]models.Conversation, error) {
	if viewer.ID == "" {
		return nil, ErrInvalidInput
	}

	started := s.now()
	messages, err := s.messages.ListForParticipant(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}

	conversations := AggregateConversations(ctx, viewer, messages, s)
	s.metrics.ObserveInbox(s.now().Sub(started))
	return conversations, nil
}

// ConversationMessages returns ErrNotFound both for unknown conversations
// and for conversations the viewer is not part of.
func (s *ChatService) ConversationMessages(ctx context.Context, viewer Viewer, conversationID string) ([]models.Message, error) {
	conversationID = strings.TrimSpace(conversationID)
	if viewer.ID == "" || conversationID == "" {
		return nil, ErrInvalidInput
	}

	messages, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 || !involves(messages[0], viewer.ID) {
		return nil, ErrNotFound
	}

	return messages, nil
}

// LookupParty resolves a user's display name and role from the users
// collection. The role on record wins over the hinted one.
func (s *ChatService) LookupParty(ctx context.Context, id string, role string) (models.Party, error) {
	party := models.Party{ID: id, Role: role, Name: fallbackPartyName}

	record, err := s.records.Get(ctx, models.UsersCollection, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return party, ErrNotFound
		}
		return party, err
	}

	resolvedRole := record.Role()
	if resolvedRole == "" {
		if hinted, ok := models.ParseRole(role); ok {
			resolvedRole = hinted
		}
	}
	if resolvedRole != "" {
		party.Role = string(resolvedRole)
	}
	party.Name = ResolveDisplayName(record.Data, resolvedRole)
	return party, nil
}
