package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/huddle-app/huddle-backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMessageStore struct {
	created      []models.Message
	createErr    error
	listResult   []models.Message
	listErr      error
	lastListedID string
}

func (s *stubMessageStore) Create(_ context.Context, message *models.Message) error {
	if s.createErr != nil {
		return s.createErr
	}
	message.Seq = int64(len(s.created) + 1)
	message.Timestamp = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	s.created = append(s.created, *message)
	return nil
}

func (s *stubMessageStore) ListForParticipant(_ context.Context, participantID string) ([]models.Message, error) {
	s.lastListedID = participantID
	return s.listResult, s.listErr
}

func (s *stubMessageStore) ListByConversation(_ context.Context, conversationID string) ([]models.Message, error) {
	s.lastListedID = conversationID
	return s.listResult, s.listErr
}

type stubRecordReader struct {
	records map[string]*models.Document
	err     error
}

func (s *stubRecordReader) Get(_ context.Context, collection, id string) (*models.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	data, ok := s.records[collection+"/"+id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &models.Record{Collection: collection, ID: id, Data: data}, nil
}

type stubLimiter struct {
	allowed bool
	err     error
	scopes  []string
}

func (s *stubLimiter) Allow(_ context.Context, scope string) (bool, error) {
	s.scopes = append(s.scopes, scope)
	return s.allowed, s.err
}

func newChatFixture(t *testing.T) (*ChatService, *stubMessageStore) {
	t.Helper()
	store := &stubMessageStore{}
	records := &stubRecordReader{records: map[string]*models.Document{
		"users/u1": mustDocument(t, `{"firstName":"Ava","lastName":"Cole","role":"athlete"}`),
		"users/u2": mustDocument(t, `{"name":"Coach Kim","role":"coach"}`),
		"users/p1": mustDocument(t, `{"role":"parent"}`),
	}}
	return NewChatService(store, records, nil, nil, nil), store
}

func TestSendMessageDenormalizesNames(t *testing.T) {
	service, store := newChatFixture(t)

	message, err := service.SendMessage(context.Background(), Viewer{ID: "u2", Role: models.RoleCoach}, SendMessageInput{
		ReceiverID:   "u1",
		ReceiverRole: "athlete",
		Content:      "  practice at 5  ",
	})
	require.NoError(t, err)

	assert.Equal(t, "practice at 5", message.Content)
	assert.Equal(t, "u1_u2", message.ConversationID)
	assert.Equal(t, []string{"u2", "u1"}, message.Participants)
	assert.Equal(t, "Coach Kim", message.SenderName)
	assert.Equal(t, "coach", message.SenderRole)
	assert.Equal(t, "Ava Cole", message.ReceiverName)
	assert.Equal(t, "athlete", message.ReceiverRole)
	assert.NotEmpty(t, message.ID)
	require.Len(t, store.created, 1)
}

func TestSendMessageConversationIDMatchesEitherDirection(t *testing.T) {
	service, _ := newChatFixture(t)

	forward, err := service.SendMessage(context.Background(), Viewer{ID: "u1"}, SendMessageInput{ReceiverID: "u2", Content: "hi"})
	require.NoError(t, err)
	backward, err := service.SendMessage(context.Background(), Viewer{ID: "u2"}, SendMessageInput{ReceiverID: "u1", Content: "hey"})
	require.NoError(t, err)

	assert.Equal(t, forward.ConversationID, backward.ConversationID)
}

func TestSendMessageRejectsInvalidInput(t *testing.T) {
	service, store := newChatFixture(t)

	cases := []SendMessageInput{
		{ReceiverID: "u2", Content: "   "},
		{ReceiverID: "", Content: "hi"},
		{ReceiverID: "u1", Content: "talking to myself"},
	}
	for _, input := range cases {
		_, err := service.SendMessage(context.Background(), Viewer{ID: "u1"}, input)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	assert.Empty(t, store.created)
}

func TestSendMessageUnknownReceiver(t *testing.T) {
	service, _ := newChatFixture(t)

	_, err := service.SendMessage(context.Background(), Viewer{ID: "u1"}, SendMessageInput{ReceiverID: "ghost", Content: "hi"})

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSendMessageUnknownSenderFallsBackToUser(t *testing.T) {
	service, _ := newChatFixture(t)

	message, err := service.SendMessage(context.Background(), Viewer{ID: "new", Role: models.RoleAthlete}, SendMessageInput{ReceiverID: "p1", Content: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "User", message.SenderName)
	assert.Equal(t, "athlete", message.SenderRole)
	assert.Equal(t, "Parent", message.ReceiverName)
}

func TestSendMessageRateLimited(t *testing.T) {
	service, store := newChatFixture(t)
	limiter := &stubLimiter{allowed: false}
	service.limiter = limiter

	_, err := service.SendMessage(context.Background(), Viewer{ID: "u1"}, SendMessageInput{ReceiverID: "u2", Content: "hi"})

	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, []string{"messages:u1"}, limiter.scopes)
	assert.Empty(t, store.created)
}

func TestSendMessageLimiterFailureFailsOpen(t *testing.T) {
	service, store := newChatFixture(t)
	service.limiter = &stubLimiter{err: errors.New("redis down")}

	_, err := service.SendMessage(context.Background(), Viewer{ID: "u1"}, SendMessageInput{ReceiverID: "u2", Content: "hi"})

	require.NoError(t, err)
	assert.Len(t, store.created, 1)
}

func TestInboxAggregatesSnapshot(t *testing.T) {
	service, store := newChatFixture(t)
	store.listResult = []models.Message{
		buildMessage(2, "u2", "coach", "", "u1", "athlete", "Ava", 2*time.Minute),
		buildMessage(1, "u1", "athlete", "Ava", "u2", "coach", "User", time.Minute),
	}

	conversations, err := service.Inbox(context.Background(), Viewer{ID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, "u1", store.lastListedID)
	require.Len(t, conversations, 1)
	assert.Equal(t, "Coach Kim", conversations[0].OtherParty.Name)
	assert.Equal(t, "coach", conversations[0].OtherParty.Role)
}

func TestInboxPropagatesStoreErrors(t *testing.T) {
	service, store := newChatFixture(t)
	store.listErr = errors.New("timeout")

	_, err := service.Inbox(context.Background(), Viewer{ID: "u1"})

	assert.EqualError(t, err, "timeout")
}

func TestConversationMessagesRequiresParticipant(t *testing.T) {
	service, store := newChatFixture(t)
	store.listResult = []models.Message{
		buildMessage(1, "u1", "athlete", "Ava", "u2", "coach", "Kim", time.Minute),
	}

	messages, err := service.ConversationMessages(context.Background(), Viewer{ID: "u2"}, "u1_u2")
	require.NoError(t, err)
	assert.Len(t, messages, 1)

	_, err = service.ConversationMessages(context.Background(), Viewer{ID: "u3"}, "u1_u2")
	assert.ErrorIs(t, err, ErrNotFound)

	store.listResult = nil
	_, err = service.ConversationMessages(context.Background(), Viewer{ID: "u1"}, "u1_u9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupPartyUsesRecordRole(t *testing.T) {
	service, _ := newChatFixture(t)

	party, err := service.LookupParty(context.Background(), "u2", "athlete")
	require.NoError(t, err)

	assert.Equal(t, models.Party{ID: "u2", Role: "coach", Name: "Coach Kim"}, party)
}
