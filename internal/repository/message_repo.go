package repository

import (
	"context"

	"github.com/huddle-app/huddle-backend/internal/models"
	"github.com/jackc/pgx/v5"
)

const messageColumns = `
	seq, id, sender_id, sender_role, sender_name, receiver_id, receiver_role,
	receiver_name, content, timestamp, conversation_id, participants
`

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create appends a message. The store assigns timestamp and seq; the insert
// trigger notifies listeners of the participants.
func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	query := `
		INSERT INTO messages (
			id, sender_id, sender_role, sender_name, receiver_id, receiver_role,
			receiver_name, content, conversation_id, participants
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING seq, timestamp
	`

	return r.db.QueryRow(
		ctx,
		query,
		message.ID,
		message.SenderID,
		message.SenderRole,
		message.SenderName,
		message.ReceiverID,
		message.ReceiverRole,
		message.ReceiverName,
		message.Content,
		message.ConversationID,
		message.Participants,
	).Scan(&message.Seq, &message.Timestamp)
}

// ListForParticipant is the inbox live query: every message naming the
// participant, newest first.
func (r *MessageRepository) ListForParticipant(ctx context.Context, participantID string) ([]models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE participants @> ARRAY[$1]::text[]
		ORDER BY timestamp DESC, seq DESC
	`

	rows, err := r.db.Query(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

// ListByConversation returns one conversation's messages oldest first.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1
		ORDER BY timestamp ASC, seq ASC
	`

	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func collectMessages(rows pgx.Rows) ([]models.Message, error) {
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var message models.Message
		if err := rows.Scan(
			&message.Seq,
			&message.ID,
			&message.SenderID,
			&message.SenderRole,
			&message.SenderName,
			&message.ReceiverID,
			&message.ReceiverRole,
			&message.ReceiverName,
			&message.Content,
			&message.Timestamp,
			&message.ConversationID,
			&message.Participants,
		); err != nil {
			return nil, err
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
