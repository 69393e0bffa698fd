package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const MessagesChannel = "messages_changed"

// MessageNotification is the payload published by the messages insert trigger.
type MessageNotification struct {
	ConversationID string   `json:"conversationId"`
	Participants   []string `json:"participants"`
}

// MessageListener holds one pooled connection in LISTEN for as long as
// Listen runs.
type MessageListener struct {
	pool *pgxpool.Pool
}

func NewMessageListener(pool *pgxpool.Pool) *MessageListener {
	return &MessageListener{pool: pool}
}

// Listen blocks until ctx is done or the connection fails, calling handle for
// every notification. Malformed payloads are skipped.
func (l *MessageListener) Listen(ctx context.Context, handle func(MessageNotification)) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+MessagesChannel); err != nil {
		return fmt.Errorf("listen %s: %w", MessagesChannel, err)
	}
	defer func() {
		_, _ = conn.Exec(context.Background(), "UNLISTEN "+MessagesChannel)
	}()

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("wait for notification: %w", err)
		}

		var payload MessageNotification
		if err := json.Unmarshal([]byte(notification.Payload), &payload); err != nil {
			continue
		}
		handle(payload)
	}
}
