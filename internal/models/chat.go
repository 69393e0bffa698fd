package models

import "time"

// Message mirrors the persisted message document. Field names are part of the
// wire contract shared with existing clients.
type Message struct {
	ID             string    `json:"id"`
	SenderID       string    `json:"senderId"`
	SenderRole     string    `json:"senderRole"`
	SenderName     string    `json:"senderName"`
	ReceiverID     string    `json:"receiverId"`
	ReceiverRole   string    `json:"receiverRole"`
	ReceiverName   string    `json:"receiverName"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversationId"`
	Participants   []string  `json:"participants"`

	// Seq is the store's insertion sequence, used to break timestamp ties.
	Seq int64 `json:"-"`
}

type Party struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Name string `json:"name"`
}

// Conversation is derived from the message log and never persisted.
type Conversation struct {
	ID            string    `json:"id"`
	Messages      []Message `json:"messages"`
	LatestMessage Message   `json:"latestMessage"`
	OtherParty    Party     `json:"otherParty"`
}
