package services

import (
	"context"
	"sort"
	"strings"

	"github.com/huddle-app/huddle-backend/internal/models"
)

const fallbackPartyName = "User"

// Viewer is the authenticated session the inbox is computed for.
type Viewer struct {
	ID   string
	Role models.Role
}

// PartyLookup resolves a conversation partner when no message carries a
// usable cached name.
type PartyLookup interface {
	LookupParty(ctx context.Context, id string, role string) (models.Party, error)
}

// ConversationID is the canonical two-party id: both ids sorted and joined
// with "_".
func ConversationID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "_" + b
}

// AggregateConversations groups the viewer's messages into conversations,
// newest conversation first. It recomputes everything from msgs and never
// fails; lookup may be nil.
func AggregateConversations(
	ctx context.Context,
	viewer Viewer,
	msgs []models.Message,
	lookup PartyLookup,
) []models.Conversation {
	order := make([]string, 0)
	partitions := make(map[string][]models.Message)
	for _, message := range msgs {
		if !involves(message, viewer.ID) {
			continue
		}
		if _, seen := partitions[message.ConversationID]; !seen {
			order = append(order, message.ConversationID)
		}
		partitions[message.ConversationID] = append(partitions[message.ConversationID], message)
	}

	conversations := make([]models.Conversation, 0, len(order))
	for _, id := range order {
		messages := partitions[id]
		sort.SliceStable(messages, func(i, j int) bool {
			if !messages[i].Timestamp.Equal(messages[j].Timestamp) {
				return messages[i].Timestamp.Before(messages[j].Timestamp)
			}
			return messages[i].Seq < messages[j].Seq
		})

		conversations = append(conversations, models.Conversation{
			ID:            id,
			Messages:      messages,
			LatestMessage: messages[len(messages)-1],
			OtherParty:    resolveOtherParty(ctx, viewer, messages, lookup),
		})
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		left := conversations[i].LatestMessage.Timestamp
		right := conversations[j].LatestMessage.Timestamp
		if !left.Equal(right) {
			return left.After(right)
		}
		return conversations[i].ID < conversations[j].ID
	})

	return conversations
}

// involves prefers the participants set and falls back to sender/receiver
// when the set is malformed.
func involves(message models.Message, viewerID string) bool {
	if len(message.Participants) == 2 {
		return message.Participants[0] == viewerID || message.Participants[1] == viewerID
	}
	return message.SenderID == viewerID || message.ReceiverID == viewerID
}

// otherPartyID reads the participants of the first message. A malformed set
// falls back to the first message's sender/receiver.
func otherPartyID(viewerID string, first models.Message) string {
	if len(first.Participants) == 2 {
		for _, participant := range first.Participants {
			if participant != viewerID {
				return participant
			}
		}
		// Both entries name the viewer.
		return viewerID
	}
	if first.SenderID != viewerID {
		return first.SenderID
	}
	return first.ReceiverID
}

func resolveOtherParty(
	ctx context.Context,
	viewer Viewer,
	messages []models.Message,
	lookup PartyLookup,
) models.Party {
	party := models.Party{ID: otherPartyID(viewer.ID, messages[0])}

	for i := len(messages) - 1; i >= 0; i-- {
		message := messages[i]

		var name, role string
		switch party.ID {
		case message.SenderID:
			name, role = message.SenderName, message.SenderRole
		case message.ReceiverID:
			name, role = message.ReceiverName, message.ReceiverRole
		default:
			continue
		}

		if party.Role == "" {
			party.Role = role
		}
		if !isPlaceholderName(name) {
			party.Name = strings.TrimSpace(name)
			return party
		}
	}

	if lookup != nil && party.ID != "" {
		resolved, err := lookup.LookupParty(ctx, party.ID, party.Role)
		if err == nil {
			if resolved.Role != "" {
				party.Role = resolved.Role
			}
			if !isPlaceholderName(resolved.Name) {
				party.Name = strings.TrimSpace(resolved.Name)
				return party
			}
		}
	}

	party.Name = fallbackPartyName
	return party
}

// Names that clients wrote as stand-ins are not treated as cached names.
func isPlaceholderName(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "user", "you", "unknown user":
		return true
	default:
		return false
	}
}
