package chatws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/huddle-app/huddle-backend/internal/logger"
	"github.com/huddle-app/huddle-backend/internal/models"
	"github.com/huddle-app/huddle-backend/internal/services"
)

const sendTimeout = 10 * time.Second

// Hub fans inbox snapshots out to every socket of a user. The first socket of
// a user opens one feed subscription; the last one to leave closes it.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	unsubs     map[string]func()
	register   chan *Client
	unregister chan *Client
	broadcast  chan *outbound
	replies    chan *reply
	done       chan struct{}
	feed       inboxSubscriber
	log        *logger.Logger
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	viewer services.Viewer
	send   chan []byte
}

type inboxSubscriber interface {
	Subscribe(ctx context.Context, viewer services.Viewer, deliver func([]models.Conversation)) func()
	Notify(userIDs ...string)
}

type sender interface {
	SendMessage(ctx context.Context, viewer services.Viewer, input services.SendMessageInput) (*models.Message, error)
}

type outbound struct {
	userID  string
	payload []byte
}

type reply struct {
	client  *Client
	payload []byte
}

type InboxEvent struct {
	Type          string                `json:"type"`
	Conversations []models.Conversation `json:"conversations"`
}

type MessageEvent struct {
	Type    string          `json:"type"`
	Message *models.Message `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type incomingMessage struct {
	Type         string `json:"type"`
	ReceiverID   string `json:"receiver_id"`
	ReceiverRole string `json:"receiver_role"`
	Content      string `json:"content"`
}

func NewHub(feed inboxSubscriber, log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		unsubs:     make(map[string]func()),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *outbound, 64),
		replies:    make(chan *reply, 64),
		done:       make(chan struct{}),
		feed:       feed,
		log:        log,
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, viewer services.Viewer) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		viewer: viewer,
		send:   make(chan []byte, 32),
	}
}

// Run owns the client registry until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.add(ctx, client)
		case client := <-h.unregister:
			h.remove(client)
		case message := <-h.broadcast:
			h.sendToUser(message.userID, message.payload)
		case message := <-h.replies:
			h.sendToClient(message.client, message.payload)
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// PublishInbox queues a snapshot for every socket of userID.
func (h *Hub) PublishInbox(userID string, conversations []models.Conversation) {
	if conversations == nil {
		conversations = []models.Conversation{}
	}
	payload, err := json.Marshal(InboxEvent{Type: "inbox", Conversations: conversations})
	if err != nil {
		h.log.Error(context.Background(), "chat hub encode inbox", err)
		return
	}

	select {
	case h.broadcast <- &outbound{userID: userID, payload: payload}:
	case <-h.done:
	}
}

func (h *Hub) add(ctx context.Context, client *Client) {
	userID := client.viewer.ID
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[userID] = set
	}
	set[client] = struct{}{}

	if h.feed == nil {
		return
	}
	if _, subscribed := h.unsubs[userID]; subscribed {
		// The new socket needs a snapshot too.
		h.feed.Notify(userID)
		return
	}
	h.unsubs[userID] = h.feed.Subscribe(ctx, client.viewer, func(conversations []models.Conversation) {
		h.PublishInbox(userID, conversations)
	})
}

func (h *Hub) remove(client *Client) {
	userID := client.viewer.ID
	set, ok := h.clients[userID]
	if !ok {
		return
	}
	if _, exists := set[client]; exists {
		delete(set, client)
		close(client.send)
	}
	if len(set) == 0 {
		delete(h.clients, userID)
		h.release(userID)
	}
}

// release must not block the loop: unsubscribing waits for an in-flight
// refresh that may itself be publishing to this hub.
func (h *Hub) release(userID string) {
	unsubscribe, ok := h.unsubs[userID]
	if !ok {
		return
	}
	delete(h.unsubs, userID)
	go unsubscribe()
}

func (h *Hub) sendToUser(userID string, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- payload:
		default:
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, userID)
		h.release(userID)
	}
}

// sendToClient only writes to clients still registered, so a socket dropped
// for a full buffer never sees a send on its closed channel.
func (h *Hub) sendToClient(client *Client, payload []byte) {
	set, ok := h.clients[client.viewer.ID]
	if !ok {
		return
	}
	if _, registered := set[client]; !registered {
		return
	}
	select {
	case client.send <- payload:
	default:
		h.remove(client)
	}
}

func (h *Hub) shutdown() {
	for userID, set := range h.clients {
		for client := range set {
			close(client.send)
		}
		delete(h.clients, userID)
	}
	for userID, unsubscribe := range h.unsubs {
		delete(h.unsubs, userID)
		go unsubscribe()
	}
}

func (c *Client) ReadPump(service sender) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming incomingMessage
		if err := json.Unmarshal(payload, &incoming); err != nil {
			writeError(c, "invalid message payload")
			continue
		}
		if incoming.Type != "message" {
			writeError(c, "unsupported message type")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		message, err := service.SendMessage(ctx, c.viewer, services.SendMessageInput{
			ReceiverID:   incoming.ReceiverID,
			ReceiverRole: incoming.ReceiverRole,
			Content:      incoming.Content,
		})
		cancel()
		if err != nil {
			writeError(c, sendErrorMessage(err))
			continue
		}

		writeEvent(c, MessageEvent{Type: "sent", Message: message})
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func sendErrorMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return "invalid message"
	case errors.Is(err, services.ErrNotFound):
		return "recipient not found"
	case errors.Is(err, services.ErrRateLimited):
		return "too many messages, slow down"
	default:
		return "failed to send message"
	}
}

func writeError(client *Client, message string) {
	writeEvent(client, MessageEvent{Type: "error", Error: message})
}

func writeEvent(client *Client, event MessageEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case client.hub.replies <- &reply{client: client, payload: payload}:
	case <-client.hub.done:
	}
}
