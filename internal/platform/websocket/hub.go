// Package websocket streams live vitals, alert, and notification events to
// connected apps. Clients subscribe to topics after connecting; services
// publish events to a topic and the hub fans them out.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Event is one message pushed to subscribers of a topic.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// VitalsTopic carries live snapshot events for a patient. Patient apps
// subscribe to their own topic; caretaker apps subscribe to the topics of
// every linked patient.
func VitalsTopic(patientID string) string {
	return fmt.Sprintf("vitals:%s", patientID)
}

// AlertsTopic carries alert lifecycle events for a patient.
func AlertsTopic(patientID string) string {
	return fmt.Sprintf("alerts:%s", patientID)
}

// NotificationsTopic carries fan-out notifications for a caretaker.
func NotificationsTopic(caretakerID string) string {
	return fmt.Sprintf("notifications:%s", caretakerID)
}

// ClientMessage is an inbound subscription command from a client.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// EventPublisher is the side of the hub the domain services see.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Client is one connected app. Send is drained by the connection's write
// pump; the hub never writes to the socket directly.
type Client struct {
	ID     string
	Send   chan []byte
	topics map[string]struct{}
}

// NewClient returns a client with a buffered send queue. sendBuffer trades
// memory for tolerance of slow readers; events beyond it are dropped for
// that client rather than stalling the hub.
func NewClient(id string) *Client {
	return &Client{
		ID:     id,
		Send:   make(chan []byte, sendBuffer),
		topics: make(map[string]struct{}),
	}
}

const sendBuffer = 256

// Topics returns the client's current subscriptions. Callers must hold no
// expectation of order.
func (c *Client) Topics() []string {
	out := make([]string, 0, len(c.topics))
	for t := range c.topics {
		out = append(out, t)
	}
	return out
}

// Hub indexes clients by topic and fans events out. All methods are safe for
// concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	byTopic map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		byTopic: make(map[string]map[*Client]struct{}),
	}
}

// Register adds a connected client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = struct{}{}
	for topic := range client.topics {
		h.index(topic, client)
	}
}

// Unregister drops the client from every topic and closes its send queue.
// Safe to call more than once.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for topic := range client.topics {
		h.unindex(topic, client)
	}
	close(client.Send)
}

// Subscribe adds topics to a registered client.
func (h *Hub) Subscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, topic := range topics {
		client.topics[topic] = struct{}{}
		h.index(topic, client)
	}
}

// Unsubscribe removes topics from a registered client.
func (h *Hub) Unsubscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, topic := range topics {
		delete(client.topics, topic)
		h.unindex(topic, client)
	}
}

// index and unindex maintain the topic map; callers hold h.mu.

func (h *Hub) index(topic string, client *Client) {
	set, ok := h.byTopic[topic]
	if !ok {
		set = make(map[*Client]struct{})
		h.byTopic[topic] = set
	}
	set[client] = struct{}{}
}

func (h *Hub) unindex(topic string, client *Client) {
	set, ok := h.byTopic[topic]
	if !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.byTopic, topic)
	}
}

// ProcessMessage applies a client's subscription command. Unknown actions
// are ignored.
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		h.Subscribe(client, msg.Topics)
	case "unsubscribe":
		h.Unsubscribe(client, msg.Topics)
	}
}

// Broadcast fans the event out to the topic's subscribers. A client whose
// queue is full misses the event; vitals streams are periodic, so the next
// snapshot catches it up.
func (h *Hub) Broadcast(topic string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.byTopic[topic] {
		select {
		case client.Send <- data:
		default:
		}
	}
}

// BroadcastAll sends the event to every connected client.
func (h *Hub) BroadcastAll(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.Send <- data:
		default:
		}
	}
}

// Publish satisfies EventPublisher by broadcasting to the event's own topic.
func (h *Hub) Publish(_ context.Context, event Event) error {
	h.Broadcast(event.Topic, event)
	return nil
}

// ClientCount reports connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TopicCount reports subscribers of one topic.
func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byTopic[topic])
}
