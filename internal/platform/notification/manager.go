// Package notification delivers caretaker email and SMS messages rendered
// from templates. Delivery attempts are recorded in memory so operators can
// inspect and retry failures; durable alert state lives in the database, not
// here.
package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NotificationType is the delivery channel.
type NotificationType string

const (
	TypeEmail NotificationType = "email"
	TypeSMS   NotificationType = "sms"
)

// Delivery statuses.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Notification is one outbound message and its delivery outcome.
type Notification struct {
	ID           string            `json:"id"`
	Type         NotificationType  `json:"type"`
	Recipient    string            `json:"recipient"`
	Subject      string            `json:"subject,omitempty"`
	Body         string            `json:"body"`
	TemplateID   string            `json:"templateId,omitempty"`
	TemplateData map[string]string `json:"templateData,omitempty"`
	Status       string            `json:"status"`
	CreatedAt    time.Time         `json:"createdAt"`
	SentAt       *time.Time        `json:"sentAt,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// EmailSender delivers one email message.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers one SMS message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// NotificationManager renders, dispatches, and records notifications.
type NotificationManager struct {
	emailSender EmailSender
	smsSender   SMSSender
	templates   *TemplateEngine

	mu   sync.RWMutex
	sent map[string]*Notification
}

// NewNotificationManager wires the senders and template engine together.
func NewNotificationManager(email EmailSender, sms SMSSender, tpl *TemplateEngine) *NotificationManager {
	return &NotificationManager{
		emailSender: email,
		smsSender:   sms,
		templates:   tpl,
		sent:        make(map[string]*Notification),
	}
}

func (m *NotificationManager) dispatch(ctx context.Context, n *Notification) error {
	switch n.Type {
	case TypeEmail:
		return m.emailSender.SendEmail(ctx, n.Recipient, n.Subject, n.Body)
	case TypeSMS:
		return m.smsSender.SendSMS(ctx, n.Recipient, n.Body)
	default:
		return fmt.Errorf("unsupported notification type %q", n.Type)
	}
}

// Send dispatches the notification and records the attempt. Failed sends are
// kept with their error so they can be retried later.
func (m *NotificationManager) Send(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()
	n.Status = StatusPending

	sendErr := m.dispatch(ctx, n)
	if sendErr != nil {
		n.Status = StatusFailed
		n.Error = sendErr.Error()
	} else {
		n.Status = StatusSent
		at := time.Now().UTC()
		n.SentAt = &at
	}

	m.mu.Lock()
	m.sent[n.ID] = n
	m.mu.Unlock()

	return sendErr
}

// SendFromTemplate renders templateID with data and sends the result on the
// channel the template declares. The notification record is returned even
// when delivery fails.
func (m *NotificationManager) SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*Notification, error) {
	tpl, ok := m.templates.lookup(templateID)
	if !ok {
		return nil, fmt.Errorf("template %q not found", templateID)
	}
	subject, body, err := m.templates.Render(templateID, data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	n := &Notification{
		Type:         tpl.Type,
		Recipient:    recipient,
		Subject:      subject,
		Body:         body,
		TemplateID:   templateID,
		TemplateData: data,
	}
	if err := m.Send(ctx, n); err != nil {
		return n, err
	}
	return n, nil
}

// GetNotification returns a recorded delivery attempt by id.
func (m *NotificationManager) GetNotification(_ context.Context, id string) (*Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.sent[id]
	if !ok {
		return nil, fmt.Errorf("notification %q not found", id)
	}
	return n, nil
}

// ListByRecipient returns up to limit recorded attempts for one recipient.
func (m *NotificationManager) ListByRecipient(_ context.Context, recipient string, limit int) ([]*Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Notification, 0, limit)
	for _, n := range m.sent {
		if n.Recipient != recipient {
			continue
		}
		out = append(out, n)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Retry re-dispatches a failed notification in place.
func (m *NotificationManager) Retry(ctx context.Context, id string) error {
	m.mu.RLock()
	n, ok := m.sent[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("notification %q not found", id)
	}
	if n.Status != StatusFailed {
		return fmt.Errorf("notification %q is %s, only failed sends can be retried", id, n.Status)
	}

	sendErr := m.dispatch(ctx, n)

	m.mu.Lock()
	defer m.mu.Unlock()
	if sendErr != nil {
		n.Error = sendErr.Error()
		return sendErr
	}
	n.Status = StatusSent
	n.Error = ""
	at := time.Now().UTC()
	n.SentAt = &at
	return nil
}

// NotificationStats counts recorded attempts by status.
func (m *NotificationManager) NotificationStats(_ context.Context) map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]int)
	for _, n := range m.sent {
		stats[n.Status]++
	}
	return stats
}
