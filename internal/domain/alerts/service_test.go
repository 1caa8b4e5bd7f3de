package alerts

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/S-tej/LDPS/internal/domain/identity"
	"github.com/S-tej/LDPS/internal/platform/notification"
	"github.com/S-tej/LDPS/internal/platform/websocket"
)

type mockAlertRepo struct {
	alerts map[uuid.UUID]*Alert
}

func newMockAlertRepo() *mockAlertRepo {
	return &mockAlertRepo{alerts: make(map[uuid.UUID]*Alert)}
}

func (m *mockAlertRepo) Create(_ context.Context, a *Alert) error {
	cp := *a
	m.alerts[a.ID] = &cp
	return nil
}

func (m *mockAlertRepo) Get(_ context.Context, patientID string, id uuid.UUID) (*Alert, error) {
	a, ok := m.alerts[id]
	if !ok || a.PatientID != patientID {
		return nil, ErrAlertNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAlertRepo) Acknowledge(_ context.Context, patientID string, id uuid.UUID) error {
	a, ok := m.alerts[id]
	if !ok || a.PatientID != patientID {
		return ErrAlertNotFound
	}
	a.Acknowledged = true
	return nil
}

func (m *mockAlertRepo) Delete(_ context.Context, patientID string, id uuid.UUID) error {
	a, ok := m.alerts[id]
	if !ok || a.PatientID != patientID {
		return ErrAlertNotFound
	}
	delete(m.alerts, id)
	return nil
}

func (m *mockAlertRepo) ListByPatient(_ context.Context, patientID string, limit int) ([]*Alert, error) {
	result := []*Alert{}
	for _, a := range m.alerts {
		if a.PatientID == patientID {
			cp := *a
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp > result[j].Timestamp })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type mockNotificationRepo struct {
	notifications map[uuid.UUID]*Notification
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{notifications: make(map[uuid.UUID]*Notification)}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *Notification) error {
	cp := *n
	m.notifications[n.ID] = &cp
	return nil
}

func (m *mockNotificationRepo) ListByCaretaker(_ context.Context, caretakerID string, limit int) ([]*Notification, error) {
	result := []*Notification{}
	for _, n := range m.notifications {
		if n.Caretaker == caretakerID {
			cp := *n
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp > result[j].Timestamp })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, caretakerID string, id uuid.UUID) error {
	n, ok := m.notifications[id]
	if !ok || n.Caretaker != caretakerID {
		return ErrNotificationNotFound
	}
	n.Read = true
	return nil
}

type mockDirectory struct {
	caretakers map[string][]*identity.Profile
	profiles   map[string]*identity.Profile
}

func (m *mockDirectory) GetProfile(_ context.Context, uid string) (*identity.Profile, error) {
	if p, ok := m.profiles[uid]; ok {
		return p, nil
	}
	return nil, identity.ErrProfileNotFound
}

func (m *mockDirectory) ListCaretakers(_ context.Context, patientID string) ([]*identity.Profile, error) {
	return m.caretakers[patientID], nil
}

type recordingPublisher struct {
	events []websocket.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev websocket.Event) error {
	p.events = append(p.events, ev)
	return nil
}

type fixture struct {
	svc           *Service
	alerts        *mockAlertRepo
	notifications *mockNotificationRepo
	publisher     *recordingPublisher
	email         *notification.MockEmailSender
	sms           *notification.MockSMSSender
}

func newFixture(caretakers ...*identity.Profile) *fixture {
	f := &fixture{
		alerts:        newMockAlertRepo(),
		notifications: newMockNotificationRepo(),
		publisher:     &recordingPublisher{},
		email:         &notification.MockEmailSender{},
		sms:           &notification.MockSMSSender{},
	}
	dir := &mockDirectory{
		caretakers: map[string][]*identity.Profile{"p1": caretakers},
		profiles: map[string]*identity.Profile{
			"p1": {UID: "p1", DisplayName: "Pat Example"},
		},
	}
	notifier := notification.NewNotificationManager(f.email, f.sms, notification.NewTemplateEngine())
	f.svc = NewService(f.alerts, f.notifications, dir, nil, f.publisher, notifier, zerolog.Nop())
	return f
}

func caretaker(uid, email, phone string) *identity.Profile {
	return &identity.Profile{
		UID:         uid,
		DisplayName: "Caretaker " + uid,
		Email:       email,
		PhoneNumber: phone,
		IsCaretaker: true,
	}
}

func TestTriggerAlert_FanOut(t *testing.T) {
	f := newFixture(
		caretaker("c1", "c1@example.com", ""),
		caretaker("c2", "c2@example.com", ""),
	)

	sign := "heartRate"
	value := 132.0
	alert, err := f.svc.TriggerAlert(context.Background(), "p1", Input{
		Type:      TypeCritical,
		Message:   "Elevated heart rate: 132 bpm",
		VitalSign: &sign,
		Value:     &value,
	})
	if err != nil {
		t.Fatalf("TriggerAlert: %v", err)
	}
	if alert.Acknowledged {
		t.Error("new alert must start unacknowledged")
	}
	if alert.Timestamp == 0 {
		t.Error("expected timestamp to be stamped")
	}

	if got := len(f.notifications.notifications); got != 2 {
		t.Errorf("expected 2 fan-out notifications, got %d", got)
	}
	for _, n := range f.notifications.notifications {
		if n.Read {
			t.Error("fan-out notification must start unread")
		}
		if n.AlertType != TypeCritical || n.Message != alert.Message {
			t.Errorf("notification does not mirror alert: %+v", n)
		}
	}

	if got := len(f.email.Calls()); got != 2 {
		t.Errorf("expected 2 emails, got %d", got)
	}
	if !strings.Contains(f.email.Calls()[0].Subject, "Pat Example") {
		t.Errorf("email subject should carry patient name: %q", f.email.Calls()[0].Subject)
	}

	// One alert event plus one notification event per caretaker.
	if got := len(f.publisher.events); got != 3 {
		t.Fatalf("expected 3 websocket events, got %d", got)
	}
	if f.publisher.events[0].Type != "alert.triggered" {
		t.Errorf("first event type = %s", f.publisher.events[0].Type)
	}
	if f.publisher.events[0].Topic != websocket.AlertsTopic("p1") {
		t.Errorf("alert event topic = %s", f.publisher.events[0].Topic)
	}
}

func TestTriggerAlert_Validation(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.TriggerAlert(context.Background(), "p1", Input{Type: "bogus", Message: "x"}); err == nil {
		t.Error("expected error for invalid type")
	}
	if _, err := f.svc.TriggerAlert(context.Background(), "p1", Input{Type: TypeInfo}); err == nil {
		t.Error("expected error for empty message")
	}
	if _, err := f.svc.TriggerAlert(context.Background(), "", Input{Type: TypeInfo, Message: "x"}); err == nil {
		t.Error("expected error for empty patient id")
	}
}

func TestTriggerEmergency_DefaultMessage(t *testing.T) {
	f := newFixture(caretaker("c1", "c1@example.com", "+15551234"))

	alert, err := f.svc.TriggerEmergency(context.Background(), "p1", "")
	if err != nil {
		t.Fatalf("TriggerEmergency: %v", err)
	}
	if alert.Type != TypeEmergency {
		t.Errorf("type = %s, want emergency", alert.Type)
	}
	if alert.Message != DefaultEmergencyMessage {
		t.Errorf("message = %q, want default", alert.Message)
	}

	// Emergencies additionally go out over SMS.
	if got := len(f.sms.Calls()); got != 1 {
		t.Fatalf("expected 1 SMS, got %d", got)
	}
	if f.sms.Calls()[0].To != "+15551234" {
		t.Errorf("SMS recipient = %s", f.sms.Calls()[0].To)
	}
}

func TestAcknowledgeAlert_OtherFieldsUnchanged(t *testing.T) {
	f := newFixture()

	alert, err := f.svc.TriggerAlert(context.Background(), "p1", Input{
		Type:    TypeWarning,
		Message: "High temperature: 38.2°C",
	})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}

	if err := f.svc.AcknowledgeAlert(context.Background(), "p1", alert.ID); err != nil {
		t.Fatalf("AcknowledgeAlert: %v", err)
	}

	stored := f.alerts.alerts[alert.ID]
	if !stored.Acknowledged {
		t.Error("alert not acknowledged")
	}
	if stored.Message != alert.Message || stored.Type != alert.Type || stored.Timestamp != alert.Timestamp {
		t.Error("acknowledge must not change other fields")
	}

	if err := f.svc.AcknowledgeAlert(context.Background(), "p1", uuid.New()); !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("expected ErrAlertNotFound, got %v", err)
	}
}

func TestClearAlert_NeverListedAgain(t *testing.T) {
	f := newFixture()

	alert, err := f.svc.TriggerAlert(context.Background(), "p1", Input{Type: TypeInfo, Message: "test"})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}

	if err := f.svc.ClearAlert(context.Background(), "p1", alert.ID); err != nil {
		t.Fatalf("ClearAlert: %v", err)
	}

	list, err := f.svc.ListAlerts(context.Background(), "p1", 0)
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	for _, a := range list {
		if a.ID == alert.ID {
			t.Error("cleared alert still listed")
		}
	}

	if err := f.svc.ClearAlert(context.Background(), "p1", alert.ID); !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("expected ErrAlertNotFound on second clear, got %v", err)
	}

	last := f.publisher.events[len(f.publisher.events)-1]
	if last.Type != "alert.cleared" {
		t.Errorf("expected alert.cleared event, got %s", last.Type)
	}
}

func TestListAlerts_CapAndOrder(t *testing.T) {
	f := newFixture()

	base := time.Now().UnixMilli()
	for i := 0; i < 60; i++ {
		f.alerts.alerts[uuid.New()] = &Alert{
			ID:        uuid.New(),
			PatientID: "p1",
			Timestamp: base + int64(i),
			Type:      TypeInfo,
			Message:   "reading",
		}
	}

	list, err := f.svc.ListAlerts(context.Background(), "p1", 0)
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(list) != MaxAlerts {
		t.Fatalf("expected %d alerts, got %d", MaxAlerts, len(list))
	}
	if list[0].Timestamp != base+59 {
		t.Errorf("head is not the newest alert: %d", list[0].Timestamp)
	}
	for i := 1; i < len(list); i++ {
		if list[i].Timestamp > list[i-1].Timestamp {
			t.Fatal("alerts not sorted newest-first")
		}
	}
}

func TestNotificationsReadFlow(t *testing.T) {
	f := newFixture(caretaker("c1", "c1@example.com", ""))

	if _, err := f.svc.TriggerAlert(context.Background(), "p1", Input{Type: TypeCritical, Message: "Low oxygen saturation: 88%"}); err != nil {
		t.Fatalf("trigger: %v", err)
	}

	list, err := f.svc.ListNotifications(context.Background(), "c1", 0)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(list) != 1 || list[0].Read {
		t.Fatalf("expected one unread notification, got %+v", list)
	}

	if err := f.svc.MarkNotificationRead(context.Background(), "c1", list[0].ID); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}

	list, _ = f.svc.ListNotifications(context.Background(), "c1", 0)
	if !list[0].Read {
		t.Error("notification not marked read")
	}

	if err := f.svc.MarkNotificationRead(context.Background(), "c2", list[0].ID); !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("expected ErrNotificationNotFound for wrong caretaker, got %v", err)
	}
}
