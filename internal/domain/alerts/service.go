package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/S-tej/LDPS/internal/domain/identity"
	"github.com/S-tej/LDPS/internal/platform/db"
	"github.com/S-tej/LDPS/internal/platform/notification"
	"github.com/S-tej/LDPS/internal/platform/websocket"
)

// CaretakerDirectory resolves profiles and caretaker links. Implemented by
// the identity service.
type CaretakerDirectory interface {
	GetProfile(ctx context.Context, uid string) (*identity.Profile, error)
	ListCaretakers(ctx context.Context, patientID string) ([]*identity.Profile, error)
}

// Service implements the alert lifecycle: persistence, caretaker fan-out,
// live events, and best-effort email/SMS delivery.
type Service struct {
	alerts        AlertRepository
	notifications NotificationRepository
	directory     CaretakerDirectory
	publisher     websocket.EventPublisher
	notifier      *notification.NotificationManager
	logger        zerolog.Logger
	runTx         func(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewService creates a new alert service. publisher and notifier may be nil;
// the corresponding delivery channel is then skipped. When pool is nil
// (tests) the trigger flow runs without a transaction.
func NewService(
	alerts AlertRepository,
	notifications NotificationRepository,
	directory CaretakerDirectory,
	pool *pgxpool.Pool,
	publisher websocket.EventPublisher,
	notifier *notification.NotificationManager,
	logger zerolog.Logger,
) *Service {
	runTx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(ctx)
	}
	if pool != nil {
		runTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		}
	}
	return &Service{
		alerts:        alerts,
		notifications: notifications,
		directory:     directory,
		publisher:     publisher,
		notifier:      notifier,
		logger:        logger.With().Str("component", "alerts").Logger(),
		runTx:         runTx,
	}
}

// TriggerAlert persists a new alert and one fan-out notification per linked
// caretaker in a single transaction, then broadcasts websocket events and
// dispatches email/SMS. Delivery is best-effort; persistence is not.
func (s *Service) TriggerAlert(ctx context.Context, patientID string, in Input) (*Alert, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient id is required")
	}
	if !ValidType(in.Type) {
		return nil, fmt.Errorf("invalid alert type %q", in.Type)
	}
	if in.Message == "" {
		return nil, fmt.Errorf("alert message is required")
	}

	caretakers, err := s.directory.ListCaretakers(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("resolve caretakers: %w", err)
	}

	alert := &Alert{
		ID:        uuid.New(),
		PatientID: patientID,
		Timestamp: time.Now().UnixMilli(),
		Type:      in.Type,
		Message:   in.Message,
		VitalSign: in.VitalSign,
		Value:     in.Value,
	}

	fanout := make([]*Notification, 0, len(caretakers))
	for _, c := range caretakers {
		fanout = append(fanout, &Notification{
			ID:        uuid.New(),
			Caretaker: c.UID,
			PatientID: patientID,
			AlertType: alert.Type,
			Message:   alert.Message,
			Timestamp: alert.Timestamp,
		})
	}

	err = s.runTx(ctx, func(ctx context.Context) error {
		if err := s.alerts.Create(ctx, alert); err != nil {
			return err
		}
		for _, n := range fanout {
			if err := s.notifications.Create(ctx, n); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("patient_id", patientID).
		Str("alert_id", alert.ID.String()).
		Str("type", alert.Type).
		Int("caretakers", len(fanout)).
		Msg("alert triggered")

	s.publishAlert(ctx, "alert.triggered", alert)
	for _, n := range fanout {
		s.publishNotification(ctx, n)
	}
	s.deliver(ctx, alert, caretakers)

	return alert, nil
}

// TriggerVitalsAlert adapts a threshold breach from the ingest path into a
// regular alert.
func (s *Service) TriggerVitalsAlert(ctx context.Context, patientID, alertType, message, vitalSign string, value float64) error {
	_, err := s.TriggerAlert(ctx, patientID, Input{
		Type:      alertType,
		Message:   message,
		VitalSign: &vitalSign,
		Value:     &value,
	})
	return err
}

// TriggerEmergency records a patient-initiated emergency alert. An empty
// message is replaced with the fixed default.
func (s *Service) TriggerEmergency(ctx context.Context, patientID, message string) (*Alert, error) {
	if message == "" {
		message = DefaultEmergencyMessage
	}
	return s.TriggerAlert(ctx, patientID, Input{Type: TypeEmergency, Message: message})
}

// AcknowledgeAlert marks an alert as acknowledged, leaving every other field
// unchanged.
func (s *Service) AcknowledgeAlert(ctx context.Context, patientID string, id uuid.UUID) error {
	return s.alerts.Acknowledge(ctx, patientID, id)
}

// ClearAlert permanently deletes an alert. Irreversible.
func (s *Service) ClearAlert(ctx context.Context, patientID string, id uuid.UUID) error {
	if err := s.alerts.Delete(ctx, patientID, id); err != nil {
		return err
	}

	payload, _ := json.Marshal(map[string]string{"alertId": id.String()})
	s.publish(ctx, websocket.Event{
		Type:      "alert.cleared",
		Topic:     websocket.AlertsTopic(patientID),
		Timestamp: time.Now().UTC(),
		Data:      payload,
	})
	return nil
}

// ListAlerts returns the patient's newest alerts. The limit is clamped to
// MaxAlerts; zero or negative means the full cap.
func (s *Service) ListAlerts(ctx context.Context, patientID string, limit int) ([]*Alert, error) {
	if limit <= 0 || limit > MaxAlerts {
		limit = MaxAlerts
	}
	return s.alerts.ListByPatient(ctx, patientID, limit)
}

// ListNotifications returns a caretaker's fan-out notifications, newest
// first.
func (s *Service) ListNotifications(ctx context.Context, caretakerID string, limit int) ([]*Notification, error) {
	if limit <= 0 || limit > MaxAlerts {
		limit = MaxAlerts
	}
	return s.notifications.ListByCaretaker(ctx, caretakerID, limit)
}

// MarkNotificationRead marks a single fan-out notification as read.
func (s *Service) MarkNotificationRead(ctx context.Context, caretakerID string, id uuid.UUID) error {
	return s.notifications.MarkRead(ctx, caretakerID, id)
}

func (s *Service) publishAlert(ctx context.Context, eventType string, a *Alert) {
	payload, err := json.Marshal(a)
	if err != nil {
		s.logger.Warn().Err(err).Msg("marshal alert event")
		return
	}
	s.publish(ctx, websocket.Event{
		Type:      eventType,
		Topic:     websocket.AlertsTopic(a.PatientID),
		Timestamp: time.Now().UTC(),
		Data:      payload,
	})
}

func (s *Service) publishNotification(ctx context.Context, n *Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		s.logger.Warn().Err(err).Msg("marshal notification event")
		return
	}
	s.publish(ctx, websocket.Event{
		Type:      "notification.created",
		Topic:     websocket.NotificationsTopic(n.Caretaker),
		Timestamp: time.Now().UTC(),
		Data:      payload,
	})
}

func (s *Service) publish(ctx context.Context, ev websocket.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("topic", ev.Topic).Msg("websocket publish failed")
	}
}

// deliver sends email (and SMS for emergencies) to each caretaker. Failures
// are logged only; the alert is already persisted.
func (s *Service) deliver(ctx context.Context, a *Alert, caretakers []*identity.Profile) {
	if s.notifier == nil || len(caretakers) == 0 {
		return
	}

	templateID := "vitals-alert"
	if a.Type == TypeEmergency {
		templateID = "emergency-alert"
	}

	patientName := a.PatientID
	if p, err := s.directory.GetProfile(ctx, a.PatientID); err == nil {
		patientName = p.DisplayName
	}

	data := map[string]string{
		"alert_type":   a.Type,
		"message":      a.Message,
		"patient_name": patientName,
	}
	if a.VitalSign != nil {
		data["vital_sign"] = *a.VitalSign
	}
	if a.Value != nil {
		data["value"] = strconv.FormatFloat(*a.Value, 'f', -1, 64)
	}

	for _, c := range caretakers {
		if c.Email != "" {
			if _, err := s.notifier.SendFromTemplate(ctx, templateID, data, c.Email); err != nil {
				s.logger.Warn().Err(err).Str("caretaker_id", c.UID).Msg("email delivery failed")
			}
		}
		if a.Type == TypeEmergency && c.PhoneNumber != "" {
			if _, err := s.notifier.SendFromTemplate(ctx, "emergency-alert-sms", data, c.PhoneNumber); err != nil {
				s.logger.Warn().Err(err).Str("caretaker_id", c.UID).Msg("sms delivery failed")
			}
		}
	}
}
