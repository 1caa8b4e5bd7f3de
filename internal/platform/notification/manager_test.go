package notification

import (
	"context"
	"strings"
	"testing"
)

func newMockedManager() (*NotificationManager, *MockEmailSender, *MockSMSSender) {
	email := &MockEmailSender{}
	sms := &MockSMSSender{}
	return NewNotificationManager(email, sms, NewTemplateEngine()), email, sms
}

func TestRender_SubstitutesPlaceholders(t *testing.T) {
	e := NewTemplateEngine()

	subject, body, err := e.Render("vitals-alert", map[string]string{
		"alert_type":   "critical",
		"patient_name": "Ada Vance",
		"message":      "Elevated heart rate: 132 bpm",
		"vital_sign":   "heartRate",
		"value":        "132",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "critical alert for Ada Vance" {
		t.Errorf("unexpected subject: %q", subject)
	}
	if !strings.Contains(body, "heartRate = 132") {
		t.Errorf("expected reading in body, got %q", body)
	}
}

func TestRender_LeavesUnknownPlaceholders(t *testing.T) {
	e := NewTemplateEngine()

	subject, _, err := e.Render("emergency-alert", map[string]string{"message": "help"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(subject, "{{patient_name}}") {
		t.Errorf("missing data should stay visible, got %q", subject)
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	e := NewTemplateEngine()
	if _, _, err := e.Render("no-such-template", nil); err == nil {
		t.Fatal("expected an error for an unknown template")
	}
}

func TestSendFromTemplate_RoutesByTemplateType(t *testing.T) {
	m, email, sms := newMockedManager()
	ctx := context.Background()
	data := map[string]string{"patient_name": "Ada Vance", "message": "Emergency assistance requested!"}

	if _, err := m.SendFromTemplate(ctx, "emergency-alert", data, "caretaker@example.com"); err != nil {
		t.Fatalf("email send failed: %v", err)
	}
	if _, err := m.SendFromTemplate(ctx, "emergency-alert-sms", data, "+15550100"); err != nil {
		t.Fatalf("sms send failed: %v", err)
	}

	if got := email.Calls(); len(got) != 1 || got[0].To != "caretaker@example.com" {
		t.Errorf("expected one email to the caretaker, got %+v", got)
	}
	smsCalls := sms.Calls()
	if len(smsCalls) != 1 || !strings.HasPrefix(smsCalls[0].Body, "EMERGENCY: Ada Vance") {
		t.Errorf("expected one rendered SMS, got %+v", smsCalls)
	}
}

func TestSend_RecordsFailureForRetry(t *testing.T) {
	m, email, _ := newMockedManager()
	email.ShouldFail = true
	email.FailError = "smtp unreachable"
	ctx := context.Background()

	n, err := m.SendFromTemplate(ctx, "caretaker-linked",
		map[string]string{"patient_name": "Ada Vance"}, "caretaker@example.com")
	if err == nil {
		t.Fatal("expected delivery failure")
	}
	if n == nil || n.Status != StatusFailed {
		t.Fatalf("expected a failed record, got %+v", n)
	}
	if n.Error != "smtp unreachable" {
		t.Errorf("expected sender error on record, got %q", n.Error)
	}

	// The sender recovers; retry flips the record to sent.
	email.ShouldFail = false
	if err := m.Retry(ctx, n.ID); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	got, err := m.GetNotification(ctx, n.ID)
	if err != nil {
		t.Fatalf("lookup after retry: %v", err)
	}
	if got.Status != StatusSent || got.Error != "" || got.SentAt == nil {
		t.Errorf("retry should mark the record sent, got %+v", got)
	}
}

func TestRetry_RejectsNonFailed(t *testing.T) {
	m, _, _ := newMockedManager()
	ctx := context.Background()

	n, err := m.SendFromTemplate(ctx, "caretaker-linked",
		map[string]string{"patient_name": "Ada Vance"}, "caretaker@example.com")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := m.Retry(ctx, n.ID); err == nil {
		t.Error("retrying a sent notification should fail")
	}
	if err := m.Retry(ctx, "missing-id"); err == nil {
		t.Error("retrying an unknown id should fail")
	}
}

func TestListByRecipient_FiltersAndLimits(t *testing.T) {
	m, _, _ := newMockedManager()
	ctx := context.Background()
	data := map[string]string{"patient_name": "Ada Vance"}

	for i := 0; i < 3; i++ {
		if _, err := m.SendFromTemplate(ctx, "caretaker-linked", data, "a@example.com"); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if _, err := m.SendFromTemplate(ctx, "caretaker-linked", data, "b@example.com"); err != nil {
		t.Fatalf("send: %v", err)
	}

	got, err := m.ListByRecipient(ctx, "a@example.com", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected the limit to apply, got %d records", len(got))
	}
	for _, n := range got {
		if n.Recipient != "a@example.com" {
			t.Errorf("wrong recipient in listing: %q", n.Recipient)
		}
	}
}

func TestNotificationStats_CountsByStatus(t *testing.T) {
	m, email, _ := newMockedManager()
	ctx := context.Background()
	data := map[string]string{"patient_name": "Ada Vance"}

	_, _ = m.SendFromTemplate(ctx, "caretaker-linked", data, "ok@example.com")
	email.ShouldFail = true
	email.FailError = "boom"
	_, _ = m.SendFromTemplate(ctx, "caretaker-linked", data, "bad@example.com")

	stats := m.NotificationStats(ctx)
	if stats[StatusSent] != 1 || stats[StatusFailed] != 1 {
		t.Errorf("unexpected stats: %v", stats)
	}
}
