package notification

import (
	"fmt"
	"strings"
	"sync"
)

// Template is a reusable message with {{key}} placeholders. The Type decides
// which sender the rendered notification goes through.
type Template struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Subject string           `json:"subject"`
	Body    string           `json:"body"`
	Type    NotificationType `json:"type"`
}

// TemplateEngine holds the template registry. The built-in set covers every
// message this server sends; RegisterTemplate exists for operator overrides.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine returns an engine with the built-in templates loaded.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	for _, t := range builtinTemplates {
		tt := t
		e.templates[t.ID] = &tt
	}
	return e
}

var builtinTemplates = []Template{
	{
		ID:      "vitals-alert",
		Name:    "Vitals Alert",
		Subject: "{{alert_type}} alert for {{patient_name}}",
		Body:    "{{patient_name}} triggered a {{alert_type}} alert: {{message}}. Latest reading: {{vital_sign}} = {{value}}.",
		Type:    TypeEmail,
	},
	{
		ID:      "emergency-alert",
		Name:    "Emergency Alert",
		Subject: "EMERGENCY: {{patient_name}} needs assistance",
		Body:    "{{patient_name}} has requested emergency assistance: {{message}}. Please respond immediately.",
		Type:    TypeEmail,
	},
	{
		ID:      "emergency-alert-sms",
		Name:    "Emergency Alert (SMS)",
		Body:    "EMERGENCY: {{patient_name}}: {{message}}",
		Type:    TypeSMS,
	},
	{
		ID:      "caretaker-linked",
		Name:    "Caretaker Linked",
		Subject: "You are now monitoring {{patient_name}}",
		Body:    "{{patient_name}} added you as a caretaker. You will receive alerts when their vital signs breach configured thresholds.",
		Type:    TypeEmail,
	},
}

// RegisterTemplate adds or replaces a template.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

func (e *TemplateEngine) lookup(id string) (*Template, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.templates[id]
	return t, ok
}

// Render substitutes {{key}} placeholders from data into the template's
// subject and body. Placeholders with no matching key stay as written, which
// makes a missing field visible in the delivered message instead of silently
// blank.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	t, ok := e.lookup(templateID)
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject, body = t.Subject, t.Body
	for k, v := range data {
		ph := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, ph, v)
		body = strings.ReplaceAll(body, ph, v)
	}
	return subject, body, nil
}
