// Package notification renders and delivers appointment emails.
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// EmailSender is the interface for sending email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

const (
	TemplateAppointmentConfirmed = "appointment-confirmed"
	TemplateAppointmentCancelled = "appointment-cancelled"
)

// Template is a subject and body with {{key}} placeholders.
type Template struct {
	ID      string
	Subject string
	Body    string
}

// TemplateEngine manages templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the appointment templates
// registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	e.RegisterTemplate(Template{
		ID:      TemplateAppointmentConfirmed,
		Subject: "Appointment Confirmation",
		Body: "Dear {{patient_name}},\n\n" +
			"Your appointment with Dr. {{doctor_name}} has been confirmed.\n\n" +
			"Date & Time: {{start}} - {{end_time}}\n\n" +
			"Please arrive 10 minutes early.\n\n" +
			"Regards,\nHealthcare AI System\n",
	})
	e.RegisterTemplate(Template{
		ID:      TemplateAppointmentCancelled,
		Subject: "Appointment Cancelled",
		Body: "Dear {{patient_name}},\n\n" +
			"Your appointment with Dr. {{doctor_name}} scheduled for {{start}} has been cancelled.\n\n" +
			"Regards,\nHealthcare AI System\n",
	})
	return e
}

// RegisterTemplate adds or replaces a template.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render performs {{key}} replacement. Placeholders absent from data are left
// as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject, body = t.Subject, t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// AppointmentNotice carries what the appointment emails mention.
type AppointmentNotice struct {
	PatientName  string
	PatientEmail string
	DoctorName   string
	Start        time.Time
	End          time.Time
}

func (n AppointmentNotice) data() map[string]string {
	return map[string]string{
		"patient_name": n.PatientName,
		"doctor_name":  n.DoctorName,
		"start":        n.Start.Format("2006-01-02 15:04"),
		"end_time":     n.End.Format("15:04"),
	}
}

// Observer is told the outcome of every delivery attempt sequence.
type Observer interface {
	RecordNotification(template string, err error)
}

// Mailer renders appointment templates and hands them to an EmailSender,
// retrying transient failures.
type Mailer struct {
	sender    EmailSender
	templates *TemplateEngine
	attempts  int
	backoff   time.Duration
	observer  Observer
}

type MailerOption func(*Mailer)

func WithRetry(attempts int, backoff time.Duration) MailerOption {
	return func(m *Mailer) {
		if attempts > 0 {
			m.attempts = attempts
		}
		m.backoff = backoff
	}
}

func WithObserver(o Observer) MailerOption {
	return func(m *Mailer) { m.observer = o }
}

func NewMailer(sender EmailSender, tpl *TemplateEngine, opts ...MailerOption) *Mailer {
	m := &Mailer{sender: sender, templates: tpl, attempts: 1}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mailer) AppointmentConfirmed(ctx context.Context, n AppointmentNotice) error {
	return m.sendTemplate(ctx, TemplateAppointmentConfirmed, n.PatientEmail, n.data())
}

func (m *Mailer) AppointmentCancelled(ctx context.Context, n AppointmentNotice) error {
	return m.sendTemplate(ctx, TemplateAppointmentCancelled, n.PatientEmail, n.data())
}

func (m *Mailer) sendTemplate(ctx context.Context, templateID, to string, data map[string]string) error {
	if to == "" {
		return fmt.Errorf("%s: no recipient", templateID)
	}
	subject, body, err := m.templates.Render(templateID, data)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	for attempt := 1; ; attempt++ {
		err = m.sender.SendEmail(ctx, to, subject, body)
		if err == nil || attempt >= m.attempts {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(m.backoff * time.Duration(attempt)):
			continue
		}
		break
	}

	if m.observer != nil {
		m.observer.RecordNotification(templateID, err)
	}
	if err != nil {
		return fmt.Errorf("send %s to %s: %w", templateID, to, err)
	}
	return nil
}
