// Package notify renders and delivers partner reminders. Delivery is behind
// the Mailer interface: LogMailer writes the message to the log, EventMailer
// hands it to an email worker over the event bus.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tbourn/couple-checkin/internal/events"
	"github.com/tbourn/couple-checkin/internal/i18n"
)

// ErrNoRecipient is returned when an email has no address.
var ErrNoRecipient = errors.New("notify: missing recipient")

// Email is a rendered reminder.
type Email struct {
	To          string
	SenderName  string
	PartnerName string
	Subject     string
	Body        string
	Locale      string
}

// Mailer delivers an Email.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// Reminder renders the reminder sent from senderName to partnerName in the
// partner's locale.
func Reminder(to, locale, senderName, partnerName string) Email {
	senderName = strings.TrimSpace(senderName)
	partnerName = strings.TrimSpace(partnerName)
	return Email{
		To:          to,
		SenderName:  senderName,
		PartnerName: partnerName,
		Subject:     fmt.Sprintf(i18n.T(locale, "reminder.subject"), senderName),
		Body:        fmt.Sprintf(i18n.T(locale, "reminder.body"), partnerName, senderName),
		Locale:      locale,
	}
}

// LogMailer logs reminders instead of sending them. The recipient address is
// not logged.
type LogMailer struct {
	Logger zerolog.Logger
}

// Send implements Mailer.
func (m LogMailer) Send(_ context.Context, e Email) error {
	if e.To == "" {
		return ErrNoRecipient
	}
	m.Logger.Info().
		Str("sender", e.SenderName).
		Str("partner", e.PartnerName).
		Str("locale", e.Locale).
		Str("subject", e.Subject).
		Msg("reminder email")
	return nil
}

// EventMailer publishes reminders on events.SubjectReminderEmail.
type EventMailer struct {
	Events events.Publisher
}

// Send implements Mailer.
func (m EventMailer) Send(ctx context.Context, e Email) error {
	if e.To == "" {
		return ErrNoRecipient
	}
	if m.Events == nil {
		return errors.New("notify: no publisher")
	}
	return m.Events.Publish(ctx, events.SubjectReminderEmail, events.ReminderEmail{
		To:          e.To,
		SenderName:  e.SenderName,
		PartnerName: e.PartnerName,
		Subject:     e.Subject,
		Body:        e.Body,
		Locale:      e.Locale,
	})
}
