// Package events publishes domain events (entry saved, olive branch sent,
// reminder requested) to NATS JetStream. Publishing is best effort: callers
// log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects, relative to the configured prefix.
const (
	SubjectEntrySaved       = "entry.saved"
	SubjectOliveBranchSent  = "olive_branch.sent"
	SubjectReminderEmail    = "reminder.email"
	defaultStreamName       = "CHECKIN"
	defaultConnectTimeout   = 5 * time.Second
	defaultReconnectBackoff = 2 * time.Second
)

// Publisher emits a JSON-encoded event on a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// Noop discards every event.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, string, any) error { return nil }

// EntrySaved is published after a check-in is stored.
type EntrySaved struct {
	EntryID   string    `json:"entry_id"`
	ProfileID string    `json:"profile_id"`
	CoupleID  string    `json:"couple_id,omitempty"`
	EntryDate string    `json:"entry_date"`
	CreatedAt time.Time `json:"created_at"`
}

// OliveBranchSent is published after an olive branch is stored.
type OliveBranchSent struct {
	MessageID   string    `json:"message_id"`
	CoupleID    string    `json:"couple_id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	HasAudio    bool      `json:"has_audio"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReminderEmail asks an email worker to nudge a partner.
type ReminderEmail struct {
	To          string `json:"to"`
	SenderName  string `json:"sender_name"`
	PartnerName string `json:"partner_name"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	Locale      string `json:"locale"`
}

// Bus wraps a NATS JetStream connection.
type Bus struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	prefix string
}

// Connect dials NATS and ensures a stream exists for prefix.>.
func Connect(url, prefix string, opts ...nats.Option) (*Bus, error) {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		return nil, errors.New("events: empty subject prefix")
	}
	opts = append([]nats.Option{
		nats.Name("couple-checkin"),
		nats.Timeout(defaultConnectTimeout),
		nats.ReconnectWait(defaultReconnectBackoff),
		nats.MaxReconnects(-1),
	}, opts...)

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}
	b := &Bus{conn: nc, js: js, prefix: prefix}
	if err := b.ensureStream(); err != nil {
		nc.Close()
		return nil, err
	}
	return b, nil
}

func (b *Bus) ensureStream() error {
	name := defaultStreamName
	if _, err := b.js.StreamInfo(name); err == nil {
		return nil
	} else if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err := b.js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: []string{b.prefix + ".>"},
		MaxAge:   7 * 24 * time.Hour,
	})
	return err
}

// Close drains the connection.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

// Subject returns the fully qualified subject.
func (b *Bus) Subject(s string) string { return b.prefix + "." + s }

// Publish encodes v as JSON and publishes it to prefix.subject.
func (b *Bus) Publish(ctx context.Context, subject string, v any) error {
	if b == nil {
		return errors.New("nil bus")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = b.js.Publish(b.Subject(subject), data, nats.Context(ctx))
	return err
}

// Recorder keeps events in memory. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
	Err    error
}

// Recorded is one captured event.
type Recorded struct {
	Subject string
	Payload any
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, subject string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, Recorded{Subject: subject, Payload: v})
	return nil
}

// Events returns a copy of the captured events.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.events...)
}
