package events

import (
	"context"
	"errors"
	"testing"
)

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	if err := p.Publish(context.Background(), SubjectEntrySaved, EntrySaved{}); err != nil {
		t.Fatalf("Noop.Publish: %v", err)
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	_ = r.Publish(context.Background(), SubjectEntrySaved, EntrySaved{EntryID: "e1"})
	_ = r.Publish(context.Background(), SubjectOliveBranchSent, OliveBranchSent{MessageID: "m1"})
	got := r.Events()
	if len(got) != 2 || got[0].Subject != SubjectEntrySaved || got[1].Payload.(OliveBranchSent).MessageID != "m1" {
		t.Fatalf("unexpected events: %+v", got)
	}

	r.Err = errors.New("down")
	if err := r.Publish(context.Background(), SubjectReminderEmail, ReminderEmail{}); err == nil {
		t.Fatalf("expected configured error")
	}
}

func TestBus_NilAndSubject(t *testing.T) {
	var b *Bus
	if err := b.Publish(context.Background(), "x", 1); err == nil {
		t.Fatalf("nil bus must error")
	}
	b.Close() // must not panic

	b = &Bus{prefix: "checkin"}
	if got := b.Subject(SubjectReminderEmail); got != "checkin.reminder.email" {
		t.Fatalf("Subject = %q", got)
	}
}

func TestConnect_EmptyPrefix(t *testing.T) {
	if _, err := Connect("nats://127.0.0.1:1", " . "); err == nil {
		t.Fatalf("expected error for empty prefix")
	}
}
