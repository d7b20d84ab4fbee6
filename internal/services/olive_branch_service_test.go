package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/couple-checkin/internal/domain"
	"github.com/tbourn/couple-checkin/internal/events"
)

type fakeAudio struct {
	err error
}

func (f *fakeAudio) Put(context.Context, string, string, []byte) error { return f.err }

func (f *fakeAudio) PresignGet(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://s3.example.com/" + key + "?sig=1", nil
}

func TestOliveBranch_SendAndList(t *testing.T) {
	db := newTestDB(t)
	rec := &events.Recorder{}
	clk := newClock(t0)
	s := &OliveBranchService{DB: db, Events: rec, Audio: &fakeAudio{}, Now: clk.Now}
	ctx := context.Background()
	c, h, w := seedCouple(t, db, "ob")

	m1, err := s.Send(ctx, h.ID, OliveBranchInput{Message: "  I'm sorry about last night. ", AudioKey: ptr("voice/h/clip.webm")})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if m1.RecipientID != w.ID || m1.CoupleID != c.ID || m1.Message != "I'm sorry about last night." {
		t.Fatalf("message = %#v", m1)
	}
	clk.Advance(time.Minute)
	m2, err := s.Send(ctx, w.ID, OliveBranchInput{CoupleID: c.ID, RecipientID: h.ID, Message: "Thank you"})
	if err != nil {
		t.Fatalf("Send reply: %v", err)
	}

	list, total, err := s.List(ctx, h.ID, 1, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(list) != 2 || list[0].ID != m2.ID {
		t.Fatalf("list = %#v", list)
	}
	if list[1].AudioURL != "https://s3.example.com/voice/h/clip.webm?sig=1" || list[0].AudioURL != "" {
		t.Fatalf("audio urls = %q %q", list[0].AudioURL, list[1].AudioURL)
	}

	got := rec.Events()
	if len(got) != 2 || got[0].Subject != events.SubjectOliveBranchSent {
		t.Fatalf("events = %#v", got)
	}
	if p := got[0].Payload.(events.OliveBranchSent); !p.HasAudio || p.RecipientID != w.ID {
		t.Fatalf("payload = %#v", p)
	}

	n, latest, err := s.Stats(ctx, w.ID)
	if err != nil || n != 2 || latest == nil || !latest.Equal(t0.Add(time.Minute)) {
		t.Fatalf("stats = %d %v %v", n, latest, err)
	}
}

func TestOliveBranch_PresignFailureKeepsMessage(t *testing.T) {
	db := newTestDB(t)
	s := &OliveBranchService{DB: db, Audio: &fakeAudio{err: errors.New("s3 down")}}
	ctx := context.Background()
	_, h, _ := seedCouple(t, db, "ps")
	if _, err := s.Send(ctx, h.ID, OliveBranchInput{Message: "hi", AudioKey: ptr("k")}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	list, _, err := s.List(ctx, h.ID, 1, 10)
	if err != nil || len(list) != 1 || list[0].AudioURL != "" {
		t.Fatalf("list = %#v, %v", list, err)
	}
}

func TestOliveBranch_SendRejects(t *testing.T) {
	db := newTestDB(t)
	s := &OliveBranchService{DB: db}
	ctx := context.Background()
	_, h, _ := seedCouple(t, db, "a")
	other, _, ow := seedCouple(t, db, "b")
	lone := seedProfile(t, db, "lone@example.com", domain.RoleWife, "UTC")

	cases := []struct {
		name   string
		sender string
		in     OliveBranchInput
		want   error
	}{
		{"empty", h.ID, OliveBranchInput{Message: " \n\t "}, ErrEmptyMessage},
		{"too long", h.ID, OliveBranchInput{Message: strings.Repeat("a", domain.MaxOliveBranchRunes+1)}, ErrMessageTooLong},
		{"other couple", h.ID, OliveBranchInput{CoupleID: other.ID, Message: "hi"}, ErrNotPartner},
		{"other recipient", h.ID, OliveBranchInput{RecipientID: ow.ID, Message: "hi"}, ErrNotPartner},
		{"self as recipient", h.ID, OliveBranchInput{RecipientID: h.ID, Message: "hi"}, ErrNotPartner},
		{"unpaired sender", lone.ID, OliveBranchInput{Message: "hi"}, ErrNotPartner},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Send(ctx, tc.sender, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := s.Send(ctx, h.ID, OliveBranchInput{Message: strings.Repeat("ñ", domain.MaxOliveBranchRunes)}); err != nil {
		t.Fatalf("max length: %v", err)
	}
	if _, _, err := s.List(ctx, lone.ID, 1, 10); !errors.Is(err, ErrNoActiveCouple) {
		t.Fatalf("List unpaired: %v", err)
	}
}

func TestOliveBranch_Get(t *testing.T) {
	db := newTestDB(t)
	s := &OliveBranchService{DB: db, Events: events.Noop{}, Now: newClock(t0).Now}
	ctx := context.Background()
	_, h, w := seedCouple(t, db, "obget")
	_, stranger, _ := seedCouple(t, db, "obgetx")

	m, err := s.Send(ctx, h.ID, OliveBranchInput{Message: "truce?"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	for _, id := range []string{h.ID, w.ID} {
		if got, err := s.Get(ctx, id, m.ID); err != nil || got.ID != m.ID {
			t.Fatalf("Get by %s = %v, %v", id, got, err)
		}
	}
	if _, err := s.Get(ctx, stranger.ID, m.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger Get: %v", err)
	}
	if _, err := s.Get(ctx, h.ID, "nope"); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("missing Get: %v", err)
	}
}
