// Package handlers exposes the check-in API over HTTP.
//
// Handlers are transport-thin: they bind and validate input, call application
// services, and translate results (and sentinel errors) into HTTP responses.
// Each group of endpoints depends on a narrow service interface declared in
// this file so tests can substitute stubs.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/couple-checkin/internal/ai"
	"github.com/tbourn/couple-checkin/internal/domain"
	"github.com/tbourn/couple-checkin/internal/http/middleware"
	"github.com/tbourn/couple-checkin/internal/repo"
	"github.com/tbourn/couple-checkin/internal/services"
)

//
// Service contracts (context-aware)
//

// ProfileService covers signup, login and profile settings.
type ProfileService interface {
	Signup(ctx context.Context, in services.SignupInput) (*services.Session, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Get(ctx context.Context, profileID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, profileID string, u services.ProfileUpdate) (*domain.Profile, error)
}

// CoupleService reads and dissolves the caller's active couple.
type CoupleService interface {
	ActiveCouple(ctx context.Context, profileID string) (*services.CoupleView, error)
	Deactivate(ctx context.Context, profileID string) (*domain.Couple, error)
}

// PairingService implements the invitation protocol.
type PairingService interface {
	Issue(ctx context.Context, senderID string) (*services.IssuedInvitation, error)
	Preview(ctx context.Context, token string) (*services.InvitationPreview, error)
	Redeem(ctx context.Context, token, redeemerID string) (*domain.Couple, error)
}

// DimensionService manages custom rating axes.
type DimensionService interface {
	Create(ctx context.Context, profileID, name string) (*domain.CustomDimension, error)
	List(ctx context.Context, profileID string) ([]domain.CustomDimension, error)
}

// EntryService records and reads daily entries.
type EntryService interface {
	Save(ctx context.Context, profileID string, in services.CheckIn) (*domain.DailyEntry, error)
	Get(ctx context.Context, viewerID, entryID string) (*domain.DailyEntry, error)
	Today(ctx context.Context, viewerID, profileID string) (*domain.DailyEntry, error)
	List(ctx context.Context, viewerID, profileID string, r repo.DateRange, page, pageSize int) ([]domain.DailyEntry, int64, error)
	Trend(ctx context.Context, viewerID, profileID string, r repo.DateRange) ([]services.TrendPoint, error)
	Stats(ctx context.Context, viewerID, profileID string) (int64, *time.Time, error)
}

// OliveBranchService is the reconciliation messenger.
type OliveBranchService interface {
	Send(ctx context.Context, senderID string, in services.OliveBranchInput) (*domain.OliveBranchMessage, error)
	Get(ctx context.Context, profileID, messageID string) (*domain.OliveBranchMessage, error)
	List(ctx context.Context, profileID string, page, pageSize int) ([]services.OliveBranchView, int64, error)
	Stats(ctx context.Context, profileID string) (int64, *time.Time, error)
}

// MetricsParser turns a spoken check-in into ratings.
type MetricsParser interface {
	Parse(ctx context.Context, text string, dims []string) (*ai.Metrics, error)
}

// Transcriber turns an audio clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, in ai.TranscribeInput) (*ai.Transcript, error)
}

// ReminderService nudges the caller's partner by email.
type ReminderService interface {
	Send(ctx context.Context, senderID string, req services.ReminderRequest) (*services.ReminderResult, error)
}

// QuoteService serves inspirational quotes.
type QuoteService interface {
	Random(ctx context.Context) (*domain.Quote, error)
	Suggest(ctx context.Context, text string, k int) ([]domain.Quote, error)
}

// IdempotencyRecorder stores the outcome of a request made with an
// Idempotency-Key so a retry can be answered without redoing it.
type IdempotencyRecorder interface {
	Remember(ctx context.Context, userID, scope, key, resourceID string, status int) error
}

//
// Handler wiring
//

// Deps lists the services the handlers call. Nil voice adapters make the
// voice endpoints answer 503.
type Deps struct {
	Profiles    ProfileService
	Couples     CoupleService
	Pairing     PairingService
	Dimensions  DimensionService
	Entries     EntryService
	OliveBranch OliveBranchService
	Metrics     MetricsParser
	Transcriber Transcriber
	Reminders   ReminderService
	Quotes      QuoteService
	Idempotency IdempotencyRecorder
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	d Deps
}

// New constructs and returns a Handlers instance bound to the given services.
func New(d Deps) *Handlers {
	return &Handlers{d: d}
}

// HeaderIdempotencyReplayed marks responses served from a stored outcome.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// remember stores resourceID/status under the request's Idempotency-Key, if
// any. Failures are logged; the request already succeeded.
func (h *Handlers) remember(c *gin.Context, resourceID string, status int) {
	key, ok := middleware.GetIdempotencyKey(c)
	if !ok || h.d.Idempotency == nil {
		return
	}
	err := h.d.Idempotency.Remember(c.Request.Context(), middleware.ProfileID(c),
		middleware.GetIdempotencyScope(c), key, resourceID, status)
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("store idempotency record failed")
	}
}

// replayed marks c as served from a stored outcome.
func replayed(c *gin.Context) {
	c.Header(HeaderIdempotencyReplayed, "true")
	middleware.CountEvent(middleware.EventIdempotentReplay)
}
