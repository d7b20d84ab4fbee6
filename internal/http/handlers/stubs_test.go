package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/couple-checkin/internal/ai"
	"github.com/tbourn/couple-checkin/internal/domain"
	"github.com/tbourn/couple-checkin/internal/repo"
	"github.com/tbourn/couple-checkin/internal/services"
)

// Stubs embed the interface so only the methods a test sets are callable.

type stubProfiles struct {
	ProfileService
	signup func(services.SignupInput) (*services.Session, error)
	login  func(email, password string) (*services.Session, error)
	get    func(id string) (*domain.Profile, error)
	update func(id string, u services.ProfileUpdate) (*domain.Profile, error)
}

func (s *stubProfiles) Signup(_ context.Context, in services.SignupInput) (*services.Session, error) {
	return s.signup(in)
}
func (s *stubProfiles) Login(_ context.Context, e, p string) (*services.Session, error) {
	return s.login(e, p)
}
func (s *stubProfiles) Get(_ context.Context, id string) (*domain.Profile, error) { return s.get(id) }
func (s *stubProfiles) UpdateProfile(_ context.Context, id string, u services.ProfileUpdate) (*domain.Profile, error) {
	return s.update(id, u)
}

type stubPairing struct {
	PairingService
	issue   func(senderID string) (*services.IssuedInvitation, error)
	preview func(token string) (*services.InvitationPreview, error)
	redeem  func(token, redeemerID string) (*domain.Couple, error)
}

func (s *stubPairing) Issue(_ context.Context, id string) (*services.IssuedInvitation, error) {
	return s.issue(id)
}
func (s *stubPairing) Preview(_ context.Context, tok string) (*services.InvitationPreview, error) {
	return s.preview(tok)
}
func (s *stubPairing) Redeem(_ context.Context, tok, id string) (*domain.Couple, error) {
	return s.redeem(tok, id)
}

type stubCouples struct {
	CoupleService
	active     func(id string) (*services.CoupleView, error)
	deactivate func(id string) (*domain.Couple, error)
}

func (s *stubCouples) ActiveCouple(_ context.Context, id string) (*services.CoupleView, error) {
	return s.active(id)
}
func (s *stubCouples) Deactivate(_ context.Context, id string) (*domain.Couple, error) {
	return s.deactivate(id)
}

type stubEntries struct {
	EntryService
	save  func(profileID string, in services.CheckIn) (*domain.DailyEntry, error)
	get   func(viewerID, entryID string) (*domain.DailyEntry, error)
	today func(viewerID, profileID string) (*domain.DailyEntry, error)
	list  func(viewerID, profileID string, r repo.DateRange, page, size int) ([]domain.DailyEntry, int64, error)
	trend func(viewerID, profileID string, r repo.DateRange) ([]services.TrendPoint, error)
	stats func(viewerID, profileID string) (int64, *time.Time, error)
}

func (s *stubEntries) Save(_ context.Context, id string, in services.CheckIn) (*domain.DailyEntry, error) {
	return s.save(id, in)
}
func (s *stubEntries) Get(_ context.Context, v, id string) (*domain.DailyEntry, error) {
	return s.get(v, id)
}
func (s *stubEntries) Today(_ context.Context, v, p string) (*domain.DailyEntry, error) {
	return s.today(v, p)
}
func (s *stubEntries) List(_ context.Context, v, p string, r repo.DateRange, page, size int) ([]domain.DailyEntry, int64, error) {
	return s.list(v, p, r, page, size)
}
func (s *stubEntries) Trend(_ context.Context, v, p string, r repo.DateRange) ([]services.TrendPoint, error) {
	return s.trend(v, p, r)
}
func (s *stubEntries) Stats(_ context.Context, v, p string) (int64, *time.Time, error) {
	if s.stats == nil {
		return 0, nil, services.ErrForbidden
	}
	return s.stats(v, p)
}

type stubDimensions struct {
	DimensionService
	list   func(profileID string) ([]domain.CustomDimension, error)
	create func(profileID, name string) (*domain.CustomDimension, error)
}

func (s *stubDimensions) List(_ context.Context, id string) ([]domain.CustomDimension, error) {
	return s.list(id)
}
func (s *stubDimensions) Create(_ context.Context, id, name string) (*domain.CustomDimension, error) {
	return s.create(id, name)
}

type stubOlive struct {
	OliveBranchService
	send  func(senderID string, in services.OliveBranchInput) (*domain.OliveBranchMessage, error)
	get   func(profileID, id string) (*domain.OliveBranchMessage, error)
	list  func(profileID string, page, size int) ([]services.OliveBranchView, int64, error)
	stats func(profileID string) (int64, *time.Time, error)
}

func (s *stubOlive) Send(_ context.Context, id string, in services.OliveBranchInput) (*domain.OliveBranchMessage, error) {
	return s.send(id, in)
}
func (s *stubOlive) Get(_ context.Context, p, id string) (*domain.OliveBranchMessage, error) {
	return s.get(p, id)
}
func (s *stubOlive) List(_ context.Context, id string, page, size int) ([]services.OliveBranchView, int64, error) {
	return s.list(id, page, size)
}
func (s *stubOlive) Stats(_ context.Context, id string) (int64, *time.Time, error) {
	return s.stats(id)
}

type stubMetrics struct {
	text string
	dims []string
	out  *ai.Metrics
	err  error
}

func (s *stubMetrics) Parse(_ context.Context, text string, dims []string) (*ai.Metrics, error) {
	s.text, s.dims = text, dims
	return s.out, s.err
}

type stubTranscriber struct {
	in  ai.TranscribeInput
	out *ai.Transcript
	err error
}

func (s *stubTranscriber) Transcribe(_ context.Context, in ai.TranscribeInput) (*ai.Transcript, error) {
	s.in = in
	return s.out, s.err
}

type stubReminders struct {
	req services.ReminderRequest
	err error
}

func (s *stubReminders) Send(_ context.Context, _ string, req services.ReminderRequest) (*services.ReminderResult, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return &services.ReminderResult{Success: true, Message: "reminder sent to " + req.PartnerName}, nil
}

type stubQuotes struct {
	random  *domain.Quote
	suggest []domain.Quote
	err     error
}

func (s *stubQuotes) Random(context.Context) (*domain.Quote, error) { return s.random, s.err }
func (s *stubQuotes) Suggest(context.Context, string, int) ([]domain.Quote, error) {
	return s.suggest, s.err
}

type remembered struct {
	userID, scope, key, resourceID string
	status                         int
}

type stubIdem struct{ got []remembered }

func (s *stubIdem) Remember(_ context.Context, userID, scope, key, resourceID string, status int) error {
	s.got = append(s.got, remembered{userID, scope, key, resourceID, status})
	return nil
}

//
// Harness
//

const callerID = "prof-caller"

// newEngine mounts routes under an engine that plays the role of RequestID and
// Auth: every request carries callerID.
func newEngine(t *testing.T, mount func(r gin.IRoutes, h *Handlers), d Deps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-test")
		c.Set("profileID", callerID)
		c.Set("userID", "acct-caller")
		c.Next()
	})
	mount(r, New(d))
	return r
}

func do(r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("error body: %v (%s)", err, w.Body.String())
	}
	return e
}

func expectErr(t *testing.T, w *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (%s)", w.Code, status, w.Body.String())
	}
	e := decodeErr(t, w)
	if e.Code != code || e.RequestID != "rid-test" {
		t.Fatalf("envelope = %+v, want code %q", e, code)
	}
	return e
}
