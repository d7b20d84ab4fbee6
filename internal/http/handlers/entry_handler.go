// Daily entry and custom dimension HTTP handlers.
//
//   - POST /entries         (idempotent with Idempotency-Key)
//   - GET  /entries         (paginated, date range, ETag support)
//   - GET  /entries/today
//   - GET  /entries/trend
//   - GET  /dimensions
//   - POST /dimensions
//
// Read endpoints take an optional profile_id query parameter so a partner
// can read the other's journal; it defaults to the caller.
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/couple-checkin/internal/domain"
	"github.com/tbourn/couple-checkin/internal/http/middleware"
	"github.com/tbourn/couple-checkin/internal/repo"
	"github.com/tbourn/couple-checkin/internal/services"
)

// CreateEntryRequest is the check-in payload. All four ratings are required;
// custom_dimensions maps dimension id to value and may omit dimensions, which
// are then stored at 50.
type CreateEntryRequest struct {
	HorninessLevel   *int           `json:"horniness_level"   binding:"required"`
	GeneralFeeling   *int           `json:"general_feeling"   binding:"required"`
	SleepQuality     *int           `json:"sleep_quality"     binding:"required"`
	EmotionalState   *int           `json:"emotional_state"   binding:"required"`
	CustomDimensions map[string]int `json:"custom_dimensions"`
}

// CreateDimensionRequest names a new custom dimension.
type CreateDimensionRequest struct {
	Name string `json:"name" binding:"required"`
}

// ListEntriesResponse wraps a page of entries and pagination information.
type ListEntriesResponse struct {
	Entries    []domain.DailyEntry `json:"entries"`
	Pagination Pagination          `json:"pagination"`
}

// TrendResponse is the per-date averaged series, oldest first.
type TrendResponse struct {
	ProfileID string                `json:"profile_id"`
	Points    []services.TrendPoint `json:"points"`
}

// DimensionsResponse lists the couple's custom dimensions.
type DimensionsResponse struct {
	Dimensions []domain.CustomDimension `json:"dimensions"`
}

// targetProfile returns the profile_id query parameter or the caller.
func targetProfile(c *gin.Context) string {
	if id := strings.TrimSpace(c.Query("profile_id")); id != "" {
		return id
	}
	return middleware.ProfileID(c)
}

func dateRange(c *gin.Context) repo.DateRange {
	return repo.DateRange{
		From: strings.TrimSpace(c.Query("from")),
		To:   strings.TrimSpace(c.Query("to")),
	}
}

// CreateEntry godoc
// @ID          createEntry
// @Summary     Record check-in
// @Description Records a daily entry for the caller. A repeated Idempotency-Key returns the stored entry instead of saving again.
// @Tags        Entries
// @Accept      json
// @Produce     json
//
// @Security    BearerAuth
// @Param       Authorization  header  string  true  "Bearer access token"  example(Bearer eyJhbGciOi...)
// @Param       Idempotency-Key header string  false "Replays the stored outcome of a repeated request"  maxlength(200)
// @Param       body           body    handlers.CreateEntryRequest  true  "Ratings"
//
// @Success     201  {object} domain.DailyEntry
// @Header      201  {string} Idempotency-Replayed "true when served from a stored outcome"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     403  {object} handlers.ErrorResponse "Not your couple"
// @Failure     409  {object} handlers.ErrorResponse "Conflict"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /entries [post]
func (h *Handlers) CreateEntry(c *gin.Context) {
	ctx := c.Request.Context()
	pid := middleware.ProfileID(c)

	if rp, found := middleware.GetReplay(c); found {
		e, err := h.d.Entries.Get(ctx, pid, rp.ResourceID)
		if err == nil {
			replayed(c)
			ok(c, rp.Status, e)
			return
		}
		middleware.LoggerFrom(c).Warn().Err(err).Msg("replay target unavailable, saving again")
	}

	var req CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failCode(c, http.StatusBadRequest, ErrCodeBadRequest, "error.bad_request")
		return
	}

	e, err := h.d.Entries.Save(ctx, pid, services.CheckIn{
		Ratings: domain.Ratings{
			HorninessLevel: *req.HorninessLevel,
			GeneralFeeling: *req.GeneralFeeling,
			SleepQuality:   *req.SleepQuality,
			EmotionalState: *req.EmotionalState,
		},
		Custom: req.CustomDimensions,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	middleware.CountEvent(middleware.EventEntrySaved)
	h.remember(c, e.ID, http.StatusCreated)
	ok(c, http.StatusCreated, e)
}

// ListEntries godoc
// @ID          listEntries
// @Summary     List entries (paginated)
// @Description Returns a page of the owner's entries, newest first, optionally bounded by date. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Entries
// @Produce     json
//
// @Security    BearerAuth
// @Param       Authorization  header  string  true  "Bearer access token"  example(Bearer eyJhbGciOi...)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       profile_id     query   string  false "Profile to read; defaults to the caller"
// @Param       from           query   string  false "First date, inclusive (YYYY-MM-DD)"  example(2024-05-01)
// @Param       to             query   string  false "Last date, inclusive (YYYY-MM-DD)"   example(2024-05-31)
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListEntriesResponse
// @Header      200  {string} ETag           "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     403  {object} handlers.ErrorResponse "Not your couple"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /entries [get]
func (h *Handlers) ListEntries(c *gin.Context) {
	ctx := c.Request.Context()
	viewer, owner := middleware.ProfileID(c), targetProfile(c)
	page, pageSize := clampPagination(c)
	r := dateRange(c)

	// ETag pre-check (best effort).
	if count, latest, err := h.d.Entries.Stats(ctx, viewer, owner); err == nil {
		scope := strings.Join([]string{"entries", owner, r.From, r.To, strconv.Itoa(page), strconv.Itoa(pageSize)}, ":")
		if notModified(c, scope, count, latest) {
			return
		}
	}

	items, total, err := h.d.Entries.List(ctx, viewer, owner, r, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListEntriesResponse{
		Entries:    items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// TodayEntry godoc
// @ID          todayEntry
// @Summary     Get today's entry
// @Description Returns the latest entry dated today in the owner's timezone.
// @Tags        Entries
// @Produce     json
//
// @Security    BearerAuth
// @Param       Authorization  header  string  true  "Bearer access token"  example(Bearer eyJhbGciOi...)
// @Param       profile_id     query   string  false "Profile to read; defaults to the caller"
//
// @Success     200  {object} domain.DailyEntry
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     403  {object} handlers.ErrorResponse "Not your couple"
// @Failure     404  {object} handlers.ErrorResponse "No entry today"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /entries/today [get]
func (h *Handlers) TodayEntry(c *gin.Context) {
	e, err := h.d.Entries.Today(c.Request.Context(), middleware.ProfileID(c), targetProfile(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, e)
}

// EntryTrend godoc
// @ID          entryTrend
// @Summary     Get rating trend
// @Description Returns per-date averages of the owner's ratings, oldest first.
// @Tags        Entries
// @Produce     json
//
// @Security    BearerAuth
// @Param       Authorization  header  string  true  "Bearer access token"  example(Bearer eyJhbGciOi...)
// @Param       profile_id     query   string  false "Profile to read; defaults to the caller"
// @Param       from           query   string  false "First date, inclusive (YYYY-MM-DD)"  example(2024-05-01)
// @Param       to             query   string  false "Last date, inclusive (YYYY-MM-DD)"   example(2024-05-31)
//
// @Success     200  {object} handlers.TrendResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     403  {object} handlers.ErrorResponse "Not your couple"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /entries/trend [get]
func (h *Handlers) EntryTrend(c *gin.Context) {
	owner := targetProfile(c)
	points, err := h.d.Entries.Trend(c.Request.Context(), middleware.ProfileID(c), owner, dateRange(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, TrendResponse{ProfileID: owner, Points: points})
}

// ListDimensions godoc
// @ID          listDimensions
// @Summary     List custom dimensions
// @Description Returns the custom rating dimensions of the caller's couple, oldest first.
// @Tags        Dimensions
// @Produce     json
//
// @Security    BearerAuth
// @Param       Authorization  header  string  true  "Bearer access token"  example(Bearer eyJhbGciOi...)
//
// @Success     200  {object} handlers.DimensionsResponse
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     409  {object} handlers.ErrorResponse "Not paired"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /dimensions [get]
func (h *Handlers) ListDimensions(c *gin.Context) {
	dims, err := h.d.Dimensions.List(c.Request.Context(), middleware.ProfileID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, DimensionsResponse{Dimensions: dims})
}

// CreateDimension godoc
// @ID          createDimension
// @Summary     Add custom dimension
// @Description Adds a custom rating dimension to the caller's couple.
// @Tags        Dimensions
// @Accept      json
// @Produce     json
//
// @Security    BearerAuth
// @Param       Authorization  header  string  true  "Bearer access token"  example(Bearer eyJhbGciOi...)
// @Param       body           body    handlers.CreateDimensionRequest  true  "Dimension name"
//
// @Success     201  {object} domain.CustomDimension
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     409  {object} handlers.ErrorResponse "Not paired"
// @Failure     409  {object} handlers.ErrorResponse "Conflict"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /dimensions [post]
func (h *Handlers) CreateDimension(c *gin.Context) {
	var req CreateDimensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failCode(c, http.StatusBadRequest, ErrCodeBadRequest, "error.bad_request")
		return
	}
	d, err := h.d.Dimensions.Create(c.Request.Context(), middleware.ProfileID(c), req.Name)
	if err != nil {
		failErr(c, err)
		return
	}
	middleware.CountEvent(middleware.EventCustomDimensionMade)
	ok(c, http.StatusCreated, d)
}
