// Olive branch HTTP handlers.
//
//   - POST /olive-branches  (idempotent with Idempotency-Key)
//   - GET  /olive-branches  (paginated, ETag support)
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/couple-checkin/internal/http/middleware"
	"github.com/tbourn/couple-checkin/internal/services"
)

// SendOliveBranchRequest is the message payload. couple_id and recipient_id
// are optional and checked against the sender's active couple.
type SendOliveBranchRequest struct {
	CoupleID    string  `json:"couple_id"`
	RecipientID string  `json:"recipient_id"`
	Message     string  `json:"message"`
	AudioKey    *string `json:"audio_key"`
}

// ListOliveBranchesResponse wraps a page of messages.
type ListOliveBranchesResponse struct {
	Messages   []services.OliveBranchView `json:"messages"`
	Pagination Pagination                 `json:"pagination"`
}

// SendOliveBranch godoc
// @ID          sendOliveBranch
// @Summary     Send olive branch
// @Description Sends a reconciliation message to the caller's partner. A repeated Idempotency-Key returns the stored message instead of sending again.
// @Tags        OliveBranches
// @Accept      json
// @Produce     json
//
// @Security    BearerAuth
// @Param       Authorization  header  string  true  "Bearer access token"  example(Bearer eyJhbGciOi...)
// @Param       Idempotency-Key header string  false "Replays the stored outcome of a repeated request"  maxlength(200)
// @Param       body           body    handlers.SendOliveBranchRequest  true  "Message"
//
// @Success     201  {object} domain.OliveBranchMessage
// @Header      201  {string} Idempotency-Replayed "true when served from a stored outcome"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     403  {object} handlers.ErrorResponse "Not your couple"
// @Failure     409  {object} handlers.ErrorResponse "Conflict"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /olive-branches [post]
func (h *Handlers) SendOliveBranch(c *gin.Context) {
	ctx := c.Request.Context()
	pid := middleware.ProfileID(c)

	if rp, found := middleware.GetReplay(c); found {
		m, err := h.d.OliveBranch.Get(ctx, pid, rp.ResourceID)
		if err == nil {
			replayed(c)
			ok(c, rp.Status, m)
			return
		}
		middleware.LoggerFrom(c).Warn().Err(err).Msg("replay target unavailable, sending again")
	}

	var req SendOliveBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failCode(c, http.StatusBadRequest, ErrCodeBadRequest, "error.bad_request")
		return
	}
	if req.AudioKey != nil && strings.TrimSpace(*req.AudioKey) == "" {
		req.AudioKey = nil
	}

	m, err := h.d.OliveBranch.Send(ctx, pid, services.OliveBranchInput{
		CoupleID:    strings.TrimSpace(req.CoupleID),
		RecipientID: strings.TrimSpace(req.RecipientID),
		Message:     req.Message,
		AudioKey:    req.AudioKey,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	middleware.CountEvent(middleware.EventOliveBranchSent)
	h.remember(c, m.ID, http.StatusCreated)
	ok(c, http.StatusCreated, m)
}

// ListOliveBranches godoc
// @ID          listOliveBranches
// @Summary     List olive branches (paginated)
// @Description Returns a page of the couple's messages, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        OliveBranches
// @Produce     json
//
// @Security    BearerAuth
// @Param       Authorization  header  string  true  "Bearer access token"  example(Bearer eyJhbGciOi...)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListOliveBranchesResponse
// @Header      200  {string} ETag           "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /olive-branches [get]
func (h *Handlers) ListOliveBranches(c *gin.Context) {
	ctx := c.Request.Context()
	pid := middleware.ProfileID(c)
	page, pageSize := clampPagination(c)

	if count, latest, err := h.d.OliveBranch.Stats(ctx, pid); err == nil {
		scope := strings.Join([]string{"olive-branches", pid, strconv.Itoa(page), strconv.Itoa(pageSize)}, ":")
		if notModified(c, scope, count, latest) {
			return
		}
	}

	items, total, err := h.d.OliveBranch.List(ctx, pid, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListOliveBranchesResponse{
		Messages:   items,
		Pagination: newPagination(page, pageSize, total),
	})
}
