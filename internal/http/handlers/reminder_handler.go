package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/couple-checkin/internal/http/middleware"
	"github.com/tbourn/couple-checkin/internal/services"
)

// ReminderRequest names the partner to remind. Names are optional display
// overrides.
type ReminderRequest struct {
	PartnerUserID string `json:"partnerUserId" binding:"required"`
	SenderName    string `json:"senderName"`
	PartnerName   string `json:"partnerName"`
}

// SendReminder godoc
// @ID          sendReminder
// @Summary     Remind partner
// @Description Emails the caller's partner a nudge to check in. partnerUserId must be the caller's active partner.
// @Tags        Reminders
// @Accept      json
// @Produce     json
//
// @Security    BearerAuth
// @Param       Authorization  header  string  true  "Bearer access token"  example(Bearer eyJhbGciOi...)
// @Param       body           body    handlers.ReminderRequest  true  "Partner to remind"
//
// @Success     200  {object} services.ReminderResult
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     403  {object} handlers.ErrorResponse "Not your couple"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Failure     502  {object} handlers.ErrorResponse "Upstream error"
// @Router      /reminders [post]
func (h *Handlers) SendReminder(c *gin.Context) {
	var req ReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failCode(c, http.StatusBadRequest, ErrCodeBadRequest, "error.bad_request")
		return
	}
	res, err := h.d.Reminders.Send(c.Request.Context(), middleware.ProfileID(c), services.ReminderRequest{
		PartnerProfileID: strings.TrimSpace(req.PartnerUserID),
		SenderName:       strings.TrimSpace(req.SenderName),
		PartnerName:      strings.TrimSpace(req.PartnerName),
	})
	if err != nil {
		failErr(c, err)
		return
	}
	middleware.CountEvent(middleware.EventReminderSent)
	ok(c, http.StatusOK, res)
}
