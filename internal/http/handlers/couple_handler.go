// Couple and invitation HTTP handlers.
//
//   - GET    /couple
//   - DELETE /couple
//   - POST   /invitations
//   - GET    /invitations/:token          (public)
//   - POST   /invitations/:token/redeem
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/couple-checkin/internal/http/middleware"
)

// GetCouple godoc
// @ID          getCouple
// @Summary     Get active couple
// @Description Returns the caller's active couple with the partner's profile.
// @Tags        Couple
// @Produce     json
//
// @Security    BearerAuth
// @Param       Authorization  header  string  true  "Bearer access token"  example(Bearer eyJhbGciOi...)
//
// @Success     200  {object} services.CoupleView
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     409  {object} handlers.ErrorResponse "Not paired"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /couple [get]
func (h *Handlers) GetCouple(c *gin.Context) {
	v, err := h.d.Couples.ActiveCouple(c.Request.Context(), middleware.ProfileID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, v)
}

// DeleteCouple godoc
// @ID          deleteCouple
// @Summary     Leave couple
// @Description Deactivates the caller's active couple. Entries and messages are kept.
// @Tags        Couple
// @Produce     json
//
// @Security    BearerAuth
// @Param       Authorization  header  string  true  "Bearer access token"  example(Bearer eyJhbGciOi...)
//
// @Success     204  {string} string "No Content"
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     409  {object} handlers.ErrorResponse "Not paired"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /couple [delete]
func (h *Handlers) DeleteCouple(c *gin.Context) {
	if _, err := h.d.Couples.Deactivate(c.Request.Context(), middleware.ProfileID(c)); err != nil {
		failErr(c, err)
		return
	}
	middleware.CountEvent(middleware.EventCoupleDeactivated)
	noContent(c)
}

// CreateInvitation godoc
// @ID          createInvitation
// @Summary     Issue invitation
// @Description Issues a single-use invitation token and link for a partner to redeem.
// @Tags        Invitations
// @Produce     json
//
// @Security    BearerAuth
// @Param       Authorization  header  string  true  "Bearer access token"  example(Bearer eyJhbGciOi...)
//
// @Success     201  {object} services.IssuedInvitation
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     409  {object} handlers.ErrorResponse "Already paired"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /invitations [post]
func (h *Handlers) CreateInvitation(c *gin.Context) {
	inv, err := h.d.Pairing.Issue(c.Request.Context(), middleware.ProfileID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	middleware.CountEvent(middleware.EventInvitationIssued)
	ok(c, http.StatusCreated, inv)
}

// PreviewInvitation godoc
// @ID          previewInvitation
// @Summary     Preview invitation
// @Description Shows who sent an invitation and whether it can still be redeemed. Public.
// @Tags        Invitations
// @Produce     json
//
// @Param       token          path    string  true  "Invitation token"
//
// @Success     200  {object} services.InvitationPreview
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     410  {object} handlers.ErrorResponse "Expired or used"
// @Failure     429  {object} handlers.ErrorResponse "Rate limited"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /invitations/{token} [get]
func (h *Handlers) PreviewInvitation(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		failCode(c, http.StatusBadRequest, ErrCodeBadRequest, "error.bad_request")
		return
	}
	p, err := h.d.Pairing.Preview(c.Request.Context(), token)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// RedeemInvitation godoc
// @ID          redeemInvitation
// @Summary     Redeem invitation
// @Description Pairs the caller with the invitation's sender and consumes the token.
// @Tags        Invitations
// @Produce     json
//
// @Security    BearerAuth
// @Param       Authorization  header  string  true  "Bearer access token"  example(Bearer eyJhbGciOi...)
// @Param       token          path    string  true  "Invitation token"
//
// @Success     201  {object} domain.Couple
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     409  {object} handlers.ErrorResponse "Conflict"
// @Failure     410  {object} handlers.ErrorResponse "Expired or used"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /invitations/{token}/redeem [post]
func (h *Handlers) RedeemInvitation(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		failCode(c, http.StatusBadRequest, ErrCodeBadRequest, "error.bad_request")
		return
	}
	couple, err := h.d.Pairing.Redeem(c.Request.Context(), token, middleware.ProfileID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	middleware.CountEvent(middleware.EventInvitationRedeemed)
	ok(c, http.StatusCreated, couple)
}
