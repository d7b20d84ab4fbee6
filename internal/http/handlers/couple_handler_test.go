package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/couple-checkin/internal/domain"
	"github.com/tbourn/couple-checkin/internal/services"
)

func mountCouples(r gin.IRoutes, h *Handlers) {
	r.GET("/couple", h.GetCouple)
	r.DELETE("/couple", h.DeleteCouple)
	r.POST("/invitations", h.CreateInvitation)
	r.GET("/invitations/:token", h.PreviewInvitation)
	r.POST("/invitations/:token/redeem", h.RedeemInvitation)
}

func TestGetCouple_NoActiveCouple(t *testing.T) {
	svc := &stubCouples{active: func(string) (*services.CoupleView, error) {
		return nil, services.ErrNoActiveCouple
	}}
	r := newEngine(t, mountCouples, Deps{Couples: svc})
	expectErr(t, do(r, http.MethodGet, "/couple", nil), http.StatusConflict, ErrCodeConflict)
}

func TestDeleteCouple_NoContent(t *testing.T) {
	var got string
	svc := &stubCouples{deactivate: func(id string) (*domain.Couple, error) {
		got = id
		return &domain.Couple{ID: "c1"}, nil
	}}
	r := newEngine(t, mountCouples, Deps{Couples: svc})
	w := do(r, http.MethodDelete, "/couple", nil)
	if w.Code != http.StatusNoContent || got != callerID {
		t.Fatalf("status = %d, id = %q", w.Code, got)
	}
}

func TestCreateInvitation_Created(t *testing.T) {
	svc := &stubPairing{issue: func(string) (*services.IssuedInvitation, error) {
		return &services.IssuedInvitation{Token: "tok", Link: "https://app/invite/tok"}, nil
	}}
	r := newEngine(t, mountCouples, Deps{Pairing: svc})
	w := do(r, http.MethodPost, "/invitations", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
}

func TestPreviewInvitation_NotFound(t *testing.T) {
	svc := &stubPairing{preview: func(string) (*services.InvitationPreview, error) {
		return nil, services.ErrInvitationNotFound
	}}
	r := newEngine(t, mountCouples, Deps{Pairing: svc})
	expectErr(t, do(r, http.MethodGet, "/invitations/nope", nil), http.StatusNotFound, ErrCodeNotFound)
}

func TestRedeemInvitation_Errors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"expired", services.ErrInvitationExpired, http.StatusGone, ErrCodeGone},
		{"incompatible", services.ErrIncompatibleRoles, http.StatusConflict, ErrCodeIncompatibleRoles},
		{"already paired", services.ErrAlreadyPaired, http.StatusConflict, ErrCodeAlreadyPaired},
		{"unknown", errors.New("db down"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubPairing{redeem: func(string, string) (*domain.Couple, error) { return nil, tc.err }}
			r := newEngine(t, mountCouples, Deps{Pairing: svc})
			expectErr(t, do(r, http.MethodPost, "/invitations/tok/redeem", nil), tc.status, tc.code)
		})
	}
}

func TestRedeemInvitation_Created(t *testing.T) {
	var token, redeemer string
	svc := &stubPairing{redeem: func(tok, id string) (*domain.Couple, error) {
		token, redeemer = tok, id
		return &domain.Couple{ID: "c1", IsActive: true}, nil
	}}
	r := newEngine(t, mountCouples, Deps{Pairing: svc})
	w := do(r, http.MethodPost, "/invitations/tok/redeem", nil)
	if w.Code != http.StatusCreated || token != "tok" || redeemer != callerID {
		t.Fatalf("status = %d, token = %q, redeemer = %q", w.Code, token, redeemer)
	}
}
