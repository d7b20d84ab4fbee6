package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/couple-checkin/internal/services"
)

func mountReminders(r gin.IRoutes, h *Handlers) { r.POST("/reminders", h.SendReminder) }

func TestSendReminder(t *testing.T) {
	svc := &stubReminders{}
	r := newEngine(t, mountReminders, Deps{Reminders: svc})

	w := do(r, http.MethodPost, "/reminders", ReminderRequest{PartnerUserID: " p2 ", PartnerName: " Bo "})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if svc.req.PartnerProfileID != "p2" || svc.req.PartnerName != "Bo" {
		t.Fatalf("request = %+v", svc.req)
	}

	expectErr(t, do(r, http.MethodPost, "/reminders", `{}`), http.StatusBadRequest, ErrCodeBadRequest)
}

func TestSendReminder_CamelCaseBody(t *testing.T) {
	svc := &stubReminders{}
	r := newEngine(t, mountReminders, Deps{Reminders: svc})

	w := do(r, http.MethodPost, "/reminders", `{"partnerUserId":"p2","senderName":"Al","partnerName":"Bo"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	want := services.ReminderRequest{PartnerProfileID: "p2", SenderName: "Al", PartnerName: "Bo"}
	if svc.req != want {
		t.Fatalf("request = %+v, want %+v", svc.req, want)
	}

	// snake_case keys leave the required id empty.
	expectErr(t, do(r, http.MethodPost, "/reminders", `{"partner_profile_id":"p2"}`), http.StatusBadRequest, ErrCodeBadRequest)
}

func TestSendReminder_NotPartner(t *testing.T) {
	r := newEngine(t, mountReminders, Deps{Reminders: &stubReminders{err: services.ErrForbidden}})
	w := do(r, http.MethodPost, "/reminders", ReminderRequest{PartnerUserID: "stranger"})
	expectErr(t, w, http.StatusForbidden, ErrCodeForbidden)
}
