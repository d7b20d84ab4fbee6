package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/couple-checkin/internal/domain"
	"github.com/tbourn/couple-checkin/internal/services"
)

func mountProfiles(r gin.IRoutes, h *Handlers) {
	r.POST("/auth/signup", h.Signup)
	r.POST("/auth/login", h.Login)
	r.GET("/profile", h.GetProfile)
	r.PATCH("/profile", h.UpdateProfile)
}

func TestSignup_Created(t *testing.T) {
	var got services.SignupInput
	svc := &stubProfiles{signup: func(in services.SignupInput) (*services.Session, error) {
		got = in
		return &services.Session{Token: "jwt", Profile: &domain.Profile{ID: "p1", Role: in.Role}}, nil
	}}
	r := newEngine(t, mountProfiles, Deps{Profiles: svc})

	w := do(r, http.MethodPost, "/auth/signup", SignupRequest{
		Email: "a@b.co", Password: "secret123", DisplayName: "Ana", Role: "wife",
	}, "Accept-Language", "es-MX,es;q=0.9")

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	var sess services.Session
	if err := json.Unmarshal(w.Body.Bytes(), &sess); err != nil {
		t.Fatal(err)
	}
	if sess.Token != "jwt" || sess.Profile == nil || sess.Profile.ID != "p1" {
		t.Fatalf("session = %+v", sess)
	}
	if got.Email != "a@b.co" || got.Role != "wife" || got.Locale != "es" {
		t.Fatalf("input = %+v", got)
	}
}

func TestSignup_LocaleFromBodyWins(t *testing.T) {
	var got services.SignupInput
	svc := &stubProfiles{signup: func(in services.SignupInput) (*services.Session, error) {
		got = in
		return &services.Session{}, nil
	}}
	r := newEngine(t, mountProfiles, Deps{Profiles: svc})

	do(r, http.MethodPost, "/auth/signup", SignupRequest{
		Email: "a@b.co", Password: "secret123", DisplayName: "Ana", Role: "wife", Locale: "en",
	}, "Accept-Language", "es")
	if got.Locale != "en" {
		t.Fatalf("locale = %q", got.Locale)
	}
}

func TestSignup_BadBody(t *testing.T) {
	r := newEngine(t, mountProfiles, Deps{Profiles: &stubProfiles{}})
	w := do(r, http.MethodPost, "/auth/signup", `{"email":"a@b.co"}`)
	expectErr(t, w, http.StatusBadRequest, ErrCodeBadRequest)
}

func TestSignup_EmailTakenTranslated(t *testing.T) {
	svc := &stubProfiles{signup: func(services.SignupInput) (*services.Session, error) {
		return nil, services.ErrEmailTaken
	}}
	r := newEngine(t, mountProfiles, Deps{Profiles: svc})

	w := do(r, http.MethodPost, "/auth/signup", SignupRequest{
		Email: "a@b.co", Password: "secret123", DisplayName: "Ana", Role: "wife",
	}, "Accept-Language", "es")
	e := expectErr(t, w, http.StatusConflict, ErrCodeConflict)
	if e.Message != "Ya existe una cuenta con este correo." {
		t.Fatalf("message = %q", e.Message)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &stubProfiles{login: func(string, string) (*services.Session, error) {
		return nil, services.ErrInvalidCredentials
	}}
	r := newEngine(t, mountProfiles, Deps{Profiles: svc})
	w := do(r, http.MethodPost, "/auth/login", LoginRequest{Email: "a@b.co", Password: "nope"})
	expectErr(t, w, http.StatusUnauthorized, ErrCodeUnauthorized)
}

func TestGetProfile_UsesCaller(t *testing.T) {
	svc := &stubProfiles{get: func(id string) (*domain.Profile, error) {
		return &domain.Profile{ID: id}, nil
	}}
	r := newEngine(t, mountProfiles, Deps{Profiles: svc})
	w := do(r, http.MethodGet, "/profile", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var p domain.Profile
	_ = json.Unmarshal(w.Body.Bytes(), &p)
	if p.ID != callerID {
		t.Fatalf("id = %q", p.ID)
	}
}

func TestUpdateProfile(t *testing.T) {
	t.Run("absent fields stay nil", func(t *testing.T) {
		var got services.ProfileUpdate
		svc := &stubProfiles{update: func(_ string, u services.ProfileUpdate) (*domain.Profile, error) {
			got = u
			return &domain.Profile{ID: callerID}, nil
		}}
		r := newEngine(t, mountProfiles, Deps{Profiles: svc})
		w := do(r, http.MethodPatch, "/profile", `{"timezone":"Europe/Athens"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if got.Timezone == nil || *got.Timezone != "Europe/Athens" || got.Role != nil || got.DisplayName != nil {
			t.Fatalf("update = %+v", got)
		}
	})

	t.Run("role change is a conflict", func(t *testing.T) {
		svc := &stubProfiles{update: func(string, services.ProfileUpdate) (*domain.Profile, error) {
			return nil, services.ErrRoleImmutable
		}}
		r := newEngine(t, mountProfiles, Deps{Profiles: svc})
		w := do(r, http.MethodPatch, "/profile", `{"role":"husband"}`)
		expectErr(t, w, http.StatusConflict, ErrCodeConflict)
	})
}
