package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/couple-checkin/internal/auth"
)

func newAuthRouter(t *testing.T, iss *auth.Issuer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Auth(iss))
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c)+"|"+ProfileID(c))
	})
	return r
}

func TestAuth_ValidToken(t *testing.T) {
	iss, err := auth.NewIssuer(strings.Repeat("k", 32), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	tok, _, err := iss.Issue("acct-1", "prof-1")
	if err != nil {
		t.Fatal(err)
	}
	r := newAuthRouter(t, iss)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != "acct-1|prof-1" {
		t.Fatalf("identity=%q", got)
	}
}

func TestAuth_Rejects(t *testing.T) {
	iss, _ := auth.NewIssuer(strings.Repeat("k", 32), time.Hour)
	other, _ := auth.NewIssuer(strings.Repeat("z", 32), time.Hour)
	foreign, _, _ := other.Issue("acct-1", "prof-1")

	expiredIss, _ := auth.NewIssuer(strings.Repeat("k", 32), time.Hour)
	expiredIss.Now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, _ := expiredIss.Issue("acct-1", "prof-1")

	r := newAuthRouter(t, iss)
	cases := map[string]string{
		"missing": "",
		"scheme":  "Basic abc",
		"empty":   "Bearer ",
		"garbage": "Bearer not-a-jwt",
		"foreign": "Bearer " + foreign,
		"expired": "Bearer " + expired,
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if h != "" {
				req.Header.Set("Authorization", h)
			}
			r.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status=%d want 401", w.Code)
			}
			if !strings.Contains(w.Body.String(), `"code":"unauthorized"`) {
				t.Fatalf("body=%s", w.Body.String())
			}
			if w.Header().Get("WWW-Authenticate") == "" {
				t.Fatal("missing WWW-Authenticate")
			}
		})
	}
}
