// Account and profile HTTP handlers.
//
//   - POST  /auth/signup  (public)
//   - POST  /auth/login   (public)
//   - GET   /profile
//   - PATCH /profile
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/couple-checkin/internal/http/middleware"
	"github.com/tbourn/couple-checkin/internal/services"
)

// SignupRequest is the JSON payload for creating an account.
type SignupRequest struct {
	Email       string `json:"email"        binding:"required"`
	Password    string `json:"password"     binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
	Role        string `json:"role"         binding:"required"`
	Timezone    string `json:"timezone"`
	Locale      string `json:"locale"`
}

// LoginRequest is the JSON payload for signing in.
type LoginRequest struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest is the PATCH /profile payload. Absent fields are kept.
type UpdateProfileRequest struct {
	DisplayName           *string   `json:"display_name"`
	Role                  *string   `json:"role"`
	NotificationFrequency *string   `json:"notification_frequency"`
	NotificationTimes     *[]string `json:"notification_times"`
	Timezone              *string   `json:"timezone"`
	Locale                *string   `json:"locale"`
}

// Signup godoc
// @ID          signup
// @Summary     Create an account
// @Description Creates an account and its profile and returns a session with a bearer token. The locale falls back to Accept-Language.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       Accept-Language header string false "Locale used when the body omits one"  example(de-DE)
// @Param       body           body    handlers.SignupRequest  true  "Account details"
//
// @Success     201  {object} services.Session
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     409  {object} handlers.ErrorResponse "Conflict"
// @Failure     429  {object} handlers.ErrorResponse "Rate limited"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/signup [post]
func (h *Handlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failCode(c, http.StatusBadRequest, ErrCodeBadRequest, "error.bad_request")
		return
	}
	loc := strings.TrimSpace(req.Locale)
	if loc == "" && c.GetHeader("Accept-Language") != "" {
		loc = locale(c)
	}

	sess, err := h.d.Profiles.Signup(c.Request.Context(), services.SignupInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        req.Role,
		Timezone:    req.Timezone,
		Locale:      loc,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, sess)
}

// Login godoc
// @ID          login
// @Summary     Sign in
// @Description Exchanges email and password for a session.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body           body    handlers.LoginRequest  true  "Credentials"
//
// @Success     200  {object} services.Session
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Invalid credentials"
// @Failure     429  {object} handlers.ErrorResponse "Rate limited"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failCode(c, http.StatusBadRequest, ErrCodeBadRequest, "error.bad_request")
		return
	}
	sess, err := h.d.Profiles.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, sess)
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Get own profile
// @Description Returns the profile of the authenticated caller.
// @Tags        Profile
// @Produce     json
//
// @Security    BearerAuth
// @Param       Authorization  header  string  true  "Bearer access token"  example(Bearer eyJhbGciOi...)
//
// @Success     200  {object} domain.Profile
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /profile [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	p, err := h.d.Profiles.Get(c.Request.Context(), middleware.ProfileID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// UpdateProfile godoc
// @ID          updateProfile
// @Summary     Update own profile
// @Description Changes display name, notification settings, timezone or locale. Absent fields are kept; changing the role is rejected.
// @Tags        Profile
// @Accept      json
// @Produce     json
//
// @Security    BearerAuth
// @Param       Authorization  header  string  true  "Bearer access token"  example(Bearer eyJhbGciOi...)
// @Param       body           body    handlers.UpdateProfileRequest  true  "Fields to change"
//
// @Success     200  {object} domain.Profile
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     404  {object} handlers.ErrorResponse "Not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /profile [patch]
func (h *Handlers) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failCode(c, http.StatusBadRequest, ErrCodeBadRequest, "error.bad_request")
		return
	}
	p, err := h.d.Profiles.UpdateProfile(c.Request.Context(), middleware.ProfileID(c), services.ProfileUpdate{
		DisplayName:           req.DisplayName,
		Role:                  req.Role,
		NotificationFrequency: req.NotificationFrequency,
		NotificationTimes:     req.NotificationTimes,
		Timezone:              req.Timezone,
		Locale:                req.Locale,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}
