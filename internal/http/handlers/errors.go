// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants and the table that maps
// service errors to (status, code, message key). Codes give clients a stable,
// machine-readable taxonomy; messages are translated with the request locale.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Generic codes mirror HTTP status semantics. Domain codes (gone,
//     incompatible_roles, already_paired, upstream_error) exist where clients
//     need to branch on more than the status.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "already_paired",
//	  "message": "One of you is already paired."
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/couple-checkin/internal/ai"
	"github.com/tbourn/couple-checkin/internal/http/middleware"
	"github.com/tbourn/couple-checkin/internal/i18n"
	"github.com/tbourn/couple-checkin/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeGone              = "gone"
	ErrCodeIncompatibleRoles = "incompatible_roles"
	ErrCodeAlreadyPaired     = "already_paired"
	ErrCodeUpstream          = "upstream_error"
)

// errorMapping translates one service error.
type errorMapping struct {
	err    error
	status int
	code   string
	key    string // i18n message key
}

var errorTable = []errorMapping{
	// validation
	{services.ErrInvalidEmail, http.StatusBadRequest, ErrCodeBadRequest, "error.invalid_email"},
	{services.ErrPasswordTooShort, http.StatusBadRequest, ErrCodeBadRequest, "error.password_too_short"},
	{services.ErrInvalidRole, http.StatusBadRequest, ErrCodeBadRequest, "error.invalid_role"},
	{services.ErrInvalidDisplayName, http.StatusBadRequest, ErrCodeBadRequest, "error.invalid_display_name"},
	{services.ErrInvalidTimezone, http.StatusBadRequest, ErrCodeBadRequest, "error.invalid_timezone"},
	{services.ErrInvalidSchedule, http.StatusBadRequest, ErrCodeBadRequest, "error.invalid_schedule"},
	{services.ErrInvalidLocale, http.StatusBadRequest, ErrCodeBadRequest, "error.invalid_locale"},
	{services.ErrRatingOutOfRange, http.StatusBadRequest, ErrCodeBadRequest, "error.rating_out_of_range"},
	{services.ErrInvalidDimensionName, http.StatusBadRequest, ErrCodeBadRequest, "error.invalid_dimension_name"},
	{services.ErrInvalidDate, http.StatusBadRequest, ErrCodeBadRequest, "error.invalid_date"},
	{services.ErrEmptyMessage, http.StatusBadRequest, ErrCodeBadRequest, "error.empty_message"},
	{services.ErrMessageTooLong, http.StatusBadRequest, ErrCodeBadRequest, "error.message_too_long"},
	{services.ErrUnknownDimension, http.StatusBadRequest, ErrCodeBadRequest, "error.unknown_dimension"},
	{ai.ErrInvalidAudio, http.StatusBadRequest, ErrCodeBadRequest, "error.invalid_audio"},
	{ai.ErrEmptyText, http.StatusBadRequest, ErrCodeBadRequest, "error.empty_text"},

	// identity
	{services.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeUnauthorized, "error.invalid_credentials"},
	{services.ErrEmailTaken, http.StatusConflict, ErrCodeConflict, "error.email_taken"},
	{services.ErrRoleImmutable, http.StatusConflict, ErrCodeConflict, "error.role_immutable"},
	{services.ErrProfileNotFound, http.StatusNotFound, ErrCodeNotFound, "error.profile_not_found"},

	// pairing
	{services.ErrNoActiveCouple, http.StatusConflict, ErrCodeConflict, "error.no_active_couple"},
	{services.ErrInvitationNotFound, http.StatusNotFound, ErrCodeNotFound, "error.invitation_not_found"},
	{services.ErrInvitationExpired, http.StatusGone, ErrCodeGone, "error.invitation_expired"},
	{services.ErrIncompatibleRoles, http.StatusConflict, ErrCodeIncompatibleRoles, "error.incompatible_roles"},
	{services.ErrAlreadyPaired, http.StatusConflict, ErrCodeAlreadyPaired, "error.already_paired"},

	// journal and messaging
	{services.ErrForbidden, http.StatusForbidden, ErrCodeForbidden, "error.forbidden"},
	{services.ErrNotPartner, http.StatusForbidden, ErrCodeForbidden, "error.not_partner"},
	{services.ErrEntryNotFound, http.StatusNotFound, ErrCodeNotFound, "error.entry_not_found"},
	{services.ErrMessageNotFound, http.StatusNotFound, ErrCodeNotFound, "error.message_not_found"},
	{services.ErrQuoteNotFound, http.StatusNotFound, ErrCodeNotFound, "error.quote_not_found"},

	// upstream
	{ai.ErrNotConfigured, http.StatusServiceUnavailable, ErrCodeUpstream, "error.upstream_not_configured"},
	{ai.ErrMalformedResponse, http.StatusBadGateway, ErrCodeUpstream, "error.upstream"},
}

// failErr maps err to the error envelope. Unknown errors become 500.
func failErr(c *gin.Context, err error) {
	loc := locale(c)
	var up *ai.UpstreamError
	if errors.As(err, &up) {
		middleware.LoggerFrom(c).Warn().Int("upstream_status", up.Status).Msg("upstream error")
		fail(c, http.StatusBadGateway, ErrCodeUpstream, i18n.T(loc, "error.upstream"))
		return
	}
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			fail(c, m.status, m.code, i18n.T(loc, m.key))
			return
		}
	}
	middleware.LoggerFrom(c).Error().Err(err).Msg("unmapped service error")
	fail(c, http.StatusInternalServerError, ErrCodeInternal, i18n.T(loc, "error.internal"))
}

// failCode writes a generic error envelope for code with a translated message.
func failCode(c *gin.Context, status int, code, key string) {
	fail(c, status, code, i18n.T(locale(c), key))
}
