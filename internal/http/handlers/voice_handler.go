// Voice adapter HTTP handlers.
//
//   - POST /voice/metrics     spoken check-in text to ratings
//   - POST /voice/transcribe  base64 audio clip to text
//
// Both call a paid upstream; the router charges them extra rate-limit tokens.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/couple-checkin/internal/ai"
	"github.com/tbourn/couple-checkin/internal/http/middleware"
	"github.com/tbourn/couple-checkin/internal/services"
)

// VoiceMetricsRequest carries the transcript and, optionally, the names of
// the custom dimensions to rate. When customDimensions is omitted the names
// of the caller's couple dimensions are used.
type VoiceMetricsRequest struct {
	Text             string   `json:"text"`
	CustomDimensions []string `json:"customDimensions"`
}

// VoiceMetricsResponse is the inferred ratings, custom values keyed by name.
// DimensionIDs maps the names of stored couple dimensions to their ids so
// the values can be posted to /entries.
type VoiceMetricsResponse struct {
	*ai.Metrics
	DimensionIDs map[string]string `json:"dimension_ids,omitempty"`
}

// TranscribeRequest carries a base64 clip or data URL.
type TranscribeRequest struct {
	Audio       string `json:"audio"        binding:"required"`
	ContentType string `json:"content_type"`
}

// VoiceMetrics godoc
// @ID          voiceMetrics
// @Summary     Infer ratings from speech
// @Description Infers the four ratings and custom dimension values from a spoken check-in. customDimensions lists names; when omitted the couple's stored dimensions are used.
// @Tags        Voice
// @Accept      json
// @Produce     json
//
// @Security    BearerAuth
// @Param       Authorization  header  string  true  "Bearer access token"  example(Bearer eyJhbGciOi...)
// @Param       body           body    handlers.VoiceMetricsRequest  true  "Transcript"
//
// @Success     200  {object} handlers.VoiceMetricsResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     429  {object} handlers.ErrorResponse "Rate limited"
// @Failure     502  {object} handlers.ErrorResponse "Upstream error"
// @Failure     503  {object} handlers.ErrorResponse "Voice adapter not configured"
// @Router      /voice/metrics [post]
func (h *Handlers) VoiceMetrics(c *gin.Context) {
	if h.d.Metrics == nil {
		failErr(c, ai.ErrNotConfigured)
		return
	}
	var req VoiceMetricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failCode(c, http.StatusBadRequest, ErrCodeBadRequest, "error.bad_request")
		return
	}
	ctx := c.Request.Context()

	dims := ai.DimensionNames(req.CustomDimensions)
	var ids map[string]string
	if req.CustomDimensions == nil && h.d.Dimensions != nil {
		stored, err := h.d.Dimensions.List(ctx, middleware.ProfileID(c))
		switch {
		case err == nil:
			ids = make(map[string]string, len(stored))
			for _, d := range stored {
				name := strings.TrimSpace(d.Name)
				if _, dup := ids[name]; dup || name == "" {
					continue
				}
				ids[name] = d.ID
				dims = append(dims, name)
			}
		case !errors.Is(err, services.ErrNoActiveCouple):
			failErr(c, err)
			return
		}
	}

	m, err := h.d.Metrics.Parse(ctx, req.Text, dims)
	if !errors.Is(err, ai.ErrEmptyText) {
		middleware.CountUpstream("metrics", err)
	}
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, VoiceMetricsResponse{Metrics: m, DimensionIDs: ids})
}

// Transcribe godoc
// @ID          transcribe
// @Summary     Transcribe audio
// @Description Converts a base64 clip or data URL to text. When an archive is configured the response carries an audio_key that an olive branch can reference.
// @Tags        Voice
// @Accept      json
// @Produce     json
//
// @Security    BearerAuth
// @Param       Authorization  header  string  true  "Bearer access token"  example(Bearer eyJhbGciOi...)
// @Param       body           body    handlers.TranscribeRequest  true  "Audio clip"
//
// @Success     200  {object} ai.Transcript
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     429  {object} handlers.ErrorResponse "Rate limited"
// @Failure     502  {object} handlers.ErrorResponse "Upstream error"
// @Failure     503  {object} handlers.ErrorResponse "Voice adapter not configured"
// @Router      /voice/transcribe [post]
func (h *Handlers) Transcribe(c *gin.Context) {
	if h.d.Transcriber == nil {
		failErr(c, ai.ErrNotConfigured)
		return
	}
	var req TranscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failCode(c, http.StatusBadRequest, ErrCodeBadRequest, "error.bad_request")
		return
	}
	t, err := h.d.Transcriber.Transcribe(c.Request.Context(), ai.TranscribeInput{
		Audio:       req.Audio,
		ContentType: req.ContentType,
		ProfileID:   middleware.ProfileID(c),
	})
	if !errors.Is(err, ai.ErrInvalidAudio) {
		middleware.CountUpstream("transcribe", err)
	}
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}
