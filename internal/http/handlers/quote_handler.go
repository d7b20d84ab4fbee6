package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/couple-checkin/internal/domain"
	"github.com/tbourn/couple-checkin/internal/utils"
)

// QuotesResponse lists suggested quotes, best match first.
type QuotesResponse struct {
	Quotes []domain.Quote `json:"quotes"`
}

// RandomQuote godoc
// @ID          randomQuote
// @Summary     Random quote
// @Description Returns one inspirational quote.
// @Tags        Quotes
// @Produce     json
//
// @Security    BearerAuth
// @Param       Authorization  header  string  true  "Bearer access token"  example(Bearer eyJhbGciOi...)
//
// @Success     200  {object} domain.Quote
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     404  {object} handlers.ErrorResponse "No quotes loaded"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /quotes/random [get]
func (h *Handlers) RandomQuote(c *gin.Context) {
	q, err := h.d.Quotes.Random(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, q)
}

// SuggestQuotes godoc
// @ID          suggestQuotes
// @Summary     Suggest quotes
// @Description Ranks quotes against q, for example a draft olive branch, best match first.
// @Tags        Quotes
// @Produce     json
//
// @Security    BearerAuth
// @Param       Authorization  header  string  true  "Bearer access token"  example(Bearer eyJhbGciOi...)
// @Param       q              query   string  false "Text to match"
// @Param       k              query   int     false "Number of quotes"  minimum(1) maximum(10) default(3)
//
// @Success     200  {object} handlers.QuotesResponse
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /quotes/suggest [get]
func (h *Handlers) SuggestQuotes(c *gin.Context) {
	k := utils.Clamp(utils.AtoiDefault(c.Query("k"), 3), 1, 10)
	quotes, err := h.d.Quotes.Suggest(c.Request.Context(), c.Query("q"), k)
	if err != nil {
		failErr(c, err)
		return
	}
	if quotes == nil {
		quotes = []domain.Quote{}
	}
	ok(c, http.StatusOK, QuotesResponse{Quotes: quotes})
}
