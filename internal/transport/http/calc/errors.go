package calchttp

import (
	"errors"
	"net/http"

	"positionsizer/internal/gateway/binance"
	"positionsizer/internal/service/calculator"
	"positionsizer/internal/session"
	"positionsizer/internal/sizing"

	"github.com/gin-gonic/gin"
)

// statusFor maps an error onto the response status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, calculator.ErrJournalDisabled),
		errors.Is(err, binance.ErrCircuitOpen),
		errors.Is(err, binance.ErrNoCredentials):
		return http.StatusServiceUnavailable
	}
	switch sizing.Kind(err) {
	case sizing.KindParse, sizing.KindInvalid, sizing.KindNotOffered:
		return http.StatusBadRequest
	case sizing.KindUndefined:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) gin.H {
	body := gin.H{"error": err.Error()}
	if kind := sizing.Kind(err); kind != sizing.KindInternal {
		body["kind"] = kind
	}
	return body
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusFor(err), errorBody(err))
}
