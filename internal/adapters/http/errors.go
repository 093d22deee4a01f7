package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PabloGalante/ask-michael/internal/domain"
	"github.com/PabloGalante/ask-michael/internal/observability"
)

const (
	msgUnauthorized = "Unauthorized - please sign in"
	msgRateLimited  = "Daily message limit reached. Please upgrade your plan."
	msgNotFound     = "Conversation not found"
	msgInvalidBody  = "Invalid request body"
	msgNoMessages   = "Invalid request - messages array required"
)

func errorBody(msg string) gin.H {
	return gin.H{"success": false, "error": msg}
}

// statusFor maps a service error to a status and client message. fallback is
// the message for server-side failures.
func statusFor(err error, fallback string) (int, string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Msg
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, msgUnauthorized
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, msgRateLimited
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	default:
		return http.StatusInternalServerError, fallback
	}
}

func writeError(c *gin.Context, err error, fallback string) {
	status, msg := statusFor(err, fallback)
	if status == http.StatusInternalServerError {
		observability.LoggerFromContext(c.Request.Context()).Error("request failed",
			"path", c.Request.URL.Path,
			"error", err,
		)
	}
	c.JSON(status, errorBody(msg))
}

// bindErrorMessage names the ask fields whose JSON type is wrong.
func bindErrorMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		switch {
		case strings.HasPrefix(typeErr.Field, "messages"):
			return msgNoMessages
		case strings.HasPrefix(typeErr.Field, "conversationId"):
			return "Invalid request - conversationId required"
		}
	}
	return msgInvalidBody
}
