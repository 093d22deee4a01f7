package httpadapter

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/PabloGalante/ask-michael/internal/domain"
	"github.com/PabloGalante/ask-michael/internal/observability"
)

const (
	requestIDHeader = "X-Request-Id"
	ctxKeyUserID    = "user_id"
)

// withRequestLogging assigns a request id, puts it in the request context
// and logs every request once it is served.
func withRequestLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(requestIDHeader, reqID)
		ctx := observability.WithRequestID(c.Request.Context(), reqID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		observability.LoggerFromContext(ctx).Info("http request",
			"method", c.Request.Method,
			"route", route,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"user_id", c.GetString(ctxKeyUserID),
		)
	}
}

// withRecovery turns a panic into a 500 with the usual error body.
func withRecovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		observability.LoggerFromContext(c.Request.Context()).Error("panic serving request",
			"path", c.Request.URL.Path,
			"panic", recovered,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody("Internal server error"))
	})
}

// withCORS echoes allowed origins. With no allow list every origin is accepted;
// otherwise unknown browser origins get 403.
func withCORS(allowed []string, userHeader string) gin.HandlerFunc {
	allowHeaders := strings.Join([]string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader, userHeader}, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			switch {
			case len(allowed) == 0:
				c.Header("Access-Control-Allow-Origin", "*")
			case slices.Contains(allowed, origin):
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			default:
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", allowHeaders)
			c.Header("Access-Control-Expose-Headers", requestIDHeader)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// withIdentity rejects requests without a caller identity.
func withIdentity(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(header))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(msgUnauthorized))
			return
		}
		c.Set(ctxKeyUserID, userID)
		c.Next()
	}
}

func userFrom(c *gin.Context) domain.UserID {
	return domain.UserID(c.GetString(ctxKeyUserID))
}
