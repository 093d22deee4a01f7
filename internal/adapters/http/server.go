package httpadapter

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PabloGalante/ask-michael/internal/app/advice"
	"github.com/PabloGalante/ask-michael/internal/app/conversation"
)

type Options struct {
	// UserHeader carries the caller identity set by the authenticating proxy.
	UserHeader string
	// AllowedOrigins lists browser origins allowed by CORS. Empty allows any.
	AllowedOrigins []string
}

type Server struct {
	convs  *conversation.Service
	advice *advice.Service
	opts   Options
}

func NewServer(convs *conversation.Service, adv *advice.Service, opts Options) http.Handler {
	if opts.UserHeader == "" {
		opts.UserHeader = "X-User-Id"
	}
	s := &Server{convs: convs, advice: adv, opts: opts}

	r := gin.New()
	r.Use(withRecovery(), withRequestLogging(), withCORS(opts.AllowedOrigins, opts.UserHeader))

	r.GET("/healthz", s.handleHealthz)

	api := r.Group("/api", withIdentity(opts.UserHeader))
	{
		api.POST("/ask", s.handleAsk)
		api.GET("/usage", s.handleUsage)

		conversations := api.Group("/conversation")
		{
			conversations.POST("/new", s.handleNewConversation)
			conversations.GET("", s.handleGetConversations)
			conversations.PUT("/:conversationId", s.handleSaveConversation)
			conversations.PATCH("/:conversationId", s.handleRenameConversation)
			conversations.DELETE("/:conversationId", s.handleDeleteConversation)
		}

		// Pinning lives under /projects in the web client.
		api.PATCH("/projects/:conversationId/star", s.handleToggleStar)
	}

	return r
}
