package httpadapter

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PabloGalante/ask-michael/internal/app/advice"
	"github.com/PabloGalante/ask-michael/internal/app/conversation"
	"github.com/PabloGalante/ask-michael/internal/domain"
)

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type askRequest struct {
	Messages       []domain.Message `json:"messages"`
	ConversationID string           `json:"conversationId"`
}

type saveConversationRequest struct {
	Messages    []domain.Message `json:"messages"`
	Title       string           `json:"title"`
	ProjectType string           `json:"projectType"`
	IsoMode     bool             `json:"isoMode"`
}

type renameRequest struct {
	Title string `json:"title"`
}

// ─────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// POST /api/ask
func (s *Server) handleAsk(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(bindErrorMessage(err)))
		return
	}

	res, err := s.advice.Ask(c.Request.Context(), advice.AskInput{
		UserID:         userFrom(c),
		ConversationID: domain.ConversationID(req.ConversationID),
		Messages:       req.Messages,
	})
	if err != nil {
		writeError(c, err, "Failed to process request")
		return
	}

	c.Data(res.Status, "application/json; charset=utf-8", res.Body)
}

// GET /api/usage
func (s *Server) handleUsage(c *gin.Context) {
	usage, err := s.advice.Usage(c.Request.Context(), userFrom(c))
	if err != nil {
		writeError(c, err, "Failed to load usage")
		return
	}
	c.JSON(http.StatusOK, usage)
}

// POST /api/conversation/new
func (s *Server) handleNewConversation(c *gin.Context) {
	id, err := s.convs.Start(c.Request.Context(), userFrom(c))
	if err != nil {
		writeError(c, err, "Failed to create new conversation")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversationId": id})
}

// GET /api/conversation            → sidebar list
// GET /api/conversation?conversationId=... → messages of one conversation
func (s *Server) handleGetConversations(c *gin.Context) {
	ctx := c.Request.Context()
	user := userFrom(c)

	if id := c.Query("conversationId"); id != "" {
		msgs, err := s.convs.Messages(ctx, user, domain.ConversationID(id))
		if err != nil {
			writeError(c, err, "Failed to load conversation")
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
		return
	}

	convs, err := s.convs.List(ctx, user)
	if err != nil {
		writeError(c, err, "Failed to load conversations")
		return
	}
	if convs == nil {
		convs = []*domain.Conversation{}
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// PUT /api/conversation/:conversationId rewrites the conversation. A new
// conversation answers 201.
func (s *Server) handleSaveConversation(c *gin.Context) {
	var req saveConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(msgInvalidBody))
		return
	}

	conv, outcome, err := s.convs.Save(c.Request.Context(), conversation.SaveInput{
		UserID:         userFrom(c),
		ConversationID: domain.ConversationID(c.Param("conversationId")),
		Messages:       req.Messages,
		Title:          req.Title,
		ProjectType:    domain.ProjectType(req.ProjectType),
		IsoMode:        req.IsoMode,
	})
	if err != nil {
		writeError(c, err, "Failed to save conversation")
		return
	}

	status := http.StatusOK
	if outcome == domain.Inserted {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"success": true, "conversation": conv})
}

// PATCH /api/conversation/:conversationId
func (s *Server) handleRenameConversation(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(msgInvalidBody))
		return
	}

	err := s.convs.Rename(c.Request.Context(), userFrom(c), domain.ConversationID(c.Param("conversationId")), req.Title)
	if err != nil {
		writeError(c, err, "Update failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DELETE /api/conversation/:conversationId
func (s *Server) handleDeleteConversation(c *gin.Context) {
	err := s.convs.Delete(c.Request.Context(), userFrom(c), domain.ConversationID(c.Param("conversationId")))
	if err != nil {
		writeError(c, err, "Delete failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PATCH /api/projects/:conversationId/star
func (s *Server) handleToggleStar(c *gin.Context) {
	starred, err := s.convs.TogglePin(c.Request.Context(), userFrom(c), domain.ConversationID(c.Param("conversationId")))
	if err != nil {
		writeError(c, err, "Update failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "starred": starred})
}
