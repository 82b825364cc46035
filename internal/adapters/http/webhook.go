package httpadapter

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PabloGalante/taskbot/internal/app/conversation"
	"github.com/PabloGalante/taskbot/internal/observability"
)

// webhookRequest accepts both the provider's form posts and JSON.
type webhookRequest struct {
	Body string `form:"Body" json:"Body"`
	From string `form:"From" json:"From"`
}

type webhookResponse struct {
	Success  bool     `json:"success"`
	Response []string `json:"response,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func (s *Server) handleWhatsApp(c *gin.Context) {
	ctx := c.Request.Context()
	log := observability.LoggerFromContext(ctx)

	var req webhookRequest
	if err := c.ShouldBind(&req); err != nil {
		log.Warn("invalid webhook payload", "error", err)
	}
	if strings.TrimSpace(req.Body) == "" || strings.TrimSpace(req.From) == "" {
		c.JSON(http.StatusBadRequest, webhookResponse{Error: "Missing required fields: Body and From"})
		return
	}

	reply, err := s.svc.HandleMessage(ctx, req.From, req.Body)
	if err != nil {
		log.Error("webhook message failed", "error", err)
		if errors.Is(err, conversation.ErrOwnerUnavailable) {
			c.JSON(http.StatusOK, webhookResponse{Error: "Something went wrong. Please try again later."})
			return
		}
	}

	c.JSON(http.StatusOK, webhookResponse{Success: true, Response: []string{reply}})
}

func (s *Server) handleWebhookHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "whatsapp-webhook"})
}
