package httpadapter

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PabloGalante/taskbot/internal/app/conversation"
	"github.com/PabloGalante/taskbot/internal/app/tasks"
)

type Server struct {
	svc     *conversation.Service
	tasks   *tasks.Manager
	router  *gin.Engine
	version string
}

// NewServer wires the webhook, health and REST routes.
func NewServer(svc *conversation.Service, m *tasks.Manager, version string) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), withRequestID(), withLogging(), withCORS())

	s := &Server{
		svc:     svc,
		tasks:   m,
		router:  router,
		version: version,
	}

	router.GET("/health", s.handleHealth)
	router.GET("/api", s.handleInfo)

	webhook := router.Group("/webhook")
	{
		webhook.POST("/whatsapp", s.handleWhatsApp)
		webhook.GET("/health", s.handleWebhookHealth)
	}

	api := router.Group("/api", s.requireOwner)
	{
		api.GET("/tasks", s.handleListTasks)
		api.GET("/tasks/today", s.handleTodayTasks)
		api.GET("/tasks/:id", s.handleGetTask)
		api.POST("/tasks", s.handleCreateTask)
		api.PUT("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.PUT("/owner", s.handleUpdateOwner)
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.version})
}

func (s *Server) handleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "taskbot",
		"version": s.version,
		"endpoints": []string{
			"POST /webhook/whatsapp",
			"GET /webhook/health",
			"GET /api/tasks",
			"GET /api/tasks/today",
			"GET /api/tasks/:id",
			"POST /api/tasks",
			"PUT /api/tasks/:id",
			"DELETE /api/tasks/:id",
			"PUT /api/owner",
		},
	})
}
