package httpserver

import (
	"context"
	"net/http"
	"time"

	"commandmail/internal/handler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const version = "1.0.0"

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	Email  *handler.EmailHandler
	Agent  *handler.AgentHandler
	Prompt *handler.PromptHandler
	Draft  *handler.DraftHandler
}

type Options struct {
	Logger         *zap.Logger
	DB             Pinger
	AllowedOrigins []string
}

func NewRouter(h Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		TraceMiddleware(),
		CORS(opts.AllowedOrigins),
		RequestLogger(opts.Logger),
		MetricsMiddleware(),
		ErrorHandler(opts.Logger),
	)
	r.NoRoute(NotFound(opts.Logger))

	// Health endpoints
	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	head := func(c *gin.Context) { c.Status(http.StatusOK) }
	for _, p := range []string{"/healthz", "/health"} {
		r.GET(p, health)
		r.HEAD(p, head)
	}
	r.GET("/readyz", func(c *gin.Context) {
		if err := ping(c, opts.DB); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":   "CommandMail API - Email Productivity Agent",
			"status":    "running",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   version,
			"endpoints": gin.H{
				"emails":  "/api/emails",
				"prompts": "/api/prompts",
				"agent":   "/api/agent",
				"drafts":  "/api/drafts",
			},
		})
	})

	api := r.Group("/api")
	api.GET("", func(c *gin.Context) {
		database := "connected"
		if err := ping(c, opts.DB); err != nil {
			database = "disconnected"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"database":  database,
		})
	})

	emails := api.Group("/emails")
	{
		emails.POST("/load", h.Email.Load)
		emails.GET("", h.Email.List)
		emails.POST("/process-all", h.Email.ProcessAll)
		emails.POST("/process/:id", h.Email.Process)
		emails.GET("/:id", h.Email.Get)
		emails.PUT("/:id/action-items/:itemIndex/toggle", h.Email.ToggleActionItem)
	}

	agent := api.Group("/agent")
	{
		agent.POST("/query", h.Agent.Query)
		agent.POST("/chat", h.Agent.Chat)
		agent.POST("/generate-reply", h.Agent.GenerateReply)
		agent.POST("/summarize", h.Agent.Summarize)
		agent.POST("/urgent-summary", h.Agent.UrgentSummary)
	}

	prompts := api.Group("/prompts")
	{
		prompts.GET("", h.Prompt.List)
		prompts.POST("", h.Prompt.Save)
		prompts.POST("/initialize", h.Prompt.Initialize)
		prompts.PUT("/:id", h.Prompt.Update)
		prompts.DELETE("/:id", h.Prompt.Delete)
	}

	drafts := api.Group("/drafts")
	{
		drafts.GET("", h.Draft.List)
		drafts.POST("", h.Draft.Create)
		drafts.GET("/:id", h.Draft.Get)
		drafts.PUT("/:id", h.Draft.Update)
		drafts.DELETE("/:id", h.Draft.Delete)
	}

	return r
}

func ping(c *gin.Context, db Pinger) error {
	if db == nil {
		return errNoDatabase
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
	defer cancel()
	return db.Ping(ctx)
}
