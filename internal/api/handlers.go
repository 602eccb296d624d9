package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"portfolio/internal/auth"
	"portfolio/internal/chat"
	"portfolio/internal/service/portfolio"
	"portfolio/internal/worker"
)

// ChatService streams an answer for one visitor question.
type ChatService interface {
	Configured() bool
	StreamChat(ctx context.Context, message string, history []chat.Pair, onToken func(string) error) error
}

// ResumeIndexer adds the stored resume to the assistant's document index.
type ResumeIndexer interface {
	IndexResume(ctx context.Context, path string) error
}

// Options tunes the handler; zero values fall back to defaults.
type Options struct {
	ChatRateLimit    int // requests per minute per client
	ContactRateLimit int // requests per minute per client
	ChatTimeout      time.Duration
	AllowedOrigins   []string
	TrustedProxies   []string // CIDRs or IPs allowed to set X-Forwarded-For; none by default
	Knowledge        ResumeIndexer
}

const (
	defaultChatRateLimit    = 15
	defaultContactRateLimit = 5
	defaultChatTimeout      = 2 * time.Minute
	rateWindow              = time.Minute
)

// Handler wires HTTP routes to the portfolio, auth and chat services.
type Handler struct {
	portfolio  *portfolio.Service
	auth       *auth.Service
	chat       ChatService
	dispatcher *worker.Dispatcher
	limiter    *RateLimiter
	knowledge  ResumeIndexer
	logger     zerolog.Logger
	opts       Options
}

// NewHandler constructs a Handler instance.
func NewHandler(portfolioSvc *portfolio.Service, authSvc *auth.Service, chatSvc ChatService, dispatcher *worker.Dispatcher, limiter *RateLimiter, logger zerolog.Logger, opts Options) *Handler {
	if opts.ChatRateLimit <= 0 {
		opts.ChatRateLimit = defaultChatRateLimit
	}
	if opts.ContactRateLimit <= 0 {
		opts.ContactRateLimit = defaultContactRateLimit
	}
	if opts.ChatTimeout <= 0 {
		opts.ChatTimeout = defaultChatTimeout
	}
	return &Handler{
		portfolio:  portfolioSvc,
		auth:       authSvc,
		chat:       chatSvc,
		dispatcher: dispatcher,
		limiter:    limiter,
		knowledge:  opts.Knowledge,
		logger:     logger,
		opts:       opts,
	}
}

// Router returns an engine with the middleware chain and every route attached.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	if err := router.SetTrustedProxies(h.opts.TrustedProxies); err != nil {
		h.logger.Warn().Err(err).Msg("invalid trusted proxies, trusting none")
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(
		gin.Recovery(),
		RequestID(),
		Logger(h.logger),
		Metrics(),
		CORS(h.opts.AllowedOrigins),
	)
	h.RegisterRoutes(router)
	return router
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.root)
	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admin := h.auth.Middleware()

	router.POST("/auth/login", h.login)
	router.POST("/auth/logout", admin, h.logout)

	router.POST("/chat", h.limiter.Limit("chat", h.opts.ChatRateLimit, rateWindow), h.streamChat)

	router.GET("/projects", h.listProjects)
	router.POST("/projects", admin, h.createProject)
	router.PUT("/projects/:id", admin, h.updateProject)
	router.DELETE("/projects/:id", admin, h.deleteProject)

	router.GET("/resume/info", h.resumeInfo)
	router.GET("/resume/download", h.downloadResume)
	router.POST("/resume/upload", admin, h.uploadResume)

	router.POST("/contact", h.limiter.Limit("contact", h.opts.ContactRateLimit, rateWindow), h.submitContact)
	router.GET("/contact", admin, h.listContacts)
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Portfolio API is running"})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"ai_configured": h.chat.Configured(),
		"workers":       h.dispatcher.Stats(),
	})
}

func (h *Handler) login(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	if email == "" || password == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "username and password are required"})
		return
	}
	admin, err := h.portfolio.Authenticate(c.Request.Context(), email, password)
	if err != nil {
		if errors.Is(err, portfolio.ErrInvalidCredentials) {
			c.Header("WWW-Authenticate", "Bearer")
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect email or password"})
			return
		}
		h.logger.Error().Err(err).Msg("authenticate admin")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "login failed"})
		return
	}
	token, err := h.auth.IssueToken(c.Request.Context(), admin.ID)
	if err != nil {
		h.logger.Error().Err(err).Int64("admin_id", admin.ID).Msg("issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "issue token failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

func (h *Handler) logout(c *gin.Context) {
	if token, ok := auth.AuthTokenFromContext(c); ok {
		if err := h.auth.RevokeToken(c.Request.Context(), token); err != nil {
			h.logger.Warn().Err(err).Msg("revoke token")
		}
	}
	c.Status(http.StatusNoContent)
}

// writeServiceError maps service errors onto the JSON error body.
func (h *Handler) writeServiceError(c *gin.Context, err error, notFound string) {
	switch {
	case portfolio.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	case errors.Is(err, portfolio.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": notFound})
	default:
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
	}
}
