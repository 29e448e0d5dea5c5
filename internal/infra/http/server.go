package http

import (
	"context"
	"net/http"
	"time"

	"docsign/internal/config"
	"docsign/internal/domain"
	"docsign/internal/infra/auth/rbac"
	"docsign/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const defaultMaxUploadBytes = 10 << 20

type Server struct {
	cfg config.Config
	r   *gin.Engine
	log *zap.Logger

	accounts   *usecase.AccountService
	documents  *usecase.DocumentService
	signatures *usecase.SignatureService
	workflow   *usecase.SigningWorkflow
	audit      *usecase.AuditTrail

	authenticator domain.Authenticator
	authorizer    domain.Authorizer
	accessTTL     time.Duration
	refreshTTL    time.Duration

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool

	metrics *httpMetrics
	ping    func(context.Context) error
	dbMode  string
}

type ServerDeps struct {
	Log           *zap.Logger
	Accounts      *usecase.AccountService
	Documents     *usecase.DocumentService
	Signatures    *usecase.SignatureService
	Workflow      *usecase.SigningWorkflow
	Audit         *usecase.AuditTrail
	Authenticator domain.Authenticator
	Authorizer    domain.Authorizer
	RateLimiter   domain.RateLimiter
	// Registry receives the HTTP collectors; a fresh registry is used when nil.
	Registry *prometheus.Registry
	// Ping reports database health on /healthz. Nil means no database.
	Ping func(context.Context) error
}

func NewServer(cfg config.Config, deps ServerDeps) *Server {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	s := &Server{
		cfg:                 cfg,
		r:                   r,
		log:                 log,
		accounts:            deps.Accounts,
		documents:           deps.Documents,
		signatures:          deps.Signatures,
		workflow:            deps.Workflow,
		audit:               deps.Audit,
		authenticator:       deps.Authenticator,
		authorizer:          deps.Authorizer,
		accessTTL:           cfg.AccessTokenTTL,
		refreshTTL:          cfg.RefreshTokenTTL,
		rateLimiter:         deps.RateLimiter,
		rateLimitRequests:   cfg.RateLimitRequests,
		rateLimitWindow:     cfg.RateLimitWindow(),
		rateLimitFailClosed: cfg.RateLimitFailClosed,
		metrics:             newHTTPMetrics(deps.Registry),
		ping:                deps.Ping,
		dbMode:              "no-db",
	}
	if s.authorizer == nil {
		s.authorizer = rbac.NewAuthorizer()
	}
	if deps.Ping != nil {
		s.dbMode = "db"
	}

	r.Use(s.requestIDMiddleware(), s.recoveryMiddleware(), s.accessLogMiddleware())
	if cfg.CORSOrigin != "" {
		r.Use(corsMiddleware(cfg.CORSOrigin))
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.r
}

func (s *Server) routes() {
	s.r.GET("/healthz", s.handleHealth)
	s.r.GET("/metrics", gin.WrapH(s.metrics.handler()))

	v1 := s.r.Group("/api/v1", s.rateLimitMiddleware())

	users := v1.Group("/users")
	{
		users.POST("/register", s.handleRegister)
		users.POST("/login", s.handleLogin)
		users.POST("/refresh-token", s.handleRefreshToken)
		users.POST("/logout", s.requireAuth(rbac.PermAccountSelf), s.handleLogout)
		users.GET("/me", s.requireAuth(rbac.PermAccountSelf), s.handleMe)
		users.PATCH("/password", s.requireAuth(rbac.PermAccountSelf), s.handleChangePassword)
		users.GET("", s.requireAuth(rbac.PermAdminUsers), s.handleListUsers)
		users.DELETE("/:userId", s.requireAuth(rbac.PermAdminUsers), s.handleDeleteUser)
		users.PATCH("/:userId/role", s.requireAuth(rbac.PermAdminUsers), s.handleUpdateRole)
	}

	documents := v1.Group("/documents")
	{
		documents.POST("", s.requireAuth(rbac.PermDocumentWrite), s.handleUploadDocument)
		documents.GET("", s.requireAuth(rbac.PermDocumentRead), s.handleListDocuments)
		documents.GET("/:id", s.requireAuth(rbac.PermDocumentRead), s.handleGetDocument)
		documents.GET("/:id/file", s.requireAuth(rbac.PermDocumentRead), s.handleDocumentFile)
		documents.GET("/:id/url", s.requireAuth(rbac.PermDocumentRead), s.handleDocumentURL)
		documents.DELETE("/:id", s.requireAuth(rbac.PermDocumentWrite), s.handleDeleteDocument)
		documents.PATCH("/:id/signed", s.requireAuth(rbac.PermDocumentWrite), s.handleReplaceSigned)
	}

	signatures := v1.Group("/signatures")
	{
		signatures.POST("", s.requireAuth(rbac.PermSignatureWrite), s.handlePlaceSignature)
		signatures.POST("/finalize", s.requireAuth(rbac.PermSignatureWrite), s.handleFinalize)
		signatures.GET("/:documentId", s.requireAuth(rbac.PermSignatureRead), s.handleListSignatures)
	}

	v1.GET("/audit/:documentId", s.requireAuth(rbac.PermAuditRead), s.handleListAudit)

	s.r.NoRoute(s.handleNoRoute)
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "mode": s.dbMode})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": s.dbMode})
}

func (s *Server) handleNoRoute(c *gin.Context) {
	writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "Route not found")
}

func (s *Server) maxUploadBytes() int64 {
	if s.cfg.MaxUploadBytes > 0 {
		return int64(s.cfg.MaxUploadBytes)
	}
	return defaultMaxUploadBytes
}
