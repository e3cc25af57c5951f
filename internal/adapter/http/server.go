// Package http serves the report API, the cluster views and the operational
// endpoints on a single gin engine.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/durjog/durjog-map/internal/domain"
	"github.com/durjog/durjog-map/internal/observability"
)

// ReadinessChecker reports whether a dependency is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ReportStore is the report collection behind the CRUD routes.
type ReportStore interface {
	ListActive(ctx context.Context) ([]domain.EmergencyReport, error)
	Get(ctx context.Context, id string) (domain.EmergencyReport, error)
	Create(ctx context.Context, r domain.EmergencyReport) (domain.EmergencyReport, error)
	Update(ctx context.Context, id string, patch domain.ReportPatch) (domain.EmergencyReport, error)
	Delete(ctx context.Context, id string) error
}

// ContentStore holds news updates and contact messages.
type ContentStore interface {
	ListNews(ctx context.Context) ([]domain.News, error)
	CreateNews(ctx context.Context, n domain.News) (domain.News, error)
	SaveContact(ctx context.Context, m domain.ContactMessage) (domain.ContactMessage, error)
}

// ClusterService owns the cluster snapshots.
type ClusterService interface {
	Profiles() []domain.ViewProfile
	Latest() *domain.Snapshot
	Refresh(ctx context.Context) (*domain.Snapshot, error)
	Trigger()
}

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Deps are the collaborators the routes call into. Verifier is optional;
// without it write routes are open.
type Deps struct {
	Reports  ReportStore
	Content  ContentStore
	Clusters ClusterService
	Verifier TokenVerifier
	Ready    []ReadinessChecker
}

// Server exposes the API and the health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer creates an HTTP server with every route registered.
func NewServer(addr string, deps Deps, logger *slog.Logger, metrics *observability.Metrics) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:    deps,
		logger:  logger,
		metrics: metrics,
	}

	engine.Use(gin.Recovery(), s.instrument())

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/readyz", s.handleReady)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	api.GET("/test", s.handleTest)

	reports := api.Group("/emergency-reports")
	reports.GET("", s.listReports)
	reports.GET("/:id", s.getReport)
	reports.POST("", s.optionalAuth(), s.createReport)
	reports.PATCH("/:id", s.requireAuth(), s.updateReport)
	reports.DELETE("/:id", s.requireAuth(), s.deleteReport)

	api.GET("/clusters", s.getClusters)
	api.POST("/clusters/refresh", s.refreshClusters)

	api.GET("/updates", s.listNews)
	api.POST("/updates", s.createNews)
	api.POST("/contact", s.createContact)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	for _, checker := range s.deps.Ready {
		if err := checker.CheckReadiness(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) handleTest(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "API is working"})
}

// instrument counts requests by matched route so ids never become labels.
func (s *Server) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		s.metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, status).Inc()
		s.metrics.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func abortMessage(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}

// abortError maps domain errors to status codes. Anything unrecognised is
// logged and reported as a 500 without leaking the cause.
func (s *Server) abortError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrReportNotFound):
		abortMessage(c, http.StatusNotFound, "report not found")
	case errors.Is(err, domain.ErrInvalidReport):
		abortMessage(c, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		abortMessage(c, http.StatusInternalServerError, "internal server error")
	}
}
