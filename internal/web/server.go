package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/archiai/studio/internal/app"
	"github.com/archiai/studio/internal/errors"
)

// Options configures the HTTP server.
type Options struct {
	Bind    string
	Port    int
	Version string

	// AllowedOrigins are the browser origins permitted by CORS.
	// Empty means the server's own localhost origins.
	AllowedOrigins []string

	// RateLimit is the sustained /api request rate per second; 0 disables
	// limiting. Burst defaults to twice the rate.
	RateLimit float64
	Burst     int
}

// NewServer creates the HTTP server exposing both stores as a JSON API.
func NewServer(a *app.App, opts Options) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Bind, opts.Port),
		Handler:           NewRouter(a, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine. Split out from NewServer for tests.
func NewRouter(a *app.App, opts Options) *gin.Engine {
	h := NewHandlers(a, opts.Version)

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), requestLogger(a.Logger), securityHeaders())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  allowedOrigins(opts),
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/healthz", h.HandleHealth)

	api := r.Group("/api")
	if opts.RateLimit > 0 {
		api.Use(rateLimit(a.Logger, opts.RateLimit, opts.Burst))
	}
	{
		projects := api.Group("/projects")
		projects.GET("", h.HandleListProjects)
		projects.POST("", h.HandleAddProject)
		projects.PUT("", h.HandleReplaceProjects)
		projects.GET("/current", h.HandleCurrentProject)
		projects.PUT("/current", h.HandleSelectProject)
		projects.PUT("/status", h.HandleProjectStatus)
		projects.PATCH("/:id", h.HandleUpdateProject)
		projects.DELETE("/:id", h.HandleDeleteProject)

		prefs := api.Group("/ui")
		prefs.GET("", h.HandleGetUI)
		prefs.PUT("/theme", h.HandleSetTheme)
		prefs.PUT("/sidebar", h.HandleSetSidebar)
		prefs.POST("/sidebar/toggle", h.HandleToggleSidebar)
		prefs.PUT("/loading", h.HandleSetUILoading)
		prefs.GET("/notifications", h.HandleListNotifications)
		prefs.POST("/notifications", h.HandleAddNotification)
		prefs.DELETE("/notifications", h.HandleClearNotifications)
		prefs.DELETE("/notifications/:id", h.HandleRemoveNotification)
		prefs.POST("/notifications/:id/read", h.HandleMarkNotificationRead)

		api.GET("/events", h.HandleEvents)
	}

	return r
}

func allowedOrigins(opts Options) []string {
	if len(opts.AllowedOrigins) > 0 {
		return opts.AllowedOrigins
	}
	return []string{
		fmt.Sprintf("http://localhost:%d", opts.Port),
		fmt.Sprintf("http://127.0.0.1:%d", opts.Port),
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Next()
	}
}

// rateLimit rejects requests beyond a shared token bucket with 429.
func rateLimit(logger *slog.Logger, perSecond float64, burst int) gin.HandlerFunc {
	if burst <= 0 {
		burst = max(1, int(2*perSecond))
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			renderError(c, logger, errors.NewRateLimited())
			return
		}
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Request contexts end with the signal so open event streams let Shutdown finish.
	srv.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("studio API running", "addr", "http://"+srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
