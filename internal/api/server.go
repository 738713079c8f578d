package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yt-insights/subcount/internal/config"
	"github.com/yt-insights/subcount/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	errMissingAPIKey      = "Missing YOUTUBE_API_KEY on server."
	errMissingChannel     = "Missing ?channel="
	errChannelNotResolved = "Could not resolve channelId from channel/handle."
	errServer             = "Server error"
)

// Server represents the API server
type Server struct {
	router *gin.Engine
	cfg    *config.Config
	client *YouTubeClient
	now    func() time.Time
}

// Option customises a Server
type Option func(*Server)

// WithHTTPClient sets the client used for YouTube API calls
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Server) {
		s.client = NewYouTubeClient(s.cfg.YouTubeAPIKey, s.cfg.YouTubeBaseURL, hc)
	}
}

// WithClock replaces time.Now for the fetchedAt timestamp
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, opts ...Option) *Server {
	server := &Server{
		router: gin.New(),
		cfg:    cfg,
		client: NewYouTubeClient(cfg.YouTubeAPIKey, cfg.YouTubeBaseURL, nil),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(server)
	}

	server.router.Use(gin.CustomRecovery(server.recoverPanic), requestID(), accessLog(), corsMiddleware(cfg.AllowedOrigins))

	// Setup routes
	server.setupRoutes()

	return server
}

// setupRoutes configures all the routes for the server
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	s.router.GET("/api/youtube", s.getChannelStats)
	s.router.GET("/youtube", s.getChannelStats)
}

// recoverPanic turns a handler panic into the usual JSON error body.
func (s *Server) recoverPanic(c *gin.Context, recovered any) {
	log.Ctx(c.Request.Context()).Error().
		Interface("panic", recovered).
		Str("path", c.Request.URL.Path).
		Msg("Recovered from panic")
	s.respond(c, http.StatusInternalServerError, models.NewErrorResponse(errServer), ParseRefresh(c.Query("refresh")))
	c.Abort()
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// getChannelStats handles ?channel=<handle|id>&refresh=<seconds>
func (s *Server) getChannelStats(c *gin.Context) {
	if s.cfg.YouTubeAPIKey == "" {
		s.respond(c, http.StatusInternalServerError, models.NewErrorResponse(errMissingAPIKey), DefaultCacheSeconds)
		return
	}

	cacheSeconds := ParseRefresh(c.Query("refresh"))

	channel := strings.TrimSpace(c.Query("channel"))
	if channel == "" {
		s.respond(c, http.StatusBadRequest, models.NewErrorResponse(errMissingChannel), cacheSeconds)
		return
	}

	// upstream calls run to completion even if the caller goes away
	ctx := context.WithoutCancel(c.Request.Context())

	stats, err := s.channelStats(ctx, channel)
	if err != nil {
		s.respondError(c, err, cacheSeconds)
		return
	}
	s.respond(c, http.StatusOK, stats, cacheSeconds)
}

func (s *Server) channelStats(ctx context.Context, channel string) (*models.ChannelStats, error) {
	channelID, err := s.client.ResolveChannelID(ctx, channel)
	if err != nil {
		return nil, err
	}
	if channelID == "" {
		return nil, &APIError{Status: http.StatusNotFound, Message: errChannelNotResolved}
	}

	count, err := s.client.GetSubscriberCount(ctx, channelID)
	if err != nil {
		return nil, err
	}

	return &models.ChannelStats{
		OK:              true,
		Channel:         channel,
		ChannelID:       channelID,
		SubscriberCount: count,
		FetchedAt:       s.now(),
	}, nil
}

func (s *Server) respondError(c *gin.Context, err error, cacheSeconds int) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		s.respond(c, apiErr.Status, models.NewErrorResponse(apiErr.Message), cacheSeconds)
		return
	}

	log.Ctx(c.Request.Context()).Error().Err(err).Msg("Error fetching subscriber count")

	msg := err.Error()
	if msg == "" {
		msg = errServer
	}
	s.respond(c, http.StatusInternalServerError, models.NewErrorResponse(msg), cacheSeconds)
}

func (s *Server) respond(c *gin.Context, status int, body interface{}, cacheSeconds int) {
	c.Header("Cache-Control", cacheControl(cacheSeconds))
	c.JSON(status, body)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", s.cfg.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Server shutting down")
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = config.DefaultShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	})

	return g.Wait()
}
