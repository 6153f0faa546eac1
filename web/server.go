package web

import (
	"context"
	"net/http"
	"os"
	"time"

	"campus-assistant/config"
	"campus-assistant/metrics"
	"campus-assistant/web/handlers"
	"campus-assistant/web/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	router  *gin.Engine
	limiter *middleware.ClientRateLimiter
	logger  *zap.Logger
	config  *config.Config
}

// NewServer builds the HTTP surface. gatherer backs /metrics and m records
// per-request metrics; both may be nil.
func NewServer(
	cfg *config.Config,
	chat handlers.Answerer,
	corpora handlers.CorpusManager,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics(m))

	server := &Server{
		router: router,
		limiter: middleware.NewClientRateLimiter(middleware.RateLimiterConfig{
			MessagesPerMinute: cfg.RateLimitMessagesPerMin,
			BurstSize:         cfg.RateLimitBurstSize,
		}, logger),
		logger: logger,
		config: cfg,
	}

	server.setupRoutes(chat, corpora, gatherer)
	return server
}

func (s *Server) setupRoutes(chat handlers.Answerer, corpora handlers.CorpusManager, gatherer prometheus.Gatherer) {
	chatHandler := handlers.NewChatHandler(chat, s.logger)
	corpusHandler := handlers.NewCorpusHandler(corpora, s.logger)

	api := s.router.Group("/api")
	api.POST("/chat", middleware.RateLimitMiddleware(s.limiter), chatHandler.Ask)
	api.POST("/reload", corpusHandler.Reload)

	s.router.GET("/healthz", corpusHandler.Health)
	if gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// Serve the chat frontend for any other GET.
	if dir := s.config.StaticDir; dir != "" {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			s.logger.Warn("Static directory not found, frontend disabled", zap.String("dir", dir))
			return
		}
		files := http.FileServer(http.Dir(dir))
		s.router.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			files.ServeHTTP(c.Writer, c.Request)
		})
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info("Starting web server", zap.String("address", addr))
	defer s.limiter.Stop()

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.logger.Error("Web server failed to start", zap.Error(err))
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
