package webhookhttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"igbridge/internal/engine"
	"igbridge/internal/instrument"
	"igbridge/internal/logger"

	"github.com/gin-gonic/gin"
)

// SignalProcessor handles one parsed alert end to end.
type SignalProcessor interface {
	Process(ctx context.Context, sig engine.Signal) engine.Outcome
}

// InstrumentLister exposes the configured rule set for the read-only API.
type InstrumentLister interface {
	Rules() []instrument.Rule
}

// Server terminates alert webhooks and the small read-only API.
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig describes the webhook HTTP server dependencies.
type ServerConfig struct {
	Addr        string
	Processor   SignalProcessor
	Instruments InstrumentLister
}

// NewServer builds the webhook HTTP server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Processor == nil {
		return nil, errors.New("webhook http server requires a signal processor")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	h := &handler{processor: cfg.Processor, instruments: cfg.Instruments}
	router.POST("/webhook", h.handleAlert)
	router.GET("/api/instruments", h.handleInstruments)

	return &Server{addr: cfg.Addr, router: router}, nil
}

// requestLogger traces inbound calls so alert deliveries can be audited.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, path, status, client, dur)
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
