// Package dashboard serves the presentation views over HTTP.
package dashboard

import (
	"context"
	"embed"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tigerroll/taxiweather/internal/presentation"
	metrics "github.com/tigerroll/taxiweather/pkg/batch/core/metrics"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

//go:embed web/index.html
var webFS embed.FS

// Options configures a Server.
type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
	// MetricsHandler serves GET /metrics. Nil disables the route.
	MetricsHandler http.Handler
	// Recorder receives the duration of every request. Nil disables request metrics.
	Recorder metrics.MetricRecorder
}

// Server bundles the gin engine and the state it serves.
type Server struct {
	opts   Options
	state  *presentation.State
	engine *gin.Engine

	mu   sync.Mutex
	srv  *http.Server
	addr string
	done chan struct{}
}

// New constructs a server with routes and middleware. state is read-only for the server's lifetime.
func New(state *presentation.State, opts Options) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(opts.Recorder))

	s := &Server{opts: opts, state: state, engine: engine}
	s.registerRoutes()
	return s
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/", s.handleIndex)
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "rows": s.state.Len()})
	})
	api := s.engine.Group("/api")
	api.GET("/months", s.handleMonths)
	api.GET("/views", s.handleViews)
	if s.opts.MetricsHandler != nil {
		s.engine.GET("/metrics", gin.WrapH(s.opts.MetricsHandler))
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// handleMonths returns the months present in the data.
// GET /api/months
func (s *Server) handleMonths(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"months": s.state.Months()})
}

// handleViews returns every view for one month. A missing or empty month selects all data.
// GET /api/views?month=January
func (s *Server) handleViews(c *gin.Context) {
	views, err := s.state.Views(c.Query("month"))
	if err != nil {
		logger.Errorf("Failed to build dashboard views: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build views"})
		return
	}
	c.JSON(http.StatusOK, views)
}

// Start binds the listen address and serves in the background.
// Binding errors are returned; serving errors are logged.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	done := make(chan struct{})

	s.mu.Lock()
	s.srv, s.addr, s.done = srv, ln.Addr().String(), done
	s.mu.Unlock()

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Dashboard server failed: %v", err)
		}
	}()
	logger.Infof("Dashboard listening on http://%s", ln.Addr())
	return nil
}

// Addr is the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop shuts the server down, waiting up to the configured timeout for in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv, s.addr = nil, ""
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if s.opts.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ShutdownTimeout)
		defer cancel()
	}
	err := srv.Shutdown(ctx)
	<-done
	logger.Infof("Dashboard stopped.")
	return err
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	select {
	case <-ctx.Done():
	case <-done:
	}
	return s.Stop(context.Background())
}

func requestLogger(recorder metrics.MetricRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		logger.Debugf("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.RequestURI(), c.Writer.Status(), elapsed)
		if recorder != nil {
			recorder.RecordDuration(c.Request.Context(), "http "+c.Request.Method+" "+route, elapsed, nil)
		}
	}
}
