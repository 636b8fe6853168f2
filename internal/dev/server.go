package dev

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/devstatic/internal/config"
	"github.com/vango-dev/devstatic/internal/errors"
	"github.com/vango-dev/devstatic/internal/livereload"
	"github.com/vango-dev/devstatic/internal/metrics"
	"github.com/vango-dev/devstatic/internal/router"
	"github.com/vango-dev/devstatic/internal/rules"
	"github.com/vango-dev/devstatic/internal/static"
)

// StepStatic is the step name that starts the server.
const StepStatic = "static"

const shutdownTimeout = 5 * time.Second

// ServerOptions configures the development server.
type ServerOptions struct {
	// Config is the project configuration.
	Config *config.Config

	// Standalone keeps the server as the only foreground work. When false,
	// Start calls its ready callback as soon as both listeners are bound.
	Standalone bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics defaults to a fresh registry.
	Metrics *metrics.Metrics

	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer

	// DisableWatcher turns off the asset watcher.
	DisableWatcher bool
}

// Server is the development server: a static listener and a live-reload
// listener sharing one hub.
type Server struct {
	config  *config.Config
	options ServerOptions
	logger  *slog.Logger
	metrics *metrics.Metrics

	hub     *livereload.Hub
	router  *router.Router
	watcher *Watcher

	handler   http.Handler
	lrHandler http.Handler

	mu         sync.Mutex
	running    bool
	httpServer *http.Server
	lrServer   *http.Server
	addr       net.Addr
	lrAddr     net.Addr
}

// NewServer compiles the configured rules and templates and assembles the
// handler stacks. Configuration errors are returned here, before any bind.
func NewServer(options ServerOptions) (*Server, error) {
	cfg := options.Config
	if cfg == nil {
		cfg = config.New()
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := options.Metrics
	if m == nil {
		m = metrics.New()
	}

	rewriteEntries := make([]rules.Entry, 0, len(cfg.Rewrite))
	for _, e := range cfg.Rewrite {
		rewriteEntries = append(rewriteEntries, rules.Entry{Pattern: e.Pattern, Action: rules.Literal(e.Value)})
	}
	rewrites, err := rules.Compile(rewriteEntries)
	if err != nil {
		return nil, err
	}

	templateEntries, err := LoadTemplates(cfg)
	if err != nil {
		return nil, err
	}
	templates, err := rules.Compile(templateEntries)
	if err != nil {
		return nil, err
	}

	root, err := cfg.RootPath()
	if err != nil {
		return nil, errors.New(errors.CodeInvalidRoot).Wrap(err)
	}

	hub := livereload.New(
		livereload.WithLogger(logger.With("component", "livereload")),
		livereload.WithMetrics(m),
	)

	routerOpts := []router.Option{
		router.WithLogger(logger.With("component", "router")),
		router.WithMetrics(m),
	}
	if options.Tracer != nil {
		routerOpts = append(routerOpts, router.WithTracer(options.Tracer))
	}
	rt := router.New(router.Config{
		Base:      cfg.Base,
		Templates: templates,
		Rewrites:  rewrites,
	}, routerOpts...)

	responder := static.NewResponder(root,
		static.WithMIMETypes(cfg.Mime),
		static.WithLogger(logger.With("component", "static")),
	)

	favicon, err := static.NewFavicon(cfg.FaviconPath())
	if err != nil {
		logger.Warn("favicon not served", "path", cfg.FaviconPath(), "error", err)
		favicon = nil
	}

	s := &Server{
		config:  cfg,
		options: options,
		logger:  logger,
		metrics: m,
		hub:     hub,
		router:  rt,
	}

	s.handler = chi.Chain(
		middleware.Recoverer,
		requestLogger(logger.With("component", "http")),
		favicon.Middleware,
		rt.Middleware,
	).Handler(responder)

	lr := hub.Handler()
	lr.Handle("/metrics", m.Handler())
	s.lrHandler = lr

	if !options.DisableWatcher {
		interval, err := cfg.Interval()
		if err != nil {
			return nil, errors.New(errors.CodeConfigRead).Wrap(err)
		}
		s.watcher = NewWatcher(WatcherConfig{
			Paths:    cfg.WatchPaths(),
			Base:     cfg.BasePath(),
			Ignore:   append(append([]string{}, DefaultIgnore...), cfg.Ignore...),
			Interval: interval,
			Logger:   logger.With("component", "watcher"),
		})
		s.watcher.OnEvent(hub.AssetCompiled)
	}

	return s, nil
}

// Hub returns the live-reload hub.
func (s *Server) Hub() *livereload.Hub {
	return s.hub
}

// Handler returns the static server's handler stack.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// LiveReloadHandler returns the live-reload server's handler.
func (s *Server) LiveReloadHandler() http.Handler {
	return s.lrHandler
}

// Addr returns the bound static address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// LiveReloadAddr returns the bound live-reload address, or nil before Start.
func (s *Server) LiveReloadAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lrAddr
}

// Start binds both listeners and serves until ctx is cancelled or a
// listener fails. If the static port is taken no live-reload listener is
// started. Unless the server is standalone, ready is called once both
// listeners are bound.
func (s *Server) Start(ctx context.Context, ready func()) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ln, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return bindError(s.config.Port, err)
	}
	lrLn, err := net.Listen("tcp", s.config.LRAddress())
	if err != nil {
		ln.Close()
		return bindError(s.config.LRPort, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.lrAddr = lrLn.Addr()
	s.httpServer = &http.Server{Handler: s.handler, ReadHeaderTimeout: 10 * time.Second}
	s.lrServer = &http.Server{Handler: s.lrHandler, ReadHeaderTimeout: 10 * time.Second}
	httpServer, lrServer := s.httpServer, s.lrServer
	s.mu.Unlock()

	s.logger.Info("Livereload server started at port " + portOf(lrLn.Addr()))
	msg := "Started static server on http://" + displayHost(s.config.Host) + ":" + portOf(ln.Addr())
	if s.options.Standalone {
		msg += " in standalone mode"
	}
	s.logger.Info(msg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serve(httpServer, ln)
	})
	g.Go(func() error {
		return serve(lrServer, lrLn)
	})
	if s.watcher != nil {
		g.Go(func() error {
			return s.watcher.Start(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		if s.watcher != nil {
			s.watcher.Stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
		lrServer.Shutdown(shutdownCtx)
		return nil
	})

	if !s.options.Standalone && ready != nil {
		ready()
	}

	return g.Wait()
}

func serve(srv *http.Server, ln net.Listener) error {
	if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return errors.New(errors.CodeListenFailed).Wrap(err)
	}
	return nil
}

// bindError classifies a failed bind.
func bindError(port int, err error) error {
	if stderrors.Is(err, syscall.EADDRINUSE) {
		return errors.New(errors.CodeAddressInUse).
			WithDetail("Port " + strconv.Itoa(port) + " is already in use by another process.").
			Wrap(err)
	}
	return errors.New(errors.CodeListenFailed).
		WithDetail("Could not listen on port " + strconv.Itoa(port)).
		Wrap(err)
}

func displayHost(host string) string {
	if host == "" {
		return "0.0.0.0"
	}
	return host
}

func portOf(addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return strconv.Itoa(tcp.Port)
	}
	_, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return port
}

// requestLogger logs one debug line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			uri := r.URL.RequestURI()

			next.ServeHTTP(ww, r)

			logger.Debug("request",
				"method", r.Method,
				"uri", uri,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
