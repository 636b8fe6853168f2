package dev

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/devstatic/internal/config"
	"github.com/vango-dev/devstatic/internal/errors"
	"github.com/vango-dev/devstatic/internal/livereload"
	"github.com/vango-dev/devstatic/internal/router"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// newProject lays out a served tree and returns a config rooted at it.
func newProject(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "public", "index.html"), "<h1>home</h1>")
	writeFile(t, filepath.Join(dir, "public", "new", "a.txt"), "rewritten")
	writeFile(t, filepath.Join(dir, "public", "images", "favicon.ico"), "ICON")
	writeFile(t, filepath.Join(dir, "templates", "status.html"), "{{.Pattern}} ok")

	cfgPath := filepath.Join(dir, config.ConfigFileName)
	writeFile(t, cfgPath, `{
  "host": "127.0.0.1",
  "templates": {"status": "templates/status.html"},
  "rewrite": {"old/(.*)": "/public/new/$1"}
}`)
	cfg, err := config.LoadFile(cfgPath)
	require.NoError(t, err)
	cfg.Port = 0
	cfg.LRPort = 0
	return cfg
}

func TestNewServer_InvalidPattern(t *testing.T) {
	cfg := newProject(t)
	cfg.Rewrite.Set("([", "/x")

	_, err := NewServer(ServerOptions{Config: cfg, Logger: quietLogger()})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidPattern), "got %v", err)
	assert.Contains(t, err.Error(), `"(["`)
}

func TestNewServer_InvalidTemplate(t *testing.T) {
	cfg := newProject(t)
	cfg.Templates.Set("broken", "templates/missing.html")

	_, err := NewServer(ServerOptions{Config: cfg, Logger: quietLogger()})
	assert.True(t, errors.HasCode(err, errors.CodeInvalidTemplate), "got %v", err)
}

func TestServer_Handler(t *testing.T) {
	cfg := newProject(t)
	s, err := NewServer(ServerOptions{Config: cfg, Logger: quietLogger(), DisableWatcher: true})
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	get := func(path string) (*http.Response, string) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp, string(body)
	}

	t.Run("template", func(t *testing.T) {
		resp, body := get("/status")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "status ok", body)
	})

	t.Run("template with query", func(t *testing.T) {
		_, body := get("/status?x=1")
		assert.Equal(t, "status ok", body)
	})

	t.Run("rewrite", func(t *testing.T) {
		resp, body := get("/old/a.txt")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "rewritten", body)
		assert.Equal(t, router.NoCache, resp.Header.Get("Cache-Control"))
	})

	t.Run("fallback under base", func(t *testing.T) {
		resp, body := get("/index.html")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "<h1>home</h1>", body)
		assert.Equal(t, router.NoCache, resp.Header.Get("Cache-Control"))
	})

	t.Run("directory index", func(t *testing.T) {
		_, body := get("/")
		assert.Equal(t, "<h1>home</h1>", body)
	})

	t.Run("missing", func(t *testing.T) {
		resp, _ := get("/nope.txt")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("favicon", func(t *testing.T) {
		resp, body := get("/favicon.ico")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ICON", body)
		assert.Equal(t, "image/x-icon", resp.Header.Get("Content-Type"))
	})
}

func TestServer_MissingFaviconIsNotFatal(t *testing.T) {
	cfg := newProject(t)
	cfg.Favicon = "nope.ico"

	s, err := NewServer(ServerOptions{Config: cfg, Logger: quietLogger(), DisableWatcher: true})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_StartAddressInUse(t *testing.T) {
	cfg := newProject(t)

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	cfg.Port = busy.Addr().(*net.TCPAddr).Port

	free, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cfg.LRPort = free.Addr().(*net.TCPAddr).Port
	free.Close()

	s, err := NewServer(ServerOptions{Config: cfg, Logger: quietLogger(), DisableWatcher: true})
	require.NoError(t, err)

	var readyCalled atomic.Bool
	err = s.Start(context.Background(), func() { readyCalled.Store(true) })
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeAddressInUse), "got %v", err)
	assert.Contains(t, err.Error(), "Port "+strconv.Itoa(cfg.Port)+" is already in use by another process.")
	assert.False(t, readyCalled.Load())
	assert.Nil(t, s.LiveReloadAddr())

	// The live-reload port was never taken.
	ln, err := net.Listen("tcp", cfg.LRAddress())
	require.NoError(t, err)
	ln.Close()
}

func TestBindError(t *testing.T) {
	err := bindError(80, &net.OpError{Op: "listen", Err: os.ErrPermission})
	assert.True(t, errors.HasCode(err, errors.CodeListenFailed))
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestServer_StartEmbeddedCallsReady(t *testing.T) {
	cfg := newProject(t)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&syncWriter{w: &logs}, nil))

	s, err := NewServer(ServerOptions{Config: cfg, Logger: logger, DisableWatcher: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx, func() { close(ready) })
	}()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("ready was not called")
	}

	resp, err := http.Get("http://" + s.Addr().String() + "/index.html")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	out := logs.String()
	assert.Contains(t, out, "Started static server on http://127.0.0.1:")
	assert.NotContains(t, out, "standalone")
}

func TestServer_StartStandaloneSkipsReady(t *testing.T) {
	cfg := newProject(t)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&syncWriter{w: &logs}, nil))

	s, err := NewServer(ServerOptions{Config: cfg, Logger: logger, Standalone: true, DisableWatcher: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var readyCalled atomic.Bool
	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx, func() { readyCalled.Store(true) })
	}()

	require.Eventually(t, func() bool { return s.LiveReloadAddr() != nil }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.False(t, readyCalled.Load())
	assert.Contains(t, logs.String(), "in standalone mode")
}

func TestServer_AssetChangeReloadsClients(t *testing.T) {
	cfg := newProject(t)
	cfg.PollInterval = "20ms"

	s, err := NewServer(ServerOptions{Config: cfg, Logger: quietLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan struct{})
	go s.Start(ctx, func() { close(ready) })
	<-ready

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+s.LiveReloadAddr().String()+"/livereload", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(map[string]any{"command": "hello", "protocols": []string{livereload.Protocol7}}))

	var hello livereload.HelloMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&hello))
	require.Eventually(t, func() bool { return s.Hub().ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Let the initial scan settle before touching the tree.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(cfg.BasePath(), "css", "app.css"), "body{}")

	var msg livereload.ReloadMessage
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, livereload.CommandReload, msg.Command)
	assert.Equal(t, "css:css/app.css", msg.Path)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	cfg := newProject(t)
	s, err := NewServer(ServerOptions{Config: cfg, Logger: quietLogger(), DisableWatcher: true})
	require.NoError(t, err)

	s.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/status", nil))

	rec := httptest.NewRecorder()
	s.LiveReloadHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "route_decisions_total"))
}

// syncWriter serializes writes from the server goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
