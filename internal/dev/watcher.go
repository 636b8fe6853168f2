package dev

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vango-dev/devstatic/internal/livereload"
)

// Asset types reported in AssetEvent.Type.
const (
	AssetCSS   = "css"
	AssetJS    = "js"
	AssetHTML  = "html"
	AssetImage = "image"
	AssetOther = "asset"
)

// WatcherConfig configures the asset watcher.
type WatcherConfig struct {
	// Paths are the directories to watch.
	Paths []string

	// Base is the directory asset names are made relative to. Files outside
	// it are named relative to the watch path they were found in.
	Base string

	// Ignore patterns to skip (names, path segments or globs).
	Ignore []string

	// Interval is the delay between scans.
	Interval time.Duration

	// Logger receives one debug line per event.
	Logger *slog.Logger
}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	".DS_Store",
	"*.tmp",
	"*.swp",
	"*~",
}

// Watcher polls the served tree and reports changed files as asset events.
type Watcher struct {
	config     WatcherConfig
	onEvent    func(livereload.AssetEvent)
	mu         sync.Mutex
	running    bool
	stopCh     chan struct{}
	scanned    bool
	timestamps map[string]time.Time
}

// NewWatcher creates a new asset watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Interval <= 0 {
		config.Interval = 500 * time.Millisecond
	}
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}
	if config.Logger == nil {
		config.Logger = slog.Default().With("component", "watcher")
	}

	return &Watcher{
		config:     config,
		timestamps: make(map[string]time.Time),
	}
}

// OnEvent sets the callback for asset events.
func (w *Watcher) OnEvent(fn func(livereload.AssetEvent)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onEvent = fn
}

// Start scans the watched paths once and then polls until ctx is done or
// Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	w.scan(false)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return nil
		case <-stopCh:
			return nil
		case <-ticker.C:
			w.scan(true)
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Scan checks the watched paths once and reports what changed since the
// previous scan. The first call only records the current state.
func (w *Watcher) Scan() []livereload.AssetEvent {
	w.mu.Lock()
	scanned := w.scanned
	w.mu.Unlock()
	return w.scan(scanned)
}

func (w *Watcher) scan(report bool) []livereload.AssetEvent {
	seen := make(map[string]time.Time)
	owner := make(map[string]string)

	for _, root := range w.config.Paths {
		filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				if p != root && w.shouldIgnore(p) {
					return filepath.SkipDir
				}
				return nil
			}
			if w.shouldIgnore(p) {
				return nil
			}
			if _, ok := seen[p]; !ok {
				seen[p] = info.ModTime()
				owner[p] = root
			}
			return nil
		})
	}

	w.mu.Lock()
	var changed []string
	for p, modTime := range seen {
		last, exists := w.timestamps[p]
		if !exists || modTime.After(last) {
			changed = append(changed, p)
		}
	}
	// Deleted files are reported too.
	for p := range w.timestamps {
		if _, ok := seen[p]; !ok {
			changed = append(changed, p)
		}
	}
	w.timestamps = seen
	w.scanned = true
	callback := w.onEvent
	w.mu.Unlock()

	if !report || len(changed) == 0 {
		return nil
	}

	sort.Strings(changed)
	events := make([]livereload.AssetEvent, 0, len(changed))
	for _, p := range changed {
		ev := livereload.AssetEvent{
			Type: classifyAsset(p),
			File: p,
			Name: w.assetName(p, owner[p]),
		}
		events = append(events, ev)
		w.config.Logger.Debug("asset changed", "type", ev.Type, "name", ev.Name)
		if callback != nil {
			callback(ev)
		}
	}
	return events
}

// assetName is the slash-separated path of file below Base, or below the
// watch root it was found under.
func (w *Watcher) assetName(file, root string) string {
	for _, dir := range []string{w.config.Base, root} {
		if dir == "" {
			continue
		}
		if rel, err := filepath.Rel(dir, file); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(filepath.Base(file))
}

// shouldIgnore checks if a path should be ignored.
func (w *Watcher) shouldIgnore(fullPath string) bool {
	name := filepath.Base(fullPath)
	normalized := filepath.ToSlash(fullPath)

	for _, pattern := range w.config.Ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		if name == pattern {
			return true
		}

		hasPathSep := strings.Contains(pattern, "/") || strings.Contains(pattern, "\\")
		hasGlob := strings.ContainsAny(pattern, "*?[")

		if hasGlob {
			if hasPathSep {
				if matched, _ := path.Match(filepath.ToSlash(pattern), normalized); matched {
					return true
				}
			} else if matched, _ := filepath.Match(pattern, name); matched {
				return true
			}
			continue
		}

		if hasPathSep {
			if pathMatchesSegments(normalized, filepath.ToSlash(pattern)) {
				return true
			}
			continue
		}

		if pathHasSegment(normalized, pattern) {
			return true
		}
	}

	return false
}

func pathHasSegment(p, segment string) bool {
	for _, part := range splitPathSegments(p) {
		if part == segment {
			return true
		}
	}
	return false
}

func pathMatchesSegments(p, pattern string) bool {
	pathParts := splitPathSegments(p)
	patternParts := splitPathSegments(pattern)
	if len(patternParts) == 0 || len(patternParts) > len(pathParts) {
		return false
	}

	for i := 0; i <= len(pathParts)-len(patternParts); i++ {
		match := true
		for j := range patternParts {
			if pathParts[i+j] != patternParts[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func splitPathSegments(p string) []string {
	parts := strings.Split(p, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}

// classifyAsset determines the asset type from the file extension.
func classifyAsset(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".css", ".scss", ".sass", ".less":
		return AssetCSS
	case ".js", ".mjs", ".map":
		return AssetJS
	case ".html", ".htm", ".tmpl", ".gohtml":
		return AssetHTML
	case ".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico":
		return AssetImage
	default:
		return AssetOther
	}
}
