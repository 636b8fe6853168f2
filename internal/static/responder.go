package static

import (
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IndexFile is served for requests that resolve to a directory.
const IndexFile = "index.html"

// Responder serves files below a root directory.
type Responder struct {
	root   string
	fsys   fs.FS
	mime   map[string]string
	logger *slog.Logger
}

// Option configures a Responder.
type Option func(*Responder)

// WithMIMETypes overrides the content type for file extensions.
// Keys may be given with or without the leading dot.
func WithMIMETypes(types map[string]string) Option {
	return func(s *Responder) {
		for ext, ct := range types {
			ext = strings.ToLower(ext)
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			s.mime[ext] = ct
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Responder) {
		s.logger = logger
	}
}

// WithFS serves from fsys instead of the root directory on disk.
func WithFS(fsys fs.FS) Option {
	return func(s *Responder) {
		s.fsys = fsys
	}
}

// NewResponder creates a Responder for root.
func NewResponder(root string, opts ...Option) *Responder {
	s := &Responder{
		root: root,
		mime: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fsys == nil {
		s.fsys = os.DirFS(root)
	}
	if s.logger == nil {
		s.logger = slog.Default().With("component", "static")
	}
	return s
}

// Root returns the directory files are served from.
func (s *Responder) Root() string {
	return s.root
}

// ServeHTTP serves r.URL.Path relative to the root.
func (s *Responder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	rel, ok := relPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	f, err := s.fsys.Open(rel)
	if err != nil {
		s.logger.Debug("not found", "path", r.URL.Path)
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if info.IsDir() {
		rel = path.Join(rel, IndexFile)
		f, err = s.fsys.Open(rel)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close()
		info, err = f.Stat()
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
	}

	content, ok := f.(io.ReadSeeker)
	if !ok {
		http.Error(w, "file is not seekable", http.StatusInternalServerError)
		return
	}

	if ct, ok := s.mime[strings.ToLower(path.Ext(rel))]; ok {
		w.Header().Set("Content-Type", ct)
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), content)
}

// relPath returns a sanitized path relative to the root for a request path.
// It rejects traversal and absolute-path tricks so serving cannot escape the root.
func relPath(urlPath string) (string, bool) {
	rel := strings.TrimPrefix(urlPath, "/")
	if rel == "" {
		return ".", true
	}

	// Reject NUL early (can appear via %00).
	if strings.IndexByte(rel, 0) != -1 {
		return "", false
	}

	// Reject platform-dependent separators.
	if strings.Contains(rel, "\\") {
		return "", false
	}

	for _, seg := range strings.Split(strings.TrimSuffix(rel, "/"), "/") {
		if seg == "." || seg == ".." || seg == "" {
			return "", false
		}
	}

	clean := path.Clean(rel)
	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}

	return clean, true
}
