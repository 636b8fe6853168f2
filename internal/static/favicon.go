package static

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"os"
	"strconv"
	"time"
)

// FaviconPath is the only request path the favicon middleware answers.
const FaviconPath = "/favicon.ico"

// DefaultFaviconMaxAge is how long browsers may cache the favicon.
const DefaultFaviconMaxAge = 365 * 24 * time.Hour

// Favicon serves a favicon read once at startup.
type Favicon struct {
	data    []byte
	etag    string
	modTime time.Time
	maxAge  time.Duration
}

// NewFavicon reads the icon at file.
func NewFavicon(file string) (*Favicon, error) {
	info, err := os.Stat(file)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return NewFaviconBytes(data, info.ModTime()), nil
}

// NewFaviconBytes creates a Favicon from icon bytes.
func NewFaviconBytes(data []byte, modTime time.Time) *Favicon {
	sum := sha256.Sum256(data)
	return &Favicon{
		data:    data,
		etag:    `"` + base64.RawURLEncoding.EncodeToString(sum[:12]) + `"`,
		modTime: modTime,
		maxAge:  DefaultFaviconMaxAge,
	}
}

// Middleware answers /favicon.ico and passes every other path to next.
// A nil Favicon passes everything through.
func (f *Favicon) Middleware(next http.Handler) http.Handler {
	if f == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != FaviconPath {
			next.ServeHTTP(w, r)
			return
		}

		switch r.Method {
		case http.MethodGet, http.MethodHead:
		case http.MethodOptions:
			w.Header().Set("Allow", "GET, HEAD, OPTIONS")
			w.Header().Set("Content-Length", "0")
			w.WriteHeader(http.StatusOK)
			return
		default:
			w.Header().Set("Allow", "GET, HEAD, OPTIONS")
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		h := w.Header()
		h.Set("Cache-Control", "public, max-age="+strconv.Itoa(int(f.maxAge.Seconds())))
		h.Set("Content-Type", "image/x-icon")
		h.Set("ETag", f.etag)
		http.ServeContent(w, r, FaviconPath, f.modTime, bytes.NewReader(f.data))
	})
}
