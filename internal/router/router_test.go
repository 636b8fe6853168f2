package router

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/devstatic/internal/metrics"
	"github.com/vango-dev/devstatic/internal/rules"
)

type captured struct {
	called bool
	path   string
	query  string
	method string
}

func captureHandler(c *captured) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.called = true
		c.path = r.URL.Path
		c.query = r.URL.RawQuery
		c.method = r.Method
		w.WriteHeader(http.StatusOK)
	})
}

func newRouter(t *testing.T, templates, rewrites []rules.Entry) *Router {
	t.Helper()
	tt, err := rules.Compile(templates)
	require.NoError(t, err)
	rw, err := rules.Compile(rewrites)
	require.NoError(t, err)
	return New(Config{Base: "public", Templates: tt, Rewrites: rw})
}

func serve(rt *Router, next http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	rt.Middleware(next).ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestFallback_JoinsBase(t *testing.T) {
	rt := newRouter(t, nil, nil)

	var c captured
	rec := serve(rt, captureHandler(&c), http.MethodGet, "//a//b")

	require.True(t, c.called)
	assert.Equal(t, "/public/a/b", c.path)
	assert.Equal(t, NoCache, rec.Header().Get("Cache-Control"))
}

func TestFallback_KeepsQueryAndTrailingSlash(t *testing.T) {
	rt := newRouter(t, nil, nil)

	var c captured
	serve(rt, captureHandler(&c), http.MethodGet, "/docs/?v=2")

	assert.Equal(t, "/public/docs/", c.path)
	assert.Equal(t, "v=2", c.query)
}

func TestRewrite(t *testing.T) {
	rt := newRouter(t, nil, []rules.Entry{
		{Pattern: "foo/(.*)", Action: rules.Literal("$1/index.html")},
	})

	var c captured
	rec := serve(rt, captureHandler(&c), http.MethodGet, "/foo/bar")

	require.True(t, c.called)
	assert.Equal(t, "/bar/index.html", c.path)
	assert.Equal(t, NoCache, rec.Header().Get("Cache-Control"))
}

func TestRewrite_CollapsesSlashes(t *testing.T) {
	rt := newRouter(t, nil, []rules.Entry{
		{Pattern: "app(/.*)?", Action: rules.Literal("public//app//$1/index.html")},
	})

	var c captured
	serve(rt, captureHandler(&c), http.MethodGet, "/app/settings")

	assert.Equal(t, "/public/app/settings/index.html", c.path)
}

func TestRewrite_UnresolvedPlaceholderIsLiteral(t *testing.T) {
	rt := newRouter(t, nil, []rules.Entry{
		{Pattern: "x/(.*)", Action: rules.Literal("$1/$9")},
	})

	d := rt.Decide("/x/y")
	assert.Equal(t, KindRewrite, d.Kind)
	assert.Equal(t, "/y/$9", d.Path)
}

func TestRewrite_FirstRuleWins(t *testing.T) {
	rt := newRouter(t, nil, []rules.Entry{
		{Pattern: "a/.*", Action: rules.Literal("first.html")},
		{Pattern: "a/b", Action: rules.Literal("second.html")},
	})

	d := rt.Decide("/a/b")
	assert.Equal(t, "/first.html", d.Path)
}

func TestTemplate_ShortCircuits(t *testing.T) {
	rt := newRouter(t, []rules.Entry{
		{Pattern: "config\\.js", Action: rules.Render(func() ([]byte, error) {
			return []byte("window.CONFIG = {};"), nil
		})},
	}, []rules.Entry{
		{Pattern: "config\\.js", Action: rules.Literal("never.js")},
	})

	var c captured
	rec := serve(rt, captureHandler(&c), http.MethodGet, "/config.js")

	assert.False(t, c.called, "template responses must not reach the next handler")
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, "window.CONFIG = {};", string(body))
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}

func TestTemplate_NonRenderFallsThrough(t *testing.T) {
	rt := newRouter(t, []rules.Entry{
		{Pattern: "page", Action: rules.Literal("not callable")},
	}, []rules.Entry{
		{Pattern: "page", Action: rules.Literal("page.html")},
	})

	var c captured
	serve(rt, captureHandler(&c), http.MethodGet, "/page")

	require.True(t, c.called)
	assert.Equal(t, "/page.html", c.path)
}

func TestTemplate_RenderError(t *testing.T) {
	rt := newRouter(t, []rules.Entry{
		{Pattern: "boom", Action: rules.Render(func() ([]byte, error) {
			return nil, errors.New("bad template")
		})},
	}, nil)

	var c captured
	rec := serve(rt, captureHandler(&c), http.MethodGet, "/boom")

	assert.False(t, c.called)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHead_IsRouted(t *testing.T) {
	rt := newRouter(t, nil, nil)

	var c captured
	serve(rt, captureHandler(&c), http.MethodHead, "/x.css")

	assert.Equal(t, "/public/x.css", c.path)
}

func TestNonGetPassesThrough(t *testing.T) {
	rt := newRouter(t, []rules.Entry{
		{Pattern: ".*", Action: rules.Render(func() ([]byte, error) { return []byte("t"), nil })},
	}, []rules.Entry{
		{Pattern: ".*", Action: rules.Literal("rewritten")},
	})

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions} {
		var c captured
		rec := serve(rt, captureHandler(&c), method, "/api/items?x=1")

		require.True(t, c.called, method)
		assert.Equal(t, "/api/items", c.path, method)
		assert.Equal(t, "x=1", c.query, method)
		assert.Empty(t, rec.Header().Get("Cache-Control"), method)
	}
}

func TestDoesNotMutateOriginalRequest(t *testing.T) {
	rt := newRouter(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/a.js", nil)

	rt.Middleware(http.NotFoundHandler()).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "/a.js", req.URL.Path)
}

func TestEscapedPathsSurvive(t *testing.T) {
	rt := newRouter(t, nil, nil)

	var c captured
	serve(rt, captureHandler(&c), http.MethodGet, "/my%20file.txt")

	assert.Equal(t, "/public/my file.txt", c.path)
}

func TestMetricsAreRecorded(t *testing.T) {
	m := metrics.New()
	tt := rules.MustCompile(nil)
	rt := New(Config{Base: "public", Templates: tt, Rewrites: tt}, WithMetrics(m))

	serve(rt, http.NotFoundHandler(), http.MethodGet, "/a")
	serve(rt, http.NotFoundHandler(), http.MethodPost, "/a")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `devstatic_route_decisions_total{action="static"} 1`)
	assert.Contains(t, body, `devstatic_route_decisions_total{action="passthrough"} 1`)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "template", KindTemplate.String())
	assert.Equal(t, "rewrite", KindRewrite.String())
	assert.Equal(t, "static", KindStatic.String())
}
