package router

import (
	"log/slog"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/devstatic/internal/metrics"
	"github.com/vango-dev/devstatic/internal/rules"
)

// NoCache is the Cache-Control value set on every routed, non-template response.
const NoCache = "no-cache, no-store, max-age=0"

const defaultTracerName = "devstatic"

// Kind is the outcome of a routing decision.
type Kind int

const (
	KindStatic Kind = iota
	KindRewrite
	KindTemplate
)

func (k Kind) String() string {
	switch k {
	case KindTemplate:
		return "template"
	case KindRewrite:
		return "rewrite"
	default:
		return "static"
	}
}

// Decision is what the router will do with a request URI.
type Decision struct {
	Kind Kind

	// Rule is the matched rule for KindTemplate and KindRewrite.
	Rule *rules.Rule

	// Path and Query are the escaped path and raw query the request continues
	// with. Unset for KindTemplate.
	Path  string
	Query string
}

// Config is the immutable routing configuration.
type Config struct {
	// Base is the directory prefix unmatched requests are joined under.
	Base string

	Templates *rules.Table
	Rewrites  *rules.Table
}

// Router is the request routing middleware.
type Router struct {
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithMetrics sets the collectors routing decisions are counted in.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithTracer sets the tracer. Default: the global provider's "devstatic" tracer.
func WithTracer(t trace.Tracer) Option {
	return func(r *Router) {
		r.tracer = t
	}
}

// New creates a Router.
func New(config Config, opts ...Option) *Router {
	r := &Router{config: config}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default().With("component", "router")
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(defaultTracerName)
	}
	return r
}

// Decide returns the routing decision for a request URI (escaped path plus
// optional query). It performs no I/O.
func (rt *Router) Decide(uri string) Decision {
	if m, ok := rt.config.Templates.Match(uri); ok && m.Rule.Action.IsRender() {
		return Decision{Kind: KindTemplate, Rule: m.Rule}
	}

	if m, ok := rt.config.Rewrites.Match(uri); ok && m.Rule.Action.Kind == rules.ActionLiteral {
		p, q := rules.SplitQuery(rules.Expand(m.Rule.Action.Replacement, m.Groups))
		return Decision{Kind: KindRewrite, Rule: m.Rule, Path: rules.Normalize(p), Query: q}
	}

	p, q := rules.SplitQuery(uri)
	return Decision{Kind: KindStatic, Path: rules.Join(rt.config.Base, p), Query: q}
}

// Middleware wraps next with request routing.
func (rt *Router) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			rt.metrics.RecordRoute("passthrough")
			next.ServeHTTP(w, r)
			return
		}

		uri := r.URL.RequestURI()
		ctx, span := rt.tracer.Start(r.Context(), "devstatic.route",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", uri),
			),
		)
		defer span.End()

		d := rt.Decide(uri)
		rt.metrics.RecordRoute(d.Kind.String())
		span.SetAttributes(attribute.String("devstatic.route.action", d.Kind.String()))
		if d.Rule != nil {
			span.SetAttributes(attribute.String("devstatic.route.pattern", d.Rule.Pattern))
		}

		if d.Kind == KindTemplate {
			rt.logger.Debug("template", "uri", uri, "pattern", d.Rule.Pattern)
			body, err := d.Rule.Action.Render()
			if err != nil {
				rt.metrics.RecordRenderError()
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				rt.logger.Error("template render failed", "uri", uri, "pattern", d.Rule.Pattern, "error", err)
				http.Error(w, "template render failed", http.StatusInternalServerError)
				return
			}
			w.Write(body)
			return
		}

		rt.logger.Debug(d.Kind.String(), "uri", uri, "path", d.Path)
		span.SetAttributes(attribute.String("devstatic.route.path", d.Path))

		w.Header().Set("Cache-Control", NoCache)
		next.ServeHTTP(w, withPath(r.WithContext(ctx), d.Path, d.Query))
	})
}

// withPath points r at an escaped path and raw query. r must already be a
// copy; its URL is replaced, never modified in place.
func withPath(r *http.Request, escaped, query string) *http.Request {
	u := *r.URL
	u.RawQuery = query
	if p, err := url.PathUnescape(escaped); err == nil {
		u.Path = p
		u.RawPath = ""
		if u.EscapedPath() != escaped {
			u.RawPath = escaped
		}
	} else {
		u.Path = escaped
		u.RawPath = ""
	}
	r.URL = &u
	r.RequestURI = u.RequestURI()
	return r
}
