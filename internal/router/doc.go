// Package router decides, per request, whether a request is answered by a
// template, rewritten to another path, or mapped under the base directory.
//
// Decisions are evaluated in a fixed order:
//
//  1. a template rule with a render action answers the request directly
//  2. a rewrite rule replaces the path ($0, $1, ... expand to capture groups)
//  3. otherwise the path is joined under the configured base directory
//
// Only GET and HEAD requests are routed; every other method reaches the next
// handler untouched. Requests that continue downstream carry a
// Cache-Control header that disables caching.
package router
