package api

import (
	"context"
	"log/slog"
	"strings"
)

// Request is one parsed command line.
type Request struct {
	// Ctx is cancelled when the client connection goes away or the server
	// shuts down.
	Ctx    context.Context
	Params map[string]string
	Args   []string
}

// Payload returns the arguments joined back into the raw payload string.
func (r *Request) Payload() string { return strings.Join(r.Args, " ") }

// Response carries the JSON line written back on success.
type Response struct {
	JSON string
}

// HandlerFunc handles one command. A returned error is sent to the client as
// {"error":"..."}.
type HandlerFunc func(req *Request, res *Response, logger *slog.Logger) error

type route struct {
	segments []string
	handler  HandlerFunc
}

// Router matches slash separated paths with {param} segments.
type Router struct {
	routes []route
}

func NewRouter() *Router { return &Router{} }

// Register adds a handler for pattern, e.g. "ping" or "bus/{id}/add".
// Literal segments match case-insensitively.
func (r *Router) Register(pattern string, h HandlerFunc) {
	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if !isParam(seg) {
			segments[i] = strings.ToLower(seg)
		}
	}
	r.routes = append(r.routes, route{segments: segments, handler: h})
}

func isParam(seg string) bool {
	return len(seg) > 2 && strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

// Match returns the first handler whose pattern matches path along with the
// captured params, or nil.
func (r *Router) Match(path string) (HandlerFunc, map[string]string) {
	parts := strings.Split(path, "/")
	for _, rt := range r.routes {
		if params, ok := matchSegments(rt.segments, parts); ok {
			return rt.handler, params
		}
	}
	return nil, nil
}

func matchSegments(pattern, parts []string) (map[string]string, bool) {
	if len(pattern) != len(parts) {
		return nil, false
	}
	params := map[string]string{}
	for i, seg := range pattern {
		if isParam(seg) {
			if parts[i] == "" {
				return nil, false
			}
			params[seg[1:len(seg)-1]] = parts[i]
			continue
		}
		if seg != parts[i] {
			return nil, false
		}
	}
	return params, true
}
