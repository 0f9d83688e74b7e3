package module

import (
	"net/http"
	"strings"

	"github.com/JaimeStill/sentinel/pkg/middleware"
)

// Router dispatches requests to mounted modules by path prefix,
// falling back to a native ServeMux for unmatched paths.
// Router-level middleware wraps both modules and native handlers.
type Router struct {
	modules    map[string]*Module
	native     *http.ServeMux
	middleware middleware.System
	handler    http.Handler
}

// NewRouter creates a Router with an empty module map and native fallback mux.
func NewRouter() *Router {
	r := &Router{
		modules:    make(map[string]*Module),
		native:     http.NewServeMux(),
		middleware: middleware.New(),
	}
	r.handler = http.HandlerFunc(r.dispatch)
	return r
}

// HandleNative registers a handler on the native fallback mux.
func (r *Router) HandleNative(pattern string, handler http.Handler) {
	r.native.Handle(pattern, handler)
}

// Mount registers a module to handle requests matching its prefix.
func (r *Router) Mount(m *Module) {
	r.modules[m.prefix] = m
}

// Use adds router-level middleware. Call before serving requests.
func (r *Router) Use(mw ...middleware.Func) {
	r.middleware.Use(mw...)
	r.handler = r.middleware.Apply(http.HandlerFunc(r.dispatch))
}

// ServeHTTP applies router middleware, then dispatches to the matching
// module or falls back to the native mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func (r *Router) dispatch(w http.ResponseWriter, req *http.Request) {
	path := normalizePath(req)
	prefix := extractPrefix(path)

	if m, ok := r.modules[prefix]; ok {
		m.Serve(w, req)
		return
	}

	r.native.ServeHTTP(w, req)
}

func extractPrefix(path string) string {
	parts := strings.SplitN(path, "/", 3)
	if len(parts) >= 2 {
		return "/" + parts[1]
	}
	return path
}

func normalizePath(req *http.Request) string {
	path := req.URL.Path
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
		req.URL.Path = path
	}
	return path
}
