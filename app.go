/*
 *    Copyright 2025 Jeff Galyan
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package bilby

import (
	"net/http"
	"strings"
)

// Next resumes dispatch of the current request. Calling next() passes control
// to the remaining stack; calling next(err) raises err, which skips ordinary
// handlers until an error handler (or the end of the stack) consumes it.
// Inside an error handler, next() resumes normal flow and next(err) keeps
// error mode.
type Next func(err ...error)

// Handler is an ordinary middleware or route handler.
type Handler func(req *Request, res *Response, next Next)

// ErrorHandler receives errors raised by upstream handlers via next(err),
// thrown panics included.
type ErrorHandler func(err error, req *Request, res *Response, next Next)

// layer is one registered middleware entry: a handler, an error handler, or
// a mounted sub-application, scoped to a path prefix.
type layer struct {
	prefix string
	fn     Handler
	errFn  ErrorHandler
	sub    *App
}

// route is a registered (method, pattern) pair with its ordered handler
// chain and the matcher compiled at registration time.
type route struct {
	method  string
	pattern string
	m       *matcher
	chain   []Handler
}

// entry is one registration: either a middleware layer or a route. Keeping
// both in a single ordered sequence means an error handler registered after
// a route can catch that route's errors, and dispatch order is exactly
// registration order.
type entry struct {
	layer *layer
	route *route
}

// App owns the middleware and route registry and dispatches requests over
// it. The registry is expected to be fully populated before the server
// starts accepting connections; registration during live traffic is
// unsynchronized and undefined.
type App struct {
	entries []entry
}

// New creates a new App.
func New() *App { return &App{} }

// NewRouter creates a sub-application intended to be mounted into a parent
// App with Mount. It is an ordinary App; the distinct constructor exists to
// make registration code read like its intent.
func NewRouter() *App { return New() }

// Use appends middleware handlers matched on every request path.
func (a *App) Use(handlers ...Handler) { a.UseAt("/", handlers...) }

// UseAt appends middleware handlers matched when the request path falls
// under prefix (exact match or at a "/" boundary).
func (a *App) UseAt(prefix string, handlers ...Handler) {
	prefix = normalizePrefix(prefix)
	for _, h := range handlers {
		if h == nil {
			panic("bilby: nil handler")
		}
		a.entries = append(a.entries, entry{layer: &layer{prefix: prefix, fn: h}})
	}
}

// UseError appends error handlers matched on every request path.
func (a *App) UseError(handlers ...ErrorHandler) { a.UseErrorAt("/", handlers...) }

// UseErrorAt appends error handlers scoped to prefix. Error handlers only
// run while an error is in flight; ordinary dispatch skips them.
func (a *App) UseErrorAt(prefix string, handlers ...ErrorHandler) {
	prefix = normalizePrefix(prefix)
	for _, h := range handlers {
		if h == nil {
			panic("bilby: nil handler")
		}
		a.entries = append(a.entries, entry{layer: &layer{prefix: prefix, errFn: h}})
	}
}

// Mount registers sub as a nested application under prefix. While sub
// dispatches, the request path has the prefix stripped; it is restored, on
// success and error exits alike, before any later sibling layer runs.
func (a *App) Mount(prefix string, sub *App) {
	if sub == nil {
		panic("bilby: nil sub-application")
	}
	a.entries = append(a.entries, entry{layer: &layer{prefix: normalizePrefix(prefix), sub: sub}})
}

// handle compiles pattern and stores the full handler chain as one route.
func (a *App) handle(method, pattern string, handlers []Handler) {
	if len(handlers) == 0 {
		panic("bilby: route needs at least one handler")
	}
	for _, h := range handlers {
		if h == nil {
			panic("bilby: nil handler")
		}
	}
	a.entries = append(a.entries, entry{route: &route{
		method:  method,
		pattern: pattern,
		m:       compilePattern(pattern),
		chain:   handlers,
	}})
}

// GET registers a handler chain for GET requests to the given pattern.
func (a *App) GET(pattern string, handlers ...Handler) {
	a.handle(http.MethodGet, pattern, handlers)
}

// POST registers a handler chain for POST requests to the given pattern.
func (a *App) POST(pattern string, handlers ...Handler) {
	a.handle(http.MethodPost, pattern, handlers)
}

// PUT registers a handler chain for PUT requests to the given pattern.
func (a *App) PUT(pattern string, handlers ...Handler) {
	a.handle(http.MethodPut, pattern, handlers)
}

// PATCH registers a handler chain for PATCH requests to the given pattern.
func (a *App) PATCH(pattern string, handlers ...Handler) {
	a.handle(http.MethodPatch, pattern, handlers)
}

// DELETE registers a handler chain for DELETE requests to the given pattern.
func (a *App) DELETE(pattern string, handlers ...Handler) {
	a.handle(http.MethodDelete, pattern, handlers)
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.dispatch(newRequest(r), newResponse(w), nil)
}

// normalizePrefix validates a mount/layer prefix and strips one trailing
// slash. "" and "/" both mean the root prefix.
func normalizePrefix(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	if p[0] != '/' {
		panic("bilby: prefix must start with /")
	}
	return strings.TrimSuffix(p, "/")
}

// prefixMatches reports whether path falls under prefix: the root prefix
// matches everything, otherwise the prefix must end at the path's end or at
// a "/" boundary.
func prefixMatches(prefix, path string) bool {
	if prefix == "/" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

// stripPrefix removes a mount prefix from path for nested dispatch. An empty
// remainder becomes "/".
func stripPrefix(prefix, path string) string {
	if prefix == "/" {
		return path
	}
	rest := path[len(prefix):]
	if rest == "" {
		return "/"
	}
	return rest
}
