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
	"context"
	"net/http"
	"net/url"
)

// Request wraps the incoming http.Request with dispatch state: the (possibly
// mount-rewritten) path, route parameters, and the decoded body. One Request
// is allocated per incoming request and discarded when it terminates.
type Request struct {
	R *http.Request

	// Path is the request path used for layer and route matching. While a
	// mounted sub-application is dispatching, Path has the mount prefix
	// stripped; it is restored when the sub-application finishes.
	Path string

	// Params holds capture values from matched route patterns.
	Params map[string]string

	// Body is the decoded request body, populated by a body parser
	// middleware. nil until a parser has run.
	Body any

	bodyParsed bool
}

func newRequest(r *http.Request) *Request {
	return &Request{R: r, Path: r.URL.Path, Params: map[string]string{}}
}

// Method returns the HTTP method of the request.
func (r *Request) Method() string { return r.R.Method }

// Query returns the first value for the named query parameter.
func (r *Request) Query(key string) string { return r.R.URL.Query().Get(key) }

// Header returns the first value for the named request header.
func (r *Request) Header(key string) string { return r.R.Header.Get(key) }

// Cookie retrieves a request cookie value and ok flag.
func (r *Request) Cookie(name string) (string, bool) {
	ck, err := r.R.Cookie(name)
	if err != nil {
		return "", false
	}
	v, _ := url.QueryUnescape(ck.Value)
	return v, true
}

// Context returns the request's context.
func (r *Request) Context() context.Context { return r.R.Context() }
