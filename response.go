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
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Response wraps the underlying http.ResponseWriter with chainable shaping
// methods and exactly one terminal write path. Once a terminal method (JSON,
// Send, SendString, End, SendFile) has written the response, later terminal
// calls are no-ops; Sent reports whether that has happened.
type Response struct {
	W http.ResponseWriter

	status   int
	sent     bool
	onFinish []func(status int)
}

func newResponse(w http.ResponseWriter) *Response {
	return &Response{W: w}
}

// Status sets the response status code for the eventual terminal write.
func (r *Response) Status(code int) *Response {
	r.status = code
	return r
}

// Set sets a response header field.
func (r *Response) Set(field, value string) *Response {
	r.W.Header().Set(field, value)
	return r
}

// SetHeaders merges a map of header fields into the response.
func (r *Response) SetHeaders(fields map[string]string) *Response {
	for k, v := range fields {
		r.W.Header().Set(k, v)
	}
	return r
}

// Type sets the Content-Type header.
func (r *Response) Type(value string) *Response {
	r.W.Header().Set("Content-Type", value)
	return r
}

// Vary appends a field name to the Vary header.
func (r *Response) Vary(field string) *Response {
	r.W.Header().Add("Vary", field)
	return r
}

// CookieOptions carries the supported Set-Cookie attributes. MaxAge is
// serialized in whole seconds; SameSite accepts "lax", "strict" or "none"
// (case-insensitive).
type CookieOptions struct {
	MaxAge   time.Duration
	Domain   string
	Path     string
	HttpOnly bool
	Secure   bool
	SameSite string
}

// Cookie appends a Set-Cookie header for name/value with optional attributes.
// Existing Set-Cookie values are preserved, never replaced.
func (r *Response) Cookie(name, value string, opts *CookieOptions) *Response {
	ck := &http.Cookie{Name: name, Value: value}
	if opts != nil {
		if opts.MaxAge > 0 {
			ck.MaxAge = int(opts.MaxAge / time.Second)
		}
		ck.Domain = opts.Domain
		ck.Path = opts.Path
		ck.HttpOnly = opts.HttpOnly
		ck.Secure = opts.Secure
		switch strings.ToLower(opts.SameSite) {
		case "lax":
			ck.SameSite = http.SameSiteLaxMode
		case "strict":
			ck.SameSite = http.SameSiteStrictMode
		case "none":
			ck.SameSite = http.SameSiteNoneMode
		}
	}
	r.W.Header().Add("Set-Cookie", ck.String())
	return r
}

// OnFinish registers a hook invoked once, with the final status code, when
// the terminal write happens. Used by the access logger.
func (r *Response) OnFinish(fn func(status int)) {
	r.onFinish = append(r.onFinish, fn)
}

// Sent reports whether a terminal method has already written the response.
func (r *Response) Sent() bool { return r.sent }

// begin claims the terminal write: it defaults the Content-Type if the caller
// has not set one, writes the status line, and flips the sent flag. It
// returns false if the response was already sent.
func (r *Response) begin(defaultType string) bool {
	if r.sent {
		return false
	}
	r.sent = true
	if defaultType != "" && r.W.Header().Get("Content-Type") == "" {
		r.W.Header().Set("Content-Type", defaultType)
	}
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.W.WriteHeader(r.status)
	return true
}

func (r *Response) finish() {
	for _, fn := range r.onFinish {
		fn(r.status)
	}
}

// JSON serializes v and ends the response, defaulting the Content-Type to
// application/json if unset.
func (r *Response) JSON(v any) {
	if !r.begin("application/json; charset=utf-8") {
		return
	}
	_ = json.NewEncoder(r.W).Encode(v)
	r.finish()
}

// SendString ends the response with a plain text body.
func (r *Response) SendString(s string) {
	if !r.begin("text/plain; charset=utf-8") {
		return
	}
	_, _ = io.WriteString(r.W, s)
	r.finish()
}

// Send ends the response, dispatching on the payload kind: nil ends with no
// body, []byte is written verbatim, a string becomes plain text, and
// anything else is serialized as JSON.
func (r *Response) Send(v any) {
	switch p := v.(type) {
	case nil:
		r.End()
	case []byte:
		if !r.begin("application/octet-stream") {
			return
		}
		_, _ = r.W.Write(p)
		r.finish()
	case string:
		r.SendString(p)
	default:
		r.JSON(v)
	}
}

// End ends the response with no body.
func (r *Response) End() {
	if !r.begin("") {
		return
	}
	r.finish()
}

// SendFile streams the named file to the response. A stat, open or non-regular
// file failure yields a 404 with no body.
func (r *Response) SendFile(name string) {
	if r.sent {
		return
	}
	f, err := os.Open(name)
	if err != nil {
		r.status = http.StatusNotFound
		r.begin("")
		r.finish()
		return
	}
	defer func() { _ = f.Close() }()
	fi, err := f.Stat()
	if err != nil || !fi.Mode().IsRegular() {
		r.status = http.StatusNotFound
		r.begin("")
		r.finish()
		return
	}

	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	r.W.Header().Set("Content-Length", strconv.FormatInt(fi.Size(), 10))
	if !r.begin(ct) {
		return
	}
	_, _ = io.Copy(r.W, f)
	r.finish()
}
