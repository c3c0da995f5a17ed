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
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// BodyParserConfig configures the body parser middlewares.
type BodyParserConfig struct {
	// Limit caps the accumulated body size before the connection is
	// destroyed. Accepts a decimal byte count ("65536") or megabytes
	// ("2mb", parsed as N * 1024 * 1024). Default: "1mb".
	Limit string
}

const defaultBodyLimit = "1mb"

// parseSizeLimit parses the Limit grammar into a byte count.
func parseSizeLimit(s string) (int64, error) {
	if s == "" {
		s = defaultBodyLimit
	}
	ls := strings.ToLower(strings.TrimSpace(s))
	if n, ok := strings.CutSuffix(ls, "mb"); ok {
		v, err := strconv.ParseInt(n, 10, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("bilby: invalid body limit %q", s)
		}
		return v << 20, nil
	}
	v, err := strconv.ParseInt(ls, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("bilby: invalid body limit %q", s)
	}
	return v, nil
}

// JSONParser creates a middleware that decodes application/json request
// bodies into req.Body. Non-matching content types and already-parsed
// bodies pass through untouched. An empty body decodes to an empty map;
// malformed JSON raises a 400 HTTPError via next(err). Exceeding the size
// limit destroys the connection: no response is written and no further
// handler runs.
func JSONParser(cfg BodyParserConfig) Handler {
	limit, err := parseSizeLimit(cfg.Limit)
	if err != nil {
		panic(err.Error())
	}
	return func(req *Request, res *Response, next Next) {
		if req.bodyParsed || !matchesContentType(req, "application/json") {
			next()
			return
		}
		raw, err := readBody(req, limit)
		if err != nil {
			next(err)
			return
		}
		req.bodyParsed = true
		if len(raw) == 0 {
			req.Body = map[string]any{}
			next()
			return
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			next(&HTTPError{Code: http.StatusBadRequest, Message: "invalid JSON body: " + err.Error()})
			return
		}
		req.Body = v
		next()
	}
}

// URLEncodedParser creates a middleware that decodes
// application/x-www-form-urlencoded request bodies into req.Body as a
// map[string]any. Repeated keys coalesce into a []string. Size limit and
// skip semantics match JSONParser.
func URLEncodedParser(cfg BodyParserConfig) Handler {
	limit, err := parseSizeLimit(cfg.Limit)
	if err != nil {
		panic(err.Error())
	}
	return func(req *Request, res *Response, next Next) {
		if req.bodyParsed || !matchesContentType(req, "application/x-www-form-urlencoded") {
			next()
			return
		}
		raw, err := readBody(req, limit)
		if err != nil {
			next(err)
			return
		}
		req.bodyParsed = true
		form := make(map[string]any)
		for _, pair := range strings.Split(string(raw), "&") {
			if pair == "" {
				continue
			}
			k, v, _ := strings.Cut(pair, "=")
			key, err := url.QueryUnescape(k)
			if err != nil {
				next(&HTTPError{Code: http.StatusBadRequest, Message: "invalid form body: " + err.Error()})
				return
			}
			val, err := url.QueryUnescape(v)
			if err != nil {
				next(&HTTPError{Code: http.StatusBadRequest, Message: "invalid form body: " + err.Error()})
				return
			}
			switch prev := form[key].(type) {
			case nil:
				form[key] = val
			case string:
				form[key] = []string{prev, val}
			case []string:
				form[key] = append(prev, val)
			}
		}
		req.Body = form
		next()
	}
}

// matchesContentType gates a parser on the request's media type, ignoring
// parameters such as charset.
func matchesContentType(req *Request, want string) bool {
	ct := req.Header("Content-Type")
	if ct == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == want
}

// readBody accumulates the request body in fixed-size chunks. The limit is
// checked before a chunk is buffered, so at most limit bytes plus one
// in-flight chunk are ever held; on overflow the body is closed and the
// connection aborted mid-stream via the net/http abort sentinel.
func readBody(req *Request, limit int64) ([]byte, error) {
	body := req.R.Body
	if body == nil {
		return nil, nil
	}
	buf := make([]byte, 0, 512)
	chunk := make([]byte, 32<<10)
	for {
		n, err := body.Read(chunk)
		if n > 0 {
			if int64(len(buf))+int64(n) > limit {
				_ = body.Close()
				panic(http.ErrAbortHandler)
			}
			buf = append(buf, chunk[:n]...)
		}
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
