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
	"net/url"
	"strings"
)

// SanitizeConfig configures the Sanitizer.
type SanitizeConfig struct {
	// Params is the list of route parameter names to redact (without ":" prefix).
	Params []string

	// QueryParams is the list of query parameter names to redact.
	QueryParams []string

	// Headers is the list of header names to redact (case-insensitive).
	Headers []string

	// Mask is the replacement string for redacted values. Default: "***".
	Mask string
}

// Sanitizer provides reusable sanitization of request fields for logging.
// Create once via NewSanitizer and reuse across requests. Methods on a nil
// *Sanitizer return inputs unchanged, so callers can skip a nil check.
type Sanitizer struct {
	mask      string
	paramSet  map[string]struct{}
	querySet  map[string]struct{}
	headerSet map[string]struct{} // canonicalized keys
}

// NewSanitizer creates a Sanitizer from the given config. It returns nil if
// all redaction lists are empty (no work to do).
func NewSanitizer(cfg SanitizeConfig) *Sanitizer {
	s := &Sanitizer{
		mask:      cfg.Mask,
		paramSet:  make(map[string]struct{}, len(cfg.Params)),
		querySet:  make(map[string]struct{}, len(cfg.QueryParams)),
		headerSet: make(map[string]struct{}, len(cfg.Headers)),
	}
	for _, p := range cfg.Params {
		s.paramSet[p] = struct{}{}
	}
	for _, q := range cfg.QueryParams {
		s.querySet[q] = struct{}{}
	}
	for _, h := range cfg.Headers {
		s.headerSet[http.CanonicalHeaderKey(h)] = struct{}{}
	}
	if len(s.paramSet) == 0 && len(s.querySet) == 0 && len(s.headerSet) == 0 {
		return nil
	}
	if s.mask == "" {
		s.mask = "***"
	}
	return s
}

// Path returns the request path with redacted parameter values. Segments whose
// values match a configured param name are replaced with the mask. If s is nil,
// the original path is returned unchanged.
func (s *Sanitizer) Path(path string, params map[string]string) string {
	if s == nil || len(s.paramSet) == 0 {
		return path
	}

	redactValues := make(map[string]struct{})
	for name := range s.paramSet {
		if v, ok := params[name]; ok && v != "" {
			redactValues[v] = struct{}{}
		}
	}
	if len(redactValues) == 0 {
		return path
	}

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if _, found := redactValues[seg]; found {
			segments[i] = s.mask
		}
	}
	return strings.Join(segments, "/")
}

// Query returns the raw query string with redacted values for configured query
// parameter names. If s is nil or nothing matches, the original query string
// is returned unchanged.
func (s *Sanitizer) Query(rawQuery string) string {
	if s == nil || len(s.querySet) == 0 || rawQuery == "" {
		return rawQuery
	}
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}
	changed := false
	for key := range s.querySet {
		if vals, ok := q[key]; ok {
			for i := range vals {
				vals[i] = s.mask
			}
			changed = true
		}
	}
	if !changed {
		return rawQuery
	}
	return q.Encode()
}

// Headers returns a clone of the provided headers with redacted values for
// configured header names. If s is nil or there are no headers to redact,
// nil is returned.
func (s *Sanitizer) Headers(h http.Header) http.Header {
	if s == nil || len(s.headerSet) == 0 {
		return nil
	}
	clone := h.Clone()
	for key := range s.headerSet {
		if vals := clone[key]; len(vals) > 0 {
			for i := range vals {
				vals[i] = s.mask
			}
		}
	}
	return clone
}
