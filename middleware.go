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
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

var idCounter uint64

func randomID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s-%d", time.Now().UTC().Format("20060102150405.000000000"), atomic.AddUint64(&idCounter, 1))
	}
	return hex.EncodeToString(b)
}

// Context key types to avoid collisions

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
)

// WithRequestID injects a request id into context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestID extracts the request correlation ID from ctx.
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyRequestID).(string)
	return v, ok
}

// LoggerConfig configures the Logger middleware.
type LoggerConfig struct {
	// Logger is the slog.Logger used for output. nil uses slog.Default().
	Logger *slog.Logger

	// Sanitize enables redaction of sensitive path parameters, query parameters,
	// and headers in log output. nil means no sanitization.
	Sanitize *SanitizeConfig
}

// Logger provides structured access logging with request id. The log line is
// emitted from a response finish hook, so it observes the final status even
// though dispatch hands control forward through next().
func Logger(cfg LoggerConfig) Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var san *Sanitizer
	if cfg.Sanitize != nil {
		san = NewSanitizer(*cfg.Sanitize)
	}

	return func(req *Request, res *Response, next Next) {
		id := req.Header("X-Request-Id")
		if id == "" {
			id = randomID()
		}
		req.R = req.R.WithContext(WithRequestID(req.R.Context(), id))
		start := time.Now()
		method := req.Method()
		path := req.Path
		res.OnFinish(func(status int) {
			logger.Info("request",
				slog.String("id", id),
				slog.String("method", method),
				slog.String("path", san.Path(path, req.Params)),
				slog.Int("status", status),
				slog.String("duration", time.Since(start).String()),
			)
		})
		next()
	}
}

// Timeout applies a deadline to the request context for downstream handlers.
func Timeout(d time.Duration) Handler {
	return func(req *Request, res *Response, next Next) {
		if d > 0 {
			ctx, cancel := context.WithTimeout(req.R.Context(), d)
			res.OnFinish(func(int) { cancel() })
			req.R = req.R.WithContext(ctx)
		}
		next()
	}
}
