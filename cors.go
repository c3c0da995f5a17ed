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
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowOrigins is the list of origins permitted to make cross-origin requests.
	// Use ["*"] to allow all origins. Default: ["*"].
	AllowOrigins []string

	// AllowMethods is the list of HTTP methods allowed for cross-origin requests.
	// When empty, preflight responses echo the requested method.
	AllowMethods []string

	// AllowHeaders is the list of request headers allowed in cross-origin requests.
	// When empty, preflight responses echo the requested headers.
	AllowHeaders []string

	// ExposeHeaders is the list of response headers that browsers are allowed to access.
	// Default: empty (browser defaults apply).
	ExposeHeaders []string

	// MaxAge is the duration in seconds that preflight responses can be cached.
	// 0 omits the header.
	MaxAge int

	// AllowCredentials indicates whether the request can include credentials
	// (cookies, HTTP authentication, client-side SSL certificates).
	// When true and AllowOrigins contains "*", the middleware reflects the
	// actual request Origin instead of emitting "*" (per the CORS spec).
	AllowCredentials bool
}

// DefaultCORSConfig returns a CORSConfig with sensible defaults.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodHead,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Request-Id",
		},
		ExposeHeaders:    []string{},
		MaxAge:           86400,
		AllowCredentials: false,
	}
}

// CORS creates a middleware that handles Cross-Origin Resource Sharing.
// Preflight requests (OPTIONS with Access-Control-Request-Method) are
// answered with 204 immediately; no downstream middleware or route runs
// for them. All other requests get the response headers set and continue.
func CORS(cfg CORSConfig) Handler {
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = []string{"*"}
	}
	allowMethodsStr := strings.Join(cfg.AllowMethods, ", ")
	allowHeadersStr := strings.Join(cfg.AllowHeaders, ", ")
	exposeHeadersStr := strings.Join(cfg.ExposeHeaders, ", ")
	maxAgeStr := strconv.Itoa(cfg.MaxAge)
	allowAll := len(cfg.AllowOrigins) == 1 && cfg.AllowOrigins[0] == "*"

	return func(req *Request, res *Response, next Next) {
		origin := req.Header("Origin")
		if origin == "" {
			next()
			return
		}

		if !allowAll && !originAllowed(origin, cfg.AllowOrigins) {
			next()
			return
		}

		allowOriginValue := "*"
		if cfg.AllowCredentials || !allowAll {
			allowOriginValue = origin
		}

		// Preflight request
		if req.Method() == http.MethodOptions && req.Header("Access-Control-Request-Method") != "" {
			res.Set("Access-Control-Allow-Origin", allowOriginValue)
			methods := allowMethodsStr
			if methods == "" {
				methods = req.Header("Access-Control-Request-Method")
			}
			res.Set("Access-Control-Allow-Methods", methods)
			headers := allowHeadersStr
			if headers == "" {
				headers = req.Header("Access-Control-Request-Headers")
			}
			if headers != "" {
				res.Set("Access-Control-Allow-Headers", headers)
			}
			if cfg.MaxAge > 0 {
				res.Set("Access-Control-Max-Age", maxAgeStr)
			}
			if cfg.AllowCredentials {
				res.Set("Access-Control-Allow-Credentials", "true")
			}
			res.Set("Vary", "Origin, Access-Control-Request-Method, Access-Control-Request-Headers")
			res.Status(http.StatusNoContent).End()
			return
		}

		// Actual request
		res.Set("Access-Control-Allow-Origin", allowOriginValue)
		if cfg.AllowCredentials {
			res.Set("Access-Control-Allow-Credentials", "true")
		}
		if exposeHeadersStr != "" {
			res.Set("Access-Control-Expose-Headers", exposeHeadersStr)
		}
		res.Vary("Origin")
		next()
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
