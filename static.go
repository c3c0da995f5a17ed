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
	"os"
	"path/filepath"
	"strings"
)

// Static creates a middleware that serves regular files under root for GET
// and HEAD requests. The decoded request path is resolved against the
// absolute root and must still fall inside it after cleaning; anything else
// (traversal attempts, directories, missing files, other methods) falls
// through to the next middleware.
//
// To serve under a URL prefix, mount it:
//
//	files := bilby.NewRouter()
//	files.Use(bilby.Static("./public"))
//	app.Mount("/assets", files)
func Static(root string) Handler {
	abs, err := filepath.Abs(root)
	if err != nil {
		panic("bilby: static root: " + err.Error())
	}
	abs = filepath.Clean(abs)

	return func(req *Request, res *Response, next Next) {
		if m := req.Method(); m != http.MethodGet && m != http.MethodHead {
			next()
			return
		}
		decoded, err := url.PathUnescape(req.Path)
		if err != nil {
			next()
			return
		}
		resolved := filepath.Clean(filepath.Join(abs, filepath.FromSlash(decoded)))
		if resolved != abs && !strings.HasPrefix(resolved, abs+string(filepath.Separator)) {
			next()
			return
		}
		fi, err := os.Stat(resolved)
		if err != nil || !fi.Mode().IsRegular() {
			next()
			return
		}
		res.SendFile(resolved)
	}
}
