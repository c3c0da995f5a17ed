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
	"regexp"
	"strings"
)

// matcher is the compiled form of a route pattern: an anchored regular
// expression plus the parameter names in declared order. Compiled once at
// registration time and immutable thereafter.
type matcher struct {
	re     *regexp.Regexp
	params []string
}

// compilePattern turns a route pattern into a matcher. Literal segments are
// quoted, each ":name" segment becomes a single non-separator capture group,
// and the expression is anchored at both ends. One trailing slash on the
// pattern is normalized away; one trailing slash on the request path is
// tolerated at match time.
func compilePattern(pattern string) *matcher {
	if pattern == "" || pattern[0] != '/' {
		panic("bilby: route pattern must start with /")
	}
	if len(pattern) > 1 {
		pattern = strings.TrimSuffix(pattern, "/")
	}

	var b strings.Builder
	b.WriteString("^")
	params := []string{}
	if pattern == "/" {
		b.WriteString("/")
	} else {
		for _, seg := range strings.Split(pattern[1:], "/") {
			b.WriteString("/")
			if strings.HasPrefix(seg, ":") {
				name := seg[1:]
				if name == "" {
					panic("bilby: empty parameter name in pattern " + pattern)
				}
				params = append(params, name)
				b.WriteString("([^/]+)")
			} else {
				b.WriteString(regexp.QuoteMeta(seg))
			}
		}
	}
	b.WriteString("/?$")

	return &matcher{re: regexp.MustCompile(b.String()), params: params}
}

// match reports whether path satisfies the pattern and returns the captured
// parameter values keyed by name, in declared positional order.
func (m *matcher) match(path string) (map[string]string, bool) {
	vals := m.re.FindStringSubmatch(path)
	if vals == nil {
		return nil, false
	}
	if len(m.params) == 0 {
		return nil, true
	}
	captured := make(map[string]string, len(m.params))
	for i, name := range m.params {
		captured[name] = vals[i+1]
	}
	return captured, true
}
