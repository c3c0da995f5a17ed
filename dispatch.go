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
	"errors"
	"fmt"
	"net/http"
)

// step is one entry of the per-request execution stack: an ordinary handler,
// an error handler, or a sub-application mount.
type step struct {
	fn     Handler
	errFn  ErrorHandler
	sub    *App
	prefix string
}

// execStack iterates a pre-built list of steps with a cursor and a typed
// error slot. Next is re-entrant: a handler calling next() synchronously
// only marks the stack pending, and the single run loop advances the
// cursor, so call-stack depth stays bounded regardless of chain length.
type execStack struct {
	steps []step
	req   *Request
	res   *Response
	done  Next

	cursor  int
	err     error
	running bool
	pending bool
}

// dispatch builds the execution stack for req and runs it. done, when
// non-nil, is the parent continuation of a mounted sub-application and is
// called with any outstanding error once this stack is exhausted.
func (a *App) dispatch(req *Request, res *Response, done Next) {
	s := &execStack{steps: a.collect(req), req: req, res: res, done: done}
	s.Next()
}

// collect walks the registry in registration order, selecting layers whose
// prefix covers the request path and routes whose method and matcher accept
// it. A matching route contributes its whole handler chain as a contiguous
// block, with its parameters merged into req.Params at build time.
func (a *App) collect(req *Request) []step {
	steps := make([]step, 0, len(a.entries)+4)
	method := req.Method()
	for _, e := range a.entries {
		if l := e.layer; l != nil {
			if prefixMatches(l.prefix, req.Path) {
				steps = append(steps, step{fn: l.fn, errFn: l.errFn, sub: l.sub, prefix: l.prefix})
			}
			continue
		}
		rt := e.route
		if rt.method != method {
			continue
		}
		captured, ok := rt.m.match(req.Path)
		if !ok {
			continue
		}
		for k, v := range captured {
			req.Params[k] = v
		}
		for _, h := range rt.chain {
			steps = append(steps, step{fn: h})
		}
	}
	return steps
}

// Next advances the stack. With no argument (or nil) it clears the error
// slot and continues; with an error it enters error mode. Skipping rules:
// ordinary steps are skipped while an error is in flight, error steps are
// skipped while there is none, and mounts only run error-free.
func (s *execStack) Next(errv ...error) {
	if len(errv) > 0 && errv[0] != nil {
		s.err = errv[0]
	} else {
		s.err = nil
	}
	s.pending = true
	if s.running {
		return
	}
	s.running = true
	defer func() { s.running = false }()

	for s.pending {
		s.pending = false
		if s.cursor >= len(s.steps) {
			s.finalize()
			return
		}
		st := s.steps[s.cursor]
		s.cursor++
		switch {
		case st.sub != nil:
			if s.err != nil {
				s.pending = true
				continue
			}
			s.enter(st)
		case (s.err == nil) != (st.errFn == nil):
			// error in flight vs. handler shape mismatch; carry on
			s.pending = true
		default:
			s.invoke(st)
		}
	}
}

// invoke runs one handler, converting a panic into next(err). The net/http
// abort sentinel is re-panicked so connection teardown still works.
func (s *execStack) invoke(st step) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if r == http.ErrAbortHandler {
			panic(r)
		}
		err, ok := r.(error)
		if !ok {
			err = fmt.Errorf("%v", r)
		}
		s.err = err
		s.pending = true
	}()
	if st.errFn != nil {
		st.errFn(s.err, s.req, s.res, s.Next)
		return
	}
	st.fn(s.req, s.res, s.Next)
}

// enter delegates into a mounted sub-application with the mount prefix
// stripped from the request path. The continuation restores the path before
// the parent stack resumes; errors and recovered panics inside the
// sub-application funnel through the same continuation, so restoration
// holds on every exit.
func (s *execStack) enter(st step) {
	saved := s.req.Path
	s.req.Path = stripPrefix(st.prefix, saved)
	st.sub.dispatch(s.req, s.res, func(errv ...error) {
		s.req.Path = saved
		s.Next(errv...)
	})
}

// finalize runs when the stack is exhausted: hand off to the parent
// continuation if there is one, otherwise write the engine default: 404 for
// a clean miss, the error's status (HTTPError) or 500 with its message for
// an unconsumed error. Both defaults respect an already-sent response.
func (s *execStack) finalize() {
	if s.done != nil {
		if s.err != nil {
			s.done(s.err)
		} else {
			s.done()
		}
		return
	}
	if s.res.Sent() {
		return
	}
	if s.err == nil {
		s.res.Status(http.StatusNotFound).SendString("Not Found")
		return
	}
	code := http.StatusInternalServerError
	var he *HTTPError
	if errors.As(s.err, &he) && he.Code != 0 {
		code = he.Code
	}
	s.res.Status(code).SendString(s.err.Error())
}
