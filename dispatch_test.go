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

package bilby_test

import (
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	b "github.com/jrgalyan/bilby"
)

var _ = Describe("App dispatch", func() {
	It("runs layers and the route chain exactly once, in registration order", func() {
		app := b.New()
		order := []string{}
		app.Use(func(req *b.Request, res *b.Response, next b.Next) { order = append(order, "mw1"); next() })
		app.Use(func(req *b.Request, res *b.Response, next b.Next) { order = append(order, "mw2"); next() })
		app.GET("/inventory",
			func(req *b.Request, res *b.Response, next b.Next) { order = append(order, "h1"); next() },
			func(req *b.Request, res *b.Response, next b.Next) { order = append(order, "h2"); res.SendString("ok") },
		)

		rr := httptest.NewRecorder()
		app.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/inventory", nil))

		Expect(rr.Code).To(Equal(http.StatusOK))
		Expect(order).To(Equal([]string{"mw1", "mw2", "h1", "h2"}))
	})

	It("scopes layers to their prefix at a path boundary", func() {
		app := b.New()
		var hits []string
		app.UseAt("/admin", func(req *b.Request, res *b.Response, next b.Next) { hits = append(hits, "admin"); next() })
		app.GET("/adminton", func(req *b.Request, res *b.Response, next b.Next) { res.SendString("no prefix hit") })
		app.GET("/admin/users", func(req *b.Request, res *b.Response, next b.Next) { res.SendString("prefixed") })

		rr := httptest.NewRecorder()
		app.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/adminton", nil))
		Expect(hits).To(BeEmpty())

		rr = httptest.NewRecorder()
		app.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/users", nil))
		Expect(hits).To(Equal([]string{"admin"}))
	})

	It("responds 404 Not Found when the stack is exhausted without an error", func() {
		app := b.New()
		app.GET("/known", func(req *b.Request, res *b.Response, next b.Next) { res.End() })

		rr := httptest.NewRecorder()
		app.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing", nil))

		Expect(rr.Code).To(Equal(http.StatusNotFound))
		Expect(rr.Body.String()).To(Equal("Not Found"))
	})

	It("responds 500 with the error message when no error handler consumed it", func() {
		app := b.New()
		app.GET("/boom", func(req *b.Request, res *b.Response, next b.Next) { next(errors.New("kaput")) })

		rr := httptest.NewRecorder()
		app.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

		Expect(rr.Code).To(Equal(http.StatusInternalServerError))
		Expect(rr.Body.String()).To(Equal("kaput"))
	})

	It("honors the status carried by an HTTPError", func() {
		app := b.New()
		app.GET("/teapot", func(req *b.Request, res *b.Response, next b.Next) {
			next(&b.HTTPError{Code: http.StatusTeapot, Message: "short and stout"})
		})

		rr := httptest.NewRecorder()
		app.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/teapot", nil))

		Expect(rr.Code).To(Equal(http.StatusTeapot))
		Expect(rr.Body.String()).To(Equal("short and stout"))
	})

	It("skips ordinary handlers while an error is in flight and resumes after next()", func() {
		app := b.New()
		var trace []string
		app.Use(func(req *b.Request, res *b.Response, next b.Next) { trace = append(trace, "before"); next() })
		app.GET("/x", func(req *b.Request, res *b.Response, next b.Next) {
			trace = append(trace, "raise")
			next(errors.New("bad"))
		})
		app.GET("/x", func(req *b.Request, res *b.Response, next b.Next) {
			trace = append(trace, "skipped")
			next()
		})
		app.UseError(func(err error, req *b.Request, res *b.Response, next b.Next) {
			trace = append(trace, "caught:"+err.Error())
			res.Status(http.StatusBadRequest).SendString("handled")
		})

		rr := httptest.NewRecorder()
		app.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

		Expect(rr.Code).To(Equal(http.StatusBadRequest))
		Expect(rr.Body.String()).To(Equal("handled"))
		Expect(trace).To(Equal([]string{"before", "raise", "caught:bad"}))
	})

	It("treats a panicking handler like one that called next with the panic error", func() {
		app := b.New()
		sum := errors.New("thrown")
		var caught error
		app.GET("/panic", func(req *b.Request, res *b.Response, next b.Next) { panic(sum) })
		app.UseError(func(err error, req *b.Request, res *b.Response, next b.Next) {
			caught = err
			res.Status(http.StatusInternalServerError).SendString("recovered")
		})

		rr := httptest.NewRecorder()
		app.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/panic", nil))

		Expect(rr.Code).To(Equal(http.StatusInternalServerError))
		Expect(rr.Body.String()).To(Equal("recovered"))
		Expect(caught).To(Equal(sum))
	})

	It("wraps non-error panic values", func() {
		app := b.New()
		app.GET("/panic", func(req *b.Request, res *b.Response, next b.Next) { panic("boom") })

		rr := httptest.NewRecorder()
		app.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/panic", nil))

		Expect(rr.Code).To(Equal(http.StatusInternalServerError))
		Expect(rr.Body.String()).To(Equal("boom"))
	})

	It("skips error handlers during ordinary dispatch", func() {
		app := b.New()
		var errRan bool
		app.UseError(func(err error, req *b.Request, res *b.Response, next b.Next) { errRan = true; next() })
		app.GET("/fine", func(req *b.Request, res *b.Response, next b.Next) { res.SendString("fine") })

		rr := httptest.NewRecorder()
		app.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/fine", nil))

		Expect(rr.Body.String()).To(Equal("fine"))
		Expect(errRan).To(BeFalse())
	})

	It("lets an error handler resume normal flow with a bare next()", func() {
		app := b.New()
		var resumed bool
		app.Use(func(req *b.Request, res *b.Response, next b.Next) { next(errors.New("transient")) })
		app.UseError(func(err error, req *b.Request, res *b.Response, next b.Next) { next() })
		app.Use(func(req *b.Request, res *b.Response, next b.Next) { resumed = true; res.End() })

		rr := httptest.NewRecorder()
		app.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rr.Code).To(Equal(http.StatusOK))
		Expect(resumed).To(BeTrue())
	})

	It("rewrites the path inside a mount and restores it for later siblings", func() {
		app := b.New()
		var insidePath, siblingPath string

		api := b.NewRouter()
		api.GET("/inventory", func(req *b.Request, res *b.Response, next b.Next) {
			insidePath = req.Path
			next()
		})

		app.Mount("/v1", api)
		app.Use(func(req *b.Request, res *b.Response, next b.Next) {
			siblingPath = req.Path
			res.SendString("done")
		})

		rr := httptest.NewRecorder()
		app.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/inventory", nil))

		Expect(rr.Body.String()).To(Equal("done"))
		Expect(insidePath).To(Equal("/inventory"))
		Expect(siblingPath).To(Equal("/v1/inventory"))
	})

	It("restores the path when a mounted route raises an error", func() {
		app := b.New()
		var errPath string

		api := b.NewRouter()
		api.GET("/leads", func(req *b.Request, res *b.Response, next b.Next) { next(errors.New("db down")) })
		app.Mount("/v1", api)
		app.UseError(func(err error, req *b.Request, res *b.Response, next b.Next) {
			errPath = req.Path
			res.Status(http.StatusBadGateway).SendString(err.Error())
		})

		rr := httptest.NewRecorder()
		app.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/leads", nil))

		Expect(rr.Code).To(Equal(http.StatusBadGateway))
		Expect(rr.Body.String()).To(Equal("db down"))
		Expect(errPath).To(Equal("/v1/leads"))
	})

	It("does not enter a mount for paths outside its prefix", func() {
		app := b.New()
		var entered bool
		api := b.NewRouter()
		api.Use(func(req *b.Request, res *b.Response, next b.Next) { entered = true; next() })
		app.Mount("/v1", api)

		rr := httptest.NewRecorder()
		app.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v2/other", nil))

		Expect(rr.Code).To(Equal(http.StatusNotFound))
		Expect(entered).To(BeFalse())
	})

	It("panics on nil handler at registration time", func() {
		app := b.New()
		Expect(func() { app.GET("/bad", nil) }).To(PanicWith("bilby: nil handler"))
		Expect(func() { app.Use(nil) }).To(PanicWith("bilby: nil handler"))
	})
})
