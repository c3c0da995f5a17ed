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
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	b "github.com/jrgalyan/bilby"
)

func postWith(app *b.App, contentType, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/inventory", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	app.ServeHTTP(rr, req)
	return rr
}

var _ = Describe("Body parsers", func() {
	Describe("JSONParser", func() {
		It("decodes a JSON body and runs the route exactly once", func() {
			app := b.New()
			app.Use(b.JSONParser(b.BodyParserConfig{Limit: "1mb"}))
			var calls int
			var body any
			app.POST("/inventory", func(req *b.Request, res *b.Response, next b.Next) {
				calls++
				body = req.Body
				res.Status(http.StatusCreated).End()
			})

			rr := postWith(app, "application/json", `{"name":"Unit A"}`)

			Expect(rr.Code).To(Equal(http.StatusCreated))
			Expect(calls).To(Equal(1))
			Expect(body).To(Equal(map[string]any{"name": "Unit A"}))
		})

		It("decodes an empty body to an empty map", func() {
			app := b.New()
			app.Use(b.JSONParser(b.BodyParserConfig{}))
			var body any
			app.POST("/inventory", func(req *b.Request, res *b.Response, next b.Next) {
				body = req.Body
				res.End()
			})

			postWith(app, "application/json", "")
			Expect(body).To(Equal(map[string]any{}))
		})

		It("skips non-matching content types", func() {
			app := b.New()
			app.Use(b.JSONParser(b.BodyParserConfig{}))
			var body any = "untouched"
			app.POST("/inventory", func(req *b.Request, res *b.Response, next b.Next) {
				body = req.Body
				res.End()
			})

			postWith(app, "text/plain", `{"name":"Unit A"}`)
			Expect(body).To(BeNil())
		})

		It("respects charset parameters on the content type", func() {
			app := b.New()
			app.Use(b.JSONParser(b.BodyParserConfig{}))
			var body any
			app.POST("/inventory", func(req *b.Request, res *b.Response, next b.Next) {
				body = req.Body
				res.End()
			})

			postWith(app, "application/json; charset=utf-8", `{"ok":true}`)
			Expect(body).To(Equal(map[string]any{"ok": true}))
		})

		It("raises a 400 error for malformed JSON instead of panicking", func() {
			app := b.New()
			app.Use(b.JSONParser(b.BodyParserConfig{}))
			var routeRan bool
			app.POST("/inventory", func(req *b.Request, res *b.Response, next b.Next) {
				routeRan = true
				res.End()
			})
			var caught error
			app.UseError(func(err error, req *b.Request, res *b.Response, next b.Next) {
				caught = err
				next(err)
			})

			rr := postWith(app, "application/json", `{"name":`)

			Expect(rr.Code).To(Equal(http.StatusBadRequest))
			Expect(routeRan).To(BeFalse())
			Expect(caught).To(HaveOccurred())
		})

		It("destroys the connection when the body exceeds the limit", func() {
			app := b.New()
			app.Use(b.JSONParser(b.BodyParserConfig{Limit: "16"}))
			var routeRan bool
			app.POST("/inventory", func(req *b.Request, res *b.Response, next b.Next) {
				routeRan = true
				res.End()
			})

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/inventory", strings.NewReader(`{"name":"way past the limit"}`))
			req.Header.Set("Content-Type", "application/json")

			Expect(func() { app.ServeHTTP(rr, req) }).To(PanicWith(http.ErrAbortHandler))
			Expect(routeRan).To(BeFalse())
		})

		It("does not re-parse a body another parser already consumed", func() {
			app := b.New()
			app.Use(b.JSONParser(b.BodyParserConfig{}), b.JSONParser(b.BodyParserConfig{}))
			var body any
			app.POST("/inventory", func(req *b.Request, res *b.Response, next b.Next) {
				body = req.Body
				res.End()
			})

			postWith(app, "application/json", `{"n":1}`)
			Expect(body).To(Equal(map[string]any{"n": float64(1)}))
		})

		It("panics at registration time on a bad limit", func() {
			Expect(func() { b.JSONParser(b.BodyParserConfig{Limit: "many"}) }).To(Panic())
		})
	})

	Describe("URLEncodedParser", func() {
		It("decodes pairs and coalesces repeated keys into a slice", func() {
			app := b.New()
			app.Use(b.URLEncodedParser(b.BodyParserConfig{}))
			var body any
			app.POST("/inventory", func(req *b.Request, res *b.Response, next b.Next) {
				body = req.Body
				res.End()
			})

			postWith(app, "application/x-www-form-urlencoded", "name=Unit+A&tag=new&tag=featured")

			Expect(body).To(Equal(map[string]any{
				"name": "Unit A",
				"tag":  []string{"new", "featured"},
			}))
		})

		It("percent-decodes keys and values", func() {
			app := b.New()
			app.Use(b.URLEncodedParser(b.BodyParserConfig{}))
			var body any
			app.POST("/inventory", func(req *b.Request, res *b.Response, next b.Next) {
				body = req.Body
				res.End()
			})

			postWith(app, "application/x-www-form-urlencoded", "note=50%25%20off")
			Expect(body).To(Equal(map[string]any{"note": "50% off"}))
		})

		It("raises a 400 error for an undecodable pair", func() {
			app := b.New()
			app.Use(b.URLEncodedParser(b.BodyParserConfig{}))
			app.POST("/inventory", func(req *b.Request, res *b.Response, next b.Next) { res.End() })

			rr := postWith(app, "application/x-www-form-urlencoded", "bad=%zz")
			Expect(rr.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
