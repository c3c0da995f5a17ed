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

// Package bilby provides a minimal, Express-style HTTP dispatch engine built on top of net/http.
//
// Unlike a conventional Go router, handlers receive an explicit continuation:
// calling next() passes control to the remaining middleware and route
// handlers, while next(err) diverts dispatch to the nearest error handler.
// Middleware layers and routes execute strictly in registration order, and
// sub‑applications can be mounted under a path prefix with the prefix
// stripped for the duration of the nested dispatch.
//
// It focuses on:
//   - Ordered middleware layers with error short‑circuiting
//   - Pattern routes with :name parameters compiled once at registration
//   - A chainable Response type (Status, Set, Type, JSON, Send, Cookie, SendFile)
//   - Size‑limited streaming body parsers, static file serving, and CORS
//
// Getting started:
//
//	app := bilby.New()
//	app.Use(bilby.Logger(bilby.LoggerConfig{}), bilby.JSONParser(bilby.BodyParserConfig{}))
//	app.GET("/inventory/:id", func(req *bilby.Request, res *bilby.Response, next bilby.Next) {
//		res.JSON(map[string]string{"id": req.Params["id"]})
//	})
//
//	srv := bilby.NewServer(bilby.ServerConfig{Addr: ":8080"}, app, nil)
//	_ = srv.Start()
//
// The package is framework‑agnostic and container‑friendly; import it and wire it in your service.
package bilby
