/*
 * Move Studio
 *
 * Copyright 2025 ZeroMove
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package router

import (
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi"
	"github.com/go-chi/httplog"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/zeromove/move-studio-api/server/ping"
	"github.com/zeromove/move-studio-api/server/version"
)

type Options struct {
	Debug          bool
	AllowedOrigins []string
}

// InitializeRouter mounts the project, file and pipeline endpoints along with the
// operational ones.
func InitializeRouter(h *Handlers, opts Options) *chi.Mux {
	router := chi.NewRouter()
	router.Use(sentryhttp.New(sentryhttp.Options{}).Handle)

	if opts.Debug {
		logger := httplog.NewLogger("move-studio-api", httplog.Options{Concise: true})
		router.Use(httplog.RequestLogger(logger))
	}

	router.HandleFunc("/ping", ping.Ping)
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		// Add CORS middleware around every request
		// See https://github.com/rs/cors for full option listing
		r.Use(cors.New(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"*"},
		}).Handler)
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.listProjects)
			r.Post("/", h.createProject)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getProject)
				r.Put("/", h.updateProject)
				r.Delete("/", h.deleteProject)

				r.Get("/files", h.listFiles)
				r.Post("/files", h.upsertFile)
				r.Delete("/files/{name}", h.deleteFile)
				r.Get("/sync-files", h.syncFiles)
				r.Get("/history", h.history)
			})
		})

		r.Post("/init", h.init)
		r.Post("/compile", h.compile)
		r.Post("/deploy", h.deploy)
		r.Get("/remove-movement", h.removeMovement)
		r.Get("/integration-functions", h.integrationFunctions)

		r.Get("/utils/version", version.Handler(h.CLI))
	})

	return router
}
