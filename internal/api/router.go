// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/cityofrecipes/internal/auth"
	"github.com/tomtom215/cityofrecipes/internal/authz"
	"github.com/tomtom215/cityofrecipes/internal/middleware"
)

// Router wires handlers to routes.
type Router struct {
	handler       *Handler
	authn         *auth.Middleware
	authz         *authz.Middleware
	chiMiddleware *ChiMiddleware
	websocket     http.Handler
}

// RouterDeps groups the Router's collaborators. WebSocket may be nil, in
// which case /api/v1/ws is not mounted.
type RouterDeps struct {
	Handler       *Handler
	Authenticator *auth.Middleware
	Enforcer      *authz.Enforcer
	Middleware    *ChiMiddlewareConfig
	WebSocket     http.Handler
}

// NewRouter creates a Router.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		handler:       deps.Handler,
		authn:         deps.Authenticator,
		authz:         authz.NewMiddleware(deps.Enforcer, writeAccessError),
		chiMiddleware: NewChiMiddleware(deps.Middleware),
		websocket:     deps.WebSocket,
	}
}

// AccessErrorWriter renders auth failures in the API envelope. Pass it to
// auth.NewMiddleware.
func AccessErrorWriter() auth.ErrorWriter {
	return writeAccessError
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.SecurityHeaders)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	h := router.handler

	r.Get("/health/live", h.HealthLive)
	r.Get("/health/ready", h.HealthReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if router.websocket != nil {
			r.Handle("/ws", router.websocket)
		}

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit("api"))

			r.Get("/contests/active", h.ListActiveContests)
			r.Get("/contests/finished", h.ListFinishedContests)
			r.Get("/contests/by-slug/{slug}", h.GetContestBySlug)
			r.Get("/contests/by-recipe/{recipeId}", h.ContestsByRecipe)
			r.Get("/contests/available-for-recipe/{recipeId}", h.AvailableContests)
			r.Get("/contests/{id}", h.GetContest)
			r.Get("/contests/{id}/recipes", h.ContestRecipes)
			r.Get("/recipes/{id}", h.GetRecipe)
			r.Get("/categories", h.ListCategories)

			r.Group(func(r chi.Router) {
				r.Use(router.authn.Authenticate)

				r.With(router.authorize(authz.ObjectContestEntries, authz.ActionCreate)).
					Post("/contests/{id}/recipes/{recipeId}", h.Enroll)
				r.With(router.authorize(authz.ObjectRecipes, authz.ActionCreate)).
					Post("/recipes", h.CreateRecipe)
				r.With(router.authorize(authz.ObjectRatings, authz.ActionCreate)).
					Post("/recipes/{id}/ratings", h.RateRecipe)

				r.With(router.authorize(authz.ObjectContests, authz.ActionCreate)).
					Post("/contests", h.CreateContest)
				r.With(router.authorize(authz.ObjectContests, authz.ActionFinalize)).
					Post("/contests/{id}/finalize", h.FinalizeContest)
				r.With(router.authorize(authz.ObjectCategories, authz.ActionCreate)).
					Post("/categories", h.CreateCategory)
				r.With(router.authorize(authz.ObjectUsers, authz.ActionCreate)).
					Post("/users", h.CreateUser)
			})
		})
	})

	return r
}

func (router *Router) authorize(object, action string) func(http.Handler) http.Handler {
	return router.authz.Authorize(object, action)
}
