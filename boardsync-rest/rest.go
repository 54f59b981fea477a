// Package boardsyncrest provides the HTTP surface around the realtime
// channel: CORS, panic recovery, request-scoped logging, and the health
// endpoint.
package boardsyncrest

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	boardsynccli "github.com/openboard/boardsync/boardsync-cli"
)

func Middlewares(service boardsynccli.Service, routes chi.Router, allowedOrigins []string) chi.Router {
	routes.Use(
		withCORS(allowedOrigins),
		withLogger(boardsynccli.Logger(service)),
		middleware.Recoverer,
	)
	return routes
}

func Webserver(service boardsynccli.Service, routes chi.Router) error {
	logger := boardsynccli.Logger(service)
	logger.Info().Int("port", boardsynccli.CommonOpts.Port).Msg("starting http server")
	addr := fmt.Sprintf(":%v", boardsynccli.CommonOpts.Port)
	return http.ListenAndServe(addr, routes)
}

// Health reports liveness; boards are in-memory so there is no dependency to
// probe beyond the process itself.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"healthy"}`)
	}
}

func withCORS(allowedOrigins []string) func(next http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	})
}

func withLogger(logger zerolog.Logger) func(handler http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := logger.WithContext(req.Context())
			req = req.WithContext(ctx)
			handler.ServeHTTP(w, req)
		})
	}
}
