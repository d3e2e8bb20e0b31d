package app

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hangout-app/hangout/internal/config"
	log "github.com/sirupsen/logrus"
)

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies, cfg config.Application) {
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			log.Tracef("%s %s", req.Method, req.URL.Path)
			next.ServeHTTP(w, req)
		})
	})

	// Resolve the session cookie into the current user for downstream services
	r.Use(deps.AuthProvider.Middleware)
}
