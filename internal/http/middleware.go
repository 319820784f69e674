package http

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/mauv0809/match-ledger/internal/ledger"
	"github.com/mauv0809/match-ledger/internal/workflow"
)

// paramsMiddleware logs the request and handles the 'verbose' query parameter.
func paramsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Info("incoming request", "method", r.Method, "url", r.URL.Path)
		// Handle 'verbose' for request-scoped verbose logging.
		if r.URL.Query().Get("verbose") == "true" {
			originalLevel := log.GetLevel()
			log.SetLevel(log.DebugLevel)
			// The level is global; concurrent requests see it raised too.
			defer log.SetLevel(originalLevel)
		}
		next.ServeHTTP(w, r)
	})
}

// modeMiddleware answers 404 for matches addressed through the other mode's
// collection.
func (s *Server) modeMiddleware(mode ledger.Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			matchID := chi.URLParam(r, "matchID")
			got, err := s.Workflow.Mode(r.Context(), chi.URLParam(r, "clubID"), matchID)
			if err != nil {
				writeError(w, err)
				return
			}
			if got != mode {
				writeError(w, fmt.Errorf("%w: no %s match %s", workflow.ErrNotFound, mode, matchID))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
