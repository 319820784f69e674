package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mauv0809/match-ledger/internal/auth"
	"github.com/mauv0809/match-ledger/internal/ledger"
	"github.com/mauv0809/match-ledger/internal/notifier"
	"github.com/mauv0809/match-ledger/internal/pubsub"
	"github.com/mauv0809/match-ledger/internal/workflow"
)

// Server exposes the workflow over HTTP.
type Server struct {
	Workflow       *workflow.Service
	MetricsHandler http.Handler
	Validator      auth.Validator
	// PubSub decodes pushed events. When nil they are decoded directly.
	PubSub     pubsub.PubSubClient
	Dispatcher *notifier.Dispatcher
	// Ping reports whether the storage backend is reachable.
	Ping        func(ctx context.Context) error
	CORSOrigins []string
	Router      chi.Router
}

// Options are the collaborators of a Server.
type Options struct {
	Workflow       *workflow.Service
	MetricsHandler http.Handler
	Validator      auth.Validator
	PubSub         pubsub.PubSubClient
	Dispatcher     *notifier.Dispatcher
	Ping           func(ctx context.Context) error
	CORSOrigins    []string
}

func NewServer(opts Options) *Server {
	server := &Server{
		Workflow:       opts.Workflow,
		MetricsHandler: opts.MetricsHandler,
		Validator:      opts.Validator,
		PubSub:         opts.PubSub,
		Dispatcher:     opts.Dispatcher,
		Ping:           opts.Ping,
		CORSOrigins:    opts.CORSOrigins,
		Router:         chi.NewRouter(),
	}
	if server.Dispatcher == nil {
		server.Dispatcher = notifier.NewDispatcher()
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	r := s.Router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	if len(s.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}
	r.Use(paramsMiddleware)

	if s.MetricsHandler != nil {
		r.Handle("/metrics", s.MetricsHandler)
	}
	r.Get("/health", s.HealthCheckHandler())
	r.Post("/pubsub/{event}", s.PubSubPushHandler())

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.Validator))

		r.Route("/clubs/{clubID}", func(r chi.Router) {
			r.Post("/pending_matches", s.SubmitHandler(ledger.ModeSingles))
			r.Post("/pending_doubles", s.SubmitHandler(ledger.ModeDoubles))
			r.Get("/pending_approvals", s.ApprovalQueueHandler())
			collections := map[string]ledger.Mode{
				"/pending_matches/{matchID}": ledger.ModeSingles,
				"/pending_doubles/{matchID}": ledger.ModeDoubles,
			}
			for collection, mode := range collections {
				r.Route(collection, func(r chi.Router) {
					r.Use(s.modeMiddleware(mode))
					r.Get("/", s.GetMatchHandler())
					r.Post("/confirm", s.TransitionHandler(s.Workflow.Confirm))
					r.Post("/reject", s.TransitionHandler(s.Workflow.Reject))
					r.Post("/cancel", s.TransitionHandler(s.Workflow.Cancel))
					r.Post("/approve", s.TransitionHandler(s.Workflow.Approve))
					r.Post("/finalize", s.TransitionHandler(s.Workflow.Finalize))
					r.Post("/veto", s.VetoHandler())
				})
			}
		})

		r.Route("/players/{playerID}", func(r chi.Router) {
			r.Get("/pending_matches", s.PendingMatchesHandler())
			r.Get("/records", s.RecordsHandler(ledger.ModeSingles))
			r.Get("/doubles_records", s.RecordsHandler(ledger.ModeDoubles))
			r.Get("/rating", s.RatingHandler())
		})
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
