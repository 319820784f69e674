package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/mauv0809/match-ledger/internal/auth"
	"github.com/mauv0809/match-ledger/internal/ledger"
	"github.com/mauv0809/match-ledger/internal/pubsub"
	"github.com/mauv0809/match-ledger/internal/workflow"
)

const maxBodyBytes = 1 << 20

type submitRequest struct {
	Format          ledger.Format `json:"format"`
	Date            string        `json:"date"`
	Location        string        `json:"location"`
	PartnerID       string        `json:"partner_id"`
	OpponentID      string        `json:"opponent_id"`
	OpponentIDs     []string      `json:"opponent_ids"`
	ScoreInitiator  int           `json:"score_initiator"`
	ScoreOpponent   int           `json:"score_opponent"`
	ClientRequestID string        `json:"client_request_id"`
}

type vetoRequest struct {
	Reason string `json:"reason"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		if s.Ping != nil {
			if err := s.Ping(r.Context()); err != nil {
				log.Error("Health check failed", "error", err)
				http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

// SubmitHandler records a new match of mode for the caller.
func (s *Server) SubmitHandler(mode ledger.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := auth.UserFromContext(r.Context())
		var body submitRequest
		if err := readJSON(w, r, &body); err != nil {
			writeError(w, err)
			return
		}
		opponents := body.OpponentIDs
		if body.OpponentID != "" {
			opponents = append([]string{body.OpponentID}, opponents...)
		}

		view, err := s.Workflow.Submit(r.Context(), workflow.SubmitRequest{
			ClubID:          chi.URLParam(r, "clubID"),
			InitiatorID:     caller,
			Mode:            mode,
			Format:          body.Format,
			Date:            body.Date,
			Location:        body.Location,
			PartnerID:       body.PartnerID,
			OpponentIDs:     opponents,
			ScoreInitiator:  body.ScoreInitiator,
			ScoreOpponent:   body.ScoreOpponent,
			ClientRequestID: body.ClientRequestID,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, view)
	}
}

func (s *Server) GetMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := auth.UserFromContext(r.Context())
		view, err := s.Workflow.Get(r.Context(), chi.URLParam(r, "clubID"), chi.URLParam(r, "matchID"), caller)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// transitionFunc is a workflow operation that takes no input besides the
// caller.
type transitionFunc func(ctx context.Context, clubID, matchID, userID string) (*workflow.MatchView, error)

// TransitionHandler runs fn for the caller on the addressed match.
func (s *Server) TransitionHandler(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := auth.UserFromContext(r.Context())
		view, err := fn(r.Context(), chi.URLParam(r, "clubID"), chi.URLParam(r, "matchID"), caller)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func (s *Server) VetoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := auth.UserFromContext(r.Context())
		var body vetoRequest
		if err := readJSON(w, r, &body); err != nil {
			writeError(w, err)
			return
		}
		view, err := s.Workflow.Veto(r.Context(), chi.URLParam(r, "clubID"), chi.URLParam(r, "matchID"), caller, body.Reason)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func (s *Server) ApprovalQueueHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := auth.UserFromContext(r.Context())
		views, err := s.Workflow.ListPendingForApproval(r.Context(), chi.URLParam(r, "clubID"), caller)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func (s *Server) PendingMatchesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := auth.UserFromContext(r.Context())
		views, err := s.Workflow.ListPending(r.Context(), caller, chi.URLParam(r, "playerID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// RecordsHandler pages through a player's finalized matches of mode. It
// accepts limit, offset and before query parameters.
func (s *Server) RecordsHandler(mode ledger.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := auth.UserFromContext(r.Context())
		q := r.URL.Query()
		req := workflow.ListFinalizedRequest{
			CallerID: caller,
			PlayerID: chi.URLParam(r, "playerID"),
			Mode:     mode,
		}
		var err error
		if req.Limit, err = intParam(q.Get("limit")); err != nil {
			writeError(w, err)
			return
		}
		if req.Offset, err = intParam(q.Get("offset")); err != nil {
			writeError(w, err)
			return
		}
		if v := q.Get("before"); v != "" {
			before, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				writeError(w, fmt.Errorf("%w: before must be an integer", workflow.ErrValidation))
				return
			}
			req.Before = &before
		}

		page, err := s.Workflow.ListFinalized(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func (s *Server) RatingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rating, err := s.Workflow.Rating(r.Context(), chi.URLParam(r, "playerID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rating)
	}
}

// PubSubPushHandler receives Pub/Sub push deliveries of match events and
// hands them to the notifiers. A non-2xx answer makes Pub/Sub redeliver.
func (s *Server) PubSubPushHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventType := pubsub.EventType(chi.URLParam(r, "event"))
		if !eventType.Valid() {
			http.Error(w, "Unknown event", http.StatusNotFound)
			return
		}

		bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			http.Error(w, "Failed to read request body", http.StatusInternalServerError)
			return
		}
		log.Debug("Received pubsub push", "event", eventType, "body", string(bodyBytes))

		var pushMsg struct {
			Subscription string `json:"subscription"`
			Message      struct {
				Data string `json:"data"` // base64-encoded MessagePack payload
			} `json:"message"`
		}
		if err := json.Unmarshal(bodyBytes, &pushMsg); err != nil {
			log.Error("Failed to unmarshal wrapper JSON", "error", err)
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		rawData, err := base64.StdEncoding.DecodeString(pushMsg.Message.Data)
		if err != nil {
			log.Error("Failed to decode base64 data", "error", err)
			http.Error(w, "Invalid base64 data", http.StatusBadRequest)
			return
		}

		var ev pubsub.MatchEvent
		decode := pubsub.Decode
		if s.PubSub != nil {
			decode = s.PubSub.ProcessMessage
		}
		if err := decode(rawData, &ev); err != nil {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		if ev.Type != eventType {
			log.Warn("Event type does not match topic", "topic", eventType, "event", ev.Type)
			http.Error(w, "Event type mismatch", http.StatusBadRequest)
			return
		}

		if err := s.Dispatcher.Dispatch(r.Context(), ev); err != nil {
			http.Error(w, "Failed to notify", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("OK"))
	}
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", workflow.ErrValidation, v)
	}
	return n, nil
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %w", workflow.ErrValidation, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}

// statusFor maps a workflow error class to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrStateConflict):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrUnratedParticipant):
		return http.StatusUnprocessableEntity
	}
	return http.StatusServiceUnavailable
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusServiceUnavailable {
		log.Error("Request failed", "error", err)
		msg = "storage unavailable, retry later"
	}
	writeJSON(w, status, errorResponse{Error: workflow.Outcome(err), Message: msg})
}
