// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/time/rate"

	service "github.com/okian/skating/internal/app"
	"github.com/okian/skating/internal/adapters/repository"
	"github.com/okian/skating/internal/domain/model"
	"github.com/okian/skating/internal/domain/ranking"
	"github.com/okian/skating/internal/domain/types"
	"github.com/okian/skating/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CreateRound(ctx context.Context, spec service.RoundSpec) (model.Round, error)
	GetRound(ctx context.Context, roundID string) (model.Round, error)
	AllocateHeats(ctx context.Context, roundID string, heatSize int, seed int64) (model.Round, error)
	CompleteHeat(ctx context.Context, roundID string, number int) (model.Heat, error)
	CloseRound(ctx context.Context, roundID string) (types.Result, error)
	Result(ctx context.Context, roundID string) (types.Result, error)

	SubmitRanking(ctx context.Context, roundID, submissionID string, r model.JudgeRanking) (service.Ack, error)
	SubmitSelection(ctx context.Context, roundID, submissionID string, sel model.JudgeSelection) (service.Ack, error)
	SubmitScores(ctx context.Context, roundID, submissionID string, set model.ScoreSet) (service.Ack, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	roundsHandler      *RoundsHandler
	submissionsHandler *SubmissionsHandler

	submitLimit rate.Limit
	submitBurst int
	logger      logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		submitLimit:   rate.Inf,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	s.roundsHandler = NewRoundsHandler(deps, s.logger)
	s.submissionsHandler = NewSubmissionsHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	limit := RateLimitMiddleware(s.submitLimit, s.submitBurst)
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	route("GET /metrics", "metrics", s.healthHandler.HandleMetrics)
	route("GET /stats", "stats", s.statsHandler.HandleStats)

	route("POST /rounds", "create_round", s.roundsHandler.HandleCreate)
	route("GET /rounds/{id}", "get_round", s.roundsHandler.HandleGet)
	route("POST /rounds/{id}/heats", "allocate_heats", s.roundsHandler.HandleAllocateHeats)
	route("POST /rounds/{id}/heats/{number}/complete", "complete_heat", s.roundsHandler.HandleCompleteHeat)
	route("GET /rounds/{id}/result", "result", s.roundsHandler.HandleResult)
	route("POST /rounds/{id}/close", "close_round", s.roundsHandler.HandleClose)

	route("PUT /rounds/{id}/rankings/{judge}", "submit_ranking", limit(s.submissionsHandler.HandleRanking))
	route("PUT /rounds/{id}/selections/{judge}", "submit_selection", limit(s.submissionsHandler.HandleSelection))
	route("PUT /rounds/{id}/scores/{judge}/{performance}", "submit_scores", limit(s.submissionsHandler.HandleScores))
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates errors from the service into status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, repository.ErrHeatNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrRoundExists):
		return http.StatusConflict, "round_exists"
	case errors.Is(err, repository.ErrRoundClosed),
		errors.Is(err, repository.ErrResultFrozen):
		return http.StatusConflict, "round_closed"
	case errors.Is(err, service.ErrWrongKind):
		return http.StatusConflict, "wrong_kind"
	case errors.Is(err, service.ErrInvalidRound),
		errors.Is(err, service.ErrInvalidSubmission),
		errors.Is(err, service.ErrUnknownParticipant),
		errors.Is(err, service.ErrUnknownParameter),
		errors.Is(err, ranking.ErrInvalidPlacement),
		errors.Is(err, ranking.ErrDuplicatePlacement),
		errors.Is(err, ranking.ErrDuplicateParticipant),
		errors.Is(err, ranking.ErrInvalidHeatSize),
		errors.Is(err, ranking.ErrInvalidSelection),
		errors.Is(err, ranking.ErrInvalidScore),
		errors.Is(err, ranking.ErrInvalidScoreSet):
		return http.StatusUnprocessableEntity, "invalid_submission"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
