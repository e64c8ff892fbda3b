package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	service "github.com/okian/skating/internal/app"
	"github.com/okian/skating/internal/domain/model"
	"github.com/okian/skating/pkg/logger"
)

type createRoundRequest struct {
	ID            string   `json:"id" validate:"omitempty,max=128"`
	CompetitionID string   `json:"competition_id" validate:"omitempty,max=128"`
	Kind          string   `json:"kind" validate:"required,roundkind"`
	Participants  []string `json:"participants" validate:"unique,dive,required,max=128"`
	TopN          int      `json:"top_n" validate:"gte=0"`
	ParameterIDs  []string `json:"parameter_ids" validate:"unique,dive,required,max=128"`
}

type allocateHeatsRequest struct {
	HeatSize int   `json:"heat_size" validate:"gte=0"`
	Seed     int64 `json:"seed"`
}

type heatResponse struct {
	ID           string   `json:"id"`
	Number       int      `json:"number"`
	Participants []string `json:"participants"`
	Completed    bool     `json:"completed"`
	Selected     []string `json:"selected,omitempty"`
}

type roundResponse struct {
	ID            string         `json:"id"`
	CompetitionID string         `json:"competition_id,omitempty"`
	Kind          string         `json:"kind"`
	Participants  []string       `json:"participants"`
	TopN          int            `json:"top_n,omitempty"`
	ParameterIDs  []string       `json:"parameter_ids,omitempty"`
	Heats         []heatResponse `json:"heats,omitempty"`
	Closed        bool           `json:"closed"`
	CreatedAt     time.Time      `json:"created_at"`
}

func toHeatResponse(h model.Heat) heatResponse {
	out := heatResponse{
		ID:           h.ID,
		Number:       h.Number,
		Participants: h.Participants,
		Completed:    h.Completed,
		Selected:     h.Selected,
	}
	if out.Participants == nil {
		out.Participants = []string{}
	}
	return out
}

func toRoundResponse(r model.Round) roundResponse {
	out := roundResponse{
		ID:            r.ID,
		CompetitionID: r.CompetitionID,
		Kind:          string(r.Kind),
		Participants:  r.Participants,
		TopN:          r.TopN,
		ParameterIDs:  r.ParameterIDs,
		Closed:        r.Closed,
		CreatedAt:     r.CreatedAt,
	}
	if out.Participants == nil {
		out.Participants = []string{}
	}
	for _, h := range r.Heats {
		out.Heats = append(out.Heats, toHeatResponse(h))
	}
	return out
}

// RoundsHandler handles round lifecycle and result requests.
type RoundsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewRoundsHandler creates a new rounds handler.
func NewRoundsHandler(deps Dependencies, l logger.Logger) *RoundsHandler {
	return &RoundsHandler{deps: deps, logger: l}
}

// HandleCreate handles POST /rounds.
func (h *RoundsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRoundRequest
	if !decode(w, r, &req, false) {
		return
	}
	round, err := h.deps.CreateRound(r.Context(), service.RoundSpec{
		ID:            req.ID,
		CompetitionID: req.CompetitionID,
		Kind:          model.RoundKind(req.Kind),
		Participants:  req.Participants,
		TopN:          req.TopN,
		ParameterIDs:  req.ParameterIDs,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Location", "/rounds/"+round.ID)
	writeJSON(w, http.StatusCreated, toRoundResponse(round))
}

// HandleGet handles GET /rounds/{id}.
func (h *RoundsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	round, err := h.deps.GetRound(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoundResponse(round))
}

// HandleAllocateHeats handles POST /rounds/{id}/heats. The body is optional.
func (h *RoundsHandler) HandleAllocateHeats(w http.ResponseWriter, r *http.Request) {
	var req allocateHeatsRequest
	if !decode(w, r, &req, true) {
		return
	}
	round, err := h.deps.AllocateHeats(r.Context(), r.PathValue("id"), req.HeatSize, req.Seed)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoundResponse(round))
}

// HandleCompleteHeat handles POST /rounds/{id}/heats/{number}/complete.
func (h *RoundsHandler) HandleCompleteHeat(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: heat number must be a positive integer", ErrBadRequest))
		return
	}
	heat, err := h.deps.CompleteHeat(r.Context(), r.PathValue("id"), number)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHeatResponse(heat))
}

// HandleResult handles GET /rounds/{id}/result.
func (h *RoundsHandler) HandleResult(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Result(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logIfInternal(r, "result", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleClose handles POST /rounds/{id}/close.
func (h *RoundsHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.CloseRound(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logIfInternal(r, "close", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *RoundsHandler) logIfInternal(r *http.Request, op string, err error) {
	if status, _ := classify(err); status < http.StatusInternalServerError {
		return
	}
	if errors.Is(err, service.ErrNotStarted) {
		return
	}
	h.logger.Error(r.Context(), "round request failed",
		logger.String("op", op),
		logger.String("round_id", r.PathValue("id")),
		logger.Error(err),
	)
}
