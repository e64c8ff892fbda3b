package api

import (
	"net/http"

	service "github.com/okian/skating/internal/app"
	"github.com/okian/skating/internal/domain/model"
	"github.com/okian/skating/pkg/logger"
)

// idempotencyHeader carries the submission id when the body does not.
const idempotencyHeader = "Idempotency-Key"

type rankingRequest struct {
	SubmissionID string         `json:"submission_id" validate:"omitempty,max=128"`
	Placements   map[string]int `json:"placements" validate:"required,min=1,dive,keys,required,endkeys,gte=1"`
	TS           string         `json:"ts" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type selectionRequest struct {
	SubmissionID string   `json:"submission_id" validate:"omitempty,max=128"`
	Selected     []string `json:"selected" validate:"required,min=1,dive,required"`
	TS           string   `json:"ts" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type scoresRequest struct {
	SubmissionID string             `json:"submission_id" validate:"omitempty,max=128"`
	Scores       map[string]float64 `json:"scores" validate:"required,min=1,dive,keys,required,endkeys"`
	TS           string             `json:"ts" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	Revision  int64  `json:"revision,omitempty"`
	Queued    bool   `json:"queued"`
}

// SubmissionsHandler handles judge submissions.
type SubmissionsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewSubmissionsHandler creates a new submissions handler.
func NewSubmissionsHandler(deps Dependencies, l logger.Logger) *SubmissionsHandler {
	return &SubmissionsHandler{deps: deps, logger: l}
}

// HandleRanking handles PUT /rounds/{id}/rankings/{judge}.
func (h *SubmissionsHandler) HandleRanking(w http.ResponseWriter, r *http.Request) {
	var req rankingRequest
	if !decode(w, r, &req, false) {
		return
	}
	ack, err := h.deps.SubmitRanking(r.Context(), r.PathValue("id"), submissionID(r, req.SubmissionID), model.JudgeRanking{
		JudgeID:    r.PathValue("judge"),
		Placements: req.Placements,
		TS:         parseTS(req.TS),
	})
	h.respond(w, r, ack, err)
}

// HandleSelection handles PUT /rounds/{id}/selections/{judge}.
func (h *SubmissionsHandler) HandleSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !decode(w, r, &req, false) {
		return
	}
	ack, err := h.deps.SubmitSelection(r.Context(), r.PathValue("id"), submissionID(r, req.SubmissionID), model.JudgeSelection{
		JudgeID:  r.PathValue("judge"),
		Selected: req.Selected,
		TS:       parseTS(req.TS),
	})
	h.respond(w, r, ack, err)
}

// HandleScores handles PUT /rounds/{id}/scores/{judge}/{performance}.
func (h *SubmissionsHandler) HandleScores(w http.ResponseWriter, r *http.Request) {
	var req scoresRequest
	if !decode(w, r, &req, false) {
		return
	}
	ack, err := h.deps.SubmitScores(r.Context(), r.PathValue("id"), submissionID(r, req.SubmissionID), model.ScoreSet{
		PerformanceID: r.PathValue("performance"),
		JudgeID:       r.PathValue("judge"),
		Scores:        req.Scores,
		TS:            parseTS(req.TS),
	})
	h.respond(w, r, ack, err)
}

func (h *SubmissionsHandler) respond(w http.ResponseWriter, r *http.Request, ack service.Ack, err error) {
	if err != nil {
		if status, _ := classify(err); status >= http.StatusInternalServerError {
			h.logger.Error(r.Context(), "submission failed",
				logger.String("round_id", r.PathValue("id")),
				logger.String("judge_id", r.PathValue("judge")),
				logger.Error(err),
			)
		}
		writeDomainError(w, err)
		return
	}
	if ack.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Revision: ack.Revision, Queued: ack.Queued})
}

func submissionID(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return r.Header.Get(idempotencyHeader)
}
