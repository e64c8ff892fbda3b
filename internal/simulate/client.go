package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"time"
)

// Wire shapes of the scoring API, limited to what the simulator reads.
type (
	heat struct {
		Number       int      `json:"number"`
		Participants []string `json:"participants"`
		Selected     []string `json:"selected"`
	}
	round struct {
		ID    string `json:"id"`
		Heats []heat `json:"heats"`
	}
	standing struct {
		Position      int     `json:"position"`
		ParticipantID string  `json:"participant_id"`
		Score         float64 `json:"score"`
		DecidedBy     string  `json:"decided_by"`
	}
	result struct {
		RoundID   string     `json:"round_id"`
		Revision  int64      `json:"revision"`
		Final     bool       `json:"final"`
		Standings []standing `json:"standings"`
		Advancing []string   `json:"advancing"`
	}
	ack struct {
		Status    string `json:"status"`
		Duplicate bool   `json:"duplicate"`
		Revision  int64  `json:"revision"`
	}
	apiError struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
)

// Client talks to the scoring API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, want ...int) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if !slices.Contains(want, resp.StatusCode) {
		var apiErr apiError
		_ = json.Unmarshal(data, &apiErr)
		return fmt.Errorf("%w: %s %s: status %d %s %s", ErrUnexpected, method, path, resp.StatusCode, apiErr.Code, apiErr.Message)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

// Health checks that the service answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK)
}

// CreateRound creates a round and returns it.
func (c *Client) CreateRound(ctx context.Context, id, competitionID, kind string, participants []string, topN int) (round, error) {
	var out round
	err := c.do(ctx, http.MethodPost, "/rounds", map[string]any{
		"id":             id,
		"competition_id": competitionID,
		"kind":           kind,
		"participants":   participants,
		"top_n":          topN,
	}, &out, http.StatusCreated)
	return out, err
}

// AllocateHeats draws the round into heats.
func (c *Client) AllocateHeats(ctx context.Context, roundID string, heatSize int, seed int64) (round, error) {
	var out round
	err := c.do(ctx, http.MethodPost, "/rounds/"+roundID+"/heats",
		map[string]any{"heat_size": heatSize, "seed": seed}, &out, http.StatusOK)
	return out, err
}

// CompleteHeat marks a heat as judged.
func (c *Client) CompleteHeat(ctx context.Context, roundID string, number int) (heat, error) {
	var out heat
	err := c.do(ctx, http.MethodPost, "/rounds/"+roundID+"/heats/"+strconv.Itoa(number)+"/complete",
		nil, &out, http.StatusOK)
	return out, err
}

// SubmitSelection sends one judge's picks.
func (c *Client) SubmitSelection(ctx context.Context, roundID, judgeID, submissionID string, selected []string) (ack, error) {
	var out ack
	err := c.do(ctx, http.MethodPut, "/rounds/"+roundID+"/selections/"+judgeID, map[string]any{
		"submission_id": submissionID,
		"selected":      selected,
	}, &out, http.StatusAccepted, http.StatusOK)
	return out, err
}

// SubmitRanking sends one judge's placements.
func (c *Client) SubmitRanking(ctx context.Context, roundID, judgeID, submissionID string, placements map[string]int) (ack, error) {
	var out ack
	err := c.do(ctx, http.MethodPut, "/rounds/"+roundID+"/rankings/"+judgeID, map[string]any{
		"submission_id": submissionID,
		"placements":    placements,
	}, &out, http.StatusAccepted, http.StatusOK)
	return out, err
}

// Result reads the current result of a round.
func (c *Client) Result(ctx context.Context, roundID string) (result, error) {
	var out result
	err := c.do(ctx, http.MethodGet, "/rounds/"+roundID+"/result", nil, &out, http.StatusOK)
	return out, err
}

// Close closes a round and returns its final result.
func (c *Client) Close(ctx context.Context, roundID string) (result, error) {
	var out result
	err := c.do(ctx, http.MethodPost, "/rounds/"+roundID+"/close", nil, &out, http.StatusOK)
	return out, err
}
