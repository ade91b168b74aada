package arena

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrBadOperator = errors.New("operator id must be a uuid")

// APIError is a non-2xx answer from the arena service.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("arena: %d: %s", e.Status, e.Detail)
}

// Client talks to the arena REST service that creates battles.
type Client struct {
	base string
	http *http.Client
	log  *zap.Logger
}

func NewClient(baseURL string, hc *http.Client, log *zap.Logger) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc, log: log}
}

type startRequest struct {
	OperatorID string `json:"operator_id"`
}

type startResponse struct {
	BattleID string `json:"battle_id"`
	Message  string `json:"message"`
}

type errorBody struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

// StartBattle asks the arena to open a battle against npcID and returns the
// battle id used for the socket.
func (c *Client) StartBattle(ctx context.Context, npcID, operatorID string) (string, error) {
	op, err := uuid.Parse(operatorID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadOperator, err)
	}
	body, err := json.Marshal(startRequest{OperatorID: op.String()})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/arena/%s/start-battle/", c.base, url.PathEscape(npcID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("start battle: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("start battle: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{Status: resp.StatusCode, Detail: detail(raw, resp.StatusCode)}
	}

	var out startResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("start battle: decode: %w", err)
	}
	if out.BattleID == "" {
		return "", errors.New("start battle: response has no battle_id")
	}
	c.log.Info("battle created", zap.String("npc_id", npcID), zap.String("battle_id", out.BattleID))
	return out.BattleID, nil
}

func detail(raw []byte, status int) string {
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil {
		if eb.Detail != "" {
			return eb.Detail
		}
		if eb.Error != "" {
			return eb.Error
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}
