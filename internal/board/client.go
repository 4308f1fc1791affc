package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"woboard/internal"
	"woboard/internal/config"
)

var (
	ErrNoIdentity = errors.New("board returned no user identity")
	ErrNoItemID   = errors.New("board returned no item id")
)

const (
	meQuery = `query { me { id name email } }`

	createItemMutation = `mutation ($boardId: ID!, $itemName: String!, $columnValues: JSON!) {
  create_item (board_id: $boardId, item_name: $itemName, column_values: $columnValues) { id }
}`
)

// APIError is a failed board call: a non-2xx status, GraphQL errors, or both.
type APIError struct {
	StatusCode int
	Code       string
	Messages   []string
}

func (e *APIError) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("board api error: status=%d code=%s: %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("board api error: status=%d: %s", e.StatusCode, msg)
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
	ErrorMessage string `json:"error_message"`
	ErrorCode    string `json:"error_code"`
}

type Client struct {
	cfg     config.Config
	http    *resty.Client
	limiter *RateLimiter
	log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	c := &Client{
		cfg:     cfg,
		limiter: NewRateLimiter(cfg.MondayRateLimitRPS),
		log:     log.With().Str("component", "board").Logger(),
	}
	c.http = resty.New().
		SetTimeout(time.Duration(cfg.MondayTimeoutMs)*time.Millisecond).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("Authorization", cfg.MondayAPIKey).
		SetRetryCount(max(cfg.MondayRetryMax, 0)).
		SetRetryWaitTime(250 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetLogger(restyLogger{log: c.log})

	c.http.AddRetryCondition(retryCondition)
	c.http.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		return c.limiter.Wait(r.Context())
	})
	c.http.OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
		c.log.Debug().
			Int("status", r.StatusCode()).
			Int("attempt", r.Request.Attempt).
			Dur("elapsed", r.Time()).
			Msg("board response")
		return nil
	})
	return c
}

// SetTransport swaps the HTTP transport; tests use it to fake the API.
func (c *Client) SetTransport(rt http.RoundTripper) {
	c.http.SetTransport(rt)
}

// Me returns the identity behind the API key.
func (c *Client) Me(ctx context.Context) (internal.Identity, error) {
	var data struct {
		Me *struct {
			ID    json.Number `json:"id"`
			Name  string      `json:"name"`
			Email string      `json:"email"`
		} `json:"me"`
	}
	if err := c.do(withReadOnly(ctx), gqlRequest{Query: meQuery}, &data); err != nil {
		return internal.Identity{}, err
	}
	if data.Me == nil || data.Me.ID.String() == "" {
		return internal.Identity{}, ErrNoIdentity
	}
	return internal.Identity{ID: data.Me.ID.String(), Name: data.Me.Name, Email: data.Me.Email}, nil
}

// CreateItem adds one item to a board and returns its id. Only rate-limit
// rejections are retried.
func (c *Client) CreateItem(ctx context.Context, boardID, itemName string, columns map[string]any) (string, error) {
	encoded, err := json.Marshal(columns)
	if err != nil {
		return "", err
	}

	var data struct {
		CreateItem *struct {
			ID json.Number `json:"id"`
		} `json:"create_item"`
	}
	req := gqlRequest{
		Query: createItemMutation,
		Variables: map[string]any{
			"boardId":      boardID,
			"itemName":     itemName,
			"columnValues": string(encoded),
		},
	}
	if err := c.do(ctx, req, &data); err != nil {
		return "", err
	}
	if data.CreateItem == nil || data.CreateItem.ID.String() == "" {
		return "", ErrNoItemID
	}
	return data.CreateItem.ID.String(), nil
}

// SubmitRecord creates the item for a record on the configured board.
func (c *Client) SubmitRecord(ctx context.Context, rec internal.Record) (string, error) {
	if err := c.cfg.RequireBoard(); err != nil {
		return "", err
	}
	return c.CreateItem(ctx, c.cfg.MondayBoardID, ItemName(rec), ColumnValues(rec))
}

func (c *Client) do(ctx context.Context, body gqlRequest, out any) error {
	if err := c.cfg.Require("MONDAY_API_KEY", c.cfg.MondayAPIKey); err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(c.cfg.MondayAPIURL)
	if err != nil {
		return fmt.Errorf("board request failed: %w", err)
	}

	// Decode only the final attempt's body.
	var payload gqlResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil && resp.IsSuccess() {
		return fmt.Errorf("decode board response: %w", err)
	}
	if apiErr := toAPIError(resp.StatusCode(), payload); apiErr != nil {
		return apiErr
	}
	if out == nil || len(payload.Data) == 0 {
		return nil
	}
	return json.Unmarshal(payload.Data, out)
}

func toAPIError(status int, payload gqlResponse) *APIError {
	messages := make([]string, 0, len(payload.Errors)+1)
	for _, e := range payload.Errors {
		if e.Message != "" {
			messages = append(messages, e.Message)
		}
	}
	if payload.ErrorMessage != "" {
		messages = append(messages, payload.ErrorMessage)
	}
	if status >= 200 && status < 300 && len(messages) == 0 && payload.ErrorCode == "" {
		return nil
	}
	return &APIError{StatusCode: status, Code: payload.ErrorCode, Messages: messages}
}

type readOnlyKey struct{}

// withReadOnly marks a request as safe to repeat after a transport error.
func withReadOnly(ctx context.Context) context.Context {
	return context.WithValue(ctx, readOnlyKey{}, true)
}

func isReadOnly(ctx context.Context) bool {
	v, _ := ctx.Value(readOnlyKey{}).(bool)
	return v
}

func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		if r == nil || r.Request == nil {
			return false
		}
		ctx := r.Request.Context()
		return ctx.Err() == nil && isReadOnly(ctx)
	}
	if r == nil {
		return false
	}
	readOnly := r.Request != nil && isReadOnly(r.Request.Context())
	return isRetryableStatus(r.StatusCode(), readOnly)
}

// isRetryableStatus retries 429 for every request and gateway errors for
// read-only requests only.
func isRetryableStatus(status int, readOnly bool) bool {
	switch status {
	case http.StatusTooManyRequests:
		return true
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return readOnly
	default:
		return false
	}
}

type restyLogger struct {
	log zerolog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) { l.log.Error().Msgf(format, v...) }
func (l restyLogger) Warnf(format string, v ...any)  { l.log.Warn().Msgf(format, v...) }
func (l restyLogger) Debugf(format string, v ...any) { l.log.Debug().Msgf(format, v...) }
