package board

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"woboard/internal"
	"woboard/internal/config"
	"woboard/internal/logger"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     header,
	}
}

func testConfig() config.Config {
	return config.Config{
		MondayAPIURL:       "https://board.example.test/v2",
		MondayAPIKey:       "secret",
		MondayBoardID:      "777",
		MondayTimeoutMs:    2000,
		MondayRateLimitRPS: 1000,
		MondayRetryMax:     3,
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client := NewClient(testConfig(), logger.Nop())
	client.SetTransport(rt)
	return client
}

func decodeRequest(t *testing.T, r *http.Request) gqlRequest {
	t.Helper()
	var req gqlRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func TestMe(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "secret", r.Header.Get("Authorization"))
		assert.Equal(t, "/v2", r.URL.Path)
		assert.Equal(t, meQuery, decodeRequest(t, r).Query)
		return jsonResponse(http.StatusOK, `{"data":{"me":{"id":"42","name":"Dana Reyes","email":"dana@example.com"}}}`), nil
	})

	identity, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, internal.Identity{ID: "42", Name: "Dana Reyes", Email: "dana@example.com"}, identity)
}

func TestMeWithoutIdentity(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"data":{"me":null}}`), nil
	})

	_, err := client.Me(context.Background())
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestMeRetriesTransportError(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("connection reset")
		}
		return jsonResponse(http.StatusOK, `{"data":{"me":{"id":7,"name":"n","email":"e"}}}`), nil
	})

	identity, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "7", identity.ID)
	assert.Equal(t, 2, attempts)
}

func TestCreateItemNotRetriedAfterTransportError(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		attempts++
		return nil, errors.New("connection reset")
	})

	_, err := client.CreateItem(context.Background(), "777", "Work Order 1", map[string]any{})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryByStatus(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		readOnly bool
		attempts int
	}{
		{name: "create rate limited", status: http.StatusTooManyRequests, attempts: 2},
		{name: "create bad gateway", status: http.StatusBadGateway, attempts: 1},
		{name: "create unavailable", status: http.StatusServiceUnavailable, attempts: 1},
		{name: "create gateway timeout", status: http.StatusGatewayTimeout, attempts: 1},
		{name: "me unavailable", status: http.StatusServiceUnavailable, readOnly: true, attempts: 2},
		{name: "me gateway timeout", status: http.StatusGatewayTimeout, readOnly: true, attempts: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			attempts := 0
			client := newTestClient(t, func(*http.Request) (*http.Response, error) {
				attempts++
				if attempts == 1 {
					return jsonResponse(tc.status, `{"errors":[{"message":"try later"}]}`), nil
				}
				return jsonResponse(http.StatusOK, `{"data":{"me":{"id":"7"},"create_item":{"id":"9001"}}}`), nil
			})

			var err error
			if tc.readOnly {
				_, err = client.Me(context.Background())
			} else {
				_, err = client.CreateItem(context.Background(), "777", "Work Order 1", map[string]any{})
			}
			if tc.attempts > 1 {
				require.NoError(t, err)
			} else {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tc.status, apiErr.StatusCode)
			}
			assert.Equal(t, tc.attempts, attempts)
		})
	}
}

func TestServerErrorIsNotRetried(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		attempts++
		return jsonResponse(http.StatusInternalServerError, `{"error_message":"Internal server error","error_code":"INTERNAL"}`), nil
	})

	_, err := client.CreateItem(context.Background(), "777", "Work Order 1", map[string]any{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "INTERNAL", apiErr.Code)
	assert.Equal(t, 1, attempts)
}

func TestGraphQLErrorsBecomeAPIError(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"errors":[{"message":"Column not found"},{"message":"Invalid value"}]}`), nil
	})

	_, err := client.CreateItem(context.Background(), "777", "Work Order 1", map[string]any{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, []string{"Column not found", "Invalid value"}, apiErr.Messages)
	assert.Contains(t, apiErr.Error(), "Column not found; Invalid value")
}

func TestSubmitRecordSendsColumns(t *testing.T) {
	var sent gqlRequest
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		sent = decodeRequest(t, r)
		return jsonResponse(http.StatusOK, `{"data":{"create_item":{"id":123}}}`), nil
	})

	rec := internal.NewRecord(map[internal.Field]string{
		internal.FieldWorkOrder:     "00123",
		internal.FieldScheduledDate: "03/14/2025",
		internal.FieldAssignee:      "42",
	})
	id, err := client.SubmitRecord(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "123", id)

	assert.Equal(t, createItemMutation, sent.Query)
	assert.Equal(t, "777", sent.Variables["boardId"])
	assert.Equal(t, "Work Order 00123", sent.Variables["itemName"])

	encoded, ok := sent.Variables["columnValues"].(string)
	require.True(t, ok, "column values are sent as a JSON string")
	var cols map[string]any
	require.NoError(t, json.Unmarshal([]byte(encoded), &cols))
	assert.Equal(t, float64(123), cols[ColWONumber])
	assert.Equal(t, float64(0), cols[ColPONumber])
	assert.Equal(t, map[string]any{"date": "2025-03-14"}, cols[ColDate])
	assert.Equal(t, "N/A", cols[ColLocation])
}

func TestSubmitRecordRequiresBoard(t *testing.T) {
	cfg := testConfig()
	cfg.MondayBoardID = ""
	client := NewClient(cfg, logger.Nop())
	client.SetTransport(roundTripFunc(func(*http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	}))

	_, err := client.SubmitRecord(context.Background(), internal.NewRecord(nil))
	assert.ErrorContains(t, err, "MONDAY_BOARD_ID")
}

func TestRateLimiterHonorsContext(t *testing.T) {
	limiter := NewRateLimiter(1)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, limiter.Wait(ctx), context.Canceled)
}
