package jx3box

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibin/jx3-item-bot/config"
	"github.com/vibin/jx3-item-bot/internal/core/domain"
	"github.com/vibin/jx3-item-bot/internal/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.DefaultConfig().ItemSearch
	cfg.SearchURL = server.URL + "/api/wiki/item/search"
	return NewClient(&cfg, logger.Discard()), server
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestSearchItemsSendsExpectedQuery(t *testing.T) {
	var calls int32
	var got url.Values
	var path string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		got = r.URL.Query()
		path = r.URL.Path
		jsonHandler(http.StatusOK, `{"code":200,"data":{"list":[]}}`)(w, r)
	})

	outcome := client.SearchItems(context.Background(), "沧海间")
	require.True(t, outcome.OK())

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "/api/wiki/item/search", path)
	assert.Equal(t, "沧海间", got.Get("keyword"))
	assert.Equal(t, "1", got.Get("page"))
	assert.Equal(t, "5", got.Get("per"))
}

func TestSearchItemsOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind domain.OutcomeKind
		wantMsg  string
		wantLen  int
	}{
		{
			name:     "empty list",
			status:   http.StatusOK,
			body:     `{"code":200,"data":{"list":[]}}`,
			wantKind: domain.OutcomeSuccess,
		},
		{
			name:     "items",
			status:   http.StatusOK,
			body:     `{"code":200,"data":{"list":[{"id":"123","name":"N","desc":"D"},{"id":456,"name":"M"}]}}`,
			wantKind: domain.OutcomeSuccess,
			wantLen:  2,
		},
		{
			name:     "api error with message",
			status:   http.StatusOK,
			body:     `{"code":500,"msg":"bad keyword"}`,
			wantKind: domain.OutcomeAPIError,
			wantMsg:  "bad keyword",
		},
		{
			name:     "api error without message",
			status:   http.StatusOK,
			body:     `{"code":403}`,
			wantKind: domain.OutcomeAPIError,
			wantMsg:  "未知错误",
		},
		{
			name:     "missing data",
			status:   http.StatusOK,
			body:     `{"code":200}`,
			wantKind: domain.OutcomeUnexpectedError,
		},
		{
			name:     "null data",
			status:   http.StatusOK,
			body:     `{"code":200,"data":null}`,
			wantKind: domain.OutcomeUnexpectedError,
		},
		{
			name:     "missing list",
			status:   http.StatusOK,
			body:     `{"code":200,"data":{}}`,
			wantKind: domain.OutcomeUnexpectedError,
		},
		{
			name:     "missing code",
			status:   http.StatusOK,
			body:     `{"data":{"list":[]}}`,
			wantKind: domain.OutcomeUnexpectedError,
		},
		{
			name:     "malformed json",
			status:   http.StatusOK,
			body:     `<html>oops</html>`,
			wantKind: domain.OutcomeUnexpectedError,
		},
		{
			name:     "wrong item shape",
			status:   http.StatusOK,
			body:     `{"code":200,"data":{"list":[{"id":{"x":1}}]}}`,
			wantKind: domain.OutcomeUnexpectedError,
		},
		{
			name:     "server error status",
			status:   http.StatusBadGateway,
			body:     `{"code":200,"data":{"list":[]}}`,
			wantKind: domain.OutcomeNetworkError,
		},
		{
			name:     "not found status",
			status:   http.StatusNotFound,
			body:     `not found`,
			wantKind: domain.OutcomeNetworkError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, jsonHandler(tt.status, tt.body))

			outcome := client.SearchItems(context.Background(), "test")

			assert.Equal(t, tt.wantKind, outcome.Kind)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, outcome.Message)
			}
			if tt.wantKind == domain.OutcomeSuccess {
				assert.Len(t, outcome.Items, tt.wantLen)
			} else if tt.wantKind != domain.OutcomeAPIError {
				assert.Error(t, outcome.Err)
			}
		})
	}
}

func TestSearchItemsDecodesFields(t *testing.T) {
	client, _ := newTestClient(t, jsonHandler(http.StatusOK,
		`{"code":200,"data":{"list":[{"id":"123","name":"N","desc":"D"},{"id":null}]}}`))

	outcome := client.SearchItems(context.Background(), "N")
	require.True(t, outcome.OK())
	require.Len(t, outcome.Items, 2)

	assert.Equal(t, domain.Item{ID: "123", Name: "N", Description: "D"}, outcome.Items[0])
	assert.Equal(t, domain.Item{}, outcome.Items[1])
}

func TestSearchItemsTimeout(t *testing.T) {
	release := make(chan struct{})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	client.httpClient.Timeout = 50 * time.Millisecond

	outcome := client.SearchItems(context.Background(), "slow")

	assert.Equal(t, domain.OutcomeNetworkError, outcome.Kind)
	assert.Error(t, outcome.Err)
}

func TestSearchItemsConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	cfg := config.DefaultConfig().ItemSearch
	cfg.SearchURL = addr + "/api/wiki/item/search"
	client := NewClient(&cfg, logger.Discard())

	outcome := client.SearchItems(context.Background(), "anything")
	assert.Equal(t, domain.OutcomeNetworkError, outcome.Kind)
}

func TestNewClientUsesConfiguredTimeout(t *testing.T) {
	cfg := config.DefaultConfig().ItemSearch
	client := NewClient(&cfg, logger.Discard())
	assert.Equal(t, 10*time.Second, client.httpClient.Timeout)

	custom := &http.Client{Timeout: time.Second}
	client = NewClient(&cfg, logger.Discard(), WithHTTPClient(custom))
	assert.Same(t, custom, client.httpClient)
}
