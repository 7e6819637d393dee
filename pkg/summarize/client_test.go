package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New("test-key")
	c.BaseURL = srv.URL
	return c
}

func TestSummarizeSuccess(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "a short summary"}},
			},
		})
	})

	out, err := c.Summarize(context.Background(), "long document text")
	require.NoError(t, err)
	assert.Equal(t, "a short summary", out)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, Model, gotReq.Model)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[0].Content, "Summarize the following text:")
	assert.Contains(t, gotReq.Messages[0].Content, "long document text")
}

func TestSummarizeServiceError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	_, err := c.Summarize(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestSummarizeEmptyChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})
	_, err := c.Summarize(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestSummarizeTransportError(t *testing.T) {
	c := New("test-key")
	c.BaseURL = "http://127.0.0.1:1" // nothing listens here
	_, err := c.Summarize(context.Background(), "text")
	require.Error(t, err)
}

func TestSummarizeContextCancel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Summarize(ctx, "text")
	require.Error(t, err)
}
