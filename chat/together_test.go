package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTogetherClient_Complete(t *testing.T) {
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"Moisturize daily."}}]}`))
	}))
	defer srv.Close()

	c := NewTogetherClient(srv.URL+"/v1/", "key", srv.Client())
	reply, err := c.Complete(context.Background(), Request{
		Model:    "meta-llama/Llama-3-8b-chat-hf",
		Messages: Conversation("hi", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, "Moisturize daily.", reply)
	assert.Equal(t, "meta-llama/Llama-3-8b-chat-hf", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
}

func TestTogetherClient_Errors(t *testing.T) {
	tests := []struct {
		description string
		status      int
		body        string
		kind        error
		message     string
	}{
		{"nested error object", 401, `{"error":{"message":"Invalid API key provided","type":"invalid_request_error"}}`, ErrUnauthorized, "Invalid API key provided"},
		{"string error", 429, `{"error":"rate limit exceeded"}`, ErrRateLimited, "rate limit exceeded"},
		{"top level message", 400, `{"message":"model not found"}`, ErrUpstream, "model not found"},
		{"plain text", 503, "service unavailable", ErrUpstream, "service unavailable"},
		{"no choices", 200, `{"choices":[]}`, ErrEmptyResponse, "no choices"},
		{"empty content", 200, `{"choices":[{"index":0,"message":{"role":"assistant","content":""}}]}`, ErrEmptyResponse, "empty content"},
		{"bad json", 200, `{"choices":`, ErrUpstream, "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewTogetherClient(srv.URL, "key", srv.Client()).Complete(context.Background(), Request{Model: "m"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestTogetherClient_MissingKey(t *testing.T) {
	_, err := NewTogetherClient("http://127.0.0.1:0", "", nil).Complete(context.Background(), Request{Model: "m"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestTogetherClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewTogetherClient(srv.URL, "key", srv.Client()).Complete(ctx, Request{Model: "m"})
	assert.ErrorIs(t, err, ErrTimeout)
}
