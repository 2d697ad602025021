package textgen

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		var req chatRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.Equal(t, 200, req.MaxTokens)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "say hi", req.Messages[1].Content)

		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  hello there  "}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("sk-test", server.URL+"/", "gpt-4o-mini")
	assert.Equal(t, "hello there", client.Generate(context.Background(), "say hi"))
}

func TestOpenAIClient_FallbackOnFailure(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "API error body", status: http.StatusUnauthorized, body: `{"error":{"message":"bad key"}}`},
		{name: "No choices", status: http.StatusOK, body: `{"choices":[]}`},
		{name: "Garbage", status: http.StatusOK, body: `<html>`},
		{name: "Server error", status: http.StatusInternalServerError, body: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewOpenAIClient("sk-test", server.URL, "gpt-4o-mini")
			assert.Equal(t, FallbackText, client.Generate(context.Background(), "prompt"))
		})
	}
}

func TestOpenAIClient_MissingKey(t *testing.T) {
	client := NewOpenAIClient("", "http://127.0.0.1:1", "gpt-4o-mini")
	assert.Equal(t, FallbackText, client.Generate(context.Background(), "prompt"))
}
