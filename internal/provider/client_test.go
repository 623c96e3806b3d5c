package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("openai", srv.URL, "test-key", 5*time.Second, zap.NewNop()), srv
}

func completionBody(content string, promptTokens, completionTokens int) string {
	return fmt.Sprintf(`{
		"choices": [{"message": {"content": %q}}],
		"usage": {"prompt_tokens": %d, "completion_tokens": %d}
	}`, content, promptTokens, completionTokens)
}

func TestInvokeModelFallbackOn429(t *testing.T) {
	var models []string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		models = append(models, req.Model)

		if req.Model == "primary" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, completionBody(`{"ok":true}`, 100, 20))
	})

	resp, err := client.Invoke(context.Background(), Request{
		UserPrompt: "score this",
		Models:     []string{"primary", "fallback"},
	})
	require.NoError(t, err)

	assert.Equal(t, "fallback", resp.ModelUsed)
	assert.Equal(t, 0, resp.RetryAttempts)
	assert.Equal(t, []string{"primary", "fallback"}, models)
	assert.Equal(t, 100, resp.PromptTokens)
	assert.Equal(t, 20, resp.CompletionTokens)
	assert.Equal(t, "openai", resp.Provider)
}

func TestInvokeAuthFailureIsFatal(t *testing.T) {
	requests := 0

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Invoke(context.Background(), Request{
		UserPrompt: "score this",
		Models:     []string{"primary", "fallback"},
	})
	require.Error(t, err)

	assert.True(t, IsKind(err, KindAuth))
	assert.Equal(t, 1, requests, "auth failure must not try fallback models")
	assert.NotContains(t, err.Error(), "unauthorized", "raw backend text must not leak")
}

func TestInvokeSchemaModeFallback(t *testing.T) {
	var sawSchema []bool

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		sawSchema = append(sawSchema, req.ResponseFormat != nil)

		if req.ResponseFormat != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error": {"message": "response_format is not supported for this model"}}`)
			return
		}
		fmt.Fprint(w, completionBody(`{"ok":true}`, 10, 5))
	})

	resp, err := client.Invoke(context.Background(), Request{
		UserPrompt: "score this",
		Models:     []string{"primary"},
		Schema:     json.RawMessage(`{"type":"object"}`),
		SchemaName: "match_result",
	})
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false}, sawSchema)
	assert.Equal(t, "primary", resp.ModelUsed)
	assert.Equal(t, 1, resp.RetryAttempts)
}

func TestInvokeOtherClientErrorIsFatal(t *testing.T) {
	requests := 0

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"error": {"message": "secret internal detail"}}`)
	})

	_, err := client.Invoke(context.Background(), Request{
		UserPrompt: "score this",
		Models:     []string{"primary", "fallback"},
	})
	require.Error(t, err)

	assert.True(t, IsKind(err, KindBadRequest))
	assert.Equal(t, 1, requests)
	assert.NotContains(t, err.Error(), "secret internal detail")
}

func TestInvokeAllModelsExhausted(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Invoke(context.Background(), Request{
		UserPrompt: "score this",
		Models:     []string{"a", "b"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no model produced a response")
}

func TestInvokeRequiresModelsAndPrompt(t *testing.T) {
	client := NewClient("openai", "http://localhost:0", "key", time.Second, zap.NewNop())

	_, err := client.Invoke(context.Background(), Request{UserPrompt: "x"})
	assert.Error(t, err)

	_, err = client.Invoke(context.Background(), Request{Models: []string{"m"}})
	assert.Error(t, err)
}

func TestInvokeSendsSystemAndUserMessages(t *testing.T) {
	var got chatRequest

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, completionBody("ok", 1, 1))
	})

	_, err := client.Invoke(context.Background(), Request{
		SystemPrompt:    "you are a recruiter",
		UserPrompt:      "score this",
		Models:          []string{"m"},
		Temperature:     0.3,
		MaxOutputTokens: 512,
	})
	require.NoError(t, err)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, 0.3, got.Temperature)
	assert.Equal(t, 512, got.MaxTokens)
}
