package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/orrery/internal/testutil"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	TopP        float32 `json:"top_p"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func reply(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     "cmpl-1",
		"object": "chat.completion",
		"model":  "test",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
}

func fail(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":{"message":"upstream said no","type":"server_error"}}`))
}

func newTestClient(url string, retries int) *OpenAIClient {
	c := NewOpenAIClient(Config{BaseURL: url, APIKey: "k", Model: "test-model", Retries: retries, Timeout: 2 * time.Second}, testutil.Logger())
	c.backoff = 10 * time.Millisecond
	return c
}

func TestOpenAIClient_Generate(t *testing.T) {
	var got chatRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		headers = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&got)
		reply(w, "hello")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	text, err := c.Generate(context.Background(), Request{Prompt: "say hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	assert.Equal(t, "test-model", got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 1e-6)
	assert.Equal(t, 2048, got.MaxTokens)
	assert.InDelta(t, 0.9, got.TopP, 1e-6)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "say hi", got.Messages[0].Content)
	assert.Equal(t, "Orrery Notes", headers.Get("X-Title"))
	assert.NotEmpty(t, headers.Get("HTTP-Referer"))
	assert.Equal(t, "Bearer k", headers.Get("Authorization"))
}

func TestOpenAIClient_RequestOverrides(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		reply(w, "ok")
	}))
	defer srv.Close()

	temp := float32(0.3)
	maxTokens := 300
	_, err := newTestClient(srv.URL, 0).Generate(context.Background(), Request{Prompt: "p", Temperature: &temp, MaxTokens: &maxTokens})
	require.NoError(t, err)
	assert.InDelta(t, 0.3, got.Temperature, 1e-6)
	assert.Equal(t, 300, got.MaxTokens)
}

func TestOpenAIClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			fail(w, http.StatusBadGateway)
			return
		}
		reply(w, "third time")
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL, 2).Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "third time", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenAIClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fail(w, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).Generate(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIClient_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := newTestClient(srv.URL, 3).Generate(ctx, Request{Prompt: "p"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 0).Generate(context.Background(), Request{Prompt: "p"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
