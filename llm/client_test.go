package llm_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghazi-f/ai-kanban/llm"
	_ "github.com/ghazi-f/ai-kanban/llm/providers"
)

const chatResponse = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"model": "test-model",
	"choices": [
		{"index": 0, "message": {"role": "assistant", "content": "hello"}, "finish_reason": "stop"}
	],
	"usage": {"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7}
}`

func fastRetry() llm.RetryConfig {
	return llm.RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        time.Millisecond,
	}
}

func TestCompleteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(chatResponse))
	}))
	defer srv.Close()

	client, err := llm.NewClient([]llm.Endpoint{
		{Provider: "ollama", URL: srv.URL, Model: "test-model"},
	}, llm.WithRetryConfig(fastRetry()))
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
}

func TestCompleteRequiresMessages(t *testing.T) {
	client, err := llm.NewClient([]llm.Endpoint{{Provider: "ollama", Model: "m"}})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), llm.Request{})
	assert.Error(t, err)
}

func TestCompleteRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(chatResponse))
	}))
	defer srv.Close()

	client, err := llm.NewClient([]llm.Endpoint{
		{Provider: "ollama", URL: srv.URL, Model: "test-model"},
	}, llm.WithRetryConfig(fastRetry()))
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompleteFatalErrorStopsImmediately(t *testing.T) {
	var primaryCalls, fallbackCalls atomic.Int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer primary.Close()
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallbackCalls.Add(1)
		w.Write([]byte(chatResponse))
	}))
	defer fallback.Close()

	client, err := llm.NewClient([]llm.Endpoint{
		{Provider: "ollama", URL: primary.URL, Model: "primary"},
		{Provider: "ollama", URL: fallback.URL, Model: "fallback"},
	}, llm.WithRetryConfig(fastRetry()))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
	assert.Equal(t, int32(1), primaryCalls.Load(), "auth errors are not retried")
	assert.Equal(t, int32(0), fallbackCalls.Load(), "fatal errors skip fallbacks")
}

func TestCompleteFallsBackOnExhaustedRetries(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer primary.Close()
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatResponse))
	}))
	defer fallback.Close()

	client, err := llm.NewClient([]llm.Endpoint{
		{Provider: "ollama", URL: primary.URL, Model: "primary"},
		{Provider: "ollama", URL: fallback.URL, Model: "fallback"},
	}, llm.WithRetryConfig(fastRetry()))
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
}

func TestNewClientRequiresEndpoints(t *testing.T) {
	_, err := llm.NewClient(nil)
	assert.Error(t, err)
}
