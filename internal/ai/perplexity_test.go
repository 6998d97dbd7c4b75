package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time check that PerplexityClient implements LiteratureSearcher.
var _ LiteratureSearcher = (*PerplexityClient)(nil)

func newPerplexityTestClient(t *testing.T, serverURL string) *PerplexityClient {
	t.Helper()
	cfg := PerplexityConfig{
		APIKey:  "test-api-key",
		Model:   "sonar-pro",
		BaseURL: serverURL,
	}
	return NewPerplexityClient(cfg, 10*time.Second)
}

func TestPerplexityClient_Search(t *testing.T) {
	t.Run("successful search returns answer and citations", func(t *testing.T) {
		var receivedReq perplexityRequest
		var receivedAuthHeader string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			receivedAuthHeader = r.Header.Get("Authorization")

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			defer r.Body.Close()
			require.NoError(t, json.Unmarshal(body, &receivedReq))

			resp := perplexityResponse{
				ID: "ppl-abc123",
				Choices: []chatChoice{
					{
						Index:        0,
						Message:      chatMessage{Role: "assistant", Content: "Current guidelines recommend..."},
						FinishReason: "stop",
					},
				},
				SearchResults: []perplexitySearchResult{
					{Title: "Appendicitis management guidelines", URL: "https://example.org/guideline", Date: "2024-03-01"},
					{Title: "Laparoscopic outcomes meta-analysis", URL: "https://example.org/meta", Date: "2023-11-15"},
				},
				Usage: chatUsage{PromptTokens: 80, CompletionTokens: 200},
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}))
		t.Cleanup(server.Close)

		client := newPerplexityTestClient(t, server.URL)
		result, err := client.Search(context.Background(), "What is the standard of care for acute appendicitis?")

		require.NoError(t, err)
		assert.Equal(t, "Current guidelines recommend...", result.Answer)
		require.Len(t, result.Citations, 2)
		assert.Equal(t, "Appendicitis management guidelines", result.Citations[0].Title)
		assert.Equal(t, "https://example.org/guideline", result.Citations[0].URL)
		assert.Equal(t, "sonar-pro", result.Model)
		assert.Equal(t, 200, result.Usage.OutputTokens)

		// Verify request was correctly formed.
		assert.Equal(t, "Bearer test-api-key", receivedAuthHeader)
		assert.Equal(t, "sonar-pro", receivedReq.Model)
		require.Len(t, receivedReq.Messages, 2)
		assert.Contains(t, receivedReq.Messages[0].Content, "medical literature researcher")
		assert.Equal(t, "What is the standard of care for acute appendicitis?", receivedReq.Messages[1].Content)
	})

	t.Run("empty question is rejected without a call", func(t *testing.T) {
		client := newPerplexityTestClient(t, "http://localhost:0")
		_, err := client.Search(context.Background(), "")

		require.Error(t, err)
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, KindInvalidRequest, apiErr.Kind)
	})

	t.Run("rate limit response is transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error": {"message": "Too many requests", "type": "rate_limit"}}`))
		}))
		t.Cleanup(server.Close)

		client := newPerplexityTestClient(t, server.URL)
		_, err := client.Search(context.Background(), "question")

		require.Error(t, err)
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, KindRateLimited, apiErr.Kind)
		assert.Equal(t, CapabilityLiteratureSearch, apiErr.Capability)
		assert.True(t, apiErr.IsTransient())
	})

	t.Run("empty answer is a provider error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resp := perplexityResponse{
				Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: ""}}},
			}
			json.NewEncoder(w).Encode(resp)
		}))
		t.Cleanup(server.Close)

		client := newPerplexityTestClient(t, server.URL)
		_, err := client.Search(context.Background(), "question")

		require.Error(t, err)
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, KindProvider, apiErr.Kind)
	})
}
