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

	"github.com/pablopedrosap/medical-ai-template/internal/domain"
)

// Compile-time checks that OpenAIClient implements the capability interfaces.
var (
	_ DocumentClassifier = (*OpenAIClient)(nil)
	_ RecordExtractor    = (*OpenAIClient)(nil)
	_ QuestionPlanner    = (*OpenAIClient)(nil)
	_ ReportSynthesizer  = (*OpenAIClient)(nil)
)

// newOpenAITestServer creates an httptest server that responds with the given handler.
func newOpenAITestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// newOpenAITestClient creates an OpenAIClient configured to use the test server.
func newOpenAITestClient(t *testing.T, serverURL string) *OpenAIClient {
	t.Helper()
	cfg := OpenAIConfig{
		APIKey:  "test-api-key",
		Model:   "gpt-5",
		BaseURL: serverURL,
	}
	return NewOpenAIClient(cfg, 10*time.Second)
}

// chatContentResponse builds a successful chat response with the given content.
func chatContentResponse(content string) chatResponse {
	return chatResponse{
		ID: "chatcmpl-abc123",
		Choices: []chatChoice{
			{
				Index:        0,
				Message:      chatMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{PromptTokens: 150, CompletionTokens: 45, TotalTokens: 195},
	}
}

func TestOpenAIClient_Classify(t *testing.T) {
	t.Run("successful classification returns typed result", func(t *testing.T) {
		var receivedReq chatRequest
		var receivedAuthHeader string

		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			receivedAuthHeader = r.Header.Get("Authorization")

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			defer r.Body.Close()
			require.NoError(t, json.Unmarshal(body, &receivedReq))

			resp := chatContentResponse(`{"category": "legal_claim", "confidence": 0.92, "reasoning": "The text argues for compensation."}`)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		})

		client := newOpenAITestClient(t, server.URL)
		result, err := client.Classify(context.Background(), "Reclamación por negligencia médica...")

		require.NoError(t, err)
		assert.Equal(t, domain.CategoryLegalClaim, result.Category)
		assert.Equal(t, 0.92, result.Confidence)
		assert.Equal(t, "The text argues for compensation.", result.Reasoning)

		// Verify request was correctly formed.
		assert.Equal(t, "Bearer test-api-key", receivedAuthHeader)
		assert.Equal(t, "gpt-5", receivedReq.Model)
		require.NotNil(t, receivedReq.Temperature)
		assert.Equal(t, 0.0, *receivedReq.Temperature)
		require.NotNil(t, receivedReq.ResponseFormat)
		assert.Equal(t, "json_object", receivedReq.ResponseFormat.Type)
		require.Len(t, receivedReq.Messages, 2)
		assert.Contains(t, receivedReq.Messages[0].Content, "medical-legal document classifier")
		assert.Contains(t, receivedReq.Messages[1].Content, "Reclamación")
	})

	t.Run("unknown category is rejected", func(t *testing.T) {
		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			resp := chatContentResponse(`{"category": "recipe", "confidence": 0.9}`)
			json.NewEncoder(w).Encode(resp)
		})

		client := newOpenAITestClient(t, server.URL)
		_, err := client.Classify(context.Background(), "text")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid classification payload")
	})

	t.Run("confidence out of range is rejected", func(t *testing.T) {
		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			resp := chatContentResponse(`{"category": "ambiguous", "confidence": 1.4}`)
			json.NewEncoder(w).Encode(resp)
		})

		client := newOpenAITestClient(t, server.URL)
		_, err := client.Classify(context.Background(), "text")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid classification payload")
	})

	t.Run("API error is typed and classified", func(t *testing.T) {
		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error": {"message": "Rate limit reached", "type": "rate_limit_error"}}`))
		})

		client := newOpenAITestClient(t, server.URL)
		_, err := client.Classify(context.Background(), "text")

		require.Error(t, err)
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, KindRateLimited, apiErr.Kind)
		assert.Equal(t, CapabilityClassification, apiErr.Capability)
		assert.Equal(t, "Rate limit reached", apiErr.Message)
		assert.True(t, apiErr.IsTransient())
	})
}

func TestOpenAIClient_Extract(t *testing.T) {
	t.Run("successful extraction returns record", func(t *testing.T) {
		var receivedReq chatRequest

		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &receivedReq))

			resp := chatContentResponse(`{
				"demographics": "62-year-old woman",
				"history": "Hypertension, type 2 diabetes",
				"episodes": [{"date": "12/03/2023", "event": "Emergency admission", "diagnosis": "Acute appendicitis", "treatment": "Laparoscopic appendectomy"}],
				"diagnoses": ["Acute appendicitis"],
				"current_status": "Recovered with residual scar pain"
			}`)
			json.NewEncoder(w).Encode(resp)
		})

		client := newOpenAITestClient(t, server.URL)
		record, err := client.Extract(context.Background(), ExtractRequest{Text: "..."})

		require.NoError(t, err)
		assert.Equal(t, "62-year-old woman", record.Demographics)
		require.Len(t, record.Episodes, 1)
		assert.Equal(t, "Laparoscopic appendectomy", record.Episodes[0].Treatment)
		assert.Equal(t, []string{"Acute appendicitis"}, record.Diagnoses)

		// Standard effort: no reasoning_effort field.
		assert.Empty(t, receivedReq.ReasoningEffort)
	})

	t.Run("high effort sets reasoning_effort", func(t *testing.T) {
		var receivedReq chatRequest

		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &receivedReq))

			resp := chatContentResponse(`{"demographics": "patient", "episodes": [], "diagnoses": []}`)
			json.NewEncoder(w).Encode(resp)
		})

		client := newOpenAITestClient(t, server.URL)
		_, err := client.Extract(context.Background(), ExtractRequest{Text: "...", HighEffort: true})

		require.NoError(t, err)
		assert.Equal(t, "high", receivedReq.ReasoningEffort)
	})

	t.Run("empty record is rejected", func(t *testing.T) {
		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			resp := chatContentResponse(`{"demographics": "", "episodes": [], "diagnoses": []}`)
			json.NewEncoder(w).Encode(resp)
		})

		client := newOpenAITestClient(t, server.URL)
		_, err := client.Extract(context.Background(), ExtractRequest{Text: "..."})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty record")
	})
}

func TestOpenAIClient_PlanQuestions(t *testing.T) {
	t.Run("returns generated questions in order", func(t *testing.T) {
		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			resp := chatContentResponse(`{"questions": ["What is the standard of care for acute appendicitis?", "What are the complication rates of laparoscopic appendectomy?"]}`)
			json.NewEncoder(w).Encode(resp)
		})

		client := newOpenAITestClient(t, server.URL)
		questions, err := client.PlanQuestions(context.Background(), QuestionRequest{
			Record:       &domain.MedicalRecord{Demographics: "62-year-old woman", Diagnoses: []string{"Acute appendicitis"}},
			MinQuestions: 10,
			MaxQuestions: 20,
		})

		require.NoError(t, err)
		require.Len(t, questions, 2)
		assert.Equal(t, "What is the standard of care for acute appendicitis?", questions[0])
	})

	t.Run("empty question list is an error", func(t *testing.T) {
		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			resp := chatContentResponse(`{"questions": []}`)
			json.NewEncoder(w).Encode(resp)
		})

		client := newOpenAITestClient(t, server.URL)
		_, err := client.PlanQuestions(context.Background(), QuestionRequest{
			Record: &domain.MedicalRecord{Demographics: "patient"},
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid question_planning payload")
	})
}

func TestOpenAIClient_Synthesize(t *testing.T) {
	t.Run("returns ordered sections", func(t *testing.T) {
		var receivedReq chatRequest

		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &receivedReq))

			resp := chatContentResponse(`{"sections": [{"title": "Clinical Course", "markdown": "The patient..."}, {"title": "Conclusions", "markdown": "In summary..."}]}`)
			json.NewEncoder(w).Encode(resp)
		})

		client := newOpenAITestClient(t, server.URL)
		result, err := client.Synthesize(context.Background(), SynthesisRequest{
			ReportType:     domain.ReportTypeExpertOpinion,
			Classification: &domain.ClassificationResult{Category: domain.CategoryMedicalDocumentation, Confidence: 0.95},
			Record:         &domain.MedicalRecord{Demographics: "62-year-old woman"},
		})

		require.NoError(t, err)
		require.Len(t, result.Sections, 2)
		assert.Equal(t, "Clinical Course", result.Sections[0].Title)
		assert.Equal(t, "Conclusions", result.Sections[1].Title)
		assert.Equal(t, 150, result.Usage.InputTokens)

		assert.Contains(t, receivedReq.Messages[0].Content, "expert opinion")
	})

	t.Run("unknown report type is rejected before the call", func(t *testing.T) {
		client := newOpenAITestClient(t, "http://localhost:0")
		_, err := client.Synthesize(context.Background(), SynthesisRequest{ReportType: "novel"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown report type")
	})

	t.Run("context cancellation stops request", func(t *testing.T) {
		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(2 * time.Second)
			w.WriteHeader(http.StatusOK)
		})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		client := newOpenAITestClient(t, server.URL)
		_, err := client.Classify(ctx, "text")

		require.Error(t, err)
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, KindTimeout, apiErr.Kind)
		assert.True(t, apiErr.IsTransient())
	})
}
