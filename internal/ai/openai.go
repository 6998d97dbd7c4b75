package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pablopedrosap/medical-ai-template/internal/domain"
)

// Default values for the OpenAI provider.
const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-5"
)

// chatRequest represents the OpenAI Chat Completions API request body.
type chatRequest struct {
	Model           string          `json:"model"`
	Messages        []chatMessage   `json:"messages"`
	Temperature     *float64        `json:"temperature,omitempty"`
	ReasoningEffort string          `json:"reasoning_effort,omitempty"`
	MaxTokens       int             `json:"max_completion_tokens,omitempty"`
	ResponseFormat  *responseFormat `json:"response_format,omitempty"`
}

// chatMessage represents a single message in the chat conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// responseFormat specifies the output format for the API response.
type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse represents the OpenAI Chat Completions API response body.
type chatResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// chatChoice represents a single completion choice.
type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// chatUsage contains token usage information.
type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// openAIErrorResponse represents an error response from the OpenAI API.
type openAIErrorResponse struct {
	Error openAIErrorDetail `json:"error"`
}

// openAIErrorDetail contains error details from the OpenAI API.
type openAIErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// OpenAIClient implements DocumentClassifier, RecordExtractor,
// QuestionPlanner, and ReportSynthesizer using the OpenAI Chat Completions
// API with JSON response format.
type OpenAIClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

// OpenAIConfig holds the parameters needed to create an OpenAI client.
// This is defined in the ai package to avoid importing the config package.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the model identifier (e.g., "gpt-5").
	Model string
	// BaseURL is the API base URL (empty means default).
	BaseURL string
}

// NewOpenAIClient creates a new OpenAI client for classification,
// extraction, question planning, and synthesis.
//
// Each invocation is a single attempt; retries belong to the resilient
// caller.
func NewOpenAIClient(cfg OpenAIConfig, timeout time.Duration) *OpenAIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	if timeout <= 0 {
		timeout = 300 * time.Second
	}

	return &OpenAIClient{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
	}
}

// Model returns the model identifier being used.
func (c *OpenAIClient) Model() string {
	return c.model
}

// classificationPayload is the expected JSON structure from classification.
type classificationPayload struct {
	Category   string  `json:"category" validate:"required,oneof=medical_documentation legal_claim ambiguous"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// Classify classifies the merged document text into one of the closed
// categories. Classification runs at temperature 0 so repeated runs over
// the same corpus agree.
func (c *OpenAIClient) Classify(ctx context.Context, text string) (*domain.ClassificationResult, error) {
	systemPrompt, userPrompt := BuildClassificationPrompt(text)

	zero := 0.0
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    &zero,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	content, _, err := c.doChat(ctx, CapabilityClassification, req)
	if err != nil {
		return nil, err
	}

	var payload classificationPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("openai: failed to parse classification response: %w", err)
	}
	if err := validatePayload("openai", CapabilityClassification, payload); err != nil {
		return nil, err
	}

	return &domain.ClassificationResult{
		Category:   domain.ClassificationCategory(payload.Category),
		Confidence: payload.Confidence,
		Reasoning:  payload.Reasoning,
	}, nil
}

// recordPayload is the expected JSON structure from extraction.
type recordPayload struct {
	Demographics  string `json:"demographics"`
	History       string `json:"history"`
	Episodes      []struct {
		Date      string `json:"date"`
		Event     string `json:"event"`
		Diagnosis string `json:"diagnosis"`
		Treatment string `json:"treatment"`
	} `json:"episodes"`
	Diagnoses     []string `json:"diagnoses"`
	CurrentStatus string   `json:"current_status"`
}

// Extract extracts the structured medical record from the merged text.
// HighEffort requests the provider's high reasoning effort for complex
// corpora; the standard effort is used otherwise.
func (c *OpenAIClient) Extract(ctx context.Context, extractReq ExtractRequest) (*domain.MedicalRecord, error) {
	systemPrompt, userPrompt := BuildExtractionPrompt(extractReq.Text)

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	if extractReq.HighEffort {
		req.ReasoningEffort = "high"
	}

	content, _, err := c.doChat(ctx, CapabilityExtraction, req)
	if err != nil {
		return nil, err
	}

	var payload recordPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("openai: failed to parse extraction response: %w", err)
	}

	record := &domain.MedicalRecord{
		Demographics:  payload.Demographics,
		History:       payload.History,
		Diagnoses:     payload.Diagnoses,
		CurrentStatus: payload.CurrentStatus,
	}
	for _, ep := range payload.Episodes {
		record.Episodes = append(record.Episodes, domain.Episode{
			Date:      ep.Date,
			Event:     ep.Event,
			Diagnosis: ep.Diagnosis,
			Treatment: ep.Treatment,
		})
	}

	if record.IsEmpty() {
		return nil, fmt.Errorf("openai: extraction returned an empty record")
	}

	return record, nil
}

// questionsPayload is the expected JSON structure from question planning.
type questionsPayload struct {
	Questions []string `json:"questions" validate:"min=1"`
}

// PlanQuestions generates clinical questions from the extracted record.
func (c *OpenAIClient) PlanQuestions(ctx context.Context, planReq QuestionRequest) ([]string, error) {
	systemPrompt, userPrompt := BuildQuestionPrompt(planReq)

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	content, _, err := c.doChat(ctx, CapabilityQuestionPlanning, req)
	if err != nil {
		return nil, err
	}

	var payload questionsPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("openai: failed to parse question planning response: %w", err)
	}
	if err := validatePayload("openai", CapabilityQuestionPlanning, payload); err != nil {
		return nil, err
	}

	return payload.Questions, nil
}

// sectionsPayload is the expected JSON structure from synthesis.
type sectionsPayload struct {
	Sections []struct {
		Title    string `json:"title" validate:"required"`
		Markdown string `json:"markdown" validate:"required"`
	} `json:"sections" validate:"min=1,dive"`
}

// Synthesize produces the narrative report sections for the selected type.
func (c *OpenAIClient) Synthesize(ctx context.Context, synthReq SynthesisRequest) (*SynthesisResult, error) {
	systemPrompt, userPrompt, err := BuildSynthesisPrompt(synthReq)
	if err != nil {
		return nil, err
	}

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	content, usage, err := c.doChat(ctx, CapabilitySynthesis, req)
	if err != nil {
		return nil, err
	}

	var payload sectionsPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("openai: failed to parse synthesis response: %w", err)
	}
	if err := validatePayload("openai", CapabilitySynthesis, payload); err != nil {
		return nil, err
	}

	result := &SynthesisResult{
		Model: c.model,
		Usage: usage,
	}
	for _, s := range payload.Sections {
		result.Sections = append(result.Sections, domain.ReportSection{
			Title:    s.Title,
			Markdown: s.Markdown,
		})
	}

	return result, nil
}

// doChat performs a single API request to the Chat Completions endpoint and
// returns the first choice's content.
func (c *OpenAIClient) doChat(ctx context.Context, capability string, chatReq chatRequest) (string, Usage, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return "", Usage{}, fmt.Errorf("openai: failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", Usage{}, fmt.Errorf("openai: failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", Usage{}, wrapTransportError(capability, "openai", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", Usage{}, fmt.Errorf("openai: failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", Usage{}, parseOpenAIAPIError(capability, resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", Usage{}, fmt.Errorf("openai: failed to unmarshal response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", Usage{}, &Error{
			Capability: capability,
			Provider:   "openai",
			Kind:       KindProvider,
			StatusCode: resp.StatusCode,
			Message:    "empty choices in response",
		}
	}

	usage := Usage{
		InputTokens:  chatResp.Usage.PromptTokens,
		OutputTokens: chatResp.Usage.CompletionTokens,
	}
	return chatResp.Choices[0].Message.Content, usage, nil
}

// parseOpenAIAPIError parses an OpenAI API error from the response status
// code and body.
func parseOpenAIAPIError(capability string, statusCode int, body []byte) *Error {
	apiErr := &Error{
		Capability: capability,
		Provider:   "openai",
		Kind:       kindFromStatus(statusCode),
		StatusCode: statusCode,
		Message:    string(body),
	}

	var errResp openAIErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
	}

	return apiErr
}
