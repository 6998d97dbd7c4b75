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

// Default values for the Perplexity provider.
const (
	defaultPerplexityBaseURL = "https://api.perplexity.ai"
	defaultPerplexityModel   = "sonar-pro"
)

// perplexityRequest represents the Perplexity chat completions request body.
// The API is Chat Completions compatible with additional search fields on
// the response.
type perplexityRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// perplexityResponse represents the Perplexity chat completions response.
type perplexityResponse struct {
	ID            string                   `json:"id"`
	Choices       []chatChoice             `json:"choices"`
	SearchResults []perplexitySearchResult `json:"search_results"`
	Usage         chatUsage                `json:"usage"`
}

// perplexitySearchResult is one web source consulted for the answer.
type perplexitySearchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Date  string `json:"date"`
}

// PerplexityClient implements LiteratureSearcher using the Perplexity
// search-grounded chat API.
type PerplexityClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

// PerplexityConfig holds the parameters needed to create a Perplexity client.
// This is defined in the ai package to avoid importing the config package.
type PerplexityConfig struct {
	// APIKey is the Perplexity API key.
	APIKey string
	// Model is the model identifier (e.g., "sonar-pro").
	Model string
	// BaseURL is the API base URL (empty means default).
	BaseURL string
}

// NewPerplexityClient creates a new Perplexity literature search client.
//
// Each invocation is a single attempt; retries belong to the resilient
// caller, and request pacing to the concurrency gate.
func NewPerplexityClient(cfg PerplexityConfig, timeout time.Duration) *PerplexityClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultPerplexityBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultPerplexityModel
	}

	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &PerplexityClient{
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
func (c *PerplexityClient) Model() string {
	return c.model
}

// Search answers one clinical question against current medical literature.
func (c *PerplexityClient) Search(ctx context.Context, question string) (*SearchResult, error) {
	if question == "" {
		return nil, &Error{
			Capability: CapabilityLiteratureSearch,
			Provider:   "perplexity",
			Kind:       KindInvalidRequest,
			Message:    "empty question",
		}
	}

	systemPrompt, userPrompt := BuildLiteraturePrompt(question)

	searchReq := perplexityRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	body, err := json.Marshal(searchReq)
	if err != nil {
		return nil, fmt.Errorf("perplexity: failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("perplexity: failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, wrapTransportError(CapabilityLiteratureSearch, "perplexity", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("perplexity: failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parsePerplexityAPIError(resp.StatusCode, respBody)
	}

	var searchResp perplexityResponse
	if err := json.Unmarshal(respBody, &searchResp); err != nil {
		return nil, fmt.Errorf("perplexity: failed to unmarshal response: %w", err)
	}

	if len(searchResp.Choices) == 0 {
		return nil, &Error{
			Capability: CapabilityLiteratureSearch,
			Provider:   "perplexity",
			Kind:       KindProvider,
			StatusCode: resp.StatusCode,
			Message:    "empty choices in response",
		}
	}

	answer := searchResp.Choices[0].Message.Content
	if answer == "" {
		return nil, &Error{
			Capability: CapabilityLiteratureSearch,
			Provider:   "perplexity",
			Kind:       KindProvider,
			StatusCode: resp.StatusCode,
			Message:    "empty answer in response",
		}
	}

	citations := make([]domain.Citation, 0, len(searchResp.SearchResults))
	for _, sr := range searchResp.SearchResults {
		citations = append(citations, domain.Citation{
			Title:    sr.Title,
			SourceID: sr.URL,
			URL:      sr.URL,
		})
	}

	return &SearchResult{
		Answer:    answer,
		Citations: citations,
		Model:     c.model,
		Usage: Usage{
			InputTokens:  searchResp.Usage.PromptTokens,
			OutputTokens: searchResp.Usage.CompletionTokens,
		},
	}, nil
}

// parsePerplexityAPIError parses a Perplexity API error from the response
// status code and body.
func parsePerplexityAPIError(statusCode int, body []byte) *Error {
	apiErr := &Error{
		Capability: CapabilityLiteratureSearch,
		Provider:   "perplexity",
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
