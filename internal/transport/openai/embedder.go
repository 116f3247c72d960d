package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/proplens/rankd/internal/domain"
	"github.com/proplens/rankd/internal/metrics"
)

// Embedder is a text embedding provider using the OpenAI-compatible API (e.g. Nebius).
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
	logger     *zap.Logger
}

// ImageSpaceEmbedder vectorizes text into the cross-modal image embedding space
// through a CLIP-style model exposed behind the same OpenAI-compatible API.
// Query phrases embedded here are comparable against listing photo vectors.
type ImageSpaceEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
	logger     *zap.Logger
}

// Config holds the embedding provider settings for one embedding space.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Provider   string
	Logger     *zap.Logger
}

func newClient(cfg *Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	return openai.NewClientWithConfig(clientCfg)
}

// NewEmbedder creates an OpenAI-compatible text embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	return &Embedder{
		client:     newClient(cfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   cfg.Provider,
		logger:     cfg.Logger,
	}
}

// NewImageSpaceEmbedder creates an OpenAI-compatible image-space embedding provider.
func NewImageSpaceEmbedder(cfg *Config) *ImageSpaceEmbedder {
	return &ImageSpaceEmbedder{
		client:     newClient(cfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   cfg.Provider,
		logger:     cfg.Logger,
	}
}

// Embed implements domain.Embedder. Returns the vector and usage with transport-level metrics.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return createEmbedding(ctx, e.client, embeddingCall{
		text:       text,
		model:      e.model,
		dimensions: e.dimensions,
		user:       e.user,
		provider:   e.provider,
	})
}

// EmbedForImageSpace implements domain.ImageSpaceEmbedder.
func (e *ImageSpaceEmbedder) EmbedForImageSpace(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return createEmbedding(ctx, e.client, embeddingCall{
		text:       text,
		model:      e.model,
		dimensions: e.dimensions,
		user:       e.user,
		provider:   e.provider,
	})
}

type embeddingCall struct {
	text       string
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
}

func createEmbedding(ctx context.Context, client *openai.Client, call embeddingCall) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{call.text},
		Model:          call.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           call.user,
	}
	if call.dimensions > 0 {
		req.Dimensions = call.dimensions
	}

	start := time.Now()

	resp, err := client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(call.provider, string(call.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(call.provider, string(call.model), "api_error").Inc()
		return domain.EmbeddingResult{}, parseAPIError(err)
	}

	if len(resp.Data) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(call.provider, string(call.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(call.provider, string(call.model), "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(call.provider, string(call.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(call.provider, string(call.model)).Observe(duration.Seconds())

	totalTokens := resp.Usage.TotalTokens
	promptTokens := resp.Usage.PromptTokens
	if totalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(call.provider, string(call.model), "prompt").Add(float64(promptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(call.provider, string(call.model), "total").Add(float64(totalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: promptTokens,
		TotalTokens:  totalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *ImageSpaceEmbedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// Rate limit responses map to domain.ErrRateLimited; everything else is
// wrapped with domain.ErrEmbeddingProviderError for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrEmbeddingProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == 429 {
			wrap = domain.ErrRateLimited
		}
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("embedding API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 {
			wrap = domain.ErrRateLimited
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("embedding request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
