package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/proplens/rankd/internal/domain/subquery"
)

const systemPrompt = `You are a real-estate search query planner.
Split the user's property search query into focused subqueries, one per
distinct visual or descriptive feature (exterior color, kitchen finish,
flooring, yard, architecture style, and similar).

Respond with a single JSON object and nothing else:
{"sub_queries": [{"feature": "<short_feature_tag>", "query": "<focused search phrase>", "weight": <0.5-2.0>, "aggregation": "max"}]}

Rules:
- at most %d subqueries, most important feature first
- "feature" is a short snake_case tag like "white_exterior" or "granite_countertops"
- "weight" reflects how central the feature is to the query (colors and styles rate higher)
- "aggregation" is "max" unless the feature spans several photos of the same room, then "sum"`

// Decomposer asks an OpenAI-compatible chat model to split a property
// query into per-feature subqueries. It returns the raw completion text;
// parsing and the template fallback live with the caller.
type Decomposer struct {
	client  llms.Model
	timeout time.Duration
	logger  *zap.Logger
}

// Config holds the chat model settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// New creates a chat-backed decomposer.
func New(cfg *Config) (*Decomposer, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		// Local OpenAI-compatible services accept any token.
		apiKey = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(apiKey),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create chat client: %w", err)
	}

	return &Decomposer{
		client:  client,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}, nil
}

// Decompose sends the query and its detected tags to the model and returns
// the raw completion.
func (d *Decomposer) Decompose(ctx context.Context, queryText string, sortedTags []string) (string, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(fmt.Sprintf(systemPrompt, subquery.MaxPerQuery)),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(buildUserPrompt(queryText, sortedTags)),
			},
		},
	}

	start := time.Now()

	response, err := d.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
	if err != nil {
		d.logger.Warn("Decomposition call failed", zap.Error(err))
		return "", fmt.Errorf("generate decomposition: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("generate decomposition: no choices in response")
	}

	raw := strings.TrimSpace(response.Choices[0].Content)
	d.logger.Debug("Decomposition completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("completion_len", len(raw)))

	return raw, nil
}

func buildUserPrompt(queryText string, sortedTags []string) string {
	var b strings.Builder
	b.WriteString("Query: ")
	b.WriteString(queryText)
	if len(sortedTags) > 0 {
		b.WriteString("\nDetected feature tags: ")
		b.WriteString(strings.Join(sortedTags, ", "))
	}
	return b.String()
}
