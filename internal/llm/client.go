package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNoChoices is returned when the completion service answers successfully
// but with an empty choice list. It is surfaced rather than swallowed so a
// request never silently resolves to an empty reply.
var ErrNoChoices = errors.New("completion returned no choices")

const defaultTimeout = 60 * time.Second

// Message is a single chat message in an ordered prompt sequence.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles used in prompt sequences.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Config configures the OpenAI-backed client.
type Config struct {
	APIKey     string
	BaseURL    string // empty = api.openai.com; tests point this at a fake
	EmbedModel string
	ChatModel  string
	Timeout    time.Duration // per-call budget; 0 = 60s
}

// Client wraps the OpenAI API for embedding generation and chat completion.
// Both operations are single-shot: failures are returned to the caller, never
// retried here (resilience belongs to a wrapping layer, not the core).
type Client struct {
	api        *openai.Client
	embedModel string
	chatModel  string
	timeout    time.Duration
}

// NewClient creates a Client from cfg.
func NewClient(cfg Config) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		api:        openai.NewClientWithConfig(apiCfg),
		embedModel: cfg.EmbedModel,
		chatModel:  cfg.ChatModel,
		timeout:    timeout,
	}
}

// Embed returns the embedding vector for a single text. The vector dimension
// is fixed by the embedding model; callers must not assume a meaningful
// vector for empty input.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embedModel),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding service: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding service: empty response")
	}
	return resp.Data[0].Embedding, nil
}

// CompletionRequest describes one chat completion call.
type CompletionRequest struct {
	Model       string // empty = client default chat model
	Messages    []Message
	Temperature float32
	JSONMode    bool // force a JSON-object response
}

// Complete sends the ordered message sequence and returns the first choice's
// content. A response without choices is an error (ErrNoChoices).
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = c.chatModel
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}

	apiReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		apiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return "", fmt.Errorf("completion service: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}
