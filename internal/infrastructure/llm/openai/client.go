package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
	"github.com/Gabothefounder/scanscam/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"

	operationChat = "openai.chat"
)

var tracer = otel.Tracer("github.com/Gabothefounder/scanscam/internal/infrastructure/llm/openai")

// Client talks to any OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, apiKey, model string, timeout time.Duration, executor *resilience.Executor) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as the single system message and returns the first
// choice. An empty choice list yields an empty string.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", domain.WrapError(domain.ErrUnauthorized, operationChat, fmt.Errorf("OPENAI_API_KEY is not set"))
	}

	ctx, span := tracer.Start(ctx, operationChat)
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", c.model))

	req := chatRequest{
		Model:       c.model,
		Temperature: 0,
		Messages:    []chatMessage{{Role: "system", Content: prompt}},
	}

	out, err := resilience.Do(ctx, c.executor, operationChat, func(ctx context.Context) (string, error) {
		var resp chatResponse
		if err := c.postJSON(ctx, "/chat/completions", req, &resp); err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", nil
		}
		return resp.Choices[0].Message.Content, nil
	}, classifyOpenAIError)
	if err != nil {
		span.RecordError(err)
		return "", wrapTemporaryIfNeeded(operationChat, err)
	}
	return out, nil
}
