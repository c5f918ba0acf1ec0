package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Gabothefounder/scanscam/internal/infrastructure/resilience"
)

const operationGenerate = "ollama.generate"

var tracer = otel.Tracer("github.com/Gabothefounder/scanscam/internal/infrastructure/llm/ollama")

// Client completes prompts against a local Ollama server.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Complete sends prompt with JSON output mode and temperature 0.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, operationGenerate)
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", c.model))

	req := generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Format:  "json",
		Options: map[string]any{"temperature": 0},
	}

	out, err := resilience.Do(ctx, c.executor, operationGenerate, func(ctx context.Context) (string, error) {
		var resp generateResponse
		if err := c.postJSON(ctx, "/api/generate", req, &resp, "generate"); err != nil {
			return "", err
		}
		return strings.TrimSpace(resp.Response), nil
	}, classifyOllamaError)
	if err != nil {
		span.RecordError(err)
		return "", wrapTemporaryIfNeeded(operationGenerate, err)
	}
	return out, nil
}
