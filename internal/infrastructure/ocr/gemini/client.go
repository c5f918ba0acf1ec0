package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
	"github.com/Gabothefounder/scanscam/internal/infrastructure/ocr/imageprep"
	"github.com/Gabothefounder/scanscam/internal/infrastructure/resilience"
)

const (
	DefaultModel = "gemini-2.0-flash"

	operationGenerate = "gemini.ocr"

	ocrPrompt = `Extract ALL visible text from this screenshot exactly as written.
Read from top to bottom, left to right. Keep line breaks.
Return ONLY the extracted text. If there is no text, return nothing.`
)

var tracer = otel.Tracer("github.com/Gabothefounder/scanscam/internal/infrastructure/ocr/gemini")

// Client extracts text with a Gemini vision model.
type Client struct {
	client    *genai.Client
	modelName string
	prep      *imageprep.Preparer
	executor  *resilience.Executor
}

func New(ctx context.Context, apiKey, modelName string, prep *imageprep.Preparer, executor *resilience.Executor) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "create gemini client", fmt.Errorf("GEMINI_API_KEY is not set"))
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = DefaultModel
	}
	if prep == nil {
		prep = imageprep.New(0)
	}
	return &Client{client: client, modelName: modelName, prep: prep, executor: executor}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) ExtractText(ctx context.Context, image string) (string, error) {
	prepared, err := c.prep.Prepare(image)
	if err != nil {
		return "", err
	}

	ctx, span := tracer.Start(ctx, operationGenerate)
	defer span.End()
	span.SetAttributes(attribute.String("ocr.model", c.modelName), attribute.String("ocr.mime_type", prepared.MIMEType))

	model := c.client.GenerativeModel(c.modelName)
	model.SetTemperature(0)
	model.SetMaxOutputTokens(4096)

	text, err := resilience.Do(ctx, c.executor, operationGenerate, func(ctx context.Context) (string, error) {
		resp, err := model.GenerateContent(ctx,
			genai.Text(ocrPrompt),
			genai.Blob{MIMEType: prepared.MIMEType, Data: prepared.Data},
		)
		if err != nil {
			return "", err
		}
		return responseText(resp), nil
	}, classifyGeminiError)
	if err != nil {
		span.RecordError(err)
		return "", wrapTemporaryIfNeeded(err)
	}
	return strings.TrimSpace(text), nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

func classifyGeminiError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return resilience.ClassifyHTTPStatus(apiErr.Code)
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func wrapTemporaryIfNeeded(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == 401 || apiErr.Code == 403) {
		return domain.WrapError(domain.ErrUnauthorized, operationGenerate, err)
	}
	class := classifyGeminiError(err)
	if class.Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operationGenerate, err)
	}
	return err
}
