package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	visionapi "google.golang.org/api/vision/v1"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
	"github.com/Gabothefounder/scanscam/internal/infrastructure/ocr/imageprep"
	"github.com/Gabothefounder/scanscam/internal/infrastructure/resilience"
)

const operationAnnotate = "vision.annotate"

var tracer = otel.Tracer("github.com/Gabothefounder/scanscam/internal/infrastructure/ocr/vision")

// Client runs TEXT_DETECTION through the Cloud Vision REST API.
type Client struct {
	service  *visionapi.Service
	prep     *imageprep.Preparer
	executor *resilience.Executor
}

// New builds a client. credentialsJSON holds a service account key; when
// empty, application default credentials are used. Extra options are
// appended, which lets tests point the client at a local server.
func New(ctx context.Context, credentialsJSON string, prep *imageprep.Preparer, executor *resilience.Executor, opts ...option.ClientOption) (*Client, error) {
	clientOpts := make([]option.ClientOption, 0, len(opts)+1)
	if strings.TrimSpace(credentialsJSON) != "" {
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := visionapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create vision service: %w", err)
	}
	if prep == nil {
		prep = imageprep.New(0)
	}
	return &Client{service: service, prep: prep, executor: executor}, nil
}

// ExtractText returns the full-text annotation, trimmed. An image with no
// detected text yields an empty string.
func (c *Client) ExtractText(ctx context.Context, image string) (string, error) {
	prepared, err := c.prep.Prepare(image)
	if err != nil {
		return "", err
	}

	ctx, span := tracer.Start(ctx, operationAnnotate)
	defer span.End()

	req := &visionapi.BatchAnnotateImagesRequest{
		Requests: []*visionapi.AnnotateImageRequest{{
			Image:    &visionapi.Image{Content: prepared.Base64()},
			Features: []*visionapi.Feature{{Type: "TEXT_DETECTION"}},
		}},
	}

	text, err := resilience.Do(ctx, c.executor, operationAnnotate, func(ctx context.Context) (string, error) {
		resp, err := c.service.Images.Annotate(req).Context(ctx).Do()
		if err != nil {
			return "", err
		}
		return firstDescription(resp)
	}, classifyVisionError)
	if err != nil {
		span.RecordError(err)
		return "", wrapTemporaryIfNeeded(err)
	}
	return strings.TrimSpace(text), nil
}

func firstDescription(resp *visionapi.BatchAnnotateImagesResponse) (string, error) {
	if resp == nil || len(resp.Responses) == 0 {
		return "", nil
	}
	first := resp.Responses[0]
	if first.Error != nil && first.Error.Code != 0 {
		return "", &AnnotateError{Code: first.Error.Code, Message: first.Error.Message}
	}
	if len(first.TextAnnotations) == 0 {
		return "", nil
	}
	return first.TextAnnotations[0].Description, nil
}

// AnnotateError is a per-image failure reported inside a successful batch response.
type AnnotateError struct {
	Code    int64
	Message string
}

func (e *AnnotateError) Error() string {
	return fmt.Sprintf("vision annotate: code %d: %s", e.Code, e.Message)
}

func classifyVisionError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return resilience.ClassifyHTTPStatus(apiErr.Code)
	}

	// Per-image errors are about the image, not the service.
	var annotateErr *AnnotateError
	if errors.As(err, &annotateErr) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func wrapTemporaryIfNeeded(err error) error {
	class := classifyVisionError(err)
	if class.Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operationAnnotate, err)
	}
	return err
}
