package analysis

import (
	"encoding/json"
	"strings"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

// Parser failure reasons.
const (
	ReasonNoJSONObject     = "no_json_object_found"
	ReasonJSONParseFailed  = "json_parse_failed"
	ReasonSchemaValidation = "schema_validation_failed"
)

type ParseResult struct {
	Result     domain.AnalysisResult
	IsFallback bool
	Errors     []string
}

// ParseModelResponse turns raw model text into a validated result. It never
// fails: anything it cannot validate yields the fallback result and the
// reasons why.
func ParseModelResponse(raw string) ParseResult {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.ReplaceAll(text, "```json", "")
		text = strings.TrimSpace(strings.ReplaceAll(text, "```", ""))
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 {
		return fallbackParse(ReasonNoJSONObject)
	}
	if end < start {
		return fallbackParse(ReasonJSONParseFailed)
	}
	candidate := []byte(text[start : end+1])

	if !json.Valid(candidate) {
		return fallbackParse(ReasonJSONParseFailed)
	}

	wire, violations := decodeWire(candidate)
	if len(violations) > 0 {
		return fallbackParse(ReasonSchemaValidation, violations...)
	}

	result, violations := validate(wire)
	if len(violations) > 0 {
		return fallbackParse(ReasonSchemaValidation, violations...)
	}
	return ParseResult{Result: result}
}

func fallbackParse(reason string, details ...string) ParseResult {
	return ParseResult{
		Result:     FallbackResult(),
		IsFallback: true,
		Errors:     append([]string{reason}, details...),
	}
}

// FallbackResult is the conservative verdict used when the model output
// cannot be trusted. Each call returns a fresh value.
func FallbackResult() domain.AnalysisResult {
	confidence := 0.0
	return domain.AnalysisResult{
		Version:          "1.0",
		LanguageDetected: "unknown",
		RiskTier:         domain.RiskLow,
		Signals:          []domain.Signal{},
		DataQuality: domain.DataQuality{
			IsMessageLike:      false,
			OCRSuspectedErrors: false,
			Notes:              "Fallback result generated due to parsing or validation failure.",
		},
		Confidence: &confidence,
		Summary: &domain.Summary{
			Headline:     "Unable to analyze reliably",
			WhyItMatters: "The message could not be analyzed with confidence. If unsure, avoid clicking links and verify through official channels.",
		},
		RecommendedActions: []domain.RecommendedAction{
			{Action: "verify_independently", Details: "Contact the organization using a trusted source."},
		},
		Safety: &domain.Safety{PIIDetected: false, PIITypes: []string{}},
	}
}
