package analysis

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

const validResponse = `{
  "risk_tier": "high",
  "summary_sentence": "The message applies urgent pressure and a threat of service disruption to prompt immediate action.",
  "signals": [
    {"type": "urgency", "evidence": "in 1 hour", "weight": 4},
    {"type": "threat", "evidence": "will be suspended", "weight": 5}
  ],
  "data_quality": {"is_message_like": true, "ocr_suspected_errors": false}
}`

func TestParseValidResponse(t *testing.T) {
	parsed := ParseModelResponse(validResponse)

	if parsed.IsFallback || len(parsed.Errors) != 0 {
		t.Fatalf("expected a validated result, got fallback=%v errors=%v", parsed.IsFallback, parsed.Errors)
	}
	if parsed.Result.RiskTier != domain.RiskHigh {
		t.Fatalf("expected high risk, got %s", parsed.Result.RiskTier)
	}
	if len(parsed.Result.Signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(parsed.Result.Signals))
	}
	if got := parsed.Result.Signals[1].EffectiveWeight(); got != 5 {
		t.Fatalf("expected weight 5, got %d", got)
	}
	if !parsed.Result.DataQuality.IsMessageLike {
		t.Fatalf("expected is_message_like to be true")
	}
}

func TestParseStripsFencesAndSurroundingProse(t *testing.T) {
	if parsed := ParseModelResponse("```json\n" + validResponse + "\n```"); parsed.IsFallback {
		t.Fatalf("fenced response should parse, errors: %v", parsed.Errors)
	}
	if parsed := ParseModelResponse("Sure! Here is the analysis: " + validResponse + " Hope this helps."); parsed.IsFallback {
		t.Fatalf("response wrapped in prose should parse, errors: %v", parsed.Errors)
	}
}

func TestParseFailureReasons(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		reason string
	}{
		{"no object", "I cannot help with that.", ReasonNoJSONObject},
		{"empty", "", ReasonNoJSONObject},
		{"only closing brace", "oops }", ReasonNoJSONObject},
		{"reversed braces", "} then {", ReasonJSONParseFailed},
		{"syntax error", `{"risk_tier": "low",}`, ReasonJSONParseFailed},
		{"missing risk tier", `{"signals": [], "data_quality": {"is_message_like": true}}`, ReasonSchemaValidation},
		{"bad enum", `{"risk_tier": "critical", "data_quality": {"is_message_like": true}}`, ReasonSchemaValidation},
		{"missing data quality", `{"risk_tier": "low"}`, ReasonSchemaValidation},
		{"missing is_message_like", `{"risk_tier": "low", "data_quality": {}}`, ReasonSchemaValidation},
		{"wrong type", `{"risk_tier": 3, "data_quality": {"is_message_like": true}}`, ReasonSchemaValidation},
		{"unknown signal type", `{"risk_tier": "low", "signals": [{"type": "vibes", "evidence": "x"}], "data_quality": {"is_message_like": true}}`, ReasonSchemaValidation},
		{"weight out of range", `{"risk_tier": "low", "signals": [{"type": "urgency", "evidence": "x", "weight": 9}], "data_quality": {"is_message_like": true}}`, ReasonSchemaValidation},
		{"fractional weight", `{"risk_tier": "low", "signals": [{"type": "urgency", "evidence": "x", "weight": 2.5}], "data_quality": {"is_message_like": true}}`, ReasonSchemaValidation},
		{"long summary", `{"risk_tier": "low", "summary_sentence": "` + strings.Repeat("a", 201) + `", "data_quality": {"is_message_like": true}}`, ReasonSchemaValidation},
		{"confidence out of range", `{"risk_tier": "low", "confidence": 1.5, "data_quality": {"is_message_like": true}}`, ReasonSchemaValidation},
		{"array root", `[{"risk_tier": "low"}]`, ReasonSchemaValidation},
		{"null summary sentence", `{"risk_tier": "low", "summary_sentence": null, "data_quality": {"is_message_like": true}}`, ReasonSchemaValidation},
		{"null signals", `{"risk_tier": "low", "signals": null, "data_quality": {"is_message_like": true}}`, ReasonSchemaValidation},
		{"null notes", `{"risk_tier": "low", "data_quality": {"is_message_like": true, "notes": null}}`, ReasonSchemaValidation},
		{"null risk tier", `{"risk_tier": null, "data_quality": {"is_message_like": true}}`, ReasonSchemaValidation},
		{"null pii type", `{"risk_tier": "low", "data_quality": {"is_message_like": true}, "safety": {"pii_detected": true, "pii_types": [null]}}`, ReasonSchemaValidation},
		{"upper case keys", `{"RISK_TIER": "high", "Data_Quality": {"IS_MESSAGE_LIKE": true}}`, ReasonSchemaValidation},
		{"mixed case nested key", `{"risk_tier": "high", "data_quality": {"Is_Message_Like": true}}`, ReasonSchemaValidation},
		{"signal not an object", `{"risk_tier": "low", "signals": ["urgency"], "data_quality": {"is_message_like": true}}`, ReasonSchemaValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parsed := ParseModelResponse(tc.raw)
			if !parsed.IsFallback {
				t.Fatalf("expected fallback, got %+v", parsed.Result)
			}
			if len(parsed.Errors) == 0 || parsed.Errors[0] != tc.reason {
				t.Fatalf("expected reason %q, got %v", tc.reason, parsed.Errors)
			}
			if !reflect.DeepEqual(parsed.Result, FallbackResult()) {
				t.Fatalf("expected the fallback result, got %+v", parsed.Result)
			}
		})
	}
}

func TestParseReportsViolationPaths(t *testing.T) {
	parsed := ParseModelResponse(`{"risk_tier": "low", "data_quality": {"is_message_like": true, "notes": null}}`)
	if !parsed.IsFallback {
		t.Fatalf("expected fallback for null notes")
	}
	if !strings.Contains(strings.Join(parsed.Errors, ";"), "data_quality.notes: must not be null") {
		t.Fatalf("expected the null path in errors, got %v", parsed.Errors)
	}

	parsed = ParseModelResponse(`{"RISK_TIER": "high", "data_quality": {"is_message_like": true}}`)
	if !strings.Contains(strings.Join(parsed.Errors, ";"), "risk_tier: required") {
		t.Fatalf("differently cased key must not satisfy risk_tier, got %v", parsed.Errors)
	}
}

func TestParseAcceptsOptionalFields(t *testing.T) {
	raw := `{
  "version": "1.0",
  "language_detected": "fr",
  "risk_tier": "medium",
  "signals": [{"type": "impersonation", "evidence": "Service client", "weight": 3.0}],
  "data_quality": {"is_message_like": true, "notes": "ok"},
  "confidence": 0.7,
  "summary": {"headline": "Impersonation", "why_it_matters": "Claims to be a known service."},
  "recommended_actions": [{"action": "verify_independently", "details": "Call the official number."}],
  "safety": {"pii_detected": false, "pii_types": []}
}`
	parsed := ParseModelResponse(raw)
	if parsed.IsFallback {
		t.Fatalf("expected a validated result, errors: %v", parsed.Errors)
	}
	if got := parsed.Result.Signals[0].EffectiveWeight(); got != 3 {
		t.Fatalf("expected weight 3, got %d", got)
	}
	if parsed.Result.Summary == nil || parsed.Result.Summary.Headline != "Impersonation" {
		t.Fatalf("unexpected summary: %+v", parsed.Result.Summary)
	}
	if parsed.Result.Confidence == nil || math.Abs(*parsed.Result.Confidence-0.7) > 1e-9 {
		t.Fatalf("unexpected confidence: %v", parsed.Result.Confidence)
	}
	if parsed.Result.Safety == nil || parsed.Result.Safety.PIITypes == nil {
		t.Fatalf("expected safety with an empty pii_types list, got %+v", parsed.Result.Safety)
	}
}

func TestParseDefaultsMissingSignalsToEmpty(t *testing.T) {
	parsed := ParseModelResponse(`{"risk_tier": "low", "data_quality": {"is_message_like": true}}`)
	if parsed.IsFallback {
		t.Fatalf("expected a validated result, errors: %v", parsed.Errors)
	}
	if parsed.Result.Signals == nil || len(parsed.Result.Signals) != 0 {
		t.Fatalf("expected an empty, non-nil signal list, got %#v", parsed.Result.Signals)
	}
}

func TestFallbackResultIsFresh(t *testing.T) {
	a := FallbackResult()
	a.Signals = append(a.Signals, domain.Signal{Type: domain.SignalOther})
	a.Summary.Headline = "changed"

	b := FallbackResult()
	if len(b.Signals) != 0 {
		t.Fatalf("fallback signals leaked between calls: %+v", b.Signals)
	}
	if b.Summary.Headline != "Unable to analyze reliably" {
		t.Fatalf("fallback summary leaked between calls: %q", b.Summary.Headline)
	}
	if b.RiskTier != domain.RiskLow || b.DataQuality.IsMessageLike {
		t.Fatalf("unexpected fallback verdict: %+v", b)
	}
}

func FuzzParseModelResponseNeverPanics(f *testing.F) {
	f.Add(validResponse)
	f.Add("```")
	f.Add("}{")
	f.Add(`{"risk_tier":null}`)
	f.Fuzz(func(t *testing.T, raw string) {
		parsed := ParseModelResponse(raw)
		if parsed.IsFallback && len(parsed.Errors) == 0 {
			t.Fatalf("fallback without reason for %q", raw)
		}
	})
}
