package httpadapter

import (
	"net/http"
	"testing"

	"github.com/Gabothefounder/scanscam/internal/config"
	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

func TestConsentAlwaysAnswers204(t *testing.T) {
	consent := &consentFake{}
	handler := NewRouter(config.Config{}, &scanServiceFake{}, consent, &telemetryFake{}).Handler()

	res := postJSON(t, handler, "/v1/consent", `{"consent":true,"scan_result":{"risk_tier":"high","signals":[],"language":"en","source":"user_text","data_quality":{"is_message_like":true,"ocr_suspected_errors":false},"used_fallback":false}}`, nil)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if len(consent.submissions) != 1 {
		t.Fatalf("expected one submission, got %d", len(consent.submissions))
	}
	got := consent.submissions[0]
	if !got.Consent || got.Scan == nil || got.Scan.RiskTier != domain.RiskHigh {
		t.Fatalf("unexpected submission: %+v", got)
	}

	res = postJSON(t, handler, "/v1/consent", `{broken`, nil)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for malformed body, got %d", res.Code)
	}
	if len(consent.submissions) != 1 {
		t.Fatalf("malformed body must not reach the consent gate")
	}
}

func TestTelemetryForwardsEventAndContext(t *testing.T) {
	telemetry := &telemetryFake{}
	handler := NewRouter(config.Config{}, &scanServiceFake{}, &consentFake{}, telemetry).Handler()

	res := postJSON(t, handler, "/v1/telemetry", `{"event":"result_viewed","risk_tier":"high","ms":120}`, nil)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if len(telemetry.names) != 1 || telemetry.names[0] != "result_viewed" {
		t.Fatalf("unexpected events: %v", telemetry.names)
	}
	data := telemetry.data[0]
	if _, ok := data["event"]; ok {
		t.Fatalf("event name must not be repeated in context")
	}
	if data["risk_tier"] != "high" {
		t.Fatalf("expected context fields, got %v", data)
	}
}

func TestTelemetryRejectsBadBodies(t *testing.T) {
	telemetry := &telemetryFake{}
	handler := NewRouter(config.Config{}, &scanServiceFake{}, &consentFake{}, telemetry).Handler()

	cases := map[string]string{
		`{oops`:         "invalid_json",
		`{"event":42}`:  "missing_event",
		`{"foo":"bar"}`: "missing_event",
		`{"event":""}`:  "missing_event",
	}
	for body, code := range cases {
		res := postJSON(t, handler, "/v1/telemetry", body, nil)
		if res.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, res.Code)
		}
		if failure := decodeFailure(t, res); failure.Code != code {
			t.Fatalf("body %s: expected code %s, got %+v", body, code, failure)
		}
	}
	if len(telemetry.names) != 0 {
		t.Fatalf("rejected bodies must not be recorded")
	}
}
