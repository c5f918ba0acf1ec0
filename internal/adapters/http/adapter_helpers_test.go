package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gabothefounder/scanscam/internal/config"
	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

func TestIdentityFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/scan", nil)
	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.1.1.1")
	req.Header.Set("X-Real-Ip", "198.51.100.1")
	if got := identityFromRequest(req); got != "203.0.113.9" {
		t.Fatalf("expected first forwarded entry, got %q", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/scan", nil)
	req.Header.Set("X-Real-Ip", "198.51.100.1")
	if got := identityFromRequest(req); got != "198.51.100.1" {
		t.Fatalf("expected x-real-ip, got %q", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/scan", nil)
	first, second := identityFromRequest(req), identityFromRequest(req)
	if first == "" || first == second {
		t.Fatalf("expected distinct generated identities, got %q and %q", first, second)
	}
}

func TestDecodeScanRequestFieldPresence(t *testing.T) {
	req, err := decodeScanRequest(strings.NewReader(`{"text":"","image":null,"lang":"fr"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Text.Present || req.Image.Present {
		t.Fatalf("empty and null fields must be absent: %+v", req)
	}
	if req.Language != domain.LanguageFrench {
		t.Fatalf("expected french, got %q", req.Language)
	}

	req, err = decodeScanRequest(strings.NewReader(`{"text":12345,"lang":"es"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !req.Text.Present || req.Text.IsString {
		t.Fatalf("expected present non-string text, got %+v", req.Text)
	}
	if req.Language != domain.LanguageEnglish {
		t.Fatalf("unknown lang must collapse to english, got %q", req.Language)
	}

	if _, err := decodeScanRequest(strings.NewReader(`[1,2]`)); err == nil {
		t.Fatalf("expected error for array body")
	}
	if _, err := decodeScanRequest(strings.NewReader(`null`)); err == nil {
		t.Fatalf("expected error for null body")
	}
}

func TestCatalogCoversEveryRejectionCode(t *testing.T) {
	for _, code := range domain.AllRejectionCodes {
		if !defaultCatalog.Has(string(code)) {
			t.Fatalf("catalog has no entry for %s", code)
		}
		en := defaultCatalog.Message(string(code), domain.LanguageEnglish)
		fr := defaultCatalog.Message(string(code), domain.LanguageFrench)
		if en == "" || fr == "" || en == fr {
			t.Fatalf("expected distinct en/fr messages for %s, got %q / %q", code, en, fr)
		}
	}
	if got := defaultCatalog.Message("no_such_code", domain.LanguageFrench); got != "Une erreur est survenue. Veuillez réessayer." {
		t.Fatalf("unexpected fallback: %q", got)
	}
}

func TestLoadCatalogRequiresEnglishFallback(t *testing.T) {
	if _, err := LoadCatalog([]byte("fallback:\n  fr: bonjour\n")); err == nil {
		t.Fatalf("expected error without english fallback")
	}
}

func TestContractValidatesAndDescribesResponses(t *testing.T) {
	contract, err := LoadContract(context.Background())
	if err != nil {
		t.Fatalf("load contract: %v", err)
	}

	result := domain.ScanResult{
		RiskTier:    domain.RiskMedium,
		Signals:     []domain.Signal{{Type: domain.SignalSuspiciousLink, Evidence: "bit.ly/x"}},
		Language:    domain.LanguageEnglish,
		Source:      domain.SourceOCR,
		DataQuality: domain.ScanDataQuality{IsMessageLike: true, OCRSuspectedErrors: true},
	}
	if err := contract.Schema("ScanResult").VisitJSON(toGeneric(t, result)); err != nil {
		t.Fatalf("scan result does not match contract: %v", err)
	}

	failureSchema := contract.Schema("Failure")
	for _, code := range domain.AllRejectionCodes {
		body := failureResponse{Code: string(code), Message: "x"}
		if err := failureSchema.VisitJSON(toGeneric(t, body)); err != nil {
			t.Fatalf("failure code %s not in contract: %v", code, err)
		}
	}

	for _, code := range []string{codeServerBusy, codeMethodNotAllowed, codeMissingEvent, codeInternal} {
		if err := failureSchema.VisitJSON(toGeneric(t, failureResponse{Code: code, Message: "x"})); err != nil {
			t.Fatalf("adapter code %s not in contract: %v", code, err)
		}
	}
	for _, path := range []string{"/v1/scan", "/api/scan", "/v1/consent", "/v1/telemetry"} {
		item := contract.Doc.Paths.Find(path)
		if item == nil || item.Post == nil {
			t.Fatalf("contract has no POST %s", path)
		}
		for _, status := range []int{http.StatusTooManyRequests, http.StatusServiceUnavailable} {
			if item.Post.Responses.Status(status) == nil {
				t.Fatalf("contract for POST %s does not document %d", path, status)
			}
		}
	}

	handler := NewRouter(config.Config{}, &scanServiceFake{}, &consentFake{}, &telemetryFake{}, WithContract(contract)).Handler()
	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var served map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &served); err != nil {
		t.Fatalf("served contract is not json: %v", err)
	}
	if served["openapi"] != "3.0.3" {
		t.Fatalf("unexpected openapi version: %v", served["openapi"])
	}
}

func toGeneric(t *testing.T, v any) any {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}
