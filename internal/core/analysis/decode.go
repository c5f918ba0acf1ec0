package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var jsonNull = []byte("null")

// strictDecoder fills a wireResult from model output. Keys match exactly and
// an explicit null counts as a violation; encoding/json struct decoding would
// accept both a differently cased key and a null for any optional field.
type strictDecoder struct {
	violations []string
}

func (d *strictDecoder) fail(format string, args ...any) {
	d.violations = append(d.violations, fmt.Sprintf(format, args...))
}

func decodeWire(data []byte) (wireResult, []string) {
	d := &strictDecoder{}
	var w wireResult

	root, ok := d.object(data, "response")
	if !ok {
		return w, d.violations
	}

	decodeValue(d, root, "", "version", &w.Version)
	decodeValue(d, root, "", "language_detected", &w.LanguageDetected)
	decodeValue(d, root, "", "risk_tier", &w.RiskTier)
	decodeValue(d, root, "", "summary_sentence", &w.SummarySentence)
	decodeValue(d, root, "", "confidence", &w.Confidence)

	for i, raw := range d.array(root, "", "signals") {
		path := fmt.Sprintf("signals[%d]", i)
		obj, ok := d.object(raw, path)
		if !ok {
			continue
		}
		var sig wireSignal
		decodeValue(d, obj, path, "type", &sig.Type)
		decodeValue(d, obj, path, "evidence", &sig.Evidence)
		decodeValue(d, obj, path, "weight", &sig.Weight)
		w.Signals = append(w.Signals, sig)
	}

	if raw, ok := d.take(root, "", "data_quality"); ok {
		if obj, ok := d.object(raw, "data_quality"); ok {
			dq := &wireDataQuality{}
			decodeValue(d, obj, "data_quality", "is_message_like", &dq.IsMessageLike)
			decodeValue(d, obj, "data_quality", "ocr_suspected_errors", &dq.OCRSuspectedErrors)
			decodeValue(d, obj, "data_quality", "notes", &dq.Notes)
			w.DataQuality = dq
		}
	}

	if raw, ok := d.take(root, "", "summary"); ok {
		if obj, ok := d.object(raw, "summary"); ok {
			summary := &wireSummary{}
			decodeValue(d, obj, "summary", "headline", &summary.Headline)
			decodeValue(d, obj, "summary", "why_it_matters", &summary.WhyItMatters)
			w.Summary = summary
		}
	}

	for i, raw := range d.array(root, "", "recommended_actions") {
		path := fmt.Sprintf("recommended_actions[%d]", i)
		obj, ok := d.object(raw, path)
		if !ok {
			continue
		}
		var action wireAction
		decodeValue(d, obj, path, "action", &action.Action)
		decodeValue(d, obj, path, "details", &action.Details)
		w.RecommendedActions = append(w.RecommendedActions, action)
	}

	if raw, ok := d.take(root, "", "safety"); ok {
		if obj, ok := d.object(raw, "safety"); ok {
			safety := &wireSafety{}
			decodeValue(d, obj, "safety", "pii_detected", &safety.PIIDetected)
			if items := d.array(obj, "safety", "pii_types"); items != nil {
				safety.PIITypes = make([]string, 0, len(items))
				for i, item := range items {
					var s string
					if bytes.Equal(bytes.TrimSpace(item), jsonNull) || json.Unmarshal(item, &s) != nil {
						d.fail("safety.pii_types[%d]: expected string", i)
						continue
					}
					safety.PIITypes = append(safety.PIITypes, s)
				}
			}
			w.Safety = safety
		}
	}

	return w, d.violations
}

func (d *strictDecoder) object(raw json.RawMessage, path string) (map[string]json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		d.fail("%s: expected object", path)
		return nil, false
	}
	return obj, true
}

// take returns the raw value stored under exactly key. Absent and null both
// report false; null is also a violation.
func (d *strictDecoder) take(obj map[string]json.RawMessage, path, key string) (json.RawMessage, bool) {
	raw, ok := obj[key]
	if !ok {
		return nil, false
	}
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		d.fail("%s: must not be null", joinPath(path, key))
		return nil, false
	}
	return raw, true
}

// array returns the elements under key. The result is non-nil whenever the
// key holds an array, even an empty one.
func (d *strictDecoder) array(obj map[string]json.RawMessage, path, key string) []json.RawMessage {
	raw, ok := d.take(obj, path, key)
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		d.fail("%s: expected array", joinPath(path, key))
		return nil
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return items
}

func decodeValue[T any](d *strictDecoder, obj map[string]json.RawMessage, path, key string, dst **T) {
	raw, ok := d.take(obj, path, key)
	if !ok {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		d.fail("%s: wrong type", joinPath(path, key))
		return
	}
	*dst = &v
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
