package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

// Screenshots arrive base64 encoded inside the JSON body.
const maxScanBodyBytes = 12 << 20

var errBodyNotObject = errors.New("request body is not a JSON object")

// decodeScanRequest reads {text, image, lang}. Fields keep their raw JSON
// shape so the pipeline can tell absent, empty and non-string values apart.
func decodeScanRequest(body io.Reader) (domain.ScanRequest, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return domain.ScanRequest{}, fmt.Errorf("decode scan request: %w", err)
	}
	if raw == nil {
		return domain.ScanRequest{}, errBodyNotObject
	}

	lang := decodeField(raw["lang"])
	return domain.ScanRequest{
		Text:     decodeField(raw["text"]),
		Image:    decodeField(raw["image"]),
		Language: domain.ParseLanguage(lang.Value),
	}, nil
}

func decodeField(raw json.RawMessage) domain.Field {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return domain.Field{}
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return domain.StringField(s)
	}
	return domain.Field{Present: true}
}
