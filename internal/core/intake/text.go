package intake

import (
	"strings"
	"unicode/utf8"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

const DefaultMinLength = 20

// NormalizeText validates a user-typed message and returns it trimmed.
func NormalizeText(field domain.Field, minLength int) (string, error) {
	if !field.IsString {
		return "", domain.Reject(domain.CodeEmptyText, nil)
	}
	text := strings.TrimSpace(field.Value)
	if text == "" {
		return "", domain.Reject(domain.CodeEmptyText, nil)
	}
	if utf8.RuneCountInString(text) < minLength {
		return "", domain.Reject(domain.CodeTextTooShort, nil)
	}
	return text, nil
}

// LongEnough reports whether extracted text clears the minimum length.
func LongEnough(text string, minLength int) bool {
	return utf8.RuneCountInString(text) >= minLength
}
