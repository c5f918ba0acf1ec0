package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrThrottled    = errors.New("throttled")
	ErrUpstream     = errors.New("upstream failure")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// RejectionCode is the stable machine-readable reason a scan was refused.
type RejectionCode string

const (
	CodeInvalidJSON          RejectionCode = "invalid_json"
	CodeInvalidInput         RejectionCode = "invalid_input"
	CodeEmptyText            RejectionCode = "empty_text"
	CodeTextTooShort         RejectionCode = "text_too_short"
	CodeConversationDetected RejectionCode = "conversation_detected"
	CodeOCRBlocked           RejectionCode = "ocr_blocked"
	CodeOCRFailed            RejectionCode = "ocr_failed"
	CodeOCRNoText            RejectionCode = "ocr_no_text"
	CodeDuplicateScan        RejectionCode = "duplicate_scan"
	CodeRateLimited          RejectionCode = "rate_limited"
	CodeAnalysisFailed       RejectionCode = "analysis_failed"
)

// AllRejectionCodes lists every code a client can receive.
var AllRejectionCodes = []RejectionCode{
	CodeInvalidJSON,
	CodeInvalidInput,
	CodeEmptyText,
	CodeTextTooShort,
	CodeConversationDetected,
	CodeOCRBlocked,
	CodeOCRFailed,
	CodeOCRNoText,
	CodeDuplicateScan,
	CodeRateLimited,
	CodeAnalysisFailed,
}

// Kind returns the error kind a code is reported under.
func (c RejectionCode) Kind() error {
	switch c {
	case CodeOCRBlocked, CodeDuplicateScan, CodeRateLimited:
		return ErrThrottled
	case CodeAnalysisFailed:
		return ErrUpstream
	default:
		return ErrInvalidInput
	}
}

// Rejection is a terminal pipeline outcome carrying a client-facing code.
type Rejection struct {
	Code RejectionCode
	Err  error
}

func Reject(code RejectionCode, cause error) error {
	return &Rejection{Code: code, Err: cause}
}

func (r *Rejection) Error() string {
	if r.Err == nil {
		return string(r.Code)
	}
	return fmt.Sprintf("%s: %v", r.Code, r.Err)
}

func (r *Rejection) Unwrap() []error {
	if r.Err == nil {
		return []error{r.Code.Kind()}
	}
	return []error{r.Code.Kind(), r.Err}
}

// RejectionCodeOf extracts the rejection code carried by err, if any.
func RejectionCodeOf(err error) (RejectionCode, bool) {
	var rejection *Rejection
	if errors.As(err, &rejection) {
		return rejection.Code, true
	}
	return "", false
}
