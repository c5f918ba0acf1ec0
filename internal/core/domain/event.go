package domain

import "time"

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Event is a best-effort operational record. It never carries message text.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"event_type"`
	Severity   Severity       `json:"severity"`
	Source     string         `json:"source"`
	Context    map[string]any `json:"context,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// ConsentSubmission is what a client sends after agreeing to share a result.
type ConsentSubmission struct {
	Consent bool        `json:"consent"`
	Scan    *ScanResult `json:"scan_result"`
}

// ConsentRecord is a scan result the user agreed to share.
type ConsentRecord struct {
	ID              string
	RiskTier        RiskTier
	SummarySentence *string
	Signals         []Signal
	Language        Language
	Source          Source
	DataQuality     ScanDataQuality
	UsedFallback    bool
	CreatedAt       time.Time
}
