package domain

// Language is the platform language a scan result is produced in.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageFrench  Language = "fr"
	// LanguageMixed is accepted by the analyzer and collapses to English.
	LanguageMixed Language = "mixed"
)

// ParseLanguage maps the client-supplied lang field; anything but "fr" is English.
func ParseLanguage(raw string) Language {
	if raw == string(LanguageFrench) {
		return LanguageFrench
	}
	return LanguageEnglish
}

// Source records where the analyzed text came from.
type Source string

const (
	SourceUserText Source = "user_text"
	SourceOCR      Source = "ocr"
)

// Field is a request field as decoded from the wire.
type Field struct {
	Value string
	// Present is true when the field is non-null and not the empty string.
	Present bool
	// IsString is false when the field held a non-string JSON value.
	IsString bool
}

// StringField builds a present string field.
func StringField(v string) Field {
	return Field{Value: v, Present: v != "", IsString: true}
}

type ScanRequest struct {
	Identity string
	Text     Field
	Image    Field
	Language Language
}

// OCROutcome is what the OCR guard is told after an extraction attempt.
type OCROutcome string

const (
	OCRSuccess OCROutcome = "success"
	OCRFailure OCROutcome = "failure"
	OCRLowText OCROutcome = "low_text"
)

// ScanDataQuality is the externally visible data quality block.
type ScanDataQuality struct {
	IsMessageLike      bool `json:"is_message_like"`
	OCRSuspectedErrors bool `json:"ocr_suspected_errors"`
}

// ScanResult is the canonical response record.
type ScanResult struct {
	RiskTier        RiskTier        `json:"risk_tier"`
	SummarySentence *string         `json:"summary_sentence"`
	Signals         []Signal        `json:"signals"`
	Language        Language        `json:"language"`
	Source          Source          `json:"source"`
	DataQuality     ScanDataQuality `json:"data_quality"`
	UsedFallback    bool            `json:"used_fallback"`
}
