package domain

type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

func (r RiskTier) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	default:
		return false
	}
}

// SignalType names a manipulation pattern the analyzer can report.
type SignalType string

const (
	SignalUrgency             SignalType = "urgency"
	SignalThreat              SignalType = "threat"
	SignalImpersonation       SignalType = "impersonation"
	SignalAuthority           SignalType = "authority"
	SignalPaymentRequest      SignalType = "payment_request"
	SignalCredentialRequest   SignalType = "credential_request"
	SignalSuspiciousLink      SignalType = "suspicious_link"
	SignalReward              SignalType = "reward"
	SignalSecrecy             SignalType = "secrecy"
	SignalPersonalInfoRequest SignalType = "personal_info_request"
	SignalOther               SignalType = "other"
)

var SignalTypes = []SignalType{
	SignalUrgency,
	SignalThreat,
	SignalImpersonation,
	SignalAuthority,
	SignalPaymentRequest,
	SignalCredentialRequest,
	SignalSuspiciousLink,
	SignalReward,
	SignalSecrecy,
	SignalPersonalInfoRequest,
	SignalOther,
}

func (t SignalType) Valid() bool {
	for _, known := range SignalTypes {
		if t == known {
			return true
		}
	}
	return false
}

type Signal struct {
	Type     SignalType `json:"type"`
	Evidence string     `json:"evidence"`
	Weight   *int       `json:"weight,omitempty"`
}

// EffectiveWeight treats a missing weight as zero.
func (s Signal) EffectiveWeight() int {
	if s.Weight == nil {
		return 0
	}
	return *s.Weight
}

type DataQuality struct {
	IsMessageLike      bool   `json:"is_message_like"`
	OCRSuspectedErrors bool   `json:"ocr_suspected_errors,omitempty"`
	Notes              string `json:"notes,omitempty"`
}

type Summary struct {
	Headline     string `json:"headline"`
	WhyItMatters string `json:"why_it_matters"`
}

type RecommendedAction struct {
	Action  string `json:"action"`
	Details string `json:"details"`
}

type Safety struct {
	PIIDetected bool     `json:"pii_detected"`
	PIITypes    []string `json:"pii_types"`
}

// AnalysisResult is a model verdict that passed schema validation, or the
// fixed fallback.
type AnalysisResult struct {
	Version            string              `json:"version,omitempty"`
	LanguageDetected   string              `json:"language_detected,omitempty"`
	RiskTier           RiskTier            `json:"risk_tier"`
	SummarySentence    *string             `json:"summary_sentence,omitempty"`
	Signals            []Signal            `json:"signals"`
	DataQuality        DataQuality         `json:"data_quality"`
	Confidence         *float64            `json:"confidence,omitempty"`
	Summary            *Summary            `json:"summary,omitempty"`
	RecommendedActions []RecommendedAction `json:"recommended_actions,omitempty"`
	Safety             *Safety             `json:"safety,omitempty"`
}

// AnalysisState is the terminal state of the validate / repair / fallback protocol.
type AnalysisState string

const (
	AnalysisValidated AnalysisState = "validated"
	AnalysisRepaired  AnalysisState = "repaired"
	AnalysisFallback  AnalysisState = "fallback"
)

type Analysis struct {
	Result AnalysisResult
	State  AnalysisState
	// Failures holds parser reasons from every failed attempt.
	Failures []string
}

func (a Analysis) UsedFallback() bool {
	return a.State == AnalysisFallback
}
