package analysis

import (
	"strings"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

// Canonicalizer merges model-authored fields with what the server already
// knows. Language, source and message-likeness never come from the model.
type Canonicalizer struct {
	signalLimit int
}

func NewCanonicalizer(signalLimit int) *Canonicalizer {
	if signalLimit <= 0 {
		signalLimit = DefaultSignalLimit
	}
	return &Canonicalizer{signalLimit: signalLimit}
}

func (c *Canonicalizer) Canonicalize(a domain.Analysis, lang domain.Language, source domain.Source) domain.ScanResult {
	signals := TrimSignals(a.Result.Signals, c.signalLimit)

	tier := a.Result.RiskTier
	if !tier.Valid() {
		tier = domain.RiskLow
	}
	if !a.UsedFallback() && criticalPattern(signals) {
		tier = domain.RiskHigh
	}

	var summary *string
	if a.Result.SummarySentence != nil && strings.TrimSpace(*a.Result.SummarySentence) != "" {
		s := *a.Result.SummarySentence
		summary = &s
	}

	return domain.ScanResult{
		RiskTier:        tier,
		SummarySentence: summary,
		Signals:         signals,
		Language:        lang,
		Source:          source,
		DataQuality: domain.ScanDataQuality{
			IsMessageLike:      true,
			OCRSuspectedErrors: source == domain.SourceOCR && a.Result.DataQuality.OCRSuspectedErrors,
		},
		UsedFallback: a.UsedFallback(),
	}
}

// criticalPattern is urgency combined with a threat of negative consequences.
func criticalPattern(signals []domain.Signal) bool {
	var urgency, threat bool
	for _, s := range signals {
		switch s.Type {
		case domain.SignalUrgency:
			urgency = true
		case domain.SignalThreat:
			threat = true
		}
	}
	return urgency && threat
}
