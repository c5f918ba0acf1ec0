package analysis

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

const (
	maxSummarySentence = 200
	maxEvidence        = 200
	maxHeadline        = 80
	maxWhyItMatters    = 240
	maxActionDetails   = 200
	minSignalWeight    = 1
	maxSignalWeight    = 5
)

var detectedLanguages = map[string]bool{"en": true, "fr": true, "mixed": true, "unknown": true}

// wireResult mirrors the model output with pointers so that missing and
// zero values can be told apart during validation. decodeWire fills it.
type wireResult struct {
	Version            *string
	LanguageDetected   *string
	RiskTier           *string
	SummarySentence    *string
	Signals            []wireSignal
	DataQuality        *wireDataQuality
	Confidence         *float64
	Summary            *wireSummary
	RecommendedActions []wireAction
	Safety             *wireSafety
}

type wireSignal struct {
	Type     *string
	Evidence *string
	Weight   *float64
}

type wireDataQuality struct {
	IsMessageLike      *bool
	OCRSuspectedErrors *bool
	Notes              *string
}

type wireSummary struct {
	Headline     *string
	WhyItMatters *string
}

type wireAction struct {
	Action  *string
	Details *string
}

type wireSafety struct {
	PIIDetected *bool
	PIITypes    []string
}

// validate checks w against the analysis schema and converts it. It returns
// every violation found, not just the first.
func validate(w wireResult) (domain.AnalysisResult, []string) {
	var violations []string
	fail := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	out := domain.AnalysisResult{Signals: []domain.Signal{}}

	if w.Version != nil {
		if *w.Version != "1.0" {
			fail("version: unsupported %q", *w.Version)
		}
		out.Version = *w.Version
	}
	if w.LanguageDetected != nil {
		if !detectedLanguages[*w.LanguageDetected] {
			fail("language_detected: invalid value %q", *w.LanguageDetected)
		}
		out.LanguageDetected = *w.LanguageDetected
	}

	switch {
	case w.RiskTier == nil:
		fail("risk_tier: required")
	case !domain.RiskTier(*w.RiskTier).Valid():
		fail("risk_tier: invalid value %q", *w.RiskTier)
	default:
		out.RiskTier = domain.RiskTier(*w.RiskTier)
	}

	if w.SummarySentence != nil {
		if tooLong(*w.SummarySentence, maxSummarySentence) {
			fail("summary_sentence: longer than %d characters", maxSummarySentence)
		}
		s := *w.SummarySentence
		out.SummarySentence = &s
	}

	for i, sig := range w.Signals {
		converted, ok := validateSignal(i, sig, fail)
		if ok {
			out.Signals = append(out.Signals, converted)
		}
	}

	if w.DataQuality == nil {
		fail("data_quality: required")
	} else {
		if w.DataQuality.IsMessageLike == nil {
			fail("data_quality.is_message_like: required")
		} else {
			out.DataQuality.IsMessageLike = *w.DataQuality.IsMessageLike
		}
		if w.DataQuality.OCRSuspectedErrors != nil {
			out.DataQuality.OCRSuspectedErrors = *w.DataQuality.OCRSuspectedErrors
		}
		if w.DataQuality.Notes != nil {
			out.DataQuality.Notes = *w.DataQuality.Notes
		}
	}

	if w.Confidence != nil {
		if *w.Confidence < 0 || *w.Confidence > 1 {
			fail("confidence: outside [0,1]")
		}
		c := *w.Confidence
		out.Confidence = &c
	}

	if w.Summary != nil {
		summary := domain.Summary{}
		if w.Summary.Headline == nil {
			fail("summary.headline: required")
		} else if tooLong(*w.Summary.Headline, maxHeadline) {
			fail("summary.headline: longer than %d characters", maxHeadline)
		} else {
			summary.Headline = *w.Summary.Headline
		}
		if w.Summary.WhyItMatters == nil {
			fail("summary.why_it_matters: required")
		} else if tooLong(*w.Summary.WhyItMatters, maxWhyItMatters) {
			fail("summary.why_it_matters: longer than %d characters", maxWhyItMatters)
		} else {
			summary.WhyItMatters = *w.Summary.WhyItMatters
		}
		out.Summary = &summary
	}

	for i, action := range w.RecommendedActions {
		if action.Action == nil || action.Details == nil {
			fail("recommended_actions[%d]: action and details are required", i)
			continue
		}
		if tooLong(*action.Details, maxActionDetails) {
			fail("recommended_actions[%d].details: longer than %d characters", i, maxActionDetails)
			continue
		}
		out.RecommendedActions = append(out.RecommendedActions, domain.RecommendedAction{
			Action:  *action.Action,
			Details: *action.Details,
		})
	}

	if w.Safety != nil {
		if w.Safety.PIIDetected == nil || w.Safety.PIITypes == nil {
			fail("safety: pii_detected and pii_types are required")
		} else {
			out.Safety = &domain.Safety{
				PIIDetected: *w.Safety.PIIDetected,
				PIITypes:    append([]string(nil), w.Safety.PIITypes...),
			}
		}
	}

	return out, violations
}

func validateSignal(i int, sig wireSignal, fail func(string, ...any)) (domain.Signal, bool) {
	ok := true
	var out domain.Signal

	switch {
	case sig.Type == nil:
		fail("signals[%d].type: required", i)
		ok = false
	case !domain.SignalType(*sig.Type).Valid():
		fail("signals[%d].type: invalid value %q", i, *sig.Type)
		ok = false
	default:
		out.Type = domain.SignalType(*sig.Type)
	}

	switch {
	case sig.Evidence == nil:
		fail("signals[%d].evidence: required", i)
		ok = false
	case tooLong(*sig.Evidence, maxEvidence):
		fail("signals[%d].evidence: longer than %d characters", i, maxEvidence)
		ok = false
	default:
		out.Evidence = *sig.Evidence
	}

	if sig.Weight != nil {
		w := *sig.Weight
		if w != math.Trunc(w) || w < minSignalWeight || w > maxSignalWeight {
			fail("signals[%d].weight: must be an integer in [%d,%d]", i, minSignalWeight, maxSignalWeight)
			ok = false
		} else {
			weight := int(w)
			out.Weight = &weight
		}
	}
	return out, ok
}

func tooLong(s string, max int) bool {
	return utf8.RuneCountInString(s) > max
}
