package analysis

import (
	"fmt"
	"strings"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
	"github.com/Gabothefounder/scanscam/internal/core/ports"
)

const systemPrompt = `You are an intelligence-style fraud analyst for a consumer-facing scam scanner.

Analyze a SINGLE received message and classify the behavioral and linguistic
manipulation patterns commonly used in scams and fraud attempts. You do not
make legal or definitive determinations; your role is classification.

== MANDATORY OUTPUT RULES ==
- Output valid JSON only. No markdown, no commentary, no text outside JSON.
- Follow the provided structure exactly and use only the allowed enum values.
- Do not invent facts, context or intent.
- Signal evidence must be a verbatim excerpt of the message.

== OUTPUT LANGUAGE ==
- Every generated text field (summary_sentence, notes) is written in
  REQUIRED_OUTPUT_LANGUAGE, whatever the language of the message.
- "fr" means French only, "en" means English only. Never mix languages.
- Verbatim evidence stays in the language of the message.

== TONE ==
- Calm, neutral and analytical. No alarmism, no accusations, do not label the sender.
- Never say "this is a scam"; prefer "this message shows patterns commonly used in scams".

== RISK TIER ==
low: weak, ambiguous or no scam signals; everyday communication; no pressure or threat.
medium: at least one clear manipulation pattern (urgency, impersonation of an
authority or service, request for immediate action). One strong pattern is enough.
high: several manipulation patterns, or one critical pattern.
When recognizable manipulation is present, prefer medium or high over low.

== CRITICAL OVERRIDE ==
A message that combines urgent or immediate-action language WITH a threat of
suspension, lockout, loss of access, service disruption or other negative
consequence MUST be classified high, even when it is short, names no brand and
asks for no payment or credentials. Report it with an "urgency" and a "threat" signal.

== SUMMARY SENTENCE ==
For medium or high, write ONE sentence under 200 characters describing the tactic
in abstract terms (urgency, threat, authority...). Never quote, reuse or
paraphrase the message wording.
en example: "The message applies urgent pressure and a threat of service disruption to prompt immediate action."
fr example: "Le message utilise une pression urgente et une menace de perte de service pour inciter à une action immédiate."

== DATA QUALITY ==
If the input is not an actual received message (notes, commentary, story,
article), set data_quality.is_message_like = false and risk_tier = low.

Return JSON ONLY.`

const repairSuffix = "\n\nIMPORTANT: Your previous output was invalid. Return ONLY valid JSON matching the required schema AND the REQUIRED_OUTPUT_LANGUAGE constraint."

// RequiredOutputLanguage collapses "mixed" to English.
func RequiredOutputLanguage(lang domain.Language) domain.Language {
	if lang == domain.LanguageFrench {
		return domain.LanguageFrench
	}
	return domain.LanguageEnglish
}

// BuildPrompt renders the full prompt for one message.
func BuildPrompt(in ports.AnalysisInput) string {
	lang := RequiredOutputLanguage(in.Language)

	signalTypes := make([]string, 0, len(domain.SignalTypes))
	for _, t := range domain.SignalTypes {
		signalTypes = append(signalTypes, string(t))
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n=== OUTPUT CONSTRAINT (NON-NEGOTIABLE) ===\n")
	fmt.Fprintf(&b, "REQUIRED_OUTPUT_LANGUAGE = %s\n", lang)
	b.WriteString("\n=== REQUIRED OUTPUT STRUCTURE (JSON ONLY) ===\n")
	fmt.Fprintf(&b, `{
  "risk_tier": "low | medium | high",
  "summary_sentence": "string (optional, max 200 chars, in REQUIRED_OUTPUT_LANGUAGE)",
  "signals": [
    {
      "type": "%s",
      "evidence": "verbatim excerpt from message_text (max 200 chars)",
      "weight": 1-5
    }
  ],
  "data_quality": {
    "is_message_like": boolean,
    "ocr_suspected_errors": boolean
  }
}
`, strings.Join(signalTypes, " | "))
	b.WriteString("\n=== SCAN PAYLOAD ===\n")
	fmt.Fprintf(&b, "message_text:\n\"\"\"%s\"\"\"\n\n", in.Text)
	fmt.Fprintf(&b, "platform_language: %q\n", string(lang))
	fmt.Fprintf(&b, "source: %q\n", string(in.Source))
	return b.String()
}

// RepairPrompt appends the repair instruction used for the single retry.
func RepairPrompt(prompt string) string {
	return prompt + repairSuffix
}
