package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Gabothefounder/scanscam/internal/bootstrap"
	"github.com/Gabothefounder/scanscam/internal/config"
	"github.com/Gabothefounder/scanscam/internal/core/analysis"
	"github.com/Gabothefounder/scanscam/internal/core/domain"
	"github.com/Gabothefounder/scanscam/internal/core/intake"
	"github.com/Gabothefounder/scanscam/internal/core/ports"
)

func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one message with the configured model",
		Long: `Analyze runs the text intake checks (length, conversational input)
and the analysis protocol for a single message, then prints the canonical
scan result as JSON. Rate limiting and duplicate suppression do not apply.

Examples:
  scanctl analyze --text "Your account will be suspended in 1 hour unless you verify now"
  echo "Votre colis est bloqué, payez les frais ici" | scanctl analyze --lang fr`,
		Args: cobra.NoArgs,
		RunE: runAnalyzeCmd,
	}

	cmd.Flags().StringP("text", "t", "", "Message text; read from stdin when empty")
	cmd.Flags().StringP("lang", "l", "en", "Result language (en or fr)")

	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, _ []string) error {
	text, _ := cmd.Flags().GetString("text")
	lang, _ := cmd.Flags().GetString("lang")
	if text == "" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(raw)
	}

	cfg := config.Load()
	orchestrator, canonical, err := bootstrap.NewAnalyzer(cfg)
	if err != nil {
		return err
	}
	detector, err := bootstrap.NewConversationDetector(cfg)
	if err != nil {
		return err
	}

	runner := analyzeRunner{
		analyzer:     orchestrator,
		canonical:    canonical,
		conversation: detector,
		minLength:    cfg.MinTextLength,
	}
	result, err := runner.run(cmd.Context(), text, domain.ParseLanguage(lang))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

type analyzeRunner struct {
	analyzer     ports.Analyzer
	canonical    *analysis.Canonicalizer
	conversation ports.ConversationDetector
	minLength    int
}

func (r analyzeRunner) run(ctx context.Context, text string, lang domain.Language) (domain.ScanResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	normalized, err := intake.NormalizeText(domain.StringField(strings.TrimSpace(text)), r.minLength)
	if err != nil {
		return domain.ScanResult{}, describeRejection(err)
	}
	if r.conversation.IsConversational(normalized) {
		return domain.ScanResult{}, describeRejection(domain.Reject(domain.CodeConversationDetected, nil))
	}

	verdict, err := r.analyzer.Analyze(ctx, ports.AnalysisInput{
		Text:     normalized,
		Language: lang,
		Source:   domain.SourceUserText,
	})
	if err != nil {
		return domain.ScanResult{}, fmt.Errorf("analysis failed: %w", err)
	}
	return r.canonical.Canonicalize(verdict, lang, domain.SourceUserText), nil
}

func describeRejection(err error) error {
	if code, ok := domain.RejectionCodeOf(err); ok {
		return fmt.Errorf("input rejected: %s", code)
	}
	return errors.Join(errors.New("input rejected"), err)
}
