package analysis

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
	"github.com/Gabothefounder/scanscam/internal/core/ports"
)

const DefaultSignalLimit = 2

var tracer = otel.Tracer("github.com/Gabothefounder/scanscam/internal/core/analysis")

// Orchestrator runs the model protocol: one call, at most one repair retry
// on invalid output, then the fallback. Transport failures are returned to
// the caller untouched by the retry policy.
type Orchestrator struct {
	model       ports.ModelClient
	signalLimit int
}

func NewOrchestrator(model ports.ModelClient, signalLimit int) *Orchestrator {
	if signalLimit <= 0 {
		signalLimit = DefaultSignalLimit
	}
	return &Orchestrator{model: model, signalLimit: signalLimit}
}

func (o *Orchestrator) Analyze(ctx context.Context, in ports.AnalysisInput) (domain.Analysis, error) {
	ctx, span := tracer.Start(ctx, "analysis.analyze")
	defer span.End()

	prompt := BuildPrompt(in)

	first, err := o.attempt(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		return domain.Analysis{}, err
	}
	if !first.IsFallback {
		span.SetAttributes(attribute.String("analysis.state", string(domain.AnalysisValidated)))
		return domain.Analysis{
			Result: o.trim(first.Result),
			State:  domain.AnalysisValidated,
		}, nil
	}

	second, err := o.attempt(ctx, RepairPrompt(prompt))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model repair call failed")
		return domain.Analysis{}, err
	}
	if !second.IsFallback {
		logParseFailure("first_pass_failed", first.Errors)
		span.SetAttributes(attribute.String("analysis.state", string(domain.AnalysisRepaired)))
		return domain.Analysis{
			Result:   o.trim(second.Result),
			State:    domain.AnalysisRepaired,
			Failures: first.Errors,
		}, nil
	}

	failures := append(append([]string{}, first.Errors...), second.Errors...)
	logParseFailure("retry_failed", failures)
	span.SetAttributes(attribute.String("analysis.state", string(domain.AnalysisFallback)))
	return domain.Analysis{
		Result:   second.Result,
		State:    domain.AnalysisFallback,
		Failures: failures,
	}, nil
}

func (o *Orchestrator) attempt(ctx context.Context, prompt string) (ParseResult, error) {
	raw, err := o.model.Complete(ctx, prompt)
	if err != nil {
		return ParseResult{}, domain.WrapError(domain.ErrUpstream, "model complete", err)
	}
	return ParseModelResponse(raw), nil
}

func (o *Orchestrator) trim(result domain.AnalysisResult) domain.AnalysisResult {
	result.Signals = TrimSignals(result.Signals, o.signalLimit)
	return result
}

// TrimSignals returns at most limit signals ordered by descending weight.
// Equal weights keep their original order.
func TrimSignals(signals []domain.Signal, limit int) []domain.Signal {
	out := append([]domain.Signal{}, signals...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectiveWeight() > out[j].EffectiveWeight()
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Diagnostics never include message text.
func logParseFailure(code string, details []string) {
	slog.Warn("ai_parse_failure",
		"code", code,
		"details", details,
		"timestamp", time.Now().UTC().Format(time.RFC3339),
	)
}
