package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"paperforge/internal/report"
)

// RunnerConfig holds the model and sizing knobs for initial report generation.
// A missing generation model is a construction-time error, never deferred to
// first use.
type RunnerConfig struct {
	GenerateModel  string
	PlanModel      string
	QuoteWorkers   int
	MinQuoteLength int
}

// Runner drives an initial generation end to end: extract quotes, plan
// sections, synthesize them in order, assemble the report.
type Runner struct {
	extractor   *QuoteExtractor
	planner     *Planner
	synthesizer *Synthesizer
	logger      *zap.Logger
}

func NewRunner(gateway CompletionGateway, cfg RunnerConfig, logger *zap.Logger) (*Runner, error) {
	if cfg.GenerateModel == "" {
		return nil, fmt.Errorf("pipeline runner requires a generation model")
	}
	if cfg.PlanModel == "" {
		cfg.PlanModel = cfg.GenerateModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		extractor:   NewQuoteExtractor(gateway, cfg.GenerateModel, cfg.QuoteWorkers, cfg.MinQuoteLength, logger),
		planner:     NewPlanner(gateway, cfg.PlanModel, logger),
		synthesizer: NewSynthesizer(gateway, cfg.GenerateModel, logger),
		logger:      logger,
	}, nil
}

// InitialRequest is one initial-generation run. References come from the
// external retrieval/reranking collaborator, already scored and ordered.
type InitialRequest struct {
	Query      string
	References []report.ScoredReference
	Progress   ProgressFunc
}

func (r *Runner) Run(ctx context.Context, req InitialRequest) (*report.GeneratedReport, error) {
	progress := req.Progress
	if progress == nil {
		progress = func(string) {}
	}

	progress(fmt.Sprintf("Extracting quotes from %d papers", len(req.References)))
	quoteMap, extractCost, err := r.extractor.Extract(ctx, req.Query, req.References)
	if err != nil {
		return nil, fmt.Errorf("quote extraction: %w", err)
	}
	if len(quoteMap) == 0 {
		return nil, fmt.Errorf("no relevant quotes extracted from %d references", len(req.References))
	}
	quotes := report.FreezeQuotes(quoteMap)
	r.logger.Info("quotes extracted", zap.Int("papers", len(req.References)), zap.Int("quotes", len(quotes)))

	progress("Organizing quotes into a section plan")
	plan, planCost, err := r.planner.Plan(ctx, req.Query, quotes)
	if err != nil {
		return nil, err
	}

	sections, sectionCosts, err := r.synthesizer.SynthesizeAll(ctx, req.Query, plan, quotes, progress)
	if err != nil {
		return nil, err
	}

	progress("Assembling final report")
	steps := append([]report.StepCost{extractCost, planCost}, sectionCosts...)
	rep := AssembleReport(plan.ReportTitle, sections, steps, quotes)
	r.logger.Info("report assembled",
		zap.String("title", rep.Title),
		zap.Int("sections", len(rep.Sections)),
		zap.Float64("total_cost", rep.TotalCost))
	return &rep, nil
}
