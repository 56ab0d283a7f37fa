package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"paperforge/internal/providers"
	"paperforge/internal/prompts"
	"paperforge/internal/report"
)

const opSectionPlanning = "section_planning"

// SectionFormat is a section's rendering mode. Unknown values are rejected at
// the parse boundary instead of being carried around as loose strings.
type SectionFormat string

const (
	FormatSynthesis SectionFormat = "synthesis"
	FormatList      SectionFormat = "list"
)

func (f *SectionFormat) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "synthesis", "":
		*f = FormatSynthesis
	case "list":
		*f = FormatList
	default:
		return fmt.Errorf("unknown section format %q", raw)
	}
	return nil
}

// PlanSection is one planned report section. Quotes holds positional indices
// into the frozen quote sequence the plan was built from.
type PlanSection struct {
	Name   string        `json:"name"`
	Format SectionFormat `json:"format"`
	Quotes []int         `json:"quotes"`
}

// ClusterPlan is the planner's structured output for an initial generation run.
// Section order here is final report section order.
type ClusterPlan struct {
	CoT         string        `json:"cot"`
	ReportTitle string        `json:"report_title"`
	Dimensions  []PlanSection `json:"dimensions"`
}

// ParseClusterPlan parses the planner completion into a validated plan. A
// malformed response is fatal for the run; the caller decides whether to retry.
func ParseClusterPlan(raw string) (ClusterPlan, error) {
	var plan ClusterPlan
	cleaned := StripCodeFences(raw)
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return ClusterPlan{}, fmt.Errorf("cluster plan did not parse: %w", err)
	}
	if len(plan.Dimensions) == 0 {
		return ClusterPlan{}, fmt.Errorf("cluster plan has no sections")
	}
	return plan, nil
}

// StripCodeFences removes a surrounding markdown code fence, which models
// add around JSON output despite instructions not to.
func StripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```json")
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

// Planner issues the single clustering completion that organizes the frozen
// quote sequence into a section plan.
type Planner struct {
	gateway CompletionGateway
	model   string
	logger  *zap.Logger
}

func NewPlanner(gateway CompletionGateway, model string, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{gateway: gateway, model: model, logger: logger}
}

func (p *Planner) Plan(ctx context.Context, query string, quotes []report.Quote) (ClusterPlan, report.StepCost, error) {
	cost := report.StepCost{Step: opSectionPlanning, Model: p.model}
	res, err := p.gateway.Complete(ctx, providers.CompletionRequest{
		Operation: opSectionPlanning,
		Prompt:    prompts.BuildClusterPrompt(query, FormatQuoteList(quotes)),
		Model:     p.model,
	})
	if err != nil {
		return ClusterPlan{}, cost, fmt.Errorf("section planning: %w", err)
	}
	cost.Cost = res.Cost
	cost.Model = res.Model
	cost.Tokens = tokensOf(res)

	plan, err := ParseClusterPlan(res.Text)
	if err != nil {
		return ClusterPlan{}, cost, err
	}
	p.logger.Info("section plan ready",
		zap.String("title", plan.ReportTitle),
		zap.Int("sections", len(plan.Dimensions)))
	return plan, cost, nil
}
