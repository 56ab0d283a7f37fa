package edit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"paperforge/internal/pipeline"
	"paperforge/internal/providers"
	"paperforge/internal/prompts"
	"paperforge/internal/report"
)

const (
	opDecideSearch = "decide_search"
	opEditPlan     = "edit_plan"
	opSectionEdit  = "section_edit"
	opNewSection   = "new_section"
)

// ReferenceSearcher is the external retrieval collaborator used when the
// decide-search state asks for new papers.
type ReferenceSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]report.ScoredReference, error)
}

// Config holds the models for the edit states. A missing edit-plan model is a
// construction-time error.
type Config struct {
	EditPlanModel  string
	EditModel      string
	QuoteWorkers   int
	MinQuoteLength int
	SearchLimit    int
}

// Machine runs one edit through its four states: decide whether to search,
// generate a per-section plan, apply the plan section by section, and
// assemble the patched report.
type Machine struct {
	gateway     pipeline.CompletionGateway
	extractor   *pipeline.QuoteExtractor
	planModel   string
	editModel   string
	searchLimit int
	logger      *zap.Logger
}

func NewMachine(gateway pipeline.CompletionGateway, cfg Config, logger *zap.Logger) (*Machine, error) {
	if cfg.EditPlanModel == "" {
		return nil, fmt.Errorf("edit machine requires an edit-plan model")
	}
	if cfg.EditModel == "" {
		cfg.EditModel = cfg.EditPlanModel
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		gateway:     gateway,
		extractor:   pipeline.NewQuoteExtractor(gateway, cfg.EditModel, cfg.QuoteWorkers, cfg.MinQuoteLength, logger),
		planModel:   cfg.EditPlanModel,
		editModel:   cfg.EditModel,
		searchLimit: cfg.SearchLimit,
		logger:      logger,
	}, nil
}

// Request is one edit run over an existing report.
type Request struct {
	Report          *report.GeneratedReport
	Instruction     string
	MentionedPapers []int64
	// Available holds references already fetched for this edit (for example
	// the user-mentioned papers). More are added when decide-search fires.
	Available []report.ScoredReference
	Searcher  ReferenceSearcher
	Progress  pipeline.ProgressFunc
}

// Run executes the full edit. Any completion or parse failure in a state is
// fatal for the run; no partially edited report is ever returned.
func (m *Machine) Run(ctx context.Context, req Request) (*report.GeneratedReport, error) {
	if req.Report == nil {
		return nil, fmt.Errorf("edit requires an existing report")
	}
	progress := req.Progress
	if progress == nil {
		progress = func(string) {}
	}
	var steps []report.StepCost

	progress("Deciding whether new papers are needed")
	decision, cost, err := m.DecideSearch(ctx, req.Report, req.Instruction, req.MentionedPapers)
	if err != nil {
		return nil, err
	}
	steps = append(steps, cost)

	available := req.Available
	if decision.NeedsSearch {
		if req.Searcher == nil {
			m.logger.Warn("edit wants a search but no searcher is wired",
				zap.String("query", decision.SearchQuery))
		} else {
			progress(fmt.Sprintf("Searching for papers: %s", decision.SearchQuery))
			found, err := req.Searcher.Search(ctx, decision.SearchQuery, m.searchLimit)
			if err != nil {
				return nil, fmt.Errorf("reference search: %w", err)
			}
			available = append(available, found...)
		}
	}

	quotesByID := map[int64]report.Quote{}
	if len(available) > 0 {
		progress(fmt.Sprintf("Extracting quotes from %d papers", len(available)))
		quoteMap, cost, err := m.extractor.Extract(ctx, req.Instruction, available)
		if err != nil {
			return nil, fmt.Errorf("edit quote extraction: %w", err)
		}
		steps = append(steps, cost)
		for _, q := range quoteMap {
			if key, ok := report.ParseCitationKey(q.Key); ok {
				quotesByID[key.CorpusID] = q
			}
		}
	}

	progress("Planning section edits")
	plan, cost, err := m.GeneratePlan(ctx, req.Report, req.Instruction, req.MentionedPapers, available)
	if err != nil {
		return nil, err
	}
	steps = append(steps, cost)

	progress("Applying section edits")
	sections, applySteps, err := m.applyPlan(ctx, req.Report, req.Instruction, plan, quotesByID, progress)
	if err != nil {
		return nil, err
	}
	steps = append(steps, applySteps...)

	return m.assemble(req.Report, plan, sections, steps, quotesByID), nil
}

// DecideSearch runs the first edit state. A parse failure here aborts the
// whole edit.
func (m *Machine) DecideSearch(ctx context.Context, rep *report.GeneratedReport, instruction string, mentioned []int64) (SearchDecision, report.StepCost, error) {
	cost := report.StepCost{Step: opDecideSearch, Model: m.planModel}
	res, err := m.gateway.Complete(ctx, providers.CompletionRequest{
		Operation: opDecideSearch,
		Prompt:    prompts.BuildDecideSearchPrompt(FormatReportSummary(rep), instruction, FormatMentionedPapers(mentioned)),
		Model:     m.planModel,
	})
	if err != nil {
		return SearchDecision{}, cost, fmt.Errorf("decide search: %w", err)
	}
	cost.Cost, cost.Model, cost.Tokens = res.Cost, res.Model, tokenUsage(res)

	decision, err := ParseSearchDecision(res.Text)
	if err != nil {
		return SearchDecision{}, cost, err
	}
	m.logger.Info("search decision",
		zap.Bool("needs_search", decision.NeedsSearch),
		zap.String("query", decision.SearchQuery))
	return decision, cost, nil
}

// GeneratePlan produces the per-section action plan. Every existing section
// must be covered; a missing section is a plan-quality defect that is logged
// and patched with a default keep.
func (m *Machine) GeneratePlan(ctx context.Context, rep *report.GeneratedReport, instruction string, mentioned []int64, available []report.ScoredReference) (Plan, report.StepCost, error) {
	cost := report.StepCost{Step: opEditPlan, Model: m.planModel}
	res, err := m.gateway.Complete(ctx, providers.CompletionRequest{
		Operation: opEditPlan,
		Prompt: prompts.BuildEditPlanPrompt(
			rep.Title,
			FormatSectionsSummary(rep.Sections),
			instruction,
			FormatMentionedPapers(mentioned),
			FormatAvailablePapers(available),
		),
		Model: m.planModel,
	})
	if err != nil {
		return Plan{}, cost, fmt.Errorf("edit plan: %w", err)
	}
	cost.Cost, cost.Model, cost.Tokens = res.Cost, res.Model, tokenUsage(res)

	plan, err := ParsePlan(res.Text)
	if err != nil {
		return Plan{}, cost, err
	}

	covered := make(map[int]bool, len(plan.SectionPlans))
	deduped := plan.SectionPlans[:0]
	for _, sp := range plan.SectionPlans {
		if covered[sp.SectionIndex] {
			m.logger.Warn("plan covers section more than once, keeping first",
				zap.Int("section_index", sp.SectionIndex))
			continue
		}
		covered[sp.SectionIndex] = true
		deduped = append(deduped, sp)
	}
	plan.SectionPlans = deduped
	for i, sec := range rep.Sections {
		if covered[i] {
			continue
		}
		m.logger.Warn("plan is missing a section, defaulting to keep",
			zap.Int("section_index", i), zap.String("title", sec.Title))
		plan.SectionPlans = append(plan.SectionPlans, SectionPlan{
			SectionIndex: i,
			SectionTitle: sec.Title,
			Action:       ActionKeep,
			Reasoning:    "not covered by the generated plan",
		})
	}
	m.logger.Info("edit plan ready",
		zap.Int("section_plans", len(plan.SectionPlans)),
		zap.Int("new_sections", len(plan.NewSections)))
	return plan, cost, nil
}

// applyPlan walks the original sections in order, dispatching on each plan
// action, then creates any new sections. Keep and delete never touch the
// gateway.
func (m *Machine) applyPlan(ctx context.Context, rep *report.GeneratedReport, instruction string, plan Plan, quotesByID map[int64]report.Quote, progress pipeline.ProgressFunc) ([]report.GeneratedSection, []report.StepCost, error) {
	byIndex := make(map[int]SectionPlan, len(plan.SectionPlans))
	for _, sp := range plan.SectionPlans {
		byIndex[sp.SectionIndex] = sp
	}

	var steps []report.StepCost
	sections := make([]report.GeneratedSection, 0, len(rep.Sections)+len(plan.NewSections))
	for i, sec := range rep.Sections {
		sp := byIndex[i]
		switch sp.Action {
		case ActionKeep, "":
			sections = append(sections, sec)
		case ActionDelete:
			m.logger.Info("deleting section", zap.Int("index", i), zap.String("title", sec.Title))
		default:
			progress(fmt.Sprintf("Editing section: %s (%s)", sec.Title, sp.Action))
			edited, cost, err := m.editSection(ctx, rep, i, sec, sp, instruction, quotesByID)
			if err != nil {
				return nil, steps, fmt.Errorf("editing section %q: %w", sec.Title, err)
			}
			steps = append(steps, cost)
			sections = append(sections, edited)
		}
	}

	for _, ns := range plan.NewSections {
		progress(fmt.Sprintf("Creating new section: %s", ns.Title))
		created, cost, err := m.createSection(ctx, rep, ns, quotesByID)
		if err != nil {
			return nil, steps, fmt.Errorf("creating section %q: %w", ns.Title, err)
		}
		steps = append(steps, cost)
		sections = append(sections, created)
	}
	return sections, steps, nil
}

func (m *Machine) editSection(ctx context.Context, rep *report.GeneratedReport, index int, sec report.GeneratedSection, sp SectionPlan, instruction string, quotesByID map[int64]report.Quote) (report.GeneratedSection, report.StepCost, error) {
	cost := report.StepCost{Step: fmt.Sprintf("%s:%s", opSectionEdit, sec.Title), Model: m.editModel}
	specific := sp.SpecificInstruction
	if specific == "" {
		specific = sp.Reasoning
	}
	if specific == "" {
		specific = instruction
	}
	res, err := m.gateway.Complete(ctx, providers.CompletionRequest{
		Operation: opSectionEdit,
		Prompt: prompts.BuildSectionEditPrompt(
			sec.Title,
			sec.Text,
			string(sp.Action),
			specific,
			FormatReportContext(rep, index),
			formatSectionReferences(sec, sp.NewPapers, quotesByID),
		),
		Model: m.editModel,
	})
	if err != nil {
		return report.GeneratedSection{}, cost, err
	}
	cost.Cost, cost.Model, cost.Tokens = res.Cost, res.Model, tokenUsage(res)

	edited := report.GeneratedSection{
		Title: sec.Title,
		// TLDR and citations are stale until post-processing re-derives them
		// from the new text.
		TLDR:      sec.TLDR,
		Text:      res.Text,
		Citations: markStale(sec.Citations),
	}
	if sp.Action != ActionReplace {
		edited.Table = sec.Table
	}
	return edited, cost, nil
}

func (m *Machine) createSection(ctx context.Context, rep *report.GeneratedReport, ns NewSection, quotesByID map[int64]report.Quote) (report.GeneratedSection, report.StepCost, error) {
	cost := report.StepCost{Step: fmt.Sprintf("%s:%s", opNewSection, ns.Title), Model: m.editModel}
	var refs []report.Quote
	for _, id := range ns.Papers {
		if q, ok := quotesByID[id]; ok {
			refs = append(refs, q)
		}
	}
	res, err := m.gateway.Complete(ctx, providers.CompletionRequest{
		Operation: opNewSection,
		Prompt: prompts.BuildNewSectionPrompt(
			FormatReportSummary(rep),
			ns.Title,
			ns.Instruction,
			pipeline.FormatSectionReferences(refs),
		),
		Model: m.editModel,
	})
	if err != nil {
		return report.GeneratedSection{}, cost, err
	}
	cost.Cost, cost.Model, cost.Tokens = res.Cost, res.Model, tokenUsage(res)

	return report.GeneratedSection{
		Title:     ns.Title,
		Text:      res.Text,
		Citations: citationsFor(ns.Papers, quotesByID),
	}, cost, nil
}

// assemble builds the patched report: surviving sections in original order
// with edits substituted in place, new sections appended, costs aggregated.
func (m *Machine) assemble(original *report.GeneratedReport, plan Plan, sections []report.GeneratedSection, steps []report.StepCost, quotesByID map[int64]report.Quote) *report.GeneratedReport {
	title := plan.ReportTitle
	if title == "" {
		title = original.Title
	}
	rep := &report.GeneratedReport{
		Title:          title,
		Sections:       sections,
		StepCosts:      steps,
		QuotesMetadata: mergeQuotesMetadata(original.QuotesMetadata, quotesByID),
	}
	for _, step := range steps {
		rep.TotalCost += step.Cost
		rep.Tokens.Add(step.Tokens)
	}
	return rep
}

func markStale(citations []report.Citation) []report.Citation {
	out := make([]report.Citation, len(citations))
	for i, cit := range citations {
		cit.Stale = true
		out[i] = cit
	}
	return out
}

func citationsFor(ids []int64, quotesByID map[int64]report.Quote) []report.Citation {
	var citations []report.Citation
	for _, id := range ids {
		q, ok := quotesByID[id]
		if !ok {
			continue
		}
		key, ok := report.ParseCitationKey(q.Key)
		if !ok {
			continue
		}
		citations = append(citations, report.Citation{
			Paper: report.ScoredReference{
				CorpusID:   key.CorpusID,
				AuthorStr:  key.AuthorRef,
				Year:       key.Year,
				NCitations: key.NCitations,
			},
			Snippets: []string{q.Text},
			Stale:    true,
		})
	}
	return citations
}

func mergeQuotesMetadata(existing map[string][]report.SnippetMeta, quotesByID map[int64]report.Quote) map[string][]report.SnippetMeta {
	if len(existing) == 0 && len(quotesByID) == 0 {
		return nil
	}
	merged := make(map[string][]report.SnippetMeta, len(existing)+len(quotesByID))
	for k, v := range existing {
		merged[k] = v
	}
	for _, q := range quotesByID {
		if _, ok := merged[q.Key]; !ok {
			merged[q.Key] = []report.SnippetMeta{{Quote: q.Text}}
		}
	}
	return merged
}

func tokenUsage(res providers.CompletionResult) report.TokenUsage {
	return report.TokenUsage{
		Input:     res.InputTokens,
		Output:    res.OutputTokens,
		Total:     res.TotalTokens,
		Reasoning: res.ReasoningTokens,
	}
}
