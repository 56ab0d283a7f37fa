package activities

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"paperforge/internal/artifact"
	"paperforge/internal/config"
	"paperforge/internal/edit"
	"paperforge/internal/llm"
	"paperforge/internal/pipeline"
	"paperforge/internal/providers"
	"paperforge/internal/report"
	"paperforge/internal/storage"
)

type Activities struct {
	cfg          config.Config
	store        *artifact.Store
	taskRepo     *storage.TaskRepo
	llmAuditRepo *storage.LLMAuditRepo
	providers    *providers.Manager
	cache        *llm.Cache
	logger       *zap.Logger
}

func New(cfg config.Config, db *storage.DB, logger *zap.Logger) (*Activities, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pm, err := providers.NewManager(cfg.LLMProviders)
	if err != nil {
		return nil, err
	}
	store, err := artifact.NewStore(cfg.ArtifactDir, logger)
	if err != nil {
		return nil, err
	}
	var cache *llm.Cache
	if cfg.RedisURL != "" {
		cache, err = llm.NewCache(cfg.RedisURL, 0)
		if err != nil {
			return nil, fmt.Errorf("completion cache: %w", err)
		}
	}
	return &Activities{
		cfg:          cfg,
		store:        store,
		taskRepo:     storage.NewTaskRepo(db),
		llmAuditRepo: storage.NewLLMAuditRepo(db),
		providers:    pm,
		cache:        cache,
		logger:       logger,
	}, nil
}

// gatewayFor builds the completion gateway for one task, wiring the per-task
// audit sink so every attempt lands in llm_calls.
func (a *Activities) gatewayFor(taskID string) *llm.Gateway {
	return llm.New(a.providers, llm.Options{
		Fallbacks:  splitModels(a.cfg.FallbackModels),
		MaxRetries: a.cfg.CompletionRetry,
		MaxTokens:  a.cfg.MaxTokens,
		Cache:      a.cache,
		Logger:     a.logger,
		Audit:      storage.NewAuditSink(a.llmAuditRepo, taskID, a.logger),
	})
}

func (a *Activities) CreateTaskActivity(ctx context.Context, in CreateTaskInput) error {
	return a.taskRepo.CreateTask(ctx, in.TaskID, in.ThreadID, in.MessageID, in.Kind, in.Query)
}

func (a *Activities) CompleteTaskActivity(ctx context.Context, in CompleteTaskInput) error {
	return a.taskRepo.CompleteTask(ctx, in.TaskID, in.TotalCost, in.TotalTokens)
}

func (a *Activities) FailTaskActivity(ctx context.Context, in FailTaskInput) error {
	return a.taskRepo.FailTask(ctx, in.TaskID, in.Error)
}

// GenerateReportActivity runs the initial pipeline end to end for one task,
// streaming progress steps into the thread artifact as it goes.
func (a *Activities) GenerateReportActivity(ctx context.Context, in GenerateReportInput) (GenerateReportOutput, error) {
	runner, err := pipeline.NewRunner(a.gatewayFor(in.TaskID), pipeline.RunnerConfig{
		GenerateModel:  a.cfg.GenerateModel,
		PlanModel:      a.cfg.EditPlanModel,
		QuoteWorkers:   a.cfg.QuoteWorkers,
		MinQuoteLength: a.cfg.MinQuoteLength,
	}, a.logger)
	if err != nil {
		return GenerateReportOutput{}, err
	}

	progress := artifact.NewProgressWriter(a.store, in.ThreadID, in.MessageID, in.TaskID)
	rep, err := runner.Run(ctx, pipeline.InitialRequest{
		Query:      in.Query,
		References: in.References,
		Progress:   func(step string) { progress.AddStep(step) },
	})
	if err != nil {
		return GenerateReportOutput{}, err
	}
	return GenerateReportOutput{Report: rep}, nil
}

// EditReportActivity runs the edit state machine for one task. Any state
// failure aborts the whole edit; no partially edited report is produced.
func (a *Activities) EditReportActivity(ctx context.Context, in EditReportInput) (EditReportOutput, error) {
	machine, err := edit.NewMachine(a.gatewayFor(in.TaskID), edit.Config{
		EditPlanModel:  a.cfg.EditPlanModel,
		EditModel:      a.cfg.GenerateModel,
		QuoteWorkers:   a.cfg.QuoteWorkers,
		MinQuoteLength: a.cfg.MinQuoteLength,
	}, a.logger)
	if err != nil {
		return EditReportOutput{}, err
	}

	progress := artifact.NewProgressWriter(a.store, in.ThreadID, in.MessageID, in.TaskID)
	rep, err := machine.Run(ctx, edit.Request{
		Report:          in.Report,
		Instruction:     in.Instruction,
		MentionedPapers: in.MentionedPapers,
		Available:       in.Available,
		Progress:        func(step string) { progress.AddStep(step) },
	})
	if err != nil {
		return EditReportOutput{}, err
	}
	return EditReportOutput{Report: rep}, nil
}

// ReadReportActivity loads the current report from the thread artifact: the
// SQA_REPORT child of the target message. Missing report is an error; edits
// need something to edit.
func (a *Activities) ReadReportActivity(ctx context.Context, in ReadReportInput) (ReadReportOutput, error) {
	_ = ctx
	root, err := a.store.Read(in.ThreadID)
	if err != nil {
		return ReadReportOutput{}, err
	}
	msg := root.FindChild(in.MessageID)
	if msg == nil {
		return ReadReportOutput{}, fmt.Errorf("message %s not found in thread %s", in.MessageID, in.ThreadID)
	}
	for _, child := range msg.Children {
		if child.Data.Type != artifact.NodeReport {
			continue
		}
		var rep report.GeneratedReport
		if err := json.Unmarshal(child.Data.Data, &rep); err != nil {
			return ReadReportOutput{}, fmt.Errorf("parsing report node %s: %w", child.ID, err)
		}
		return ReadReportOutput{
			Report: &rep,
			TaskID: strings.TrimPrefix(child.ID, "report-"),
		}, nil
	}
	return ReadReportOutput{}, fmt.Errorf("no report found under message %s", in.MessageID)
}

// WriteReportActivity merges the finished report into the thread artifact.
func (a *Activities) WriteReportActivity(ctx context.Context, in WriteReportInput) (WriteReportOutput, error) {
	_ = ctx
	writer := artifact.NewReportWriter(a.store, in.ThreadID, in.MessageID, in.TaskID)
	written := writer.WriteReport(in.Report)
	if !written {
		a.logger.Warn("report was not written to thread artifact",
			zap.String("thread_id", in.ThreadID), zap.String("task_id", in.TaskID))
	}
	return WriteReportOutput{Written: written}, nil
}

func (a *Activities) Close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
}

func splitModels(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
