package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"paperforge/internal/llm"
)

type LLMCallRecord struct {
	TaskID    string
	Operation string
	Model     string
	Status    string
	ErrorType string
	Cost      float64
}

type LLMAuditRepo struct {
	db *DB
}

func NewLLMAuditRepo(db *DB) *LLMAuditRepo {
	return &LLMAuditRepo{db: db}
}

func (r *LLMAuditRepo) Insert(ctx context.Context, rec LLMCallRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO llm_calls (call_id, task_id, operation, model, status, error_type, cost)
VALUES (gen_random_uuid(), NULLIF($1,''), $2, $3, $4, NULLIF($5,''), $6)`,
		rec.TaskID, rec.Operation, rec.Model, rec.Status, rec.ErrorType, rec.Cost)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}

// AuditSink adapts the repo to the completion gateway's audit hook. Insert
// failures are logged and swallowed; auditing must never fail a completion.
type AuditSink struct {
	repo   *LLMAuditRepo
	taskID string
	logger *zap.Logger
}

func NewAuditSink(repo *LLMAuditRepo, taskID string, logger *zap.Logger) *AuditSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditSink{repo: repo, taskID: taskID, logger: logger}
}

func (s *AuditSink) Record(ctx context.Context, rec llm.AuditRecord) {
	err := s.repo.Insert(ctx, LLMCallRecord{
		TaskID:    s.taskID,
		Operation: rec.Operation,
		Model:     rec.Model,
		Status:    rec.Status,
		ErrorType: rec.ErrorType,
		Cost:      rec.Cost,
	})
	if err != nil {
		s.logger.Warn("recording llm call failed", zap.Error(err))
	}
}
