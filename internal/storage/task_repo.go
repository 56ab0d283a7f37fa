package storage

import (
	"context"
	"fmt"
)

const (
	TaskStarted   = "STARTED"
	TaskCompleted = "COMPLETED"
	TaskFailed    = "FAILED"
)

// TaskRepo tracks pipeline task lifecycles. The artifact tree only ever holds
// fully-formed nodes, so failures surface here as a FAILED row with the error
// message.
type TaskRepo struct {
	db *DB
}

func NewTaskRepo(db *DB) *TaskRepo {
	return &TaskRepo{db: db}
}

func (r *TaskRepo) CreateTask(ctx context.Context, taskID, threadID, messageID, kind, query string) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO tasks (task_id, thread_id, message_id, kind, query, status)
VALUES ($1, $2, $3, $4, $5, 'STARTED')`, taskID, threadID, messageID, kind, query)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepo) CompleteTask(ctx context.Context, taskID string, totalCost float64, totalTokens int) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE tasks SET status='COMPLETED', total_cost=$2, total_tokens=$3, finished_at=now()
WHERE task_id=$1`, taskID, totalCost, totalTokens)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return nil
}

func (r *TaskRepo) FailTask(ctx context.Context, taskID, errorMessage string) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE tasks SET status='FAILED', error_message=NULLIF($2,''), finished_at=now()
WHERE task_id=$1`, taskID, errorMessage)
	if err != nil {
		return fmt.Errorf("fail task: %w", err)
	}
	return nil
}

func (r *TaskRepo) GetTaskStatus(ctx context.Context, taskID string) (string, string, error) {
	var status, errMsg string
	if err := r.db.Pool.QueryRow(ctx, `
SELECT status, COALESCE(error_message,'') FROM tasks WHERE task_id=$1`, taskID).Scan(&status, &errMsg); err != nil {
		return "", "", fmt.Errorf("get task: %w", err)
	}
	return status, errMsg, nil
}
