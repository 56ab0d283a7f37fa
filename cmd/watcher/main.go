package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"paperforge/internal/config"
	"paperforge/internal/watcher"
	"paperforge/internal/workflows"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

// The watcher bridges the UI's file drops to Temporal: whenever a thread
// artifact shows up with an unanswered message, it starts a report workflow
// for that message. References are resolved by the retrieval service before
// the thread is written, so the trigger carries only the query.
func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal("temporal dial failed", zap.Error(err))
	}
	defer c.Close()

	handler := func(ctx context.Context, trig watcher.Trigger) {
		taskID := uuid.NewString()
		run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:        "generate-" + taskID,
			TaskQueue: cfg.TemporalTaskQueue,
		}, workflows.GenerateReportWorkflow, workflows.GenerateReportInput{
			TaskID:    taskID,
			ThreadID:  trig.ThreadID,
			MessageID: trig.MessageID,
			Query:     trig.Query,
		})
		if err != nil {
			logger.Error("could not start report workflow",
				zap.String("thread_id", trig.ThreadID), zap.Error(err))
			return
		}
		logger.Info("started report workflow",
			zap.String("workflow_id", run.GetID()),
			zap.String("task_id", taskID),
			zap.String("thread_id", trig.ThreadID))
	}

	w, err := watcher.New(cfg.ArtifactDir, handler, logger)
	if err != nil {
		logger.Fatal("watcher setup failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("watcher stopped", zap.Error(err))
	}
}
