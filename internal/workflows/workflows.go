package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"paperforge/internal/activities"
)

const QueryGetTaskProgress = "GetTaskProgress"

// GenerateReportWorkflow runs one initial report generation: task bookkeeping,
// the pipeline itself, and the final artifact merge. The pipeline activity is
// one long call because section synthesis is a sequential fold; progress is
// streamed into the artifact from inside the activity.
func GenerateReportWorkflow(ctx workflow.Context, input GenerateReportInput) (string, error) {
	progress := TaskProgress{TaskID: input.TaskID, CurrentStage: "init", Status: "running"}
	if err := workflow.SetQueryHandler(ctx, QueryGetTaskProgress, func() (TaskProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	})
	_ = workflow.ExecuteActivity(ctx, "CreateTaskActivity", activities.CreateTaskInput{
		TaskID:    input.TaskID,
		ThreadID:  input.ThreadID,
		MessageID: input.MessageID,
		Kind:      "generate",
		Query:     input.Query,
	}).Get(ctx, nil)

	pipelineCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    2,
		},
	})

	progress.CurrentStage = "generate"
	var genOut activities.GenerateReportOutput
	if err := workflow.ExecuteActivity(pipelineCtx, "GenerateReportActivity", activities.GenerateReportInput{
		TaskID:     input.TaskID,
		ThreadID:   input.ThreadID,
		MessageID:  input.MessageID,
		Query:      input.Query,
		References: input.References,
	}).Get(ctx, &genOut); err != nil {
		return failTask(ctx, &progress, input.TaskID, err)
	}

	progress.CurrentStage = "write_report"
	var writeOut activities.WriteReportOutput
	if err := workflow.ExecuteActivity(ctx, "WriteReportActivity", activities.WriteReportInput{
		TaskID:    input.TaskID,
		ThreadID:  input.ThreadID,
		MessageID: input.MessageID,
		Report:    genOut.Report,
	}).Get(ctx, &writeOut); err != nil {
		return failTask(ctx, &progress, input.TaskID, err)
	}

	_ = workflow.ExecuteActivity(ctx, "CompleteTaskActivity", activities.CompleteTaskInput{
		TaskID:      input.TaskID,
		TotalCost:   genOut.Report.TotalCost,
		TotalTokens: genOut.Report.Tokens.Total,
	}).Get(ctx, nil)
	progress.CurrentStage = "done"
	progress.Status = "completed"
	return "completed", nil
}

// EditReportWorkflow applies one edit instruction to the report stored in the
// thread artifact. The edit machine is all-or-nothing: any state failure
// fails the task without touching the stored report.
func EditReportWorkflow(ctx workflow.Context, input EditReportInput) (string, error) {
	progress := TaskProgress{TaskID: input.TaskID, CurrentStage: "init", Status: "running"}
	if err := workflow.SetQueryHandler(ctx, QueryGetTaskProgress, func() (TaskProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	})
	_ = workflow.ExecuteActivity(ctx, "CreateTaskActivity", activities.CreateTaskInput{
		TaskID:    input.TaskID,
		ThreadID:  input.ThreadID,
		MessageID: input.MessageID,
		Kind:      "edit",
		Query:     input.Instruction,
	}).Get(ctx, nil)

	progress.CurrentStage = "read_report"
	var readOut activities.ReadReportOutput
	if err := workflow.ExecuteActivity(ctx, "ReadReportActivity", activities.ReadReportInput{
		ThreadID:  input.ThreadID,
		MessageID: input.MessageID,
	}).Get(ctx, &readOut); err != nil {
		return failTask(ctx, &progress, input.TaskID, err)
	}

	editCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    2,
		},
	})

	progress.CurrentStage = "edit"
	var editOut activities.EditReportOutput
	if err := workflow.ExecuteActivity(editCtx, "EditReportActivity", activities.EditReportInput{
		TaskID:          input.TaskID,
		ThreadID:        input.ThreadID,
		MessageID:       input.MessageID,
		Instruction:     input.Instruction,
		MentionedPapers: input.MentionedPapers,
		Report:          readOut.Report,
		Available:       input.Available,
	}).Get(ctx, &editOut); err != nil {
		return failTask(ctx, &progress, input.TaskID, err)
	}

	progress.CurrentStage = "write_report"
	var writeOut activities.WriteReportOutput
	if err := workflow.ExecuteActivity(ctx, "WriteReportActivity", activities.WriteReportInput{
		TaskID:    input.TaskID,
		ThreadID:  input.ThreadID,
		MessageID: input.MessageID,
		Report:    editOut.Report,
	}).Get(ctx, &writeOut); err != nil {
		return failTask(ctx, &progress, input.TaskID, err)
	}

	_ = workflow.ExecuteActivity(ctx, "CompleteTaskActivity", activities.CompleteTaskInput{
		TaskID:      input.TaskID,
		TotalCost:   editOut.Report.TotalCost,
		TotalTokens: editOut.Report.Tokens.Total,
	}).Get(ctx, nil)
	progress.CurrentStage = "done"
	progress.Status = "completed"
	return "completed", nil
}

func failTask(ctx workflow.Context, progress *TaskProgress, taskID string, err error) (string, error) {
	progress.Status = "failed"
	progress.Error = err.Error()
	_ = workflow.ExecuteActivity(ctx, "FailTaskActivity", activities.FailTaskInput{
		TaskID: taskID,
		Error:  err.Error(),
	}).Get(ctx, nil)
	return "", err
}
