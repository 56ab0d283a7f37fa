package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	"paperforge/internal/activities"
	"paperforge/internal/report"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func registerTaskActivities(env *testsuite.TestWorkflowEnvironment) {
	registerActivityName(env, "CreateTaskActivity", func(context.Context, activities.CreateTaskInput) error { return nil })
	registerActivityName(env, "CompleteTaskActivity", func(context.Context, activities.CompleteTaskInput) error { return nil })
	registerActivityName(env, "FailTaskActivity", func(context.Context, activities.FailTaskInput) error { return nil })
}

func sampleReport() *report.GeneratedReport {
	return &report.GeneratedReport{
		Title: "Sample Report",
		Sections: []report.GeneratedSection{
			{Title: "Findings", TLDR: "What we found.", Text: "Body."},
		},
		TotalCost: 0.12,
		Tokens:    report.TokenUsage{Total: 900},
	}
}

func TestGenerateReportWorkflowSuccess(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(GenerateReportWorkflow)
	registerTaskActivities(env)
	registerActivityName(env, "GenerateReportActivity", func(context.Context, activities.GenerateReportInput) (activities.GenerateReportOutput, error) {
		return activities.GenerateReportOutput{}, nil
	})
	registerActivityName(env, "WriteReportActivity", func(context.Context, activities.WriteReportInput) (activities.WriteReportOutput, error) {
		return activities.WriteReportOutput{}, nil
	})

	env.OnActivity("CreateTaskActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("GenerateReportActivity", mock.Anything, mock.Anything).Return(activities.GenerateReportOutput{Report: sampleReport()}, nil)
	env.OnActivity("WriteReportActivity", mock.Anything, mock.Anything).Return(activities.WriteReportOutput{Written: true}, nil)
	env.OnActivity("CompleteTaskActivity", mock.Anything, activities.CompleteTaskInput{TaskID: "task-1", TotalCost: 0.12, TotalTokens: 900}).Return(nil)

	env.ExecuteWorkflow(GenerateReportWorkflow, GenerateReportInput{
		TaskID:    "task-1",
		ThreadID:  "thread-1",
		MessageID: "message-1",
		Query:     "how does attention work?",
	})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "completed", out)
}

func TestGenerateReportWorkflowMarksTaskFailed(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(GenerateReportWorkflow)
	registerTaskActivities(env)
	registerActivityName(env, "GenerateReportActivity", func(context.Context, activities.GenerateReportInput) (activities.GenerateReportOutput, error) {
		return activities.GenerateReportOutput{}, nil
	})

	env.OnActivity("CreateTaskActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("GenerateReportActivity", mock.Anything, mock.Anything).Return(activities.GenerateReportOutput{}, errors.New("no relevant quotes extracted"))
	env.OnActivity("FailTaskActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(GenerateReportWorkflow, GenerateReportInput{
		TaskID:    "task-1",
		ThreadID:  "thread-1",
		MessageID: "message-1",
		Query:     "q",
	})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	env.AssertCalled(t, "FailTaskActivity", mock.Anything, mock.Anything)
}

func TestEditReportWorkflowSuccess(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(EditReportWorkflow)
	registerTaskActivities(env)
	registerActivityName(env, "ReadReportActivity", func(context.Context, activities.ReadReportInput) (activities.ReadReportOutput, error) {
		return activities.ReadReportOutput{}, nil
	})
	registerActivityName(env, "EditReportActivity", func(context.Context, activities.EditReportInput) (activities.EditReportOutput, error) {
		return activities.EditReportOutput{}, nil
	})
	registerActivityName(env, "WriteReportActivity", func(context.Context, activities.WriteReportInput) (activities.WriteReportOutput, error) {
		return activities.WriteReportOutput{}, nil
	})

	env.OnActivity("CreateTaskActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("ReadReportActivity", mock.Anything, activities.ReadReportInput{ThreadID: "thread-1", MessageID: "message-1"}).
		Return(activities.ReadReportOutput{Report: sampleReport(), TaskID: "task-0"}, nil)
	env.OnActivity("EditReportActivity", mock.Anything, mock.Anything).Return(activities.EditReportOutput{Report: sampleReport()}, nil)
	env.OnActivity("WriteReportActivity", mock.Anything, mock.Anything).Return(activities.WriteReportOutput{Written: true}, nil)
	env.OnActivity("CompleteTaskActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(EditReportWorkflow, EditReportInput{
		TaskID:      "task-2",
		ThreadID:    "thread-1",
		MessageID:   "message-1",
		Instruction: "expand the findings",
	})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
}

func TestEditReportWorkflowFailsWithoutExistingReport(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(EditReportWorkflow)
	registerTaskActivities(env)
	registerActivityName(env, "ReadReportActivity", func(context.Context, activities.ReadReportInput) (activities.ReadReportOutput, error) {
		return activities.ReadReportOutput{}, nil
	})

	env.OnActivity("CreateTaskActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("ReadReportActivity", mock.Anything, mock.Anything).
		Return(activities.ReadReportOutput{}, errors.New("no report found under message message-1"))
	env.OnActivity("FailTaskActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(EditReportWorkflow, EditReportInput{
		TaskID:      "task-2",
		ThreadID:    "thread-1",
		MessageID:   "message-1",
		Instruction: "expand",
	})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	env.AssertCalled(t, "FailTaskActivity", mock.Anything, mock.Anything)
}
