package main

import (
	"fmt"

	"github.com/spf13/cobra"
	enumspb "go.temporal.io/api/enums/v1"

	"paperforge/internal/workflows"
)

var statusCmd = &cobra.Command{
	Use:   "status <workflow-id>",
	Short: "Show progress of a running or finished task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workflowID := args[0]
		c, err := dialTemporal()
		if err != nil {
			return err
		}
		defer c.Close()

		desc, err := c.DescribeWorkflowExecution(cmd.Context(), workflowID, "")
		if err != nil {
			return err
		}
		execStatus := desc.GetWorkflowExecutionInfo().GetStatus()
		fmt.Printf("workflow: %s\nstatus:   %s\n", workflowID, execStatus)

		// The progress query only answers while the workflow is still alive.
		if execStatus != enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING {
			return nil
		}
		resp, err := c.QueryWorkflow(cmd.Context(), workflowID, "", workflows.QueryGetTaskProgress)
		if err != nil {
			return err
		}
		var progress workflows.TaskProgress
		if err := resp.Get(&progress); err != nil {
			return err
		}
		fmt.Printf("task:     %s\nstage:    %s\nstate:    %s\n", progress.TaskID, progress.CurrentStage, progress.Status)
		if progress.Error != "" {
			fmt.Printf("error:    %s\n", progress.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
