package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"paperforge/internal/workflows"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Submit an edit task against an existing report",
	Long: `Edit starts an edit workflow for the report stored under a thread
message. Mentioned papers pin specific corpus ids that the instruction refers
to; available references supply new material for expansions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		threadID, _ := cmd.Flags().GetString("thread")
		messageID, _ := cmd.Flags().GetString("message")
		instruction, _ := cmd.Flags().GetString("instruction")
		mentioned, _ := cmd.Flags().GetInt64Slice("papers")
		refsPath, _ := cmd.Flags().GetString("references")
		wait, _ := cmd.Flags().GetBool("wait")
		if threadID == "" || messageID == "" || instruction == "" {
			return fmt.Errorf("--thread, --message and --instruction are required")
		}

		refs, err := loadReferences(refsPath)
		if err != nil {
			return err
		}

		c, err := dialTemporal()
		if err != nil {
			return err
		}
		defer c.Close()

		taskID := uuid.NewString()
		run, err := c.ExecuteWorkflow(cmd.Context(), client.StartWorkflowOptions{
			ID:        "edit-" + taskID,
			TaskQueue: cfg.TemporalTaskQueue,
		}, workflows.EditReportWorkflow, workflows.EditReportInput{
			TaskID:          taskID,
			ThreadID:        threadID,
			MessageID:       messageID,
			Instruction:     instruction,
			MentionedPapers: mentioned,
			Available:       refs,
		})
		if err != nil {
			return err
		}
		logger.Info("submitted edit task",
			zap.String("task_id", taskID),
			zap.String("workflow_id", run.GetID()))
		fmt.Println(taskID)

		if wait {
			var out string
			if err := run.Get(cmd.Context(), &out); err != nil {
				return err
			}
			logger.Info("edit finished", zap.String("result", out))
		}
		return nil
	},
}

func init() {
	editCmd.Flags().String("thread", "", "thread artifact id")
	editCmd.Flags().String("message", "", "message node id inside the thread")
	editCmd.Flags().String("instruction", "", "edit instruction")
	editCmd.Flags().Int64Slice("papers", nil, "corpus ids mentioned by the instruction")
	editCmd.Flags().String("references", "", "path to a JSON array of scored references")
	editCmd.Flags().Bool("wait", false, "block until the workflow finishes")

	rootCmd.AddCommand(editCmd)
}
