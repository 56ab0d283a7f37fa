package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"paperforge/internal/report"
	"paperforge/internal/workflows"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Submit a report generation task",
	Long: `Generate starts a report workflow for one thread message. References
come from a JSON file of scored snippets produced by the retrieval service.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		threadID, _ := cmd.Flags().GetString("thread")
		messageID, _ := cmd.Flags().GetString("message")
		query, _ := cmd.Flags().GetString("query")
		refsPath, _ := cmd.Flags().GetString("references")
		wait, _ := cmd.Flags().GetBool("wait")
		if threadID == "" || messageID == "" || query == "" {
			return fmt.Errorf("--thread, --message and --query are required")
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
			ID:        "generate-" + taskID,
			TaskQueue: cfg.TemporalTaskQueue,
		}, workflows.GenerateReportWorkflow, workflows.GenerateReportInput{
			TaskID:     taskID,
			ThreadID:   threadID,
			MessageID:  messageID,
			Query:      query,
			References: refs,
		})
		if err != nil {
			return err
		}
		logger.Info("submitted generation task",
			zap.String("task_id", taskID),
			zap.String("workflow_id", run.GetID()),
			zap.Int("references", len(refs)))
		fmt.Println(taskID)

		if wait {
			var out string
			if err := run.Get(cmd.Context(), &out); err != nil {
				return err
			}
			logger.Info("generation finished", zap.String("result", out))
		}
		return nil
	},
}

func loadReferences(path string) ([]report.ScoredReference, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading references: %w", err)
	}
	var refs []report.ScoredReference
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil, fmt.Errorf("parsing references: %w", err)
	}
	return refs, nil
}

func init() {
	generateCmd.Flags().String("thread", "", "thread artifact id")
	generateCmd.Flags().String("message", "", "message node id inside the thread")
	generateCmd.Flags().String("query", "", "research question to answer")
	generateCmd.Flags().String("references", "", "path to a JSON array of scored references")
	generateCmd.Flags().Bool("wait", false, "block until the workflow finishes")

	rootCmd.AddCommand(generateCmd)
}
