package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"paperforge/internal/llm"
	"paperforge/internal/pipeline"
	"paperforge/internal/providers"
)

// run executes the generation pipeline in-process, without Temporal or
// Postgres. Useful with the mock provider for smoke-testing prompts.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run report generation locally without the worker fleet",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		refsPath, _ := cmd.Flags().GetString("references")
		if query == "" || refsPath == "" {
			return fmt.Errorf("--query and --references are required")
		}

		refs, err := loadReferences(refsPath)
		if err != nil {
			return err
		}

		pm, err := providers.NewManager(cfg.LLMProviders)
		if err != nil {
			return err
		}
		gateway := llm.New(pm, llm.Options{
			MaxRetries: cfg.CompletionRetry,
			MaxTokens:  cfg.MaxTokens,
			Logger:     logger,
		})
		runner, err := pipeline.NewRunner(gateway, pipeline.RunnerConfig{
			GenerateModel:  cfg.GenerateModel,
			PlanModel:      cfg.EditPlanModel,
			QuoteWorkers:   cfg.QuoteWorkers,
			MinQuoteLength: cfg.MinQuoteLength,
		}, logger)
		if err != nil {
			return err
		}

		rep, err := runner.Run(cmd.Context(), pipeline.InitialRequest{
			Query:      query,
			References: refs,
			Progress: func(step string) {
				logger.Info("pipeline step", zap.String("step", step))
			},
		})
		if err != nil {
			return err
		}

		raw, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(raw))
		return nil
	},
}

func init() {
	runCmd.Flags().String("query", "", "research question to answer")
	runCmd.Flags().String("references", "", "path to a JSON array of scored references")

	rootCmd.AddCommand(runCmd)
}
