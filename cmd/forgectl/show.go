package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"paperforge/internal/artifact"
	"paperforge/internal/report"
)

var showCmd = &cobra.Command{
	Use:   "show <thread-id>",
	Short: "Print the report stored in a thread artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		threadID := args[0]
		asJSON, _ := cmd.Flags().GetBool("json")

		store, err := artifact.NewStore(cfg.ArtifactDir, logger)
		if err != nil {
			return err
		}
		root, err := store.Read(threadID)
		if err != nil {
			return err
		}

		rep, found := findReport(root)
		if !found {
			return fmt.Errorf("thread %s has no report yet", threadID)
		}
		if asJSON {
			raw, err := json.MarshalIndent(rep, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(raw))
			return nil
		}
		fmt.Print(renderMarkdown(rep))
		return nil
	},
}

func findReport(root *artifact.Node) (*report.GeneratedReport, bool) {
	for _, msg := range root.Children {
		if msg.Data.Type != artifact.NodeMessage {
			continue
		}
		for _, child := range msg.Children {
			if child.Data.Type != artifact.NodeReport {
				continue
			}
			var rep report.GeneratedReport
			if err := json.Unmarshal(child.Data.Data, &rep); err != nil {
				continue
			}
			return &rep, true
		}
	}
	return nil, false
}

func renderMarkdown(rep *report.GeneratedReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", rep.Title)
	for _, sec := range rep.Sections {
		fmt.Fprintf(&b, "## %s\n\n", sec.Title)
		if sec.TLDR != "" {
			fmt.Fprintf(&b, "*%s*\n\n", sec.TLDR)
		}
		fmt.Fprintf(&b, "%s\n\n", sec.Text)
	}
	fmt.Fprintf(&b, "---\ncost: $%.4f, tokens: %d\n", rep.TotalCost, rep.Tokens.Total)
	return b.String()
}

func init() {
	showCmd.Flags().Bool("json", false, "print the raw report JSON")
	rootCmd.AddCommand(showCmd)
}
