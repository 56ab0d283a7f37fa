package edit

import (
	"encoding/json"
	"fmt"
	"strings"

	"paperforge/internal/pipeline"
)

// Action is the disposition applied to one report section during an edit.
type Action string

const (
	ActionKeep    Action = "keep"
	ActionExpand  Action = "expand"
	ActionAddTo   Action = "add_to"
	ActionReplace Action = "replace"
	ActionDelete  Action = "delete"
	ActionNew     Action = "new"
)

// UnmarshalJSON validates the action at the parse boundary so malformed plans
// fail fast instead of surfacing as unknown strings mid-apply.
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	action := Action(strings.ToLower(strings.TrimSpace(raw)))
	switch action {
	case ActionKeep, ActionExpand, ActionAddTo, ActionReplace, ActionDelete, ActionNew:
		*a = action
		return nil
	default:
		return fmt.Errorf("unknown edit action %q", raw)
	}
}

// SearchDecision is the outcome of the first edit state: whether fulfilling
// the instruction requires retrieving new papers.
type SearchDecision struct {
	NeedsSearch bool   `json:"needs_search"`
	SearchQuery string `json:"search_query"`
	Reasoning   string `json:"reasoning"`
}

// ParseSearchDecision parses the decide-search completion. A parse failure
// aborts the whole edit; there is no safe partial edit without a decision.
func ParseSearchDecision(raw string) (SearchDecision, error) {
	var d SearchDecision
	if err := json.Unmarshal([]byte(pipeline.StripCodeFences(raw)), &d); err != nil {
		return SearchDecision{}, fmt.Errorf("search decision did not parse: %w", err)
	}
	return d, nil
}

// SectionPlan is the planned disposition for one existing section.
type SectionPlan struct {
	SectionIndex        int     `json:"section_index"`
	SectionTitle        string  `json:"section_title"`
	Action              Action  `json:"action"`
	Reasoning           string  `json:"reasoning"`
	NewPapers           []int64 `json:"new_papers"`
	SpecificInstruction string  `json:"specific_instruction"`
}

// NewSection describes a wholly new section the plan wants appended.
type NewSection struct {
	Title       string  `json:"title"`
	Instruction string  `json:"instruction"`
	Papers      []int64 `json:"papers"`
}

// Plan is the full edit plan: one SectionPlan per existing section plus any
// new sections to create.
type Plan struct {
	CoT          string        `json:"cot"`
	ReportTitle  string        `json:"report_title"`
	SectionPlans []SectionPlan `json:"section_plans"`
	NewSections  []NewSection  `json:"new_sections"`
}

func ParsePlan(raw string) (Plan, error) {
	var p Plan
	if err := json.Unmarshal([]byte(pipeline.StripCodeFences(raw)), &p); err != nil {
		return Plan{}, fmt.Errorf("edit plan did not parse: %w", err)
	}
	if len(p.SectionPlans) == 0 && len(p.NewSections) == 0 {
		return Plan{}, fmt.Errorf("edit plan is empty")
	}
	return p, nil
}
