package workflows

import "paperforge/internal/report"

type GenerateReportInput struct {
	TaskID     string
	ThreadID   string
	MessageID  string
	Query      string
	References []report.ScoredReference
}

type EditReportInput struct {
	TaskID          string
	ThreadID        string
	MessageID       string
	Instruction     string
	MentionedPapers []int64
	Available       []report.ScoredReference
}

// TaskProgress is exposed through a workflow query so callers can poll the
// current stage without reading the artifact file.
type TaskProgress struct {
	TaskID       string
	CurrentStage string
	Status       string
	Error        string
}
