package activities

import "paperforge/internal/report"

type CreateTaskInput struct {
	TaskID    string
	ThreadID  string
	MessageID string
	Kind      string
	Query     string
}

type CompleteTaskInput struct {
	TaskID      string
	TotalCost   float64
	TotalTokens int
}

type FailTaskInput struct {
	TaskID string
	Error  string
}

type GenerateReportInput struct {
	TaskID     string
	ThreadID   string
	MessageID  string
	Query      string
	References []report.ScoredReference
}

type GenerateReportOutput struct {
	Report *report.GeneratedReport
}

type EditReportInput struct {
	TaskID          string
	ThreadID        string
	MessageID       string
	Instruction     string
	MentionedPapers []int64
	Report          *report.GeneratedReport
	Available       []report.ScoredReference
}

type EditReportOutput struct {
	Report *report.GeneratedReport
}

type ReadReportInput struct {
	ThreadID  string
	MessageID string
}

type ReadReportOutput struct {
	Report *report.GeneratedReport
	TaskID string
}

type WriteReportInput struct {
	TaskID    string
	ThreadID  string
	MessageID string
	Report    *report.GeneratedReport
}

type WriteReportOutput struct {
	Written bool
}
