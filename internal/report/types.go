package report

import "context"

// ScoredReference is one (paper, snippet-or-abstract) candidate produced by the
// external reranker. Read-only to the pipeline.
type ScoredReference struct {
	CorpusID   int64   `json:"corpus_id"`
	AuthorStr  string  `json:"author_str"`
	Year       int     `json:"year"`
	NCitations int     `json:"n_citations"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// SnippetMeta records the provenance of one snippet behind a citation key.
type SnippetMeta struct {
	Quote           string `json:"quote"`
	SectionTitle    string `json:"section_title"`
	PDFHash         string `json:"pdf_hash,omitempty"`
	SentenceOffsets []int  `json:"sentence_offsets,omitempty"`
}

// Quote is one extracted quote keyed by its citation key. InlineCitations maps
// citation keys discovered inside the outer quote to their own quoted text.
type Quote struct {
	Key             string            `json:"key"`
	Text            string            `json:"text"`
	InlineCitations map[string]string `json:"inline_citations,omitempty"`
}

type TokenUsage struct {
	Input     int `json:"input"`
	Output    int `json:"output"`
	Total     int `json:"total"`
	Reasoning int `json:"reasoning"`
}

func (t *TokenUsage) Add(other TokenUsage) {
	t.Input += other.Input
	t.Output += other.Output
	t.Total += other.Total
	t.Reasoning += other.Reasoning
}

// StepCost is the billing record for one completion step, kept even when the
// generated content itself is discarded.
type StepCost struct {
	Step   string     `json:"step"`
	Model  string     `json:"model"`
	Cost   float64    `json:"cost"`
	Tokens TokenUsage `json:"tokens"`
}

// Citation ties a section back to a source paper and the snippets used.
// Stale marks citation lists that must be regenerated by post-processing after
// a section edit rewrote the surrounding text.
type Citation struct {
	Paper    ScoredReference `json:"paper"`
	Snippets []string        `json:"snippets"`
	Score    float64         `json:"score"`
	Stale    bool            `json:"stale,omitempty"`
}

// Table is an optional tabular rendering attached to a section.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

type GeneratedSection struct {
	Title     string     `json:"title"`
	TLDR      string     `json:"tldr"`
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
	Table     *Table     `json:"table,omitempty"`
}

// GeneratedReport is the unit persisted into the artifact tree and the unit an
// edit operates on.
type GeneratedReport struct {
	Title          string                   `json:"report_title"`
	Sections       []GeneratedSection       `json:"sections"`
	TotalCost      float64                  `json:"total_cost"`
	Tokens         TokenUsage               `json:"tokens"`
	StepCosts      []StepCost               `json:"step_costs,omitempty"`
	QuotesMetadata map[string][]SnippetMeta `json:"quotes_metadata,omitempty"`
}

// PostProcessor is the downstream collaborator that re-derives structured
// citations and TLDRs from raw edited section text. Its implementation is owned
// elsewhere; edited sections carry stale citation lists until it runs.
type PostProcessor interface {
	Refresh(ctx context.Context, section *GeneratedSection) error
}
