package model

import (
	"time"
)

// Phase is the step a run will execute next. Persisted with the state so a
// resumed or retried run continues exactly where it stopped.
type Phase string

const (
	PhaseDecompose      Phase = "decompose"
	PhaseRetrieve       Phase = "retrieve"
	PhaseRerank         Phase = "rerank"
	PhaseSynthesize     Phase = "synthesize"
	PhaseAwaitingReview Phase = "awaiting_review"
	PhaseFinalized      Phase = "finalized"
)

// Suspended reports whether the run is parked at the approval point.
func (p Phase) Suspended() bool { return p == PhaseAwaitingReview }

// Terminal reports whether the run has finished.
func (p Phase) Terminal() bool { return p == PhaseFinalized }

// Source identifies one of the three retrieval backends.
type Source string

const (
	SourceWeb          Source = "web"
	SourceAcademic     Source = "academic"
	SourceEncyclopedia Source = "encyclopedia"
)

// Sources is the fixed fan-out order; merged results follow it.
var Sources = []Source{SourceWeb, SourceAcademic, SourceEncyclopedia}

// ContentKind tags the shape of a successful retrieval payload.
type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentItems ContentKind = "items"
)

// ContentItem is one hit of a list-shaped search response.
type ContentItem struct {
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet"`
}

// Content is the normalized payload of a retrieval call: either free text or a
// list of titled snippets.
type Content struct {
	Kind  ContentKind   `json:"kind"`
	Text  string        `json:"text,omitempty"`
	Items []ContentItem `json:"items,omitempty"`
}

// TextContent wraps plain text.
func TextContent(text string) Content {
	return Content{Kind: ContentText, Text: text}
}

// ItemsContent wraps a list of hits.
func ItemsContent(items []ContentItem) Content {
	return Content{Kind: ContentItems, Items: items}
}

// IsEmpty reports whether the payload carries nothing.
func (c Content) IsEmpty() bool {
	return c.Text == "" && len(c.Items) == 0
}

// SourceResult is the outcome of one (source, sub-query) retrieval. Exactly
// one of Content and Error is meaningful.
type SourceResult struct {
	Source  Source  `json:"source"`
	Query   string  `json:"query"`
	Content Content `json:"content"`
	Error   string  `json:"error,omitempty"`
}

// Failed reports whether the retrieval was captured as an error.
func (r SourceResult) Failed() bool { return r.Error != "" }

// EvidenceRecord is a reranked passage. Error results keep their message in
// Error; Content then holds the error text that was ranked.
type EvidenceRecord struct {
	Source  string `json:"source"`
	Query   string `json:"query"`
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

// StructuredDocument is the blog post produced by the synthesizer.
type StructuredDocument struct {
	Title          string `json:"title" yaml:"title"`
	Introduction   string `json:"introduction" yaml:"introduction"`
	BodyContent    string `json:"body_content" yaml:"body_content"`
	VisualsContext string `json:"visuals_context" yaml:"visuals_context"`
	Conclusion     string `json:"conclusion" yaml:"conclusion"`
}

// ReviewState is the approval-loop state.
type ReviewState string

const (
	ReviewAwaiting   ReviewState = "AWAITING_REVIEW"
	ReviewRegenerate ReviewState = "REGENERATE"
	ReviewFinalized  ReviewState = "FINALIZED"
)

// ReviewInfo tracks the pending suspension point and how many revisions the
// reviewer has requested.
type ReviewInfo struct {
	State     ReviewState `json:"state,omitempty"`
	Token     string      `json:"token,omitempty"`
	Revisions int         `json:"revisions"`
}

// ReviewInput is the reviewer's answer at the approval point. Token is
// optional; when set it must match the pending suspension.
type ReviewInput struct {
	Answer string `json:"answer"`
	Token  string `json:"token,omitempty"`
}

// Usage is the token usage and cost of one LLM call.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// WorkflowState is the record threaded through every phase and persisted at
// each phase boundary.
type WorkflowState struct {
	RunID   string `json:"run_id"`
	Version int64  `json:"version"`
	Phase   Phase  `json:"phase"`

	Question        string              `json:"question"`
	Queries         []string            `json:"queries"`
	CombineResults  []SourceResult      `json:"combine_results"`
	RerankerResults []EvidenceRecord    `json:"reranker_results"`
	GenerateContext *StructuredDocument `json:"generate_context,omitempty"`
	UserFeedback    string              `json:"user_feedback"`

	Review       ReviewInfo `json:"review"`
	LastError    string     `json:"last_error,omitempty"`
	TotalCostUSD float64    `json:"total_cost_usd"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewWorkflowState creates the initial state of a run.
func NewWorkflowState(runID, question string, now time.Time) *WorkflowState {
	return &WorkflowState{
		RunID:           runID,
		Phase:           PhaseDecompose,
		Question:        question,
		Queries:         []string{},
		CombineResults:  []SourceResult{},
		RerankerResults: []EvidenceRecord{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// AppendResults is the fan-in accumulator: results are concatenated, never replaced.
func (s *WorkflowState) AppendResults(results ...SourceResult) {
	s.CombineResults = append(s.CombineResults, results...)
}

// AddUsage accumulates LLM cost into the run.
func (s *WorkflowState) AddUsage(u Usage) {
	s.TotalCostUSD += u.CostUSD
}

// Clone returns a deep copy so stores never share slices with callers.
func (s *WorkflowState) Clone() *WorkflowState {
	if s == nil {
		return nil
	}
	c := *s
	c.Queries = append([]string(nil), s.Queries...)
	c.CombineResults = make([]SourceResult, len(s.CombineResults))
	for i, r := range s.CombineResults {
		r.Content.Items = append([]ContentItem(nil), r.Content.Items...)
		c.CombineResults[i] = r
	}
	c.RerankerResults = append([]EvidenceRecord(nil), s.RerankerResults...)
	if s.GenerateContext != nil {
		doc := *s.GenerateContext
		c.GenerateContext = &doc
	}
	return &c
}
