package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/blogflow/server/internal/agent/model"
	"github.com/blogflow/server/internal/agent/repo"
	errx "github.com/blogflow/server/internal/core/error"
)

func draftState() *model.WorkflowState {
	s := model.NewWorkflowState("run-1", "What is AI?", time.Time{})
	s.Phase = model.PhaseAwaitingReview
	s.Review = model.ReviewInfo{State: model.ReviewAwaiting, Token: "tok-1"}
	s.GenerateContext = &model.StructuredDocument{
		Title:          "What is AI?",
		Introduction:   "Intro.",
		BodyContent:    "Body.",
		VisualsContext: "",
		Conclusion:     "End.",
	}
	return s
}

type scriptedReviewer struct {
	inputs []model.ReviewInput
	limit  int
}

func (r *scriptedReviewer) Resume(_ context.Context, _ string, in model.ReviewInput) (*model.WorkflowState, error) {
	if r.limit > 0 && len(r.inputs) >= r.limit && strings.ToLower(in.Answer) != "done" {
		return nil, errx.BadRequest(errx.ErrRevisionLimit)
	}
	r.inputs = append(r.inputs, in)
	s := draftState()
	s.Review.Token = "tok-next"
	if strings.ToLower(in.Answer) == "done" {
		s.Phase = model.PhaseFinalized
		s.Review = model.ReviewInfo{State: model.ReviewFinalized}
	}
	return s, nil
}

func TestMarkdown(t *testing.T) {
	md := Markdown(draftState())
	assert.True(t, strings.HasPrefix(md, "# What is AI?\n\n## Introduction\n\nIntro.\n\n"))
	assert.Contains(t, md, "## Body\n\nBody.")
	assert.NotContains(t, md, "## Visuals")

	pending := model.NewWorkflowState("run-2", "q", time.Time{})
	pending.LastError = "model unavailable"
	md = Markdown(pending)
	assert.Contains(t, md, "phase decompose")
	assert.Contains(t, md, "Last error: model unavailable")
}

func TestRender_Formats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render(&buf, draftState(), FormatYAML))
	var doc model.StructuredDocument
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "What is AI?", doc.Title)
	assert.Equal(t, "Body.", doc.BodyContent)

	buf.Reset()
	require.NoError(t, render(&buf, draftState(), FormatJSON))
	assert.Contains(t, buf.String(), `"run_id": "run-1"`)

	assert.Error(t, render(&buf, draftState(), "pdf"))
	assert.Error(t, render(&buf, model.NewWorkflowState("r", "q", time.Time{}), FormatYAML))
}

func TestReviewLoop_FeedbackThenDone(t *testing.T) {
	r := &scriptedReviewer{}
	var out bytes.Buffer

	final, err := reviewLoop(context.Background(), r, draftState(), strings.NewReader("add examples\n\n DONE \n"), &out)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseFinalized, final.Phase)
	require.Len(t, r.inputs, 2)
	assert.Equal(t, model.ReviewInput{Answer: "add examples", Token: "tok-1"}, r.inputs[0])
	assert.Equal(t, model.ReviewInput{Answer: "DONE", Token: "tok-next"}, r.inputs[1])
	assert.Contains(t, out.String(), "run run-1 finalised")
}

func TestReviewLoop_EOFLeavesRunSuspended(t *testing.T) {
	var out bytes.Buffer
	final, err := reviewLoop(context.Background(), &scriptedReviewer{}, draftState(), strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseAwaitingReview, final.Phase)
	assert.Contains(t, out.String(), "still awaiting review")
}

func TestReviewLoop_RevisionLimitAsksForDone(t *testing.T) {
	r := &scriptedReviewer{limit: 1}
	var out bytes.Buffer
	final, err := reviewLoop(context.Background(), r, draftState(), strings.NewReader("one\ntwo\ndone\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseFinalized, final.Phase)
	assert.Len(t, r.inputs, 2)
	assert.Contains(t, out.String(), "revision limit reached")
}

func TestNewStore_RejectsUnknownKind(t *testing.T) {
	cfg := &AppConfig{Store: model.StoreConfig{Kind: "etcd"}}
	_, _, err := newStore(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown STATE_STORE")
}

func TestNewStore_Memory(t *testing.T) {
	cfg := &AppConfig{Store: model.StoreConfig{Kind: StoreMemory}}
	store, closer, err := newStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, store)
	assert.NoError(t, closer.Close())
}

func TestNewStore_SQLite(t *testing.T) {
	cfg := &AppConfig{Store: model.StoreConfig{Kind: StoreSQLite}}
	cfg.SQL.SQLitePath = t.TempDir() + "/runs.db"
	cfg.SQL.PingTimeout = 5
	store, closer, err := newStore(context.Background(), cfg)
	require.NoError(t, err)
	defer closer.Close()

	s := draftState()
	require.NoError(t, store.Save(context.Background(), s))
	got, err := store.Load(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "What is AI?", got.GenerateContext.Title)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STATE_STORE", "memory")
	t.Setenv("REVIEW_MAX_REVISIONS", "3")
	cfg, dotenvErr, err := loadConfig(t.TempDir() + "/missing.env")
	require.NoError(t, err)
	assert.Error(t, dotenvErr)
	assert.Equal(t, StoreMemory, cfg.Store.Kind)
	assert.Equal(t, 3, cfg.Review.MaxRevisions)
	assert.Equal(t, "gemini-2.5-flash", cfg.Decompose.Model)
	assert.Equal(t, 15, cfg.Ranking.SemanticTopK)

	d, err := cfg.SearchTimeout()
	require.NoError(t, err)
	assert.Equal(t, "20s", d.String())
}

type recordingCloser struct{ closed int }

func (c *recordingCloser) Close() error {
	c.closed++
	return nil
}

func TestExecute_ClosesStoreWhenCommandFails(t *testing.T) {
	t.Setenv("STATE_STORE", StoreMemory)
	closer := &recordingCloser{}
	current = app{store: repo.NewMemoryStateStore(), closer: closer}

	err := execute(context.Background(), []string{"show", "missing", "--env-file", ""})
	assert.ErrorIs(t, err, errx.ErrRunNotFound)
	assert.Equal(t, 1, closer.closed)
	assert.Nil(t, current.store)
}
