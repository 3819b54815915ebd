package graph

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogflow/server/internal/agent/model"
	errx "github.com/blogflow/server/internal/core/error"
)

func TestTransition_Approval(t *testing.T) {
	for _, in := range []string{"done", "DONE", "  Done\n", "\tdOnE "} {
		state, feedback := Transition("shorter\n", in)
		assert.Equal(t, model.ReviewFinalized, state, in)
		assert.Equal(t, "shorter\nFinalised", feedback)
	}
}

func TestTransition_FeedbackGrows(t *testing.T) {
	feedback := ""
	for _, in := range []string{"add history", "", "done please", "not done"} {
		state, next := Transition(feedback, in)
		assert.Equal(t, model.ReviewRegenerate, state)
		assert.Greater(t, len(next), len(feedback))
		assert.Equal(t, feedback+in+"\n", next)
		feedback = next
	}
}

func TestReviewPolicy_Apply(t *testing.T) {
	state := &model.WorkflowState{
		Phase:  model.PhaseAwaitingReview,
		Review: model.ReviewInfo{State: model.ReviewAwaiting, Token: "tok"},
	}
	p := ReviewPolicy{}

	require.NoError(t, p.Apply(state, "make it shorter"))
	assert.Equal(t, model.PhaseSynthesize, state.Phase)
	assert.Equal(t, model.ReviewRegenerate, state.Review.State)
	assert.Equal(t, 1, state.Review.Revisions)
	assert.Empty(t, state.Review.Token)
	assert.Equal(t, "make it shorter\n", state.UserFeedback)

	require.NoError(t, p.Apply(state, "Done"))
	assert.Equal(t, model.PhaseFinalized, state.Phase)
	assert.Equal(t, model.ReviewFinalized, state.Review.State)
	assert.Equal(t, "make it shorter\nFinalised", state.UserFeedback)
}

func TestReviewPolicy_RevisionLimit(t *testing.T) {
	state := &model.WorkflowState{
		Phase:        model.PhaseAwaitingReview,
		UserFeedback: "a\nb\n",
		Review:       model.ReviewInfo{State: model.ReviewAwaiting, Revisions: 2},
	}
	p := ReviewPolicy{MaxRevisions: 2}

	err := p.Apply(state, "one more")
	assert.ErrorIs(t, err, errx.ErrRevisionLimit)
	assert.Equal(t, http.StatusBadRequest, errx.StatusOf(err))
	assert.Equal(t, model.PhaseAwaitingReview, state.Phase)
	assert.Equal(t, "a\nb\n", state.UserFeedback)

	require.NoError(t, p.Apply(state, "done"))
	assert.Equal(t, model.PhaseFinalized, state.Phase)
}
