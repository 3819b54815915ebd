package graph

import (
	"fmt"
	"strings"

	"github.com/blogflow/server/internal/agent/model"
	errx "github.com/blogflow/server/internal/core/error"
)

// FinalizeMarker is appended to the feedback when the reviewer approves.
const FinalizeMarker = "Finalised"

// IsApproval reports whether a reviewer answer approves the draft.
func IsApproval(input string) bool {
	return strings.ToLower(strings.TrimSpace(input)) == "done"
}

// Transition is the approval-loop FSM. Approval finalizes and appends the
// marker; anything else is feedback, appended newline-terminated so the
// accumulated feedback strictly grows.
func Transition(feedback, input string) (model.ReviewState, string) {
	if IsApproval(input) {
		return model.ReviewFinalized, feedback + FinalizeMarker
	}
	return model.ReviewRegenerate, feedback + input + "\n"
}

// ReviewPolicy applies reviewer input to a suspended run.
type ReviewPolicy struct {
	// MaxRevisions caps regenerations; 0 means unbounded.
	MaxRevisions int
}

// Apply moves state out of the approval point: to finalized on approval,
// back to synthesize on feedback. It rejects feedback once the revision cap
// is reached, leaving state untouched.
func (p ReviewPolicy) Apply(state *model.WorkflowState, input string) error {
	if !IsApproval(input) && p.MaxRevisions > 0 && state.Review.Revisions >= p.MaxRevisions {
		return errx.BadRequest(fmt.Errorf("%w (%d revisions)", errx.ErrRevisionLimit, p.MaxRevisions))
	}

	next, feedback := Transition(state.UserFeedback, input)
	state.UserFeedback = feedback
	state.Review.State = next
	state.Review.Token = ""

	switch next {
	case model.ReviewFinalized:
		state.Phase = model.PhaseFinalized
	case model.ReviewRegenerate:
		state.Review.Revisions++
		state.Phase = model.PhaseSynthesize
	}
	return nil
}
