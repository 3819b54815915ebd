package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	"github.com/blogflow/server/internal/agent/graph/nodes"
	"github.com/blogflow/server/internal/agent/graph/observers"
	"github.com/blogflow/server/internal/agent/model"
	errx "github.com/blogflow/server/internal/core/error"
	"github.com/blogflow/server/internal/metrics"
	logx "github.com/blogflow/server/pkg/logger"
)

// Engine drives runs through their phases, checkpointing the state after
// every phase and suspending at the approval point.
type Engine struct {
	store     model.StateStore
	phases    *Phases
	review    ReviewPolicy
	callbacks []einocb.Handler
	now       func() time.Time
	newID     func() string
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithReviewPolicy sets the approval-loop policy.
func WithReviewPolicy(p ReviewPolicy) EngineOption {
	return func(e *Engine) { e.review = p }
}

// WithCallbacks replaces the eino callbacks attached to every phase.
func WithCallbacks(handlers ...einocb.Handler) EngineOption {
	return func(e *Engine) { e.callbacks = handlers }
}

// WithClock overrides time and id generation.
func WithClock(now func() time.Time, newID func() string) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
		if newID != nil {
			e.newID = newID
		}
	}
}

func NewEngine(store model.StateStore, phases *Phases, opts ...EngineOption) *Engine {
	e := &Engine{
		store:     store,
		phases:    phases,
		callbacks: observers.NewAllCallbacks(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start creates a run for question and advances it to the approval point.
// On a phase failure the returned state records the error and the failing
// phase, and the error is returned alongside it.
func (e *Engine) Start(ctx context.Context, question string) (*model.WorkflowState, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errx.BadRequest(errx.ErrEmptyQuestion)
	}

	state := model.NewWorkflowState(e.newID(), question, e.now())
	if err := e.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}
	logx.Info().Str("run_id", state.RunID).Str("question", question).Msg("run started")

	return e.advance(ctx, state)
}

// Resume applies reviewer input to a suspended run. Feedback regenerates
// the draft and suspends again; approval finalizes the run.
func (e *Engine) Resume(ctx context.Context, runID string, input model.ReviewInput) (*model.WorkflowState, error) {
	state, err := e.store.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	switch {
	case state.Phase.Terminal():
		return state, errx.Conflict(errx.ErrRunFinalized)
	case !state.Phase.Suspended():
		return state, errx.Conflict(fmt.Errorf("%w (phase %s)", errx.ErrRunNotSuspended, state.Phase))
	case input.Token != "" && input.Token != state.Review.Token:
		return state, errx.Conflict(errx.ErrStaleReview)
	}

	if err := e.review.Apply(state, input.Answer); err != nil {
		return state, err
	}
	metrics.ReviewTransitions.WithLabelValues(string(state.Review.State)).Inc()

	state.UpdatedAt = e.now()
	if err := e.store.Save(ctx, state); err != nil {
		return nil, err
	}
	logx.Info().
		Str("run_id", state.RunID).
		Str("review", string(state.Review.State)).
		Int("revisions", state.Review.Revisions).
		Msg("review applied")

	return e.advance(ctx, state)
}

// Retry re-enters the phase loop from the persisted phase of a run that
// stopped on an error.
func (e *Engine) Retry(ctx context.Context, runID string) (*model.WorkflowState, error) {
	state, err := e.store.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	switch {
	case state.Phase.Terminal():
		return state, errx.Conflict(errx.ErrRunFinalized)
	case state.Phase.Suspended():
		return state, errx.Conflict(errx.ErrNothingToRetry)
	}
	logx.Info().Str("run_id", runID).Str("phase", string(state.Phase)).Str("last_error", state.LastError).Msg("retrying run")
	return e.advance(ctx, state)
}

// Get returns the persisted state of a run.
func (e *Engine) Get(ctx context.Context, runID string) (*model.WorkflowState, error) {
	return e.store.Load(ctx, runID)
}

// Delete discards a run.
func (e *Engine) Delete(ctx context.Context, runID string) error {
	return e.store.Delete(ctx, runID)
}

// advance executes phases until the run suspends, finalizes, or a phase
// fails. Each completed phase is persisted before the next starts.
func (e *Engine) advance(ctx context.Context, state *model.WorkflowState) (*model.WorkflowState, error) {
	log := logx.Run(state.RunID)
	for !state.Phase.Suspended() && !state.Phase.Terminal() {
		phase := state.Phase
		if err := e.step(ctx, state); err != nil {
			log.Error().Err(err).Str("phase", string(phase)).Msg("phase failed")
			return e.fail(ctx, state, err)
		}
		state.LastError = ""
		state.UpdatedAt = e.now()
		if err := e.store.Save(ctx, state); err != nil {
			log.Error().Err(err).Str("phase", string(phase)).Msg("checkpoint failed")
			return nil, err
		}
		log.Debug().Str("phase", string(phase)).Str("next", string(state.Phase)).Msg("phase complete")
	}
	if state.Phase.Suspended() {
		log.Info().Int("revisions", state.Review.Revisions).Msg("awaiting review")
	}
	return state, nil
}

// step runs the current phase and moves state to the next one.
func (e *Engine) step(ctx context.Context, state *model.WorkflowState) error {
	opt := compose.WithCallbacks(e.callbacks...)

	switch state.Phase {
	case model.PhaseDecompose:
		out, err := e.phases.Decompose.Invoke(ctx, state.Question, opt)
		if err != nil {
			return err
		}
		state.Queries = out.Queries
		state.AddUsage(out.Usage)
		state.Phase = model.PhaseRetrieve

	case model.PhaseRetrieve:
		results, err := e.phases.Retrieve.Invoke(ctx, state.Queries, opt)
		if err != nil {
			return err
		}
		state.CombineResults = state.CombineResults[:0]
		state.AppendResults(results...)
		state.Phase = model.PhaseRerank

	case model.PhaseRerank:
		records, err := e.phases.Rerank.Invoke(ctx, RerankInput{Question: state.Question, Results: state.CombineResults}, opt)
		if err != nil {
			return err
		}
		state.RerankerResults = records
		state.Phase = model.PhaseSynthesize

	case model.PhaseSynthesize:
		out, err := e.phases.Synthesize.Invoke(ctx, SynthesisInput{
			Question: state.Question,
			Evidence: state.RerankerResults,
			Feedback: state.UserFeedback,
		}, opt)
		if err != nil {
			var ue *nodes.UsageError
			if errors.As(err, &ue) {
				state.AddUsage(ue.Usage)
			}
			return err
		}
		state.AddUsage(out.Usage)
		state.GenerateContext = out.Document
		state.Phase = model.PhaseAwaitingReview
		state.Review.State = model.ReviewAwaiting
		state.Review.Token = e.newID()

	default:
		return fmt.Errorf("unknown phase %q", state.Phase)
	}
	return nil
}

// fail records err on the run without moving its phase so Retry can
// continue from it.
func (e *Engine) fail(ctx context.Context, state *model.WorkflowState, err error) (*model.WorkflowState, error) {
	state.LastError = err.Error()
	state.UpdatedAt = e.now()
	if saveErr := e.store.Save(ctx, state); saveErr != nil {
		logx.Error().Err(saveErr).Str("run_id", state.RunID).Msg("failed to record phase error")
		return state, errors.Join(err, saveErr)
	}
	return state, err
}
