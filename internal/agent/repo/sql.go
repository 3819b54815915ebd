package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/blogflow/server/internal/agent/model"
	errx "github.com/blogflow/server/internal/core/error"
	logx "github.com/blogflow/server/pkg/logger"
	"github.com/blogflow/server/pkg/sqldb"
)

const runsTable = "workflow_runs"

// SQLStateStore persists runs in Postgres or SQLite. The version column is
// the optimistic lock: updates match on (run_id, version).
type SQLStateStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// NewSQLStateStore wraps db for driver (sqldb.DriverPostgres or
// sqldb.DriverSQLite) and creates the schema when missing.
func NewSQLStateStore(ctx context.Context, db *sql.DB, driver string) (*SQLStateStore, error) {
	s := &SQLStateStore{
		db: db,
		sb: statementBuilder(driver),
	}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// statementBuilder uses $n placeholders for Postgres and ? otherwise.
func statementBuilder(driver string) sq.StatementBuilderType {
	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == sqldb.DriverPostgres {
		placeholder = sq.Dollar
	}
	return sq.StatementBuilder.PlaceholderFormat(placeholder)
}

func (s *SQLStateStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS workflow_runs (
		run_id TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		phase TEXT NOT NULL,
		state TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_workflow_runs_phase ON workflow_runs(phase);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		logx.Error().Err(err).Msg("failed to migrate run store schema")
		return errx.WrapSQL(fmt.Errorf("migrate: %w", err))
	}
	return nil
}

func (s *SQLStateStore) Load(ctx context.Context, runID string) (*model.WorkflowState, error) {
	query, args, err := s.loadStatement(runID)
	if err != nil {
		return nil, err
	}

	var raw string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errx.NotFound(fmt.Errorf("%w: %s", errx.ErrRunNotFound, runID))
		}
		logx.Error().Err(err).Str("run_id", runID).Msg("failed to load run state")
		return nil, errx.WrapSQL(err)
	}

	var state model.WorkflowState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		logx.Error().Err(err).Str("run_id", runID).Msg("failed to unmarshal run state")
		return nil, fmt.Errorf("unmarshal run state: %w", err)
	}
	return &state, nil
}

func (s *SQLStateStore) loadStatement(runID string) (string, []any, error) {
	return s.sb.Select("state").From(runsTable).Where(sq.Eq{"run_id": runID}).ToSql()
}

// saveStatement builds the insert (version 0) or the version-guarded update
// that writes state as state.Version+1.
func (s *SQLStateStore) saveStatement(state *model.WorkflowState) (string, []any, error) {
	next := *state
	next.Version = state.Version + 1
	b, err := json.Marshal(&next)
	if err != nil {
		return "", nil, fmt.Errorf("marshal run state: %w", err)
	}
	updated := next.UpdatedAt.UTC().Format(time.RFC3339Nano)

	var builder sq.Sqlizer
	if state.Version == 0 {
		builder = s.sb.Insert(runsTable).
			Columns("run_id", "version", "phase", "state", "created_at", "updated_at").
			Values(state.RunID, next.Version, string(state.Phase), string(b),
				next.CreatedAt.UTC().Format(time.RFC3339Nano), updated).
			Suffix("ON CONFLICT (run_id) DO NOTHING")
	} else {
		builder = s.sb.Update(runsTable).
			Set("version", next.Version).
			Set("phase", string(state.Phase)).
			Set("state", string(b)).
			Set("updated_at", updated).
			Where(sq.Eq{"run_id": state.RunID, "version": state.Version})
	}
	return builder.ToSql()
}

func (s *SQLStateStore) Save(ctx context.Context, state *model.WorkflowState) error {
	query, args, err := s.saveStatement(state)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		logx.Error().Err(err).Str("run_id", state.RunID).Msg("failed to save run state")
		return errx.WrapSQL(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errx.WrapSQL(err)
	}
	if n == 0 {
		logx.Warn().Str("run_id", state.RunID).Int64("version", state.Version).Msg("run state version conflict")
		return errx.Conflict(errx.ErrVersionConflict)
	}
	state.Version++
	return nil
}

func (s *SQLStateStore) Delete(ctx context.Context, runID string) error {
	query, args, err := s.sb.Delete(runsTable).Where(sq.Eq{"run_id": runID}).ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		logx.Error().Err(err).Str("run_id", runID).Msg("failed to delete run state")
		return errx.WrapSQL(err)
	}
	return nil
}

var _ model.StateStore = (*SQLStateStore)(nil)
