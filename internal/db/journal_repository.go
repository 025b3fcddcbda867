package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/wayfinder/internal/ai"
)

// RunRow represents a row in the runs table.
type RunRow struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	GridDigest string
	Cols       int
	Rows       int
	Strategy   string
}

// TransitionRow represents a row in the transitions table.
type TransitionRow struct {
	ID        int64
	RunID     uuid.UUID
	Agent     string
	FromState string
	ToState   string
	Vitality  float64
	PathFound bool
	PathLen   int
	PathCost  int
	At        time.Time
}

// transitionRow flattens an agent transition for storage.
func transitionRow(runID uuid.UUID, tr ai.Transition) TransitionRow {
	return TransitionRow{
		RunID:     runID,
		Agent:     tr.Agent,
		FromState: tr.From.String(),
		ToState:   tr.To.String(),
		Vitality:  tr.Vitality,
		PathFound: tr.Found,
		PathLen:   tr.PathLen,
		PathCost:  tr.PathCost,
		At:        tr.At,
	}
}

// JournalRepository stores runs and agent state transitions.
type JournalRepository struct {
	db *pgxpool.Pool
}

// NewJournalRepository creates a new JournalRepository.
func NewJournalRepository(db *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{db: db}
}

// CreateRun inserts a run and returns it with its generated ID.
func (r *JournalRepository) CreateRun(ctx context.Context, gridDigest string, cols, rows int, strategy string) (RunRow, error) {
	run := RunRow{
		RunID:      uuid.New(),
		GridDigest: gridDigest,
		Cols:       cols,
		Rows:       rows,
		Strategy:   strategy,
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO runs (run_id, grid_digest, cols, rows, strategy)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING started_at`,
		run.RunID, run.GridDigest, run.Cols, run.Rows, run.Strategy,
	).Scan(&run.StartedAt)
	if err != nil {
		return RunRow{}, fmt.Errorf("creating run: %w", err)
	}
	return run, nil
}

// InsertTransition appends one transition and returns its ID.
func (r *JournalRepository) InsertTransition(ctx context.Context, row TransitionRow) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO transitions
		   (run_id, agent, from_state, to_state, vitality, path_found, path_len, path_cost, at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		row.RunID, row.Agent, row.FromState, row.ToState, row.Vitality,
		row.PathFound, row.PathLen, row.PathCost, row.At,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting transition for agent %q: %w", row.Agent, err)
	}
	return id, nil
}

// ListTransitions returns every transition of a run in insertion order.
func (r *JournalRepository) ListTransitions(ctx context.Context, runID uuid.UUID) ([]TransitionRow, error) {
	query := `
		SELECT id, run_id, agent, from_state, to_state, vitality, path_found, path_len, path_cost, at
		FROM transitions
		WHERE run_id = $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("querying transitions for run %s: %w", runID, err)
	}
	defer rows.Close()

	result := make([]TransitionRow, 0, 16)
	for rows.Next() {
		var tr TransitionRow
		if err := rows.Scan(&tr.ID, &tr.RunID, &tr.Agent, &tr.FromState, &tr.ToState,
			&tr.Vitality, &tr.PathFound, &tr.PathLen, &tr.PathCost, &tr.At); err != nil {
			return nil, fmt.Errorf("scanning transition row: %w", err)
		}
		result = append(result, tr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transition rows: %w", err)
	}

	return result, nil
}
