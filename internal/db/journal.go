package db

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/udisondev/wayfinder/internal/ai"
)

const (
	defaultJournalBuffer = 256
	writeTimeout         = 5 * time.Second
)

// transitionInserter is the storage side of the journal.
type transitionInserter interface {
	InsertTransition(ctx context.Context, row TransitionRow) (int64, error)
}

// Journal persists agent transitions off the tick goroutine. Record never
// blocks: when the buffer is full the transition is dropped and counted.
type Journal struct {
	runID   uuid.UUID
	repo    transitionInserter
	queue   chan ai.Transition
	dropped atomic.Uint64
	written atomic.Uint64
}

var _ ai.TransitionRecorder = (*Journal)(nil)

// NewJournal creates a journal for runID. buffer <= 0 selects the default.
func NewJournal(runID uuid.UUID, repo *JournalRepository, buffer int) *Journal {
	return newJournal(runID, repo, buffer)
}

func newJournal(runID uuid.UUID, repo transitionInserter, buffer int) *Journal {
	if buffer <= 0 {
		buffer = defaultJournalBuffer
	}
	return &Journal{
		runID: runID,
		repo:  repo,
		queue: make(chan ai.Transition, buffer),
	}
}

// RunID returns the run the journal writes to.
func (j *Journal) RunID() uuid.UUID { return j.runID }

// RecordTransition enqueues tr.
func (j *Journal) RecordTransition(tr ai.Transition) {
	select {
	case j.queue <- tr:
	default:
		if n := j.dropped.Add(1); n == 1 || n%100 == 0 {
			slog.Warn("journal buffer full, dropping transitions", "agent", tr.Agent, "dropped", n)
		}
	}
}

// Dropped returns the number of transitions dropped on a full buffer.
func (j *Journal) Dropped() uint64 { return j.dropped.Load() }

// Written returns the number of transitions stored.
func (j *Journal) Written() uint64 { return j.written.Load() }

// Run drains the queue into the repository until ctx is cancelled, then
// flushes what is already buffered. Writes are not aborted by cancellation;
// each one is bounded by its own timeout.
func (j *Journal) Run(ctx context.Context) error {
	slog.Info("journal writer started", "run", j.runID)
	wctx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			j.flush(wctx)
			slog.Info("journal writer stopped",
				"run", j.runID,
				"written", j.written.Load(),
				"dropped", j.dropped.Load())
			return nil
		case tr := <-j.queue:
			j.write(wctx, tr)
		}
	}
}

func (j *Journal) flush(ctx context.Context) {
	for {
		select {
		case tr := <-j.queue:
			j.write(ctx, tr)
		default:
			return
		}
	}
}

func (j *Journal) write(ctx context.Context, tr ai.Transition) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if _, err := j.repo.InsertTransition(ctx, transitionRow(j.runID, tr)); err != nil {
		slog.Error("writing transition", "run", j.runID, "agent", tr.Agent, "error", err)
		return
	}
	j.written.Add(1)
}
