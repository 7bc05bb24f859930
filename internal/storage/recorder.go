package storage

import (
	"context"
	"database/sql"
	"maps"
	"sync"
	"time"

	"github.com/STTM-NSU/options-tracker/internal/logger"
	"github.com/STTM-NSU/options-tracker/internal/model"
	"github.com/STTM-NSU/options-tracker/internal/store"
)

const _defaultFlushInterval = time.Minute

// DB is the subset of *sqlx.DB the recorder writes through.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

// Recorder keeps the latest committed positions and quotes and writes them
// to Postgres in batches.
type Recorder struct {
	db     DB
	logger logger.Logger

	flushInterval time.Duration

	mu        sync.Mutex
	positions map[string]model.EnrichedPosition
	quotes    model.Quotes
}

func NewRecorder(db DB, flushInterval time.Duration, logger logger.Logger) *Recorder {
	if flushInterval <= 0 {
		flushInterval = _defaultFlushInterval
	}

	return &Recorder{
		db:            db,
		logger:        logger,
		flushInterval: flushInterval,
		positions:     make(map[string]model.EnrichedPosition),
		quotes:        make(model.Quotes),
	}
}

// Observe is a store subscriber. Only POSITIONS and QUOTE are recorded.
func (r *Recorder) Observe(m store.Mutation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch v := m.Payload.(type) {
	case model.EnrichedPosition:
		r.positions[v.Key()] = v
	case model.Quotes:
		maps.Copy(r.quotes, v)
	}
}

func (r *Recorder) Pending() (positions, quotes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.positions), len(r.quotes)
}

// take swaps the buffers out so that commits aren't blocked by a flush.
func (r *Recorder) take() (map[string]model.EnrichedPosition, model.Quotes) {
	r.mu.Lock()
	defer r.mu.Unlock()

	positions, quotes := r.positions, r.quotes
	r.positions = make(map[string]model.EnrichedPosition)
	r.quotes = make(model.Quotes)
	return positions, quotes
}

// putBack returns unflushed records, unless a newer commit replaced them.
func (r *Recorder) putBack(positions map[string]model.EnrichedPosition, quotes model.Quotes) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, v := range positions {
		if _, ok := r.positions[k]; !ok {
			r.positions[k] = v
		}
	}
	for k, v := range quotes {
		if _, ok := r.quotes[k]; !ok {
			r.quotes[k] = v
		}
	}
}

func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if err := r.Flush(context.WithoutCancel(ctx)); err != nil {
				r.logger.Errorf("%s: error on final flush", err)
			}
			return
		case <-time.After(r.flushInterval):
			if err := r.Flush(ctx); err != nil {
				r.logger.Errorf("%s: error flushing positions", err)
			}
		}
	}
}
