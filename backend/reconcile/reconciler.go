// Package reconcile compares freshly derived contract statuses with the
// stored ones and pushes changes to a StatusSyncer without waiting for them.
package reconcile

import (
	"context"
	"time"

	"github.com/imobgestao/locacoes/backend/lifecycle"
	"github.com/imobgestao/locacoes/backend/pkg/logger"
)

// StatusSyncer persists a derived status somewhere
type StatusSyncer interface {
	SyncStatus(ctx context.Context, contractID string, status lifecycle.Status) error
}

// SyncerFunc adapts a function to StatusSyncer
type SyncerFunc func(ctx context.Context, contractID string, status lifecycle.Status) error

func (f SyncerFunc) SyncStatus(ctx context.Context, contractID string, status lifecycle.Status) error {
	return f(ctx, contractID, status)
}

// Record is the lifecycle-relevant view of a contract
type Record struct {
	ID                   string
	Agency               string
	StartDate            string
	EndDate              string
	NextReadjustmentDate *string
	StoredStatus         lifecycle.Status
}

// Outcome is the result of reconciling one record
type Outcome struct {
	ID         string           `json:"id"`
	Result     lifecycle.Result `json:"result"`
	Stored     lifecycle.Status `json:"stored_status"`
	Changed    bool             `json:"changed"`
	Dispatched bool             `json:"dispatched"`
	Err        error            `json:"-"`
}

// Dispatcher runs a sync task without blocking the caller
type Dispatcher func(task func())

// GoDispatcher runs every task on its own goroutine
func GoDispatcher(task func()) {
	go task()
}

const defaultSyncTimeout = 10 * time.Second

type Reconciler struct {
	syncer      StatusSyncer
	dispatch    Dispatcher
	syncTimeout time.Duration
}

type Option func(*Reconciler)

// WithDispatcher replaces the default goroutine-per-sync dispatcher
func WithDispatcher(d Dispatcher) Option {
	return func(r *Reconciler) { r.dispatch = d }
}

// WithSyncTimeout bounds each individual sync
func WithSyncTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.syncTimeout = d
		}
	}
}

// New creates a reconciler. A nil syncer classifies without syncing.
func New(syncer StatusSyncer, opts ...Option) *Reconciler {
	r := &Reconciler{
		syncer:      syncer,
		dispatch:    GoDispatcher,
		syncTimeout: defaultSyncTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile classifies every record as of now and dispatches a sync for each
// record whose derived status differs from the stored one. It returns as soon
// as the syncs are dispatched; their outcome never changes the result.
// Records with unparsable dates carry the error and are not synced.
func (r *Reconciler) Reconcile(ctx context.Context, now time.Time, records []Record) []Outcome {
	outcomes := make([]Outcome, 0, len(records))

	for _, rec := range records {
		out := Outcome{ID: rec.ID, Stored: rec.StoredStatus}

		res, err := lifecycle.ClassifyISO(now, rec.StartDate, rec.EndDate, rec.NextReadjustmentDate)
		if err != nil {
			out.Err = err
			outcomes = append(outcomes, out)
			continue
		}

		out.Result = res
		out.Changed = res.Status != rec.StoredStatus
		if out.Changed && r.syncer != nil {
			id, status := rec.ID, res.Status
			syncCtx := logger.WithAgency(ctx, rec.Agency)
			r.dispatch(func() { r.sync(syncCtx, id, status) })
			out.Dispatched = true
		}

		outcomes = append(outcomes, out)
	}

	return outcomes
}

// sync is best effort: errors are logged at debug level and dropped, never retried
func (r *Reconciler) sync(parent context.Context, id string, status lifecycle.Status) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), r.syncTimeout)
	defer cancel()

	if err := r.syncer.SyncStatus(ctx, id, status); err != nil {
		logger.Debug(parent, "contract status sync failed",
			"contract_id", id,
			"status", status,
			"error", err,
		)
		return
	}

	logger.Debug(parent, "contract status synced", "contract_id", id, "status", status)
}

// Summary aggregates reconcile outcomes
type Summary struct {
	Total      int                      `json:"total"`
	Changed    int                      `json:"changed"`
	Dispatched int                      `json:"dispatched"`
	Invalid    int                      `json:"invalid"`
	ByStatus   map[lifecycle.Status]int `json:"by_status"`
}

// Summarize counts outcomes by derived status
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes), ByStatus: make(map[lifecycle.Status]int)}
	for _, out := range outcomes {
		if out.Err != nil {
			s.Invalid++
			continue
		}
		s.ByStatus[out.Result.Status]++
		if out.Changed {
			s.Changed++
		}
		if out.Dispatched {
			s.Dispatched++
		}
	}
	return s
}
