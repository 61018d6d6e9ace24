package service

import (
	"context"
	"errors"
	"time"

	"github.com/imobgestao/locacoes/backend/lifecycle"
	"github.com/imobgestao/locacoes/backend/model"
	"github.com/imobgestao/locacoes/backend/reconcile"
)

// StoreSyncer persists derived statuses into the local store
type StoreSyncer struct {
	contracts Repository[model.Contract]
}

func NewStoreSyncer(contracts Repository[model.Contract]) *StoreSyncer {
	return &StoreSyncer{contracts: contracts}
}

func (s *StoreSyncer) SyncStatus(ctx context.Context, contractID string, status lifecycle.Status) error {
	return s.contracts.Update(ctx, contractID, func(c *model.Contract) {
		c.Status = status
		c.UpdatedAt = time.Now()
	})
}

// MultiSyncer fans a status out to several syncers in order. Every syncer
// is attempted; failures are joined.
type MultiSyncer []reconcile.StatusSyncer

func (m MultiSyncer) SyncStatus(ctx context.Context, contractID string, status lifecycle.Status) error {
	var errs []error
	for _, s := range m {
		if err := s.SyncStatus(ctx, contractID, status); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ReconcileRecord extracts the lifecycle fields of a contract
func ReconcileRecord(c model.Contract) reconcile.Record {
	return reconcile.Record{
		ID:                   c.ID,
		Agency:               c.Agency,
		StartDate:            c.StartDate,
		EndDate:              c.EndDate,
		NextReadjustmentDate: c.NextReadjustmentDate,
		StoredStatus:         c.Status,
	}
}

// ReconcileRecords converts contracts for the reconciler
func ReconcileRecords(contracts []model.Contract) []reconcile.Record {
	records := make([]reconcile.Record, len(contracts))
	for i, c := range contracts {
		records[i] = ReconcileRecord(c)
	}
	return records
}

// StoreSource loads every stored contract for the scheduler
func StoreSource(contracts Repository[model.Contract]) reconcile.SourceFunc {
	return func(ctx context.Context) ([]reconcile.Record, error) {
		all, err := contracts.List(ctx)
		if err != nil {
			return nil, err
		}
		return ReconcileRecords(all), nil
	}
}
