package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/imobgestao/locacoes/backend/config"
	"github.com/imobgestao/locacoes/backend/model"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned by SaveIfAbsent when a conflicting record exists
	ErrConflict = errors.New("conflicting record exists")
)

// Repository stores one kind of record
type Repository[T model.Record] interface {
	Save(ctx context.Context, item T) error
	// SaveIfAbsent inserts item unless a record of the same agency satisfies
	// conflicts, in which case it returns ErrConflict. The check and the
	// insert are atomic.
	SaveIfAbsent(ctx context.Context, item T, conflicts func(existing T) bool) error
	Get(ctx context.Context, id string) (T, error)
	List(ctx context.Context) ([]T, error)
	ListByAgency(ctx context.Context, agency string) ([]T, error)
	// Update applies fn to the stored record. It returns ErrNotFound when
	// the record does not exist.
	Update(ctx context.Context, id string, fn func(*T)) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// Store groups the repositories of every entity
type Store struct {
	Contracts  Repository[model.Contract]
	Landlords  Repository[model.Landlord]
	Tenants    Repository[model.Tenant]
	Properties Repository[model.Property]
	Boletos    Repository[model.Boleto]

	close func() error
}

// Close releases the underlying database, if any
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// NewStore opens the store selected by cfg.Driver
func NewStore(cfg *config.StoreConfig) (*Store, error) {
	if cfg.Driver == "" || cfg.Driver == "memory" {
		return NewMemoryStore(cfg.MaxContracts), nil
	}
	return NewGormStore(cfg)
}

// NewMemoryStore creates an in-memory store. Contracts above maxContracts
// are evicted oldest first; 0 means unlimited.
func NewMemoryStore(maxContracts int) *Store {
	if maxContracts < 0 {
		maxContracts = 0
	}
	slog.Info("memory store initialized", "max_contracts", maxContracts)

	return &Store{
		Contracts:  NewMemoryRepository[model.Contract](maxContracts),
		Landlords:  NewMemoryRepository[model.Landlord](0),
		Tenants:    NewMemoryRepository[model.Tenant](0),
		Properties: NewMemoryRepository[model.Property](0),
		Boletos:    NewMemoryRepository[model.Boleto](0),
	}
}

// MemoryRepository is an in-memory Repository guarded by a RWMutex
type MemoryRepository[T model.Record] struct {
	items    map[string]T
	mu       sync.RWMutex
	maxItems int // Maximum records to keep, 0 = unlimited
}

func NewMemoryRepository[T model.Record](maxItems int) *MemoryRepository[T] {
	return &MemoryRepository[T]{
		items:    make(map[string]T),
		maxItems: maxItems,
	}
}

func (r *MemoryRepository[T]) Save(ctx context.Context, item T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.RecordID()] = item

	// Cleanup if exceeds max
	r.cleanupIfNeeded()
	return nil
}

func (r *MemoryRepository[T]) SaveIfAbsent(ctx context.Context, item T, conflicts func(existing T) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.RecordAgency() == item.RecordAgency() && conflicts(existing) {
			return ErrConflict
		}
	}
	r.items[item.RecordID()] = item
	r.cleanupIfNeeded()
	return nil
}

func (r *MemoryRepository[T]) Get(ctx context.Context, id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return item, nil
}

func (r *MemoryRepository[T]) List(ctx context.Context) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]T, 0, len(r.items))
	for _, item := range r.items {
		result = append(result, item)
	}
	sortByCreation(result)
	return result, nil
}

func (r *MemoryRepository[T]) ListByAgency(ctx context.Context, agency string) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []T
	for _, item := range r.items {
		if item.RecordAgency() == agency {
			result = append(result, item)
		}
	}
	sortByCreation(result)
	return result, nil
}

func (r *MemoryRepository[T]) Update(ctx context.Context, id string, fn func(*T)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return ErrNotFound
	}
	fn(&item)
	r.items[id] = item
	return nil
}

func (r *MemoryRepository[T]) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

// Count returns the number of records in the repository
func (r *MemoryRepository[T]) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items), nil
}

// cleanupIfNeeded removes oldest records if the repository exceeds maxItems
// Must be called with lock held
func (r *MemoryRepository[T]) cleanupIfNeeded() {
	if r.maxItems <= 0 {
		return // Unlimited
	}

	if len(r.items) <= r.maxItems {
		return
	}

	items := make([]T, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, item)
	}
	sortByCreation(items)

	// Remove oldest records
	removeCount := len(items) - r.maxItems
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old record",
			"id", items[i].RecordID(),
			"created_at", items[i].RecordCreatedAt(),
		)
		delete(r.items, items[i].RecordID())
	}
}

func sortByCreation[T model.Record](items []T) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].RecordCreatedAt().Before(items[j].RecordCreatedAt())
	})
}
