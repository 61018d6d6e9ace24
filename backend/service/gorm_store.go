package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/imobgestao/locacoes/backend/config"
	"github.com/imobgestao/locacoes/backend/model"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// NewGormStore opens a SQL-backed store (mysql or sqlite) and migrates its schema
func NewGormStore(cfg *config.StoreConfig) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	store, err := NewGormStoreFromDB(db)
	if err != nil {
		return nil, err
	}
	slog.Info("sql store initialized", "driver", cfg.Driver)
	return store, nil
}

// NewGormStoreFromDB migrates the schema on db and wraps it in a Store.
// db should be opened with TranslateError so unique index violations map
// to ErrConflict.
func NewGormStoreFromDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(
		&model.Contract{},
		&model.Landlord{},
		&model.Tenant{},
		&model.Property{},
		&model.Boleto{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{
		Contracts:  &GormRepository[model.Contract]{db: db},
		Landlords:  &GormRepository[model.Landlord]{db: db},
		Tenants:    &GormRepository[model.Tenant]{db: db},
		Properties: &GormRepository[model.Property]{db: db},
		Boletos:    &GormRepository[model.Boleto]{db: db},
		close: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}, nil
}

// GormRepository is a Repository backed by a gorm table
type GormRepository[T model.Record] struct {
	db *gorm.DB
}

func (r *GormRepository[T]) Save(ctx context.Context, item T) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&item).Error
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// SaveIfAbsent checks conflicts inside a transaction. Concurrent inserts
// that pass the check together are stopped by the table's unique indexes.
func (r *GormRepository[T]) SaveIfAbsent(ctx context.Context, item T, conflicts func(existing T) bool) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []T
		if err := tx.Where("agency = ?", item.RecordAgency()).Find(&existing).Error; err != nil {
			return fmt.Errorf("failed to load records: %w", err)
		}
		for _, e := range existing {
			if conflicts(e) {
				return ErrConflict
			}
		}
		return tx.Create(&item).Error
	})
	switch {
	case errors.Is(err, ErrConflict):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	case err != nil:
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (r *GormRepository[T]) Get(ctx context.Context, id string) (T, error) {
	var item T
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return item, ErrNotFound
	}
	if err != nil {
		return item, fmt.Errorf("failed to get record: %w", err)
	}
	return item, nil
}

func (r *GormRepository[T]) List(ctx context.Context) ([]T, error) {
	var items []T
	if err := r.db.WithContext(ctx).Order("created_at").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return items, nil
}

func (r *GormRepository[T]) ListByAgency(ctx context.Context, agency string) ([]T, error) {
	var items []T
	err := r.db.WithContext(ctx).
		Where("agency = ?", agency).
		Order("created_at").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return items, nil
}

func (r *GormRepository[T]) Update(ctx context.Context, id string, fn func(*T)) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item T
		err := tx.Where("id = ?", id).First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load record: %w", err)
		}

		fn(&item)
		if err := tx.Save(&item).Error; err != nil {
			return fmt.Errorf("failed to update record: %w", err)
		}
		return nil
	})
}

func (r *GormRepository[T]) Delete(ctx context.Context, id string) error {
	var item T
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&item).Error; err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func (r *GormRepository[T]) Count(ctx context.Context) (int, error) {
	var item T
	var n int64
	if err := r.db.WithContext(ctx).Model(&item).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return int(n), nil
}
