package orders

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Orders is the storage accessor for order records. Status changes go through
// UpdateStatus, a conditional update guarded by the expected current status so
// concurrent transitions cannot race past a terminal-state check.
type Orders interface {
	repository.Repository[*Order]

	Create(ctx context.Context, record *Order, criteria ...repository.InsertCriteria) (*Order, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Order, criteria ...repository.InsertCriteria) (*Order, error)
	GetOwnedByID(ctx context.Context, id, userID uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to OrderStatus) (*Order, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, from, to OrderStatus) (*Order, error)
}

type ordersRepo struct {
	repository.Repository[*Order]
	db *bun.DB
}

var (
	_ Orders                        = (*ordersRepo)(nil)
	_ repository.Repository[*Order] = (*ordersRepo)(nil)
)

// NewOrdersRepository builds the bun backed Orders accessor.
func NewOrdersRepository(db *bun.DB) Orders {
	repo := repository.NewRepository[*Order](db, repository.ModelHandlers[*Order]{
		NewRecord: func() *Order { return &Order{} },
		GetID: func(o *Order) uuid.UUID {
			if o == nil {
				return uuid.Nil
			}
			return o.ID
		},
		SetID: func(o *Order, id uuid.UUID) {
			if o != nil {
				o.ID = id
			}
		},
	})

	return &ordersRepo{
		Repository: repo,
		db:         db,
	}
}

func (r *ordersRepo) Create(ctx context.Context, record *Order, criteria ...repository.InsertCriteria) (*Order, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *ordersRepo) CreateTx(ctx context.Context, tx bun.IDB, record *Order, criteria ...repository.InsertCriteria) (*Order, error) {
	prepareOrderDefaults(record)
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}

// GetOwnedByID loads an order only when it belongs to userID. Missing records
// and ownership mismatches are indistinguishable to the caller.
func (r *ordersRepo) GetOwnedByID(ctx context.Context, id, userID uuid.UUID) (*Order, error) {
	record := &Order{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	record.EnsureStatus()
	return record, nil
}

func (r *ordersRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	var records []*Order
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *ordersRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to OrderStatus) (*Order, error) {
	return r.UpdateStatusTx(ctx, r.db, id, from, to)
}

// UpdateStatusTx performs the compare-and-swap status write. The WHERE clause
// carries the expected current status; zero rows updated means either the
// record is gone or another request transitioned it first.
func (r *ordersRepo) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, from, to OrderStatus) (*Order, error) {
	now := time.Now()
	res, err := tx.NewUpdate().
		Model((*Order)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", now).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.status = ?", from).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	if affected == 0 {
		exists, err := tx.NewSelect().
			Model((*Order)(nil)).
			Where("?TableAlias.id = ?", id).
			Exists(ctx)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrOrderNotFound
		}
		// zero rows but the record exists: another request moved it first
		return nil, ErrInvalidTransition
	}

	return &Order{ID: id, Status: to, UpdatedAt: &now}, nil
}

func prepareOrderDefaults(record *Order) {
	if record == nil {
		return
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.EnsureStatus()
}
