package postgres

import (
	"context"
	"database/sql"

	"carpool/internal/service"
)

// TxManager implements service.TxManager over database/sql transactions,
// handing the unit of work transaction-scoped repositories.
type TxManager struct {
	db *sql.DB
}

// NewTxManager creates a new TxManager.
func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx begins a transaction, builds transaction-scoped repositories and
// runs fn. The transaction is rolled back when fn fails and committed
// otherwise.
func (m *TxManager) WithinTx(ctx context.Context, fn func(r service.Repos) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	repos := service.Repos{
		Rides:    NewRideRepositoryWithTx(tx),
		Requests: NewRequestRepositoryWithTx(tx),
		Bookings: NewBookingRepositoryWithTx(tx),
		Users:    NewUserRepositoryWithTx(tx),
	}

	if err := fn(repos); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

var _ service.TxManager = (*TxManager)(nil)
