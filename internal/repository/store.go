package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/revenue/api/internal/database"
)

// Store groups the repositories that a use case touches, all bound to the
// same Querier so they share a transaction when one is open.
type Store struct {
	Rates         RateConfigRepository
	Registrations RegistrationRepository
	Assessments   AssessmentRepository
	Billing       BillingRepository
	Payments      PaymentRepository
}

// NewStore builds a Store whose repositories run on q.
func NewStore(q database.Querier) *Store {
	return &Store{
		Rates:         NewRateConfigRepository(q),
		Registrations: NewRegistrationRepository(q),
		Assessments:   NewAssessmentRepository(q),
		Billing:       NewBillingRepository(q),
		Payments:      NewPaymentRepository(q),
	}
}

// Transactor runs a unit of work against a Store bound to one transaction.
type Transactor interface {
	// InTx commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, store *Store) error) error
}

type transactor struct {
	db *database.Database
}

// NewTransactor creates a Transactor backed by db.
func NewTransactor(db *database.Database) Transactor {
	return &transactor{db: db}
}

func (t *transactor) InTx(ctx context.Context, fn func(ctx context.Context, store *Store) error) error {
	return t.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, NewStore(tx))
	})
}
