package repository

import (
	"context"

	"gorm.io/gorm"
)

// Transactor runs a unit of work inside a single database transaction.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type transactor struct {
	db *gorm.DB
}

// NewTransactor constructs a GORM-backed transactor.
func NewTransactor(db *gorm.DB) Transactor {
	return &transactor{db: db}
}

func (t *transactor) InTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}
