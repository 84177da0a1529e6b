// Package repository implements the credential store: durable
// relational storage of users, roles, permissions, their join rows and
// password-reset tokens, accessed through GORM. One Store aggregates
// every entity's queries; WithTx provides the transactional
// unit-of-work the role-administration and reset-password flows run
// inside.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store wraps a *gorm.DB handle. The zero value is not usable; build
// one with NewStore.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store over an open database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx runs fn inside a single database transaction. The Store
// passed to fn routes every query through that transaction; returning
// an error rolls the whole transaction back. Nested calls join the
// outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}
