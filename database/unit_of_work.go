package database

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
)

// ErrUnitClosed is returned when a finished unit of work is used again.
var ErrUnitClosed = errors.New("unit of work already committed or rolled back")

// UnitOfWork is an explicit transaction handed to repositories. Nothing written
// through it is visible to other connections until Commit succeeds.
type UnitOfWork struct {
	tx   *gorm.DB
	done bool
}

// Begin starts a transaction bound to ctx.
func Begin(ctx context.Context, db *gorm.DB) (*UnitOfWork, error) {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	return &UnitOfWork{tx: tx}, nil
}

// DB returns the transaction handle for repository construction.
func (u *UnitOfWork) DB() *gorm.DB {
	return u.tx
}

// Commit commits the unit. On failure the transaction is rolled back; a
// rollback error is logged and the commit error is returned.
func (u *UnitOfWork) Commit() error {
	if u.done {
		return ErrUnitClosed
	}
	u.done = true
	if err := u.tx.Commit().Error; err != nil {
		if rbErr := u.tx.Rollback().Error; rbErr != nil && !errors.Is(rbErr, gorm.ErrInvalidTransaction) {
			log.Printf("database: rollback after failed commit also failed: %v", rbErr)
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback aborts the unit. Calling it after Commit is a no-op, so it is safe to defer.
func (u *UnitOfWork) Rollback() {
	if u.done {
		return
	}
	u.done = true
	if err := u.tx.Rollback().Error; err != nil {
		log.Printf("database: rollback failed: %v", err)
	}
}
