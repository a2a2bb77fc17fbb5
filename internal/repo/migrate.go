package repo

import (
	"gorm.io/gorm"

	"go-library-api/internal/domain"
)

// uxActiveBorrowSQL is the backstop for the one-active-borrow-per-pair
// invariant: at most one row per (user_email, book_isbn) with return_date
// still null. Partial indexes are a postgres feature, so it lives here
// instead of in a struct tag; mysql relies on the row-locked borrow
// transaction alone.
const uxActiveBorrowSQL = `CREATE UNIQUE INDEX IF NOT EXISTS ux_active_borrow ` +
	`ON borrows (user_email, book_isbn) WHERE return_date IS NULL`

// Migrate creates or updates the schema for all models and, where the
// dialect allows it, the partial unique index guarding active borrows.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.Book{}, &domain.User{}, &domain.Borrow{}); err != nil {
		return err
	}
	if supportsPartialIndex(db.Dialector.Name()) {
		return db.Exec(uxActiveBorrowSQL).Error
	}
	return nil
}

func supportsPartialIndex(dialect string) bool { return dialect == "postgres" }
