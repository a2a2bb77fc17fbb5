package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	"go-library-api/internal/core/config"
	"go-library-api/internal/core/database"
	"go-library-api/internal/core/logger"
	"go-library-api/internal/domain"
	"go-library-api/internal/ledger"
	"go-library-api/internal/repo"
	"go-library-api/pkg/utils"
)

// Seeds a small catalog, a few users, and a borrow history covering every
// status: active, overdue, returned on time, returned late. Existing rows
// are left alone, so reruns are safe.
func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}
	if err := repo.Migrate(db); err != nil {
		log.Fatal("automigrate failed", zap.Error(err))
	}

	books := []domain.Book{
		{ISBN: "978-0-06-112008-4", Title: "To Kill a Mockingbird", Author: "Harper Lee", Shelf: "A1", TotalQuantity: 5},
		{ISBN: "978-0-7432-7356-5", Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", Shelf: "A1", TotalQuantity: 8},
		{ISBN: "978-0-452-28423-4", Title: "1984", Author: "George Orwell", Shelf: "A2", TotalQuantity: 12},
		{ISBN: "978-0-14-143951-8", Title: "Pride and Prejudice", Author: "Jane Austen", Shelf: "A2", TotalQuantity: 6},
		{ISBN: "978-0-553-21311-0", Title: "Brave New World", Author: "Aldous Huxley", Shelf: "A4", TotalQuantity: 9},
		{ISBN: "978-0-385-53785-8", Title: "The Da Vinci Code", Author: "Dan Brown", Shelf: "B2", TotalQuantity: 20},
	}
	users := []domain.User{
		{Email: "head.librarian@library.local", Name: "Head Librarian", Role: domain.RoleLibrarian},
		{Email: "alice@example.com", Name: "Alice", Role: domain.RolePatron},
		{Email: "bob@example.com", Name: "Bob", Role: domain.RolePatron},
		{Email: "carol@example.com", Name: "Carol", Role: domain.RolePatron},
	}

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&books).Error; err != nil {
		log.Fatal("seed books failed", zap.Error(err))
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&users).Error; err != nil {
		log.Fatal("seed users failed", zap.Error(err))
	}

	period := time.Duration(cfg.Loan.PeriodDays) * 24 * time.Hour
	if period <= 0 {
		period = ledger.DefaultLoanPeriod
	}
	now := time.Now().UTC()
	ago := func(days int) time.Time { return now.AddDate(0, 0, -days) }
	ptr := func(t time.Time) *time.Time { return &t }

	// Deterministic ids keyed on the pair: a rerun produces the same primary
	// keys, so OnConflict DoNothing skips rows that already exist instead of
	// duplicating the history.
	sid := func(email, isbn string) string { return utils.DeterministicID("seed-borrow", email, isbn) }

	borrows := []domain.Borrow{
		// active, due in a few days
		{ID: sid("alice@example.com", "978-0-452-28423-4"),
			UserEmail: "alice@example.com", BookISBN: "978-0-452-28423-4",
			BorrowDate: ago(10), DueDate: ago(10).Add(period)},
		// overdue, never returned
		{ID: sid("bob@example.com", "978-0-06-112008-4"),
			UserEmail: "bob@example.com", BookISBN: "978-0-06-112008-4",
			BorrowDate: ago(20), DueDate: ago(20).Add(period)},
		// returned on time
		{ID: sid("carol@example.com", "978-0-7432-7356-5"),
			UserEmail: "carol@example.com", BookISBN: "978-0-7432-7356-5",
			BorrowDate: ago(25), DueDate: ago(25).Add(period), ReturnDate: ptr(ago(15))},
		// returned late
		{ID: sid("alice@example.com", "978-0-385-53785-8"),
			UserEmail: "alice@example.com", BookISBN: "978-0-385-53785-8",
			BorrowDate: ago(30), DueDate: ago(30).Add(period), ReturnDate: ptr(ago(5))},
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&borrows).Error; err != nil {
		log.Fatal("seed borrows failed", zap.Error(err))
	}

	log.Info("seed done",
		zap.Int("books", len(books)),
		zap.Int("users", len(users)),
		zap.Int("borrows", len(borrows)),
	)
}
