package domain

import "time"

// Borrow is one loan of one book copy to one user. ReturnDate is nil while
// the loan is active and is set exactly once; there is no un-returning.
// A partial unique index on the pair (created by repo.Migrate, postgres
// only) keeps at most one active row per (user, book); on mysql the
// transactional borrow path alone carries that invariant. The struct tags
// stay free of dialect-specific DDL so AutoMigrate works on both drivers.
type Borrow struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	UserEmail  string     `gorm:"size:191;not null;index:idx_borrow_pair,priority:1" json:"userEmail"`
	BookISBN   string     `gorm:"size:32;not null;index:idx_borrow_pair,priority:2" json:"bookIsbn"`
	BorrowDate time.Time  `gorm:"index;not null" json:"borrowDate"`
	DueDate    time.Time  `gorm:"index;not null" json:"dueDate"`
	ReturnDate *time.Time `gorm:"index" json:"returnDate,omitempty"`
}

func (Borrow) TableName() string { return "borrows" }

// Status is the derived classification of a borrow at a point in time.
type Status string

const (
	StatusActive         Status = "ACTIVE"
	StatusOverdue        Status = "OVERDUE"
	StatusReturnedOnTime Status = "RETURNED_ON_TIME"
	StatusReturnedLate   Status = "RETURNED_LATE"
)

// Classify derives the status of b as of now. Pure: only the three
// timestamps matter. An unreturned borrow is overdue strictly after its due
// date; a returned one is late only if handed back strictly after it.
func (b *Borrow) Classify(now time.Time) Status {
	if b.ReturnDate == nil {
		if b.DueDate.Before(now) {
			return StatusOverdue
		}
		return StatusActive
	}
	if b.ReturnDate.After(b.DueDate) {
		return StatusReturnedLate
	}
	return StatusReturnedOnTime
}

// OverdueEntry is one row of the overdue listing.
type OverdueEntry struct {
	UserEmail string    `json:"userEmail"`
	BookISBN  string    `json:"bookIsbn"`
	Title     string    `json:"bookTitle"`
	DueDate   time.Time `json:"dueDate"`
}
