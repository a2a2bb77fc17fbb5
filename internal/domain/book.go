package domain

import "time"

// Book is a catalog entry. AvailableQuantity is never stored; it is derived
// from TotalQuantity minus the count of active borrows for the ISBN.
type Book struct {
	ISBN          string    `gorm:"primaryKey;size:32" json:"isbn"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Author        string    `gorm:"size:255;not null" json:"author"`
	Shelf         string    `gorm:"size:32" json:"shelf"`
	TotalQuantity int       `gorm:"not null" json:"totalQuantity"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Book) TableName() string { return "books" }

// Availability is the derived copy accounting for one book.
type Availability struct {
	ISBN              string `json:"isbn"`
	TotalQuantity     int    `json:"totalQuantity"`
	AvailableQuantity int    `json:"availableQuantity"`
}
