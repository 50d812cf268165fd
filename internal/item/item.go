// Package item manages inventory items ("barang"): persistence, ownership
// checks, image attachments and the HTTP surface.
package item

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when an item does not exist.
	ErrNotFound = errors.New("item not found")
	// ErrForbidden is returned when a non-admin caller does not own the item.
	ErrForbidden = errors.New("item belongs to another user")
	// ErrInvalidInput is returned when a required field is missing or malformed.
	ErrInvalidInput = errors.New("invalid item input")
	// ErrImageFormat is returned for an image whose extension is not allowed.
	ErrImageFormat = errors.New("image format not allowed")
)

// Item is a tracked inventory entry. OwnerID never changes after creation.
type Item struct {
	ID        int64
	OwnerID   string
	ImagePath *string // storage key, nil when no image was attached
	Name      string
	Category  string
	Quantity  int
}

// View is the JSON representation of an item.
type View struct {
	ID       int64   `json:"id" example:"1"`
	ImageURL *string `json:"imageUrl" example:"http://localhost:8080/static/uploads/u_20261019101500123456.png"`
	Name     string  `json:"namaBarang" example:"Chair"`
	Category string  `json:"kategori" example:"Furniture"`
	Quantity int     `json:"jumlah" example:"4"`
}

// Repository persists items and the queue of stored images awaiting removal.
type Repository interface {
	ListAll(ctx context.Context) ([]Item, error)
	ListByOwner(ctx context.Context, owner string) ([]Item, error)
	GetByID(ctx context.Context, id int64) (*Item, error)
	// Create inserts it and sets it.ID.
	Create(ctx context.Context, it *Item) error
	// Update stores name, category and quantity; other fields are ignored.
	Update(ctx context.Context, it *Item) error
	// Delete removes the item and, atomically with it, queues its image key
	// for removal from storage.
	Delete(ctx context.Context, id int64) error

	// PendingImageDeletions lists queued keys with the fewest failed
	// attempts first, so keys that keep failing cannot starve newer ones.
	PendingImageDeletions(ctx context.Context, limit int) ([]string, error)
	ResolveImageDeletion(ctx context.Context, key string) error
	RecordImageDeletionFailure(ctx context.Context, key string, cause error) error
}
