// Package store provides data storage interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/cigarro-stock/internal/model"
)

// Store errors.
var (
	ErrNotFound      = errors.New("cigarro not found")
	ErrAlreadyExists = errors.New("cigarro already exists")
	ErrConflict      = errors.New("cigarro was modified concurrently")
	ErrInvalidID     = errors.New("invalid cigarro ID")
	ErrNilCigarro    = errors.New("cigarro cannot be nil")
)

// Repository defines the storage operations for cigarros.
// Implementations enforce name uniqueness and must be safe for concurrent use.
type Repository interface {
	// Create persists a new cigarro and returns it with its assigned ID.
	// Returns ErrAlreadyExists if the name is taken.
	Create(ctx context.Context, c *model.Cigarro) (*model.Cigarro, error)

	// FindByID retrieves a cigarro by its ID.
	FindByID(ctx context.Context, id int64) (*model.Cigarro, error)

	// FindByName retrieves a cigarro by its exact name.
	FindByName(ctx context.Context, name string) (*model.Cigarro, error)

	// FindAll returns all cigarros ordered by ID.
	FindAll(ctx context.Context) ([]model.Cigarro, error)

	// DeleteByID removes a cigarro by its ID.
	DeleteByID(ctx context.Context, id int64) error

	// UpdateQuantity sets the quantity of a cigarro only if its stored
	// quantity still equals expected. Returns ErrConflict otherwise.
	UpdateQuantity(ctx context.Context, id int64, expected, quantity int) (*model.Cigarro, error)

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying resources.
	Close() error
}

func validateID(id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return nil
}
