// Package store defines the datastore abstraction for pricewatch.
// All business logic depends on the Store interface, never on concrete
// implementations. This enables mock-based testing without a running database.
package store

import (
	"context"
	"errors"

	domain "pricewatch/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateEmail is returned when creating a user whose email is taken.
var ErrDuplicateEmail = errors.New("email is already registered")

// Store defines all data access operations for pricewatch.
type Store interface {
	// Items
	ListItems(ctx context.Context) ([]domain.Item, error)
	GetItemsByURL(ctx context.Context, url string) ([]domain.Item, error)
	GetItem(ctx context.Context, id string) (*domain.Item, error)
	CreateItem(ctx context.Context, item *domain.Item) error
	SaveItem(ctx context.Context, item *domain.Item) error
	RemoveSubscriber(ctx context.Context, itemID, userID string) error

	// Users
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]domain.User, error)
	SaveUser(ctx context.Context, u *domain.User) error

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}
