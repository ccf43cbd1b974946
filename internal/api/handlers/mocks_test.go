package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	domain "pricewatch/pkg/types"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListItems(ctx context.Context) ([]domain.Item, error) {
	args := m.Called(ctx)
	if items, ok := args.Get(0).([]domain.Item); ok {
		return items, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) GetItemsByURL(ctx context.Context, url string) ([]domain.Item, error) {
	args := m.Called(ctx, url)
	if items, ok := args.Get(0).([]domain.Item); ok {
		return items, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	args := m.Called(ctx, id)
	if item, ok := args.Get(0).(*domain.Item); ok {
		return item, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) CreateItem(ctx context.Context, item *domain.Item) error {
	return m.Called(ctx, item).Error(0)
}

func (m *mockStore) SaveItem(ctx context.Context, item *domain.Item) error {
	return m.Called(ctx, item).Error(0)
}

func (m *mockStore) RemoveSubscriber(ctx context.Context, itemID, userID string) error {
	return m.Called(ctx, itemID, userID).Error(0)
}

func (m *mockStore) CreateUser(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(*domain.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*domain.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) GetUsersByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	args := m.Called(ctx, ids)
	if users, ok := args.Get(0).([]domain.User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) SaveUser(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendPriceNotification(ctx context.Context, to, itemURL string, price float64) error {
	return m.Called(ctx, to, itemURL, price).Error(0)
}

func (m *mockMailer) SendActivationEmail(ctx context.Context, to, token string) error {
	return m.Called(ctx, to, token).Error(0)
}
