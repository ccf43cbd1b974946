package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/store"
	domain "pricewatch/pkg/types"
)

const testUserID = "user-1"

func itemContext(t *testing.T, req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", testUserID)
	return c, rec
}

func TestItemAdd(t *testing.T) {
	t.Parallel()

	const url = "https://shop.example/widget"

	tests := []struct {
		name       string
		body       string
		setup      func(*mockStore)
		wantStatus int
		wantBody   string
	}{
		{
			name: "creates new item",
			body: `{"url":"https://shop.example/widget","selector":".price","max_price":100}`,
			setup: func(st *mockStore) {
				st.On("GetItemsByURL", mock.Anything, url).
					Return([]domain.Item{}, nil).Once()
				st.On("CreateItem", mock.Anything, mock.MatchedBy(func(i *domain.Item) bool {
					return i.URL == url && i.Selector == ".price" &&
						len(i.Subscribers) == 1 && i.Subscribers[0].UserID == testUserID
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*domain.Item).ID = "item-1"
				}).Return(nil).Once()
			},
			wantStatus: http.StatusCreated,
			wantBody:   `"max_price":100`,
		},
		{
			name: "subscribes to existing item with same url and selector",
			body: `{"url":"https://shop.example/widget","selector":".price","max_price":80}`,
			setup: func(st *mockStore) {
				st.On("GetItemsByURL", mock.Anything, url).
					Return([]domain.Item{{
						ID:          "item-1",
						URL:         url,
						Selector:    ".price",
						Subscribers: []domain.Subscriber{{UserID: "someone-else", MaxPrice: 50}},
					}}, nil).Once()
				st.On("SaveItem", mock.Anything, mock.MatchedBy(func(i *domain.Item) bool {
					return len(i.Subscribers) == 2 && i.Subscribers[1].UserID == testUserID
				})).Return(nil).Once()
			},
			wantStatus: http.StatusCreated,
			wantBody:   `"id":"item-1"`,
		},
		{
			name: "different selector on same url creates a new item",
			body: `{"url":"https://shop.example/widget","selector":".sale-price","max_price":80}`,
			setup: func(st *mockStore) {
				st.On("GetItemsByURL", mock.Anything, url).
					Return([]domain.Item{{
						ID:       "item-1",
						URL:      url,
						Selector: ".price",
					}}, nil).Once()
				st.On("CreateItem", mock.Anything, mock.MatchedBy(func(i *domain.Item) bool {
					return i.Selector == ".sale-price"
				})).Return(nil).Once()
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "already tracking",
			body: `{"url":"https://shop.example/widget","selector":".price","max_price":100}`,
			setup: func(st *mockStore) {
				st.On("GetItemsByURL", mock.Anything, url).
					Return([]domain.Item{{
						ID:          "item-1",
						URL:         url,
						Selector:    ".price",
						Subscribers: []domain.Subscriber{{UserID: testUserID, MaxPrice: 100}},
					}}, nil).Once()
			},
			wantStatus: http.StatusConflict,
			wantBody:   "already tracking",
		},
		{
			name:       "missing selector",
			body:       `{"url":"https://shop.example/widget","max_price":100}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid url",
			body:       `{"url":"not a url","selector":".price","max_price":100}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "zero max price is a valid threshold",
			body: `{"url":"https://shop.example/widget","selector":".price","max_price":0}`,
			setup: func(st *mockStore) {
				st.On("GetItemsByURL", mock.Anything, url).
					Return([]domain.Item{}, nil).Once()
				st.On("CreateItem", mock.Anything, mock.MatchedBy(func(i *domain.Item) bool {
					return len(i.Subscribers) == 1 && i.Subscribers[0].MaxPrice == 0
				})).Return(nil).Once()
			},
			wantStatus: http.StatusCreated,
			wantBody:   `"max_price":0`,
		},
		{
			name:       "negative max price",
			body:       `{"url":"https://shop.example/widget","selector":".price","max_price":-5}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   "must not be negative",
		},
		{
			name:       "missing max price",
			body:       `{"url":"https://shop.example/widget","selector":".price"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st := &mockStore{}
			if tt.setup != nil {
				tt.setup(st)
			}
			h := NewItemHandler(st)

			c, rec := itemContext(t, jsonRequest(http.MethodPost, "/api/v1/items", tt.body))

			require.NoError(t, h.Add(c))
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			st.AssertExpectations(t)
		})
	}
}

func TestItemListFiltersToCaller(t *testing.T) {
	t.Parallel()

	checkedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	st := &mockStore{}
	st.On("ListItems", mock.Anything).Return([]domain.Item{
		{
			ID:        "mine",
			URL:       "https://shop.example/a",
			Selector:  ".price",
			Snapshots: []domain.Snapshot{{Timestamp: checkedAt, Price: 42.5}},
			Subscribers: []domain.Subscriber{
				{UserID: testUserID, MaxPrice: 100},
				{UserID: "someone-else", MaxPrice: 10},
			},
		},
		{
			ID:          "not-mine",
			URL:         "https://shop.example/b",
			Selector:    ".price",
			Subscribers: []domain.Subscriber{{UserID: "someone-else", MaxPrice: 10}},
		},
	}, nil).Once()

	h := NewItemHandler(st)
	c, rec := itemContext(t, httptest.NewRequest(http.MethodGet, "/api/v1/items", http.NoBody))

	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `"id":"mine"`)
	assert.Contains(t, body, `"last_price":42.5`)
	assert.Contains(t, body, `"max_price":100`)
	assert.NotContains(t, body, "not-mine")
	assert.NotContains(t, body, "someone-else")
}

func TestItemGet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		setup      func(*mockStore)
		wantStatus int
		wantBody   string
	}{
		{
			name: "returns detail with history",
			setup: func(st *mockStore) {
				st.On("GetItem", mock.Anything, "item-1").Return(&domain.Item{
					ID:       "item-1",
					URL:      "https://shop.example/a",
					Selector: ".price",
					Snapshots: []domain.Snapshot{
						{Timestamp: time.Now(), Price: 50},
						{Timestamp: time.Now(), Price: 45},
					},
					Subscribers: []domain.Subscriber{{UserID: testUserID, MaxPrice: 60}},
				}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `"snapshots"`,
		},
		{
			name: "unknown id",
			setup: func(st *mockStore) {
				st.On("GetItem", mock.Anything, "item-1").
					Return(nil, store.ErrNotFound).Once()
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "not subscribed looks like not found",
			setup: func(st *mockStore) {
				st.On("GetItem", mock.Anything, "item-1").Return(&domain.Item{
					ID:          "item-1",
					Subscribers: []domain.Subscriber{{UserID: "someone-else", MaxPrice: 60}},
				}, nil).Once()
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st := &mockStore{}
			tt.setup(st)
			h := NewItemHandler(st)

			c, rec := itemContext(t, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
			c.SetPath("/api/v1/items/:id")
			c.SetParamNames("id")
			c.SetParamValues("item-1")

			require.NoError(t, h.Get(c))
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			st.AssertExpectations(t)
		})
	}
}

func TestItemDelete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		removeErr  error
		wantStatus int
	}{
		{
			name:       "removes subscription",
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "unknown item",
			removeErr:  store.ErrNotFound,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st := &mockStore{}
			st.On("RemoveSubscriber", mock.Anything, "item-1", testUserID).
				Return(tt.removeErr).Once()
			h := NewItemHandler(st)

			c, rec := itemContext(t, httptest.NewRequest(http.MethodDelete, "/", http.NoBody))
			c.SetPath("/api/v1/items/:id")
			c.SetParamNames("id")
			c.SetParamValues("item-1")

			require.NoError(t, h.Delete(c))
			assert.Equal(t, tt.wantStatus, rec.Code)
			st.AssertExpectations(t)
		})
	}
}
