package tracker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	ptestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/metrics"
	domain "pricewatch/pkg/types"
)

const priceHTML = `<html><body><span class="price">$89.99</span></body></html>`

var testClock = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestTracker(s *mockStore, f *mockFetcher, m *mockMailer, opts ...Option) *Tracker {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithStaggerOffset(0),
		WithNowFunc(func() time.Time { return testClock }),
	}
	return NewTracker(s, f, m, append(base, opts...)...)
}

func TestTrackRejectsItemWithoutURL(t *testing.T) {
	t.Parallel()

	tr := newTestTracker(&mockStore{}, &mockFetcher{}, &mockMailer{})

	res, err := tr.Track(context.Background(), &domain.Item{ID: "i1"})
	require.ErrorIs(t, err, ErrInvalidItem)
	assert.Nil(t, res)
}

func TestTrackRecordsSnapshotAndResolvesSubscribers(t *testing.T) {
	t.Parallel()

	item := &domain.Item{
		ID:       "i1",
		URL:      "https://shop.example/widget",
		Selector: ".price",
		Subscribers: []domain.Subscriber{
			{UserID: "u1", MaxPrice: 100},
			{UserID: "u2", MaxPrice: 80},
		},
	}

	st := &mockStore{}
	st.On("SaveItem", mock.Anything, item).Return(nil).Once()
	st.On("GetUsersByIDs", mock.Anything, []string{"u1", "u2"}).
		Return([]domain.User{
			{ID: "u1", Email: "one@example.com"},
			{ID: "u2", Email: "two@example.com"},
		}, nil).Once()

	fe := &mockFetcher{}
	fe.On("Fetch", mock.Anything, item.URL).Return([]byte(priceHTML), nil).Once()

	tr := newTestTracker(st, fe, &mockMailer{})

	res, err := tr.Track(context.Background(), item)
	require.NoError(t, err)

	assert.True(t, res.Fetched)
	assert.True(t, res.Resolved)

	require.Len(t, item.Snapshots, 1)
	assert.Equal(t, 89.99, item.Snapshots[0].Price)
	assert.Equal(t, testClock, item.Snapshots[0].Timestamp)

	assert.Equal(t, "one@example.com", item.Subscribers[0].Email)
	assert.Equal(t, "two@example.com", item.Subscribers[1].Email)

	st.AssertExpectations(t)
	fe.AssertExpectations(t)
}

func TestTrackFetchFailureStillResolvesSubscribers(t *testing.T) {
	t.Parallel()

	item := &domain.Item{
		ID:          "i1",
		URL:         "https://shop.example/widget",
		Selector:    ".price",
		Subscribers: []domain.Subscriber{{UserID: "u1", MaxPrice: 100}},
	}

	st := &mockStore{}
	st.On("GetUsersByIDs", mock.Anything, []string{"u1"}).
		Return([]domain.User{{ID: "u1", Email: "one@example.com"}}, nil).Once()

	fe := &mockFetcher{}
	fe.On("Fetch", mock.Anything, item.URL).
		Return(nil, errors.New("connection refused")).Once()

	tr := newTestTracker(st, fe, &mockMailer{})

	res, err := tr.Track(context.Background(), item)
	require.NoError(t, err)

	assert.False(t, res.Fetched)
	assert.Error(t, res.FetchErr)
	assert.True(t, res.Resolved)

	assert.Empty(t, item.Snapshots)
	assert.Equal(t, "one@example.com", item.Subscribers[0].Email)

	st.AssertNotCalled(t, "SaveItem", mock.Anything, mock.Anything)
	st.AssertExpectations(t)
}

func TestTrackResolveFailureStillRecordsSnapshot(t *testing.T) {
	t.Parallel()

	item := &domain.Item{
		ID:          "i1",
		URL:         "https://shop.example/widget",
		Selector:    ".price",
		Subscribers: []domain.Subscriber{{UserID: "u1", MaxPrice: 100}},
	}

	st := &mockStore{}
	st.On("SaveItem", mock.Anything, item).Return(nil).Once()
	st.On("GetUsersByIDs", mock.Anything, []string{"u1"}).
		Return(nil, errors.New("db down")).Once()

	fe := &mockFetcher{}
	fe.On("Fetch", mock.Anything, item.URL).Return([]byte(priceHTML), nil).Once()

	tr := newTestTracker(st, fe, &mockMailer{})

	res, err := tr.Track(context.Background(), item)
	require.NoError(t, err)

	assert.True(t, res.Fetched)
	assert.False(t, res.Resolved)
	assert.Error(t, res.ResolveErr)

	require.Len(t, item.Snapshots, 1)
	assert.Empty(t, item.Subscribers[0].Email)

	st.AssertExpectations(t)
}

func TestTrackSelectorMissingIsFetchLegFailure(t *testing.T) {
	t.Parallel()

	item := &domain.Item{
		ID:       "i1",
		URL:      "https://shop.example/widget",
		Selector: ".does-not-exist",
	}

	fe := &mockFetcher{}
	fe.On("Fetch", mock.Anything, item.URL).Return([]byte(priceHTML), nil).Once()

	tr := newTestTracker(&mockStore{}, fe, &mockMailer{})

	res, err := tr.Track(context.Background(), item)
	require.NoError(t, err)

	assert.False(t, res.Fetched)
	assert.Error(t, res.FetchErr)
	assert.Empty(t, item.Snapshots)
}

func TestSendEmailsFirstNotification(t *testing.T) {
	t.Parallel()

	item := &domain.Item{
		ID:        "i1",
		URL:       "https://shop.example/widget",
		Snapshots: []domain.Snapshot{{Timestamp: testClock, Price: 89.99}},
		Subscribers: []domain.Subscriber{
			{UserID: "u1", MaxPrice: 100, Email: "one@example.com"},
		},
	}

	st := &mockStore{}
	st.On("SaveItem", mock.Anything, item).Return(nil).Once()

	ml := &mockMailer{}
	ml.On("SendPriceNotification", mock.Anything, "one@example.com", item.URL, 89.99).
		Return(nil).Once()

	tr := newTestTracker(st, &mockFetcher{}, ml)

	sentBefore := ptestutil.ToFloat64(metrics.EmailsSentTotal)

	notified := tr.SendEmails(context.Background(), item)
	require.Len(t, notified, 1)
	assert.Equal(t, "u1", notified[0].UserID)
	assert.GreaterOrEqual(t, ptestutil.ToFloat64(metrics.EmailsSentTotal), sentBefore+1)

	sub := item.Subscribers[0]
	assert.Equal(t, 1, sub.EmailsSent)
	require.NotNil(t, sub.LastSentAt)
	assert.Equal(t, testClock, *sub.LastSentAt)

	st.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestSendEmailsThrottledWithinWindow(t *testing.T) {
	t.Parallel()

	lastSent := testClock.Add(-2 * time.Hour)
	item := &domain.Item{
		ID:        "i1",
		URL:       "https://shop.example/widget",
		Snapshots: []domain.Snapshot{{Timestamp: testClock, Price: 89.99}},
		Subscribers: []domain.Subscriber{
			{UserID: "u1", MaxPrice: 100, EmailsSent: 1, LastSentAt: &lastSent, Email: "one@example.com"},
		},
	}

	ml := &mockMailer{}
	tr := newTestTracker(&mockStore{}, &mockFetcher{}, ml)

	notified := tr.SendEmails(context.Background(), item)
	assert.Empty(t, notified)
	assert.Equal(t, 1, item.Subscribers[0].EmailsSent)
	ml.AssertNotCalled(t, "SendPriceNotification",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendEmailsPriceRiseResetsCounter(t *testing.T) {
	t.Parallel()

	lastSent := testClock.Add(-48 * time.Hour)
	item := &domain.Item{
		ID:        "i1",
		URL:       "https://shop.example/widget",
		Snapshots: []domain.Snapshot{{Timestamp: testClock, Price: 120}},
		Subscribers: []domain.Subscriber{
			{UserID: "u1", MaxPrice: 100, EmailsSent: 3, LastSentAt: &lastSent, Email: "one@example.com"},
		},
	}

	st := &mockStore{}
	st.On("SaveItem", mock.Anything, item).Return(nil).Once()

	ml := &mockMailer{}
	tr := newTestTracker(st, &mockFetcher{}, ml)

	notified := tr.SendEmails(context.Background(), item)
	assert.Empty(t, notified)
	assert.Equal(t, 0, item.Subscribers[0].EmailsSent)

	ml.AssertNotCalled(t, "SendPriceNotification",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	st.AssertExpectations(t)
}

func TestSendEmailsDeliveryFailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	item := &domain.Item{
		ID:        "i1",
		URL:       "https://shop.example/widget",
		Snapshots: []domain.Snapshot{{Timestamp: testClock, Price: 89.99}},
		Subscribers: []domain.Subscriber{
			{UserID: "u1", MaxPrice: 100, Email: "one@example.com"},
		},
	}

	ml := &mockMailer{}
	ml.On("SendPriceNotification", mock.Anything, "one@example.com", item.URL, 89.99).
		Return(errors.New("smtp unavailable")).Once()

	tr := newTestTracker(&mockStore{}, &mockFetcher{}, ml)

	notified := tr.SendEmails(context.Background(), item)
	assert.Empty(t, notified)

	sub := item.Subscribers[0]
	assert.Zero(t, sub.EmailsSent)
	assert.Nil(t, sub.LastSentAt)
	ml.AssertExpectations(t)
}

func TestSendEmailsPreservesSubscriberOrder(t *testing.T) {
	t.Parallel()

	lastSent := testClock.Add(-2 * time.Hour)
	item := &domain.Item{
		ID:        "i1",
		URL:       "https://shop.example/widget",
		Snapshots: []domain.Snapshot{{Timestamp: testClock, Price: 89.99}},
		Subscribers: []domain.Subscriber{
			{UserID: "u1", MaxPrice: 100, Email: "one@example.com"},
			{UserID: "u2", MaxPrice: 100, EmailsSent: 1, LastSentAt: &lastSent, Email: "two@example.com"},
			{UserID: "u3", MaxPrice: 95, Email: "three@example.com"},
			{UserID: "u4", MaxPrice: 50, Email: "four@example.com"},
		},
	}

	st := &mockStore{}
	st.On("SaveItem", mock.Anything, item).Return(nil).Once()

	ml := &mockMailer{}
	ml.On("SendPriceNotification", mock.Anything, "one@example.com", item.URL, 89.99).
		Return(nil).Once()
	ml.On("SendPriceNotification", mock.Anything, "three@example.com", item.URL, 89.99).
		Return(nil).Once()

	tr := newTestTracker(st, &mockFetcher{}, ml)

	notified := tr.SendEmails(context.Background(), item)
	require.Len(t, notified, 2)
	assert.Equal(t, "u1", notified[0].UserID)
	assert.Equal(t, "u3", notified[1].UserID)

	// u4's threshold is above the price rise line so their counter resets.
	assert.Equal(t, 0, item.Subscribers[3].EmailsSent)
	assert.Nil(t, item.Subscribers[3].LastSentAt)

	ml.AssertExpectations(t)
	st.AssertExpectations(t)
}

func TestSendEmailsSkipsUnresolvedAddresses(t *testing.T) {
	t.Parallel()

	item := &domain.Item{
		ID:        "i1",
		URL:       "https://shop.example/widget",
		Snapshots: []domain.Snapshot{{Timestamp: testClock, Price: 89.99}},
		Subscribers: []domain.Subscriber{
			{UserID: "u1", MaxPrice: 100},
		},
	}

	ml := &mockMailer{}
	tr := newTestTracker(&mockStore{}, &mockFetcher{}, ml)

	notified := tr.SendEmails(context.Background(), item)
	assert.Empty(t, notified)
	assert.Zero(t, item.Subscribers[0].EmailsSent)
	ml.AssertNotCalled(t, "SendPriceNotification",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendEmailsNoSnapshots(t *testing.T) {
	t.Parallel()

	item := &domain.Item{
		ID:          "i1",
		URL:         "https://shop.example/widget",
		Subscribers: []domain.Subscriber{{UserID: "u1", MaxPrice: 100, Email: "one@example.com"}},
	}

	tr := newTestTracker(&mockStore{}, &mockFetcher{}, &mockMailer{})
	assert.Nil(t, tr.SendEmails(context.Background(), item))
}
