package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pricewatch/internal/mail"
	"pricewatch/internal/metrics"
	"pricewatch/internal/scrape"
	"pricewatch/internal/store"
	domain "pricewatch/pkg/types"
)

// ErrInvalidItem is returned when a tracked item is missing its URL and can
// never be checked.
var ErrInvalidItem = errors.New("tracked item has no url")

// Fetcher retrieves the raw page for a tracked item's URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Tracker refreshes tracked item prices and notifies subscribers.
type Tracker struct {
	store   store.Store
	fetcher Fetcher
	mailer  mail.Mailer
	log     *slog.Logger

	policy        Policy
	staggerOffset time.Duration
	nowFunc       func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used for cycle diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(t *Tracker) {
		if log != nil {
			t.log = log
		}
	}
}

// WithPolicy overrides the default notification policy.
func WithPolicy(p Policy) Option {
	return func(t *Tracker) {
		t.policy = p
	}
}

// WithStaggerOffset sets the pause between items during a full sweep.
func WithStaggerOffset(d time.Duration) Option {
	return func(t *Tracker) {
		t.staggerOffset = d
	}
}

// WithNowFunc overrides the clock, for tests.
func WithNowFunc(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.nowFunc = now
		}
	}
}

// NewTracker creates a Tracker with the default policy and a 2s sweep stagger.
func NewTracker(s store.Store, f Fetcher, m mail.Mailer, opts ...Option) *Tracker {
	t := &Tracker{
		store:         s,
		fetcher:       f,
		mailer:        m,
		log:           slog.Default(),
		policy:        DefaultPolicy(),
		staggerOffset: 2 * time.Second,
		nowFunc:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TrackResult records the outcome of a single item cycle. Each leg can fail
// independently without aborting the other.
type TrackResult struct {
	Item *domain.Item

	Fetched  bool
	FetchErr error

	Resolved   bool
	ResolveErr error
}

// Track runs one cycle for an item: refresh its price snapshot and resolve
// its subscribers' email addresses. The two legs run concurrently and a
// failure in one never blocks the other. The only error return is
// ErrInvalidItem for an item with no URL.
func (t *Tracker) Track(ctx context.Context, item *domain.Item) (*TrackResult, error) {
	if item.URL == "" {
		return nil, ErrInvalidItem
	}

	res := &TrackResult{Item: item}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.FetchErr = t.refreshPrice(ctx, item)
		res.Fetched = res.FetchErr == nil
	}()
	go func() {
		defer wg.Done()
		res.ResolveErr = t.resolveSubscribers(ctx, item)
		res.Resolved = res.ResolveErr == nil
	}()
	wg.Wait()

	if res.FetchErr != nil {
		t.log.Error("price refresh failed", "url", item.URL, "error", res.FetchErr)
	}
	if res.ResolveErr != nil {
		t.log.Error("subscriber resolution failed", "url", item.URL, "error", res.ResolveErr)
	}

	return res, nil
}

// refreshPrice fetches the item's page, extracts the current price, appends a
// snapshot, and persists the item.
func (t *Tracker) refreshPrice(ctx context.Context, item *domain.Item) error {
	body, err := t.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		metrics.FetchFailuresTotal.Inc()
		return fmt.Errorf("fetching %s: %w", item.URL, err)
	}

	price, err := scrape.Price(body, item.Selector)
	if err != nil {
		metrics.ParseFailuresTotal.Inc()
		return fmt.Errorf("extracting price from %s: %w", item.URL, err)
	}

	item.AppendSnapshot(t.nowFunc().UTC(), price)

	if err := t.store.SaveItem(ctx, item); err != nil {
		return fmt.Errorf("persisting snapshot for %s: %w", item.URL, err)
	}

	t.log.Debug("recorded snapshot", "url", item.URL, "price", price)
	return nil
}

// resolveSubscribers loads the email address for every subscriber of the item
// and attaches it in memory for this cycle. Addresses are never persisted on
// the item.
func (t *Tracker) resolveSubscribers(ctx context.Context, item *domain.Item) error {
	if len(item.Subscribers) == 0 {
		return nil
	}

	users, err := t.store.GetUsersByIDs(ctx, item.SubscriberIDs())
	if err != nil {
		metrics.ResolveFailuresTotal.Inc()
		return fmt.Errorf("resolving subscribers for %s: %w", item.URL, err)
	}

	byID := make(map[string]string, len(users))
	for _, u := range users {
		byID[u.ID] = u.Email
	}

	for i := range item.Subscribers {
		item.Subscribers[i].Email = byID[item.Subscribers[i].UserID]
	}
	return nil
}

// SendEmails evaluates every subscriber of the item against its latest
// snapshot and sends the notifications that are owed. Subscriber throttle
// state advances only after a confirmed send; delivery failures leave the
// subscriber eligible for the next cycle. Returns the notified subscribers
// in their stored order.
func (t *Tracker) SendEmails(ctx context.Context, item *domain.Item) []domain.Subscriber {
	last := item.LastSnapshot()
	if last == nil {
		return nil
	}

	var notified []domain.Subscriber
	changed := false

	for i := range item.Subscribers {
		sub := &item.Subscribers[i]

		d := t.policy.Evaluate(*last, *sub)
		if d.ResetCounter && sub.EmailsSent != 0 {
			sub.EmailsSent = 0
			changed = true
		}
		if !d.Send {
			continue
		}

		if sub.Email == "" {
			t.log.Warn("skipping subscriber with unresolved email",
				"url", item.URL, "user_id", sub.UserID)
			continue
		}

		if err := t.mailer.SendPriceNotification(ctx, sub.Email, item.URL, last.Price); err != nil {
			metrics.DeliveryFailuresTotal.Inc()
			t.log.Error("notification delivery failed",
				"url", item.URL, "user_id", sub.UserID, "error", err)
			continue
		}

		metrics.EmailsSentTotal.Inc()
		sentAt := last.Timestamp
		sub.LastSentAt = &sentAt
		sub.EmailsSent++
		changed = true
		notified = append(notified, *sub)

		t.log.Info("sent price notification",
			"url", item.URL, "user_id", sub.UserID, "price", last.Price)
	}

	if changed {
		if err := t.store.SaveItem(ctx, item); err != nil {
			t.log.Error("persisting subscriber state failed", "url", item.URL, "error", err)
		}
	}

	return notified
}
