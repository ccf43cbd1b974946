// Package domain defines the core business types for pricewatch.
package domain

import (
	"time"
)

// Snapshot is one immutable price observation for a tracked item.
// Snapshots are append-only; insertion order is chronological order.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Price     float64   `json:"price"     db:"price"`
}

// Subscriber is a user tracking an item with a personal price threshold
// and notification throttle state. Subscribers are unique per UserID
// within an item.
type Subscriber struct {
	UserID   string  `json:"user_id"   db:"user_id"`
	MaxPrice float64 `json:"max_price" db:"max_price"`

	// LastSentAt is the time of the last confirmed notification send.
	// Nil means no notification has ever been sent.
	LastSentAt *time.Time `json:"last_sent_at,omitempty" db:"last_sent_at"`

	// EmailsSent counts notifications since the last reset. It resets to 0
	// when the item's price rises back above MaxPrice.
	EmailsSent int `json:"emails_sent" db:"emails_sent"`

	// Email is resolved in memory from the user record before sending.
	// It is never persisted with the item.
	Email string `json:"-" db:"-"`
}

// Item represents a tracked page+selector pair with its price history and
// subscriber list.
type Item struct {
	ID          string       `json:"id"          db:"id"`
	URL         string       `json:"url"         db:"url"`
	Selector    string       `json:"selector"    db:"selector"`
	Snapshots   []Snapshot   `json:"snapshots"   db:"snapshots"`
	Subscribers []Subscriber `json:"subscribers" db:"subscribers"`
	CreatedAt   time.Time    `json:"created_at"  db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"  db:"updated_at"`
}

// LastSnapshot returns the most recent snapshot, or nil if the item has
// no price history yet.
func (i *Item) LastSnapshot() *Snapshot {
	if len(i.Snapshots) == 0 {
		return nil
	}
	return &i.Snapshots[len(i.Snapshots)-1]
}

// AppendSnapshot records a new price observation.
func (i *Item) AppendSnapshot(ts time.Time, price float64) {
	i.Snapshots = append(i.Snapshots, Snapshot{Timestamp: ts, Price: price})
}

// Subscriber returns the subscriber entry for userID, or nil.
func (i *Item) Subscriber(userID string) *Subscriber {
	for idx := range i.Subscribers {
		if i.Subscribers[idx].UserID == userID {
			return &i.Subscribers[idx]
		}
	}
	return nil
}

// HasSubscriber reports whether userID already tracks this item.
func (i *Item) HasSubscriber(userID string) bool {
	return i.Subscriber(userID) != nil
}

// SubscriberIDs returns the user IDs of all subscribers in order.
func (i *Item) SubscriberIDs() []string {
	ids := make([]string, 0, len(i.Subscribers))
	for idx := range i.Subscribers {
		ids = append(ids, i.Subscribers[idx].UserID)
	}
	return ids
}

// User is an account that can subscribe to tracked items.
type User struct {
	ID                 string    `json:"id"         db:"id"`
	Email              string    `json:"email"      db:"email"`
	PasswordHash       string    `json:"-"          db:"password_hash"`
	Activated          bool      `json:"activated"  db:"activated"`
	LastLogin          time.Time `json:"last_login" db:"last_login"`
	LastPasswordChange time.Time `json:"-"          db:"last_password_change"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}
