package tracker

import (
	"time"

	domain "pricewatch/pkg/types"
)

// Policy configures per-subscriber notification throttling.
type Policy struct {
	// Quota is the maximum emails a subscriber receives before a price
	// rise above their threshold resets the counter.
	Quota int

	// Window is the minimum gap between two notifications to the same
	// subscriber, measured against the snapshot timestamp.
	Window time.Duration
}

// DefaultPolicy returns the standard throttling policy: at most one email
// per rolling 24 hours, three emails per non-reset period.
func DefaultPolicy() Policy {
	return Policy{Quota: 3, Window: 24 * time.Hour}
}

// Decision is the outcome of evaluating a subscriber against the latest
// price snapshot.
type Decision struct {
	// Send means a notification email is owed.
	Send bool

	// ResetCounter means the price went back above the subscriber's
	// threshold and their send counter must be cleared, so a future
	// qualifying drop is eligible again.
	ResetCounter bool
}

// Evaluate decides whether a subscriber is owed a notification for the given
// snapshot. Pure: it never mutates the subscriber; callers apply the decision.
//
// A price at exactly the threshold qualifies for sending. The rate-limit
// cutoff is computed from the snapshot's own timestamp, not wall-clock now,
// so stale snapshots never trigger repeat sends.
func (p Policy) Evaluate(last domain.Snapshot, sub domain.Subscriber) Decision {
	if last.Price > sub.MaxPrice {
		return Decision{Send: false, ResetCounter: true}
	}

	if sub.EmailsSent >= p.Quota {
		return Decision{Send: false}
	}

	if sub.LastSentAt == nil {
		return Decision{Send: true}
	}

	cutoff := last.Timestamp.Add(-p.Window)
	if sub.LastSentAt.Before(cutoff) {
		return Decision{Send: true}
	}

	return Decision{Send: false}
}
