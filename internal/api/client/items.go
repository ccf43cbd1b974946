package client

import (
	"context"
	"time"

	domain "pricewatch/pkg/types"
)

// Item is the API view of a tracked item for one subscriber.
type Item struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	Selector      string     `json:"selector"`
	MaxPrice      float64    `json:"max_price"`
	LastPrice     *float64   `json:"last_price,omitempty"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ItemDetail extends Item with the full price history.
type ItemDetail struct {
	Item
	Snapshots []domain.Snapshot `json:"snapshots"`
}

// AddItemRequest describes a new subscription.
type AddItemRequest struct {
	URL      string  `json:"url"`
	Selector string  `json:"selector"`
	MaxPrice float64 `json:"max_price"`
}

// CheckResult summarizes a manually triggered sweep.
type CheckResult struct {
	Status          string `json:"status"`
	ItemsChecked    int    `json:"items_checked"`
	InvalidItems    int    `json:"invalid_items"`
	FetchFailures   int    `json:"fetch_failures"`
	ResolveFailures int    `json:"resolve_failures"`
	EmailsSent      int    `json:"emails_sent"`
}

// ListItems returns the caller's tracked items.
func (c *Client) ListItems(ctx context.Context) ([]Item, error) {
	var items []Item
	if err := c.get(ctx, "/api/v1/items", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem returns one tracked item with its price history.
func (c *Client) GetItem(ctx context.Context, id string) (*ItemDetail, error) {
	var item ItemDetail
	if err := c.get(ctx, "/api/v1/items/"+id, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// AddItem subscribes the caller to a page+selector pair.
func (c *Client) AddItem(ctx context.Context, req AddItemRequest) (*Item, error) {
	var item Item
	if err := c.post(ctx, "/api/v1/items", req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveItem drops the caller's subscription to an item.
func (c *Client) RemoveItem(ctx context.Context, id string) error {
	return c.del(ctx, "/api/v1/items/"+id, nil)
}

// CheckNow triggers a full sweep of all tracked items.
func (c *Client) CheckNow(ctx context.Context) (*CheckResult, error) {
	var res CheckResult
	if err := c.post(ctx, "/api/v1/items/check", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
