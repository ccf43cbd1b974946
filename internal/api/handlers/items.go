package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gookit/validate"
	"github.com/labstack/echo/v4"

	"pricewatch/internal/api/middleware"
	"pricewatch/internal/store"
	domain "pricewatch/pkg/types"
)

// ItemHandler handles tracked item subscriptions for the authenticated user.
type ItemHandler struct {
	store store.Store
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(s store.Store) *ItemHandler {
	return &ItemHandler{store: s}
}

type addItemRequest struct {
	URL      string `json:"url" validate:"required|fullUrl"`
	Selector string `json:"selector" validate:"required"`
	// Pointer so a zero threshold is distinguishable from an absent field.
	MaxPrice *float64 `json:"max_price" validate:"required"`
}

// itemView is a tracked item as seen by one subscriber. Other subscribers
// and their thresholds are never exposed.
type itemView struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	Selector      string     `json:"selector"`
	MaxPrice      float64    `json:"max_price"`
	LastPrice     *float64   `json:"last_price,omitempty"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// itemDetail extends itemView with the full price history.
type itemDetail struct {
	itemView
	Snapshots []domain.Snapshot `json:"snapshots"`
}

func newItemView(item *domain.Item, sub *domain.Subscriber) itemView {
	v := itemView{
		ID:        item.ID,
		URL:       item.URL,
		Selector:  item.Selector,
		MaxPrice:  sub.MaxPrice,
		CreatedAt: item.CreatedAt,
	}
	if last := item.LastSnapshot(); last != nil {
		v.LastPrice = &last.Price
		v.LastCheckedAt = &last.Timestamp
	}
	return v
}

// Add handles POST /api/v1/items.
//
// @Summary Track an item
// @Description Subscribes the caller to a page+selector pair. If the URL is
// already tracked the caller is added as a subscriber of the existing item.
// @Tags items
// @Accept json
// @Produce json
// @Param item body addItemRequest true "Item to track"
// @Success 201 {object} itemView
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/items [post]
func (h *ItemHandler) Add(c echo.Context) error {
	userID := middleware.UserID(c)

	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
	}

	if v := validate.Struct(&req); !v.Validate() {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": v.Errors.One(),
		})
	}
	if *req.MaxPrice < 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "max_price must not be negative",
		})
	}

	ctx := c.Request().Context()
	sub := domain.Subscriber{UserID: userID, MaxPrice: *req.MaxPrice}

	existing, err := h.store.GetItemsByURL(ctx, req.URL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "looking up item: " + err.Error(),
		})
	}

	for i := range existing {
		item := &existing[i]
		if item.Selector != req.Selector {
			continue
		}

		if item.HasSubscriber(userID) {
			return c.JSON(http.StatusConflict, map[string]string{
				"error": "already tracking this item",
			})
		}

		item.Subscribers = append(item.Subscribers, sub)
		if err := h.store.SaveItem(ctx, item); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "subscribing to item: " + err.Error(),
			})
		}
		return c.JSON(http.StatusCreated, newItemView(item, &sub))
	}

	item := &domain.Item{
		URL:         req.URL,
		Selector:    req.Selector,
		Subscribers: []domain.Subscriber{sub},
	}
	if err := h.store.CreateItem(ctx, item); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "creating item: " + err.Error(),
		})
	}

	return c.JSON(http.StatusCreated, newItemView(item, &sub))
}

// List handles GET /api/v1/items.
//
// @Summary List tracked items
// @Description Returns all items the caller subscribes to.
// @Tags items
// @Produce json
// @Success 200 {array} itemView
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/items [get]
func (h *ItemHandler) List(c echo.Context) error {
	userID := middleware.UserID(c)

	items, err := h.store.ListItems(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "listing items: " + err.Error(),
		})
	}

	views := []itemView{}
	for i := range items {
		if sub := items[i].Subscriber(userID); sub != nil {
			views = append(views, newItemView(&items[i], sub))
		}
	}

	return c.JSON(http.StatusOK, views)
}

// Get handles GET /api/v1/items/:id.
//
// @Summary Get a tracked item
// @Description Returns one item the caller subscribes to, with its full
// price history.
// @Tags items
// @Produce json
// @Param id path string true "Item UUID"
// @Success 200 {object} itemDetail
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/items/{id} [get]
func (h *ItemHandler) Get(c echo.Context) error {
	userID := middleware.UserID(c)

	item, err := h.store.GetItem(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "item not found",
		})
	}

	sub := item.Subscriber(userID)
	if sub == nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "item not found",
		})
	}

	detail := itemDetail{
		itemView:  newItemView(item, sub),
		Snapshots: item.Snapshots,
	}
	if detail.Snapshots == nil {
		detail.Snapshots = []domain.Snapshot{}
	}

	return c.JSON(http.StatusOK, detail)
}

// Delete handles DELETE /api/v1/items/:id.
//
// @Summary Stop tracking an item
// @Description Removes the caller's subscription. The item itself stays for
// its remaining subscribers.
// @Tags items
// @Produce json
// @Param id path string true "Item UUID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/items/{id} [delete]
func (h *ItemHandler) Delete(c echo.Context) error {
	userID := middleware.UserID(c)

	err := h.store.RemoveSubscriber(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "item not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "removing subscription: " + err.Error(),
		})
	}

	return c.NoContent(http.StatusNoContent)
}
