package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"pricewatch/internal/tracker"
)

// Checker defines the interface for triggering a full sweep.
type Checker interface {
	CheckAll(ctx context.Context) (*tracker.SweepReport, error)
}

// CheckHandler handles manual sweep trigger requests.
type CheckHandler struct {
	checker Checker
}

// NewCheckHandler creates a new CheckHandler.
func NewCheckHandler(ch Checker) *CheckHandler {
	return &CheckHandler{checker: ch}
}

// CheckOutput is the response body for the check endpoint.
type CheckOutput struct {
	Body struct {
		Status          string        `json:"status" example:"sweep completed" doc:"Sweep status"`
		ItemsChecked    int           `json:"items_checked" doc:"Items that ran a full cycle"`
		InvalidItems    int           `json:"invalid_items" doc:"Items skipped for missing URLs"`
		FetchFailures   int           `json:"fetch_failures" doc:"Items whose page fetch or price extraction failed"`
		ResolveFailures int           `json:"resolve_failures" doc:"Items whose subscriber lookup failed"`
		EmailsSent      int           `json:"emails_sent" doc:"Notifications delivered"`
		Duration        time.Duration `json:"duration" doc:"Sweep wall time in nanoseconds"`
	}
}

// Check triggers a full check of every tracked item.
func (h *CheckHandler) Check(ctx context.Context, _ *struct{}) (*CheckOutput, error) {
	rep, err := h.checker.CheckAll(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("sweep failed: " + err.Error())
	}

	resp := &CheckOutput{}
	resp.Body.Status = "sweep completed"
	resp.Body.ItemsChecked = rep.ItemsChecked
	resp.Body.InvalidItems = rep.InvalidItems
	resp.Body.FetchFailures = rep.FetchFailures
	resp.Body.ResolveFailures = rep.ResolveFailures
	resp.Body.EmailsSent = rep.EmailsSent
	resp.Body.Duration = rep.Duration
	return resp, nil
}

// RegisterCheckRoutes registers the sweep trigger endpoint with the Huma API.
func RegisterCheckRoutes(api huma.API, checkH *CheckHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "trigger-check",
		Method:      http.MethodPost,
		Path:        "/api/v1/items/check",
		Summary:     "Check all tracked items now",
		Description: "Runs one full cycle for every tracked item: fetch the page, " +
			"extract the price, and send any notifications that are owed.",
		Tags:   []string{"items"},
		Errors: []int{http.StatusInternalServerError},
	}, checkH.Check)
}
