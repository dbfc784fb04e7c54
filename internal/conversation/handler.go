package conversation

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/glowcart/salesagent/internal/api"
)

// Handler exposes the admin conversation endpoints.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// StatusResponse is the admin view of a conversation.
type StatusResponse struct {
	CustomerID   string    `json:"customer_id"`
	CurrentStage string    `json:"current_stage"`
	IsReadyToBuy bool      `json:"is_ready_to_buy"`
	PriceShown   bool      `json:"price_shown"`
	ProductIDs   []string  `json:"product_ids"`
	ProductCount int       `json:"product_count"`
	Turns        int       `json:"turns"`
	LastUpdated  time.Time `json:"last_updated"`
}

// Get returns the current state of a conversation.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	if customerID == "" {
		api.HandleError(w, api.NewBadRequestError("customer id is required"))
		return
	}

	state, err := h.store.Get(r.Context(), customerID)
	if err != nil {
		slog.Error("loading conversation", "customer_id", customerID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if state == nil {
		api.HandleError(w, api.NewNotFoundError("conversation not found"))
		return
	}

	api.JSON(w, http.StatusOK, StatusResponse{
		CustomerID:   state.CustomerID,
		CurrentStage: string(state.CurrentStage),
		IsReadyToBuy: state.IsReadyToBuy,
		PriceShown:   state.PriceShown,
		ProductIDs:   state.ProductIDs(),
		ProductCount: len(state.InterestedProducts),
		Turns:        state.Turns(),
		LastUpdated:  state.UpdatedAt,
	})
}

// Clear deletes a conversation.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	if customerID == "" {
		api.HandleError(w, api.NewBadRequestError("customer id is required"))
		return
	}

	found, err := h.store.Delete(r.Context(), customerID)
	if err != nil {
		slog.Error("clearing conversation", "customer_id", customerID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if !found {
		api.HandleError(w, api.NewNotFoundError("conversation not found"))
		return
	}

	api.JSONMessage(w, http.StatusOK, "conversation cleared")
}
