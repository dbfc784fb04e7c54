package catalog

import (
	"log/slog"
	"net/http"

	"github.com/glowcart/salesagent/internal/api"
)

// Handler exposes admin catalog operations.
type Handler struct {
	refresher *Refresher
	logger    *slog.Logger
}

func NewHandler(refresher *Refresher, logger *slog.Logger) *Handler {
	return &Handler{refresher: refresher, logger: logger}
}

// Reload handles POST /api/v1/catalog/reload. It rebuilds the index
// immediately instead of waiting for the next scheduled refresh.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.refresher.Reload(r.Context()); err != nil {
		h.logger.Error("manual catalog reload failed", "error", err)
		api.JSONError(w, http.StatusServiceUnavailable, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{
		"products": h.refresher.Index().Size(),
	})
}
