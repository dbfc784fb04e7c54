package webhook

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/glowcart/salesagent/internal/api"
	"github.com/glowcart/salesagent/internal/orchestrator"
	"github.com/glowcart/salesagent/internal/redis"
)

// InboundMessage is the payload messaging providers post to the webhook.
type InboundMessage struct {
	SenderID    string `json:"sender_id" validate:"required,min=1,max=255"`
	RecipientID string `json:"recipient_id" validate:"required,min=1,max=255"`
	Text        string `json:"text" validate:"required"`
}

// Handler receives inbound customer messages and runs them through the
// orchestrator, one turn per customer at a time.
type Handler struct {
	orch     *orchestrator.Orchestrator
	lock     *redis.TurnLock
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(orch *orchestrator.Orchestrator, lock *redis.TurnLock, logger *slog.Logger) *Handler {
	return &Handler{
		orch:     orch,
		lock:     lock,
		validate: validator.New(),
		logger:   logger,
	}
}

// Receive handles POST /api/v1/webhook.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	var msg InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Struct(&msg); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	// Providers retry deliveries; a duplicate arriving while the first is
	// still processing gets a conflict instead of a second turn.
	acquired, err := h.lock.Acquire(r.Context(), msg.SenderID)
	if err != nil {
		h.logger.Warn("turn lock unavailable, proceeding unlocked", "sender_id", msg.SenderID, "error", err)
	} else if !acquired {
		api.HandleError(w, api.ErrTurnInFlight)
		return
	} else {
		defer func() {
			if err := h.lock.Release(r.Context(), msg.SenderID); err != nil {
				h.logger.Warn("releasing turn lock failed", "sender_id", msg.SenderID, "error", err)
			}
		}()
	}

	result := h.orch.ProcessTurn(r.Context(), msg.SenderID, msg.Text)
	api.JSON(w, http.StatusOK, result)
}
