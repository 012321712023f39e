package notification_app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/yebrai/skillswap/internal/application/api_helpers"
	"github.com/yebrai/skillswap/internal/domain/notification"
	"github.com/yebrai/skillswap/internal/infrastructure/auth"
)

type NotificationService interface {
	Feed(ctx context.Context, userID string) (*notification.Feed, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

// NotificationHandler serves the caller's notification feed.
type NotificationHandler struct {
	notifications NotificationService
	logger        *slog.Logger
}

func NewNotificationHandler(notifications NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger.With("component", "api")}
}

// MarkedResponse reports how many notifications changed state.
type MarkedResponse struct {
	Updated int `json:"updated"`
}

// Feed returns the latest notifications and the unread count.
// GET /api/notifications
func (h *NotificationHandler) Feed(w http.ResponseWriter, r *http.Request) {
	feed, err := h.notifications.Feed(r.Context(), callerID(r))
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	api_helpers.RespondWithJSON(w, http.StatusOK, feed)
}

// MarkRead marks one notification read.
// PUT /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.MarkRead(r.Context(), callerID(r), mux.Vars(r)["id"]); err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	api_helpers.RespondWithJSON(w, http.StatusOK, MarkedResponse{Updated: 1})
}

// MarkAllRead marks every unread notification of the caller read.
// PUT /api/notifications/read
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.notifications.MarkAllRead(r.Context(), callerID(r))
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	api_helpers.RespondWithJSON(w, http.StatusOK, MarkedResponse{Updated: n})
}

func callerID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}
