package chat_app

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/yebrai/skillswap/internal/apperror"
	"github.com/yebrai/skillswap/internal/application/api_helpers"
	"github.com/yebrai/skillswap/internal/cache"
	"github.com/yebrai/skillswap/internal/domain/chat"
	"github.com/yebrai/skillswap/internal/infrastructure/auth"
	"github.com/yebrai/skillswap/internal/websocket"
)

// ChatService is the part of chat.Service the handlers use.
type ChatService interface {
	Send(ctx context.Context, senderID, recipientID, content string) (*chat.Message, error)
	History(ctx context.Context, callerID, peerID string) ([]*chat.Message, error)
	Conversations(ctx context.Context, callerID string) ([]*chat.Conversation, error)
}

// RoomStatsReader reads realtime room counters. cache.RedisClient implements it.
type RoomStatsReader interface {
	RoomStats(ctx context.Context, room string) (*cache.RoomStats, error)
}

// ChatHandler handles HTTP requests related to direct messages and rooms.
type ChatHandler struct {
	chatService ChatService
	rooms       RoomStatsReader
	logger      *slog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService ChatService, rooms RoomStatsReader, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, rooms: rooms, logger: logger.With("component", "api")}
}

// SendMessageRequest defines the expected JSON structure for sending a message.
type SendMessageRequest struct {
	RecipientID string `json:"recipientId"`
	Content     string `json:"content"`
}

// SendMessage stores a direct message and fans it out to both participants.
// POST /api/messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := api_helpers.DecodeJSONBody(r, &req); err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	msg, err := h.chatService.Send(r.Context(), callerID(r), req.RecipientID, req.Content)
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	api_helpers.RespondWithJSON(w, http.StatusCreated, msg)
}

// GetHistory returns the conversation with a peer, oldest first.
// GET /api/messages/{peerId}
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chatService.History(r.Context(), callerID(r), mux.Vars(r)["peerId"])
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	if msgs == nil {
		msgs = []*chat.Message{}
	}
	api_helpers.RespondWithJSON(w, http.StatusOK, msgs)
}

// ListConversations returns one entry per peer, most recent first.
// GET /api/messages/conversations
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.chatService.Conversations(r.Context(), callerID(r))
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	api_helpers.RespondWithJSON(w, http.StatusOK, convs)
}

// GetRoomStats returns the live member and message counters of a room.
// GET /api/rooms/{room}/stats
func (h *ChatHandler) GetRoomStats(w http.ResponseWriter, r *http.Request) {
	room := mux.Vars(r)["room"]
	if room == "" {
		api_helpers.RespondWithAppError(w, h.logger, apperror.InvalidArg("room is required"))
		return
	}
	if strings.HasPrefix(room, websocket.PersonalRoomPrefix) && room != websocket.PersonalRoom(callerID(r)) {
		api_helpers.RespondWithAppError(w, h.logger, apperror.Forbidden("cannot inspect another user's room"))
		return
	}
	stats, err := h.rooms.RoomStats(r.Context(), room)
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	api_helpers.RespondWithJSON(w, http.StatusOK, stats)
}

func callerID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}
