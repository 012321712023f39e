package exchange_app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/yebrai/skillswap/internal/application/api_helpers"
	"github.com/yebrai/skillswap/internal/domain/exchange"
	"github.com/yebrai/skillswap/internal/infrastructure/auth"
)

// ExchangeService is the part of exchange.Service the handlers use.
type ExchangeService interface {
	Request(ctx context.Context, requesterID string, in exchange.RequestInput) (*exchange.Exchange, error)
	Respond(ctx context.Context, callerID, exchangeID string, next exchange.Status) (*exchange.Exchange, error)
	ListForUser(ctx context.Context, userID string) ([]*exchange.Exchange, error)
}

// ExchangeHandler handles HTTP requests related to skill exchanges.
type ExchangeHandler struct {
	exchanges ExchangeService
	logger    *slog.Logger
}

func NewExchangeHandler(exchanges ExchangeService, logger *slog.Logger) *ExchangeHandler {
	return &ExchangeHandler{exchanges: exchanges, logger: logger.With("component", "api")}
}

type CreateExchangeRequest struct {
	ProviderID     string `json:"providerId"`
	ProviderSkill  string `json:"providerSkill"`
	RequesterSkill string `json:"requesterSkill"`
}

type RespondRequest struct {
	Status exchange.Status `json:"status"`
}

// Create opens a pending exchange with a provider.
// POST /api/exchanges
func (h *ExchangeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateExchangeRequest
	if err := api_helpers.DecodeJSONBody(r, &req); err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	ex, err := h.exchanges.Request(r.Context(), callerID(r), exchange.RequestInput{
		ProviderID:     req.ProviderID,
		ProviderSkill:  req.ProviderSkill,
		RequesterSkill: req.RequesterSkill,
	})
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	api_helpers.RespondWithJSON(w, http.StatusCreated, ex)
}

// MyRequests lists exchanges the caller takes part in, newest first.
// GET /api/exchanges/my-requests
func (h *ExchangeHandler) MyRequests(w http.ResponseWriter, r *http.Request) {
	list, err := h.exchanges.ListForUser(r.Context(), callerID(r))
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	api_helpers.RespondWithJSON(w, http.StatusOK, list)
}

// Respond accepts or rejects a pending exchange.
// PUT /api/exchanges/{id}
func (h *ExchangeHandler) Respond(w http.ResponseWriter, r *http.Request) {
	var req RespondRequest
	if err := api_helpers.DecodeJSONBody(r, &req); err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	ex, err := h.exchanges.Respond(r.Context(), callerID(r), mux.Vars(r)["id"], req.Status)
	if err != nil {
		api_helpers.RespondWithAppError(w, h.logger, err)
		return
	}
	api_helpers.RespondWithJSON(w, http.StatusOK, ex)
}

func callerID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}
