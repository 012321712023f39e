package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"

	"github.com/yebrai/skillswap/internal/apperror"
	"github.com/yebrai/skillswap/internal/application/api_helpers"
	chat_app "github.com/yebrai/skillswap/internal/application/chat"
	exchange_app "github.com/yebrai/skillswap/internal/application/exchange"
	notification_app "github.com/yebrai/skillswap/internal/application/notification"
	user_app "github.com/yebrai/skillswap/internal/application/user"
)

const healthTimeout = 2 * time.Second

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

// Deps are the handlers and collaborators the router mounts.
type Deps struct {
	Users         *user_app.UserHandler
	Chat          *chat_app.ChatHandler
	Exchanges     *exchange_app.ExchangeHandler
	Notifications *notification_app.NotificationHandler
	Tokens        AccessTokenValidator
	Realtime      http.Handler
	Health        []HealthCheck
	Logger        *slog.Logger
}

// NewRouter configures the HTTP routes for the application.
func NewRouter(d Deps) *mux.Router {
	logger := d.Logger.With("component", "api")

	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(LoggingMiddleware(logger))
	router.Use(CORSMiddleware)

	// Every other route is pinned to its methods, so preflights need their
	// own match for the CORS middleware to run.
	router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.HandleFunc("/healthz", healthz(d.Health, logger)).Methods(http.MethodGet)
	if d.Realtime != nil {
		router.Handle("/ws", d.Realtime)
	}

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api_helpers.RespondWithError(w, http.StatusNotFound, apperror.CodeNotFound, "Route not found")
	})

	// Public routes
	apiRouter.HandleFunc("/auth/register", d.Users.Register).Methods(http.MethodPost)
	apiRouter.HandleFunc("/auth/login", d.Users.Login).Methods(http.MethodPost)
	apiRouter.HandleFunc("/auth/refresh", d.Users.RefreshToken).Methods(http.MethodPost)

	authRoutes := apiRouter.PathPrefix("").Subrouter()
	authRoutes.Use(AuthMiddlewareFactory(d.Tokens, logger))

	authRoutes.HandleFunc("/auth/user", d.Users.Me).Methods(http.MethodGet)

	// Literal paths are registered before {id} so they are not captured by it.
	authRoutes.HandleFunc("/users", d.Users.ListUsers).Methods(http.MethodGet)
	authRoutes.HandleFunc("/users/search/skills", d.Users.SearchUsers).Methods(http.MethodGet)
	authRoutes.HandleFunc("/users/profile", d.Users.UpdateUserProfile).Methods(http.MethodPut)
	authRoutes.HandleFunc("/users/{id}", d.Users.GetUserProfile).Methods(http.MethodGet)
	authRoutes.HandleFunc("/users/{id}/presence", d.Users.Presence).Methods(http.MethodGet)

	authRoutes.HandleFunc("/skills", d.Users.ListSkills).Methods(http.MethodGet)
	authRoutes.HandleFunc("/skills", d.Users.AddSkill).Methods(http.MethodPost)
	authRoutes.HandleFunc("/skills/category/{category}", d.Users.ListSkillsByCategory).Methods(http.MethodGet)
	authRoutes.HandleFunc("/skills/{title}", d.Users.ReplaceSkill).Methods(http.MethodPut)

	authRoutes.HandleFunc("/messages", d.Chat.SendMessage).Methods(http.MethodPost)
	authRoutes.HandleFunc("/messages/conversations", d.Chat.ListConversations).Methods(http.MethodGet)
	authRoutes.HandleFunc("/messages/{peerId}", d.Chat.GetHistory).Methods(http.MethodGet)
	authRoutes.HandleFunc("/rooms/{room}/stats", d.Chat.GetRoomStats).Methods(http.MethodGet)

	authRoutes.HandleFunc("/exchanges", d.Exchanges.Create).Methods(http.MethodPost)
	authRoutes.HandleFunc("/exchanges/my-requests", d.Exchanges.MyRequests).Methods(http.MethodGet)
	authRoutes.HandleFunc("/exchanges/{id}", d.Exchanges.Respond).Methods(http.MethodPut)

	authRoutes.HandleFunc("/notifications", d.Notifications.Feed).Methods(http.MethodGet)
	authRoutes.HandleFunc("/notifications/read", d.Notifications.MarkAllRead).Methods(http.MethodPut)
	authRoutes.HandleFunc("/notifications/{id}/read", d.Notifications.MarkRead).Methods(http.MethodPut)

	return router
}

func healthz(checks []HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		for _, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn("health check failed", "error", err)
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}
