// Package app wires configuration, storage, services and transport into a
// runnable SkillSwap server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/uptrace/bun"

	chat_app "github.com/yebrai/skillswap/internal/application/chat"
	exchange_app "github.com/yebrai/skillswap/internal/application/exchange"
	notification_app "github.com/yebrai/skillswap/internal/application/notification"
	user_app "github.com/yebrai/skillswap/internal/application/user"
	"github.com/yebrai/skillswap/internal/cache"
	"github.com/yebrai/skillswap/internal/config"
	"github.com/yebrai/skillswap/internal/domain/chat"
	"github.com/yebrai/skillswap/internal/domain/exchange"
	"github.com/yebrai/skillswap/internal/domain/notification"
	"github.com/yebrai/skillswap/internal/domain/user"
	"github.com/yebrai/skillswap/internal/infrastructure/api"
	"github.com/yebrai/skillswap/internal/infrastructure/auth"
	"github.com/yebrai/skillswap/internal/infrastructure/persistence"
	"github.com/yebrai/skillswap/internal/server"
	"github.com/yebrai/skillswap/internal/websocket"
)

const userCacheTTL = time.Hour

// App is a fully wired server.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	db    *bun.DB
	redis *redis.Client

	Hub     *websocket.Hub
	Users   *user.Service
	Tokens  *auth.JWTService
	Handler http.Handler
}

// New connects to the configured database and Redis, applies migrations
// and builds the application.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := persistence.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := persistence.Migrate(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}
	rdb, err := persistence.NewRedisClient(ctx, cfg.Redis.URL, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	a, err := Build(cfg, db, rdb, logger)
	if err != nil {
		db.Close()
		rdb.Close()
		return nil, err
	}
	return a, nil
}

// Build wires the application over already opened connections. The
// caller keeps ownership of db and rdb until Close.
func Build(cfg *config.Config, db *bun.DB, rdb *redis.Client, logger *slog.Logger) (*App, error) {
	tokens, err := auth.NewJWTService(cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}

	store := cache.NewRedisClient(rdb, cfg.Realtime.RecentLimit)
	hub := websocket.NewHub(store, logger)

	userRepo := persistence.NewRedisUserRepository(persistence.NewUserRepository(db), rdb, userCacheTTL, logger)
	users := user.NewService(userRepo, logger)
	notifications := notification.NewService(persistence.NewNotificationRepository(db), logger)
	messages := chat.NewService(persistence.NewMessageRepository(db), users, hub, notifications, logger)
	exchanges := exchange.NewService(persistence.NewExchangeRepository(db), users, notifications, logger)

	handler := api.NewRouter(api.Deps{
		Users:         user_app.NewUserHandler(users, tokens, store, logger),
		Chat:          chat_app.NewChatHandler(messages, store, logger),
		Exchanges:     exchange_app.NewExchangeHandler(exchanges, logger),
		Notifications: notification_app.NewNotificationHandler(notifications, logger),
		Tokens:        tokens,
		Realtime:      websocket.ServeWS(hub, tokens.AccessUserID),
		Health: []api.HealthCheck{
			db.PingContext,
			store.Ping,
		},
		Logger: logger,
	})

	return &App{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		redis:   rdb,
		Hub:     hub,
		Users:   users,
		Tokens:  tokens,
		Handler: handler,
	}, nil
}

// Run starts the hub and the HTTP server and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	go a.Hub.Run(ctx)
	return server.New(a.cfg.Server, a.Handler, a.logger).Run(ctx)
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	dbErr := a.db.Close()
	redisErr := a.redis.Close()
	if dbErr != nil {
		return dbErr
	}
	return redisErr
}
