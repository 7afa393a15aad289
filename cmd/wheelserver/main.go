package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/unfairwheel/wheel-server/internal/actor"
	"github.com/unfairwheel/wheel-server/internal/api"
	"github.com/unfairwheel/wheel-server/internal/apierr"
	"github.com/unfairwheel/wheel-server/internal/checkpoint"
	"github.com/unfairwheel/wheel-server/internal/config"
	"github.com/unfairwheel/wheel-server/internal/httputil"
	"github.com/unfairwheel/wheel-server/internal/identity"
	"github.com/unfairwheel/wheel-server/internal/metadata"
	"github.com/unfairwheel/wheel-server/internal/postgres"
	"github.com/unfairwheel/wheel-server/internal/realtime"
	"github.com/unfairwheel/wheel-server/internal/valkey"
)

// Build metadata injected via ldflags at compile time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const valkeyDialTimeout = 5 * time.Second

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.IsDevelopment() {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	log.Info().
		Str("version", version).
		Str("commit", commit).
		Str("built", date).
		Str("env", cfg.ServerEnv).
		Msg("Starting Unfair Wheel server")

	if cfg.FrontendOrigin == "*" {
		log.Warn().Msg("FRONTEND_ORIGIN is set to a wildcard. Set an explicit origin when in production.")
	}

	ctx := context.Background()

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConn, cfg.DatabaseMinConn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()
	log.Info().Msg("PostgreSQL connected")

	if err := postgres.Migrate(cfg.DatabaseURL, log.Logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info().Msg("Database migrations complete")

	rdb, err := valkey.Connect(ctx, cfg.ValkeyURL, valkeyDialTimeout)
	if err != nil {
		return fmt.Errorf("connect valkey: %w", err)
	}
	defer func() { _ = rdb.Close() }()
	log.Info().Msg("Valkey connected")

	cpStore := checkpoint.NewStore(db, log.Logger)
	metaStore := metadata.NewStore(rdb)

	registry := actor.NewRegistry(actor.Options{
		HistoryLimit:    cfg.HistoryLimit,
		PendingTTL:      cfg.PendingResultTTL,
		SendBuffer:      cfg.SubscriberSendBuffer,
		SpinDurationMin: cfg.SpinDurationMin,
		SpinDurationMax: cfg.SpinDurationMax,
		ExtraTurns:      cfg.SpinExtraTurns,
		Checkpoint:      checkpointSink(cpStore),
	}, checkpointRestoreFunc(cpStore), log.Logger)
	defer registry.StopAll()

	// Periodic checkpoint pruning keeps the group_checkpoints table from growing unbounded with groups whose
	// actors have long since been evicted and whose owners never returned.
	pruneCtx, pruneCancel := context.WithCancel(ctx)
	defer pruneCancel()
	go runCheckpointPruner(pruneCtx, cpStore, log.Logger)

	app := fiber.New(fiber.Config{
		AppName: "Unfair Wheel",
		ErrorHandler: func(c fiber.Ctx, err error) error {
			// fiber.Error (routing failures, body-too-large, etc.) carries its own status and is rendered as-is.
			// Anything else is a handler error, which apierr.As maps to the taxonomy's status/code, falling back
			// to a generic internal error for anything untyped.
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return c.Status(fiberErr.Code).JSON(httputil.ErrorResponse{
					Error: httputil.ErrorBody{Code: apierr.CodeInternal, Message: fiberErr.Message},
				})
			}
			apiErr := apierr.As(err)
			if apiErr.Kind == apierr.KindInternal {
				log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("unhandled error")
			}
			return httputil.FailErr(c, apiErr)
		},
	})

	app.Use(requestid.New())
	if cfg.LogHealthRequests {
		app.Use(httputil.RequestLogger(log.Logger))
	} else {
		app.Use(httputil.RequestLogger(log.Logger, "/api/v1/health"))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Split(cfg.FrontendOrigin, ","),
		AllowMethods:  []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"X-Request-ID"},
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimitAPIRequests,
		Expiration: time.Duration(cfg.RateLimitAPIWindowSeconds) * time.Second,
	}))

	registerRoutes(app, cfg, registry, metaStore, db, rdb)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info().Msg("Shutting down server")
		pruneCancel()
		registry.StopAll()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	log.Info().Str("addr", addr).Msg("Server listening")
	if err := app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func registerRoutes(app *fiber.App, cfg *config.Config, registry *actor.Registry, meta *metadata.Store, db pinger, rdb *redis.Client) {
	requireAuth := identity.RequireAuth(cfg.AuthSecret)
	optionalAuth := identity.OptionalAuth(cfg.AuthSecret)

	health := api.NewHealthHandler(db, redisPinger{client: rdb})
	app.Get("/api/v1/health", health.Health)

	groupHandler := api.NewGroupHandler(registry, meta, log.Logger)
	app.Post("/api/v1/groups", requireAuth, groupHandler.Create)
	app.Get("/api/v1/groups/me", requireAuth, groupHandler.ListMine)
	app.Get("/api/v1/groups/bookmarks", requireAuth, groupHandler.GetBookmarks)
	app.Put("/api/v1/groups/bookmarks", requireAuth, groupHandler.PutBookmarks)
	app.Get("/api/v1/groups/:id", optionalAuth, groupHandler.Get)
	app.Patch("/api/v1/groups/:id", requireAuth, groupHandler.Rename)

	participantHandler := api.NewParticipantHandler(registry, meta, log.Logger)
	app.Get("/api/v1/groups/:id/participants", optionalAuth, participantHandler.List)
	app.Post("/api/v1/groups/:id/participants", requireAuth, participantHandler.Add)
	app.Patch("/api/v1/groups/:id/participants/:pid", requireAuth, participantHandler.Update)
	app.Delete("/api/v1/groups/:id/participants/:pid", requireAuth, participantHandler.Remove)
	app.Post("/api/v1/groups/:id/participants/commit", requireAuth, participantHandler.Commit)

	spinHandler := api.NewSpinHandler(registry, meta, log.Logger)
	app.Post("/api/v1/groups/:id/spin", requireAuth, spinHandler.Request)

	historyHandler := api.NewHistoryHandler(registry, meta, log.Logger)
	app.Get("/api/v1/groups/:id/history", requireAuth, historyHandler.List)
	app.Post("/api/v1/groups/:id/history/:spinId/save", requireAuth, historyHandler.Save)
	app.Delete("/api/v1/groups/:id/history/:spinId", requireAuth, historyHandler.Discard)

	gatewayHandler := api.NewGatewayHandler(realtime.NewHandler(registry, log.Logger))
	app.Get("/api/v1/groups/:id/ws", gatewayHandler.Upgrade)

	// Catch-all 404: Fiber v3 treats app.Use() middleware as a route match, so without this terminal handler an
	// unmatched request falls through with the default 200 status and an empty body.
	app.Use(func(_ fiber.Ctx) error {
		return fiber.ErrNotFound
	})
}

// pinger is satisfied by *pgxpool.Pool via its Ping method, matching api.Pinger without importing pgxpool here.
type pinger interface {
	Ping(ctx context.Context) error
}

// redisPinger adapts *redis.Client to api.Pinger.
type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

// checkpointSink adapts checkpoint.Store into the closure shape actor.Options.Checkpoint expects.
func checkpointSink(store *checkpoint.Store) func(groupID string, version int, snap actor.Snapshot) {
	return func(groupID string, version int, snap actor.Snapshot) {
		store.SaveAsync(context.Background(), groupID, version, checkpoint.State{
			Group:         snap.Group,
			Participants:  snap.Participants,
			Spin:          snap.Spin,
			History:       snap.History,
			PendingResult: snap.PendingResult,
		})
	}
}

// checkpointRestoreFunc adapts checkpoint.Store.Load into an actor.RestoreFunc.
func checkpointRestoreFunc(store *checkpoint.Store) actor.RestoreFunc {
	return func(ctx context.Context, groupID string) (actor.Snapshot, int, error) {
		state, version, err := store.Load(ctx, groupID)
		if err != nil {
			return actor.Snapshot{}, 0, err
		}
		return actor.Snapshot{
			Group:         state.Group,
			Participants:  state.Participants,
			Spin:          state.Spin,
			History:       state.History,
			PendingResult: state.PendingResult,
		}, version, nil
	}
}

// runCheckpointPruner periodically removes checkpoints that have not been touched in a long while, e.g. abandoned
// groups whose owners never came back. Runs once a day; failures are logged and retried on the next tick.
func runCheckpointPruner(ctx context.Context, store *checkpoint.Store, logger zerolog.Logger) {
	const (
		interval = 24 * time.Hour
		maxAge   = 90 * 24 * time.Hour
	)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := store.Prune(ctx, time.Now().Add(-maxAge))
			if err != nil {
				logger.Warn().Err(err).Msg("checkpoint prune failed")
				continue
			}
			if deleted > 0 {
				logger.Info().Int64("deleted", deleted).Msg("pruned stale checkpoints")
			}
		}
	}
}
