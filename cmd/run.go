package cmd

import (
	"context"
	"fmt"
	"time"

	"gamerooms/afk"
	"gamerooms/bot"
	"gamerooms/cache"
	"gamerooms/clock"
	"gamerooms/config"
	"gamerooms/database"
	"gamerooms/events"
	"gamerooms/games"
	"gamerooms/infrastructure"
	"gamerooms/metrics"
	"gamerooms/repository"
	"gamerooms/server"
	"gamerooms/service"

	log "github.com/sirupsen/logrus"
)

// houseActorID is the counting partner in single-occupant rooms
const houseActorID = "house"

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting gamerooms bot...")

	cfg := config.Get()

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(),
		database.WithMaxConns(int32(cfg.DatabaseMaxConns)),
		database.WithApplicationName("gamerooms"),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	eventBus := events.NewBus()
	metrics.Subscribe(eventBus)

	if cfg.NATSServers != "" {
		natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(); err != nil {
			return err
		}
		defer func() {
			if err := natsClient.Close(); err != nil {
				log.WithError(err).Warn("Error closing NATS connection")
			}
		}()
		if err := natsClient.EnsureStream(infrastructure.StreamName, infrastructure.AllSubjects()); err != nil {
			return err
		}
		infrastructure.NewNATSEventPublisher(natsClient).Forward(eventBus)
		log.Info("Forwarding room events to NATS")
	}

	var leaderboardCache service.LeaderboardCache = service.NewMemoryLeaderboardCache()
	if cfg.RedisAddr != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		// Outlive a couple of missed refreshes before callers fall back to the database
		leaderboardCache = cache.NewRedisLeaderboardCache(redisClient, 3*cfg.LeaderboardRefresh)
		log.WithField("addr", cfg.RedisAddr).Info("Using Redis leaderboard cache")
	}

	sysClock := clock.Real()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	locks := service.NewLockStore(uowFactory, sysClock, cfg.LockTTL, eventBus)
	registry := service.NewRoomRegistry(uowFactory, sysClock)
	ledger := service.NewLedgerService(
		uowFactory,
		repository.NewLedgerRepository(db),
		repository.NewLedgerHistoryRepository(db),
		eventBus,
		leaderboardCache,
		sysClock,
		cfg.LeaderboardSize,
	)

	discordBot, err := bot.New(bot.Config{
		Token:          cfg.DiscordToken,
		GuildID:        cfg.GuildID,
		RoomCategoryID: cfg.RoomCategoryID,
		IsAdmin:        cfg.IsAdmin,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}

	scheduler := afk.NewScheduler(sysClock, afk.Settings{
		Idle:      cfg.AFKIdle,
		Countdown: cfg.AFKCountdown,
		Tick:      cfg.AFKTick,
	})
	manager := service.NewSessionManager(service.SessionDeps{
		Locks:     locks,
		Registry:  registry,
		Ledger:    ledger,
		Gateway:   discordBot.Gateway(),
		Scheduler: scheduler,
		Engines: games.NewFactory(games.Settings{
			GuessMin:       cfg.GuessMin,
			GuessMax:       cfg.GuessMax,
			GuessPoints:    cfg.GuessPoints,
			HighLowPoints:  cfg.HighLowPoints,
			CountingTarget: cfg.CountingTarget,
			CountingPoints: cfg.CountingPoints,
			BotActorID:     houseActorID,
		}),
		EventPublisher: eventBus,
		Clock:          sysClock,
		CloseDelay:     cfg.CloseDelay,
	})
	metrics.RegisterActiveRooms(manager.ActiveRooms)

	if err := discordBot.Start(manager, ledger); err != nil {
		return fmt.Errorf("failed to start Discord bot: %w", err)
	}
	log.Info("Discord bot connected")

	restored, err := manager.Rehydrate(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to restore active rooms")
	} else if restored > 0 {
		log.WithField("rooms", restored).Info("Restored active rooms")
	}

	stopRefresher := service.StartLeaderboardRefresher(ctx, ledger, cfg.LeaderboardRefresh)

	opsServer := server.New(cfg.HTTPAddr, server.SetupRouter(ledger, manager))
	opsServer.Start()

	log.WithField("environment", cfg.Environment).Info("Bot is running")
	<-ctx.Done()

	log.Info("Shutting down bot...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	stopRefresher()
	manager.Shutdown(shutdownCtx)

	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Error stopping ops HTTP server")
	}
	if err := discordBot.Close(); err != nil {
		log.WithError(err).Warn("Error closing Discord bot")
	}

	// Give in-flight event handlers a moment before the pool closes
	select {
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded")
	case <-time.After(500 * time.Millisecond):
		log.Info("Shutdown completed")
	}

	return nil
}
