package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"cardroom/internal/announce"
	"cardroom/internal/auth"
	"cardroom/internal/config"
	"cardroom/internal/game"
	"cardroom/internal/game/blackjack"
	"cardroom/internal/game/holdem"
	"cardroom/internal/game/spades"
	"cardroom/internal/ledger"
	"cardroom/internal/logging"
	"cardroom/internal/rewards"
	"cardroom/internal/room"
	"cardroom/internal/store"
	httptransport "cardroom/internal/transport/http"
	"cardroom/internal/ws"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logger := logging.Init(cfg.Log)

	st, err := store.New(cfg.Server.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	defer st.Close()
	if err := st.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}
	if err := store.MigrateUp(cfg.Server.PostgresDSN); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	led := ledger.New(st)
	rewardsSvc := rewards.New(led, cfg.Server.DailyRewardAmount, cfg.Server.DailyRewardEvery, cfg.Server.StartingBalance)
	verifier := auth.NewHS256(cfg.Server.JWTSecret)

	plugins := map[game.Key]game.Plugin{
		game.KeyBlackjack: blackjack.New(),
		game.KeySpades:    spades.New(),
		game.KeyHoldem:    holdem.New(),
	}
	registry := room.NewRegistry()
	orch := room.NewOrchestrator(registry, plugins, led, st, nil, logger, room.Settings{
		TurnTimeout:     cfg.Server.TurnTimeout,
		ReconnectGrace:  cfg.Server.ReconnectGrace,
		RoomIdleAfter:   cfg.Server.RoomIdleAfter,
		StartingBalance: cfg.Server.StartingBalance,
	})
	wsSrv := ws.NewServer(orch, verifier, led, logger)
	orch.Notify = wsSrv

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if targets := announceTargets(cfg.Server); len(targets) > 0 {
		announcer := announce.NewManager(announce.Config{
			Targets:   targets,
			Workers:   cfg.Server.AnnounceWorkers,
			RetryMax:  cfg.Server.AnnounceRetryMax,
			RetryBase: cfg.Server.AnnounceRetryBase,
		}, logger)
		announcer.Start(ctx)
		defer announcer.Stop()
		orch.Notify = room.MultiNotifier{wsSrv, announcer}
	}

	router := httptransport.NewRouter(st, registry, rewardsSvc, verifier, wsSrv.HandleWS)
	httptransport.LogRoutes(router)

	go room.NewScheduler(orch, cfg.Server.TickPeriod, logger).Run(ctx)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("shutdown complete")
}

func announceTargets(cfg config.ServerConfig) []announce.Target {
	var out []announce.Target
	if cfg.AnnounceDiscordWebhook != "" {
		out = append(out, announce.Target{Platform: "discord", Endpoint: cfg.AnnounceDiscordWebhook})
	}
	if cfg.AnnounceWebhookURL != "" {
		out = append(out, announce.Target{Platform: "webhook", Endpoint: cfg.AnnounceWebhookURL, Secret: cfg.AnnounceWebhookSecret})
	}
	return out
}
