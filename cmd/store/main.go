package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/purplecity/predictionmarket-sub000/internal/config"
	"github.com/purplecity/predictionmarket-sub000/internal/logging"
	"github.com/purplecity/predictionmarket-sub000/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	logging.Init(cfg.Logging, "store")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	engineOutputRDB := redis.NewClient(&redis.Options{Addr: cfg.Redis.EngineOutputAddr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})

	storage := store.New(cfg.Store.SnapshotDir)
	if lastID, err := storage.LoadSnapshot(); err != nil {
		log.Error().Err(err).Msg("failed to load snapshot, starting from an empty shadow")
	} else if lastID != "" {
		log.Info().Str("last_message_id", lastID).Msg("loaded order shadow snapshot")
	}

	consumer := store.NewConsumer(engineOutputRDB, cfg.Store.ConsumerGroup, storage, 256, cfg.Engine.ReadBlockTimeout)
	if err := consumer.Bootstrap(ctx); err != nil {
		log.Fatal().Err(err).Msg("store consumer bootstrap failed")
	}

	go store.StartPeriodicSave(ctx, engineOutputRDB, storage, cfg.Store.SnapshotInterval)

	log.Info().Msg("store started")
	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("store consumer stopped")
	}
	log.Info().Msg("store stopped")
}
