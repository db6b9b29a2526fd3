package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/purplecity/predictionmarket-sub000/internal/config"
	"github.com/purplecity/predictionmarket-sub000/internal/ledger"
	"github.com/purplecity/predictionmarket-sub000/internal/logging"
	"github.com/purplecity/predictionmarket-sub000/internal/onchain"
	"github.com/purplecity/predictionmarket-sub000/internal/processor"
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
	logging.Init(cfg.Logging, "processor")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres failed")
	}
	defer pool.Close()

	engineOutputRDB := redis.NewClient(&redis.Options{Addr: cfg.Redis.EngineOutputAddr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})

	svc := ledger.NewService(pool)
	// NoopSender until a real chain submitter is wired in; every trade
	// still settles in the ledger, just without an actual onchain leg.
	proc := processor.New(engineOutputRDB, cfg.Processor.ConsumerGroup, svc, onchain.NoopSender{}, cfg.Processor.BatchSize, 64, cfg.Processor.ReadBlockTimeout)

	if err := proc.Bootstrap(ctx); err != nil {
		log.Fatal().Err(err).Msg("processor bootstrap failed")
	}

	log.Info().Msg("processor started")
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("processor stopped")
	}
	log.Info().Msg("processor stopped")
}
