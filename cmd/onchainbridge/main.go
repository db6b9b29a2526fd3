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
	logging.Init(cfg.Logging, "onchainbridge")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres failed")
	}
	defer pool.Close()

	commonRDB := redis.NewClient(&redis.Options{Addr: cfg.Redis.CommonAddr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})

	svc := ledger.NewService(pool)
	lookup := onchain.NewPgMarketLookup(pool)
	consumer := onchain.NewConsumer(commonRDB, cfg.Onchain.ActionStream, cfg.Onchain.ConsumerGroup, svc, lookup, cfg.Onchain.ReadBatchSize, cfg.Onchain.ReadBlockTimeout)

	if err := consumer.Bootstrap(ctx); err != nil {
		log.Fatal().Err(err).Msg("onchain action consumer bootstrap failed")
	}

	log.Info().Msg("onchain bridge started")
	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("onchain action consumer stopped")
	}
	log.Info().Msg("onchain bridge stopped")
}
