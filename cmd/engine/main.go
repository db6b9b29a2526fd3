package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/purplecity/predictionmarket-sub000/internal/config"
	"github.com/purplecity/predictionmarket-sub000/internal/enginepipe"
	"github.com/purplecity/predictionmarket-sub000/internal/logging"
	"github.com/purplecity/predictionmarket-sub000/internal/matchengine"
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
	logging.Init(cfg.Logging, "engine")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	engineInputRDB := redis.NewClient(&redis.Options{Addr: cfg.Redis.EngineInputAddr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	engineOutputRDB := redis.NewClient(&redis.Options{Addr: cfg.Redis.EngineOutputAddr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	websocketRDB := redis.NewClient(&redis.Options{Addr: cfg.Redis.WebsocketAddr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})

	manager := matchengine.NewManager()
	out := enginepipe.NewOutputPublisher(ctx, engineOutputRDB, websocketRDB, cfg.Engine.OutputWriterCount)

	eventInput := enginepipe.NewEventInputConsumer(engineInputRDB, cfg.Engine.ConsumerGroup, manager, out, cfg.Engine.MaxOrderCount, cfg.Engine.ReadBatchSize, cfg.Engine.ReadBlockTimeout)
	orderInput := enginepipe.NewOrderInputConsumer(engineInputRDB, cfg.Engine.ConsumerGroup, manager, cfg.Engine.ReadBatchSize, cfg.Engine.ReadBlockTimeout)

	if err := eventInput.Bootstrap(ctx); err != nil {
		log.Fatal().Err(err).Msg("event input bootstrap failed")
	}
	if err := orderInput.Bootstrap(ctx); err != nil {
		log.Fatal().Err(err).Msg("order input bootstrap failed")
	}

	go func() {
		if err := eventInput.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("event input consumer stopped")
		}
	}()
	go func() {
		if err := orderInput.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("order input consumer stopped")
		}
	}()

	log.Info().Msg("engine started")
	<-ctx.Done()
	manager.StopAll()
	log.Info().Msg("engine stopped")
}
