package main

import (
	// Go Internal Packages
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	// Local Packages
	config "masspay/config"
	kafka "masspay/kafka"
	mongodb "masspay/repositories/mongodb"
	redis "masspay/repositories/redis"
	server "masspay/server/http"
	batches "masspay/services/batches"
	settlements "masspay/services/settlements"

	// External Packages
	"github.com/alecthomas/kingpin/v2"
	_ "github.com/jsternberg/zap-logfmt"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
)

// LoadConfig loads the default configuration and overrides it with the config file
// specified by the path defined in the config flag
func LoadConfig() *koanf.Koanf {
	configPathMsg := "Path to the application config file"
	configPath := kingpin.Flag("config", configPathMsg).Short('c').Default("config.yml").String()

	kingpin.Parse()
	k := koanf.New(".")
	_ = k.Load(rawbytes.Provider(config.DefaultConfig), yaml.Parser())
	if *configPath != "" {
		_ = k.Load(file.Provider(*configPath), yaml.Parser())
	}
	return k
}

func main() {
	k := LoadConfig()
	appKonf := config.Config{}

	// Unmarshalling config into struct
	err := k.Unmarshal("", &appKonf)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Validate the config loaded
	if err = appKonf.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if !appKonf.IsProdMode {
		k.Print()
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "logfmt"
	_ = cfg.Level.UnmarshalText([]byte(k.String("logger.level")))
	cfg.InitialFields = make(map[string]any)
	cfg.InitialFields["host"], _ = os.Hostname()
	cfg.InitialFields["service"] = appKonf.Application
	cfg.OutputPaths = []string{"stdout"}
	logger, _ := cfg.Build()
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Mongo Connection
	mongoClient, err := mongodb.Connect(ctx, appKonf.Mongo.URI)
	if err != nil {
		logger.Fatal("cannot create mongo client", zap.Error(err))
	}

	// Redis Connection
	redisClient, err := redis.Connect(ctx, appKonf.Redis.URI, appKonf.Redis.Password)
	if err != nil {
		logger.Fatal("cannot create redis client", zap.Error(err))
	}

	batchRepo := mongodb.NewBatchRepository(mongoClient, appKonf.Mongo.Database)
	if err = batchRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("cannot ensure batch indexes", zap.Error(err))
	}
	skippedQueue := redis.NewSkippedRowQueue(redisClient, logger)

	publisherConf := &kafka.PublisherConfig{
		Brokers: appKonf.Kafka.Brokers,
		Topic:   appKonf.Kafka.RecipientsTopic,
	}
	publisher, err := kafka.NewRecipientPublisher(publisherConf, logger)
	if err != nil {
		logger.Fatal("cannot create recipient publisher", zap.Error(err))
	}
	defer publisher.Close()

	batchService := batches.NewBatchService(logger, batchRepo, publisher, skippedQueue)

	router := server.NewRouter(batchService, logger)
	router.RegisterRoutes()
	go func() {
		if err := router.App.Listen(appKonf.HTTP.Addr); err != nil {
			logger.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	if appKonf.Kafka.Consume {
		settlementProcessor := settlements.NewSettlementProcessor(logger, batchService)

		metrics := kprom.NewMetrics("masspay")
		conf := &kafka.ConsumerConfig{
			Brokers:        appKonf.Kafka.Brokers,
			Name:           appKonf.Kafka.ConsumerName,
			Topic:          appKonf.Kafka.SettlementsTopic,
			RecordsPerPoll: appKonf.Kafka.RecordsPerPoll,
		}

		settlementConsumer, err := kafka.NewSettlementConsumer(conf, logger, settlementProcessor, metrics)
		if err != nil {
			logger.Fatal("cannot create settlements consumer", zap.Error(err))
		}

		go func() {
			if err := settlementConsumer.Poll(ctx); err != nil {
				logger.Error("settlements consumer stopped", zap.Error(err))
				stop()
			}
		}()
	}

	<-ctx.Done()
	if err := router.App.Shutdown(); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
}
