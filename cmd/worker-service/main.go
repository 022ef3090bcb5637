package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cuongbtq/thumbnail-service/internal/config"
	"github.com/cuongbtq/thumbnail-service/internal/worker"
	"github.com/cuongbtq/thumbnail-service/internal/worker/history"
	"github.com/cuongbtq/thumbnail-service/internal/worker/thumbnail"
	"github.com/cuongbtq/thumbnail-service/shared/kvs"
	"github.com/cuongbtq/thumbnail-service/shared/logger"
	"github.com/cuongbtq/thumbnail-service/shared/postgresql"
	"github.com/cuongbtq/thumbnail-service/shared/rabbitmq"
)

// main exits non-zero whenever the worker stops: it is meant to run under a
// supervisor that restarts it.
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.Int("instances", cfg.Worker.Instances),
		slog.String("ack_policy", cfg.Worker.AckPolicy),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recorder, closeHistory, err := initHistory(ctx, &cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize job history: %w", err)
	}
	defer closeHistory()

	newKVClient := func() (*kvs.Client, error) {
		return initKVS(&cfg.KVS, appLogger.Logger)
	}
	newQueueConn := func() (*rabbitmq.Client, error) {
		return initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	}

	pool := worker.NewPool(cfg.Worker.Instances, func(id string) (worker.Instance, error) {
		w, err := worker.NewWorker(&worker.Config{
			ID:           id,
			Logger:       appLogger.Logger,
			NewKVClient:  newKVClient,
			NewQueueConn: newQueueConn,
			Recorder:     recorder,
			Thumbnail: thumbnail.Config{
				Dir:      cfg.FileStorage.ThumbnailPath,
				MaxPixel: cfg.Thumbnail.MaxPixel,
			},
			Codec: thumbnail.ImageCodec{
				Format:  cfg.Thumbnail.Format,
				Quality: cfg.Thumbnail.Quality,
			},
			AckPolicy:     cfg.Worker.AckPolicy,
			PrefetchCount: cfg.RabbitMQ.Consumer.PrefetchCount,
		})
		if err != nil {
			return nil, err
		}
		return w, nil
	}, appLogger.Logger)

	err = pool.Run(ctx)
	appLogger.Critical("Worker service stopped", slog.Any("error", err))
	return err
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initHistory connects the transition recorder when the database is enabled
func initHistory(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (history.Recorder, func(), error) {
	if !cfg.Enabled {
		logger.Info("Job history disabled")
		return history.Nop{}, func() {}, nil
	}

	dbClient, err := initPostgreSQL(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	recorder := history.NewPostgresRecorder(dbClient, logger)
	if err := recorder.EnsureSchema(ctx); err != nil {
		dbClient.Close()
		return nil, nil, err
	}

	logger.Info("Job history enabled")
	return recorder, func() { dbClient.Close() }, nil
}

// initKVS initializes the Redis client of one worker instance
func initKVS(cfg *config.KVSConfig, logger *slog.Logger) (*kvs.Client, error) {
	kvsConfig := &kvs.Config{
		Host:         cfg.Host,
		Port:         cfg.Port,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return kvs.NewClient(kvsConfig, logger)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client of one worker instance
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.IsDurable(),
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
