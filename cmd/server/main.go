package main

import (
	"context"
	"database/sql"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	bridge "github.com/Ashenafi-pixel/gamecrafter-wallet-bridge"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/config"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/dispatch"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/events"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/logger"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/metrics"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/server"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/session"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/signer"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/txstore"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/upstream"
)

func main() {
	// Load .env so DATABASE_URL and friends are set in local runs.
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	cfg := config.Load()

	zlog, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	ctx := context.Background()

	var db *sql.DB
	var store dispatch.Store
	var recent server.RecentStore
	if cfg.DatabaseURL != "" {
		db, err = bridge.OpenDB(cfg.DatabaseURL)
		if err != nil {
			zlog.Fatal("open database", zap.Error(err))
		}
		pg := txstore.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			zlog.Fatal("ensure transaction schema", zap.Error(err))
		}
		store, recent = pg, pg
	} else {
		zlog.Warn("DATABASE_URL not set, using JSON file store", zap.String("data_dir", cfg.DataDir))
		fs := txstore.NewFileStore(cfg.DataDir)
		store, recent = fs, fs
	}

	var sessions session.Resolver
	switch cfg.SessionBackend {
	case "redis":
		sessions = session.NewRedisResolver(cfg.RedisAddr)
	default:
		if db == nil {
			zlog.Fatal("postgres session backend requires DATABASE_URL")
		}
		pg := session.NewPostgresResolver(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			zlog.Fatal("ensure session schema", zap.Error(err))
		}
		sessions = pg
	}

	opts := dispatch.Options{
		Policy:  dispatch.Policy{AllowZeroBet: cfg.AllowZeroBet},
		Metrics: metrics.New(nil),
	}
	if cfg.KafkaBrokers != "" {
		pub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer pub.Close()
		opts.Publisher = pub
		zlog.Info("event publishing enabled", zap.String("topic", cfg.KafkaTopic))
	}

	dispatcher := dispatch.New(
		zlog,
		store,
		sessions,
		signer.ForEncoding(cfg.UpstreamEncoding),
		upstream.New(cfg.UpstreamTimeout),
		opts,
	)

	metrics.StartServer(cfg.MetricsPort, func(ctx context.Context) error {
		if db != nil {
			return db.PingContext(ctx)
		}
		return nil
	})

	srv := server.New(cfg, zlog, dispatcher, recent)
	if err := srv.Run(); err != nil {
		zlog.Fatal("server exited", zap.Error(err))
	}
}
