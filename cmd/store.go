package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/repository"
)

// openRepository builds the session store selected by STORE_DRIVER.
func openRepository(ctx context.Context, cfg *config.Config, log *slog.Logger) (repository.SessionRepository, error) {
	switch cfg.StoreDriver {
	case "memory", "":
		return repository.NewMemoryRepository(), nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return repository.NewRedisRepository(client, cfg.SessionTTL), nil

	case "sqlite":
		return openSQL(ctx, repository.DialectSQLite, cfg.SQLitePath, cfg.SessionTTL, log)

	case "postgres":
		creds := repository.Credentials{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
		}
		return openSQL(ctx, repository.DialectPostgres, creds.DSN(), cfg.SessionTTL, log)

	case "mongo":
		db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, err
		}
		repo := repository.NewMongoRepository(db, cfg.SessionTTL)
		if err := repo.CreateIndexes(ctx); err != nil {
			_ = repo.Close()
			return nil, err
		}
		return repo, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func openSQL(ctx context.Context, dialect repository.Dialect, dsn string, ttl time.Duration, log *slog.Logger) (repository.SessionRepository, error) {
	repo, err := repository.NewSQLRepository(dialect, dsn)
	if err != nil {
		return nil, err
	}
	if err := repo.RunMigrations(); err != nil {
		_ = repo.Close()
		return nil, err
	}
	go purgeExpired(ctx, repo, ttl, log)
	return repo, nil
}

// purgeExpired drops sessions untouched for longer than ttl, hourly, until
// ctx is done.
func purgeExpired(ctx context.Context, repo *repository.SQLRepository, ttl time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		n, err := repo.PurgeBefore(ctx, time.Now().Add(-ttl))
		switch {
		case err != nil && ctx.Err() == nil:
			log.Warn("failed to purge expired sessions", slog.Any("error", err))
		case n > 0:
			log.Info("purged expired sessions", slog.Int64("rows", n))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
