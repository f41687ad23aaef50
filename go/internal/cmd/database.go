package main

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/placehub/go/internal/dbconfig"
)

func setupDatabase(dbcfg dbconfig.Config) (*sql.DB, error) {
	database, err := sql.Open("pgx", dbcfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	if err := database.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", dbcfg.Host).
		Int("port", dbcfg.Port).
		Str("database", dbcfg.Database).
		Msg("connected to database")
	return database, nil
}

func setupRedis(cfg *Config) *redis.Client {
	addr := getEnv("REDIS_ADDR", cfg.Redis.Addr)
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	log.Info().Str("addr", addr).Msg("redis client configured")
	return client
}
