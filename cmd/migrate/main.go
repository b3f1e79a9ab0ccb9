package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/storage/migrations"
	"github.com/Mehd1b/Tokamak-AI-Layer-sub006/internal/storage/postgres"
)

func main() {
	// Parse flags
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[migrate] ", log.LstdFlags)

	if *postgresDSN == "" && *clickhouseDSN == "" {
		logger.Fatal("at least one of --postgres-dsn or --clickhouse-dsn is required")
	}

	ctx := context.Background()

	if *postgresDSN != "" {
		pool, err := postgres.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			logger.Fatalf("postgres migrations: %v", err)
		}
		pool.Close()
		logger.Print("postgres migrations applied")
	}

	if *clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("clickhouse migrations: %v", err)
		}
		conn.Close()
		logger.Print("clickhouse migrations applied")
	}
}
