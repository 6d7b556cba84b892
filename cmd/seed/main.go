// Package main provides a CLI tool for seeding the database with the
// stock numbering series.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"protocolo/internal/core/clock"
	"protocolo/internal/domain/series"
	"protocolo/internal/infrastructure/counter"
	"protocolo/internal/infrastructure/storage/postgres"
	"protocolo/internal/infrastructure/storage/postgres/series_repo"
	"protocolo/pkg/logger"
)

const seedActor = "seed"

// stockSeries are the series every fresh installation starts with.
var stockSeries = []series.CreateInput{
	{Name: "ANÁLISE", Tipo: "ANÁLISE", Sigla: "CEDP", Formato: "#{seq:3}/#{sigla}", ResetPolicy: series.ResetAnnual},
	{Name: "CI", Tipo: "CI", Sigla: "PRES", Formato: "#{seq:3}/#{sigla}", ResetPolicy: series.ResetAnnual},
	{Name: "RELATÓRIOS DE VISITAS", Tipo: "RELATÓRIO", Sigla: "", Formato: "#{seq:3}/#{ano}", ResetPolicy: series.ResetAnnual},
	{Name: "OFÍCIO", Tipo: "OFÍCIO", Sigla: "CLN", Formato: "#{seq:3}/#{sigla}", ResetPolicy: series.ResetAnnual},
	{Name: "PORTARIA", Tipo: "PORTARIA", Sigla: "PRES", Formato: "#{seq:3}/#{sigla}", ResetPolicy: series.ResetAnnual},
}

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	if err := postgres.Migrate(dbURL); err != nil {
		log.Fatalw("failed to run migrations", "error", err)
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)
	seriesRepo := series_repo.NewSeriesRepo(txManager)
	counterStore := counter.NewStore(txManager)
	svc := series.NewService(seriesRepo, counterStore, txManager, clock.System{})

	for _, in := range stockSeries {
		exists, err := seriesExists(ctx, pool, in.Name)
		if err != nil {
			log.Fatalw("failed to check series", "name", in.Name, "error", err)
		}
		if exists {
			log.Infow("series already exists, skipping", "name", in.Name)
			continue
		}

		created, err := svc.Create(ctx, in, seedActor)
		if err != nil {
			log.Fatalw("failed to create series", "name", in.Name, "error", err)
		}
		log.Infow("series created", "name", created.Name, "id", created.ID)
	}

	log.Info("seeding completed successfully")
}

func seriesExists(ctx context.Context, pool *postgres.Pool, name string) (bool, error) {
	var id string
	err := pool.Pool.QueryRow(ctx,
		`SELECT id FROM series WHERE name = $1 AND is_active`,
		name,
	).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, err
}
