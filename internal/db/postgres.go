package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/niyahq/niya-backend/internal/platform/envutil"
	"github.com/niyahq/niya-backend/internal/platform/logger"
	"github.com/niyahq/niya-backend/internal/types"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := envutil.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := envutil.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := envutil.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := envutil.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := envutil.GetEnv("POSTGRES_NAME", "niya", log)
	sslMode := envutil.GetEnv("POSTGRES_SSLMODE", "disable", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName, sslMode)

	serviceLog.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		serviceLog.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error; err != nil {
		serviceLog.Error("Failed to enable pgvector extension", "error", err)
		return nil, fmt.Errorf("failed to enable pgvector extension: %w", err)
	}

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.Bot{},
		&types.Source{},
		&types.Chunk{},
		&types.QueryLog{},
		&types.WidgetToken{},
		&types.RateCounter{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	fks := []struct {
		table, name, column, refTable string
	}{
		{"bots", "fk_bots_owner_id", "owner_id", "users"},
		{"sources", "fk_sources_bot_id", "bot_id", "bots"},
		{"chunks", "fk_chunks_bot_id", "bot_id", "bots"},
		{"chunks", "fk_chunks_source_id", "source_id", "sources"},
		{"query_logs", "fk_query_logs_bot_id", "bot_id", "bots"},
		{"widget_tokens", "fk_widget_tokens_bot_id", "bot_id", "bots"},
		{"rate_counters", "fk_rate_counters_bot_id", "bot_id", "bots"},
	}
	for _, fk := range fks {
		stmt := fmt.Sprintf(`
			DO $$ BEGIN
				IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
					ALTER TABLE "%s"
					ADD CONSTRAINT "%s"
					FOREIGN KEY ("%s")
					REFERENCES "%s"("id")
					ON DELETE CASCADE;
				END IF;
			END $$;
		`, fk.name, fk.table, fk.name, fk.column, fk.refTable)
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to add %s: %w", fk.name, err)
		}
	}

	s.log.Info("Configuring indexes for postgres tables...")
	if err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_chunks_embedding_cosine
		ON "chunks" USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)
	`).Error; err != nil {
		return fmt.Errorf("failed to create ivfflat index: %w", err)
	}
	if err := s.db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_widget_tokens_token_hash
		ON "widget_tokens" (lower(token_hash))
	`).Error; err != nil {
		return fmt.Errorf("failed to create widget token hash index: %w", err)
	}
	if err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_query_logs_bot_created
		ON "query_logs" (bot_id, created_at DESC)
	`).Error; err != nil {
		return fmt.Errorf("failed to create query log index: %w", err)
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
