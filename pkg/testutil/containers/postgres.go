//go:build integration

// Package containers provides shared testcontainers helpers for integration
// tests. Containers are started per suite; Ryuk reaps them after the run.
package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schema mirrors the production migrations: members carry the two uniqueness
// constraints the enrollment pipeline leans on.
const schema = `
CREATE TABLE IF NOT EXISTS provinces (
    id   BIGINT PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS branches (
    id          BIGINT PRIMARY KEY,
    code        TEXT NOT NULL,
    name        TEXT NOT NULL,
    province_id BIGINT NOT NULL REFERENCES provinces(id)
);

CREATE TABLE IF NOT EXISTS members (
    id                UUID PRIMARY KEY,
    name              TEXT NOT NULL,
    retirement_number TEXT NOT NULL,
    card_number       TEXT NOT NULL,
    phone_number      TEXT NOT NULL,
    birth_date        TEXT NOT NULL,
    address           TEXT NOT NULL,
    city              TEXT NOT NULL,
    branch_id         BIGINT NOT NULL REFERENCES branches(id),
    card_image_path   TEXT,
    created_at        TIMESTAMPTZ NOT NULL,
    updated_at        TIMESTAMPTZ NOT NULL,
    CONSTRAINT members_retirement_number_key UNIQUE (retirement_number),
    CONSTRAINT members_card_number_key UNIQUE (card_number)
);
`

// PostgresContainer wraps a testcontainers Postgres instance with the schema
// applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
}

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("himpana_test"),
		tcpostgres.WithUsername("himpana"),
		tcpostgres.WithPassword("himpana"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	pc := &PostgresContainer{Container: container, DB: db}
	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(ctx)
	})
	return pc
}

// TruncateTables clears the given tables between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx,
		fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", ")))
	return err
}

// SeedBranch inserts a province and branch fixture.
func (p *PostgresContainer) SeedBranch(ctx context.Context, provinceID int64, provinceName string, branchID int64, code, name string) error {
	if _, err := p.DB.ExecContext(ctx,
		`INSERT INTO provinces (id, name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		provinceID, provinceName); err != nil {
		return err
	}
	_, err := p.DB.ExecContext(ctx,
		`INSERT INTO branches (id, code, name, province_id) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
		branchID, code, name, provinceID)
	return err
}
