package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	loadoutmigrations "github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout/infrastructure/repositories/migrations"
	profilemigrations "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/infrastructure/repositories/migrations"
	rankedqueuemigrations "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/infrastructure/repositories/migrations"
	seasonmigrations "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/infrastructure/repositories/migrations"
	tournamentmigrations "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/shinobi-ranked/integration_tests/containers"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/eventbus"
)

// mutableTables are emptied between tests. Catalog tables seeded by
// migrations are left alone.
var mutableTables = []string{
	"tournament_matches",
	"tournaments",
	"tournament_records",
	"ranked_matches",
	"ranked_queue",
	"ranked_user_rewards",
	"ranked_seasons",
	"ranked_loadouts",
	"user_items",
	"user_profiles",
}

// TestEnvironment holds the containers and connections shared by a package's
// integration tests.
type TestEnvironment struct {
	Ctx           context.Context
	CancelContext context.CancelFunc
	PgContainer   *postgres.PostgresContainer
	NatsContainer testcontainers.Container
	DSN           string
	DB            *bun.DB
	Bus           *eventbus.NATSBus
	NatsConn      *nats.Conn
	Logger        *slog.Logger
}

// NewTestEnvironment starts Postgres and NATS and applies every module's
// migrations.
func NewTestEnvironment(t *testing.T) (*TestEnvironment, error) {
	ctx, cancel := context.WithCancel(context.Background())
	env := &TestEnvironment{
		Ctx:           ctx,
		CancelContext: cancel,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	pgContainer, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to setup postgres container: %w", err)
	}
	env.PgContainer = pgContainer
	env.DSN = dsn

	natsContainer, natsURL, err := containers.SetupNatsContainer(ctx)
	if err != nil {
		env.Cleanup()
		return nil, fmt.Errorf("failed to setup nats container: %w", err)
	}
	env.NatsContainer = natsContainer

	env.DB = bun.NewDB(sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn))), pgdialect.New())
	if err := runMigrations(ctx, env.DB); err != nil {
		env.Cleanup()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	bus, err := eventbus.NewNATS(ctx, eventbus.Config{URL: natsURL, QueueGroup: "integration"}, env.Logger)
	if err != nil {
		env.Cleanup()
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	env.Bus = bus
	env.NatsConn = bus.Conn()

	return env, nil
}

func runMigrations(ctx context.Context, db *bun.DB) error {
	modules := []struct {
		name       string
		migrations *migrate.Migrations
	}{
		{"profile", profilemigrations.Migrations},
		{"loadout", loadoutmigrations.Migrations},
		{"rankedqueue", rankedqueuemigrations.Migrations},
		{"season", seasonmigrations.Migrations},
		{"tournament", tournamentmigrations.Migrations},
	}
	for _, m := range modules {
		migrator := migrate.NewMigrator(db, m.migrations,
			migrate.WithTableName("bun_migrations_"+m.name),
			migrate.WithLocksTableName("bun_migration_locks_"+m.name),
		)
		if err := migrator.Init(ctx); err != nil {
			return fmt.Errorf("init %s migrations: %w", m.name, err)
		}
		if _, err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("apply %s migrations: %w", m.name, err)
		}
	}
	return nil
}

// Reset empties every mutable table.
func (env *TestEnvironment) Reset(ctx context.Context) error {
	_, err := env.DB.ExecContext(ctx, "TRUNCATE "+strings.Join(mutableTables, ", ")+" CASCADE")
	return err
}

// Cleanup closes connections and terminates the containers.
func (env *TestEnvironment) Cleanup() {
	if env.Bus != nil {
		_ = env.Bus.Close()
	}
	if env.DB != nil {
		_ = env.DB.Close()
	}
	if env.NatsContainer != nil {
		_ = env.NatsContainer.Terminate(env.Ctx)
	}
	if env.PgContainer != nil {
		_ = env.PgContainer.Terminate(env.Ctx)
	}
	env.CancelContext()
}
