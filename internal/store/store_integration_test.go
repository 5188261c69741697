package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const skipIntegrationTests = "GUMHOOK_SKIP_INTEGRATION_TESTS"

// PgStoreSuite is a test suite for the PostgreSQL SubscriberStore implementation.
type PgStoreSuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	store       SubscriberStore
	logger      *slog.Logger
	ctx         context.Context
}

// SetupSuite starts a PostgreSQL container and applies the migrations.
func (s *PgStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	dbName := "gumhook_db"
	dbUser := "user"
	dbPassword := "password"

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgxpool")

	for i := range 10 {
		s.logger.Info("Pinging PostgreSQL database", "attempt", i+1)
		err = s.dbPool.Ping(s.ctx)
		if err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	wd, _ := os.Getwd()
	migrationsPath := filepath.Join(wd, "../../db/migrations")
	sourceURL := "file://" + migrationsPath
	m, err := migrate.New(sourceURL, connStr)
	require.NoError(s.T(), err, "Failed to create migrate instance")
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_, _ = m.Close()
		require.NoError(s.T(), err, "Failed to apply migrations")
	}
	s.logger.Info("Migrations applied for integration tests")

	s.store = NewPgStore(s.dbPool)
	s.logger.Info("Initialization complete for PgStoreSuite")
}

// TearDownSuite cleans up resources after all tests in the suite have run.
func (s *PgStoreSuite) TearDownSuite() {
	s.logger.Info("Tearing down suite...")
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Warn("failed to terminate PostgreSQL container", "error", err)
		}
	}
}

// SetupTest prepares the database for each test by truncating the subscribers table.
func (s *PgStoreSuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE subscribers")
	require.NoError(s.T(), err, "Failed to truncate subscribers table")
}

// TestPgStoreIntegration runs the PgStore integration tests.
func TestPgStoreIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(PgStoreSuite))
}

func (s *PgStoreSuite) TestAddAndLoad() {
	s.SetupTest()
	// given
	added, err := s.store.Add(s.ctx, "cemyz", "A@Example.COM")
	require.NoError(s.T(), err, "Add should not return an error")
	require.True(s.T(), added, "First add should report a change")

	// when
	emails, err := s.store.Load(s.ctx, "cemyz")

	// then the email is stored in normalized form
	require.NoError(s.T(), err, "Load should not return an error")
	assert.Equal(s.T(), []string{"a@example.com"}, emails)
}

func (s *PgStoreSuite) TestAdd_Idempotent() {
	s.SetupTest()
	added, err := s.store.Add(s.ctx, "cemyz", "a@example.com")
	require.NoError(s.T(), err)
	require.True(s.T(), added)

	added, err = s.store.Add(s.ctx, "cemyz", "A@example.com")
	require.NoError(s.T(), err)
	assert.False(s.T(), added, "Duplicate add should be a no-op")

	emails, err := s.store.Load(s.ctx, "cemyz")
	require.NoError(s.T(), err)
	assert.Len(s.T(), emails, 1)
}

func (s *PgStoreSuite) TestAdd_BlankEmail() {
	s.SetupTest()
	added, err := s.store.Add(s.ctx, "cemyz", "   ")
	require.NoError(s.T(), err)
	assert.False(s.T(), added, "Blank email should be a no-op")

	emails, err := s.store.Load(s.ctx, "cemyz")
	require.NoError(s.T(), err)
	assert.Empty(s.T(), emails, "No row should be inserted for a blank email")
}

func (s *PgStoreSuite) TestRemove() {
	s.SetupTest()
	_, err := s.store.Add(s.ctx, "cemyz", "a@example.com")
	require.NoError(s.T(), err)

	removed, err := s.store.Remove(s.ctx, "cemyz", "a@example.com")
	require.NoError(s.T(), err)
	assert.True(s.T(), removed)

	removed, err = s.store.Remove(s.ctx, "cemyz", "a@example.com")
	require.NoError(s.T(), err)
	assert.False(s.T(), removed, "Removing an absent subscriber should be a no-op")
}

func (s *PgStoreSuite) TestSave_ReplacesSet() {
	s.SetupTest()
	_, err := s.store.Add(s.ctx, "cemyz", "old@example.com")
	require.NoError(s.T(), err)

	err = s.store.Save(s.ctx, "cemyz", []string{"new1@example.com", "new2@example.com"})
	require.NoError(s.T(), err)

	emails, err := s.store.Load(s.ctx, "cemyz")
	require.NoError(s.T(), err)
	assert.ElementsMatch(s.T(), []string{"new1@example.com", "new2@example.com"}, emails)
}

func (s *PgStoreSuite) TestProductsAreIsolated() {
	s.SetupTest()
	_, err := s.store.Add(s.ctx, "cemyz", "a@example.com")
	require.NoError(s.T(), err)
	_, err = s.store.Add(s.ctx, "other", "b@example.com")
	require.NoError(s.T(), err)

	emails, err := s.store.Load(s.ctx, "cemyz")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"a@example.com"}, emails)
}
