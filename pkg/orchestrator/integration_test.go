//go:build integration

// Run with: go test -v ./pkg/orchestrator/... -tags=integration

package orchestrator

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/topcoder-platform/marathon-rating-processor/pkg/database"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/kafka"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/loader"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/models"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/persistor"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/repositories"
)

type noopReconciler struct{}

func (noopReconciler) Reconcile(ctx context.Context, roundID int64, challengeID string) {}

type noopNotifier struct{}

func (noopNotifier) PublishRoundRated(ctx context.Context, event kafka.RoundRatedEvent) error {
	return nil
}

func startPostgres(ctx context.Context, t *testing.T) string {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "rating",
			"POSTGRES_PASSWORD": "rating",
			"POSTGRES_DB":       "rating",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://rating:rating@%s:%s/rating?sslmode=disable", host, port.Port())
}

func runMigrations(t *testing.T, url string) {
	sqlDB, err := sql.Open("postgres", url)
	require.NoError(t, err)
	defer sqlDB.Close()

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	require.NoError(t, err)

	svc := database.NewMigrationService(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}), &database.MigrationConfig{
		MigrationFolderPath: "../../db/migrations",
	})
	require.NoError(t, svc.Migrate("rating_test", driver))
}

// TestCalculateByRound_EndToEnd seeds a round with two unrated
// attendees, one a first-timer, and asserts the full transaction
// lands in Postgres: both rows rated, the round flipped, and
// algo_rating upserted for each coder.
func TestCalculateByRound_EndToEnd(t *testing.T) {
	ctx := context.Background()
	url := startPostgres(ctx, t)
	runMigrations(t, url)

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	db, err := database.Connect(ctx, database.ConnectConfig{URL: url, MaxOpenConns: 5}, logger)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(ctx, `INSERT INTO round (round_id, contest_id, rated_ind) VALUES (1, 100, 0)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO long_comp_result (round_id, coder_id, attended, system_point_total) VALUES (1, 10, 'Y', 95.0), (1, 11, 'Y', 80.0)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO algo_rating (coder_id, algo_rating_type_id, rating, vol, num_ratings, round_id, highest_rating, lowest_rating, first_rated_round_id, last_rated_round_id) VALUES (11, $1, 1400, 300, 3, 0, 1450, 1350, 0, 0)`, models.MarathonRatingType)
	require.NoError(t, err)

	rounds := repositories.NewRoundRepository(db, logger)
	longCompResults := repositories.NewLongCompResultRepository(db, logger)
	algoRatings := repositories.NewAlgoRatingRepository(db, logger)

	ld := loader.New(longCompResults, algoRatings, logger)
	pst := persistor.New(db, rounds, longCompResults, algoRatings, logger)
	orch := New(rounds, noopReconciler{}, ld, pst, noopNotifier{}, logger)

	result, err := orch.CalculateByRound(ctx, 1, "chal-1")
	require.NoError(t, err)
	assert.Equal(t, Success, result)

	round, err := rounds.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, round.RatedInd)

	firstTimer, err := algoRatings.GetByCoderID(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, firstTimer)
	assert.Equal(t, 1, firstTimer.NumRatings)

	veteran, err := algoRatings.GetByCoderID(ctx, 11)
	require.NoError(t, err)
	require.NotNil(t, veteran)
	assert.Equal(t, 4, veteran.NumRatings)

	again, err := orch.CalculateByRound(ctx, 1, "chal-1")
	require.NoError(t, err)
	assert.Equal(t, AlreadyCalculated, again)
}
