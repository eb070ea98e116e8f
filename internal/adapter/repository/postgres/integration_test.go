package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srgjo27/scalable_parking/internal/adapter/repository/postgres"
	"github.com/srgjo27/scalable_parking/internal/core/domain"
	"github.com/srgjo27/scalable_parking/internal/core/services"
)

// openIntegrationDB connects to DATABASE_URL and resets the parking tables.
// Tests using it are skipped when the variable is unset.
func openIntegrationDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(32)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.PingContext(context.Background()))
	require.NoError(t, postgres.RunMigrations(db))

	_, err = db.Exec(`TRUNCATE reservations, parking_spots, parking_lots, users CASCADE`)
	require.NoError(t, err)
	return db
}

func createUsers(t *testing.T, store *postgres.Store, n int) []domain.Identity {
	t.Helper()

	out := make([]domain.Identity, n)
	for i := range out {
		id := uuid.New()
		require.NoError(t, store.Users().Create(context.Background(), &domain.User{
			ID:        id,
			Username:  fmt.Sprintf("driver-%d", i),
			Email:     fmt.Sprintf("%s@example.com", id),
			Role:      domain.RoleUser,
			CreatedAt: time.Now().UTC(),
		}))
		out[i] = domain.Identity{SubjectID: id, Role: domain.RoleUser}
	}
	return out
}

func createLot(t *testing.T, store *postgres.Store, spots int) *domain.Lot {
	t.Helper()

	lots := services.NewLotService(store, nil, nil, nil, nil)
	lot, err := lots.CreateLot(context.Background(), domain.Identity{SubjectID: uuid.New(), Role: domain.RoleAdmin}, domain.CreateLotInput{
		Name:          "City Mall Plaza",
		PricePerHour:  5,
		NumberOfSpots: spots,
	})
	require.NoError(t, err)
	return lot
}

func TestIntegration_ConcurrentAllocateMoreCallersThanSpots(t *testing.T) {
	db := openIntegrationDB(t)
	store := postgres.NewStore(db)
	occupancy := services.NewOccupancyService(store, nil, nil, nil, nil)

	const spots, callers = 3, 12
	lot := createLot(t, store, spots)
	users := createUsers(t, store, callers)

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		succeeded = map[uuid.UUID]int{}
		noCap     int
		other     []error
	)
	for _, user := range users {
		wg.Add(1)
		go func(user domain.Identity) {
			defer wg.Done()
			active, err := occupancy.Allocate(context.Background(), user, services.AllocateRequest{LotID: lot.ID})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded[active.Reservation.SpotID]++
			case errors.Is(err, domain.ErrNoCapacity):
				noCap++
			default:
				other = append(other, err)
			}
		}(user)
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Len(t, succeeded, spots)
	for spotID, n := range succeeded {
		assert.Equal(t, 1, n, "spot %s handed out more than once", spotID)
	}
	assert.Equal(t, callers-spots, noCap)

	mismatches, err := store.Analytics().Mismatches(context.Background())
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestIntegration_ConcurrentAllocateSameUser(t *testing.T) {
	db := openIntegrationDB(t)
	store := postgres.NewStore(db)
	occupancy := services.NewOccupancyService(store, nil, nil, nil, nil)

	const attempts = 8
	lot := createLot(t, store, attempts)
	user := createUsers(t, store, 1)[0]

	var (
		mu            sync.Mutex
		wg            sync.WaitGroup
		successes     int
		alreadyActive int
		other         []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := occupancy.Allocate(context.Background(), user, services.AllocateRequest{LotID: lot.ID})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrAlreadyActive):
				alreadyActive++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, alreadyActive)

	var occupied int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM parking_spots WHERE status = 'O'`).Scan(&occupied))
	assert.Equal(t, 1, occupied)
}
