package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/srgjo27/scalable_parking/internal/adapter/handler"
	"github.com/srgjo27/scalable_parking/internal/adapter/repository/memory"
	"github.com/srgjo27/scalable_parking/internal/core/domain"
	"github.com/srgjo27/scalable_parking/internal/core/ports/mocks"
	"github.com/srgjo27/scalable_parking/internal/core/services"
	"github.com/srgjo27/scalable_parking/internal/platform/clock"
)

const secret = "test-secret"

var now = time.Date(2025, 11, 14, 9, 0, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
	Error   string          `json:"error"`
}

type testServer struct {
	store    *memory.Store
	clock    *clock.FakeClock
	enqueuer *mocks.ExportEnqueuer
	router   http.Handler
	admin    domain.Identity
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memory.New()
	clk := clock.NewFakeClock(now)
	enqueuer := mocks.NewExportEnqueuer(t)

	occupancy := services.NewOccupancyService(store, nil, clk, nil, nil)
	lots := services.NewLotService(store, nil, clk, nil, nil)
	analytics := services.NewAnalyticsService(store, nil, clk, time.UTC, nil)
	reports := services.NewReportService(store, enqueuer, clk, time.UTC, nil)

	ts := &testServer{
		store:    store,
		clock:    clk,
		enqueuer: enqueuer,
		router: handler.NewRouter(handler.RouterConfig{
			ServiceName: "scalable-parking",
			JWTSecret:   secret,
			Parking:     handler.NewParkingHandler(occupancy, lots, analytics, zapNop()),
			Admin:       handler.NewAdminHandler(lots, analytics, reports, zapNop()),
		}),
	}
	ts.admin = ts.newUser(t, domain.RoleAdmin)
	return ts
}

func (ts *testServer) newUser(t *testing.T, role domain.Role) domain.Identity {
	t.Helper()
	id := uuid.New()
	require.NoError(t, ts.store.Users().Create(context.Background(), &domain.User{
		ID:        id,
		Username:  "user-" + id.String()[:8],
		Email:     fmt.Sprintf("%s@example.com", id),
		Role:      role,
		CreatedAt: now,
	}))
	return domain.Identity{SubjectID: id, Role: role}
}

func (ts *testServer) do(t *testing.T, identity *domain.Identity, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if identity != nil {
		token, err := handler.IssueToken(secret, *identity, time.Hour, time.Now())
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (ts *testServer) createLot(t *testing.T, spots int, price float64) handler.LotResponse {
	t.Helper()
	rec, env := ts.do(t, &ts.admin, http.MethodPost, "/api/admin/lots", handler.CreateLotRequest{
		PrimeLocationName: "City Mall Plaza",
		PricePerHour:      price,
		NumberOfSpots:     spots,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var lot handler.LotResponse
	require.NoError(t, json.Unmarshal(env.Data, &lot))
	return lot
}

func statusFields(t *testing.T, env envelope) map[string]any {
	t.Helper()
	var fields map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &fields))
	return fields
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(t, nil, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAuth_MissingAndInvalidToken(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, nil, http.MethodGet, "/api/user/lots", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", env.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/user/lots", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	other, err := handler.IssueToken("other-secret", ts.admin, time.Hour, time.Now())
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/user/lots", nil)
	req.Header.Set("Authorization", "Bearer "+other)
	rr = httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestStatus_FreshUserHasNoActiveReservation(t *testing.T) {
	ts := newTestServer(t)
	user := ts.newUser(t, domain.RoleUser)

	rec, env := ts.do(t, &user, http.MethodGet, "/api/user/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	fields := statusFields(t, env)
	require.Contains(t, fields, "has_active")
	assert.Equal(t, false, fields["has_active"])
}

func TestPublicLots_NoTokenRequired(t *testing.T) {
	ts := newTestServer(t)
	lot := ts.createLot(t, 2, 5.0)

	rec, env := ts.do(t, nil, http.MethodGet, "/api/lots", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var lots []handler.LotResponse
	require.NoError(t, json.Unmarshal(env.Data, &lots))
	require.Len(t, lots, 1)
	assert.Equal(t, lot.ID, lots[0].ID)
	assert.Empty(t, lots[0].Spots)

	rec, env = ts.do(t, nil, http.MethodGet, "/api/lots/"+lot.ID.String()+"?include_spots=1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got handler.LotResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Len(t, got.Spots, 2)

	rec, env = ts.do(t, nil, http.MethodGet, "/api/lots/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Code)

	rec, env = ts.do(t, nil, http.MethodGet, "/api/lots/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", env.Code)
}

func TestParseToken_RoundTrip(t *testing.T) {
	identity := domain.Identity{SubjectID: uuid.New(), Role: domain.RoleUser}

	token, err := handler.IssueToken(secret, identity, time.Hour, time.Now())
	require.NoError(t, err)

	got, err := handler.ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, identity, got)

	expired, err := handler.IssueToken(secret, identity, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = handler.ParseToken(secret, expired)
	assert.Error(t, err)
}

func TestCreateLot_AdminOnlyAndValidated(t *testing.T) {
	ts := newTestServer(t)
	user := ts.newUser(t, domain.RoleUser)

	lot := ts.createLot(t, 3, 5.0)
	assert.Equal(t, 3, lot.NumberOfSpots)
	assert.Equal(t, "City Mall Plaza", lot.PrimeLocationName)
	assert.Len(t, lot.Spots, 3)

	rec, env := ts.do(t, &user, http.MethodPost, "/api/admin/lots", handler.CreateLotRequest{
		PrimeLocationName: "Sunset Beach", PricePerHour: 8.5, NumberOfSpots: 3,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", env.Code)

	rec, env = ts.do(t, &ts.admin, http.MethodPost, "/api/admin/lots", handler.CreateLotRequest{
		PrimeLocationName: "Sunset Beach", PricePerHour: 8.5, NumberOfSpots: 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", env.Code)
	assert.Contains(t, env.Error, "number_of_spots")
}

func TestCreateLot_MalformedBody(t *testing.T) {
	ts := newTestServer(t)

	token, err := handler.IssueToken(secret, ts.admin, time.Hour, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/lots", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParkReleaseFlow(t *testing.T) {
	ts := newTestServer(t)
	user := ts.newUser(t, domain.RoleUser)
	lot := ts.createLot(t, 2, 10.0)

	vehicle := "KA01AB1234"
	rec, env := ts.do(t, &user, http.MethodPost, "/api/user/park", handler.ParkRequest{LotID: lot.ID.String(), VehicleNumber: &vehicle})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var active handler.ActiveReservationResponse
	require.NoError(t, json.Unmarshal(env.Data, &active))
	assert.Equal(t, 1, active.SpotNumber)
	assert.Equal(t, lot.ID, active.LotID)
	assert.Nil(t, active.Cost)

	rec, env = ts.do(t, &user, http.MethodPost, "/api/user/park", handler.ParkRequest{LotID: lot.ID.String()})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_active", env.Code)

	rec, env = ts.do(t, &user, http.MethodGet, "/api/user/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status handler.StatusResponse
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.True(t, status.HasActive)
	assert.Equal(t, 1, status.Reservation.SpotNumber)
	assert.Equal(t, true, statusFields(t, env)["has_active"])

	ts.clock.Advance(90 * time.Minute)

	remarks := "left early"
	rec, env = ts.do(t, &user, http.MethodPost, "/api/user/release", handler.ReleaseRequest{Remarks: &remarks})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var released handler.ReleaseResponse
	require.NoError(t, json.Unmarshal(env.Data, &released))
	require.NotNil(t, released.Cost)
	assert.Equal(t, 15.0, *released.Cost)
	assert.Equal(t, 1.5, released.BillableHours)
	assert.Equal(t, "left early", *released.Remarks)

	rec, env = ts.do(t, &user, http.MethodPost, "/api/user/release", nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, "no_active_reservation", env.Code)

	rec, env = ts.do(t, &user, http.MethodGet, "/api/user/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status = handler.StatusResponse{}
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.False(t, status.HasActive)
	assert.Nil(t, status.Reservation)
	fields := statusFields(t, env)
	assert.Equal(t, false, fields["has_active"])
	assert.NotContains(t, fields, "reservation")

	rec, env = ts.do(t, &user, http.MethodGet, "/api/user/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []handler.ReservationRecordResponse
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "City Mall Plaza", history[0].LotName)
	assert.Empty(t, history[0].UserEmail)
}

func TestPark_ErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	first := ts.newUser(t, domain.RoleUser)
	second := ts.newUser(t, domain.RoleUser)
	lot := ts.createLot(t, 1, 5.0)

	rec, env := ts.do(t, &first, http.MethodPost, "/api/user/park", handler.ParkRequest{LotID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", env.Code)

	rec, env = ts.do(t, &first, http.MethodPost, "/api/user/park", handler.ParkRequest{LotID: uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Code)

	rec, _ = ts.do(t, &first, http.MethodPost, "/api/user/park", handler.ParkRequest{LotID: lot.ID.String()})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env = ts.do(t, &second, http.MethodPost, "/api/user/park", handler.ParkRequest{LotID: lot.ID.String()})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "no_capacity", env.Code)
}

func TestUserLots_ShowsAvailability(t *testing.T) {
	ts := newTestServer(t)
	user := ts.newUser(t, domain.RoleUser)
	lot := ts.createLot(t, 3, 5.0)

	rec, _ := ts.do(t, &user, http.MethodPost, "/api/user/park", handler.ParkRequest{LotID: lot.ID.String()})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := ts.do(t, &user, http.MethodGet, "/api/user/lots", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var lots []handler.LotResponse
	require.NoError(t, json.Unmarshal(env.Data, &lots))
	require.Len(t, lots, 1)
	require.NotNil(t, lots[0].AvailableSpots)
	assert.Equal(t, 2, *lots[0].AvailableSpots)
}

func TestUpdateLot_ShrinkConflict(t *testing.T) {
	ts := newTestServer(t)
	user := ts.newUser(t, domain.RoleUser)
	other := ts.newUser(t, domain.RoleUser)
	lot := ts.createLot(t, 2, 5.0)

	for _, u := range []domain.Identity{user, other} {
		rec, _ := ts.do(t, &u, http.MethodPost, "/api/user/park", handler.ParkRequest{LotID: lot.ID.String()})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	one := 1
	rec, env := ts.do(t, &ts.admin, http.MethodPut, "/api/admin/lots/"+lot.ID.String(), handler.UpdateLotRequest{NumberOfSpots: &one})
	assert.Equal(t, http.StatusLocked, rec.Code)
	assert.Equal(t, "capacity_conflict", env.Code)

	rec, env = ts.do(t, &ts.admin, http.MethodGet, "/api/admin/lots/"+lot.ID.String()+"?include_spots=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got handler.LotResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 2, got.NumberOfSpots)
	assert.Len(t, got.Spots, 2)

	rec, env = ts.do(t, &ts.admin, http.MethodDelete, "/api/admin/lots/"+lot.ID.String(), nil)
	assert.Equal(t, http.StatusLocked, rec.Code)
	assert.Equal(t, "capacity_conflict", env.Code)
}

func TestUpdateLot_GrowAndDelete(t *testing.T) {
	ts := newTestServer(t)
	lot := ts.createLot(t, 2, 5.0)

	five := 5
	name := "Sunset Beach"
	rec, env := ts.do(t, &ts.admin, http.MethodPut, "/api/admin/lots/"+lot.ID.String(), handler.UpdateLotRequest{
		PrimeLocationName: &name,
		NumberOfSpots:     &five,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got handler.LotResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 5, got.NumberOfSpots)
	assert.Equal(t, "Sunset Beach", got.PrimeLocationName)

	rec, env = ts.do(t, &ts.admin, http.MethodGet, "/api/admin/lots/"+lot.ID.String()+"/spots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var spots []handler.SpotResponse
	require.NoError(t, json.Unmarshal(env.Data, &spots))
	require.Len(t, spots, 5)
	assert.Equal(t, 5, spots[4].SpotNumber)

	rec, _ = ts.do(t, &ts.admin, http.MethodDelete, "/api/admin/lots/"+lot.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = ts.do(t, &ts.admin, http.MethodGet, "/api/admin/lots/"+lot.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Code)

	rec, env = ts.do(t, &ts.admin, http.MethodGet, "/api/admin/lots/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", env.Code)
}

func TestAdminListings(t *testing.T) {
	ts := newTestServer(t)
	user := ts.newUser(t, domain.RoleUser)
	lot := ts.createLot(t, 2, 5.0)

	rec, _ := ts.do(t, &user, http.MethodPost, "/api/user/park", handler.ParkRequest{LotID: lot.ID.String()})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := ts.do(t, &ts.admin, http.MethodGet, "/api/admin/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []handler.UserResponse
	require.NoError(t, json.Unmarshal(env.Data, &users))
	require.Len(t, users, 2)

	parked := 0
	for _, u := range users {
		if u.CurrentReservation != nil {
			parked++
			assert.Equal(t, user.SubjectID, u.ID)
		}
	}
	assert.Equal(t, 1, parked)

	rec, env = ts.do(t, &ts.admin, http.MethodGet, "/api/admin/reservations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var records []handler.ReservationRecordResponse
	require.NoError(t, json.Unmarshal(env.Data, &records))
	require.Len(t, records, 1)
	assert.NotEmpty(t, records[0].UserEmail)

	rec, env = ts.do(t, &ts.admin, http.MethodGet, "/api/admin/consistency", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var consistency struct {
		Consistent bool              `json:"consistent"`
		Mismatches []domain.Mismatch `json:"mismatches"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &consistency))
	assert.True(t, consistency.Consistent)
	assert.Empty(t, consistency.Mismatches)

	rec, env = ts.do(t, &user, http.MethodGet, "/api/admin/users", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", env.Code)
}

func TestAnalyticsEndpoints(t *testing.T) {
	ts := newTestServer(t)
	user := ts.newUser(t, domain.RoleUser)
	lot := ts.createLot(t, 2, 10.0)

	rec, _ := ts.do(t, &user, http.MethodPost, "/api/user/park", handler.ParkRequest{LotID: lot.ID.String()})
	require.Equal(t, http.StatusCreated, rec.Code)
	ts.clock.Advance(2 * time.Hour)
	rec, _ = ts.do(t, &user, http.MethodPost, "/api/user/release", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := ts.do(t, &ts.admin, http.MethodGet, "/api/admin/analytics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dashboard domain.AdminDashboard
	require.NoError(t, json.Unmarshal(env.Data, &dashboard))
	assert.Equal(t, 20.0, dashboard.TotalRevenue)
	assert.Equal(t, 2, dashboard.Occupancy.Total)
	assert.Len(t, dashboard.DailyRevenue, 7)

	rec, env = ts.do(t, &user, http.MethodGet, "/api/user/analytics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine domain.UserDashboard
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	assert.Equal(t, 20.0, mine.Stats.TotalSpent)
	assert.Equal(t, 1, mine.Stats.TotalParkings)
	assert.Len(t, mine.Recent, 1)
}

func TestExportCSV_Accepted(t *testing.T) {
	ts := newTestServer(t)
	ts.enqueuer.On("EnqueueExport", mock.Anything, ts.admin.SubjectID).Return("task-123", nil).Once()

	rec, env := ts.do(t, &ts.admin, http.MethodPost, "/api/admin/export-csv", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp handler.ExportResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "task-123", resp.TaskID)
}

func TestExportCSV_EnqueueFailureIsOpaque(t *testing.T) {
	ts := newTestServer(t)
	ts.enqueuer.On("EnqueueExport", mock.Anything, ts.admin.SubjectID).Return("", errors.New("redis down")).Once()

	rec, env := ts.do(t, &ts.admin, http.MethodPost, "/api/admin/export-csv", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", env.Code)
	assert.NotContains(t, env.Error, "redis")
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.NewValidationError("price_per_hour", "must be >= 0"), http.StatusBadRequest, "validation_error"},
		{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{fmt.Errorf("LotRepository.GetByID: %w", domain.ErrNotFound), http.StatusNotFound, "not_found"},
		{domain.ErrAlreadyActive, http.StatusConflict, "already_active"},
		{domain.ErrNoActiveReservation, http.StatusPreconditionFailed, "no_active_reservation"},
		{domain.ErrInvalidInterval, http.StatusUnprocessableEntity, "invalid_interval"},
		{domain.ErrCapacityConflict, http.StatusLocked, "capacity_conflict"},
		{domain.ErrNoCapacity, http.StatusServiceUnavailable, "no_capacity"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			status, code := handler.StatusFor(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, code)
		})
	}
}
