package reservation_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medigo/pharmacy-api/internal/authz"
	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/repository"
	"github.com/medigo/pharmacy-api/internal/service/outbox"
	"github.com/medigo/pharmacy-api/internal/service/reservation"
	"github.com/medigo/pharmacy-api/internal/workflow"
	apperrors "github.com/medigo/pharmacy-api/pkg/errors"
	"github.com/medigo/pharmacy-api/pkg/logger"
)

type testEnv struct {
	svc          *reservation.Service
	reservations *fakeReservationRepo
	stocks       *fakeStockRepo

	pharmacyID   uuid.UUID
	medicationID uuid.UUID
	patient      model.Actor
	admin        model.Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		reservations: newFakeReservationRepo(),
		stocks:       newFakeStockRepo(),
		pharmacyID:   uuid.New(),
		medicationID: uuid.New(),
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
	guard := authz.NewGuard()
	engine := workflow.NewEngine(
		env.reservations, nil, nil, nil, nil, nil, nil,
		guard, log, nil,
	)
	enqueuer := outbox.NewEnqueuer(newFakeOutboxRepo(), log, nil)
	env.svc = reservation.NewService(env.reservations, env.stocks, engine, guard, enqueuer, log)

	env.patient = model.Actor{UserID: uuid.New(), Role: model.RolePatient}
	env.admin = model.Actor{UserID: uuid.New(), Role: model.RolePharmacyAdmin, PharmacyID: &env.pharmacyID}
	return env
}

func (env *testEnv) seedStock(t *testing.T, quantity int) {
	t.Helper()
	require.NoError(t, env.stocks.Upsert(context.Background(), &model.Stock{
		PharmacyID:   env.pharmacyID,
		MedicationID: env.medicationID,
		Quantity:     quantity,
		Price:        1500,
	}))
}

func (env *testEnv) seedPaidReservation(t *testing.T, quantity int) *model.Reservation {
	t.Helper()
	res := &model.Reservation{
		PatientID:    env.patient.UserID,
		PharmacyID:   env.pharmacyID,
		MedicationID: env.medicationID,
		Quantity:     quantity,
		Status:       model.ReservationStatusPaid,
	}
	require.NoError(t, env.reservations.Create(context.Background(), res))
	return res
}

func TestCreateRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedStock(t, 10)

	created, err := env.svc.Create(ctx, env.patient, &model.CreateReservationRequest{
		PharmacyID:   env.pharmacyID,
		MedicationID: env.medicationID,
		Quantity:     2,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusPending, created.Status)

	got, err := env.svc.Get(ctx, env.patient, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusPending, got.Status)
	assert.Equal(t, 2, got.Quantity)
	assert.Equal(t, env.patient.UserID, got.PatientID)
	assert.Equal(t, env.pharmacyID, got.PharmacyID)
	assert.Equal(t, env.medicationID, got.MedicationID)
}

func TestCreateShortStockIsConflict(t *testing.T) {
	env := newTestEnv(t)
	env.seedStock(t, 1)

	_, err := env.svc.Create(context.Background(), env.patient, &model.CreateReservationRequest{
		PharmacyID:   env.pharmacyID,
		MedicationID: env.medicationID,
		Quantity:     3,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
	assert.Empty(t, env.reservations.items)
}

func TestCreateWithoutStockRowIsNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(context.Background(), env.patient, &model.CreateReservationRequest{
		PharmacyID:   env.pharmacyID,
		MedicationID: env.medicationID,
		Quantity:     1,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestConfirmDecrementsStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedStock(t, 5)
	res := env.seedPaidReservation(t, 2)

	updated, err := env.svc.Transition(ctx, env.admin, res.ID, model.ReservationStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusConfirmed, updated.Status)

	stock, err := env.stocks.Get(ctx, env.pharmacyID, env.medicationID)
	require.NoError(t, err)
	assert.Equal(t, 3, stock.Quantity)
}

func TestConfirmSurvivesDriftedStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Shelf count dropped below the reservation between payment and
	// confirmation. The confirm still goes through; the shortfall is the
	// pharmacy's to reconcile and the quantity never goes negative.
	env.seedStock(t, 1)
	res := env.seedPaidReservation(t, 4)

	updated, err := env.svc.Transition(ctx, env.admin, res.ID, model.ReservationStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusConfirmed, updated.Status)

	stock, err := env.stocks.Get(ctx, env.pharmacyID, env.medicationID)
	require.NoError(t, err)
	assert.Equal(t, 1, stock.Quantity)
}

// In-memory repositories with the postgres layer's conditional-update
// semantics: status changes are predicated on the expected current
// value, decrements on quantity >= n.

type fakeReservationRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Reservation
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{items: make(map[uuid.UUID]*model.Reservation)}
}

func (r *fakeReservationRepo) Create(_ context.Context, res *model.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	res.CreatedAt = time.Now()
	cp := *res
	r.items[res.ID] = &cp
	return nil
}

func (r *fakeReservationRepo) Get(_ context.Context, id uuid.UUID) (*model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (r *fakeReservationRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.Reservation, error) {
	return nil, nil
}

func (r *fakeReservationRepo) ListByPharmacy(_ context.Context, pharmacyID uuid.UUID, status model.ReservationStatus) ([]*model.Reservation, error) {
	return nil, nil
}

func (r *fakeReservationRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.ReservationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	if res.Status != from {
		return repository.ErrStaleStatus
	}
	res.Status = to
	res.UpdatedAt = time.Now()
	return nil
}

type stockKey struct {
	pharmacyID   uuid.UUID
	medicationID uuid.UUID
}

type fakeStockRepo struct {
	mu    sync.Mutex
	items map[stockKey]*model.Stock
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{items: make(map[stockKey]*model.Stock)}
}

func (r *fakeStockRepo) Upsert(_ context.Context, stock *model.Stock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stock.ID == uuid.Nil {
		stock.ID = uuid.New()
	}
	cp := *stock
	r.items[stockKey{stock.PharmacyID, stock.MedicationID}] = &cp
	return nil
}

func (r *fakeStockRepo) Get(_ context.Context, pharmacyID, medicationID uuid.UUID) (*model.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stock, ok := r.items[stockKey{pharmacyID, medicationID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *stock
	return &cp, nil
}

func (r *fakeStockRepo) ListByPharmacy(_ context.Context, pharmacyID uuid.UUID) ([]*model.Stock, error) {
	return nil, nil
}

func (r *fakeStockRepo) FindAvailability(_ context.Context, medicationID uuid.UUID) ([]*model.StockAvailability, error) {
	return nil, nil
}

func (r *fakeStockRepo) Decrement(_ context.Context, pharmacyID, medicationID uuid.UUID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stock, ok := r.items[stockKey{pharmacyID, medicationID}]
	if !ok || stock.Quantity < quantity {
		return repository.ErrInsufficientStock
	}
	stock.Quantity -= quantity
	return nil
}

type fakeOutboxRepo struct {
	mu     sync.Mutex
	events []*model.OutboxEvent
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{}
}

func (r *fakeOutboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	r.events = append(r.events, event)
	return nil
}

func (r *fakeOutboxRepo) GetPendingEvents(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) MarkProcessed(_ context.Context, id uuid.UUID) error {
	return nil
}

func (r *fakeOutboxRepo) MarkFailed(_ context.Context, id uuid.UUID, errorMessage string, retryAt *time.Time) error {
	return nil
}

func (r *fakeOutboxRepo) CountPending(_ context.Context) (int64, error) {
	return 0, nil
}
