package workflow_test

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
	"github.com/medigo/pharmacy-api/internal/workflow"
	apperrors "github.com/medigo/pharmacy-api/pkg/errors"
	"github.com/medigo/pharmacy-api/pkg/logger"
)

type testEnv struct {
	engine        *workflow.Engine
	reservations  *fakeReservationRepo
	appointments  *fakeAppointmentRepo
	prescriptions *fakePrescriptionRepo
	payments      *fakePaymentRepo
	deliveries    *fakeDeliveryRepo
	users         *fakeUserRepo
	pharmacies    *fakePharmacyRepo

	pharmacyID uuid.UUID
	patient    model.Actor
	admin      model.Actor
	courier    model.Actor
	superAdmin model.Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		reservations:  newFakeReservationRepo(),
		appointments:  newFakeAppointmentRepo(),
		prescriptions: newFakePrescriptionRepo(),
		payments:      newFakePaymentRepo(),
		deliveries:    newFakeDeliveryRepo(),
		users:         newFakeUserRepo(),
		pharmacies:    newFakePharmacyRepo(),
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
	env.engine = workflow.NewEngine(
		env.reservations, env.appointments, env.prescriptions,
		env.payments, env.deliveries, env.users, env.pharmacies,
		authz.NewGuard(), log, nil,
	)

	ctx := context.Background()

	pharmacy := &model.Pharmacy{Name: "Pharmacie du Grand Marché", IsOnDuty: true, IsVerified: true}
	require.NoError(t, env.pharmacies.Create(ctx, pharmacy))
	env.pharmacyID = pharmacy.ID

	patient := &model.User{Name: "Afi", Email: "afi@example.com", Phone: "+22890112233", Role: model.RolePatient}
	require.NoError(t, env.users.Create(ctx, patient))
	env.patient = model.Actor{UserID: patient.ID, Role: model.RolePatient}

	admin := &model.User{Name: "Koffi", Email: "koffi@example.com", Phone: "+22890445566", Role: model.RolePharmacyAdmin, PharmacyID: &pharmacy.ID}
	require.NoError(t, env.users.Create(ctx, admin))
	env.admin = model.Actor{UserID: admin.ID, Role: model.RolePharmacyAdmin, PharmacyID: &pharmacy.ID}

	courier := &model.User{Name: "Edem", Email: "edem@example.com", Phone: "+22890778899", Role: model.RoleCourier}
	require.NoError(t, env.users.Create(ctx, courier))
	env.courier = model.Actor{UserID: courier.ID, Role: model.RoleCourier}

	env.superAdmin = model.Actor{UserID: uuid.New(), Role: model.RoleSuperAdmin}

	return env
}

func (env *testEnv) newReservation(t *testing.T, status model.ReservationStatus) *model.Reservation {
	t.Helper()
	res := &model.Reservation{
		PatientID:    env.patient.UserID,
		PharmacyID:   env.pharmacyID,
		MedicationID: uuid.New(),
		Quantity:     2,
		Status:       status,
	}
	require.NoError(t, env.reservations.Create(context.Background(), res))
	return res
}

func (env *testEnv) newPrescription(t *testing.T, status model.PrescriptionStatus) *model.Prescription {
	t.Helper()
	pre := &model.Prescription{
		PatientID:  env.patient.UserID,
		PharmacyID: env.pharmacyID,
		ImageURL:   "https://cdn.example.com/rx/1.jpg",
		Status:     status,
	}
	require.NoError(t, env.prescriptions.Create(context.Background(), pre))
	return pre
}

func (env *testEnv) newDelivery(t *testing.T) *model.Delivery {
	t.Helper()
	del := &model.Delivery{
		ReservationID: uuid.New(),
		Status:        model.DeliveryStatusPending,
	}
	require.NoError(t, env.deliveries.Create(context.Background(), del))
	return del
}

func (env *testEnv) newPayment(t *testing.T, txID string) *model.Payment {
	t.Helper()
	res := env.newReservation(t, model.ReservationStatusPending)
	payment := &model.Payment{
		ReservationID:         res.ID,
		Amount:                4500,
		Method:                model.PaymentMethodTMoney,
		Status:                model.PaymentStatusPending,
		Phone:                 "+22890112233",
		ExternalTransactionID: txID,
	}
	require.NoError(t, env.payments.Create(context.Background(), payment))
	return payment
}

func TestReservationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// pending -> paid is system-only: neither patient nor admin may
	// drive it directly.
	res := env.newReservation(t, model.ReservationStatusPending)
	_, _, err := env.engine.TransitionReservation(ctx, env.admin, res.ID, model.ReservationStatusPaid)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrDenied))

	// The payment cascade moves it to paid, then the admin confirms.
	require.NoError(t, env.engine.ApplyCascade(ctx, workflow.CascadeRequest{
		Entity:   model.EntityReservation,
		EntityID: res.ID,
		From:     string(model.ReservationStatusPending),
		To:       string(model.ReservationStatusPaid),
	}))
	updated, effects, err := env.engine.TransitionReservation(ctx, env.admin, res.ID, model.ReservationStatusConfirmed)
	require.NoError(t, err)
	assert.Empty(t, effects)
	assert.Equal(t, model.ReservationStatusConfirmed, updated.Status)

	// Confirmed is terminal.
	_, _, err = env.engine.TransitionReservation(ctx, env.admin, res.ID, model.ReservationStatusCancelled)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidTransition))
}

func TestPatientCancelsOwnPendingReservation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.newReservation(t, model.ReservationStatusPending)
	updated, _, err := env.engine.TransitionReservation(ctx, env.patient, res.ID, model.ReservationStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusCancelled, updated.Status)

	// Another patient cannot cancel someone else's reservation.
	other := model.Actor{UserID: uuid.New(), Role: model.RolePatient}
	res2 := env.newReservation(t, model.ReservationStatusPending)
	_, _, err = env.engine.TransitionReservation(ctx, other, res2.ID, model.ReservationStatusCancelled)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrDenied))
}

func TestForeignPharmacyAdminDenied(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	otherPharmacy := uuid.New()
	foreignAdmin := model.Actor{UserID: uuid.New(), Role: model.RolePharmacyAdmin, PharmacyID: &otherPharmacy}

	pre := env.newPrescription(t, model.PrescriptionStatusPending)
	_, _, err := env.engine.TransitionPrescription(ctx, foreignAdmin, pre.ID, model.PrescriptionStatusReady)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrDenied))

	// The denial changed nothing.
	stored, getErr := env.prescriptions.Get(ctx, pre.ID)
	require.NoError(t, getErr)
	assert.Equal(t, model.PrescriptionStatusPending, stored.Status)

	// super_admin passes ownership checks everywhere.
	_, _, err = env.engine.TransitionPrescription(ctx, env.superAdmin, pre.ID, model.PrescriptionStatusReady)
	assert.NoError(t, err)
}

func TestPrescriptionReadyEmitsNotification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pre := env.newPrescription(t, model.PrescriptionStatusPending)
	updated, effects, err := env.engine.TransitionPrescription(ctx, env.admin, pre.ID, model.PrescriptionStatusReady)
	require.NoError(t, err)
	assert.Equal(t, model.PrescriptionStatusReady, updated.Status)

	require.Len(t, effects, 1)
	require.Equal(t, workflow.SideEffectNotify, effects[0].Type)
	require.NotNil(t, effects[0].Notify)
	assert.Equal(t, "+22890112233", effects[0].Notify.Phone)
	assert.Contains(t, effects[0].Notify.Message, "Pharmacie du Grand Marché")

	// Marking ready twice is an invalid transition, so the second
	// attempt emits nothing.
	_, effects, err = env.engine.TransitionPrescription(ctx, env.admin, pre.ID, model.PrescriptionStatusReady)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidTransition))
	assert.Empty(t, effects)

	// ready -> picked_up closes it out.
	updated, effects, err = env.engine.TransitionPrescription(ctx, env.admin, pre.ID, model.PrescriptionStatusPickedUp)
	require.NoError(t, err)
	assert.Equal(t, model.PrescriptionStatusPickedUp, updated.Status)
	assert.Empty(t, effects)
}

func TestPatientMayNotDriveAdminTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pre := env.newPrescription(t, model.PrescriptionStatusPending)
	_, _, err := env.engine.TransitionPrescription(ctx, env.patient, pre.ID, model.PrescriptionStatusReady)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrDenied))

	apt := &model.Appointment{
		PatientID:  env.patient.UserID,
		PharmacyID: env.pharmacyID,
		Status:     model.AppointmentStatusPending,
	}
	require.NoError(t, env.appointments.Create(ctx, apt))
	_, _, err = env.engine.TransitionAppointment(ctx, env.patient, apt.ID, model.AppointmentStatusConfirmed)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrDenied))

	// Cancelling their own pending appointment is allowed.
	updated, _, err := env.engine.TransitionAppointment(ctx, env.patient, apt.ID, model.AppointmentStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, updated.Status)
}

func TestPaymentWebhookApprovalCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	payment := env.newPayment(t, "tx-approve-1")

	settled, effects, err := env.engine.HandlePaymentWebhook(ctx, "tx-approve-1", model.PaymentStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusApproved, settled.Status)

	require.Len(t, effects, 2)
	require.Equal(t, workflow.SideEffectCascade, effects[0].Type)
	require.NotNil(t, effects[0].Cascade)
	assert.Equal(t, model.EntityReservation, effects[0].Cascade.Entity)
	assert.Equal(t, payment.ReservationID, effects[0].Cascade.EntityID)
	assert.Equal(t, string(model.ReservationStatusPaid), effects[0].Cascade.To)

	require.Equal(t, workflow.SideEffectNotify, effects[1].Type)
	assert.Equal(t, payment.Phone, effects[1].Notify.Phone)
	assert.Contains(t, effects[1].Notify.Message, "4500 FCFA")

	// The worker applies the cascade; the reservation lands on paid.
	require.NoError(t, env.engine.ApplyCascade(ctx, *effects[0].Cascade))
	res, err := env.reservations.Get(ctx, payment.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusPaid, res.Status)

	// Replaying a stale cascade is a Conflict, not a double apply.
	err = env.engine.ApplyCascade(ctx, *effects[0].Cascade)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
}

func TestPaymentWebhookIdempotence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.newPayment(t, "tx-dup-1")

	_, effects, err := env.engine.HandlePaymentWebhook(ctx, "tx-dup-1", model.PaymentStatusApproved)
	require.NoError(t, err)
	require.Len(t, effects, 2)

	// Same outcome re-delivered: no-op, no effects.
	settled, effects, err := env.engine.HandlePaymentWebhook(ctx, "tx-dup-1", model.PaymentStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusApproved, settled.Status)
	assert.Empty(t, effects)

	// Conflicting outcome after settlement is rejected.
	_, _, err = env.engine.HandlePaymentWebhook(ctx, "tx-dup-1", model.PaymentStatusDeclined)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
}

func TestPaymentWebhookDecline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	payment := env.newPayment(t, "tx-decline-1")

	settled, effects, err := env.engine.HandlePaymentWebhook(ctx, "tx-decline-1", model.PaymentStatusDeclined)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusDeclined, settled.Status)
	assert.Empty(t, effects)

	// The reservation stays pending: declines never cascade.
	res, err := env.reservations.Get(ctx, payment.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusPending, res.Status)
}

func TestUnknownTransactionIsNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.engine.HandlePaymentWebhook(context.Background(), "tx-missing", model.PaymentStatusApproved)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestConcurrentCourierAccept(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	del := env.newDelivery(t)

	const couriers = 8
	var wg sync.WaitGroup
	results := make([]error, couriers)
	winners := make([]uuid.UUID, couriers)

	for i := 0; i < couriers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := model.Actor{UserID: uuid.New(), Role: model.RoleCourier}
			accepted, err := env.engine.AcceptDelivery(ctx, actor, del.ID)
			results[i] = err
			if err == nil {
				winners[i] = *accepted.CourierID
			}
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	var winner uuid.UUID
	for i, err := range results {
		switch {
		case err == nil:
			wins++
			winner = winners[i]
		case apperrors.IsCode(err, apperrors.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins, "exactly one courier must win the accept")
	assert.Equal(t, couriers-1, conflicts)

	stored, err := env.deliveries.Get(ctx, del.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CourierID)
	assert.Equal(t, winner, *stored.CourierID)
	assert.Equal(t, model.DeliveryStatusAccepted, stored.Status)
}

func TestDeliveryRunBelongsToAssignedCourier(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	del := env.newDelivery(t)
	accepted, err := env.engine.AcceptDelivery(ctx, env.courier, del.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryStatusAccepted, accepted.Status)

	// A different courier cannot advance someone else's run.
	stranger := model.Actor{UserID: uuid.New(), Role: model.RoleCourier}
	_, _, err = env.engine.TransitionDelivery(ctx, stranger, del.ID, model.DeliveryStatusPickedUp)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrDenied))

	// The assigned courier walks it to delivered.
	updated, _, err := env.engine.TransitionDelivery(ctx, env.courier, del.ID, model.DeliveryStatusPickedUp)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryStatusPickedUp, updated.Status)

	updated, _, err = env.engine.TransitionDelivery(ctx, env.courier, del.ID, model.DeliveryStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryStatusDelivered, updated.Status)

	// Delivered is terminal.
	_, _, err = env.engine.TransitionDelivery(ctx, env.courier, del.ID, model.DeliveryStatusAccepted)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidTransition))
}

func TestAcceptRequiresCourierRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	del := env.newDelivery(t)
	_, err := env.engine.AcceptDelivery(ctx, env.patient, del.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrDenied))

	_, err = env.engine.AcceptDelivery(ctx, env.admin, del.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrDenied))
}

func TestUnknownTargetStatusIsInvalidTransition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.newReservation(t, model.ReservationStatusPending)
	_, _, err := env.engine.TransitionReservation(ctx, env.superAdmin, res.ID, model.ReservationStatus("shipped"))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidTransition))

	_, _, err = env.engine.TransitionReservation(ctx, env.superAdmin, uuid.New(), model.ReservationStatusCancelled)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}
