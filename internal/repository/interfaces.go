package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medigo/pharmacy-api/internal/model"
)

// All repository interfaces in one file
type (
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		UpdateRole(ctx context.Context, id uuid.UUID, role model.Role, pharmacyID *uuid.UUID) error
		List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error)
	}

	PharmacyRepository interface {
		Create(ctx context.Context, pharmacy *model.Pharmacy) error
		Get(ctx context.Context, id uuid.UUID) (*model.Pharmacy, error)
		List(ctx context.Context) ([]*model.Pharmacy, error)
		ListOnDuty(ctx context.Context) ([]*model.Pharmacy, error)
		SetDuty(ctx context.Context, id uuid.UUID, onDuty bool) error
		SetVerified(ctx context.Context, id uuid.UUID, verified bool) error
	}

	MedicationRepository interface {
		Create(ctx context.Context, medication *model.Medication) error
		Get(ctx context.Context, id uuid.UUID) (*model.Medication, error)
		List(ctx context.Context, searchTerm string) ([]*model.Medication, error)
	}

	StockRepository interface {
		Upsert(ctx context.Context, stock *model.Stock) error
		Get(ctx context.Context, pharmacyID, medicationID uuid.UUID) (*model.Stock, error)
		ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID) ([]*model.Stock, error)
		// FindAvailability lists on-duty pharmacies holding the medication
		FindAvailability(ctx context.Context, medicationID uuid.UUID) ([]*model.StockAvailability, error)
		// Decrement applies quantity = quantity - n only while quantity >= n;
		// returns ErrInsufficientStock when the predicate matches no row.
		Decrement(ctx context.Context, pharmacyID, medicationID uuid.UUID, quantity int) error
	}

	ReservationRepository interface {
		Create(ctx context.Context, reservation *model.Reservation) error
		Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Reservation, error)
		ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID, status model.ReservationStatus) ([]*model.Reservation, error)
		// UpdateStatus is a conditional update keyed on the expected
		// current status; ErrStaleStatus when zero rows match.
		UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.ReservationStatus) error
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error)
		ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID) ([]*model.Appointment, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus) error
	}

	PrescriptionRepository interface {
		Create(ctx context.Context, prescription *model.Prescription) error
		Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Prescription, error)
		ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID, status model.PrescriptionStatus) ([]*model.Prescription, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.PrescriptionStatus) error
	}

	PaymentRepository interface {
		Create(ctx context.Context, payment *model.Payment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Payment, error)
		GetByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error)
		// UpdateStatusByTransactionID only applies while the payment is
		// still pending, which makes webhook re-delivery a no-op.
		UpdateStatusByTransactionID(ctx context.Context, transactionID string, from, to model.PaymentStatus) error
	}

	DeliveryRepository interface {
		Create(ctx context.Context, delivery *model.Delivery) error
		Get(ctx context.Context, id uuid.UUID) (*model.Delivery, error)
		ListPending(ctx context.Context) ([]*model.Delivery, error)
		ListByCourier(ctx context.Context, courierID uuid.UUID) ([]*model.Delivery, error)
		// Accept sets courier_id and status=accepted in one statement,
		// predicated on status=pending AND courier_id IS NULL.
		Accept(ctx context.Context, id, courierID uuid.UUID) error
		// UpdateStatus is additionally predicated on the assigned courier
		UpdateStatus(ctx context.Context, id, courierID uuid.UUID, from, to model.DeliveryStatus) error
		UpdatePosition(ctx context.Context, id, courierID uuid.UUID, lat, lng float64) error
	}

	MessageRepository interface {
		Create(ctx context.Context, message *model.Message) error
		ListConversation(ctx context.Context, pharmacyID, patientID uuid.UUID, limit int) ([]*model.Message, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, retryAt *time.Time) error
		CountPending(ctx context.Context) (int64, error)
	}
)
