package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/medigo/pharmacy-api/internal/repository"
)

type userRepository struct {
	db *sqlx.DB
}

type pharmacyRepository struct {
	db *sqlx.DB
}

type medicationRepository struct {
	db *sqlx.DB
}

type stockRepository struct {
	db *sqlx.DB
}

type reservationRepository struct {
	db *sqlx.DB
}

type appointmentRepository struct {
	db *sqlx.DB
}

type prescriptionRepository struct {
	db *sqlx.DB
}

type paymentRepository struct {
	db *sqlx.DB
}

type deliveryRepository struct {
	db *sqlx.DB
}

type messageRepository struct {
	db *sqlx.DB
}

type outboxRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func NewPharmacyRepository(db *sqlx.DB) repository.PharmacyRepository {
	return &pharmacyRepository{db: db}
}

func NewMedicationRepository(db *sqlx.DB) repository.MedicationRepository {
	return &medicationRepository{db: db}
}

func NewStockRepository(db *sqlx.DB) repository.StockRepository {
	return &stockRepository{db: db}
}

func NewReservationRepository(db *sqlx.DB) repository.ReservationRepository {
	return &reservationRepository{db: db}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func NewPrescriptionRepository(db *sqlx.DB) repository.PrescriptionRepository {
	return &prescriptionRepository{db: db}
}

func NewPaymentRepository(db *sqlx.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func NewDeliveryRepository(db *sqlx.DB) repository.DeliveryRepository {
	return &deliveryRepository{db: db}
}

func NewMessageRepository(db *sqlx.DB) repository.MessageRepository {
	return &messageRepository{db: db}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{db: db}
}
