package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/repository"
)

func (r *reservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	query := `
		INSERT INTO reservations (
			id, patient_id, pharmacy_id, medication_id, quantity, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	reservation.ID = uuid.New()
	reservation.CreatedAt = time.Now()
	reservation.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		reservation.ID,
		reservation.PatientID,
		reservation.PharmacyID,
		reservation.MedicationID,
		reservation.Quantity,
		reservation.Status,
		reservation.CreatedAt,
		reservation.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

func (r *reservationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	query := `
		SELECT id, patient_id, pharmacy_id, medication_id, quantity, status,
			   created_at, updated_at
		FROM reservations
		WHERE id = $1
	`
	var reservation model.Reservation
	err := r.db.GetContext(ctx, &reservation, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &reservation, nil
}

func (r *reservationRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Reservation, error) {
	query := `
		SELECT id, patient_id, pharmacy_id, medication_id, quantity, status,
			   created_at, updated_at
		FROM reservations
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`
	var reservations []*model.Reservation
	err := r.db.SelectContext(ctx, &reservations, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

func (r *reservationRepository) ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID, status model.ReservationStatus) ([]*model.Reservation, error) {
	query := `
		SELECT id, patient_id, pharmacy_id, medication_id, quantity, status,
			   created_at, updated_at
		FROM reservations
		WHERE pharmacy_id = $1
	`
	args := []interface{}{pharmacyID}

	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}

	query += " ORDER BY created_at DESC"

	var reservations []*model.Reservation
	err := r.db.SelectContext(ctx, &reservations, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

func (r *reservationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.ReservationStatus) error {
	query := `
		UPDATE reservations
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, to, time.Now(), id, from)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrStaleStatus
	}
	return nil
}
