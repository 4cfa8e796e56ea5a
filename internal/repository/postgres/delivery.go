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

func (r *deliveryRepository) Create(ctx context.Context, delivery *model.Delivery) error {
	query := `
		INSERT INTO deliveries (
			id, reservation_id, courier_id, status, latitude, longitude,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	delivery.ID = uuid.New()
	delivery.CreatedAt = time.Now()
	delivery.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		delivery.ID,
		delivery.ReservationID,
		delivery.CourierID,
		delivery.Status,
		delivery.Latitude,
		delivery.Longitude,
		delivery.CreatedAt,
		delivery.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create delivery: %w", err)
	}
	return nil
}

func (r *deliveryRepository) Get(ctx context.Context, id uuid.UUID) (*model.Delivery, error) {
	query := `
		SELECT id, reservation_id, courier_id, status, latitude, longitude,
			   created_at, updated_at
		FROM deliveries
		WHERE id = $1
	`
	var delivery model.Delivery
	err := r.db.GetContext(ctx, &delivery, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get delivery: %w", err)
	}
	return &delivery, nil
}

func (r *deliveryRepository) ListPending(ctx context.Context) ([]*model.Delivery, error) {
	query := `
		SELECT id, reservation_id, courier_id, status, latitude, longitude,
			   created_at, updated_at
		FROM deliveries
		WHERE status = 'pending' AND courier_id IS NULL
		ORDER BY created_at ASC
	`
	var deliveries []*model.Delivery
	err := r.db.SelectContext(ctx, &deliveries, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending deliveries: %w", err)
	}
	return deliveries, nil
}

func (r *deliveryRepository) ListByCourier(ctx context.Context, courierID uuid.UUID) ([]*model.Delivery, error) {
	query := `
		SELECT id, reservation_id, courier_id, status, latitude, longitude,
			   created_at, updated_at
		FROM deliveries
		WHERE courier_id = $1
		ORDER BY created_at DESC
	`
	var deliveries []*model.Delivery
	err := r.db.SelectContext(ctx, &deliveries, query, courierID)
	if err != nil {
		return nil, fmt.Errorf("failed to list courier deliveries: %w", err)
	}
	return deliveries, nil
}

func (r *deliveryRepository) Accept(ctx context.Context, id, courierID uuid.UUID) error {
	// One statement closes the race between two couriers: the first
	// matching update wins, the loser sees zero rows.
	query := `
		UPDATE deliveries
		SET courier_id = $1, status = 'accepted', updated_at = $2
		WHERE id = $3 AND status = 'pending' AND courier_id IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, courierID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to accept delivery: %w", err)
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

func (r *deliveryRepository) UpdateStatus(ctx context.Context, id, courierID uuid.UUID, from, to model.DeliveryStatus) error {
	query := `
		UPDATE deliveries
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4 AND courier_id = $5
	`
	result, err := r.db.ExecContext(ctx, query, to, time.Now(), id, from, courierID)
	if err != nil {
		return fmt.Errorf("failed to update delivery status: %w", err)
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

func (r *deliveryRepository) UpdatePosition(ctx context.Context, id, courierID uuid.UUID, lat, lng float64) error {
	query := `
		UPDATE deliveries
		SET latitude = $1, longitude = $2, updated_at = $3
		WHERE id = $4 AND courier_id = $5
	`
	result, err := r.db.ExecContext(ctx, query, lat, lng, time.Now(), id, courierID)
	if err != nil {
		return fmt.Errorf("failed to update delivery position: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
