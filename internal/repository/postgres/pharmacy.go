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

func (r *pharmacyRepository) Create(ctx context.Context, pharmacy *model.Pharmacy) error {
	query := `
		INSERT INTO pharmacies (
			id, name, address, phone, latitude, longitude,
			is_on_duty, is_verified, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	pharmacy.ID = uuid.New()
	pharmacy.CreatedAt = time.Now()
	pharmacy.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		pharmacy.ID,
		pharmacy.Name,
		pharmacy.Address,
		pharmacy.Phone,
		pharmacy.Latitude,
		pharmacy.Longitude,
		pharmacy.IsOnDuty,
		pharmacy.IsVerified,
		pharmacy.CreatedAt,
		pharmacy.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create pharmacy: %w", err)
	}
	return nil
}

func (r *pharmacyRepository) Get(ctx context.Context, id uuid.UUID) (*model.Pharmacy, error) {
	query := `
		SELECT id, name, address, phone, latitude, longitude,
			   is_on_duty, is_verified, created_at, updated_at
		FROM pharmacies
		WHERE id = $1
	`
	var pharmacy model.Pharmacy
	err := r.db.GetContext(ctx, &pharmacy, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get pharmacy: %w", err)
	}
	return &pharmacy, nil
}

func (r *pharmacyRepository) List(ctx context.Context) ([]*model.Pharmacy, error) {
	query := `
		SELECT id, name, address, phone, latitude, longitude,
			   is_on_duty, is_verified, created_at, updated_at
		FROM pharmacies
		ORDER BY name ASC
	`
	var pharmacies []*model.Pharmacy
	err := r.db.SelectContext(ctx, &pharmacies, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pharmacies: %w", err)
	}
	return pharmacies, nil
}

func (r *pharmacyRepository) ListOnDuty(ctx context.Context) ([]*model.Pharmacy, error) {
	query := `
		SELECT id, name, address, phone, latitude, longitude,
			   is_on_duty, is_verified, created_at, updated_at
		FROM pharmacies
		WHERE is_on_duty = true AND is_verified = true
		ORDER BY name ASC
	`
	var pharmacies []*model.Pharmacy
	err := r.db.SelectContext(ctx, &pharmacies, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list on-duty pharmacies: %w", err)
	}
	return pharmacies, nil
}

func (r *pharmacyRepository) SetDuty(ctx context.Context, id uuid.UUID, onDuty bool) error {
	query := `
		UPDATE pharmacies
		SET is_on_duty = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, onDuty, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set pharmacy duty: %w", err)
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

func (r *pharmacyRepository) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	query := `
		UPDATE pharmacies
		SET is_verified = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, verified, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set pharmacy verified: %w", err)
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
