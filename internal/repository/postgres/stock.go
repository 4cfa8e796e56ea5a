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

func (r *stockRepository) Upsert(ctx context.Context, stock *model.Stock) error {
	query := `
		INSERT INTO stocks (
			id, pharmacy_id, medication_id, quantity, price, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (pharmacy_id, medication_id)
		DO UPDATE SET quantity = $4, price = $5, updated_at = $7
	`
	if stock.ID == uuid.Nil {
		stock.ID = uuid.New()
		stock.CreatedAt = time.Now()
	}
	stock.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		stock.ID,
		stock.PharmacyID,
		stock.MedicationID,
		stock.Quantity,
		stock.Price,
		stock.CreatedAt,
		stock.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert stock: %w", err)
	}
	return nil
}

func (r *stockRepository) Get(ctx context.Context, pharmacyID, medicationID uuid.UUID) (*model.Stock, error) {
	query := `
		SELECT id, pharmacy_id, medication_id, quantity, price, created_at, updated_at
		FROM stocks
		WHERE pharmacy_id = $1 AND medication_id = $2
	`
	var stock model.Stock
	err := r.db.GetContext(ctx, &stock, query, pharmacyID, medicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get stock: %w", err)
	}
	return &stock, nil
}

func (r *stockRepository) ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID) ([]*model.Stock, error) {
	query := `
		SELECT id, pharmacy_id, medication_id, quantity, price, created_at, updated_at
		FROM stocks
		WHERE pharmacy_id = $1
		ORDER BY updated_at DESC
	`
	var stocks []*model.Stock
	err := r.db.SelectContext(ctx, &stocks, query, pharmacyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}
	return stocks, nil
}

func (r *stockRepository) FindAvailability(ctx context.Context, medicationID uuid.UUID) ([]*model.StockAvailability, error) {
	query := `
		SELECT p.id AS pharmacy_id, p.name AS pharmacy_name,
			   p.latitude, p.longitude, s.quantity, s.price
		FROM stocks s
		JOIN pharmacies p ON p.id = s.pharmacy_id
		WHERE s.medication_id = $1
		  AND s.quantity > 0
		  AND p.is_on_duty = true
		  AND p.is_verified = true
		ORDER BY p.name ASC
	`
	var rows []*model.StockAvailability
	err := r.db.SelectContext(ctx, &rows, query, medicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find availability: %w", err)
	}
	return rows, nil
}

func (r *stockRepository) Decrement(ctx context.Context, pharmacyID, medicationID uuid.UUID, quantity int) error {
	// Single conditional update keeps quantity >= 0 without a
	// read-then-write window.
	query := `
		UPDATE stocks
		SET quantity = quantity - $1, updated_at = $2
		WHERE pharmacy_id = $3 AND medication_id = $4 AND quantity >= $1
	`
	result, err := r.db.ExecContext(ctx, query, quantity, time.Now(), pharmacyID, medicationID)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrInsufficientStock
	}
	return nil
}
