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

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	query := `
		INSERT INTO payments (
			id, reservation_id, amount, payment_method, status, phone,
			external_transaction_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	payment.ID = uuid.New()
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.ReservationID,
		payment.Amount,
		payment.Method,
		payment.Status,
		payment.Phone,
		payment.ExternalTransactionID,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	query := `
		SELECT id, reservation_id, amount, payment_method, status, phone,
			   external_transaction_id, created_at, updated_at
		FROM payments
		WHERE id = $1
	`
	var payment model.Payment
	err := r.db.GetContext(ctx, &payment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error) {
	query := `
		SELECT id, reservation_id, amount, payment_method, status, phone,
			   external_transaction_id, created_at, updated_at
		FROM payments
		WHERE external_transaction_id = $1
	`
	var payment model.Payment
	err := r.db.GetContext(ctx, &payment, query, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment by transaction: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) UpdateStatusByTransactionID(ctx context.Context, transactionID string, from, to model.PaymentStatus) error {
	query := `
		UPDATE payments
		SET status = $1, updated_at = $2
		WHERE external_transaction_id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, to, time.Now(), transactionID, from)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
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
