package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medigo/pharmacy-api/internal/model"
)

func (r *messageRepository) Create(ctx context.Context, message *model.Message) error {
	query := `
		INSERT INTO messages (
			id, pharmacy_id, sender_id, recipient_id, content,
			is_from_pharmacy, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	message.ID = uuid.New()
	message.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		message.ID,
		message.PharmacyID,
		message.SenderID,
		message.RecipientID,
		message.Content,
		message.IsFromPharmacy,
		message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *messageRepository) ListConversation(ctx context.Context, pharmacyID, patientID uuid.UUID, limit int) ([]*model.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, pharmacy_id, sender_id, recipient_id, content,
			   is_from_pharmacy, created_at
		FROM messages
		WHERE pharmacy_id = $1
		  AND (sender_id = $2 OR recipient_id = $2)
		ORDER BY created_at ASC
		LIMIT $3
	`
	var messages []*model.Message
	err := r.db.SelectContext(ctx, &messages, query, pharmacyID, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}
	return messages, nil
}
