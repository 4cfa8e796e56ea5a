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

func (r *medicationRepository) Create(ctx context.Context, medication *model.Medication) error {
	query := `
		INSERT INTO medications (id, name, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	medication.ID = uuid.New()
	medication.CreatedAt = time.Now()
	medication.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		medication.ID,
		medication.Name,
		medication.Category,
		medication.CreatedAt,
		medication.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create medication: %w", err)
	}
	return nil
}

func (r *medicationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Medication, error) {
	query := `
		SELECT id, name, category, created_at, updated_at
		FROM medications
		WHERE id = $1
	`
	var medication model.Medication
	err := r.db.GetContext(ctx, &medication, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get medication: %w", err)
	}
	return &medication, nil
}

func (r *medicationRepository) List(ctx context.Context, searchTerm string) ([]*model.Medication, error) {
	query := `
		SELECT id, name, category, created_at, updated_at
		FROM medications
	`
	args := []interface{}{}

	if searchTerm != "" {
		query += " WHERE name ILIKE $1 OR category ILIKE $1"
		args = append(args, "%"+searchTerm+"%")
	}

	query += " ORDER BY name ASC"

	var medications []*model.Medication
	err := r.db.SelectContext(ctx, &medications, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	return medications, nil
}
