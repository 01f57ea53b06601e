package postgres

import (
	"context"
	"errors"
	"fmt"

	"trust-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CaregiverRepo implements ports.CaregiverRepository.
type CaregiverRepo struct {
	pool Pool
}

// NewCaregiverRepo creates a new CaregiverRepo.
func NewCaregiverRepo(pool Pool) *CaregiverRepo {
	return &CaregiverRepo{pool: pool}
}

// Create inserts a new caregiver account.
func (r *CaregiverRepo) Create(ctx context.Context, c *domain.Caregiver) error {
	query := `INSERT INTO caregivers (id, username, password_hash, name, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Username, c.PasswordHash, c.Name, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert caregiver: %w", err)
	}
	return nil
}

// GetByID fetches a caregiver by UUID.
func (r *CaregiverRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Caregiver, error) {
	query := `SELECT id, username, password_hash, name, created_at
		FROM caregivers WHERE id = $1`

	return scanCaregiver(r.pool.QueryRow(ctx, query, id))
}

// GetByUsername fetches a caregiver by username.
func (r *CaregiverRepo) GetByUsername(ctx context.Context, username string) (*domain.Caregiver, error) {
	query := `SELECT id, username, password_hash, name, created_at
		FROM caregivers WHERE username = $1`

	return scanCaregiver(r.pool.QueryRow(ctx, query, username))
}

func scanCaregiver(row pgx.Row) (*domain.Caregiver, error) {
	c := &domain.Caregiver{}
	err := row.Scan(&c.ID, &c.Username, &c.PasswordHash, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan caregiver: %w", err)
	}
	return c, nil
}
