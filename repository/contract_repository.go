package repository

import (
	"context"
	"errors"
	"time"

	"helios-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

const contractColumns = `id, user_id, status, file_name, sector, page_count,
	provider, model_used, analysis, attempts, risk_score, renewal_date,
	created_at, updated_at`

// ContractRepository handles database operations for contracts
type ContractRepository struct {
	db *pgxpool.Pool
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *pgxpool.Pool) *ContractRepository {
	return &ContractRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (*models.Contract, error) {
	c := &models.Contract{}
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Status,
		&c.FileName,
		&c.Sector,
		&c.PageCount,
		&c.Provider,
		&c.ModelUsed,
		&c.Analysis,
		&c.Attempts,
		&c.RiskScore,
		&c.RenewalDate,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if c.Attempts == nil {
		c.Attempts = make(models.AnalysisAttempts, 0)
	}
	return c, nil
}

// Upsert inserts a contract or replaces the analysis of an existing one with
// the same ID.
func (r *ContractRepository) Upsert(ctx context.Context, c *models.Contract) error {
	if c.Status == "" {
		c.Status = models.ContractStatusAnalyzed
	}
	query := `
		INSERT INTO contracts (
			id, user_id, status, file_name, sector, page_count,
			provider, model_used, analysis, attempts, risk_score, renewal_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			file_name = EXCLUDED.file_name,
			sector = EXCLUDED.sector,
			page_count = EXCLUDED.page_count,
			provider = EXCLUDED.provider,
			model_used = EXCLUDED.model_used,
			analysis = EXCLUDED.analysis,
			attempts = EXCLUDED.attempts,
			risk_score = EXCLUDED.risk_score,
			renewal_date = EXCLUDED.renewal_date,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	return r.db.QueryRow(
		ctx, query,
		c.ID,
		c.UserID,
		c.Status,
		c.FileName,
		c.Sector,
		c.PageCount,
		c.Provider,
		c.ModelUsed,
		c.Analysis,
		c.Attempts,
		c.RiskScore,
		c.RenewalDate,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

// GetByID retrieves a contract by ID
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`

	c, err := scanContract(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// ListByUserID retrieves all contracts for a user, newest first
func (r *ContractRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Contract, error) {
	query := `SELECT ` + contractColumns + `
		FROM contracts
		WHERE user_id = $1
		ORDER BY created_at DESC`

	return r.list(ctx, query, userID)
}

// ListRenewingBetween retrieves active contracts whose renewal date falls in
// [from, to], soonest first
func (r *ContractRepository) ListRenewingBetween(ctx context.Context, from, to time.Time) ([]*models.Contract, error) {
	query := `SELECT ` + contractColumns + `
		FROM contracts
		WHERE renewal_date BETWEEN $1 AND $2
			AND status <> $3
		ORDER BY renewal_date ASC`

	return r.list(ctx, query, from, to, models.ContractStatusArchived)
}

func (r *ContractRepository) list(ctx context.Context, query string, args ...any) ([]*models.Contract, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []*models.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}

	return contracts, rows.Err()
}

// UpdateStatus changes the review status of a contract
func (r *ContractRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ContractStatus) error {
	query := `
		UPDATE contracts SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes a contract and, through the foreign key, its files
func (r *ContractRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	return err
}
