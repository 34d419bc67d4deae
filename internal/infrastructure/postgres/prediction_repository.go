package postgres

import (
	"context"
	"embed"
	"fmt"

	"github.com/google/uuid"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/port"
	pgpkg "github.com/enesgulerml/titanic-mlops-k8s/pkg/postgres"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the audit schema up to date.
func Migrate(dsn string) error {
	if err := pgpkg.RunMigrations(dsn, migrations, "migrations"); err != nil {
		return fmt.Errorf("failed to migrate audit schema: %w", err)
	}
	return nil
}

// PredictionRepository implements port.PredictionRepository using PostgreSQL.
type PredictionRepository struct {
	db pgpkg.Querier
}

var _ port.PredictionRepository = (*PredictionRepository)(nil)

// NewPredictionRepository creates a new PostgreSQL-backed audit repository.
func NewPredictionRepository(db pgpkg.Querier) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// Save appends one audit record.
func (r *PredictionRepository) Save(ctx context.Context, record port.AuditRecord) error {
	id, err := uuid.Parse(record.ID)
	if err != nil {
		return fmt.Errorf("invalid audit record id %q: %w", record.ID, err)
	}

	query := `
		INSERT INTO prediction_audit (
			id, passenger_id, fingerprint, prediction,
			source, model_version, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.Exec(ctx, query,
		id,
		record.PassengerID,
		record.Fingerprint,
		record.Prediction,
		record.Source,
		record.ModelVersion,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save prediction audit record: %w", err)
	}
	return nil
}
