package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-appointment-api/internal/models"
)

// DepartmentRepository reads the static department catalog.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs the repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// List returns every department ordered by name.
func (r *DepartmentRepository) List(ctx context.Context) ([]models.Department, error) {
	const query = `SELECT slug, name, display_color, image_ref FROM departments ORDER BY name ASC`
	departments := []models.Department{}
	if err := r.db.SelectContext(ctx, &departments, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// Seed inserts departments that are not present yet.
func (r *DepartmentRepository) Seed(ctx context.Context, departments []models.Department) error {
	if len(departments) == 0 {
		return nil
	}
	const query = `INSERT INTO departments (slug, name, display_color, image_ref)
VALUES (:slug, :name, :display_color, :image_ref) ON CONFLICT (slug) DO NOTHING`
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed departments: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	for _, d := range departments {
		if _, err := tx.NamedExecContext(ctx, query, d); err != nil {
			return fmt.Errorf("seed department %s: %w", d.Slug, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed departments: %w", err)
	}
	return nil
}
