package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-appointment-api/internal/models"
)

type departmentRepository interface {
	List(ctx context.Context) ([]models.Department, error)
	Seed(ctx context.Context, departments []models.Department) error
}

// DepartmentCatalog is the immutable department reference data loaded at start-up.
type DepartmentCatalog struct {
	ordered []models.Department
	bySlug  map[string]models.Department
}

// NewDepartmentCatalog builds a catalog from an in-memory list.
func NewDepartmentCatalog(departments []models.Department) *DepartmentCatalog {
	c := &DepartmentCatalog{
		ordered: make([]models.Department, len(departments)),
		bySlug:  make(map[string]models.Department, len(departments)),
	}
	copy(c.ordered, departments)
	for _, d := range departments {
		c.bySlug[strings.ToLower(d.Slug)] = d
	}
	return c
}

// LoadDepartmentCatalog seeds the default departments when the table is empty and
// reads the catalog once.
func LoadDepartmentCatalog(ctx context.Context, repo departmentRepository, logger *zap.Logger) (*DepartmentCatalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	departments, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load departments: %w", err)
	}
	if len(departments) == 0 {
		if err := repo.Seed(ctx, models.DefaultDepartments); err != nil {
			return nil, fmt.Errorf("seed departments: %w", err)
		}
		logger.Info("seeded default departments", zap.Int("count", len(models.DefaultDepartments)))
		if departments, err = repo.List(ctx); err != nil {
			return nil, fmt.Errorf("reload departments: %w", err)
		}
	}
	return NewDepartmentCatalog(departments), nil
}

// List returns a copy of every department.
func (c *DepartmentCatalog) List() []models.Department {
	out := make([]models.Department, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Get looks a department up by slug.
func (c *DepartmentCatalog) Get(slug string) (models.Department, bool) {
	d, ok := c.bySlug[strings.ToLower(strings.TrimSpace(slug))]
	return d, ok
}
