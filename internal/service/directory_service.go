package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-appointment-api/internal/models"
	appErrors "github.com/noah-isme/sma-appointment-api/pkg/errors"
)

type directoryRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
}

// DirectoryService exposes read-only access to user records.
type DirectoryService struct {
	repo   directoryRepository
	logger *zap.Logger
}

// NewDirectoryService constructs a DirectoryService.
func NewDirectoryService(repo directoryRepository, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{repo: repo, logger: logger}
}

// List returns every user, optionally narrowed by a free-text search.
func (s *DirectoryService) List(ctx context.Context, search string) ([]models.User, error) {
	users, err := s.repo.List(ctx, models.UserFilter{Search: strings.TrimSpace(search)})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list users")
	}
	return users, nil
}

// ListByRole returns users holding role.
func (s *DirectoryService) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	r := models.UserRole(strings.ToLower(strings.TrimSpace(role)))
	if !r.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "role must be one of student, teacher, admin")
	}
	users, err := s.repo.List(ctx, models.UserFilter{Role: &r})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list users by role")
	}
	return users, nil
}

// Get returns the user registered under email.
func (s *DirectoryService) Get(ctx context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "email is required")
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}
	return user, nil
}

// Resolve returns the user under email and checks it holds role. Unknown emails yield
// NotFound and a role mismatch yields a validation error.
func (s *DirectoryService) Resolve(ctx context.Context, email string, role models.UserRole) (*models.User, error) {
	user, err := s.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.Role != role {
		return nil, appErrors.Clone(appErrors.ErrValidation, email+" is not a "+string(role))
	}
	return user, nil
}

// TeachersInDepartment returns the teachers whose department slug equals slug.
// An empty or unknown slug yields an empty slice.
func (s *DirectoryService) TeachersInDepartment(ctx context.Context, slug string) ([]models.User, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return []models.User{}, nil
	}
	teachers, err := s.ListByRole(ctx, string(models.RoleTeacher))
	if err != nil {
		return nil, err
	}
	matched := make([]models.User, 0)
	for _, t := range teachers {
		if t.DepartmentSlug() == slug {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

// DepartmentHeads lists HOD teachers ordered by department then username.
func (s *DirectoryService) DepartmentHeads(ctx context.Context) ([]models.User, error) {
	teachers, err := s.ListByRole(ctx, string(models.RoleTeacher))
	if err != nil {
		return nil, err
	}
	heads := make([]models.User, 0)
	for _, t := range teachers {
		if t.IsHOD() {
			heads = append(heads, t)
		}
	}
	sort.SliceStable(heads, func(i, j int) bool {
		di, dj := heads[i].DepartmentSlug(), heads[j].DepartmentSlug()
		if di != dj {
			return di < dj
		}
		return heads[i].Username < heads[j].Username
	})
	return heads, nil
}
