package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-appointment-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

var userRowColumns = []string{"email", "username", "role", "department", "designation", "gender", "image_ref"}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows(userRowColumns).
		AddRow("t@x.edu", "Dr. Smith", "teacher", "Data Science", "HOD", "female", nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT email, username, role, department, designation, gender, image_ref FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("t@x.edu").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), " t@x.edu ")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, user.Role)
	assert.Equal(t, "data-science", user.DepartmentSlug())
	assert.True(t, user.IsHOD())
	assert.Nil(t, user.ImageRef)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByEmailNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users WHERE").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "ghost@x.edu")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListByRole(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows(userRowColumns).
		AddRow("a@x.edu", "Ann", "teacher", "Data Science", "Professor", nil, nil).
		AddRow("b@x.edu", "Ben", "teacher", nil, nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE role = $1 ORDER BY username ASC, email ASC")).
		WithArgs("teacher").
		WillReturnRows(rows)

	users, err := repo.ListByRole(context.Background(), models.RoleTeacher)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "", users[1].DepartmentSlug())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListWithSearch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE (LOWER(email) LIKE $1 ESCAPE '\' OR LOWER(username) LIKE $1 ESCAPE '\') ORDER BY`)).
		WithArgs(`%j\_smith%`).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	users, err := repo.List(context.Background(), models.UserFilter{Search: "J_Smith"})
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.NotNil(t, users)
	assert.NoError(t, mock.ExpectationsWereMet())
}
