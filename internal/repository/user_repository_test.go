package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusnotes/campus-notes-api/internal/models"
)

func newUserMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var userRowColumns = []string{"id", "email", "password_hash", "full_name", "avatar_url", "college_email", "college_domain", "user_role", "is_verified", "is_active", "last_login_at", "created_at", "updated_at"}

func TestUserRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows(userRowColumns).
		AddRow("u1", "ada@mit.edu", "hash", "Ada", nil, nil, "mit.edu", "student", true, true, nil, time.Now(), time.Now())
	mock.ExpectQuery(`FROM users WHERE email = \$1 LIMIT 1`).
		WithArgs("ada@mit.edu").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "ada@mit.edu")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByEmailNotFound(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`FROM users WHERE email = \$1 LIMIT 1`).
		WithArgs("missing@mit.edu").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "missing@mit.edu")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryExistsByEmail(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT 1 FROM users WHERE email = \$1 LIMIT 1`).
		WithArgs("ada@mit.edu").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))

	exists, err := repo.ExistsByEmail(context.Background(), "ada@mit.edu")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Email: "ada@mit.edu", PasswordHash: "hash", FullName: "Ada", Role: models.RoleStudent, Active: true}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
