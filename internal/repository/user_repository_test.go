package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinego/internal/model"
)

func newUserRepo(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepo(db), mock
}

var userColumns = []string{"id", "name", "email", "password_hash", "role", "metadata", "created_at"}

func TestUserRepo_Create_DuplicateEmail(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry"))

	_, err := repo.Create(context.Background(), "Ann", " Ann@Example.com ", "pw", model.RoleCustomer, 4)

	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserRepo_GetByEmail_DecodesMetadata(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE email=?")).
		WithArgs("ann@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(
			"u1", "Ann", "ann@example.com", "hash", model.RoleAdmin, []byte(`{"favorites":["m1"]}`), time.Now()))

	u, err := repo.GetByEmail(context.Background(), "ANN@example.com")

	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.Equal(t, []string{"m1"}, u.Metadata.Favorites)
}

func TestUserRepo_SetRole_UnknownEmail(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role=? WHERE email=?")).
		WithArgs(model.RoleAdmin, "x@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE email=?")).WillReturnRows(sqlmock.NewRows(userColumns))

	err := repo.SetRole(context.Background(), "x@example.com", model.RoleAdmin)

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepo_UpdateMetadata(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET metadata=? WHERE id=?")).
		WithArgs([]byte(`{"favorites":["m1","m2"]}`), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateMetadata(context.Background(), "u1", model.UserMetadata{Favorites: []string{"m1", "m2"}})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
