package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/delfino-cr/reglamento-engine/pkg/apperrors"
	"github.com/delfino-cr/reglamento-engine/pkg/models"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func expectationsMet(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUserRepository_InsertAssignsID(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository()

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(
			pgxmock.AnyArg(), "editor@delfino.cr", "Editor", "hash",
			models.RoleEditor, true, pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	user := &models.User{
		Email:        "editor@delfino.cr",
		FullName:     "Editor",
		PasswordHash: "hash",
		Role:         models.RoleEditor,
		IsActive:     true,
	}
	if err := repo.Insert(context.Background(), mock, user); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if user.ID == uuid.Nil {
		t.Error("expected a generated ID")
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	expectationsMet(t, mock)
}

func TestUserRepository_InsertDuplicateEmail(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository()

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := repo.Insert(context.Background(), mock, &models.User{
		Email: "dupe@delfino.cr",
		Role:  models.RoleEditor,
	})
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	expectationsMet(t, mock)
}

func TestUserRepository_GetByEmailNotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email`).
		WithArgs("nadie@delfino.cr").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "email", "full_name", "password_hash", "role", "is_active", "created_at", "updated_at",
		}))

	_, err := repo.GetByEmail(context.Background(), mock, "nadie@delfino.cr")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	expectationsMet(t, mock)
}

func TestUserRepository_GetByEmail(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository()

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM users WHERE email`).
		WithArgs("editor@delfino.cr").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "email", "full_name", "password_hash", "role", "is_active", "created_at", "updated_at",
		}).AddRow(id, "editor@delfino.cr", "Editor", "hash", models.RoleEditor, true, now, now))

	user, err := repo.GetByEmail(context.Background(), mock, "editor@delfino.cr")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if user.ID != id {
		t.Errorf("expected id %v, got %v", id, user.ID)
	}
	if user.Role != models.RoleEditor {
		t.Errorf("expected EDITOR, got %q", user.Role)
	}

	expectationsMet(t, mock)
}

func TestUserRepository_UpdateMissingRow(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository()

	mock.ExpectExec(`UPDATE users`).
		WithArgs("Editor", models.RoleEditor, true, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), mock, &models.User{
		ID:       uuid.New(),
		FullName: "Editor",
		Role:     models.RoleEditor,
		IsActive: true,
	})
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	expectationsMet(t, mock)
}
