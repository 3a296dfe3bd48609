package users

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, name, avatar_url, preferred_role")).
		WithArgs("google:1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "avatar_url", "preferred_role", "created_at", "updated_at"}).
			AddRow("google:1", "asha@example.com", "Asha", "", "lawyer", now, now))

	user, err := repo.GetByID(context.Background(), "google:1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.PreferredRole != "lawyer" {
		t.Fatalf("expected lawyer, got %q", user.PreferredRole)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, name, avatar_url, preferred_role")).
		WithArgs("google:2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	if _, err := repo.GetByID(context.Background(), "google:2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoUpsertLeavesRoleAlone(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := &PGRepo{DB: db}

	mock.ExpectExec(`INSERT INTO users \(id, email, name, avatar_url, created_at, updated_at\)`).
		WithArgs("google:1", "asha@example.com", "Asha", "https://img").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Upsert(context.Background(), User{ID: "google:1", Email: "asha@example.com", Name: "Asha", AvatarURL: "https://img"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET preferred_role = $2")).
		WithArgs("google:9", "lawyer").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.SetPreferredRole(context.Background(), "google:9", "lawyer"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
