package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestNormalizePair(t *testing.T) {
	cases := []struct {
		a, b, lo, hi uint64
	}{
		{1, 2, 1, 2},
		{2, 1, 1, 2},
		{7, 7, 7, 7},
	}
	for _, tc := range cases {
		lo, hi := normalizePair(tc.a, tc.b)
		if lo != tc.lo || hi != tc.hi {
			t.Errorf("normalizePair(%d,%d) = (%d,%d), want (%d,%d)", tc.a, tc.b, lo, hi, tc.lo, tc.hi)
		}
	}
}

func convRow(id, routeID, lo, hi uint64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "route_id", "user_lo_id", "user_hi_id", "departure_city", "arrival_city", "created_at",
	}).AddRow(id, routeID, lo, hi, "Sofia", "Varna", time.Now())
}

func TestFindOrCreateTxExisting(t *testing.T) {
	db, mock := newMock(t)
	repo := NewConversationRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, route_id, user_lo_id, user_hi_id").
		WithArgs(uint64(3), uint64(1), uint64(2)).
		WillReturnRows(convRow(40, 3, 1, 2))
	mock.ExpectRollback()

	ctx := context.Background()
	tx, _ := repo.DB().BeginTx(ctx, nil)
	defer tx.Rollback()

	// Arguments arrive in reverse order on purpose; the pair must be
	// normalized before the lookup.
	cv, err := repo.FindOrCreateTx(ctx, tx, 3, 2, 1, "Sofia", "Varna")
	if err != nil {
		t.Fatalf("FindOrCreateTx: %v", err)
	}
	if cv.ID != 40 || cv.UserLoID != 1 || cv.UserHiID != 2 {
		t.Errorf("unexpected conversation: %+v", cv)
	}
}

func TestFindOrCreateTxInsert(t *testing.T) {
	db, mock := newMock(t)
	repo := NewConversationRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, route_id, user_lo_id, user_hi_id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO conversations").
		WithArgs(uint64(3), uint64(1), uint64(2), "Sofia", "Varna").
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectQuery("SELECT id, route_id, user_lo_id, user_hi_id").
		WillReturnRows(convRow(41, 3, 1, 2))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, _ := repo.DB().BeginTx(ctx, nil)

	cv, err := repo.FindOrCreateTx(ctx, tx, 3, 1, 2, "Sofia", "Varna")
	if err != nil {
		t.Fatalf("FindOrCreateTx: %v", err)
	}
	if cv.ID != 41 {
		t.Errorf("ID = %d, want 41", cv.ID)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestFindOrCreateTxLostRace(t *testing.T) {
	db, mock := newMock(t)
	repo := NewConversationRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, route_id, user_lo_id, user_hi_id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO conversations").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry"))
	mock.ExpectQuery("SELECT id, route_id, user_lo_id, user_hi_id").
		WillReturnRows(convRow(42, 3, 1, 2))
	mock.ExpectRollback()

	ctx := context.Background()
	tx, _ := repo.DB().BeginTx(ctx, nil)
	defer tx.Rollback()

	cv, err := repo.FindOrCreateTx(ctx, tx, 3, 1, 2, "Sofia", "Varna")
	if err != nil {
		t.Fatalf("FindOrCreateTx after lost race: %v", err)
	}
	if cv.ID != 42 {
		t.Errorf("ID = %d, want the winner's row 42", cv.ID)
	}
}
