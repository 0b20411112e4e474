package repo

import (
	"context"
	"errors"
	"testing"
)

func TestUserLedgerStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u, err := CreateUser(ctx, db, "alice")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	count, updatedAt, err := UserLedgerStats(ctx, db, u.ID)
	if err != nil {
		t.Fatalf("UserLedgerStats: %v", err)
	}
	if count != 0 || updatedAt == nil {
		t.Fatalf("fresh user: count=%d updatedAt=%v", count, updatedAt)
	}

	if err := UpdateUserProgress(ctx, db, u.ID, map[string]any{"total_facts_count": 3}); err != nil {
		t.Fatalf("UpdateUserProgress: %v", err)
	}
	count2, updatedAt2, err := UserLedgerStats(ctx, db, u.ID)
	if err != nil {
		t.Fatalf("UserLedgerStats after write: %v", err)
	}
	if count2 != 3 {
		t.Fatalf("count = %d; want 3", count2)
	}
	if updatedAt2.Before(*updatedAt) {
		t.Fatalf("UpdatedAt must not go backwards")
	}
}

func TestUserLedgerStats_NotFound(t *testing.T) {
	db := newTestDB(t)
	if _, _, err := UserLedgerStats(context.Background(), db, 777); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
