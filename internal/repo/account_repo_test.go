package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/checkin-badges/internal/domain"
)

func TestUpsertAccount_InsertThenUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first, err := UpsertAccount(ctx, db, domain.Account{
		Provider: domain.ProviderUntappd,
		UID:      "42",
		Username: "alice",
		Email:    "alice@example.com",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("expected generated id and created_at, got %+v", first)
	}

	second, err := UpsertAccount(ctx, db, domain.Account{
		Provider: domain.ProviderUntappd,
		UID:      "42",
		Username: "alice2",
		Email:    "alice@new.example.com",
		Name:     "Alice",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert should keep the id: %s vs %s", second.ID, first.ID)
	}

	got, err := GetAccount(ctx, db, domain.ProviderUntappd, "42")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Username != "alice2" || got.Email != "alice@new.example.com" || got.Name != "Alice" {
		t.Fatalf("profile not refreshed: %+v", got)
	}

	n, err := CountAccounts(ctx, db)
	if err != nil || n != 1 {
		t.Fatalf("CountAccounts = %d, %v; want 1", n, err)
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := GetAccount(context.Background(), db, domain.ProviderUntappd, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAccounts_FilterAndPaging(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	for _, a := range []domain.Account{
		{Provider: domain.ProviderUntappd, UID: "1", Username: "alice"},
		{Provider: domain.ProviderUntappd, UID: "2", Username: "bob"},
		{Provider: "other", UID: "3", Username: "carol"},
	} {
		if _, err := UpsertAccount(ctx, db, a); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	untappd, err := ListAccounts(ctx, db, domain.ProviderUntappd)
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(untappd) != 2 {
		t.Fatalf("expected 2 untappd accounts, got %d", len(untappd))
	}

	page, err := ListAccountsPage(ctx, db, 0, 2)
	if err != nil || len(page) != 2 {
		t.Fatalf("ListAccountsPage(0,2) = %d rows, %v", len(page), err)
	}
	rest, err := ListAccountsPage(ctx, db, 2, 2)
	if err != nil || len(rest) != 1 {
		t.Fatalf("ListAccountsPage(2,2) = %d rows, %v", len(rest), err)
	}
}
