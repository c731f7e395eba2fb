package repo

import (
	"context"
	"testing"

	"github.com/tbourn/checkin-badges/internal/domain"
)

func TestAwardRecords_CreateListCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	results := []domain.AwardResult{
		{Identity: "alice@example.com", Outcome: domain.OutcomeAwarded},
		{Identity: "bob@example.com", Outcome: domain.OutcomeAlreadyAwarded},
		{Identity: "carol@example.com", Outcome: domain.OutcomeFailed, Reason: "status 500"},
	}
	for _, r := range results {
		if _, err := CreateAwardRecord(ctx, db, "run-1", 61615, r); err != nil {
			t.Fatalf("CreateAwardRecord(%s): %v", r.Identity, err)
		}
	}
	if _, err := CreateAwardRecord(ctx, db, "run-2", 61615, results[0]); err != nil {
		t.Fatalf("CreateAwardRecord run-2: %v", err)
	}

	n, err := CountAwardRecords(ctx, db)
	if err != nil || n != 4 {
		t.Fatalf("CountAwardRecords = %d, %v; want 4", n, err)
	}

	run1, err := ListAwardRecordsByRun(ctx, db, "run-1")
	if err != nil {
		t.Fatalf("ListAwardRecordsByRun: %v", err)
	}
	if len(run1) != 3 {
		t.Fatalf("expected 3 rows for run-1, got %d", len(run1))
	}
	byIdentity := map[string]domain.AwardRecord{}
	for _, r := range run1 {
		byIdentity[r.Identity] = r
	}
	if byIdentity["carol@example.com"].Reason != "status 500" ||
		byIdentity["bob@example.com"].Outcome != domain.OutcomeAlreadyAwarded {
		t.Fatalf("unexpected rows: %+v", run1)
	}

	page, err := ListAwardRecordsPage(ctx, db, 0, 3)
	if err != nil || len(page) != 3 {
		t.Fatalf("ListAwardRecordsPage = %d rows, %v", len(page), err)
	}
}

func TestAwardRecords_RejectsUnknownOutcome(t *testing.T) {
	db := newTestDB(t)
	_, err := CreateAwardRecord(context.Background(), db, "run-x", 1, domain.AwardResult{
		Identity: "x@example.com",
		Outcome:  domain.Outcome("maybe"),
	})
	if err == nil {
		t.Fatalf("expected check constraint violation for unknown outcome")
	}
}
