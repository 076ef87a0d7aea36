package main

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/ledgerbook_backend/models"
	"bitbucket.org/mmdatafocus/ledgerbook_backend/utils"
)

func dayUTC(day int) time.Time {
	return time.Date(2024, 6, day, 10, 30, 0, 0, time.UTC)
}

func TestRecordedInRange(t *testing.T) {
	from := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 20, 23, 59, 59, 0, time.UTC)

	payables := []*models.Payable{
		{ID: 1, CreatedAt: dayUTC(5)},
		{ID: 2, CreatedAt: dayUTC(10)},
		{ID: 3, CreatedAt: dayUTC(15), IsSettled: utils.NewTrue()},
		{ID: 4, CreatedAt: dayUTC(20)},
		{ID: 5, CreatedAt: dayUTC(25)},
	}
	recordedAt := func(p *models.Payable) time.Time { return p.CreatedAt }

	got := recordedInRange(payables, &from, &to, recordedAt)
	wantIds := []int{2, 3, 4}
	if len(got) != len(wantIds) {
		t.Fatalf("recordedInRange kept %d items, want %d", len(got), len(wantIds))
	}
	for i, want := range wantIds {
		if got[i].ID != want {
			t.Fatalf("recordedInRange[%d].ID = %d, want %d", i, got[i].ID, want)
		}
	}
}

// Settled items stay in the report: the window is about when the item was
// recorded, not whether it has been paid off since.
func TestRecordedInRangeKeepsSettledItems(t *testing.T) {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)

	receivables := []*models.Receivable{
		{ID: 1, CreatedAt: dayUTC(3), IsSettled: utils.NewTrue()},
		{ID: 2, CreatedAt: dayUTC(12), IsSettled: utils.NewFalse()},
	}
	got := recordedInRange(receivables, &from, &to,
		func(r *models.Receivable) time.Time { return r.CreatedAt })
	if len(got) != 2 {
		t.Fatalf("recordedInRange kept %d items, want both settled and open", len(got))
	}
}

func TestRecordedInRangeOpenBounds(t *testing.T) {
	payables := []*models.Payable{
		{ID: 1, CreatedAt: dayUTC(1)},
		{ID: 2, CreatedAt: dayUTC(28)},
	}
	recordedAt := func(p *models.Payable) time.Time { return p.CreatedAt }

	if got := recordedInRange(payables, nil, nil, recordedAt); len(got) != 2 {
		t.Fatalf("nil bounds should keep everything, kept %d", len(got))
	}

	from := dayUTC(15)
	got := recordedInRange(payables, &from, nil, recordedAt)
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("from-only window kept wrong items: %v", got)
	}

	to := dayUTC(15)
	got = recordedInRange(payables, nil, &to, recordedAt)
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("to-only window kept wrong items: %v", got)
	}
}

func TestRecordedInRangeInclusiveEdges(t *testing.T) {
	edge := dayUTC(10)
	payables := []*models.Payable{{ID: 1, CreatedAt: edge}}
	recordedAt := func(p *models.Payable) time.Time { return p.CreatedAt }

	got := recordedInRange(payables, &edge, &edge, recordedAt)
	if len(got) != 1 {
		t.Fatalf("item recorded exactly on the bound should be kept")
	}
}
