package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/ledgerbook_backend/feed"
	"bitbucket.org/mmdatafocus/ledgerbook_backend/models"
	"github.com/shopspring/decimal"
)

func staticFetch(txns []models.Transaction) fetchFunc {
	return func(ctx context.Context, companyId string) ([]models.Transaction, error) {
		return txns, nil
	}
}

func collectSnapshots(t *testing.T) (SnapshotFunc, chan []models.Transaction) {
	t.Helper()
	out := make(chan []models.Transaction, 16)
	return func(snapshot []models.Transaction) {
		out <- snapshot
	}, out
}

func waitSnapshot(t *testing.T, out chan []models.Transaction) []models.Transaction {
	t.Helper()
	select {
	case snapshot := <-out:
		return snapshot
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
		return nil
	}
}

func TestSubscribeEmitsInitialSnapshot(t *testing.T) {
	txns := []models.Transaction{
		{ID: 1, CompanyId: "co-1", Amount: decimal.NewFromInt(500), Kind: models.TransactionKindBankReceipt},
	}
	adapter := newAdapterWithFetch(staticFetch(txns))
	onSnapshot, out := collectSnapshots(t)

	sub, err := adapter.Subscribe(context.Background(), "co-1", onSnapshot)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	snapshot := waitSnapshot(t, out)
	if len(snapshot) != 1 || snapshot[0].ID != 1 {
		t.Fatalf("unexpected initial snapshot: %+v", snapshot)
	}
}

func TestSubscribeReEmitsOnChange(t *testing.T) {
	adapter := newAdapterWithFetch(staticFetch(nil))
	onSnapshot, out := collectSnapshots(t)

	sub, err := adapter.Subscribe(context.Background(), "co-2", onSnapshot)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	waitSnapshot(t, out)

	feed.Publish("co-2")
	waitSnapshot(t, out)
}

func TestSubscribeIgnoresOtherCompanies(t *testing.T) {
	adapter := newAdapterWithFetch(staticFetch(nil))
	onSnapshot, out := collectSnapshots(t)

	sub, err := adapter.Subscribe(context.Background(), "co-3", onSnapshot)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	waitSnapshot(t, out)

	feed.Publish("some-other-company")
	select {
	case <-out:
		t.Fatalf("received snapshot for a change in another company")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeInitialFetchError(t *testing.T) {
	wantErr := errors.New("store down")
	adapter := newAdapterWithFetch(func(ctx context.Context, companyId string) ([]models.Transaction, error) {
		return nil, wantErr
	})

	sub, err := adapter.Subscribe(context.Background(), "co-4", func([]models.Transaction) {})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if sub != nil {
		t.Fatalf("expected nil subscription on error")
	}
}

func TestSubscribeCloseStopsDelivery(t *testing.T) {
	adapter := newAdapterWithFetch(staticFetch(nil))
	onSnapshot, out := collectSnapshots(t)

	sub, err := adapter.Subscribe(context.Background(), "co-5", onSnapshot)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	waitSnapshot(t, out)

	sub.Close()

	feed.Publish("co-5")
	select {
	case <-out:
		t.Fatalf("received snapshot after Close")
	case <-time.After(100 * time.Millisecond):
	}
}
