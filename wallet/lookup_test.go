package wallet

import (
	"context"
	"errors"
	"testing"

	"tiffin/models"
)

func TestGetTransactionOwnership(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	svc.CreateWallet(ctx, models.KindCustomer, "c1")
	svc.CreateWallet(ctx, models.KindCustomer, "c2")
	svc.Fund(ctx, models.KindCustomer, "c1", 100, "", "card")

	txns, _ := NewLookup(store).ListTransactions(ctx, models.KindCustomer, "c1", 0, 10)
	if len(txns) != 1 {
		t.Fatalf("expected 1 txn, got %d", len(txns))
	}
	txnID := txns[0].ID

	lookup := NewLookup(store)
	if _, err := lookup.GetTransaction(ctx, txnID, models.KindCustomer, "c1"); err != nil {
		t.Fatalf("owner should read own txn: %v", err)
	}
	if _, err := lookup.GetTransaction(ctx, txnID, models.KindCustomer, "c2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other customer should be forbidden, got %v", err)
	}
	// same owner id but wrong kind is someone else
	if _, err := lookup.GetTransaction(ctx, txnID, models.KindVendor, "c1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("wrong kind should be forbidden, got %v", err)
	}
	if _, err := lookup.GetTransaction(ctx, "missing", models.KindCustomer, "c1"); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestListTransactionsPaging(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	svc.CreateWallet(ctx, models.KindCustomer, "c1")

	for i := 1; i <= 5; i++ {
		if _, err := svc.Fund(ctx, models.KindCustomer, "c1", float64(i*100), "", "card"); err != nil {
			t.Fatalf("fund %d: %v", i, err)
		}
	}

	lookup := NewLookup(store)
	page, err := lookup.ListTransactions(ctx, models.KindCustomer, "c1", 0, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 txns, got %d", len(page))
	}
	// newest first
	if page[0].Amount != 500 || page[1].Amount != 400 {
		t.Fatalf("unexpected order: %v, %v", page[0].Amount, page[1].Amount)
	}

	page, _ = lookup.ListTransactions(ctx, models.KindCustomer, "c1", 4, 2)
	if len(page) != 1 || page[0].Amount != 100 {
		t.Fatalf("unexpected last page: %+v", page)
	}

	if _, err := lookup.ListTransactions(ctx, models.KindVendor, "c1", 0, 10); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound for missing wallet, got %v", err)
	}
}

func TestGetBalance(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	svc.CreateWallet(ctx, models.KindVendor, "v1")
	svc.CreditEarnings(ctx, models.KindVendor, "v1", 1000, "order-1")

	balance, err := NewLookup(store).GetBalance(ctx, models.KindVendor, "v1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Balance != 0 || balance.PendingBalance != 850 {
		t.Fatalf("unexpected balance view: %+v", balance)
	}
}
