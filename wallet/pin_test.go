package wallet

import (
	"context"
	"errors"
	"testing"

	"tiffin/models"
)

func TestTransactionPin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	svc.CreateWallet(ctx, models.KindCustomer, "c1")

	if err := svc.SetTransactionPin(ctx, "c1", "12"); !errors.Is(err, ErrInvalidPin) {
		t.Fatalf("short pin should be rejected, got %v", err)
	}

	if err := svc.VerifyTransactionPin(ctx, "c1", "1234"); !errors.Is(err, ErrPinNotSet) {
		t.Fatalf("expected ErrPinNotSet before setup, got %v", err)
	}

	if err := svc.SetTransactionPin(ctx, "c1", "4321"); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	if err := svc.VerifyTransactionPin(ctx, "c1", "4321"); err != nil {
		t.Fatalf("correct pin rejected: %v", err)
	}
	if err := svc.VerifyTransactionPin(ctx, "c1", "0000"); !errors.Is(err, ErrInvalidPin) {
		t.Fatalf("wrong pin should fail, got %v", err)
	}

	// only the hash is stored
	w, _ := svc.store.GetWallet(ctx, models.KindCustomer, "c1")
	if w.TransactionPin == "4321" || w.TransactionPin == "" {
		t.Fatalf("pin must be stored hashed, got %q", w.TransactionPin)
	}
}
