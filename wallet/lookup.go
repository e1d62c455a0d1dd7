package wallet

import (
	"context"
	"math"

	"tiffin/models"
)

// Lookup is the read-only side of the wallet core. It never mutates either
// store and scopes every answer to the requesting owner.
type Lookup struct {
	store Store
}

func NewLookup(store Store) *Lookup {
	return &Lookup{store: store}
}

// GetBalance returns the owner's current available and pending balances.
func (l *Lookup) GetBalance(ctx context.Context, kind models.WalletKind, ownerID string) (*models.WalletBalance, error) {
	w, err := l.store.GetWallet(ctx, kind, ownerID)
	if err != nil {
		return nil, err
	}
	return &models.WalletBalance{
		Kind:              w.Kind,
		OwnerID:           w.OwnerID,
		Balance:           w.Balance,
		PendingBalance:    w.PendingBalance,
		LastTransactionAt: w.LastTransactionAt,
	}, nil
}

// ListTransactions pages through a wallet's log, newest first.
func (l *Lookup) ListTransactions(ctx context.Context, kind models.WalletKind, ownerID string, offset, limit int64) ([]models.WalletTransaction, error) {
	w, err := l.store.GetWallet(ctx, kind, ownerID)
	if err != nil {
		return nil, err
	}
	return l.store.ListTransactions(ctx, w.ID, offset, limit)
}

// GetTransaction returns one transaction, but only to the owner of the
// wallet it belongs to.
func (l *Lookup) GetTransaction(ctx context.Context, txnID string, requesterKind models.WalletKind, requesterID string) (*models.WalletTransaction, error) {
	txn, err := l.store.GetTransaction(ctx, txnID)
	if err != nil {
		return nil, err
	}

	w, err := l.store.GetWalletByID(ctx, txn.WalletID)
	if err != nil {
		return nil, ErrForbidden
	}
	if w.Kind != requesterKind || w.OwnerID != requesterID {
		return nil, ErrForbidden
	}
	return txn, nil
}

// ReconcileReport compares a wallet's balance with the replay of its log.
type ReconcileReport struct {
	Kind          models.WalletKind `json:"kind"`
	OwnerID       string            `json:"owner_id"`
	Balance       float64           `json:"balance"`
	ReplayedTotal float64           `json:"replayed_total"`
	Transactions  int               `json:"transactions"`
	Consistent    bool              `json:"consistent"`
}

// Reconcile replays every transaction's applied delta and checks the sum
// against the stored balance.
func (l *Lookup) Reconcile(ctx context.Context, kind models.WalletKind, ownerID string) (*ReconcileReport, error) {
	w, err := l.store.GetWallet(ctx, kind, ownerID)
	if err != nil {
		return nil, err
	}

	txns, err := l.store.ListAllTransactions(ctx, w.ID)
	if err != nil {
		return nil, err
	}

	var total float64
	for i := range txns {
		total += txns[i].AppliedDelta()
	}

	return &ReconcileReport{
		Kind:          w.Kind,
		OwnerID:       w.OwnerID,
		Balance:       w.Balance,
		ReplayedTotal: total,
		Transactions:  len(txns),
		Consistent:    math.Abs(w.Balance-total) < 1e-9,
	}, nil
}
