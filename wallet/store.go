package wallet

import (
	"context"
	"time"

	"tiffin/models"
)

// Store is the durable home of wallets and their transaction log. The engine
// is the only writer; the lookup service reads through the same interface.
//
// Balance writes are compare-and-swap: ApplyBalanceDelta only succeeds when
// the stored balance still equals expectedBefore, otherwise it returns
// ErrConflict and the engine re-reads and retries.
type Store interface {
	GetWallet(ctx context.Context, kind models.WalletKind, ownerID string) (*models.Wallet, error)
	GetWalletByID(ctx context.Context, walletID string) (*models.Wallet, error)
	CreateWallet(ctx context.Context, w *models.Wallet) error
	ApplyBalanceDelta(ctx context.Context, walletID string, delta, expectedBefore float64, now time.Time) error
	CreditPending(ctx context.Context, walletID string, amount float64, now time.Time) error
	SettlePending(ctx context.Context, walletID string, expectedPending float64, now time.Time) error
	SetTransactionPin(ctx context.Context, walletID, pinHash string) error

	AppendTransaction(ctx context.Context, txn *models.WalletTransaction) error
	ListTransactions(ctx context.Context, walletID string, offset, limit int64) ([]models.WalletTransaction, error)
	ListAllTransactions(ctx context.Context, walletID string) ([]models.WalletTransaction, error)
	GetTransaction(ctx context.Context, txnID string) (*models.WalletTransaction, error)
	FindTransactionByReference(ctx context.Context, walletID, txnType, refType, refID string) (*models.WalletTransaction, error)
	MarkTransaction(ctx context.Context, txnID, status string, processedAt *time.Time, processorID string) error
	CompleteEarnings(ctx context.Context, walletID string, now time.Time) error

	// Atomic runs fn as a single unit: either every write inside is durably
	// visible or none are.
	Atomic(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewWallet builds a wallet with the per-kind policy defaults applied at
// registration time.
func NewWallet(kind models.WalletKind, ownerID, walletID string, now time.Time) *models.Wallet {
	w := &models.Wallet{
		ID:        walletID,
		Kind:      kind,
		OwnerID:   ownerID,
		Balance:   0,
		IsActive:  true,
		IsLocked:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch kind {
	case models.KindCustomer:
		w.DailyLimit = 50000
	case models.KindVendor:
		w.CommissionRate = 0.15
		w.MinimumWithdrawal = 1000
	case models.KindRider:
		w.DeliveryRate = 500
		w.MinimumWithdrawal = 500
	}

	return w
}
