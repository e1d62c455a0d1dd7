package wallet

import (
	"context"
	"sync"
	"time"

	"tiffin/models"
)

// memStore is an in-memory Store with the same contract as the Mongo one:
// CAS balance writes and all-or-nothing Atomic blocks. Tests exercise the
// engine against it without a running database.
type memStore struct {
	mu      sync.Mutex
	txnMu   sync.Mutex // serializes Atomic blocks
	wallets map[string]*models.Wallet
	byOwner map[string]string
	txns    []models.WalletTransaction

	appendCount  int
	failOnAppend int   // 1-based append index to fail on; 0 disables
	appendErr    error // error returned by the forced failure
}

var _ Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		wallets: make(map[string]*models.Wallet),
		byOwner: make(map[string]string),
	}
}

func ownerKey(kind models.WalletKind, ownerID string) string {
	return string(kind) + "|" + ownerID
}

func copyWallet(w *models.Wallet) *models.Wallet {
	c := *w
	return &c
}

func (m *memStore) GetWallet(_ context.Context, kind models.WalletKind, ownerID string) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byOwner[ownerKey(kind, ownerID)]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return copyWallet(m.wallets[id]), nil
}

func (m *memStore) GetWalletByID(_ context.Context, walletID string) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[walletID]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return copyWallet(w), nil
}

func (m *memStore) CreateWallet(_ context.Context, w *models.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ownerKey(w.Kind, w.OwnerID)
	if _, exists := m.byOwner[key]; exists {
		return ErrWalletExists
	}
	m.byOwner[key] = w.ID
	m.wallets[w.ID] = copyWallet(w)
	return nil
}

func (m *memStore) ApplyBalanceDelta(_ context.Context, walletID string, delta, expectedBefore float64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[walletID]
	if !ok {
		return ErrWalletNotFound
	}
	if w.Balance != expectedBefore {
		return ErrConflict
	}
	w.Balance += delta
	w.LastTransactionAt = &now
	w.UpdatedAt = now
	return nil
}

func (m *memStore) CreditPending(_ context.Context, walletID string, amount float64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[walletID]
	if !ok {
		return ErrWalletNotFound
	}
	w.PendingBalance += amount
	w.UpdatedAt = now
	return nil
}

func (m *memStore) SettlePending(_ context.Context, walletID string, expectedPending float64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[walletID]
	if !ok {
		return ErrWalletNotFound
	}
	if w.PendingBalance != expectedPending {
		return ErrConflict
	}
	w.Balance += w.PendingBalance
	w.PendingBalance = 0
	w.LastSettlementAt = &now
	w.UpdatedAt = now
	return nil
}

func (m *memStore) SetTransactionPin(_ context.Context, walletID, pinHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[walletID]
	if !ok {
		return ErrWalletNotFound
	}
	w.TransactionPin = pinHash
	return nil
}

func (m *memStore) AppendTransaction(_ context.Context, txn *models.WalletTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendCount++
	if m.failOnAppend > 0 && m.appendCount == m.failOnAppend {
		return m.appendErr
	}
	m.txns = append(m.txns, *txn)
	return nil
}

func (m *memStore) ListTransactions(_ context.Context, walletID string, offset, limit int64) ([]models.WalletTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.WalletTransaction
	var skipped int64
	for i := len(m.txns) - 1; i >= 0; i-- {
		if m.txns[i].WalletID != walletID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, m.txns[i])
		if int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) ListAllTransactions(_ context.Context, walletID string) ([]models.WalletTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.WalletTransaction
	for i := range m.txns {
		if m.txns[i].WalletID == walletID {
			out = append(out, m.txns[i])
		}
	}
	return out, nil
}

func (m *memStore) GetTransaction(_ context.Context, txnID string) (*models.WalletTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.txns {
		if m.txns[i].ID == txnID {
			c := m.txns[i]
			return &c, nil
		}
	}
	return nil, ErrTransactionNotFound
}

func (m *memStore) FindTransactionByReference(_ context.Context, walletID, txnType, refType, refID string) (*models.WalletTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.txns {
		t := &m.txns[i]
		if t.WalletID == walletID && t.Type == txnType && t.ReferenceType == refType && t.ReferenceID == refID {
			c := *t
			return &c, nil
		}
	}
	return nil, ErrTransactionNotFound
}

func (m *memStore) MarkTransaction(_ context.Context, txnID, status string, processedAt *time.Time, processorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.txns {
		if m.txns[i].ID == txnID {
			m.txns[i].Status = status
			if processedAt != nil {
				m.txns[i].ProcessedAt = processedAt
			}
			if processorID != "" {
				m.txns[i].ProcessorID = processorID
			}
			return nil
		}
	}
	return ErrTransactionNotFound
}

func (m *memStore) CompleteEarnings(_ context.Context, walletID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.txns {
		t := &m.txns[i]
		if t.WalletID != walletID || t.Status != models.TxnPending {
			continue
		}
		if t.Type == models.TxnCommission || t.Type == models.TxnBonus {
			t.Status = models.TxnCompleted
			at := now
			t.ProcessedAt = &at
		}
	}
	return nil
}

// Atomic serializes with other Atomic blocks, snapshots all state, and
// restores the snapshot if fn fails.
func (m *memStore) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txnMu.Lock()
	defer m.txnMu.Unlock()

	m.mu.Lock()
	wallets := make(map[string]*models.Wallet, len(m.wallets))
	for id, w := range m.wallets {
		wallets[id] = copyWallet(w)
	}
	byOwner := make(map[string]string, len(m.byOwner))
	for k, v := range m.byOwner {
		byOwner[k] = v
	}
	txns := make([]models.WalletTransaction, len(m.txns))
	copy(txns, m.txns)
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.wallets = wallets
		m.byOwner = byOwner
		m.txns = txns
		m.mu.Unlock()
		return err
	}
	return nil
}
