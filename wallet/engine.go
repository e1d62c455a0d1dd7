package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tiffin/models"
	"tiffin/mq"
	"tiffin/utils"
)

// conflictRetries bounds how often an operation re-reads and retries after a
// concurrent mutation of the same wallet.
const conflictRetries = 3

// EmitFunc publishes a wallet event after a successful mutation. May be nil.
type EmitFunc func(ctx context.Context, event mq.WalletEvent)

// Service is the wallet operations engine. Every mutating operation is
// read-validate-write: all validation happens against a snapshot, then the
// balance update and the log append commit as one atomic unit. The balance
// update pins the snapshot balance, so a concurrent writer forces a retry
// instead of a lost update.
type Service struct {
	store  Store
	locker Locker   // optional, serializes two-wallet operations
	emit   EmitFunc // optional
	now    func() time.Time
}

func NewService(store Store, locker Locker, emit EmitFunc) *Service {
	return &Service{
		store:  store,
		locker: locker,
		emit:   emit,
		now:    time.Now,
	}
}

func (s *Service) publish(ctx context.Context, event string, txn *models.WalletTransaction, kind models.WalletKind, ownerID string) {
	if s.emit == nil {
		return
	}
	s.emit(ctx, mq.WalletEvent{
		Event:      event,
		WalletKind: string(kind),
		OwnerID:    ownerID,
		TxnID:      txn.ID,
		Amount:     txn.Amount,
		OccurredAt: txn.CreatedAt,
	})
}

// retryConflicts runs fn until it succeeds or fails with something other
// than ErrConflict; exhausted retries surface as ErrOperationFailed.
func retryConflicts(fn func() error) error {
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = fn()
		if !errors.Is(err, ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("%w: %s", ErrOperationFailed, err)
}

// CreateWallet provisions the single wallet for an owning party. Called
// exactly once by the registration flow; a second call fails with
// ErrWalletExists rather than returning the existing wallet.
func (s *Service) CreateWallet(ctx context.Context, kind models.WalletKind, ownerID string) (*models.Wallet, error) {
	if !kind.Valid() || ownerID == "" {
		return nil, ErrWalletNotFound
	}

	w := NewWallet(kind, ownerID, utils.GetUUID(), s.now())
	if err := s.store.CreateWallet(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Fund credits a wallet from an external payment method.
func (s *Service) Fund(ctx context.Context, kind models.WalletKind, ownerID string, amount float64, description, paymentMethod string) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if description == "" {
		description = "Wallet funding"
	}

	var txn *models.WalletTransaction
	err := retryConflicts(func() error {
		w, err := s.store.GetWallet(ctx, kind, ownerID)
		if err != nil {
			return err
		}
		if err := mutable(w); err != nil {
			return err
		}

		now := s.now()
		txn = &models.WalletTransaction{
			ID:            utils.GetUUID(),
			WalletID:      w.ID,
			WalletKind:    w.Kind,
			Type:          models.TxnDeposit,
			Status:        models.TxnCompleted,
			Amount:        amount,
			BalanceBefore: w.Balance,
			BalanceAfter:  w.Balance + amount,
			Description:   description,
			ReferenceType: "funding",
			ReferenceID:   paymentMethod,
			ProcessedAt:   &now,
			CreatedAt:     now,
		}

		return s.store.Atomic(ctx, func(ctx context.Context) error {
			if err := s.store.ApplyBalanceDelta(ctx, w.ID, amount, w.Balance, now); err != nil {
				return err
			}
			return s.store.AppendTransaction(ctx, txn)
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "funded", txn, kind, ownerID)
	return txn, nil
}

// Withdraw debits a wallet and opens a pending payout. The transaction stays
// pending until the external settlement processor confirms via MarkSettled.
func (s *Service) Withdraw(ctx context.Context, kind models.WalletKind, ownerID string, amount float64, description, method string, accountDetails map[string]string) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if description == "" {
		description = "Wallet withdrawal"
	}
	_ = accountDetails // forwarded to the settlement processor, opaque here

	var txn *models.WalletTransaction
	err := retryConflicts(func() error {
		w, err := s.store.GetWallet(ctx, kind, ownerID)
		if err != nil {
			return err
		}
		if err := mutable(w); err != nil {
			return err
		}
		if w.MinimumWithdrawal > 0 && amount < w.MinimumWithdrawal {
			return ErrBelowMinimumWithdrawal
		}
		if w.Balance < amount {
			return ErrInsufficientBalance
		}

		now := s.now()
		txn = &models.WalletTransaction{
			ID:            utils.GetUUID(),
			WalletID:      w.ID,
			WalletKind:    w.Kind,
			Type:          models.TxnWithdrawal,
			Status:        models.TxnPending,
			Amount:        amount,
			BalanceBefore: w.Balance,
			BalanceAfter:  w.Balance - amount,
			Description:   description,
			ReferenceType: "withdrawal",
			ReferenceID:   method,
			CreatedAt:     now,
		}

		return s.store.Atomic(ctx, func(ctx context.Context) error {
			if err := s.store.ApplyBalanceDelta(ctx, w.ID, -amount, w.Balance, now); err != nil {
				return err
			}
			return s.store.AppendTransaction(ctx, txn)
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "withdrawal_requested", txn, kind, ownerID)
	return txn, nil
}

// PayForOrder debits the customer wallet for an order. Crediting the vendor
// or rider is a separate, explicitly-invoked step (CreditEarnings); this
// path never splits money on its own.
func (s *Service) PayForOrder(ctx context.Context, orderID, customerID string, amount float64) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var txn *models.WalletTransaction
	err := retryConflicts(func() error {
		w, err := s.store.GetWallet(ctx, models.KindCustomer, customerID)
		if err != nil {
			return err
		}
		if err := mutable(w); err != nil {
			return err
		}
		if w.Balance < amount {
			return ErrInsufficientBalance
		}

		now := s.now()
		txn = &models.WalletTransaction{
			ID:            utils.GetUUID(),
			WalletID:      w.ID,
			WalletKind:    w.Kind,
			Type:          models.TxnPayment,
			Status:        models.TxnCompleted,
			Amount:        amount,
			BalanceBefore: w.Balance,
			BalanceAfter:  w.Balance - amount,
			Description:   fmt.Sprintf("Payment for order #%s", orderID),
			ReferenceID:   orderID,
			ReferenceType: "order",
			ProcessedAt:   &now,
			CreatedAt:     now,
		}

		return s.store.Atomic(ctx, func(ctx context.Context) error {
			if err := s.store.ApplyBalanceDelta(ctx, w.ID, -amount, w.Balance, now); err != nil {
				return err
			}
			return s.store.AppendTransaction(ctx, txn)
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "payment", txn, models.KindCustomer, customerID)
	return txn, nil
}

// TransferResult pairs the two legs of a completed transfer.
type TransferResult struct {
	SenderTransaction    *models.WalletTransaction `json:"sender_transaction"`
	RecipientTransaction *models.WalletTransaction `json:"recipient_transaction"`
}

// Transfer moves money between two wallets. Both balances and both log
// entries commit together; a debit without its credit is never observable.
func (s *Service) Transfer(ctx context.Context, senderKind models.WalletKind, senderID string, recipientKind models.WalletKind, recipientID string, amount float64, description string) (*TransferResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if senderKind == recipientKind && senderID == recipientID {
		return nil, ErrSelfTransfer
	}
	if description == "" {
		description = "Wallet transfer"
	}

	var result *TransferResult
	err := retryConflicts(func() error {
		sender, err := s.store.GetWallet(ctx, senderKind, senderID)
		if err != nil {
			return err
		}
		recipient, err := s.store.GetWallet(ctx, recipientKind, recipientID)
		if err != nil {
			return err
		}

		if !sender.IsActive || sender.IsLocked {
			return ErrSenderUnavailable
		}
		if sender.Balance < amount {
			return ErrInsufficientBalance
		}
		if !recipient.IsActive {
			return ErrRecipientInactive
		}

		// Serialize against other transfers touching either wallet; lock
		// order is deterministic so two opposing transfers cannot deadlock.
		if s.locker != nil {
			release, ok := s.locker.AcquirePair(ctx, sender.ID, recipient.ID)
			if !ok {
				return ErrConflict
			}
			defer release()
		}

		now := s.now()
		debit := &models.WalletTransaction{
			ID:            utils.GetUUID(),
			WalletID:      sender.ID,
			WalletKind:    sender.Kind,
			Type:          models.TxnTransfer,
			Status:        models.TxnCompleted,
			Amount:        -amount,
			BalanceBefore: sender.Balance,
			BalanceAfter:  sender.Balance - amount,
			Description:   fmt.Sprintf("Transfer to %s %s: %s", recipientKind, recipientID, description),
			ReferenceType: "transfer_out",
			ReferenceID:   recipient.ID,
			ProcessedAt:   &now,
			CreatedAt:     now,
		}
		credit := &models.WalletTransaction{
			ID:            utils.GetUUID(),
			WalletID:      recipient.ID,
			WalletKind:    recipient.Kind,
			Type:          models.TxnTransfer,
			Status:        models.TxnCompleted,
			Amount:        amount,
			BalanceBefore: recipient.Balance,
			BalanceAfter:  recipient.Balance + amount,
			Description:   fmt.Sprintf("Transfer from %s %s: %s", senderKind, senderID, description),
			ReferenceType: "transfer_in",
			ReferenceID:   sender.ID,
			ProcessedAt:   &now,
			CreatedAt:     now,
		}

		err = s.store.Atomic(ctx, func(ctx context.Context) error {
			if err := s.store.ApplyBalanceDelta(ctx, sender.ID, -amount, sender.Balance, now); err != nil {
				return err
			}
			if err := s.store.ApplyBalanceDelta(ctx, recipient.ID, amount, recipient.Balance, now); err != nil {
				return err
			}
			if err := s.store.AppendTransaction(ctx, debit); err != nil {
				return err
			}
			return s.store.AppendTransaction(ctx, credit)
		})
		if err != nil {
			return err
		}

		result = &TransferResult{SenderTransaction: debit, RecipientTransaction: credit}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "transfer", result.SenderTransaction, senderKind, senderID)
	return result, nil
}

// RefundOrderPayment reverses a completed order payment: the customer wallet
// is credited for the full amount and the original transaction is marked
// refunded. Corrections are always new transactions, never edits.
func (s *Service) RefundOrderPayment(ctx context.Context, orderID, customerID string) (*models.WalletTransaction, error) {
	var txn *models.WalletTransaction
	err := retryConflicts(func() error {
		w, err := s.store.GetWallet(ctx, models.KindCustomer, customerID)
		if err != nil {
			return err
		}
		if err := mutable(w); err != nil {
			return err
		}

		original, err := s.store.FindTransactionByReference(ctx, w.ID, models.TxnPayment, "order", orderID)
		if err != nil {
			return err
		}
		if original.Status != models.TxnCompleted {
			return ErrTransactionNotFound
		}

		now := s.now()
		txn = &models.WalletTransaction{
			ID:            utils.GetUUID(),
			WalletID:      w.ID,
			WalletKind:    w.Kind,
			Type:          models.TxnRefund,
			Status:        models.TxnCompleted,
			Amount:        original.Amount,
			BalanceBefore: w.Balance,
			BalanceAfter:  w.Balance + original.Amount,
			Description:   fmt.Sprintf("Refund for order #%s", orderID),
			ReferenceID:   orderID,
			ReferenceType: "order",
			ProcessedAt:   &now,
			CreatedAt:     now,
		}

		return s.store.Atomic(ctx, func(ctx context.Context) error {
			if err := s.store.ApplyBalanceDelta(ctx, w.ID, original.Amount, w.Balance, now); err != nil {
				return err
			}
			if err := s.store.AppendTransaction(ctx, txn); err != nil {
				return err
			}
			return s.store.MarkTransaction(ctx, original.ID, models.TxnRefunded, nil, "")
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "refund", txn, models.KindCustomer, customerID)
	return txn, nil
}

// CreditEarnings records vendor/rider earnings from an order into the
// pending balance. Vendors earn net of the platform commission; riders earn
// the gross delivery fee. Available balance is untouched until
// SettleEarnings runs.
func (s *Service) CreditEarnings(ctx context.Context, kind models.WalletKind, ownerID string, gross float64, orderID string) (*models.WalletTransaction, error) {
	if kind != models.KindVendor && kind != models.KindRider {
		return nil, ErrWalletNotFound
	}
	if gross <= 0 {
		return nil, ErrInvalidAmount
	}

	w, err := s.store.GetWallet(ctx, kind, ownerID)
	if err != nil {
		return nil, err
	}
	if err := mutable(w); err != nil {
		return nil, err
	}

	net := gross
	if kind == models.KindVendor {
		net = gross * (1 - w.CommissionRate)
	}

	now := s.now()
	txn := &models.WalletTransaction{
		ID:            utils.GetUUID(),
		WalletID:      w.ID,
		WalletKind:    w.Kind,
		Type:          models.TxnCommission,
		Status:        models.TxnPending,
		Amount:        net,
		BalanceBefore: w.Balance,
		BalanceAfter:  w.Balance, // pending only; available balance unchanged
		Description:   fmt.Sprintf("Earnings for order #%s", orderID),
		ReferenceID:   orderID,
		ReferenceType: "order",
		CreatedAt:     now,
	}

	err = s.store.Atomic(ctx, func(ctx context.Context) error {
		if err := s.store.CreditPending(ctx, w.ID, net, now); err != nil {
			return err
		}
		return s.store.AppendTransaction(ctx, txn)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "earnings_credited", txn, kind, ownerID)
	return txn, nil
}

// CreditDeliveryEarnings credits a rider their base delivery fee for an
// order, using the rate stored on the rider's wallet.
func (s *Service) CreditDeliveryEarnings(ctx context.Context, riderID, orderID string) (*models.WalletTransaction, error) {
	w, err := s.store.GetWallet(ctx, models.KindRider, riderID)
	if err != nil {
		return nil, err
	}
	return s.CreditEarnings(ctx, models.KindRider, riderID, w.DeliveryRate, orderID)
}

// SettleEarnings moves the whole pending balance into the available balance
// and completes the commission transactions that produced it.
func (s *Service) SettleEarnings(ctx context.Context, kind models.WalletKind, ownerID string) (*models.Wallet, error) {
	if kind != models.KindVendor && kind != models.KindRider {
		return nil, ErrWalletNotFound
	}

	var settled *models.Wallet
	err := retryConflicts(func() error {
		w, err := s.store.GetWallet(ctx, kind, ownerID)
		if err != nil {
			return err
		}
		if err := mutable(w); err != nil {
			return err
		}
		if w.PendingBalance <= 0 {
			return ErrNothingToSettle
		}

		now := s.now()
		err = s.store.Atomic(ctx, func(ctx context.Context) error {
			if err := s.store.SettlePending(ctx, w.ID, w.PendingBalance, now); err != nil {
				return err
			}
			return s.store.CompleteEarnings(ctx, w.ID, now)
		})
		if err != nil {
			return err
		}

		settled, err = s.store.GetWallet(ctx, kind, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

// MarkSettled is the settlement-processor callback: it completes a pending
// withdrawal once the external payout went through.
func (s *Service) MarkSettled(ctx context.Context, txnID, processorID string, processedAt time.Time) error {
	txn, err := s.store.GetTransaction(ctx, txnID)
	if err != nil {
		return err
	}
	if txn.Type != models.TxnWithdrawal || txn.Status != models.TxnPending {
		return ErrTransactionNotFound
	}
	return s.store.MarkTransaction(ctx, txnID, models.TxnCompleted, &processedAt, processorID)
}

// mutable rejects operations against inactive or locked wallets.
func mutable(w *models.Wallet) error {
	if !w.IsActive {
		return ErrWalletInactive
	}
	if w.IsLocked {
		return ErrWalletLocked
	}
	return nil
}
