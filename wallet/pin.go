package wallet

import (
	"context"

	"tiffin/models"

	"golang.org/x/crypto/bcrypt"
)

// SetTransactionPin stores a bcrypt hash of the customer's transaction PIN.
// The hash never leaves the server.
func (s *Service) SetTransactionPin(ctx context.Context, customerID, pin string) error {
	if len(pin) < 4 {
		return ErrInvalidPin
	}

	w, err := s.store.GetWallet(ctx, models.KindCustomer, customerID)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.store.SetTransactionPin(ctx, w.ID, string(hash))
}

// VerifyTransactionPin checks a PIN against the stored hash. It is a
// separate, explicitly-invoked precondition: the transfer operation itself
// does not gate on it, callers decide whether to enforce it.
func (s *Service) VerifyTransactionPin(ctx context.Context, customerID, pin string) error {
	w, err := s.store.GetWallet(ctx, models.KindCustomer, customerID)
	if err != nil {
		return err
	}
	if w.TransactionPin == "" {
		return ErrPinNotSet
	}
	if err := bcrypt.CompareHashAndPassword([]byte(w.TransactionPin), []byte(pin)); err != nil {
		return ErrInvalidPin
	}
	return nil
}
