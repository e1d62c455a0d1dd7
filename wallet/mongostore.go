package wallet

import (
	"context"
	"fmt"
	"time"

	"tiffin/db"
	"tiffin/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists wallets and transactions in the shared Mongo
// collections. Multi-write operations run inside a session transaction so a
// transfer's two balance updates and two log entries commit together.
type MongoStore struct {
	wallets *mongo.Collection
	txns    *mongo.Collection
	client  *mongo.Client
}

func NewMongoStore() *MongoStore {
	return &MongoStore{
		wallets: db.WalletsCollection,
		txns:    db.TransactionCollection,
		client:  db.Client,
	}
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if we, ok := err.(mongo.WriteException); ok {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return mongo.IsDuplicateKeyError(err)
}

func (m *MongoStore) GetWallet(ctx context.Context, kind models.WalletKind, ownerID string) (*models.Wallet, error) {
	var w models.Wallet
	err := m.wallets.FindOne(ctx, bson.M{"kind": kind, "owner_id": ownerID}).Decode(&w)
	if err == mongo.ErrNoDocuments {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("wallet lookup: %w", err)
	}
	return &w, nil
}

func (m *MongoStore) GetWalletByID(ctx context.Context, walletID string) (*models.Wallet, error) {
	var w models.Wallet
	err := m.wallets.FindOne(ctx, bson.M{"_id": walletID}).Decode(&w)
	if err == mongo.ErrNoDocuments {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("wallet lookup: %w", err)
	}
	return &w, nil
}

func (m *MongoStore) CreateWallet(ctx context.Context, w *models.Wallet) error {
	_, err := m.wallets.InsertOne(ctx, w)
	if isDuplicateKeyError(err) {
		return ErrWalletExists
	}
	if err != nil {
		return fmt.Errorf("wallet create: %w", err)
	}
	return nil
}

// ApplyBalanceDelta is the optimistic write: the filter pins the balance the
// caller read, so a concurrent mutation makes the update match nothing.
func (m *MongoStore) ApplyBalanceDelta(ctx context.Context, walletID string, delta, expectedBefore float64, now time.Time) error {
	res, err := m.wallets.UpdateOne(ctx,
		bson.M{"_id": walletID, "balance": expectedBefore},
		bson.M{"$set": bson.M{
			"balance":             expectedBefore + delta,
			"last_transaction_at": now,
			"updated_at":          now,
		}},
	)
	if err != nil {
		return fmt.Errorf("balance update: %w", err)
	}
	if res.MatchedCount == 0 {
		// Either the wallet vanished or the balance moved underneath us.
		if err := m.wallets.FindOne(ctx, bson.M{"_id": walletID}).Err(); err == mongo.ErrNoDocuments {
			return ErrWalletNotFound
		}
		return ErrConflict
	}
	return nil
}

func (m *MongoStore) CreditPending(ctx context.Context, walletID string, amount float64, now time.Time) error {
	res, err := m.wallets.UpdateOne(ctx,
		bson.M{"_id": walletID},
		bson.M{
			"$inc": bson.M{"pending_balance": amount},
			"$set": bson.M{"last_transaction_at": now, "updated_at": now},
		},
	)
	if err != nil {
		return fmt.Errorf("pending credit: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (m *MongoStore) SettlePending(ctx context.Context, walletID string, expectedPending float64, now time.Time) error {
	res, err := m.wallets.UpdateOne(ctx,
		bson.M{"_id": walletID, "pending_balance": expectedPending},
		bson.M{
			"$inc": bson.M{"balance": expectedPending},
			"$set": bson.M{
				"pending_balance":    0.0,
				"last_settlement_at": now,
				"updated_at":         now,
			},
		},
	)
	if err != nil {
		return fmt.Errorf("settlement: %w", err)
	}
	if res.MatchedCount == 0 {
		if err := m.wallets.FindOne(ctx, bson.M{"_id": walletID}).Err(); err == mongo.ErrNoDocuments {
			return ErrWalletNotFound
		}
		return ErrConflict
	}
	return nil
}

func (m *MongoStore) SetTransactionPin(ctx context.Context, walletID, pinHash string) error {
	res, err := m.wallets.UpdateOne(ctx,
		bson.M{"_id": walletID},
		bson.M{"$set": bson.M{"transaction_pin": pinHash, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("pin update: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (m *MongoStore) AppendTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	if _, err := m.txns.InsertOne(ctx, txn); err != nil {
		return fmt.Errorf("transaction append: %w", err)
	}
	return nil
}

func (m *MongoStore) ListTransactions(ctx context.Context, walletID string, offset, limit int64) ([]models.WalletTransaction, error) {
	findOptions := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(offset).
		SetLimit(limit)

	cur, err := m.txns.Find(ctx, bson.M{"wallet_id": walletID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("transaction list: %w", err)
	}
	defer cur.Close(ctx)

	var txns []models.WalletTransaction
	if err = cur.All(ctx, &txns); err != nil {
		return nil, fmt.Errorf("transaction decode: %w", err)
	}
	return txns, nil
}

func (m *MongoStore) ListAllTransactions(ctx context.Context, walletID string) ([]models.WalletTransaction, error) {
	cur, err := m.txns.Find(ctx, bson.M{"wallet_id": walletID},
		options.Find().SetSort(bson.M{"created_at": 1}))
	if err != nil {
		return nil, fmt.Errorf("transaction list: %w", err)
	}
	defer cur.Close(ctx)

	var txns []models.WalletTransaction
	if err = cur.All(ctx, &txns); err != nil {
		return nil, fmt.Errorf("transaction decode: %w", err)
	}
	return txns, nil
}

func (m *MongoStore) GetTransaction(ctx context.Context, txnID string) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	err := m.txns.FindOne(ctx, bson.M{"_id": txnID}).Decode(&txn)
	if err == mongo.ErrNoDocuments {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("transaction lookup: %w", err)
	}
	return &txn, nil
}

func (m *MongoStore) FindTransactionByReference(ctx context.Context, walletID, txnType, refType, refID string) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	err := m.txns.FindOne(ctx, bson.M{
		"wallet_id":      walletID,
		"type":           txnType,
		"reference_type": refType,
		"reference_id":   refID,
	}).Decode(&txn)
	if err == mongo.ErrNoDocuments {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("transaction lookup: %w", err)
	}
	return &txn, nil
}

func (m *MongoStore) MarkTransaction(ctx context.Context, txnID, status string, processedAt *time.Time, processorID string) error {
	set := bson.M{"status": status}
	if processedAt != nil {
		set["processed_at"] = *processedAt
	}
	if processorID != "" {
		set["processor_id"] = processorID
	}

	res, err := m.txns.UpdateOne(ctx, bson.M{"_id": txnID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("transaction update: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (m *MongoStore) CompleteEarnings(ctx context.Context, walletID string, now time.Time) error {
	_, err := m.txns.UpdateMany(ctx,
		bson.M{
			"wallet_id": walletID,
			"type":      bson.M{"$in": []string{models.TxnCommission, models.TxnBonus}},
			"status":    models.TxnPending,
		},
		bson.M{"$set": bson.M{"status": models.TxnCompleted, "processed_at": now}},
	)
	if err != nil {
		return fmt.Errorf("earnings completion: %w", err)
	}
	return nil
}

// Atomic wraps fn in a Mongo session transaction. Requires the deployment to
// be a replica set, which is how the service runs everywhere past local dev.
func (m *MongoStore) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("session start: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
