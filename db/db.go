package db

import (
	"context"
	"log"
	"os"

	"tiffin/models"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	AccountsCollection    *mongo.Collection
	OrdersCollection      *mongo.Collection
	WalletsCollection     *mongo.Collection
	TransactionCollection *mongo.Collection
	IdempotencyCollection *mongo.Collection
	Client                *mongo.Client
)

// Initialize MongoDB connection
func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	var err error
	Client, err = mongo.Connect(context.TODO(), options.Client().ApplyURI(uri))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	database := Client.Database("tiffindb")
	AccountsCollection = database.Collection("accounts")
	OrdersCollection = database.Collection("orders")
	WalletsCollection = database.Collection("wallets")
	TransactionCollection = database.Collection("wallet_transactions")
	IdempotencyCollection = database.Collection("idempotency")
}

// EnsureIndexes creates the uniqueness and query indexes the wallet core
// relies on. One wallet per (kind, owner_id) is enforced here, not in code.
func EnsureIndexes(ctx context.Context) error {
	_, err := WalletsCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "kind", Value: 1}, {Key: "owner_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_owner_wallet"),
		},
	})
	if err != nil {
		return err
	}

	_, err = AccountsCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.M{"username": 1},
			Options: options.Index().SetUnique(true).SetName("unique_username"),
		},
	})
	if err != nil {
		return err
	}

	_, err = TransactionCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "wallet_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("wallet_created_desc"),
		},
		{
			Keys:    bson.D{{Key: "reference_id", Value: 1}, {Key: "reference_type", Value: 1}},
			Options: options.Index().SetName("reference_lookup"),
		},
	})
	if err != nil {
		return err
	}

	_, err = IdempotencyCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.M{"key": 1},
			Options: options.Index().SetUnique(true).SetName("unique_key"),
		},
		{
			Keys:    bson.M{"expires_at": 1},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at"),
		},
	})
	return err
}

// AccountExists checks that the owning party is registered under the given
// kind, so an ID of one kind cannot stand in for another.
func AccountExists(ctx context.Context, id string, kind models.WalletKind) bool {
	err := AccountsCollection.FindOne(ctx, bson.M{"_id": id, "kind": kind}).Err()
	return err == nil
}
