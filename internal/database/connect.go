package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	productsCollection      = "products"
	usersCollection         = "users"
	ordersCollection        = "orders"
	refreshTokensCollection = "refresh_tokens"

	queryTimeout = 5 * time.Second
)

// Connect opens a client and verifies the primary is reachable.
func Connect(uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("MONGO_URI is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	logrus.WithField("component", "database").Info("mongo connected")
	return client, nil
}

// NewMongoStores wires every store to its collection in db.
func NewMongoStores(db *mongo.Database) Stores {
	return Stores{
		Products:      NewProductStore(db),
		Accounts:      NewAccountStore(db),
		Orders:        NewOrderStore(db),
		RefreshTokens: NewRefreshTokenStore(db),
	}
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}
