package database

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates every index the stores rely on. Index creation is idempotent.
func EnsureIndexes(db *mongo.Database) error {
	for _, ensure := range []func(*mongo.Database) error{
		EnsureProductIndexes,
		EnsureUserIndexes,
		EnsureOrderIndexes,
		EnsureRefreshTokenIndexes,
	} {
		if err := ensure(db); err != nil {
			return err
		}
	}
	return nil
}

func EnsureProductIndexes(db *mongo.Database) error {
	return createIndexes(db, productsCollection, mongo.IndexModel{
		Keys:    bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("category_createdAt"),
	})
}

func EnsureUserIndexes(db *mongo.Database) error {
	return createIndexes(db, usersCollection,
		mongo.IndexModel{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("email_unique").
				SetUnique(true),
		},
		// accounts registered without a username must not collide with each other
		mongo.IndexModel{
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().
				SetName("username_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"username": bson.M{
						"$exists": true,
					},
				}),
		},
	)
}

func EnsureOrderIndexes(db *mongo.Database) error {
	return createIndexes(db, ordersCollection, mongo.IndexModel{
		Keys:    bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("user_createdAt"),
	})
}

func EnsureRefreshTokenIndexes(db *mongo.Database) error {
	return createIndexes(db, refreshTokensCollection,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "tokenHash", Value: 1}},
			Options: options.Index().SetName("tokenHash_unique").SetUnique(true),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("expiresAt_ttl").SetExpireAfterSeconds(0),
		},
	)
}

func createIndexes(db *mongo.Database, collection string, models ...mongo.IndexModel) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := logrus.WithFields(logrus.Fields{"component": "database", "collection": collection})
	logger.WithField("count", len(models)).Info("creating indexes")

	names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
	if err != nil {
		logger.WithError(err).Error("index creation failed")
		return err
	}
	logger.WithField("indexes", names).Info("indexes ready")
	return nil
}
