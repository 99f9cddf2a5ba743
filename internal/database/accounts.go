package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/333Kunal/E-com/internal/models"
)

type accountStore struct {
	coll *mongo.Collection
}

func NewAccountStore(db *mongo.Database) AccountStore {
	return &accountStore{coll: db.Collection(usersCollection)}
}

func (s *accountStore) Create(ctx context.Context, account *models.Account) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := time.Now()
	account.ID = primitive.NewObjectID()
	account.Email = normalizeEmail(account.Email)
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := s.coll.InsertOne(ctx, account)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *accountStore) FindByID(ctx context.Context, id primitive.ObjectID) (models.Account, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *accountStore) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	return s.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (s *accountStore) findOne(ctx context.Context, filter bson.M) (models.Account, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var account models.Account
	err := s.coll.FindOne(ctx, filter).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Account{}, ErrNotFound
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("find account: %w", err)
	}
	return account, nil
}

func (s *accountStore) List(ctx context.Context) ([]models.Account, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find accounts: %w", err)
	}
	defer cursor.Close(ctx)

	accounts := make([]models.Account, 0)
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	return accounts, nil
}

func (s *accountStore) Update(ctx context.Context, id primitive.ObjectID, update models.AccountUpdate) (models.Account, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set := bson.M{"updatedAt": time.Now()}
	if update.Username != nil {
		set["username"] = *update.Username
	}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Email != nil {
		set["email"] = normalizeEmail(*update.Email)
	}
	if update.Role != nil {
		set["role"] = *update.Role
	}
	if update.Phone != nil {
		set["phone"] = *update.Phone
	}
	if update.Address != nil {
		set["address"] = *update.Address
	}
	if update.PasswordHash != nil {
		set["password"] = *update.PasswordHash
	}

	var account models.Account
	err := s.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&account)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.Account{}, ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return models.Account{}, ErrDuplicate
	case err != nil:
		return models.Account{}, fmt.Errorf("update account: %w", err)
	}
	return account, nil
}

func (s *accountStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
