package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/333Kunal/E-com/internal/models"
)

type orderStore struct {
	coll *mongo.Collection
}

func NewOrderStore(db *mongo.Database) OrderStore {
	return &orderStore{coll: db.Collection(ordersCollection)}
}

func (s *orderStore) Create(ctx context.Context, order *models.Order) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	order.ID = primitive.NewObjectID()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}

	if _, err := s.coll.InsertOne(ctx, order); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *orderStore) FindByID(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var order models.Order
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, ErrNotFound
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("find order: %w", err)
	}
	return order, nil
}

func (s *orderStore) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return s.list(ctx, bson.M{"user": userID})
}

func (s *orderStore) ListAll(ctx context.Context) ([]models.Order, error) {
	return s.list(ctx, bson.M{})
}

func (s *orderStore) list(ctx context.Context, filter bson.M) ([]models.Order, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

func (s *orderStore) TransitionPayment(ctx context.Context, id primitive.ObjectID, transition PaymentTransition) (models.Order, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"_id":                          id,
		"orderStatus":                  models.OrderProcessing,
		"paymentDetails.paymentStatus": models.PaymentPending,
	}
	update := bson.M{"$set": bson.M{
		"orderStatus":    transition.OrderStatus,
		"paymentDetails": transition.PaymentDetails,
	}}

	var order models.Order
	err := s.coll.FindOneAndUpdate(
		ctx,
		filter,
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&order)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, fmt.Errorf("transition order: %w", err)
	}

	count, err := s.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return models.Order{}, fmt.Errorf("transition order: %w", err)
	}
	if count == 0 {
		return models.Order{}, ErrNotFound
	}
	return models.Order{}, ErrConflict
}

func (s *orderStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
