package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/333Kunal/E-com/internal/models"
)

type productStore struct {
	coll *mongo.Collection
}

func NewProductStore(db *mongo.Database) ProductStore {
	return &productStore{coll: db.Collection(productsCollection)}
}

func (s *productStore) Create(ctx context.Context, product *models.Product) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := time.Now()
	product.ID = primitive.NewObjectID()
	product.CreatedAt = now
	product.UpdatedAt = now

	if _, err := s.coll.InsertOne(ctx, product); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	product.InStock = product.Stock > 0
	return nil
}

func (s *productStore) FindByID(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var product models.Product
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, ErrNotFound
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("find product: %w", err)
	}
	product.InStock = product.Stock > 0
	return product, nil
}

func (s *productStore) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := bson.M{}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query["category"] = category
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query["name"] = bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if filter.Page > 0 && filter.Limit > 0 {
		findOptions.SetSkip((filter.Page - 1) * filter.Limit).SetLimit(filter.Limit)
	}

	total, err := s.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	cursor, err := s.coll.Find(ctx, query, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("decode products: %w", err)
	}
	for i := range products {
		products[i].InStock = products[i].Stock > 0
	}
	return products, total, nil
}

func (s *productStore) Update(ctx context.Context, id primitive.ObjectID, update models.ProductUpdate) (models.Product, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set := bson.M{"updatedAt": time.Now()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.Price != nil {
		set["price"] = *update.Price
	}
	if update.Category != nil {
		set["category"] = *update.Category
	}
	if update.Image != nil {
		set["image"] = *update.Image
	}
	if update.Stock != nil {
		set["stock"] = *update.Stock
	}

	var product models.Product
	err := s.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, ErrNotFound
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("update product: %w", err)
	}
	product.InStock = product.Stock > 0
	return product, nil
}

func (s *productStore) Delete(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var product models.Product
	err := s.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, ErrNotFound
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("delete product: %w", err)
	}
	return product, nil
}

// DecrementStock subtracts quantity in one conditional update. When nothing matched it looks
// the product up once more to tell a missing product from a short one.
func (s *productStore) DecrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("decrement stock: quantity must be positive, got %d", quantity)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"_id":   id,
		"stock": bson.M{"$gte": quantity},
	}
	update := bson.M{
		"$inc": bson.M{"stock": -quantity},
		"$set": bson.M{"updatedAt": time.Now()},
	}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	count, err := s.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrInsufficientStock
}

func (s *productStore) IncrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("increment stock: quantity must be positive, got %d", quantity)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"stock": quantity},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
