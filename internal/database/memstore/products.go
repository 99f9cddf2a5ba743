package memstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/333Kunal/E-com/internal/database"
	"github.com/333Kunal/E-com/internal/models"
)

type ProductStore struct{ s *Store }

func (p ProductStore) Create(_ context.Context, product *models.Product) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	now := time.Now()
	product.ID = primitive.NewObjectID()
	product.CreatedAt = now
	product.UpdatedAt = now
	product.InStock = product.Stock > 0
	p.s.products[product.ID] = *product
	return nil
}

func (p ProductStore) FindByID(_ context.Context, id primitive.ObjectID) (models.Product, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	product, ok := p.s.products[id]
	if !ok {
		return models.Product{}, database.ErrNotFound
	}
	product.InStock = product.Stock > 0
	return product, nil
}

func (p ProductStore) List(_ context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	category := strings.TrimSpace(filter.Category)
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	matched := make([]models.Product, 0, len(p.s.products))
	for _, product := range p.s.products {
		if category != "" && product.Category != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(product.Name), search) {
			continue
		}
		product.InStock = product.Stock > 0
		matched = append(matched, product)
	}
	newestFirst(matched,
		func(p models.Product) int64 { return p.CreatedAt.UnixNano() },
		func(p models.Product) primitive.ObjectID { return p.ID })

	total := int64(len(matched))
	if filter.Page > 0 && filter.Limit > 0 {
		start := (filter.Page - 1) * filter.Limit
		if start >= total {
			return []models.Product{}, total, nil
		}
		end := start + filter.Limit
		if end > total {
			end = total
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (p ProductStore) Update(_ context.Context, id primitive.ObjectID, update models.ProductUpdate) (models.Product, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	product, ok := p.s.products[id]
	if !ok {
		return models.Product{}, database.ErrNotFound
	}
	if update.Name != nil {
		product.Name = *update.Name
	}
	if update.Description != nil {
		product.Description = *update.Description
	}
	if update.Price != nil {
		product.Price = *update.Price
	}
	if update.Category != nil {
		product.Category = *update.Category
	}
	if update.Image != nil {
		product.Image = *update.Image
	}
	if update.Stock != nil {
		product.Stock = *update.Stock
	}
	product.UpdatedAt = time.Now()
	product.InStock = product.Stock > 0
	p.s.products[id] = product
	return product, nil
}

func (p ProductStore) Delete(_ context.Context, id primitive.ObjectID) (models.Product, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	product, ok := p.s.products[id]
	if !ok {
		return models.Product{}, database.ErrNotFound
	}
	delete(p.s.products, id)
	return product, nil
}

func (p ProductStore) DecrementStock(_ context.Context, id primitive.ObjectID, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("decrement stock: quantity must be positive, got %d", quantity)
	}

	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	product, ok := p.s.products[id]
	if !ok {
		return database.ErrNotFound
	}
	if product.Stock < quantity {
		return database.ErrInsufficientStock
	}
	product.Stock -= quantity
	product.UpdatedAt = time.Now()
	p.s.products[id] = product
	return nil
}

func (p ProductStore) IncrementStock(_ context.Context, id primitive.ObjectID, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("increment stock: quantity must be positive, got %d", quantity)
	}

	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	product, ok := p.s.products[id]
	if !ok {
		return database.ErrNotFound
	}
	product.Stock += quantity
	product.UpdatedAt = time.Now()
	p.s.products[id] = product
	return nil
}
