package memstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/333Kunal/E-com/internal/database"
	"github.com/333Kunal/E-com/internal/models"
)

type OrderStore struct{ s *Store }

func (o OrderStore) Create(_ context.Context, order *models.Order) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	order.ID = primitive.NewObjectID()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	o.s.orders[order.ID] = order.Clone()
	return nil
}

func (o OrderStore) FindByID(_ context.Context, id primitive.ObjectID) (models.Order, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()

	order, ok := o.s.orders[id]
	if !ok {
		return models.Order{}, database.ErrNotFound
	}
	return order.Clone(), nil
}

func (o OrderStore) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return o.list(func(order models.Order) bool { return order.User == userID }), nil
}

func (o OrderStore) ListAll(_ context.Context) ([]models.Order, error) {
	return o.list(func(models.Order) bool { return true }), nil
}

func (o OrderStore) list(keep func(models.Order) bool) []models.Order {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()

	orders := make([]models.Order, 0)
	for _, order := range o.s.orders {
		if keep(order) {
			orders = append(orders, order.Clone())
		}
	}
	newestFirst(orders,
		func(o models.Order) int64 { return o.CreatedAt.UnixNano() },
		func(o models.Order) primitive.ObjectID { return o.ID })
	return orders
}

func (o OrderStore) TransitionPayment(_ context.Context, id primitive.ObjectID, transition database.PaymentTransition) (models.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	order, ok := o.s.orders[id]
	if !ok {
		return models.Order{}, database.ErrNotFound
	}
	if !order.Pending() {
		return models.Order{}, database.ErrConflict
	}

	order.OrderStatus = transition.OrderStatus
	order.PaymentDetails = transition.PaymentDetails
	order = order.Clone()
	o.s.orders[id] = order
	return order.Clone(), nil
}

func (o OrderStore) Delete(_ context.Context, id primitive.ObjectID) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	if _, ok := o.s.orders[id]; !ok {
		return database.ErrNotFound
	}
	delete(o.s.orders, id)
	return nil
}
