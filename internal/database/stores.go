package database

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/333Kunal/E-com/internal/models"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrDuplicate         = errors.New("duplicate document")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("document changed concurrently")
)

// ProductStore is the catalog. DecrementStock must be a single conditional update so stock
// can never be driven below zero by concurrent callers.
type ProductStore interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Product, error)
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, update models.ProductUpdate) (models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) (models.Product, error)
	DecrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error
	IncrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error
}

type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Account, error)
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	List(ctx context.Context) ([]models.Account, error)
	Update(ctx context.Context, id primitive.ObjectID, update models.AccountUpdate) (models.Account, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// PaymentTransition moves an order out of Processing/Pending. It only applies while the
// order is still pending; otherwise the store returns ErrConflict.
type PaymentTransition struct {
	OrderStatus    models.OrderStatus
	PaymentDetails models.PaymentDetails
}

type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	TransitionPayment(ctx context.Context, id primitive.ObjectID, transition PaymentTransition) (models.Order, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type RefreshTokenStore interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindActive(ctx context.Context, tokenHash string) (models.RefreshToken, error)
	Revoke(ctx context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error
	RevokeByHash(ctx context.Context, tokenHash string) error
}

// Stores bundles the collections the application works with.
type Stores struct {
	Products      ProductStore
	Accounts      AccountStore
	Orders        OrderStore
	RefreshTokens RefreshTokenStore
}
