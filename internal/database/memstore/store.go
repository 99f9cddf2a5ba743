// Package memstore keeps every collection in process memory behind one mutex. It backs the
// tests and STORE=memory demo runs.
package memstore

import (
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/333Kunal/E-com/internal/database"
	"github.com/333Kunal/E-com/internal/models"
)

type Store struct {
	mu sync.RWMutex

	products      map[primitive.ObjectID]models.Product
	accounts      map[primitive.ObjectID]models.Account
	orders        map[primitive.ObjectID]models.Order
	refreshTokens map[primitive.ObjectID]models.RefreshToken
}

func New() *Store {
	return &Store{
		products:      make(map[primitive.ObjectID]models.Product),
		accounts:      make(map[primitive.ObjectID]models.Account),
		orders:        make(map[primitive.ObjectID]models.Order),
		refreshTokens: make(map[primitive.ObjectID]models.RefreshToken),
	}
}

// Stores exposes s through the same interfaces as the Mongo implementation.
func (s *Store) Stores() database.Stores {
	return database.Stores{
		Products:      ProductStore{s},
		Accounts:      AccountStore{s},
		Orders:        OrderStore{s},
		RefreshTokens: RefreshTokenStore{s},
	}
}

// newestFirst mirrors the createdAt descending sort of the Mongo stores. Ties fall back to
// the ObjectID, which grows with insertion order.
func newestFirst[T any](items []T, createdAt func(T) int64, id func(T) primitive.ObjectID) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := createdAt(items[i]), createdAt(items[j])
		if ci != cj {
			return ci > cj
		}
		a, b := id(items[i]), id(items[j])
		return a.Hex() > b.Hex()
	})
}
