package memstore

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/333Kunal/E-com/internal/database"
	"github.com/333Kunal/E-com/internal/models"
)

type AccountStore struct{ s *Store }

func (a AccountStore) Create(_ context.Context, account *models.Account) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	account.Email = normalizeEmail(account.Email)
	if a.s.conflicts(primitive.NilObjectID, account.Email, account.Username) {
		return database.ErrDuplicate
	}

	now := time.Now()
	account.ID = primitive.NewObjectID()
	account.CreatedAt = now
	account.UpdatedAt = now
	a.s.accounts[account.ID] = *account
	return nil
}

func (a AccountStore) FindByID(_ context.Context, id primitive.ObjectID) (models.Account, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	account, ok := a.s.accounts[id]
	if !ok {
		return models.Account{}, database.ErrNotFound
	}
	return account, nil
}

func (a AccountStore) FindByEmail(_ context.Context, email string) (models.Account, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	email = normalizeEmail(email)
	for _, account := range a.s.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return models.Account{}, database.ErrNotFound
}

func (a AccountStore) List(_ context.Context) ([]models.Account, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	accounts := make([]models.Account, 0, len(a.s.accounts))
	for _, account := range a.s.accounts {
		accounts = append(accounts, account)
	}
	newestFirst(accounts,
		func(a models.Account) int64 { return a.CreatedAt.UnixNano() },
		func(a models.Account) primitive.ObjectID { return a.ID })
	return accounts, nil
}

func (a AccountStore) Update(_ context.Context, id primitive.ObjectID, update models.AccountUpdate) (models.Account, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	account, ok := a.s.accounts[id]
	if !ok {
		return models.Account{}, database.ErrNotFound
	}
	if update.Username != nil {
		account.Username = *update.Username
	}
	if update.Name != nil {
		account.Name = *update.Name
	}
	if update.Email != nil {
		account.Email = normalizeEmail(*update.Email)
	}
	if update.Role != nil {
		account.Role = *update.Role
	}
	if update.Phone != nil {
		account.Phone = *update.Phone
	}
	if update.Address != nil {
		account.Address = *update.Address
	}
	if update.PasswordHash != nil {
		account.PasswordHash = *update.PasswordHash
	}
	if a.s.conflicts(id, account.Email, account.Username) {
		return models.Account{}, database.ErrDuplicate
	}

	account.UpdatedAt = time.Now()
	a.s.accounts[id] = account
	return account, nil
}

func (a AccountStore) Delete(_ context.Context, id primitive.ObjectID) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if _, ok := a.s.accounts[id]; !ok {
		return database.ErrNotFound
	}
	delete(a.s.accounts, id)
	return nil
}

// conflicts reports whether another account already holds email or a non-empty username.
// Callers hold the write lock.
func (s *Store) conflicts(self primitive.ObjectID, email, username string) bool {
	for id, other := range s.accounts {
		if id == self {
			continue
		}
		if other.Email == email {
			return true
		}
		if username != "" && other.Username == username {
			return true
		}
	}
	return false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
