package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/333Kunal/E-com/internal/database"
	"github.com/333Kunal/E-com/internal/database/memstore"
	"github.com/333Kunal/E-com/internal/models"
)

const secret = "test-secret"

func newGate(t *testing.T) (*Gate, database.Stores) {
	t.Helper()
	stores := memstore.New().Stores()
	return NewGate(stores.Accounts, stores.RefreshTokens, Config{Secret: secret, AccessTTL: time.Minute, RefreshTTL: time.Hour}), stores
}

func TestPolicyIsAnAllowList(t *testing.T) {
	p := NewPolicy("admin", " Manager ", "")

	assert.True(t, p.IsPrivileged("admin"))
	assert.True(t, p.IsPrivileged("manager"))
	assert.False(t, p.IsPrivileged("user"))
	assert.False(t, p.IsPrivileged(""))
	assert.Equal(t, []string{"admin", "manager"}, p.Roles())

	assert.False(t, NewPolicy().IsPrivileged("admin"))
}

func TestRegisterLoginAuthenticate(t *testing.T) {
	gate, _ := newGate(t)
	ctx := context.Background()

	session, err := gate.Register(ctx, RegisterInput{Name: "Asha", Email: "Asha@Example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	assert.Equal(t, models.RoleUser, session.Account.Role)
	assert.Equal(t, int64(60), session.ExpiresIn)

	_, err = gate.Register(ctx, RegisterInput{Name: "Again", Email: "asha@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = gate.Login(ctx, "asha@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = gate.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	login, err := gate.Login(ctx, "ASHA@example.com", "secret123")
	require.NoError(t, err)

	identity, err := gate.Authenticate(ctx, login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.Account.ID, identity.AccountID)
	assert.Equal(t, models.RoleUser, identity.Role)
}

func TestAuthenticateSeesRoleChangesAndDeletion(t *testing.T) {
	gate, stores := newGate(t)
	ctx := context.Background()

	session, err := gate.Register(ctx, RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "secret123"})
	require.NoError(t, err)

	admin := models.RoleAdmin
	_, err = stores.Accounts.Update(ctx, session.Account.ID, models.AccountUpdate{Role: &admin})
	require.NoError(t, err)

	identity, err := gate.Authenticate(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, identity.Role)

	require.NoError(t, stores.Accounts.Delete(ctx, session.Account.ID))
	_, err = gate.Authenticate(ctx, session.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	gate, _ := newGate(t)
	ctx := context.Background()

	other, err := issueAccessToken(primitive.NewObjectID(), "x@example.com", "other-secret", time.Minute, time.Now())
	require.NoError(t, err)
	expired, err := issueAccessToken(primitive.NewObjectID(), "x@example.com", secret, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"userId": primitive.NewObjectID().Hex()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "abc.def.ghi",
		"empty":        "",
		"wrong secret": other,
		"expired":      expired,
		"alg none":     unsigned,
	} {
		_, err := gate.Authenticate(ctx, token)
		assert.ErrorIs(t, err, ErrUnauthenticated, name)
	}
}

func TestRefreshRotatesOnce(t *testing.T) {
	gate, _ := newGate(t)
	ctx := context.Background()

	session, err := gate.Register(ctx, RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "secret123"})
	require.NoError(t, err)

	rotated, err := gate.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)

	_, err = gate.Refresh(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	require.NoError(t, gate.Logout(ctx, rotated.RefreshToken))
	_, err = gate.Refresh(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	assert.ErrorIs(t, gate.Logout(ctx, rotated.RefreshToken), ErrInvalidRefreshToken)
	assert.ErrorIs(t, gate.Logout(ctx, " "), ErrInvalidRefreshToken)
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("  ")
	assert.Error(t, err)

	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)
}
