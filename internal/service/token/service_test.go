package token

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gemcraft/storefront/internal/hash"
	"github.com/gemcraft/storefront/internal/models"
	"github.com/gemcraft/storefront/internal/session"
)

type tokenEnv struct {
	Svc      *Service
	DB       *gorm.DB
	Registry *session.Registry
	Clock    time.Time
}

func newTokenEnv(t *testing.T) *tokenEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	registry := session.NewRegistry(2*time.Hour, time.Hour)
	t.Cleanup(registry.Close)

	env := &tokenEnv{DB: db, Registry: registry, Clock: time.Now()}
	env.Svc = &Service{
		DB:            db,
		JWTSecret:     []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		Sessions:      registry,
		Now:           func() time.Time { return env.Clock },
	}
	return env
}

func (env *tokenEnv) createUser(t *testing.T, email, password string, role models.Role) *models.User {
	t.Helper()
	pwHash, err := hash.HashPassword(password)
	require.NoError(t, err)
	user := models.User{Email: email, PasswordHash: pwHash, Role: role, IsActive: true}
	require.NoError(t, env.DB.Create(&user).Error)
	return &user
}

func TestLoginIssuesTokensAndSession(t *testing.T) {
	env := newTokenEnv(t)
	env.createUser(t, "buyer@example.com", "password123", models.RoleUser)

	user, pair, err := env.Svc.Login(context.Background(), "  Buyer@Example.COM ", "password123", false)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := env.Svc.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, models.RoleUser, claims.Role)
	require.Equal(t, "buyer@example.com", claims.Email)
	require.False(t, claims.IsAdmin)
	require.NotEmpty(t, claims.SessionID)
	require.Equal(t, AccessTTLUser, claims.ExpiresAt.Sub(claims.IssuedAt.Time))

	_, live := env.Registry.Validate(context.Background(), claims.SessionID)
	require.True(t, live)

	var stored models.User
	require.NoError(t, env.DB.First(&stored, user.ID).Error)
	require.NotNil(t, stored.RefreshToken)
	require.Equal(t, pair.RefreshToken, *stored.RefreshToken)
	require.NotNil(t, stored.LastLoginAt)
}

func TestAdminLoginGetsExtendedLifetime(t *testing.T) {
	env := newTokenEnv(t)
	env.createUser(t, "admin@example.com", "password123", models.RoleAdmin)

	_, pair, err := env.Svc.Login(context.Background(), "admin@example.com", "password123", true)
	require.NoError(t, err)

	claims, err := env.Svc.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	require.True(t, claims.IsAdmin)
	require.Equal(t, AccessTTLAdmin, claims.ExpiresAt.Sub(claims.IssuedAt.Time))

	// A plain user asking for the admin lifetime does not get it.
	env.createUser(t, "buyer@example.com", "password123", models.RoleUser)
	_, pair, err = env.Svc.Login(context.Background(), "buyer@example.com", "password123", true)
	require.NoError(t, err)
	claims, err = env.Svc.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, AccessTTLUser, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTokenEnv(t)
	env.createUser(t, "buyer@example.com", "password123", models.RoleUser)

	_, _, err := env.Svc.Login(context.Background(), "buyer@example.com", "wrong", false)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = env.Svc.Login(context.Background(), "nobody@example.com", "password123", false)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginInactiveAccount(t *testing.T) {
	env := newTokenEnv(t)
	user := env.createUser(t, "gone@example.com", "password123", models.RoleUser)
	require.NoError(t, env.DB.Model(user).Update("is_active", false).Error)

	_, _, err := env.Svc.Login(context.Background(), "gone@example.com", "password123", false)
	require.ErrorIs(t, err, ErrInactive)
}

func TestLoginLockout(t *testing.T) {
	env := newTokenEnv(t)
	env.createUser(t, "buyer@example.com", "password123", models.RoleUser)
	ctx := context.Background()

	for i := 0; i < MaxLoginAttempts-1; i++ {
		_, _, err := env.Svc.Login(ctx, "buyer@example.com", "wrong", false)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// The attempt that reaches the cap locks the account.
	_, _, err := env.Svc.Login(ctx, "buyer@example.com", "wrong", false)
	var locked *LockedError
	require.ErrorAs(t, err, &locked)

	// Even the right password is refused while the lock holds.
	_, _, err = env.Svc.Login(ctx, "buyer@example.com", "password123", false)
	require.ErrorAs(t, err, &locked)

	env.Clock = env.Clock.Add(LockDuration + time.Second)
	user, _, err := env.Svc.Login(ctx, "buyer@example.com", "password123", false)
	require.NoError(t, err)
	require.Zero(t, user.LoginAttempts)
	require.Nil(t, user.LockUntil)
}

func TestRotateExchangesAndRejectsReplay(t *testing.T) {
	env := newTokenEnv(t)
	env.createUser(t, "buyer@example.com", "password123", models.RoleUser)
	ctx := context.Background()

	_, first, err := env.Svc.Login(ctx, "buyer@example.com", "password123", false)
	require.NoError(t, err)

	_, second, err := env.Svc.Rotate(ctx, first.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The rotated-out token is dead.
	_, _, err = env.Svc.Rotate(ctx, first.RefreshToken)
	require.ErrorIs(t, err, ErrTokenReused)

	// The current one still works.
	_, _, err = env.Svc.Rotate(ctx, second.RefreshToken)
	require.NoError(t, err)
}

func TestRotateRejectsGarbage(t *testing.T) {
	env := newTokenEnv(t)
	_, _, err := env.Svc.Rotate(context.Background(), "not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevoke(t *testing.T) {
	env := newTokenEnv(t)
	user := env.createUser(t, "buyer@example.com", "password123", models.RoleUser)
	ctx := context.Background()

	_, pair, err := env.Svc.Login(ctx, "buyer@example.com", "password123", false)
	require.NoError(t, err)
	claims, err := env.Svc.ParseAccess(pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, env.Svc.Revoke(ctx, user.ID, claims.SessionID))

	var stored models.User
	require.NoError(t, env.DB.First(&stored, user.ID).Error)
	require.Nil(t, stored.RefreshToken)

	_, live := env.Registry.Validate(ctx, claims.SessionID)
	require.False(t, live)

	_, _, err = env.Svc.Rotate(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenReused)
}

func TestParseAccessRejectsWrongSecret(t *testing.T) {
	env := newTokenEnv(t)
	env.createUser(t, "buyer@example.com", "password123", models.RoleUser)

	_, pair, err := env.Svc.Login(context.Background(), "buyer@example.com", "password123", false)
	require.NoError(t, err)

	other := &Service{JWTSecret: []byte("different"), RefreshSecret: []byte("different")}
	_, err = other.ParseAccess(pair.AccessToken)
	require.Error(t, err)

	// Refresh tokens are signed with their own secret.
	_, err = env.Svc.ParseAccess(pair.RefreshToken)
	require.Error(t, err)
}
