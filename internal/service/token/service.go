package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gemcraft/storefront/internal/hash"
	"github.com/gemcraft/storefront/internal/models"
	"github.com/gemcraft/storefront/internal/session"
)

const (
	AccessTTLUser  = 2 * time.Hour
	AccessTTLAdmin = 7 * 24 * time.Hour
	RefreshTTL     = 15 * 24 * time.Hour

	MaxLoginAttempts = 5
	LockDuration     = 15 * time.Minute
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	// ErrTokenReused means a rotated-out refresh token was presented again.
	ErrTokenReused = errors.New("refresh token reuse detected")
	ErrInactive    = errors.New("account is deactivated")
)

// LockedError reports how long the caller has to wait before retrying.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	remaining := time.Until(e.Until).Round(time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("account locked, try again in %s", remaining)
}

type AccessClaims struct {
	UserID    uint        `json:"userId"`
	Role      models.Role `json:"role"`
	Email     string      `json:"email"`
	IsAdmin   bool        `json:"isAdmin"`
	SessionID string      `json:"sessionId"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	UserID    uint        `json:"userId"`
	Role      models.Role `json:"role"`
	SessionID string      `json:"sessionId"`
	jwt.RegisteredClaims
}

type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type Service struct {
	DB            *gorm.DB
	JWTSecret     []byte
	RefreshSecret []byte
	Sessions      session.Store

	// Now is swappable for lockout-window tests.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// IssueTokens signs a fresh access/refresh pair under a new session. The
// refresh token overwrites whatever was stored on the user record, so a login
// elsewhere ends the refresh capability of earlier sessions.
func (s *Service) IssueTokens(ctx context.Context, user *models.User, adminLogin bool) (Pair, error) {
	sessionID := uuid.NewString()

	accessTTL := AccessTTLUser
	if adminLogin && user.Role == models.RoleAdmin {
		accessTTL = AccessTTLAdmin
	}
	now := s.now()
	accessExp := now.Add(accessTTL)
	refreshExp := now.Add(RefreshTTL)

	accessClaims := AccessClaims{
		UserID:    user.ID,
		Role:      user.Role,
		Email:     user.Email,
		IsAdmin:   user.Role == models.RoleAdmin,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(s.JWTSecret)
	if err != nil {
		return Pair{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshClaims := RefreshClaims{
		UserID:    user.ID,
		Role:      user.Role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
	}
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(s.RefreshSecret)
	if err != nil {
		return Pair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("refresh_token", refresh).Error; err != nil {
		return Pair{}, fmt.Errorf("persist refresh token: %w", err)
	}

	if err := s.Sessions.Create(ctx, session.Session{
		ID:           sessionID,
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		LastActivity: now,
	}); err != nil {
		return Pair{}, fmt.Errorf("register session: %w", err)
	}

	return Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Login authenticates credentials, enforcing the lockout counter on the user
// record. adminLogin asks for the extended admin token lifetime and is only
// honored for admin accounts.
func (s *Service) Login(ctx context.Context, email, password string, adminLogin bool) (*models.User, Pair, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Pair{}, ErrInvalidCredentials
		}
		return nil, Pair{}, fmt.Errorf("load user: %w", err)
	}

	if !user.IsActive {
		return nil, Pair{}, ErrInactive
	}

	now := s.now()
	if user.LockUntil != nil && now.Before(*user.LockUntil) {
		return nil, Pair{}, &LockedError{Until: *user.LockUntil}
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		user.LoginAttempts++
		updates := map[string]any{"login_attempts": user.LoginAttempts}
		if user.LoginAttempts >= MaxLoginAttempts {
			lock := now.Add(LockDuration)
			user.LockUntil = &lock
			updates["lock_until"] = lock
		}
		if err := s.DB.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return nil, Pair{}, fmt.Errorf("record failed attempt: %w", err)
		}
		if user.LockUntil != nil && now.Before(*user.LockUntil) {
			return nil, Pair{}, &LockedError{Until: *user.LockUntil}
		}
		return nil, Pair{}, ErrInvalidCredentials
	}

	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"login_attempts": 0,
			"lock_until":     nil,
			"last_login_at":  now,
		}).Error; err != nil {
		return nil, Pair{}, fmt.Errorf("reset attempts: %w", err)
	}
	user.LoginAttempts = 0
	user.LockUntil = nil
	user.LastLoginAt = &now

	pair, err := s.IssueTokens(ctx, &user, adminLogin)
	if err != nil {
		return nil, Pair{}, err
	}
	return &user, pair, nil
}

// Rotate exchanges a refresh token for a new pair. The presented token must
// exactly match the one stored on the user record: anything else is a replay
// of a rotated-out token and is rejected.
func (s *Service) Rotate(ctx context.Context, raw string) (*models.User, Pair, error) {
	claims, err := s.ParseRefresh(raw)
	if err != nil {
		return nil, Pair{}, err
	}

	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Pair{}, ErrInvalidToken
		}
		return nil, Pair{}, fmt.Errorf("load user: %w", err)
	}

	if user.RefreshToken == nil || *user.RefreshToken != raw {
		return nil, Pair{}, ErrTokenReused
	}

	pair, err := s.IssueTokens(ctx, &user, claims.Role == models.RoleAdmin)
	if err != nil {
		return nil, Pair{}, err
	}
	return &user, pair, nil
}

// Revoke clears the stored refresh token and drops the session.
func (s *Service) Revoke(ctx context.Context, userID uint, sessionID string) error {
	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("refresh_token", nil).Error; err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	if sessionID != "" {
		return s.Sessions.Invalidate(ctx, sessionID)
	}
	return nil
}

func (s *Service) ParseAccess(raw string) (*AccessClaims, error) {
	var claims AccessClaims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected sign method: %v", t.Header["alg"])
		}
		return s.JWTSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func (s *Service) ParseRefresh(raw string) (*RefreshClaims, error) {
	var claims RefreshClaims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected sign method: %v", t.Header["alg"])
		}
		return s.RefreshSecret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
