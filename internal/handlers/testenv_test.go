package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gemcraft/storefront/internal/config"
	"github.com/gemcraft/storefront/internal/hash"
	"github.com/gemcraft/storefront/internal/models"
	"github.com/gemcraft/storefront/internal/orders"
	"github.com/gemcraft/storefront/internal/service/token"
	"github.com/gemcraft/storefront/internal/session"
)

type testEnv struct {
	T        *testing.T
	E        *echo.Echo
	DB       *gorm.DB
	Registry *session.Registry
	Tokens   *token.Service
	Orders   *orders.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))

	registry := session.NewRegistry(2*time.Hour, time.Hour)
	t.Cleanup(registry.Close)

	return &testEnv{
		T:        t,
		E:        echo.New(),
		DB:       db,
		Registry: registry,
		Tokens: &token.Service{
			DB:            db,
			JWTSecret:     []byte("access-secret"),
			RefreshSecret: []byte("refresh-secret"),
			Sessions:      registry,
		},
		Orders: &orders.Service{DB: db},
	}
}

func (env *testEnv) doJSONRequest(method, path string, body any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	env.T.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) createUser(email, password string, role models.Role) *models.User {
	env.T.Helper()
	pwHash, err := hash.HashPassword(password)
	require.NoError(env.T, err)
	user := models.User{Email: email, PasswordHash: pwHash, Role: role, IsActive: true}
	require.NoError(env.T, env.DB.Create(&user).Error)
	return &user
}

// asUser mimics what the access gate attaches for an authenticated request.
func asUser(c echo.Context, user *models.User) {
	c.Set("userID", user.ID)
	c.Set("userRole", user.Role)
}

func requireHTTPError(t *testing.T, err error, code int) *echo.HTTPError {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError, got %v", err)
	require.Equal(t, code, he.Code)
	return he
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}
