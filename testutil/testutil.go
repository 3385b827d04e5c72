// Package testutil wires an in-memory store for HTTP-level tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tablebook/database"
	"tablebook/model"
	"tablebook/utils"
)

const Password = "secret-pass"

func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func NewTokens() *utils.TokenManager {
	return utils.NewTokenManager("test-secret", time.Hour, 2*time.Hour)
}

func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func CreateUser(t *testing.T, db *gorm.DB, name string, role model.Role) model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)
	user := model.User{
		Name:     name,
		Email:    model.NormalizeEmail(name + "@example.com"),
		Role:     role,
		Password: string(hash),
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func CreateRestaurant(t *testing.T, db *gorm.DB, name string) model.Restaurant {
	t.Helper()

	r := model.Restaurant{Name: name, Address: "1 Main St"}
	require.NoError(t, db.Create(&r).Error)
	return r
}

func CreateReservation(t *testing.T, db *gorm.DB, user model.User, restaurant model.Restaurant, status model.Status) model.Reservation {
	t.Helper()

	r := model.Reservation{
		UserID:       user.UserID,
		RestaurantID: restaurant.RestaurantID,
		Date:         "2025-06-01",
		Time:         "18:30",
		PeopleCount:  4,
		Status:       status,
		Version:      1,
	}
	require.NoError(t, db.Create(&r).Error)
	return r
}

func Token(t *testing.T, tokens *utils.TokenManager, user model.User) string {
	t.Helper()

	access, _, err := tokens.GenerateTokens(user.Role, user.UserID)
	require.NoError(t, err)
	return access
}

// Do sends a JSON request straight into handler. body may be nil.
func Do(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// Envelope is the response shape every handler writes.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Data    T      `json:"data"`
}

func Decode[T any](t *testing.T, rec *httptest.ResponseRecorder) Envelope[T] {
	t.Helper()

	var env Envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}
