package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tablebook/model"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("wrong token type")
)

// Claims is what a validated token says about its bearer.
type Claims struct {
	UserID uint
	Role   model.Role
}

type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (m *TokenManager) AccessTTL() time.Duration {
	return m.accessTTL
}

func (m *TokenManager) GenerateTokens(role model.Role, userID uint) (string, string, error) {
	access, err := m.sign(role, userID, tokenTypeAccess, m.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err := m.sign(role, userID, tokenTypeRefresh, m.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (m *TokenManager) sign(role model.Role, userID uint, typ string, ttl time.Duration) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_role": string(role),
		"id":        userID,
		"typ":       typ,
		"iat":       now.Unix(),
		"exp":       now.Add(ttl).Unix(),
	})
	return token.SignedString(m.secret)
}

// ValidateToken accepts access tokens only.
func (m *TokenManager) ValidateToken(tokenString string) (Claims, error) {
	return m.parse(tokenString, tokenTypeAccess)
}

func (m *TokenManager) RefreshTokens(oldRefreshToken string) (string, string, error) {
	claims, err := m.parse(oldRefreshToken, tokenTypeRefresh)
	if err != nil {
		return "", "", err
	}
	return m.GenerateTokens(claims.Role, claims.UserID)
}

func (m *TokenManager) parse(tokenString, typ string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if t, _ := claims["typ"].(string); t != typ {
		return Claims{}, ErrWrongTokenType
	}

	idFloat, ok := claims["id"].(float64)
	if !ok || idFloat <= 0 {
		return Claims{}, errors.New("id not found or invalid type")
	}
	roleStr, ok := claims["user_role"].(string)
	if !ok {
		return Claims{}, errors.New("role not found in token")
	}
	role, err := model.ParseRole(roleStr)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	return Claims{UserID: uint(idFloat), Role: role}, nil
}
