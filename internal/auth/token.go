package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yourusername/book-catalog/internal/apperr"
)

// Claims はアクセストークンのクレームです。
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenVerifier はトークンを検証してユーザー名を返します。
type TokenVerifier interface {
	Verify(raw string) (string, error)
}

// TokenIssuer は HS256 で署名したアクセストークンを発行・検証します。
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer は TokenIssuer を作成します。now が nil の場合は time.Now を使用します。
func NewTokenIssuer(secret []byte, ttl time.Duration, now func() time.Time) *TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{secret: secret, ttl: ttl, now: now}
}

// Issue は username のトークンと有効期限を返します。
func (t *TokenIssuer) Issue(username string) (string, time.Time, error) {
	now := t.now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify はアルゴリズム、署名、有効期限を検証します。
// 期限切れは KindTokenExpired、それ以外の不正は KindTokenInvalid の *apperr.Error を返します。
func (t *TokenIssuer) Verify(raw string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperr.TokenExpired(MsgTokenExpired)
		}
		return "", apperr.TokenInvalid(MsgTokenInvalid)
	}
	if !token.Valid || claims.Username == "" {
		return "", apperr.TokenInvalid(MsgTokenInvalid)
	}
	return claims.Username, nil
}
