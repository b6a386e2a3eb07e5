package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/medreport/apiserver/types"
)

// ErrUnauthenticated is the only error Validate returns. The cause of a
// rejected token is not reported.
var ErrUnauthenticated = errors.New("unauthenticated")

// TokenConfig configures a TokenManager.
type TokenConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	Lifetime time.Duration
}

// Claims is the payload of a session token.
type Claims struct {
	jwt.RegisteredClaims
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// Identity is the caller resolved from a valid token.
type Identity struct {
	UserID    int
	Email     string
	Name      string
	ExpiresAt time.Time
}

// TokenManager issues and validates HS256 session tokens. It holds no
// mutable state and is safe for concurrent use.
type TokenManager struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokenManager(cfg TokenConfig) *TokenManager {
	return &TokenManager{cfg: cfg, now: time.Now}
}

// Issue mints a token bound to the user's email, id and name.
func (m *TokenManager) Issue(user types.User) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			Issuer:    m.cfg.Issuer,
			Audience:  jwt.ClaimStrings{m.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.Lifetime)),
		},
		UID:  strconv.Itoa(user.ID),
		Name: user.FullName,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.cfg.Secret)
}

// Validate checks signature, issuer, audience and expiry and returns the
// embedded identity.
func (m *TokenManager) Validate(tokenString string) (Identity, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return m.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithAudience(m.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return Identity{}, ErrUnauthenticated
	}

	uid, err := strconv.Atoi(strings.TrimSpace(claims.UID))
	if err != nil || uid < 1 {
		return Identity{}, ErrUnauthenticated
	}

	return Identity{
		UserID:    uid,
		Email:     claims.Subject,
		Name:      claims.Name,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
