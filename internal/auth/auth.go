// Package auth issues and verifies bearer access tokens and hashes passwords.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrEmptySecret  = errors.New("empty signing secret")
)

// Claims carries the account (Subject) and its profile.
type Claims struct {
	ProfileID string `json:"pid"`
	jwt.RegisteredClaims
}

// Issuer signs and parses HS256 access tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration

	// Now is the clock; tests override it.
	Now func() time.Time
}

// NewIssuer returns an Issuer for the HMAC secret and token lifetime.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, Now: time.Now}, nil
}

// Issue returns a signed token for accountID/profileID and its expiry.
func (i *Issuer) Issue(accountID, profileID string) (string, time.Time, error) {
	now := i.Now()
	exp := now.Add(i.ttl)
	claims := Claims{
		ProfileID: profileID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse verifies the signature and expiry and returns the claims.
func (i *Issuer) Parse(tokenValue string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenValue, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.Now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ProfileID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
