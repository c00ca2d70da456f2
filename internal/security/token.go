package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sidpg123/filemate-be/internal/models"
)

// Token parse failures, distinguished so handlers can report the right
// authentication subtype.
var (
	// ErrTokenExpired reports a structurally valid token past its expiry.
	ErrTokenExpired = errors.New("security: token expired")
	// ErrTokenInvalid reports a malformed, mis-signed, or mis-typed token.
	ErrTokenInvalid = errors.New("security: token invalid")
)

// Claims is the JWT payload carried by both access and refresh tokens.
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies the access and refresh token pair. Access and
// refresh tokens use separate secrets so a leaked refresh secret cannot mint
// access tokens.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenIssuer constructs a TokenIssuer. Zero TTLs fall back to 15 minutes
// for access and 7 days for refresh tokens.
func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssueAccess signs a short-lived access token for the account.
func (i *TokenIssuer) IssueAccess(account models.Account) (string, error) {
	return i.sign(account, i.accessSecret, i.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for the account.
func (i *TokenIssuer) IssueRefresh(account models.Account) (string, error) {
	return i.sign(account, i.refreshSecret, i.refreshTTL)
}

func (i *TokenIssuer) sign(account models.Account, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Role: account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(account.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, errSign := token.SignedString(secret)
	if errSign != nil {
		return "", fmt.Errorf("security: sign token: %w", errSign)
	}
	return signed, nil
}

// ParseAccess verifies an access token and returns its claims.
func (i *TokenIssuer) ParseAccess(raw string) (*Claims, error) {
	return parse(raw, i.accessSecret)
}

// ParseRefresh verifies a refresh token and returns its claims.
func (i *TokenIssuer) ParseRefresh(raw string) (*Claims, error) {
	return parse(raw, i.refreshSecret)
}

func parse(raw string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, errParse := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return secret, nil
	})
	if errParse != nil {
		if errors.Is(errParse, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid || !claims.Role.Valid() {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// AccountID extracts the numeric account ID from the claims subject.
func (c *Claims) AccountID() (uint64, error) {
	id, errParse := strconv.ParseUint(c.Subject, 10, 64)
	if errParse != nil {
		return 0, ErrTokenInvalid
	}
	return id, nil
}
