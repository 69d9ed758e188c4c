package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/config"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Principal identifies the authenticated caller.
type Principal struct {
	UserID     uuid.UUID
	CustomerID uuid.UUID
}

// Claims carries the principal and the token type next to the registered
// claims. RegisteredClaims.ID is the jti used for revocation.
type Claims struct {
	UserID     string    `json:"user_id"`
	CustomerID string    `json:"customer_id"`
	TokenType  TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

func (c *Claims) Principal() (Principal, error) {
	userID, err := uuid.FromString(c.UserID)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: bad user_id claim", ErrInvalidToken)
	}
	customerID, err := uuid.FromString(c.CustomerID)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: bad customer_id claim", ErrInvalidToken)
	}
	return Principal{UserID: userID, CustomerID: customerID}, nil
}

// JTI returns the token id parsed as a uuid.
func (c *Claims) JTI() (uuid.UUID, error) {
	jti, err := uuid.FromString(c.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad jti", ErrInvalidToken)
	}
	return jti, nil
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	return &TokenManager{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        time.Now,
	}
}

func (m *TokenManager) Issue(p Principal) (TokenPair, error) {
	access, err := m.sign(p, TokenAccess, m.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.sign(p, TokenRefresh, m.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *TokenManager) sign(p Principal, typ TokenType, ttl time.Duration) (string, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("failed to generate token id: %w", err)
	}

	now := m.now()
	claims := Claims{
		UserID:     p.UserID.String(),
		CustomerID: p.CustomerID.String(),
		TokenType:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   p.UserID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", typ, err)
	}
	return signed, nil
}

// Parse validates signature, issuer, expiry and token type. Every failure is
// reported as ErrInvalidToken.
func (m *TokenManager) Parse(tokenString string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != want {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, want, claims.TokenType)
	}
	return claims, nil
}
