package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/customer"
)

// CredentialStore is the part of the customer store that login needs.
type CredentialStore interface {
	GetUserByUsername(ctx context.Context, username string) (*customer.User, error)
	EnsureForUser(ctx context.Context, userID uuid.UUID) (*customer.Customer, error)
}

type Service interface {
	Login(ctx context.Context, username, password string) (TokenPair, error)
	IssueTokens(p Principal) (TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
	Authenticate(ctx context.Context, accessToken string) (*Claims, error)
	Logout(ctx context.Context, access *Claims, refreshToken string) error
}

type service struct {
	credentials CredentialStore
	revocations RevocationStore
	tokens      *TokenManager
}

func NewService(credentials CredentialStore, revocations RevocationStore, tokens *TokenManager) Service {
	return &service{
		credentials: credentials,
		revocations: revocations,
		tokens:      tokens,
	}
}

func (s *service) Login(ctx context.Context, username, password string) (TokenPair, error) {
	username = strings.TrimSpace(username)

	u, err := s.credentials.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, customer.ErrUserNotFound) {
			log.Warn().Str("username", username).Msg("service: login for unknown user")
			return TokenPair{}, ErrInvalidCredentials
		}
		log.Error().Err(err).Str("username", username).Msg("service: failed to load user for login")
		return TokenPair{}, fmt.Errorf("service: failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		log.Warn().Stringer("user_id", u.ID).Msg("service: wrong password")
		return TokenPair{}, ErrInvalidCredentials
	}

	c, err := s.credentials.EnsureForUser(ctx, u.ID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", u.ID).Msg("service: failed to resolve customer for login")
		return TokenPair{}, fmt.Errorf("service: failed to resolve customer: %w", err)
	}

	pair, err := s.IssueTokens(Principal{UserID: u.ID, CustomerID: c.ID})
	if err != nil {
		return TokenPair{}, err
	}

	log.Info().Stringer("user_id", u.ID).Msg("service: user logged in")
	return pair, nil
}

func (s *service) IssueTokens(p Principal) (TokenPair, error) {
	pair, err := s.tokens.Issue(p)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", p.UserID).Msg("service: failed to issue tokens")
		return TokenPair{}, fmt.Errorf("service: failed to issue tokens: %w", err)
	}
	return pair, nil
}

// Refresh rotates the refresh token: the presented one is revoked and a new
// pair is issued. Only one of several concurrent refreshes of the same token
// wins the revocation; the others get ErrInvalidToken.
func (s *service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.parseLive(ctx, refreshToken, TokenRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	p, err := claims.Principal()
	if err != nil {
		return TokenPair{}, err
	}

	first, err := s.revoke(ctx, claims)
	if err != nil {
		return TokenPair{}, err
	}
	if !first {
		return TokenPair{}, fmt.Errorf("%w: refresh token already used", ErrInvalidToken)
	}
	return s.IssueTokens(p)
}

func (s *service) Authenticate(ctx context.Context, accessToken string) (*Claims, error) {
	claims, err := s.parseLive(ctx, accessToken, TokenAccess)
	if err != nil {
		return nil, err
	}
	if _, err := claims.Principal(); err != nil {
		return nil, err
	}
	return claims, nil
}

// Logout revokes the access token of the current request and, when given,
// the refresh token of the same user.
func (s *service) Logout(ctx context.Context, access *Claims, refreshToken string) error {
	if refreshToken != "" {
		refresh, err := s.tokens.Parse(refreshToken, TokenRefresh)
		if err != nil {
			return err
		}
		if refresh.UserID != access.UserID {
			return fmt.Errorf("%w: refresh token belongs to another user", ErrInvalidToken)
		}
		if _, err := s.revoke(ctx, refresh); err != nil {
			return err
		}
	}

	if _, err := s.revoke(ctx, access); err != nil {
		return err
	}

	log.Info().Str("user_id", access.UserID).Msg("service: user logged out")
	return nil
}

func (s *service) parseLive(ctx context.Context, raw string, want TokenType) (*Claims, error) {
	claims, err := s.tokens.Parse(raw, want)
	if err != nil {
		return nil, err
	}
	jti, err := claims.JTI()
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, jti)
	if err != nil {
		log.Error().Err(err).Stringer("jti", jti).Msg("service: failed to check token revocation")
		return nil, fmt.Errorf("service: failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", ErrInvalidToken)
	}
	return claims, nil
}

func (s *service) revoke(ctx context.Context, claims *Claims) (bool, error) {
	jti, err := claims.JTI()
	if err != nil {
		return false, err
	}
	if claims.ExpiresAt == nil {
		return false, fmt.Errorf("%w: missing expiry", ErrInvalidToken)
	}
	first, err := s.revocations.Revoke(ctx, jti, claims.ExpiresAt.Time)
	if err != nil {
		log.Error().Err(err).Stringer("jti", jti).Msg("service: failed to revoke token")
		return false, fmt.Errorf("service: failed to revoke token: %w", err)
	}
	return first, nil
}
