package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*Customer, error)
	GetAccount(ctx context.Context, customerID uuid.UUID) (*Customer, error)
	UpdateAccount(ctx context.Context, customerID uuid.UUID, upd ProfileUpdate) (*Customer, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*Customer, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" {
		return nil, fmt.Errorf("%w: username required", ErrInvalidInput)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password required", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password too long", ErrInvalidInput)
		}
		log.Error().Err(err).Msg("service: failed to hash password")
		return nil, fmt.Errorf("service: failed to hash password: %w", err)
	}

	u := &User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
	}
	c := &Customer{
		BillingAddress:  strings.TrimSpace(in.BillingAddress),
		ShippingAddress: strings.TrimSpace(in.ShippingAddress),
		PaymentInfo:     strings.TrimSpace(in.PaymentInfo),
	}

	if err := s.repo.CreateWithUser(ctx, u, c); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			log.Warn().Str("username", in.Username).Msg("service: username already taken")
			return nil, ErrUsernameTaken
		}
		log.Error().Err(err).Str("username", in.Username).Msg("service: failed to register customer")
		return nil, fmt.Errorf("service: failed to register customer: %w", err)
	}

	log.Info().Stringer("customer_id", c.ID).Stringer("user_id", u.ID).Msg("service: customer registered")
	return c, nil
}

func (s *service) GetAccount(ctx context.Context, customerID uuid.UUID) (*Customer, error) {
	c, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			return nil, ErrCustomerNotFound
		}
		log.Error().Err(err).Stringer("customer_id", customerID).Msg("service: failed to get account")
		return nil, fmt.Errorf("service: failed to get account: %w", err)
	}
	return c, nil
}

func (s *service) UpdateAccount(ctx context.Context, customerID uuid.UUID, upd ProfileUpdate) (*Customer, error) {
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		return &v
	}
	upd.Email = trim(upd.Email)
	upd.BillingAddress = trim(upd.BillingAddress)
	upd.ShippingAddress = trim(upd.ShippingAddress)
	upd.PaymentInfo = trim(upd.PaymentInfo)

	if upd.Email != nil && *upd.Email == "" {
		return nil, fmt.Errorf("%w: email cannot be empty", ErrInvalidInput)
	}
	if upd.IsEmpty() {
		return s.GetAccount(ctx, customerID)
	}

	c, err := s.repo.UpdateProfile(ctx, customerID, upd)
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			return nil, ErrCustomerNotFound
		}
		log.Error().Err(err).Stringer("customer_id", customerID).Msg("service: failed to update account")
		return nil, fmt.Errorf("service: failed to update account: %w", err)
	}

	log.Info().Stringer("customer_id", customerID).Msg("service: account updated")
	return c, nil
}
