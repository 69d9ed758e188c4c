// Package payment decides whether a charge is accepted. The only implementation
// shipped is a random placeholder; a gateway client can replace it behind
// Authorizer without touching order creation.
package payment

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var ErrPaymentDeclined = errors.New("payment declined")

type Decision string

const (
	Approved Decision = "approved"
	Declined Decision = "declined"
)

type Charge struct {
	CustomerID uuid.UUID
	Amount     decimal.Decimal
	// Instrument is the payment details on file. The random authorizer ignores it.
	Instrument string
}

type Authorizer interface {
	Authorize(ctx context.Context, charge Charge) (Decision, error)
}

// RandomAuthorizer declines each charge with a fixed probability.
type RandomAuthorizer struct {
	denialRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomAuthorizer uses rng when given, otherwise a randomly seeded source.
func NewRandomAuthorizer(denialRate float64, rng *rand.Rand) *RandomAuthorizer {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RandomAuthorizer{denialRate: denialRate, rng: rng}
}

func (a *RandomAuthorizer) Authorize(ctx context.Context, charge Charge) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	a.mu.Lock()
	roll := a.rng.Float64()
	a.mu.Unlock()

	if roll < a.denialRate {
		log.Info().
			Stringer("customer_id", charge.CustomerID).
			Str("amount", charge.Amount.StringFixed(2)).
			Msg("payment: charge declined")
		return Declined, nil
	}

	log.Info().
		Stringer("customer_id", charge.CustomerID).
		Str("amount", charge.Amount.StringFixed(2)).
		Msg("payment: charge approved")
	return Approved, nil
}
