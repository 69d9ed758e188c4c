package customer

import (
	"strings"
	"time"

	"github.com/gofrs/uuid"
)

// User is the login principal. A user owns exactly one Customer profile.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type Customer struct {
	ID              uuid.UUID `json:"id" db:"id"`
	UserID          uuid.UUID `json:"user_id" db:"user_id"`
	Username        string    `json:"username" db:"username"`
	Email           string    `json:"email" db:"email"`
	BillingAddress  string    `json:"billing_address" db:"billing_address"`
	ShippingAddress string    `json:"shipping_address" db:"shipping_address"`
	PaymentInfo     string    `json:"payment_info" db:"payment_info"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// RegisterInput carries the plain-text password; it is hashed before storage.
type RegisterInput struct {
	Username        string
	Password        string
	Email           string
	BillingAddress  string
	ShippingAddress string
	PaymentInfo     string
}

// ProfileUpdate holds the account fields to change. Nil fields are left as is.
type ProfileUpdate struct {
	Email           *string
	BillingAddress  *string
	ShippingAddress *string
	PaymentInfo     *string
}

func (u ProfileUpdate) IsEmpty() bool {
	return u.Email == nil && u.BillingAddress == nil && u.ShippingAddress == nil && u.PaymentInfo == nil
}

// MaskPaymentInfo keeps only the last four characters of the stored payment
// details. Values of four characters or fewer are masked completely.
func MaskPaymentInfo(info string) string {
	runes := []rune(info)
	if len(runes) == 0 {
		return ""
	}
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}
