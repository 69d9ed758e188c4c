package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/catalog"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/checkout"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/customer"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/order"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/payment"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, customer.ErrCustomerNotFound),
		errors.Is(err, cart.ErrCustomerNotFound),
		errors.Is(err, catalog.ErrCustomerNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, customer.ErrUsernameTaken),
		errors.Is(err, checkout.ErrCartChanged):
		return http.StatusConflict
	case errors.Is(err, payment.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInsufficientStock),
		errors.Is(err, checkout.ErrMissingAddress),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, catalog.ErrInvalidInput),
		errors.Is(err, customer.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError writes the status mapped from err. Client errors
// carry the error text; everything else gets fallback so internals stay in
// the log.
func respondWithServiceError(w http.ResponseWriter, err error, fallback string) {
	statusCode := mapErrorToStatusCode(err)
	if statusCode >= http.StatusInternalServerError {
		log.Error().Err(err).Msg(fallback)
		respondWithError(w, statusCode, fallback)
		return
	}

	log.Warn().Err(err).Int("status", statusCode).Msg(fallback)
	respondWithError(w, statusCode, clientMessage(err))
}

func clientMessage(err error) string {
	var stockErr *checkout.InsufficientStockError
	if errors.As(err, &stockErr) {
		return fmt.Sprintf("Not enough stock for %s", stockErr.ProductName)
	}

	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return "Product not found"
	case errors.Is(err, order.ErrOrderNotFound):
		return "Order not found"
	case errors.Is(err, customer.ErrCustomerNotFound), errors.Is(err, cart.ErrCustomerNotFound),
		errors.Is(err, catalog.ErrCustomerNotFound):
		return "Customer not found"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, auth.ErrInvalidToken):
		return "Invalid or expired token"
	case errors.Is(err, customer.ErrUsernameTaken):
		return "Username already taken"
	case errors.Is(err, checkout.ErrCartChanged):
		return "Cart changed during payment, please retry"
	case errors.Is(err, payment.ErrPaymentDeclined):
		return "Payment declined"
	case errors.Is(err, checkout.ErrEmptyCart):
		return "Cart is empty"
	case errors.Is(err, checkout.ErrInsufficientStock):
		return "Not enough stock"
	case errors.Is(err, checkout.ErrMissingAddress):
		return "Shipping and billing address required"
	}
	return capitalize(err.Error())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		field := fe.Field()
		switch fe.ActualTag() {
		case "required":
			details[field] = "This field is required"
		case "min":
			details[field] = fmt.Sprintf("Must be at least %s", fe.Param())
		case "max":
			details[field] = fmt.Sprintf("Must be at most %s", fe.Param())
		case "gt":
			details[field] = fmt.Sprintf("Must be greater than %s", fe.Param())
		case "gte":
			details[field] = fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
		case "lte":
			details[field] = fmt.Sprintf("Must be less than or equal to %s", fe.Param())
		case "email":
			details[field] = "Must be a valid email address"
		default:
			details[field] = fmt.Sprintf("Failed on the '%s' rule", fe.Tag())
		}
	}
	return details
}

// newValidator reports json tag names in validation details and registers
// the domain aliases used by request DTOs.
func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterAlias("cart_quantity", fmt.Sprintf("gte=1,lte=%d", cart.MaxLineQuantity))
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}

// decodeAndValidate reads a JSON body into dst and validates it. It writes
// the error response itself and reports whether the handler may continue.
// An empty body is accepted when allowEmpty is set.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst any, allowEmpty bool) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			log.Warn().Err(err).Msg("Failed to decode request body")
			respondWithError(w, http.StatusBadRequest, "Invalid request payload")
			return false
		}
	}

	return validateRequest(w, validate, dst)
}

func validateRequest(w http.ResponseWriter, validate *validator.Validate, v any) bool {
	err := validate.Struct(v)
	if err == nil {
		return true
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:   "Validation failed",
			Details: formatValidationErrors(validationErrors),
		})
	} else {
		log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
		respondWithError(w, http.StatusInternalServerError, "Internal validation error")
	}
	return false
}

// principalOrUnauthorized reads the caller set by RequireAuth.
func principalOrUnauthorized(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication credentials were not provided")
	}
	return p, ok
}

// orEmpty keeps empty collections encoded as [] rather than null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
