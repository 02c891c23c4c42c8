package core

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	CheckoutErrorBadInput          = "CHECKOUT_BAD_INPUT"
	CheckoutErrorNoEligibleFlow    = "CHECKOUT_NO_ELIGIBLE_FLOW"
	CheckoutErrorExternalFailure   = "CHECKOUT_EXTERNAL_FAILURE"
	CheckoutErrorInternal          = "CHECKOUT_INTERNAL_ERROR"
	CheckoutErrorInvalidTransition = "CHECKOUT_INVALID_TRANSITION"

	// ErrorPayWithDifferentCard tells the caller to offer another instrument.
	ErrorPayWithDifferentCard = "PAY_WITH_DIFFERENT_CARD"
	ErrorBuyerTokenNotFound   = "BUYER_ACCESS_TOKEN_NOT_FOUND"
	ErrorAuthInvalidClient    = "AUTH_INVALID_CLIENT"
	ErrorAuthResponse         = "AUTH_RESPONSE_ERROR"
	ErrorGraphQL              = "GRAPHQL_ERROR"
)

// NewPayWithDifferentCardError reclassifies an instrument authorization
// failure. A plain source stays reachable through Unwrap. A go-errors source
// is cloned by the wrap, so its text code is kept under metadata
// "source_code" instead.
func NewPayWithDifferentCardError(source error, metadata map[string]any) error {
	var err *goerrors.Error
	if source == nil {
		err = goerrors.New("checkout: pay with a different card", goerrors.CategoryOperation)
	} else {
		err = goerrors.Wrap(source, goerrors.CategoryOperation, "checkout: instrument authorization failed")
	}
	err = err.WithCode(http.StatusUnprocessableEntity).
		WithTextCode(ErrorPayWithDifferentCard)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	if code := TextCode(source); code != "" && code != ErrorPayWithDifferentCard {
		err.WithMetadata(map[string]any{"source_code": code})
	}
	return err
}

func NewBuyerTokenNotFoundError() error {
	return goerrors.New("checkout: buyer access token not found", goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(ErrorBuyerTokenNotFound).
		WithSeverity(goerrors.SeverityCritical)
}

func NewBadInputError(message string, metadata map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(CheckoutErrorBadInput)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func NewNoEligibleFlowError(metadata map[string]any) error {
	err := goerrors.New("checkout: no eligible payment flow", goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(CheckoutErrorNoEligibleFlow)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func NewInternalError(message string, metadata map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(CheckoutErrorInternal)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func newInvalidTransitionError(from AttemptState, to AttemptState, metadata map[string]any) error {
	return goerrors.New(fmt.Sprintf("checkout: invalid attempt transition %s -> %s", from, to), goerrors.CategoryInternal).
		WithCode(http.StatusConflict).
		WithTextCode(CheckoutErrorInvalidTransition).
		WithMetadata(metadata)
}

// TextCode returns the go-errors text code carried by err, if any.
func TextCode(err error) string {
	if err == nil {
		return ""
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return ""
	}
	return strings.TrimSpace(rich.TextCode)
}

func HasTextCode(err error, code string) bool {
	code = strings.TrimSpace(code)
	return code != "" && TextCode(err) == code
}

func IsPayWithDifferentCard(err error) bool {
	return HasTextCode(err, ErrorPayWithDifferentCard)
}

func IsBuyerTokenNotFound(err error) bool {
	return HasTextCode(err, ErrorBuyerTokenNotFound)
}

func checkoutErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureCheckoutErrorEnvelope(richErr)
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return ensureCheckoutErrorEnvelope(
			goerrors.New(err.Error(), goerrors.CategoryBadInput).WithTextCode(CheckoutErrorBadInput),
		)
	}
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureCheckoutErrorEnvelope(mapped)
}

func ensureCheckoutErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = checkoutHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultCheckoutTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultCheckoutTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return CheckoutErrorBadInput
	case goerrors.CategoryNotFound:
		return CheckoutErrorNoEligibleFlow
	case goerrors.CategoryExternal:
		return CheckoutErrorExternalFailure
	default:
		return CheckoutErrorInternal
	}
}

func checkoutHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
