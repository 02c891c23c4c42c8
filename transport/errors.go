package transport

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-checkout/core"
	goerrors "github.com/goliatone/go-errors"
)

const maxEchoedBodyBytes = 2048

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return transportError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// StatusError converts a non-2xx response into an external failure that
// echoes the response body. It returns nil for successful responses.
func StatusError(kind string, response core.TransportResponse) error {
	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return nil
	}
	category := goerrors.CategoryExternal
	switch response.StatusCode {
	case http.StatusUnauthorized:
		category = goerrors.CategoryAuth
	case http.StatusForbidden:
		category = goerrors.CategoryAuthz
	case http.StatusTooManyRequests:
		category = goerrors.CategoryRateLimit
	}
	return transportError(
		fmt.Sprintf("transport: %s request returned status %d", kind, response.StatusCode),
		category,
		response.StatusCode,
		map[string]any{
			"adapter":     kind,
			"status_code": response.StatusCode,
			"body":        EchoBody(response.Body),
		},
	)
}

// EchoBody trims a response body for inclusion in error metadata.
func EchoBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxEchoedBodyBytes {
		return text[:maxEchoedBodyBytes] + "..."
	}
	return text
}

func transportTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.CheckoutErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz, goerrors.CategoryRateLimit,
		goerrors.CategoryOperation, goerrors.CategoryExternal:
		return core.CheckoutErrorExternalFailure
	default:
		return core.CheckoutErrorInternal
	}
}
