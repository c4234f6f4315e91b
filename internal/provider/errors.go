package provider

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mkurzov/marketd/internal/exchange"
)

// Kind labels a provider failure. The string value appears verbatim in the
// error field of API responses.
type Kind string

const (
	// KindUnsupportedExchange means the exchange id matches no driver.
	KindUnsupportedExchange Kind = "unsupported_exchange"
	// KindInvalidSymbol means the symbol is not a "BASE/QUOTE" pair or the
	// exchange does not list it.
	KindInvalidSymbol Kind = "invalid_symbol"
	// KindUpstreamNetwork means the exchange could not be reached.
	KindUpstreamNetwork Kind = "upstream_network"
	// KindUpstreamExchange means the exchange answered with an error or an
	// unreadable payload.
	KindUpstreamExchange Kind = "upstream_exchange"
	// KindUpstreamRateLimited means the exchange is throttling this service.
	KindUpstreamRateLimited Kind = "upstream_rate_limited"
	// KindRateLimited means the local limiter denied the caller.
	KindRateLimited Kind = "rate_limit_exceeded"
	// KindInternal covers everything that should not happen.
	KindInternal Kind = "internal_error"
)

// HTTPStatus maps a Kind onto the response status the transport should use.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnsupportedExchange, KindInvalidSymbol:
		return http.StatusNotFound
	case KindUpstreamNetwork, KindUpstreamRateLimited:
		return http.StatusServiceUnavailable
	case KindUpstreamExchange:
		return http.StatusBadGateway
	case KindRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// Error is the one error type the provider returns.
type Error struct {
	Kind   Kind   // failure class
	Detail string // human-readable message, safe to serve to clients
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// KindOf extracts the Kind from err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// normalize converts a driver error into a provider Error, keeping the
// exchange name in the detail but never leaking transport internals.
func normalize(err error) *Error {
	var ee *exchange.Error
	if !errors.As(err, &ee) {
		return &Error{Kind: KindInternal, Detail: err.Error()}
	}

	detail := fmt.Sprintf("%s: %s", ee.Exchange, ee.Message)
	switch ee.Kind {
	case exchange.KindUnsupported:
		return &Error{Kind: KindUnsupportedExchange, Detail: detail}
	case exchange.KindBadSymbol:
		return &Error{Kind: KindInvalidSymbol, Detail: detail}
	case exchange.KindNetwork:
		return &Error{Kind: KindUpstreamNetwork, Detail: detail}
	case exchange.KindRateLimited:
		return &Error{Kind: KindUpstreamRateLimited, Detail: detail}
	}
	return &Error{Kind: KindUpstreamExchange, Detail: detail}
}

func errUnsupportedExchange(exchangeID string) *Error {
	return &Error{
		Kind:   KindUnsupportedExchange,
		Detail: fmt.Sprintf("%q is not a supported exchange", exchangeID),
	}
}

func errInvalidSymbol(symbol string) *Error {
	return &Error{
		Kind:   KindInvalidSymbol,
		Detail: fmt.Sprintf("%q is not a valid symbol, expected BASE/QUOTE", symbol),
	}
}
