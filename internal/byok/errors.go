package byok

import (
	"errors"
	"fmt"
)

// ErrorKind tags an Error with its failure class.
type ErrorKind int

const (
	ErrAuth ErrorKind = iota
	ErrTokenNotFound
	ErrTokenExpired
	ErrProviderUnavailable
	ErrTranslation
	ErrHTTP
	ErrSerialization
	ErrStorage
	ErrConfig
	ErrUnsupportedModel
	ErrUpstream
)

func (k ErrorKind) String() string {
	switch k {
	case ErrAuth:
		return "auth"
	case ErrTokenNotFound:
		return "token_not_found"
	case ErrTokenExpired:
		return "token_expired"
	case ErrProviderUnavailable:
		return "provider_unavailable"
	case ErrTranslation:
		return "translation"
	case ErrHTTP:
		return "http"
	case ErrSerialization:
		return "serialization"
	case ErrStorage:
		return "storage"
	case ErrConfig:
		return "config"
	case ErrUnsupportedModel:
		return "unsupported_model"
	case ErrUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Error is the gateway-wide tagged error. Status and Body are populated
// only for ErrUpstream.
type Error struct {
	Kind   ErrorKind
	Msg    string
	Status int
	Body   string
	cause  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrUpstream:
		return fmt.Sprintf("upstream error %d: %s", e.Status, e.Body)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds an error of the given kind.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// WrapError builds an error of the given kind with an underlying cause.
func WrapError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, cause: cause}
}

// UpstreamError carries a non-2xx upstream status and its response body.
func UpstreamError(status int, body string) *Error {
	return &Error{Kind: ErrUpstream, Status: status, Body: body}
}

// AuthError builds an ErrAuth error.
func AuthError(msg string) *Error { return NewError(ErrAuth, msg) }

// HTTPError builds an ErrHTTP transport error.
func HTTPError(msg string) *Error { return NewError(ErrHTTP, msg) }

// TokenNotFoundError reports a missing credential for a provider.
func TokenNotFoundError(p Provider) *Error {
	return NewError(ErrTokenNotFound, fmt.Sprintf("no token found for %s, please login first", p))
}

// TokenExpiredError reports an unrefreshable credential for a provider.
func TokenExpiredError(p Provider) *Error {
	return NewError(ErrTokenExpired, fmt.Sprintf("token for %s expired, please login again", p))
}

// retryableStatuses are the upstream statuses worth rotating a key for.
var retryableStatuses = map[int]bool{408: true, 429: true, 500: true, 502: true, 503: true, 504: true}

// IsRetryable reports whether err merits a retry with a different key:
// transient upstream statuses and transport-level failures only.
func IsRetryable(err error) bool {
	var be *Error
	if !errors.As(err, &be) {
		return false
	}
	switch be.Kind {
	case ErrUpstream:
		return retryableStatuses[be.Status]
	case ErrHTTP:
		return true
	default:
		return false
	}
}

// AsError extracts a *Error from err, wrapping foreign errors as ErrHTTP.
func AsError(err error) *Error {
	var be *Error
	if errors.As(err, &be) {
		return be
	}
	return WrapError(ErrHTTP, err.Error(), err)
}
