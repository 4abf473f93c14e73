package domain

import (
	"errors"
	"net/http"
)

// ErrorKind clasifica las fallas que un gateway puede devolver.
type ErrorKind string

const (
	KindMissingInput        ErrorKind = "missing_input"
	KindUnsupportedType     ErrorKind = "unsupported_type"
	KindTooLarge            ErrorKind = "too_large"
	KindTimeout             ErrorKind = "timeout"
	KindUpstreamUnreachable ErrorKind = "upstream_unreachable"
	KindUpstreamFailure     ErrorKind = "upstream_failure"
	KindInternal            ErrorKind = "internal"
)

// Sentinels para comparar con errors.Is por tipo de falla.
var (
	ErrMissingInput        = &GatewayError{Kind: KindMissingInput}
	ErrUnsupportedType     = &GatewayError{Kind: KindUnsupportedType}
	ErrTooLarge            = &GatewayError{Kind: KindTooLarge}
	ErrTimeout             = &GatewayError{Kind: KindTimeout}
	ErrUpstreamUnreachable = &GatewayError{Kind: KindUpstreamUnreachable}
	ErrUpstreamFailure     = &GatewayError{Kind: KindUpstreamFailure}
	ErrInternal            = &GatewayError{Kind: KindInternal}
)

// GatewayError es la unica forma de error que cruza el borde de un gateway.
type GatewayError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

// NewGatewayError construye un error normalizado; status 0 usa el status por defecto del kind.
func NewGatewayError(kind ErrorKind, status int, message string, cause error) *GatewayError {
	if status == 0 {
		status = DefaultStatus(kind)
	}
	return &GatewayError{Kind: kind, Status: status, Message: message, Err: cause}
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Is compara por kind para que errors.Is(err, ErrTimeout) funcione con cualquier instancia.
func (e *GatewayError) Is(target error) bool {
	t, ok := target.(*GatewayError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// DefaultStatus mapea cada kind a su status HTTP equivalente.
func DefaultStatus(kind ErrorKind) int {
	switch kind {
	case KindMissingInput, KindUnsupportedType, KindTooLarge:
		return http.StatusBadRequest
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindUpstreamUnreachable:
		return http.StatusServiceUnavailable
	case KindUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AsGatewayError normaliza cualquier error a *GatewayError; lo desconocido es Internal.
func AsGatewayError(err error) *GatewayError {
	if err == nil {
		return nil
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr
	}
	return NewGatewayError(KindInternal, http.StatusInternalServerError, err.Error(), err)
}
