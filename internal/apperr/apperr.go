// Package apperr is the error taxonomy shared by services and the HTTP layer.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// NotFoundError reports a missing email, draft or prompt.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Entity)
}

// ValidationError reports malformed input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ConfigurationError reports a missing active prompt or similar setup gap.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

// GatewayError wraps a failure of the generative model provider.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("failed to get model response: %v", e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ConflictError reports work already in progress elsewhere.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func Configuration(msg string) error {
	return &ConfigurationError{Msg: msg}
}

func Gateway(err error) error {
	if err == nil {
		return nil
	}
	var ge *GatewayError
	if errors.As(err, &ge) {
		return err
	}
	return &GatewayError{Err: err}
}

func Conflict(msg string) error {
	return &ConflictError{Msg: msg}
}

// Classify maps err to an HTTP status and a short kind label for logs.
func Classify(err error) (status int, kind string) {
	var (
		notFound   *NotFoundError
		validation *ValidationError
		configErr  *ConfigurationError
		gateway    *GatewayError
		conflict   *ConflictError
	)
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.As(err, &notFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &validation):
		return http.StatusBadRequest, "validation"
	case errors.As(err, &configErr):
		return http.StatusNotFound, "configuration"
	case errors.As(err, &conflict):
		return http.StatusConflict, "conflict"
	case errors.As(err, &gateway):
		return http.StatusInternalServerError, "gateway"
	case errors.Is(err, context.Canceled):
		return 499, "canceled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
