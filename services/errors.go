package services

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error kinds for the entitlement and completion pipeline. Services wrap
// these sentinels with a terse user-visible message via Errorf; controllers
// map them to HTTP codes with HTTPStatus.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrForbidden     = errors.New("forbidden")
	ErrOrderNotPaid  = errors.New("order not paid")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrExpired       = errors.New("expired")
	ErrDependency    = errors.New("dependency failure")
)

type svcError struct {
	kind error
	msg  string
}

func (e *svcError) Error() string { return e.msg }

func (e *svcError) Unwrap() error { return e.kind }

// Errorf builds an error of the given kind with a user-facing message.
// errors.Is(err, kind) holds for the result.
func Errorf(kind error, format string, a ...interface{}) error {
	return &svcError{kind: kind, msg: fmt.Sprintf(format, a...)}
}

// HTTPStatus maps a service error to the HTTP status code controllers
// should respond with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrOrderNotPaid):
		return fiber.StatusForbidden
	case errors.Is(err, ErrQuotaExceeded):
		return fiber.StatusTooManyRequests
	case errors.Is(err, ErrExpired):
		return fiber.StatusGone
	case errors.Is(err, ErrDependency):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
