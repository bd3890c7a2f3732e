// Package apperr defines the error taxonomy shared by the core services.
//
// Services return sentinel *Error values (or wrap them with fmt.Errorf and %w);
// the HTTP layer maps the Kind to a status code.
package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Kind int

const (
	KindInternal Kind = iota
	// caller must fix warehouse setup or input before retrying
	KindPrecondition
	KindNotFound
	KindConflict
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func Precondition(msg string) *Error { return &Error{Kind: KindPrecondition, Message: msg} }
func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Status maps an error to an HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindPrecondition:
		return fiber.StatusBadRequest
	case KindNotFound:
		return fiber.StatusNotFound
	case KindConflict:
		return fiber.StatusConflict
	case KindInternal:
		return fiber.StatusInternalServerError
	}
	return fiber.StatusInternalServerError
}

// ToFiber converts a service error into a *fiber.Error. Internal errors get a generic
// message so storage details do not leak to callers.
func ToFiber(err error) error {
	if err == nil {
		return nil
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	var e *Error
	if errors.As(err, &e) {
		return fiber.NewError(Status(err), e.Message)
	}
	return fiber.NewError(fiber.StatusInternalServerError, "unexpected server error")
}

// ErrorHandler is the app-wide Fiber error handler. Handlers return service errors
// unchanged so the cause of a 500 reaches the log before ToFiber hides it.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if !errors.As(ToFiber(err), &fe) {
			fe = fiber.ErrInternalServerError
		}
		if fe.Code >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}
		return c.Status(fe.Code).JSON(fiber.Map{
			"error": fe.Message,
		})
	}
}
