package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorKind classifies application errors for the HTTP layer.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindTooManyRequests
)

// Status maps the kind to an HTTP status code. Conflicts stay at 400, which
// is what clients of the booking and registration endpoints expect.
func (k ErrorKind) Status() int {
	switch k {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// AppError is an error carrying a user facing message and its kind.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func newAppError(kind ErrorKind, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ValidationError(format string, args ...any) *AppError {
	return newAppError(KindValidation, format, args...)
}

func AuthenticationError(format string, args ...any) *AppError {
	return newAppError(KindAuthentication, format, args...)
}

func AuthorizationError(format string, args ...any) *AppError {
	return newAppError(KindAuthorization, format, args...)
}

func NotFoundError(format string, args ...any) *AppError {
	return newAppError(KindNotFound, format, args...)
}

func ConflictError(format string, args ...any) *AppError {
	return newAppError(KindConflict, format, args...)
}

func TooManyRequestsError(format string, args ...any) *AppError {
	return newAppError(KindTooManyRequests, format, args...)
}

// InternalError wraps an unexpected fault under a generic message.
func InternalError(message string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HandleError writes err as the standard error envelope. Internal faults are
// logged with the request path; domain errors are not.
func HandleError(c *gin.Context, log *zap.Logger, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = InternalError("Internal server error", err)
	}

	if appErr.Kind == KindInternal {
		log.Error(appErr.Message,
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(appErr.Err),
		)
		InternalServerError(c, appErr.Message, appErr.Err)
		return
	}

	Error(c, appErr.Kind.Status(), appErr.Message)
}
