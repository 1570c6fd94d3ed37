// Package errors define la estructura estándar de errores HTTP del
// portal y el catálogo de errores predefinidos del flujo de auth.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/hccommerce/portal/internal/auth/flow"
)

// AppError define la estructura estándar para errores de la aplicación
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"` // No se serializa, usado para el header
	Err        error  `json:"-"` // Error original (causa), útil para logs, no se expone al cliente
}

// Error implementa la interfaz error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap permite acceder al error original
func (e *AppError) Unwrap() error {
	return e.Err
}

// New crea un nuevo AppError
func New(status int, code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}
}

// WithDetail agrega detalles adicionales al error.
// Devuelve una COPIA del error para no mutar las variables globales base
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause agrega el error original (causa)
// Devuelve una COPIA del error
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// =================================================================================
// LISTA DE ERRORES PREDEFINIDOS
// =================================================================================

var (
	ErrBadRequest = &AppError{
		Code:       flow.CodeMissingParams,
		Message:    "La solicitud contiene parámetros inválidos o faltantes.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidJSON = &AppError{
		Code:       flow.CodeMissingParams,
		Message:    "El cuerpo de la solicitud no es un JSON válido.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrNotConfigured = &AppError{
		Code:       flow.CodeNotConfigured,
		Message:    "El provider de identidad no está configurado.",
		HTTPStatus: http.StatusServiceUnavailable,
	}

	ErrSessionExpired = &AppError{
		Code:       flow.CodeSessionExpired,
		Message:    "La sesión ha expirado, inicie sesión nuevamente.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrStateMismatch = &AppError{
		Code:       flow.CodeStateMismatch,
		Message:    "El parámetro state no coincide con la transacción en curso.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrTokenExchange = &AppError{
		Code:       flow.CodeTokenExchangeFailed,
		Message:    "El intercambio de código con el IdP falló.",
		HTTPStatus: http.StatusBadGateway,
	}

	ErrTokenMissing = &AppError{
		Code:       flow.CodeTokenMissing,
		Message:    "El IdP no devolvió un id_token.",
		HTTPStatus: http.StatusBadGateway,
	}

	ErrTokenInvalid = &AppError{
		Code:       flow.CodeInvalidToken,
		Message:    "El id_token recibido es inválido.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrSignInFailed = &AppError{
		Code:       flow.CodeSignInFailed,
		Message:    "No se pudo completar el inicio de sesión.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrIdentityConflict = &AppError{
		Code:       flow.CodeIdentityConflict,
		Message:    "La identidad ya está vinculada a otra cuenta.",
		HTTPStatus: http.StatusConflict,
	}

	ErrLinkFailed = &AppError{
		Code:       flow.CodeLinkFailed,
		Message:    "No se pudo vincular el provider.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrLinkIncomplete = &AppError{
		Code:       flow.CodeLinkFailed,
		Message:    "Faltan providers requeridos por vincular.",
		HTTPStatus: http.StatusForbidden,
	}

	ErrUnknownProvider = &AppError{
		Code:       flow.CodeMissingParams,
		Message:    "Provider desconocido.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrLastProvider = &AppError{
		Code:       flow.CodeLinkFailed,
		Message:    "No se puede desvincular el último provider de la cuenta.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrNotLinked = &AppError{
		Code:       flow.CodeLinkFailed,
		Message:    "El provider no está vinculado a esta cuenta.",
		HTTPStatus: http.StatusConflict,
	}

	ErrMethodNotAllowed = &AppError{
		Code:       "method_not_allowed",
		Message:    "Método HTTP no permitido para esta ruta.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "rate_limited",
		Message:    "Demasiadas solicitudes, intente más tarde.",
		HTTPStatus: http.StatusTooManyRequests,
	}

	ErrInternalServerError = &AppError{
		Code:       flow.CodeSignInFailed,
		Message:    "Error interno del servidor.",
		HTTPStatus: http.StatusInternalServerError,
	}
)

// FromError convierte cualquier error en un AppError. Los errores
// centinela del flujo de auth se mapean a su entrada del catálogo;
// el resto se trata como error interno conservando la causa.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	for sentinel, mapped := range sentinelMap {
		if stderrors.Is(err, sentinel) {
			return mapped.WithCause(err)
		}
	}
	return ErrInternalServerError.WithCause(err)
}

var sentinelMap = map[error]*AppError{
	flow.ErrNotConfigured:    ErrNotConfigured,
	flow.ErrMissingParams:    ErrBadRequest,
	flow.ErrSessionExpired:   ErrSessionExpired,
	flow.ErrStateMismatch:    ErrStateMismatch,
	flow.ErrTokenExchange:    ErrTokenExchange,
	flow.ErrTokenMissing:     ErrTokenMissing,
	flow.ErrTokenInvalid:     ErrTokenInvalid,
	flow.ErrSignInFailed:     ErrSignInFailed,
	flow.ErrIdentityConflict: ErrIdentityConflict,
	flow.ErrLinkFailed:       ErrLinkFailed,
	flow.ErrUnknownProvider:  ErrUnknownProvider,
	flow.ErrLastProvider:     ErrLastProvider,
	flow.ErrNotLinked:        ErrNotLinked,
}
