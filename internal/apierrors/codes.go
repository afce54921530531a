// Package apierrors provides structured API error codes and responses.
// All codes are namespaced (e.g., "core:unauthorized", "ticket:resolved").
package apierrors

import "net/http"

// Core error codes - registered automatically at init
const (
	CodeUnauthorized      = "core:unauthorized"
	CodeInvalidRequest    = "core:invalid_request"
	CodeValidationFailed  = "core:validation_failed"
	CodeNotFound          = "core:not_found"
	CodeRateLimited       = "core:rate_limited"
	CodeInternalError     = "core:internal_error"
	CodeLGPDNotAccepted   = "core:lgpd_not_accepted"
	CodeInvalidCredential = "core:invalid_credentials"
)

// Ticket error codes
const (
	CodeTicketNotFound  = "ticket:not_found"
	CodeTicketResolved  = "ticket:resolved"
	CodeStatusConflict  = "ticket:status_conflict"
	CodeMessageRejected = "ticket:message_rejected"
)

var coreErrors = []ErrorCode{
	{Code: CodeUnauthorized, Message: "Authentication required", HTTPStatus: http.StatusUnauthorized},
	{Code: CodeInvalidRequest, Message: "Invalid request body", HTTPStatus: http.StatusBadRequest},
	{Code: CodeValidationFailed, Message: "Request validation failed", HTTPStatus: http.StatusBadRequest},
	{Code: CodeNotFound, Message: "Resource not found", HTTPStatus: http.StatusNotFound},
	{Code: CodeRateLimited, Message: "Too many requests", HTTPStatus: http.StatusTooManyRequests},
	{Code: CodeInternalError, Message: "Internal server error", HTTPStatus: http.StatusInternalServerError},
	{Code: CodeLGPDNotAccepted, Message: "LGPD consent is required to open a ticket", HTTPStatus: http.StatusBadRequest},
	{Code: CodeInvalidCredential, Message: "Invalid username or password", HTTPStatus: http.StatusUnauthorized},

	{Code: CodeTicketNotFound, Message: "Ticket not found", HTTPStatus: http.StatusNotFound},
	{Code: CodeTicketResolved, Message: "Ticket is already resolved", HTTPStatus: http.StatusConflict},
	{Code: CodeStatusConflict, Message: "Ticket status does not allow this operation", HTTPStatus: http.StatusConflict},
	{Code: CodeMessageRejected, Message: "Message could not be stored", HTTPStatus: http.StatusBadGateway},
}

func init() {
	for _, e := range coreErrors {
		Registry.Register(e)
	}
}
