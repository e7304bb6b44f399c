package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"courier-hq/courier/pkg/credentials"
	"courier-hq/courier/pkg/tokens"
	"courier-hq/courier/pkg/upstream"
)

// ErrorResponse is the OpenAI-compatible error body returned for every
// failure condition.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error fields OpenAI SDKs expect.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Error type constants matching the OpenAI API contract.
const (
	ErrorTypeInvalidRequest     = "invalid_request_error"
	ErrorTypeNotFound           = "not_found"
	ErrorTypeRateLimitExceeded  = "rate_limit_exceeded"
	ErrorTypeServerError        = "server_error"
	ErrorTypeBadGateway         = "bad_gateway"
	ErrorTypeServiceUnavailable = "service_unavailable"
	ErrorTypeGatewayTimeout     = "gateway_timeout"
)

// Error code constants.
const (
	CodeInvalidJSON           = "invalid_json"
	CodeInvalidValue          = "invalid_value"
	CodeRequestTooLarge       = "request_too_large"
	CodeContextLengthExceeded = "context_length_exceeded"
	CodeNoCredentials         = "no_credentials"
	CodeUpstreamError         = "upstream_error"
	CodeUpstreamTimeout       = "upstream_timeout"
	CodeConversationNotFound  = "conversation_not_found"
	CodeInternalError         = "internal_error"
)

// HTTPStatusCode maps the error type to an HTTP status.
func (d ErrorDetail) HTTPStatusCode() int {
	switch d.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrorTypeBadGateway:
		return http.StatusBadGateway
	case ErrorTypeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrorTypeGatewayTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(message, errorType, param, code string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{
		Message: message,
		Type:    errorType,
		Param:   param,
		Code:    code,
	}}
}

// NewInvalidRequestError creates a 400-class error response.
func NewInvalidRequestError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInvalidRequest, param, code)
}

// ContextExceededError rejects a send that would push a conversation past
// its model's context window. It is raised before dispatch; the request
// never reaches the upstream.
type ContextExceededError struct {
	// Status is the conversation's context status including the attempted
	// message.
	Status tokens.Status
}

// Error implements the error interface. The message reports current and
// limit usage in human-readable form.
func (e *ContextExceededError) Error() string {
	return fmt.Sprintf("message would exceed the model's context window: %s. Start a new conversation to continue.",
		e.Status.Display)
}

// HandleError converts an internal error into an OpenAI-compatible error
// response. Credential material never appears in client-facing messages.
func HandleError(err error) *ErrorResponse {
	var (
		validationErr *ValidationError
		requestErr    *RequestError
		contextErr    *ContextExceededError
		authErr       *upstream.AuthError
		rateErr       *upstream.RateLimitError
		fatalErr      *upstream.FatalError
		timeoutErr    *upstream.TimeoutError
		streamErr     *upstream.StreamError
		parseErr      *upstream.ParseError
	)

	switch {
	case errors.As(err, &validationErr):
		return NewInvalidRequestError(validationErr.Message, validationErr.Field, CodeInvalidValue)

	case errors.As(err, &requestErr):
		return NewInvalidRequestError(requestErr.Message, requestErr.Param, requestErr.Code)

	case errors.As(err, &contextErr):
		return NewInvalidRequestError(contextErr.Error(), "messages", CodeContextLengthExceeded)

	case errors.Is(err, credentials.ErrPoolExhausted):
		return NewErrorResponse(
			"The relay has no healthy upstream credentials available. Try again later.",
			ErrorTypeServiceUnavailable, "", CodeNoCredentials)

	case errors.As(err, &authErr):
		return NewErrorResponse(
			"The upstream service rejected the relay's session. Credentials are being rotated; try again shortly.",
			ErrorTypeBadGateway, "", CodeUpstreamError)

	case errors.As(err, &rateErr):
		return NewErrorResponse(
			"The upstream service is rate limiting requests. Try again later.",
			ErrorTypeRateLimitExceeded, "", CodeUpstreamError)

	case errors.As(err, &fatalErr):
		return NewErrorResponse(
			fmt.Sprintf("The upstream service rejected the request (status %d).", fatalErr.StatusCode),
			ErrorTypeBadGateway, "", CodeUpstreamError)

	case errors.As(err, &timeoutErr):
		return NewErrorResponse(
			"The upstream service did not respond in time.",
			ErrorTypeGatewayTimeout, "", CodeUpstreamTimeout)

	case errors.As(err, &streamErr), errors.As(err, &parseErr):
		return NewErrorResponse(
			"The upstream service returned an unreadable response.",
			ErrorTypeBadGateway, "", CodeUpstreamError)

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return NewErrorResponse(
			"The request was cancelled before completion.",
			ErrorTypeGatewayTimeout, "", CodeUpstreamTimeout)

	default:
		var unavailable *upstream.UnavailableError
		if errors.As(err, &unavailable) {
			return NewErrorResponse(
				"The upstream service is unreachable. Try again later.",
				ErrorTypeServiceUnavailable, "", CodeUpstreamError)
		}
		return NewErrorResponse("An internal error occurred.", ErrorTypeServerError, "", CodeInternalError)
	}
}
