/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package model defines the token lifecycle entities, their repositories and the protocol error type.
package model

import (
	"errors"
	"net/http"

	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
)

const serverErrorDescription = "The server encountered an unexpected condition."

// OAuthError is a protocol error surfaced as {error, error_description} with an HTTP status.
type OAuthError struct {
	Code        string
	Description string
	StatusCode  int
	Headers     map[string]string
	Cause       error
}

// Error returns the error code and description.
func (e *OAuthError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return e.Code + ": " + e.Description
}

// Unwrap returns the underlying cause, if any.
func (e *OAuthError) Unwrap() error {
	return e.Cause
}

// WithCause returns a copy of the error carrying the given cause.
func (e *OAuthError) WithCause(cause error) *OAuthError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// WithHeader returns a copy of the error with an additional response header.
func (e *OAuthError) WithHeader(name, value string) *OAuthError {
	clone := *e
	clone.Headers = make(map[string]string, len(e.Headers)+1)
	for k, v := range e.Headers {
		clone.Headers[k] = v
	}
	clone.Headers[name] = value
	return &clone
}

// NewOAuthError creates a protocol error with the given code, description and status.
func NewOAuthError(code, description string, statusCode int) *OAuthError {
	return &OAuthError{Code: code, Description: description, StatusCode: statusCode}
}

// NewInvalidRequestError creates an invalid_request error.
func NewInvalidRequestError(description string) *OAuthError {
	return NewOAuthError(constants.ErrorInvalidRequest, description, http.StatusBadRequest)
}

// NewInvalidClientError creates an invalid_client error. Client authentication failures are 401.
func NewInvalidClientError(description string) *OAuthError {
	return NewOAuthError(constants.ErrorInvalidClient, description, http.StatusUnauthorized)
}

// NewInvalidGrantError creates an invalid_grant error.
func NewInvalidGrantError(description string) *OAuthError {
	return NewOAuthError(constants.ErrorInvalidGrant, description, http.StatusBadRequest)
}

// NewUnauthorizedClientError creates an unauthorized_client error.
func NewUnauthorizedClientError(description string) *OAuthError {
	return NewOAuthError(constants.ErrorUnauthorizedClient, description, http.StatusBadRequest)
}

// NewUnsupportedGrantTypeError creates an unsupported_grant_type error.
func NewUnsupportedGrantTypeError(description string) *OAuthError {
	return NewOAuthError(constants.ErrorUnsupportedGrantType, description, http.StatusBadRequest)
}

// NewInvalidScopeError creates an invalid_scope error.
func NewInvalidScopeError(description string) *OAuthError {
	return NewOAuthError(constants.ErrorInvalidScope, description, http.StatusBadRequest)
}

// NewUnsupportedResponseTypeError creates an unsupported_response_type error.
func NewUnsupportedResponseTypeError(description string) *OAuthError {
	return NewOAuthError(constants.ErrorUnsupportedResponseType, description, http.StatusBadRequest)
}

// NewAccessDeniedError creates an access_denied error.
func NewAccessDeniedError(description string) *OAuthError {
	return NewOAuthError(constants.ErrorAccessDenied, description, http.StatusBadRequest)
}

// NewLoginRequiredError creates a login_required error.
func NewLoginRequiredError(description string) *OAuthError {
	return NewOAuthError(constants.ErrorLoginRequired, description, http.StatusBadRequest)
}

// NewConsentRequiredError creates a consent_required error.
func NewConsentRequiredError(description string) *OAuthError {
	return NewOAuthError(constants.ErrorConsentRequired, description, http.StatusBadRequest)
}

// NewInvalidRequestObjectError creates an invalid_request_object error.
func NewInvalidRequestObjectError(description string) *OAuthError {
	return NewOAuthError(constants.ErrorInvalidRequestObject, description, http.StatusBadRequest)
}

// NewInvalidRequestURIError creates an invalid_request_uri error.
func NewInvalidRequestURIError(description string) *OAuthError {
	return NewOAuthError(constants.ErrorInvalidRequestURI, description, http.StatusBadRequest)
}

// NewRequestNotSupportedError creates a request_not_supported error.
func NewRequestNotSupportedError(description string) *OAuthError {
	return NewOAuthError(constants.ErrorRequestNotSupported, description, http.StatusBadRequest)
}

// NewRequestURINotSupportedError creates a request_uri_not_supported error.
func NewRequestURINotSupportedError(description string) *OAuthError {
	return NewOAuthError(constants.ErrorRequestURINotSupported, description, http.StatusBadRequest)
}

// NewInvalidTokenError creates an invalid_token error for protected resources.
func NewInvalidTokenError(description string) *OAuthError {
	return NewOAuthError(constants.ErrorInvalidToken, description, http.StatusUnauthorized)
}

// NewInsufficientScopeError creates an insufficient_scope error for protected resources.
func NewInsufficientScopeError(description string) *OAuthError {
	return NewOAuthError(constants.ErrorInsufficientScope, description, http.StatusForbidden)
}

// NewUnsupportedTokenTypeError creates an unsupported_token_type error.
func NewUnsupportedTokenTypeError(description string) *OAuthError {
	return NewOAuthError(constants.ErrorUnsupportedTokenType, description, http.StatusBadRequest)
}

// NewServerError creates a server_error hiding the cause from the caller.
func NewServerError(cause error) *OAuthError {
	return &OAuthError{
		Code:        constants.ErrorServerError,
		Description: serverErrorDescription,
		StatusCode:  http.StatusInternalServerError,
		Cause:       cause,
	}
}

// ToOAuthError returns the protocol error carried by err, or a server_error wrapping it.
func ToOAuthError(err error) *OAuthError {
	if err == nil {
		return nil
	}
	var oauthErr *OAuthError
	if errors.As(err, &oauthErr) {
		return oauthErr
	}
	return NewServerError(err)
}
