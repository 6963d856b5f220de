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

// Package model defines the request scoped state of an authorization request.
package model

import (
	"errors"
	"net/url"
	"slices"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	oauthmodel "github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/oauth/user"
)

// Keys of the Authorization data bag.
const (
	DataAuthorizationCodeID = "authorization_code_id"
	DataAccessTokenID       = "access_token_id"
	DataAuthTime            = "auth_time"
)

// Authorization is the state of one authorization request as it moves through the checkers
// and the response types.
type Authorization struct {
	Client *client.Client
	// QueryParameters is a snapshot of the request parameters and is never modified.
	QueryParameters    url.Values
	UserAccount        *user.UserAccount
	Scopes             []string
	ResponseTypes      []string
	ResponseMode       string
	TokenType          string
	RedirectURI        string
	ResponseParameters databag.DataBag
	ResponseHeaders    map[string]string
	Authorized         bool
	Data               databag.DataBag
}

// NewAuthorization creates the state of a request for the client.
func NewAuthorization(c *client.Client, query url.Values) *Authorization {
	snapshot := make(url.Values, len(query))
	for k, v := range query {
		snapshot[k] = slices.Clone(v)
	}
	return &Authorization{
		Client:          c,
		QueryParameters: snapshot,
		ResponseHeaders: map[string]string{},
	}
}

// QueryParameter returns a request parameter.
func (a *Authorization) QueryParameter(name string) string {
	return a.QueryParameters.Get(name)
}

// HasQueryParameter reports whether the request carried the parameter.
func (a *Authorization) HasQueryParameter(name string) bool {
	return a.QueryParameters.Has(name)
}

// HasScope reports whether the scope was granted.
func (a *Authorization) HasScope(scope string) bool {
	return slices.Contains(a.Scopes, scope)
}

// HasResponseType reports whether the response type was requested.
func (a *Authorization) HasResponseType(name string) bool {
	return slices.Contains(a.ResponseTypes, name)
}

// SetResponseParameter adds a parameter to the response sent to the client.
func (a *Authorization) SetResponseParameter(name string, value interface{}) {
	a.ResponseParameters = a.ResponseParameters.With(name, value)
}

// SetData stores a value for later stages.
func (a *Authorization) SetData(name string, value interface{}) {
	a.Data = a.Data.With(name, value)
}

// CanRedirect reports whether errors can be delivered to the client by redirect.
func (a *Authorization) CanRedirect() bool {
	return a.RedirectURI != "" && a.ResponseMode != ""
}

// AuthorizationError is a protocol error raised while processing an authorization request.
// It keeps the partial authorization so the error can be returned to the client by redirect.
type AuthorizationError struct {
	Err           *oauthmodel.OAuthError
	Authorization *Authorization
}

// NewAuthorizationError wraps err. Non protocol errors become server_error.
func NewAuthorizationError(err error, auth *Authorization) *AuthorizationError {
	var authzErr *AuthorizationError
	if errors.As(err, &authzErr) {
		return authzErr
	}
	return &AuthorizationError{Err: oauthmodel.ToOAuthError(err), Authorization: auth}
}

// Error returns the wrapped protocol error message.
func (e *AuthorizationError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the protocol error.
func (e *AuthorizationError) Unwrap() error {
	return e.Err
}

// CanRedirect reports whether the error can be delivered to the client by redirect.
func (e *AuthorizationError) CanRedirect() bool {
	return e.Authorization != nil && e.Authorization.CanRedirect()
}
