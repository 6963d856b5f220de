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

package model

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
)

// Repository errors.
var (
	ErrTokenNotFound   = errors.New("token not found")
	ErrCodeAlreadyUsed = errors.New("authorization code already used")
)

// Keys of the token metadata bag.
const (
	MetadataResourceOwnerIsUser = "resource_owner_is_user"
	MetadataAuthTime            = "auth_time"
	MetadataNonce               = "nonce"
	MetadataAuthorizationCodeID = "authorization_code_id"
)

// AuthorizationCode is a single use code issued by the authorization endpoint.
type AuthorizationCode struct {
	ID               string          `json:"id"`
	ClientID         string          `json:"client_id"`
	UserAccountID    string          `json:"user_account_id"`
	QueryParameters  url.Values      `json:"query_parameters"`
	RedirectURI      string          `json:"redirect_uri"`
	ExpiresAt        time.Time       `json:"expires_at"`
	Parameters       databag.DataBag `json:"parameters"`
	Metadata         databag.DataBag `json:"metadata"`
	ResourceServerID string          `json:"resource_server_id,omitempty"`
	Used             bool            `json:"used"`
	Revoked          bool            `json:"revoked"`
}

// IsExpired reports whether the code expired at the given time.
func (c *AuthorizationCode) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// QueryParameter returns a parameter of the original authorization request.
func (c *AuthorizationCode) QueryParameter(name string) string {
	return c.QueryParameters.Get(name)
}

// AccessToken is an issued access token.
type AccessToken struct {
	ID               string          `json:"id"`
	ClientID         string          `json:"client_id"`
	ResourceOwnerID  string          `json:"resource_owner_id"`
	IssuedAt         time.Time       `json:"issued_at"`
	ExpiresAt        time.Time       `json:"expires_at"`
	Parameters       databag.DataBag `json:"parameters"`
	Metadata         databag.DataBag `json:"metadata"`
	ResourceServerID string          `json:"resource_server_id,omitempty"`
	Revoked          bool            `json:"revoked"`
}

// IsExpired reports whether the token expired at the given time.
func (t *AccessToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsActive reports whether the token can still be used.
func (t *AccessToken) IsActive(now time.Time) bool {
	return !t.Revoked && !t.IsExpired(now)
}

// TokenType returns the token type the token was issued with.
func (t *AccessToken) TokenType() string {
	return t.Parameters.GetString(constants.TokenType)
}

// Scope returns the space separated scope granted to the token.
func (t *AccessToken) Scope() string {
	return t.Parameters.GetString(constants.Scope)
}

// RefreshToken is an issued refresh token. A zero expiry means it never expires.
type RefreshToken struct {
	ID               string          `json:"id"`
	ClientID         string          `json:"client_id"`
	ResourceOwnerID  string          `json:"resource_owner_id"`
	IssuedAt         time.Time       `json:"issued_at"`
	ExpiresAt        time.Time       `json:"expires_at"`
	Parameters       databag.DataBag `json:"parameters"`
	Metadata         databag.DataBag `json:"metadata"`
	ResourceServerID string          `json:"resource_server_id,omitempty"`
	AccessTokenIDs   []string        `json:"access_token_ids,omitempty"`
	Revoked          bool            `json:"revoked"`
}

// IsExpired reports whether the token expired at the given time.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(t.ExpiresAt)
}

// IsActive reports whether the token can still be used.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.Revoked && !t.IsExpired(now)
}

// Scope returns the space separated scope granted to the token.
func (t *RefreshToken) Scope() string {
	return t.Parameters.GetString(constants.Scope)
}

// AuthorizationCodeRepositoryInterface persists authorization codes.
type AuthorizationCodeRepositoryInterface interface {
	Find(ctx context.Context, id string) (*AuthorizationCode, error)
	Save(ctx context.Context, code *AuthorizationCode) error
	// Create stores a new code, assigning an id when none is set.
	Create(ctx context.Context, code *AuthorizationCode) (*AuthorizationCode, error)
	// MarkUsed atomically flags the code as used. It returns ErrCodeAlreadyUsed
	// when the code was already used, so only one redemption can succeed.
	MarkUsed(ctx context.Context, id string) error
}

// AccessTokenRepositoryInterface persists access tokens.
type AccessTokenRepositoryInterface interface {
	Find(ctx context.Context, id string) (*AccessToken, error)
	Save(ctx context.Context, token *AccessToken) error
	Create(ctx context.Context, token *AccessToken) (*AccessToken, error)
}

// RefreshTokenRepositoryInterface persists refresh tokens.
type RefreshTokenRepositoryInterface interface {
	Find(ctx context.Context, id string) (*RefreshToken, error)
	Save(ctx context.Context, token *RefreshToken) error
	Create(ctx context.Context, token *RefreshToken) (*RefreshToken, error)
}
