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

// Package client defines the registered client model and its repository contract.
package client

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
)

// Errors returned by client repositories.
var (
	ErrClientNotFound      = errors.New("client not found")
	ErrClientAlreadyExists = errors.New("client already exists")
)

// Client is a registered OAuth client. Its metadata is the validated parameter bag.
type Client struct {
	ID         string          `json:"client_id"`
	OwnerID    string          `json:"owner_id,omitempty"`
	Parameters databag.DataBag `json:"parameters"`
	Deleted    bool            `json:"deleted,omitempty"`
}

// RepositoryInterface defines the persistence operations for clients.
type RepositoryInterface interface {
	Find(ctx context.Context, clientID string) (*Client, error)
	Save(ctx context.Context, client *Client) error
	Create(ctx context.Context, clientID string, parameters databag.DataBag, ownerID string) (*Client, error)
}

// IsPublic reports whether the client cannot keep a secret.
func (c *Client) IsPublic() bool {
	return c.TokenEndpointAuthMethod() == constants.AuthMethodNone
}

// TokenEndpointAuthMethod returns the registered client authentication method.
func (c *Client) TokenEndpointAuthMethod() string {
	return c.Parameters.GetString(constants.ClientParamTokenEndpointAuthMethod)
}

// ApplicationType returns the registered application type.
func (c *Client) ApplicationType() string {
	return c.Parameters.GetString(constants.ClientParamApplicationType)
}

// RedirectURIs returns the registered redirect URIs.
func (c *Client) RedirectURIs() []string {
	return c.Parameters.GetStringSlice(constants.ClientParamRedirectURIs)
}

// GrantTypes returns the registered grant types.
func (c *Client) GrantTypes() []string {
	return c.Parameters.GetStringSlice(constants.ClientParamGrantTypes)
}

// HasGrantType reports whether the client registered the grant type.
func (c *Client) HasGrantType(grantType string) bool {
	return slices.Contains(c.GrantTypes(), grantType)
}

// ResponseTypes returns the registered response types. Each entry may be a space separated combination.
func (c *Client) ResponseTypes() []string {
	return c.Parameters.GetStringSlice(constants.ClientParamResponseTypes)
}

// HasResponseType reports whether the client registered the response type combination,
// regardless of the order of its members.
func (c *Client) HasResponseType(types []string) bool {
	wanted := normalize(types)
	for _, registered := range c.ResponseTypes() {
		if normalize(strings.Fields(registered)) == wanted {
			return true
		}
	}
	return false
}

// UsesResponseType reports whether any registered combination contains the response type.
func (c *Client) UsesResponseType(responseType string) bool {
	for _, registered := range c.ResponseTypes() {
		if slices.Contains(strings.Fields(registered), responseType) {
			return true
		}
	}
	return false
}

// Scopes returns the registered scopes. An empty result means no restriction.
func (c *Client) Scopes() []string {
	return strings.Fields(c.Parameters.GetString(constants.ClientParamScope))
}

// TokenType returns the default token type of the client.
func (c *Client) TokenType() string {
	return c.Parameters.GetString(constants.ClientParamTokenType)
}

// Secret returns the registered client secret, which may be a bcrypt hash.
func (c *Client) Secret() string {
	return c.Parameters.GetString(constants.ClientParamClientSecret)
}

// IsSecretExpired reports whether the client secret expired at the given time.
// A zero or absent expiry means the secret never expires.
func (c *Client) IsSecretExpired(now time.Time) bool {
	expiresAt, ok := c.Parameters.GetInt64(constants.ClientParamClientSecretExpiresAt)
	if !ok || expiresAt == 0 {
		return false
	}
	return now.Unix() >= expiresAt
}

// JWKS returns the inline key set of the client, if any.
func (c *Client) JWKS() interface{} {
	value, ok := c.Parameters.Get(constants.ClientParamJWKS)
	if !ok {
		return nil
	}
	return value
}

// JWKSURI returns the key set URI of the client, if any.
func (c *Client) JWKSURI() string {
	return c.Parameters.GetString(constants.ClientParamJWKSURI)
}

// HasKeys reports whether the client registered public keys.
func (c *Client) HasKeys() bool {
	return c.JWKS() != nil || c.JWKSURI() != ""
}

func normalize(types []string) string {
	sorted := slices.Clone(types)
	slices.Sort(sorted)
	return strings.Join(sorted, " ")
}
