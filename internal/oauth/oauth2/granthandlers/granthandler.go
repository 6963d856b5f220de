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

// Package granthandlers provides the grant types accepted by the token endpoint.
package granthandlers

import (
	"context"
	"fmt"
	"net/url"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
)

// GrantData is the state of one token request, threaded from the grant through the
// processors to token issuance.
type GrantData struct {
	Client          *client.Client
	GrantType       string
	Parameters      databag.DataBag
	Metadata        databag.DataBag
	ResourceOwnerID string
	// Scopes and TokenType are resolved by the token processors.
	Scopes    []string
	TokenType string
	// RefreshTokenAllowed reports whether the grant may be answered with a refresh token.
	RefreshTokenAllowed bool
	// RefreshToken is the refresh token redeemed by the grant, if any.
	RefreshToken *model.RefreshToken
}

// ResourceOwnerIsUser reports whether the resource owner is an end user rather than the client.
func (d *GrantData) ResourceOwnerIsUser() bool {
	return d.Metadata.GetBool(model.MetadataResourceOwnerIsUser)
}

// GrantHandlerInterface defines a grant type of the token endpoint.
type GrantHandlerInterface interface {
	// GrantType returns the grant_type value handled.
	GrantType() string
	// CheckRequest validates that the parameters required by the grant are present.
	CheckRequest(form url.Values) error
	// Grant validates the grant and returns the data the tokens are issued from.
	Grant(ctx context.Context, c *client.Client, form url.Values) (*GrantData, error)
}

// GrantHandlerProviderInterface resolves grant handlers by grant type.
type GrantHandlerProviderInterface interface {
	Has(grantType string) bool
	GetGrantHandler(grantType string) (GrantHandlerInterface, error)
	GrantTypes() []string
}

// GrantHandlerProvider holds the registered grant handlers.
type GrantHandlerProvider struct {
	handlers   map[string]GrantHandlerInterface
	grantTypes []string
}

// NewGrantHandlerProvider creates a provider for the given handlers.
func NewGrantHandlerProvider(handlers ...GrantHandlerInterface) *GrantHandlerProvider {
	p := &GrantHandlerProvider{handlers: make(map[string]GrantHandlerInterface, len(handlers))}
	for _, handler := range handlers {
		if _, exists := p.handlers[handler.GrantType()]; !exists {
			p.grantTypes = append(p.grantTypes, handler.GrantType())
		}
		p.handlers[handler.GrantType()] = handler
	}
	return p
}

// Has reports whether a handler is registered for the grant type.
func (p *GrantHandlerProvider) Has(grantType string) bool {
	_, ok := p.handlers[grantType]
	return ok
}

// GetGrantHandler returns the handler of the grant type or an unsupported_grant_type error.
func (p *GrantHandlerProvider) GetGrantHandler(grantType string) (GrantHandlerInterface, error) {
	handler, ok := p.handlers[grantType]
	if !ok {
		return nil, model.NewUnsupportedGrantTypeError(
			fmt.Sprintf("The grant type %q is not supported.", grantType))
	}
	return handler, nil
}

// GrantTypes returns the registered grant types in registration order.
func (p *GrantHandlerProvider) GrantTypes() []string {
	return append([]string(nil), p.grantTypes...)
}
