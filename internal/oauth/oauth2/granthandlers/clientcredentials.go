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

package granthandlers

import (
	"context"
	"net/url"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
)

// ClientCredentialsGrantHandler issues tokens to a confidential client acting on its own behalf.
type ClientCredentialsGrantHandler struct{}

// NewClientCredentialsGrantHandler creates the client_credentials grant.
func NewClientCredentialsGrantHandler() *ClientCredentialsGrantHandler {
	return &ClientCredentialsGrantHandler{}
}

// GrantType implements GrantHandlerInterface.
func (h *ClientCredentialsGrantHandler) GrantType() string {
	return constants.GrantTypeClientCredentials
}

// CheckRequest implements GrantHandlerInterface.
func (h *ClientCredentialsGrantHandler) CheckRequest(_ url.Values) error {
	return nil
}

// Grant implements GrantHandlerInterface.
func (h *ClientCredentialsGrantHandler) Grant(_ context.Context, c *client.Client,
	form url.Values) (*GrantData, error) {
	if c.IsPublic() {
		return nil, model.NewUnauthorizedClientError(
			"Public clients cannot use the client credentials grant.")
	}

	params := databag.New()
	if scope := form.Get(constants.Scope); scope != "" {
		params = params.With(constants.Scope, scope)
	}
	if tokenType := form.Get(constants.TokenType); tokenType != "" {
		params = params.With(constants.TokenType, tokenType)
	}
	return &GrantData{
		Client:          c,
		GrantType:       constants.GrantTypeClientCredentials,
		Parameters:      params,
		Metadata:        databag.New(model.MetadataResourceOwnerIsUser, false),
		ResourceOwnerID: c.ID,
	}, nil
}
