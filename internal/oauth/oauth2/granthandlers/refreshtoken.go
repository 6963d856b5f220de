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
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
)

const invalidRefreshTokenDescription = "The refresh token is invalid."

// RefreshTokenGrantHandler exchanges refresh tokens for new access tokens.
type RefreshTokenGrantHandler struct {
	refreshTokens model.RefreshTokenRepositoryInterface
	now           func() time.Time
}

// NewRefreshTokenGrantHandler creates the refresh_token grant.
func NewRefreshTokenGrantHandler(refreshTokens model.RefreshTokenRepositoryInterface) *RefreshTokenGrantHandler {
	return &RefreshTokenGrantHandler{refreshTokens: refreshTokens, now: time.Now}
}

// GrantType implements GrantHandlerInterface.
func (h *RefreshTokenGrantHandler) GrantType() string {
	return constants.GrantTypeRefreshToken
}

// CheckRequest implements GrantHandlerInterface.
func (h *RefreshTokenGrantHandler) CheckRequest(form url.Values) error {
	if form.Get(constants.RefreshToken) == "" {
		return model.NewInvalidRequestError(`The "refresh_token" parameter is mandatory.`)
	}
	return nil
}

// Grant implements GrantHandlerInterface. A scope parameter may only narrow the scope of
// the refresh token.
func (h *RefreshTokenGrantHandler) Grant(ctx context.Context, c *client.Client,
	form url.Values) (*GrantData, error) {
	token, err := h.refreshTokens.Find(ctx, form.Get(constants.RefreshToken))
	if errors.Is(err, model.ErrTokenNotFound) {
		return nil, model.NewInvalidGrantError(invalidRefreshTokenDescription)
	}
	if err != nil {
		return nil, model.NewServerError(err)
	}
	if token.ClientID != c.ID || !token.IsActive(h.now()) {
		return nil, model.NewInvalidGrantError(invalidRefreshTokenDescription)
	}

	params := token.Parameters
	if requested := strings.Fields(form.Get(constants.Scope)); len(requested) > 0 {
		granted := strings.Fields(token.Scope())
		for _, name := range requested {
			if !slices.Contains(granted, name) {
				return nil, model.NewInvalidScopeError(
					fmt.Sprintf("The scope %q was not granted to the refresh token.", name))
			}
		}
		params = params.With(constants.Scope, strings.Join(requested, " "))
	}

	return &GrantData{
		Client:              c,
		GrantType:           constants.GrantTypeRefreshToken,
		Parameters:          params,
		Metadata:            token.Metadata.Without(model.MetadataNonce),
		ResourceOwnerID:     token.ResourceOwnerID,
		RefreshTokenAllowed: true,
		RefreshToken:        token,
	}, nil
}
