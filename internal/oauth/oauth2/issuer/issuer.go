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

// Package issuer mints access and refresh tokens for the authorization and token endpoints.
package issuer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/tokentype"
)

// TokenRequest describes a token to mint.
type TokenRequest struct {
	ClientID        string
	ResourceOwnerID string
	Scopes          []string
	TokenType       string
	Parameters      databag.DataBag
	Metadata        databag.DataBag
}

// IssuerInterface mints tokens.
type IssuerInterface interface {
	IssueAccessToken(ctx context.Context, req TokenRequest) (*model.AccessToken, error)
	IssueRefreshToken(ctx context.Context, req TokenRequest, accessTokenID string) (*model.RefreshToken, error)
	AccessTokenResponse(token *model.AccessToken) databag.DataBag
}

// Issuer stores new tokens through the token repositories.
type Issuer struct {
	accessTokens         model.AccessTokenRepositoryInterface
	refreshTokens        model.RefreshTokenRepositoryInterface
	tokenTypes           tokentype.ManagerInterface
	accessTokenValidity  time.Duration
	refreshTokenValidity time.Duration
	now                  func() time.Time
}

// NewIssuer creates an issuer. A zero refresh token validity issues refresh tokens that never expire.
func NewIssuer(accessTokens model.AccessTokenRepositoryInterface, refreshTokens model.RefreshTokenRepositoryInterface,
	tokenTypes tokentype.ManagerInterface, accessTokenValidity, refreshTokenValidity time.Duration) *Issuer {
	return &Issuer{
		accessTokens:         accessTokens,
		refreshTokens:        refreshTokens,
		tokenTypes:           tokenTypes,
		accessTokenValidity:  accessTokenValidity,
		refreshTokenValidity: refreshTokenValidity,
		now:                  time.Now,
	}
}

// IssueAccessToken mints an access token of the requested type.
func (i *Issuer) IssueAccessToken(ctx context.Context, req TokenRequest) (*model.AccessToken, error) {
	tokenType := req.TokenType
	if tokenType == "" {
		tokenType = i.tokenTypes.Default()
	}
	handler, ok := i.tokenTypes.Get(tokenType)
	if !ok {
		return nil, fmt.Errorf("token type %q is not registered", tokenType)
	}

	params := req.Parameters.With(constants.TokenType, tokenType)
	if len(req.Scopes) > 0 {
		params = params.With(constants.Scope, strings.Join(req.Scopes, " "))
	}
	params, err := handler.Prepare(params)
	if err != nil {
		return nil, err
	}

	now := i.now()
	token := &model.AccessToken{
		ClientID:        req.ClientID,
		ResourceOwnerID: req.ResourceOwnerID,
		IssuedAt:        now,
		ExpiresAt:       now.Add(i.accessTokenValidity),
		Parameters:      params,
		Metadata:        req.Metadata,
	}
	return i.accessTokens.Create(ctx, token)
}

// IssueRefreshToken mints a refresh token linked to the given access token.
func (i *Issuer) IssueRefreshToken(ctx context.Context, req TokenRequest, accessTokenID string) (
	*model.RefreshToken, error) {
	params := req.Parameters
	if len(req.Scopes) > 0 {
		params = params.With(constants.Scope, strings.Join(req.Scopes, " "))
	}

	now := i.now()
	token := &model.RefreshToken{
		ClientID:        req.ClientID,
		ResourceOwnerID: req.ResourceOwnerID,
		IssuedAt:        now,
		Parameters:      params,
		Metadata:        req.Metadata,
	}
	if i.refreshTokenValidity > 0 {
		token.ExpiresAt = now.Add(i.refreshTokenValidity)
	}
	if accessTokenID != "" {
		token.AccessTokenIDs = []string{accessTokenID}
	}
	return i.refreshTokens.Create(ctx, token)
}

// AccessTokenResponse returns the response parameters describing an access token.
func (i *Issuer) AccessTokenResponse(token *model.AccessToken) databag.DataBag {
	response := databag.New(
		constants.AccessToken, token.ID,
		constants.TokenType, token.TokenType(),
		constants.ExpiresIn, int64(token.ExpiresAt.Sub(token.IssuedAt).Seconds()),
	)
	if handler, ok := i.tokenTypes.Get(token.TokenType()); ok {
		response = response.Merge(handler.ResponseParameters(token))
	}
	return response
}
