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

package responsetype

import (
	"context"
	"strings"
	"time"

	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/authz/model"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/idtoken"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/issuer"
	oauthmodel "github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/system/log"
)

// CodeResponseType issues an authorization code before the rest of the chain runs.
type CodeResponseType struct {
	codes    oauthmodel.AuthorizationCodeRepositoryInterface
	validity time.Duration
	now      func() time.Time
}

// NewCodeResponseType creates the "code" response type.
func NewCodeResponseType(codes oauthmodel.AuthorizationCodeRepositoryInterface,
	validity time.Duration) *CodeResponseType {
	return &CodeResponseType{codes: codes, validity: validity, now: time.Now}
}

// Name returns "code".
func (t *CodeResponseType) Name() string { return constants.ResponseTypeCode }

// ResponseMode returns "query".
func (t *CodeResponseType) ResponseMode() string { return constants.ResponseModeQuery }

// GrantType returns "authorization_code".
func (t *CodeResponseType) GrantType() string { return constants.GrantTypeAuthorizationCode }

// Process stores a new authorization code and adds it to the response.
func (t *CodeResponseType) Process(ctx context.Context, auth *model.Authorization, next Next) error {
	params := databag.New(constants.Scope, strings.Join(auth.Scopes, " "))
	if auth.TokenType != "" {
		params = params.With(constants.TokenType, auth.TokenType)
	}
	if challenge := auth.QueryParameter(constants.CodeChallenge); challenge != "" {
		params = params.With(constants.CodeChallenge, challenge).
			With(constants.CodeChallengeMethod, auth.QueryParameter(constants.CodeChallengeMethod))
	}

	code := &oauthmodel.AuthorizationCode{
		ClientID:        auth.Client.ID,
		UserAccountID:   auth.UserAccount.ID,
		QueryParameters: auth.QueryParameters,
		RedirectURI:     auth.RedirectURI,
		ExpiresAt:       t.now().Add(t.validity),
		Parameters:      params,
		Metadata:        tokenMetadata(auth),
	}
	created, err := t.codes.Create(ctx, code)
	if err != nil {
		return err
	}

	auth.SetResponseParameter(constants.Code, created.ID)
	auth.SetData(model.DataAuthorizationCodeID, created.ID)
	return next.Process(ctx, auth)
}

// TokenResponseType issues an access token directly from the authorization endpoint.
type TokenResponseType struct {
	issuer issuer.IssuerInterface
}

// NewTokenResponseType creates the "token" response type.
func NewTokenResponseType(tokenIssuer issuer.IssuerInterface) *TokenResponseType {
	return &TokenResponseType{issuer: tokenIssuer}
}

// Name returns "token".
func (t *TokenResponseType) Name() string { return constants.ResponseTypeToken }

// ResponseMode returns "fragment".
func (t *TokenResponseType) ResponseMode() string { return constants.ResponseModeFragment }

// GrantType returns "implicit".
func (t *TokenResponseType) GrantType() string { return constants.GrantTypeImplicit }

// Process issues an access token and adds it to the response.
func (t *TokenResponseType) Process(ctx context.Context, auth *model.Authorization, next Next) error {
	token, err := t.issuer.IssueAccessToken(ctx, issuer.TokenRequest{
		ClientID:        auth.Client.ID,
		ResourceOwnerID: auth.UserAccount.ID,
		Scopes:          auth.Scopes,
		TokenType:       auth.TokenType,
		Metadata:        tokenMetadata(auth),
	})
	if err != nil {
		return err
	}

	auth.ResponseParameters = auth.ResponseParameters.Merge(t.issuer.AccessTokenResponse(token))
	auth.SetResponseParameter(constants.Scope, token.Scope())
	auth.SetData(model.DataAccessTokenID, token.ID)
	return next.Process(ctx, auth)
}

// IDTokenResponseType adds an ID token once the other response types of the chain ran, so
// the token can carry the hashes of the code and the access token.
type IDTokenResponseType struct {
	builder idtoken.BuilderInterface
}

// NewIDTokenResponseType creates the "id_token" response type.
func NewIDTokenResponseType(builder idtoken.BuilderInterface) *IDTokenResponseType {
	return &IDTokenResponseType{builder: builder}
}

// Name returns "id_token".
func (t *IDTokenResponseType) Name() string { return constants.ResponseTypeIDToken }

// ResponseMode returns "fragment".
func (t *IDTokenResponseType) ResponseMode() string { return constants.ResponseModeFragment }

// GrantType returns "implicit".
func (t *IDTokenResponseType) GrantType() string { return constants.GrantTypeImplicit }

// Process runs the rest of the chain and then adds the ID token. The openid scope and the
// nonce are checked before the chain runs.
func (t *IDTokenResponseType) Process(ctx context.Context, auth *model.Authorization, next Next) error {
	if err := next.Process(ctx, auth); err != nil {
		return err
	}

	req := idtoken.Request{
		Client:      auth.Client,
		User:        auth.UserAccount,
		Scopes:      auth.Scopes,
		Nonce:       auth.QueryParameter(constants.Nonce),
		AccessToken: auth.ResponseParameters.GetString(constants.AccessToken),
		Code:        auth.ResponseParameters.GetString(constants.Code),
	}
	if authTime, ok := auth.Data.GetInt64(model.DataAuthTime); ok {
		req.AuthTime = time.Unix(authTime, 0)
	}
	token, err := t.builder.Build(ctx, req)
	if err != nil {
		logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "IDTokenResponseType"))
		logger.Error("Failed to build ID token", log.String(log.LoggerKeyClientID, auth.Client.ID),
			log.Error(err))
		return err
	}
	auth.SetResponseParameter(constants.IDToken, token)
	return nil
}

// NoneResponseType returns no credentials.
type NoneResponseType struct{}

// Name returns "none".
func (NoneResponseType) Name() string { return constants.ResponseTypeNone }

// ResponseMode returns "query".
func (NoneResponseType) ResponseMode() string { return constants.ResponseModeQuery }

// GrantType returns an empty string since "none" does not need a grant.
func (NoneResponseType) GrantType() string { return "" }

// Process continues the chain.
func (NoneResponseType) Process(ctx context.Context, auth *model.Authorization, next Next) error {
	return next.Process(ctx, auth)
}

func tokenMetadata(auth *model.Authorization) databag.DataBag {
	metadata := databag.New(oauthmodel.MetadataResourceOwnerIsUser, true)
	if authTime, ok := auth.Data.GetInt64(model.DataAuthTime); ok {
		metadata = metadata.With(oauthmodel.MetadataAuthTime, authTime)
	}
	if nonce := auth.QueryParameter(constants.Nonce); nonce != "" {
		metadata = metadata.With(oauthmodel.MetadataNonce, nonce)
	}
	return metadata
}
