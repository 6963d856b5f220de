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

// Package token provides the handler of the OAuth 2.0 token endpoint.
package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/clientauth"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/granthandlers"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/idtoken"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/issuer"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/oauth/user"
	"github.com/asgardeo/oidcengine/internal/system/audit"
	"github.com/asgardeo/oidcengine/internal/system/instrumentation"
	"github.com/asgardeo/oidcengine/internal/system/log"
	"github.com/asgardeo/oidcengine/internal/system/utils"
)

// Dependencies holds the collaborators of the token endpoint.
type Dependencies struct {
	ClientAuth    clientauth.ManagerInterface
	GrantHandlers granthandlers.GrantHandlerProviderInterface
	Processors    *Processors
	Issuer        issuer.IssuerInterface
	RefreshTokens model.RefreshTokenRepositoryInterface
	// IDTokens may be nil when OpenID Connect is disabled.
	IDTokens idtoken.BuilderInterface
	Users    user.RepositoryInterface
	// RenewRefreshToken issues a new refresh token on every refresh and revokes the used one.
	RenewRefreshToken bool
	Auditor           audit.AuditorInterface
	Metrics           *instrumentation.Metrics
}

// TokenHandler handles OAuth 2.0 token requests.
type TokenHandler struct {
	deps Dependencies
}

// NewTokenHandler creates the token endpoint handler.
func NewTokenHandler(deps Dependencies) *TokenHandler {
	return &TokenHandler{deps: deps}
}

// HandleTokenRequest authenticates the client, runs the requested grant and writes the token response.
func (th *TokenHandler) HandleTokenRequest(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "TokenHandler"))

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		utils.WriteJSONError(w, constants.ErrorInvalidRequest, "The token endpoint only accepts POST requests.",
			http.StatusMethodNotAllowed, nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		utils.WriteJSONError(w, constants.ErrorInvalidRequest,
			"Failed to parse request body", http.StatusBadRequest, nil)
		return
	}

	grantType := r.PostForm.Get(constants.GrantType)
	if grantType == "" {
		th.writeError(w, r, nil, grantType,
			model.NewInvalidRequestError(`The "grant_type" parameter is mandatory.`))
		return
	}

	c, err := th.deps.ClientAuth.Authenticate(r.Context(), r)
	if err != nil {
		th.writeError(w, r, nil, grantType, err)
		return
	}
	logger = logger.With(log.String(log.LoggerKeyClientID, c.ID), log.String(log.LoggerKeyGrantType, grantType))

	response, err := th.exchange(r.Context(), c, grantType, r)
	if err != nil {
		th.writeError(w, r, c, grantType, err)
		return
	}

	logger.Debug("Token generated successfully")
	th.deps.Metrics.RecordTokenIssued(r.Context(), c.ID, grantType)
	utils.WriteJSON(w, http.StatusOK, response, true)
}

// exchange runs the grant and the processors, then issues the tokens.
func (th *TokenHandler) exchange(ctx context.Context, c *client.Client, grantType string,
	r *http.Request) (databag.DataBag, error) {
	handler, err := th.deps.GrantHandlers.GetGrantHandler(grantType)
	if err != nil {
		return databag.DataBag{}, err
	}
	if !c.HasGrantType(grantType) {
		return databag.DataBag{}, model.NewUnauthorizedClientError(
			fmt.Sprintf("The client is not allowed to use the grant type %q.", grantType))
	}
	if err := handler.CheckRequest(r.PostForm); err != nil {
		return databag.DataBag{}, err
	}

	data, err := handler.Grant(ctx, c, r.PostForm)
	if err != nil {
		return databag.DataBag{}, err
	}
	if err := th.deps.Processors.Process(ctx, data); err != nil {
		return databag.DataBag{}, err
	}

	response, err := th.issue(ctx, data)
	if err != nil {
		return databag.DataBag{}, err
	}
	th.recordIssued(ctx, r, data)
	return response, nil
}

// issue mints the access token and, when allowed, the refresh and ID tokens.
func (th *TokenHandler) issue(ctx context.Context, data *granthandlers.GrantData) (databag.DataBag, error) {
	req := issuer.TokenRequest{
		ClientID:        data.Client.ID,
		ResourceOwnerID: data.ResourceOwnerID,
		Scopes:          data.Scopes,
		TokenType:       data.TokenType,
		Parameters:      data.Parameters,
		Metadata:        data.Metadata,
	}
	accessToken, err := th.deps.Issuer.IssueAccessToken(ctx, req)
	if err != nil {
		return databag.DataBag{}, model.NewServerError(err)
	}
	response := th.deps.Issuer.AccessTokenResponse(accessToken)
	if len(data.Scopes) > 0 {
		response = response.With(constants.Scope, strings.Join(data.Scopes, " "))
	}

	if data.RefreshTokenAllowed && data.Client.HasGrantType(constants.GrantTypeRefreshToken) {
		refreshToken, err := th.refresh(ctx, data, req, accessToken.ID)
		if err != nil {
			return databag.DataBag{}, err
		}
		if refreshToken != "" {
			response = response.With(constants.RefreshToken, refreshToken)
		}
	}

	if th.deps.IDTokens != nil && slices.Contains(data.Scopes, constants.ScopeOpenID) && data.ResourceOwnerIsUser() {
		idToken, err := th.idToken(ctx, data, accessToken.ID)
		if err != nil {
			return databag.DataBag{}, err
		}
		if idToken != "" {
			response = response.With(constants.IDToken, idToken)
		}
	}
	return response, nil
}

// refresh retires or extends the redeemed refresh token and returns a new one when one is issued.
func (th *TokenHandler) refresh(ctx context.Context, data *granthandlers.GrantData, req issuer.TokenRequest,
	accessTokenID string) (string, error) {
	if used := data.RefreshToken; used != nil {
		if th.deps.RenewRefreshToken {
			used.Revoked = true
		} else {
			used.AccessTokenIDs = append(used.AccessTokenIDs, accessTokenID)
		}
		if err := th.deps.RefreshTokens.Save(ctx, used); err != nil {
			return "", model.NewServerError(err)
		}
		if !th.deps.RenewRefreshToken {
			return "", nil
		}
	}

	refreshToken, err := th.deps.Issuer.IssueRefreshToken(ctx, req, accessTokenID)
	if err != nil {
		return "", model.NewServerError(err)
	}
	return refreshToken.ID, nil
}

func (th *TokenHandler) idToken(ctx context.Context, data *granthandlers.GrantData,
	accessTokenID string) (string, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "TokenHandler"))

	account, err := th.deps.Users.Find(ctx, data.ResourceOwnerID)
	if errors.Is(err, user.ErrUserNotFound) {
		logger.Debug("No ID token issued for an unknown user", log.String(log.LoggerKeyClientID, data.Client.ID))
		return "", nil
	}
	if err != nil {
		return "", model.NewServerError(err)
	}

	req := idtoken.Request{
		Client:      data.Client,
		User:        account,
		Scopes:      data.Scopes,
		Nonce:       data.Metadata.GetString(model.MetadataNonce),
		AccessToken: accessTokenID,
	}
	if authTime, ok := data.Metadata.GetInt64(model.MetadataAuthTime); ok {
		req.AuthTime = time.Unix(authTime, 0)
	}
	idToken, err := th.deps.IDTokens.Build(ctx, req)
	if err != nil {
		return "", model.NewServerError(err)
	}
	return idToken, nil
}

func (th *TokenHandler) recordIssued(ctx context.Context, r *http.Request, data *granthandlers.GrantData) {
	if th.deps.Auditor == nil {
		return
	}
	eventType := audit.EventTokenIssued
	if data.RefreshToken != nil {
		eventType = audit.EventTokenRefreshed
	}
	th.deps.Auditor.Record(ctx, audit.Event{
		Type:      eventType,
		ClientID:  data.Client.ID,
		Subject:   data.ResourceOwnerID,
		IPAddress: r.RemoteAddr,
		Details:   map[string]interface{}{"grant_type": data.GrantType, "scope": strings.Join(data.Scopes, " ")},
	})
}

func (th *TokenHandler) writeError(w http.ResponseWriter, r *http.Request, c *client.Client, grantType string,
	err error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "TokenHandler"))

	oauthErr := model.ToOAuthError(err)
	if oauthErr.Code == constants.ErrorServerError {
		logger.Error("Token request failed", log.String(log.LoggerKeyGrantType, grantType), log.Error(err))
	}
	th.deps.Metrics.RecordTokenError(r.Context(), grantType, oauthErr.Code)

	if th.deps.Auditor != nil {
		event := audit.Event{IPAddress: r.RemoteAddr,
			Details: map[string]interface{}{"grant_type": grantType, "error": oauthErr.Code}}
		if c != nil {
			event.ClientID = c.ID
		}
		switch {
		case oauthErr.Code == constants.ErrorInvalidClient:
			event.Type = audit.EventClientAuthFailed
			th.deps.Auditor.Record(r.Context(), event)
		case errors.Is(err, model.ErrCodeAlreadyUsed):
			event.Type = audit.EventCodeReuseDetected
			th.deps.Auditor.Record(r.Context(), event)
		}
	}

	utils.WriteJSONError(w, oauthErr.Code, oauthErr.Description, oauthErr.StatusCode, oauthErr.Headers)
}
