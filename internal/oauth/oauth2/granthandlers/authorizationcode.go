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
	"net/url"
	"time"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/pkce"
	"github.com/asgardeo/oidcengine/internal/system/log"
)

const invalidCodeDescription = "The authorization code is invalid."

// CodeVerifierInterface checks a PKCE code verifier against a stored challenge.
type CodeVerifierInterface interface {
	Verify(codeChallenge, codeChallengeMethod, codeVerifier string) error
}

// AuthorizationCodeGrantHandler redeems authorization codes.
type AuthorizationCodeGrantHandler struct {
	codes model.AuthorizationCodeRepositoryInterface
	pkce  CodeVerifierInterface
	now   func() time.Time
}

// NewAuthorizationCodeGrantHandler creates the authorization_code grant.
func NewAuthorizationCodeGrantHandler(codes model.AuthorizationCodeRepositoryInterface,
	verifier CodeVerifierInterface) *AuthorizationCodeGrantHandler {
	return &AuthorizationCodeGrantHandler{codes: codes, pkce: verifier, now: time.Now}
}

// GrantType implements GrantHandlerInterface.
func (h *AuthorizationCodeGrantHandler) GrantType() string {
	return constants.GrantTypeAuthorizationCode
}

// CheckRequest implements GrantHandlerInterface.
func (h *AuthorizationCodeGrantHandler) CheckRequest(form url.Values) error {
	if form.Get(constants.Code) == "" {
		return model.NewInvalidRequestError(`The "code" parameter is mandatory.`)
	}
	return nil
}

// Grant implements GrantHandlerInterface. The code is marked used before any token is issued,
// so a concurrent second redemption fails.
func (h *AuthorizationCodeGrantHandler) Grant(ctx context.Context, c *client.Client,
	form url.Values) (*GrantData, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "AuthorizationCodeGrantHandler"),
		log.String(log.LoggerKeyClientID, c.ID))

	code, err := h.codes.Find(ctx, form.Get(constants.Code))
	if errors.Is(err, model.ErrTokenNotFound) {
		return nil, model.NewInvalidGrantError(invalidCodeDescription)
	}
	if err != nil {
		return nil, model.NewServerError(err)
	}
	if code.Used || code.Revoked {
		logger.Warn("Attempt to redeem an authorization code more than once")
		return nil, model.NewInvalidGrantError(invalidCodeDescription).WithCause(model.ErrCodeAlreadyUsed)
	}
	if code.ClientID != c.ID {
		return nil, model.NewInvalidGrantError(invalidCodeDescription)
	}
	if code.IsExpired(h.now()) {
		return nil, model.NewInvalidGrantError("The authorization code has expired.")
	}
	if form.Get(constants.RedirectURI) != code.RedirectURI {
		return nil, model.NewInvalidRequestError(
			`The "redirect_uri" parameter does not match the authorization request.`)
	}
	if err := h.verifyCodeChallenge(code, form.Get(constants.CodeVerifier)); err != nil {
		return nil, err
	}

	if err := h.codes.MarkUsed(ctx, code.ID); err != nil {
		if errors.Is(err, model.ErrCodeAlreadyUsed) {
			logger.Warn("Authorization code was redeemed concurrently")
			return nil, model.NewInvalidGrantError(invalidCodeDescription).WithCause(err)
		}
		return nil, model.NewServerError(err)
	}

	return &GrantData{
		Client:    c,
		GrantType: constants.GrantTypeAuthorizationCode,
		Parameters: code.Parameters.
			Without(constants.CodeChallenge).
			Without(constants.CodeChallengeMethod),
		Metadata:            code.Metadata.With(model.MetadataAuthorizationCodeID, code.ID),
		ResourceOwnerID:     code.UserAccountID,
		RefreshTokenAllowed: true,
	}, nil
}

func (h *AuthorizationCodeGrantHandler) verifyCodeChallenge(code *model.AuthorizationCode, verifier string) error {
	challenge := code.Parameters.GetString(constants.CodeChallenge)
	if challenge == "" {
		if verifier != "" {
			return model.NewInvalidGrantError("A code verifier was sent for a code issued without a code challenge.")
		}
		return nil
	}
	if verifier == "" {
		return model.NewInvalidGrantError(`The "code_verifier" parameter is mandatory.`)
	}
	err := h.pkce.Verify(challenge, code.Parameters.GetString(constants.CodeChallengeMethod), verifier)
	if err != nil {
		return model.NewInvalidGrantError("The code verifier does not match the code challenge.").WithCause(err)
	}
	return nil
}

var _ CodeVerifierInterface = (*pkce.Registry)(nil)
