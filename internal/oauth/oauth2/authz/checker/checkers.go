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

package checker

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/authz/model"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	oauthmodel "github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/pkce"
	"github.com/asgardeo/oidcengine/internal/system/utils"
)

var scopePattern = regexp.MustCompile(`^[\x20\x23-\x5B\x5D-\x7E]+$`)

var supportedPrompts = []string{constants.PromptNone, constants.PromptLogin, constants.PromptConsent,
	constants.PromptSelectAcct}

var supportedDisplays = []string{"page", "popup", "touch", "wap"}

// ResponseTypeRegistry resolves response types and their default response modes.
type ResponseTypeRegistry interface {
	Has(name string) bool
	IsSupported(names []string) bool
	ResponseMode(names []string) string
}

// ResponseModeRegistry lists the supported response modes.
type ResponseModeRegistry interface {
	Has(name string) bool
}

// ScopeRegistry lists the supported scopes.
type ScopeRegistry interface {
	Has(name string) bool
}

// PKCERegistry resolves code challenge methods.
type PKCERegistry interface {
	Get(name string) (pkce.MethodInterface, error)
}

// TokenTypeRegistry lists the supported token types.
type TokenTypeRegistry interface {
	Has(name string) bool
	Default() string
}

// ResponseTypeChecker resolves the response types and the response mode.
type ResponseTypeChecker struct {
	responseTypes              ResponseTypeRegistry
	responseModes              ResponseModeRegistry
	allowResponseModeParameter bool
}

// NewResponseTypeChecker creates the response type checker.
func NewResponseTypeChecker(responseTypes ResponseTypeRegistry, responseModes ResponseModeRegistry,
	allowResponseModeParameter bool) *ResponseTypeChecker {
	return &ResponseTypeChecker{
		responseTypes:              responseTypes,
		responseModes:              responseModes,
		allowResponseModeParameter: allowResponseModeParameter,
	}
}

// Check validates response_type and response_mode.
func (c *ResponseTypeChecker) Check(ctx context.Context, auth *model.Authorization, next Next) error {
	value := auth.QueryParameter(constants.ResponseType)
	if value == "" {
		return oauthmodel.NewInvalidRequestError(`The "response_type" parameter is mandatory.`)
	}
	names := strings.Fields(value)
	for _, name := range names {
		if !c.responseTypes.Has(name) {
			return oauthmodel.NewUnsupportedResponseTypeError(
				fmt.Sprintf("The response type %q is not supported.", name))
		}
	}
	if !c.responseTypes.IsSupported(names) {
		return oauthmodel.NewUnsupportedResponseTypeError(
			fmt.Sprintf("The response type %q is not supported.", strings.Join(names, " ")))
	}
	if !auth.Client.HasResponseType(names) {
		return oauthmodel.NewUnauthorizedClientError(
			fmt.Sprintf("The client is not allowed to use the response type %q.", strings.Join(names, " ")))
	}
	auth.ResponseTypes = names

	mode := c.responseTypes.ResponseMode(names)
	if c.allowResponseModeParameter && auth.HasQueryParameter(constants.ResponseMode) {
		requested := auth.QueryParameter(constants.ResponseMode)
		if !c.responseModes.Has(requested) {
			return oauthmodel.NewInvalidRequestError(
				fmt.Sprintf("The response mode %q is not supported.", requested))
		}
		if requested == constants.ResponseModeQuery && (auth.HasResponseType(constants.ResponseTypeToken) ||
			auth.HasResponseType(constants.ResponseTypeIDToken)) {
			return oauthmodel.NewInvalidRequestError(
				`The "query" response mode cannot be used with response types returning tokens.`)
		}
		mode = requested
	}
	auth.ResponseMode = mode
	return next.Check(ctx, auth)
}

// RedirectURIChecker validates redirect_uri against the client registration. Errors raised
// after it are delivered to the client by redirect.
type RedirectURIChecker struct {
	enforceSecured bool
}

// NewRedirectURIChecker creates the redirect URI checker.
func NewRedirectURIChecker(enforceSecured bool) *RedirectURIChecker {
	return &RedirectURIChecker{enforceSecured: enforceSecured}
}

// Check validates redirect_uri.
func (c *RedirectURIChecker) Check(ctx context.Context, auth *model.Authorization, next Next) error {
	value := auth.QueryParameter(constants.RedirectURI)
	if value == "" {
		return oauthmodel.NewInvalidRequestError(`The "redirect_uri" parameter is mandatory.`)
	}
	uri, err := url.Parse(value)
	if err != nil || !uri.IsAbs() {
		return oauthmodel.NewInvalidRequestError(`The "redirect_uri" parameter must be an absolute URI.`)
	}
	if uri.Fragment != "" || strings.Contains(value, "#") {
		return oauthmodel.NewInvalidRequestError(`The "redirect_uri" parameter must not contain a fragment.`)
	}
	if c.enforceSecured && uri.Scheme != "https" && !(uri.Scheme == "http" && utils.IsLoopbackHost(uri)) {
		return oauthmodel.NewInvalidRequestError(
			`The "redirect_uri" parameter must be an HTTPS URI or a loopback URI.`)
	}

	registered := auth.Client.RedirectURIs()
	if len(registered) == 0 {
		if auth.Client.IsPublic() || auth.HasResponseType(constants.ResponseTypeToken) ||
			auth.HasResponseType(constants.ResponseTypeIDToken) {
			return oauthmodel.NewInvalidRequestError("The client has not registered any redirect URI.")
		}
	} else if !slices.Contains(registered, value) {
		return oauthmodel.NewInvalidRequestError(
			`The "redirect_uri" parameter does not match any registered redirect URI.`)
	}

	auth.RedirectURI = value
	return next.Check(ctx, auth)
}

// ScopeChecker validates the requested scope.
type ScopeChecker struct {
	scopes ScopeRegistry
}

// NewScopeChecker creates the scope checker.
func NewScopeChecker(scopes ScopeRegistry) *ScopeChecker {
	return &ScopeChecker{scopes: scopes}
}

// Check validates scope. Without a scope parameter the client registered scope is used.
func (c *ScopeChecker) Check(ctx context.Context, auth *model.Authorization, next Next) error {
	value := auth.QueryParameter(constants.Scope)
	if value == "" {
		auth.Scopes = auth.Client.Scopes()
		return next.Check(ctx, auth)
	}
	if !scopePattern.MatchString(value) {
		return oauthmodel.NewInvalidScopeError(`The "scope" parameter contains invalid characters.`)
	}

	var requested []string
	for _, name := range strings.Fields(value) {
		if !slices.Contains(requested, name) {
			requested = append(requested, name)
		}
	}
	allowed := auth.Client.Scopes()
	for _, name := range requested {
		if !c.scopes.Has(name) {
			return oauthmodel.NewInvalidScopeError(fmt.Sprintf("The scope %q is not supported.", name))
		}
		if len(allowed) > 0 && !slices.Contains(allowed, name) {
			return oauthmodel.NewInvalidScopeError(
				fmt.Sprintf("The client is not allowed to request the scope %q.", name))
		}
	}
	auth.Scopes = requested
	return next.Check(ctx, auth)
}

// StateChecker optionally requires the state parameter.
type StateChecker struct {
	enforce bool
}

// NewStateChecker creates the state checker.
func NewStateChecker(enforce bool) *StateChecker {
	return &StateChecker{enforce: enforce}
}

// Check validates state.
func (c *StateChecker) Check(ctx context.Context, auth *model.Authorization, next Next) error {
	if c.enforce && auth.QueryParameter(constants.State) == "" {
		return oauthmodel.NewInvalidRequestError(`The "state" parameter is mandatory.`)
	}
	return next.Check(ctx, auth)
}

// NonceChecker requires the nonce and the openid scope when an ID token is requested.
type NonceChecker struct{}

// Check validates nonce.
func (NonceChecker) Check(ctx context.Context, auth *model.Authorization, next Next) error {
	if auth.HasResponseType(constants.ResponseTypeIDToken) {
		if auth.QueryParameter(constants.Nonce) == "" {
			return oauthmodel.NewInvalidRequestError(
				`The "nonce" parameter is mandatory when the response type contains "id_token".`)
		}
		if !auth.HasScope(constants.ScopeOpenID) {
			return oauthmodel.NewInvalidRequestError(
				`The "id_token" response type requires the "openid" scope.`)
		}
	}
	return next.Check(ctx, auth)
}

// PromptChecker validates prompt.
type PromptChecker struct{}

// Check validates prompt.
func (PromptChecker) Check(ctx context.Context, auth *model.Authorization, next Next) error {
	prompts := strings.Fields(auth.QueryParameter(constants.Prompt))
	for _, prompt := range prompts {
		if !slices.Contains(supportedPrompts, prompt) {
			return oauthmodel.NewInvalidRequestError(fmt.Sprintf("The prompt value %q is not supported.", prompt))
		}
	}
	if len(prompts) > 1 && slices.Contains(prompts, constants.PromptNone) {
		return oauthmodel.NewInvalidRequestError(`The prompt value "none" must be used alone.`)
	}
	return next.Check(ctx, auth)
}

// PKCEChecker validates the code challenge.
type PKCEChecker struct {
	methods          PKCERegistry
	enforceForPublic bool
}

// NewPKCEChecker creates the PKCE checker.
func NewPKCEChecker(methods PKCERegistry, enforceForPublic bool) *PKCEChecker {
	return &PKCEChecker{methods: methods, enforceForPublic: enforceForPublic}
}

// Check validates code_challenge and code_challenge_method.
func (c *PKCEChecker) Check(ctx context.Context, auth *model.Authorization, next Next) error {
	challenge := auth.QueryParameter(constants.CodeChallenge)
	methodName := auth.QueryParameter(constants.CodeChallengeMethod)
	if challenge == "" {
		if methodName != "" {
			return oauthmodel.NewInvalidRequestError(
				`The "code_challenge_method" parameter requires the "code_challenge" parameter.`)
		}
		if c.enforceForPublic && auth.Client.IsPublic() && auth.HasResponseType(constants.ResponseTypeCode) {
			return oauthmodel.NewInvalidRequestError(
				`The "code_challenge" parameter is mandatory for public clients.`)
		}
		return next.Check(ctx, auth)
	}

	if methodName == "" {
		methodName = pkce.CodeChallengeMethodPlain
	}
	method, err := c.methods.Get(methodName)
	if err != nil {
		return oauthmodel.NewInvalidRequestError(
			fmt.Sprintf("The code challenge method %q is not supported.", methodName))
	}
	if err := method.ValidateChallenge(challenge); err != nil {
		return oauthmodel.NewInvalidRequestError(`The "code_challenge" parameter is invalid.`)
	}
	return next.Check(ctx, auth)
}

// TokenTypeChecker resolves the token type issued for the request.
type TokenTypeChecker struct {
	tokenTypes TokenTypeRegistry
}

// NewTokenTypeChecker creates the token type checker.
func NewTokenTypeChecker(tokenTypes TokenTypeRegistry) *TokenTypeChecker {
	return &TokenTypeChecker{tokenTypes: tokenTypes}
}

// Check resolves token_type from the request, the client or the server default.
func (c *TokenTypeChecker) Check(ctx context.Context, auth *model.Authorization, next Next) error {
	tokenType := auth.QueryParameter(constants.TokenType)
	if tokenType == "" {
		tokenType = auth.Client.TokenType()
	}
	if tokenType == "" {
		tokenType = c.tokenTypes.Default()
	}
	if !c.tokenTypes.Has(tokenType) {
		return oauthmodel.NewInvalidRequestError(fmt.Sprintf("The token type %q is not supported.", tokenType))
	}
	auth.TokenType = tokenType
	return next.Check(ctx, auth)
}

// DisplayChecker validates display.
type DisplayChecker struct{}

// Check validates display.
func (DisplayChecker) Check(ctx context.Context, auth *model.Authorization, next Next) error {
	display := auth.QueryParameter(constants.Display)
	if display != "" && !slices.Contains(supportedDisplays, display) {
		return oauthmodel.NewInvalidRequestError(fmt.Sprintf("The display value %q is not supported.", display))
	}
	return next.Check(ctx, auth)
}

// MaxAgeChecker validates max_age.
type MaxAgeChecker struct{}

// Check validates max_age.
func (MaxAgeChecker) Check(ctx context.Context, auth *model.Authorization, next Next) error {
	if auth.HasQueryParameter(constants.MaxAge) {
		maxAge, err := strconv.ParseInt(auth.QueryParameter(constants.MaxAge), 10, 64)
		if err != nil || maxAge < 0 {
			return oauthmodel.NewInvalidRequestError(`The "max_age" parameter must be a non-negative integer.`)
		}
	}
	return next.Check(ctx, auth)
}
