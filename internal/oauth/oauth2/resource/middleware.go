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

// Package resource protects HTTP resources with access tokens issued by the server.
package resource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/tokentype"
	"github.com/asgardeo/oidcengine/internal/system/log"
	"github.com/asgardeo/oidcengine/internal/system/utils"
)

type contextKey struct{}

// AccessTokenFromContext returns the access token the middleware accepted for the request.
func AccessTokenFromContext(ctx context.Context) (*model.AccessToken, bool) {
	token, ok := ctx.Value(contextKey{}).(*model.AccessToken)
	return token, ok
}

// WithAccessToken returns a copy of the context carrying the access token.
func WithAccessToken(ctx context.Context, token *model.AccessToken) context.Context {
	return context.WithValue(ctx, contextKey{}, token)
}

// Middleware validates the access token presented with a request.
type Middleware struct {
	tokenTypes   tokentype.ManagerInterface
	accessTokens model.AccessTokenRepositoryInterface
	now          func() time.Time
}

// NewMiddleware creates the resource protection middleware.
func NewMiddleware(tokenTypes tokentype.ManagerInterface,
	accessTokens model.AccessTokenRepositoryInterface) *Middleware {
	return &Middleware{tokenTypes: tokenTypes, accessTokens: accessTokens, now: time.Now}
}

// Protect wraps next so it only runs for requests carrying a valid access token granted
// every required scope.
func (m *Middleware) Protect(requiredScopes []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := m.authenticate(r, requiredScopes)
		if err != nil {
			m.writeError(w, err, requiredScopes)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithAccessToken(r.Context(), token)))
	})
}

func (m *Middleware) authenticate(r *http.Request, requiredScopes []string) (*model.AccessToken, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "ResourceMiddleware"))

	handler, presented, credentials, err := m.tokenTypes.FindToken(r)
	if err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, errMissingToken
	}

	token, err := m.accessTokens.Find(r.Context(), presented)
	if errors.Is(err, model.ErrTokenNotFound) {
		return nil, model.NewInvalidTokenError("The access token is invalid.")
	}
	if err != nil {
		return nil, model.NewServerError(err)
	}
	if token.Revoked {
		return nil, model.NewInvalidTokenError("The access token was revoked.")
	}
	if token.IsExpired(m.now()) {
		return nil, model.NewInvalidTokenError("The access token expired.")
	}
	if !handler.IsValid(r.Context(), token, credentials, r) {
		logger.Debug("Access token presented with invalid credentials", log.String("tokenType", handler.Name()))
		return nil, model.NewInvalidTokenError("The access token is invalid.")
	}

	granted := utils.SplitSpaceDelimited(token.Scope())
	if !utils.ContainsAll(granted, requiredScopes) {
		return nil, model.NewInsufficientScopeError(
			fmt.Sprintf("The access token requires the scope %q.", strings.Join(requiredScopes, " ")))
	}
	return token, nil
}

// errMissingToken answers requests without any token with a bare challenge.
var errMissingToken = errors.New("no access token presented")

func (m *Middleware) writeError(w http.ResponseWriter, err error, requiredScopes []string) {
	if errors.Is(err, errMissingToken) {
		for _, challenge := range m.tokenTypes.SchemesParameters() {
			w.Header().Add("WWW-Authenticate", challenge)
		}
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	oauthErr := model.ToOAuthError(err)
	if oauthErr.Code == constants.ErrorServerError {
		log.GetLogger().With(log.String(log.LoggerKeyComponentName, "ResourceMiddleware")).
			Error("Failed to validate access token", log.Error(err))
	} else {
		params := fmt.Sprintf(`error=%q, error_description=%q`, oauthErr.Code, oauthErr.Description)
		if oauthErr.Code == constants.ErrorInsufficientScope {
			params += fmt.Sprintf(`, scope=%q`, strings.Join(requiredScopes, " "))
		}
		for _, challenge := range m.tokenTypes.SchemesParameters() {
			w.Header().Add("WWW-Authenticate", withParameters(challenge, params))
		}
	}
	utils.WriteJSONError(w, oauthErr.Code, oauthErr.Description, oauthErr.StatusCode, oauthErr.Headers)
}

// withParameters appends auth-params to a challenge that may already carry some.
func withParameters(challenge, params string) string {
	if strings.Contains(challenge, " ") {
		return challenge + ", " + params
	}
	return challenge + " " + params
}
