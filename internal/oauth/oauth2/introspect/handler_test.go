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

package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/asgardeo/oidcengine/internal/oauth/client/store"
	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/clientauth"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/tokenstore"
)

type failingService struct{}

func (failingService) IntrospectToken(context.Context, string, string) (*IntrospectResponse, error) {
	return nil, errors.New("store unavailable")
}

type TokenIntrospectionHandlerTestSuite struct {
	suite.Suite
	clientAuth *clientauth.Manager
	handler    *TokenIntrospectionHandler
}

func TestTokenIntrospectionHandlerSuite(t *testing.T) {
	suite.Run(t, new(TokenIntrospectionHandlerTestSuite))
}

func (suite *TokenIntrospectionHandlerTestSuite) SetupTest() {
	ctx := context.Background()
	clients := store.NewMemoryClientStore()
	_, err := clients.Create(ctx, "resource-server", databag.New(
		constants.ClientParamTokenEndpointAuthMethod, constants.AuthMethodClientSecretBasic,
		constants.ClientParamClientSecret, "rs-secret",
	), "")
	require.NoError(suite.T(), err)
	suite.clientAuth = clientauth.NewManager(clients, clientauth.ClientSecretBasicMethod{})

	stores := tokenstore.NewMemoryStores()
	_, err = stores.AccessTokens.Create(ctx, &model.AccessToken{
		ID:        "at-1",
		ClientID:  "web-app",
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
		Parameters: databag.New(constants.Scope, "read",
			constants.TokenType, constants.TokenTypeBearer),
	})
	require.NoError(suite.T(), err)

	suite.handler = NewTokenIntrospectionHandler(
		NewTokenIntrospectionService(stores.AccessTokens, stores.RefreshTokens, testIssuer), suite.clientAuth)
}

func introspectRequest(form url.Values, authenticated bool) *http.Request {
	req := httptest.NewRequest(http.MethodPost, constants.OAuth2IntrospectionEndpoint,
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if authenticated {
		req.SetBasicAuth("resource-server", "rs-secret")
	}
	return req
}

func (suite *TokenIntrospectionHandlerTestSuite) TestActiveToken() {
	rr := httptest.NewRecorder()
	suite.handler.HandleIntrospect(rr, introspectRequest(url.Values{constants.Token: {"at-1"}}, true))

	require.Equal(suite.T(), http.StatusOK, rr.Code)
	assert.Equal(suite.T(), "no-store", rr.Header().Get("Cache-Control"))
	var body map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(suite.T(), true, body["active"])
	assert.Equal(suite.T(), "read", body["scope"])
	assert.Equal(suite.T(), "web-app", body["client_id"])
}

func (suite *TokenIntrospectionHandlerTestSuite) TestInactiveTokenOnlyReportsActive() {
	rr := httptest.NewRecorder()
	suite.handler.HandleIntrospect(rr, introspectRequest(url.Values{constants.Token: {"unknown"}}, true))

	require.Equal(suite.T(), http.StatusOK, rr.Code)
	assert.JSONEq(suite.T(), `{"active":false}`, rr.Body.String())
}

func (suite *TokenIntrospectionHandlerTestSuite) TestClientAuthenticationRequired() {
	rr := httptest.NewRecorder()
	suite.handler.HandleIntrospect(rr, introspectRequest(url.Values{constants.Token: {"at-1"}}, false))

	assert.Equal(suite.T(), http.StatusUnauthorized, rr.Code)
	assert.Contains(suite.T(), rr.Body.String(), constants.ErrorInvalidClient)
}

func (suite *TokenIntrospectionHandlerTestSuite) TestMissingToken() {
	rr := httptest.NewRecorder()
	suite.handler.HandleIntrospect(rr, introspectRequest(url.Values{}, true))

	assert.Equal(suite.T(), http.StatusBadRequest, rr.Code)
	assert.Contains(suite.T(), rr.Body.String(), "Token parameter is required")
}

func (suite *TokenIntrospectionHandlerTestSuite) TestOnlyPostIsAccepted() {
	rr := httptest.NewRecorder()
	suite.handler.HandleIntrospect(rr, httptest.NewRequest(http.MethodGet, constants.OAuth2IntrospectionEndpoint, nil))

	assert.Equal(suite.T(), http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(suite.T(), http.MethodPost, rr.Header().Get("Allow"))
}

func (suite *TokenIntrospectionHandlerTestSuite) TestServiceFailure() {
	handler := NewTokenIntrospectionHandler(failingService{}, suite.clientAuth)
	rr := httptest.NewRecorder()
	handler.HandleIntrospect(rr, introspectRequest(url.Values{constants.Token: {"at-1"}}, true))

	assert.Equal(suite.T(), http.StatusInternalServerError, rr.Code)
	assert.Contains(suite.T(), rr.Body.String(), constants.ErrorServerError)
}
