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

package authz

import (
	"context"
	"encoding/json"
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
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/authz/checker"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/authz/requestobject"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/authz/responsemode"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/authz/responsetype"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/idtoken"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/issuer"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/pkce"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/tokenstore"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/tokentype"
	"github.com/asgardeo/oidcengine/internal/oauth/scope"
	"github.com/asgardeo/oidcengine/internal/oauth/user"
	"github.com/asgardeo/oidcengine/internal/system/cache"
	syshttp "github.com/asgardeo/oidcengine/internal/system/http"
	"github.com/asgardeo/oidcengine/internal/system/jose"
)

const (
	userHeader  = "X-Authenticated-User"
	redirectURI = "https://client.example.com/cb"
)

type AuthorizeHandlerTestSuite struct {
	suite.Suite
	stores  tokenstore.Stores
	handler *AuthorizeHandler
}

func TestAuthorizeHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthorizeHandlerTestSuite))
}

func (suite *AuthorizeHandlerTestSuite) SetupTest() {
	ctx := context.Background()
	clients := store.NewMemoryClientStore()
	_, err := clients.Create(ctx, "web-app", databag.New(
		constants.ClientParamTokenEndpointAuthMethod, constants.AuthMethodClientSecretBasic,
		constants.ClientParamClientSecret, "secret",
		constants.ClientParamRedirectURIs, []string{redirectURI},
		constants.ClientParamGrantTypes, []string{constants.GrantTypeAuthorizationCode, constants.GrantTypeImplicit},
		constants.ClientParamResponseTypes, []string{"code", "id_token token"},
	), "")
	require.NoError(suite.T(), err)

	suite.stores = tokenstore.NewMemoryStores()
	tokenTypes := tokentype.NewManager(constants.TokenTypeBearer, tokentype.NewBearerHandler("", nil))
	tokenIssuer := issuer.NewIssuer(suite.stores.AccessTokens, suite.stores.RefreshTokens, tokenTypes, time.Hour, 0)

	provider := jose.NewProvider()
	signingKey, err := jose.GenerateSigningKey("RS256", "server-key")
	require.NoError(suite.T(), err)
	httpClient := syshttp.NewHTTPClientWithTimeout(time.Second)
	keySets := jose.NewKeySetResolver(httpClient, cache.NewCache[*jose.KeySet]("jwks", 10, time.Minute))
	builder := idtoken.NewBuilder("https://op.example.com", time.Hour, provider, []jose.Key{signingKey}, keySets,
		jose.None[jose.Encryption]())

	responseTypes := responsetype.NewManager(
		responsetype.NewCodeResponseType(suite.stores.Codes, 30*time.Second),
		responsetype.NewTokenResponseType(tokenIssuer),
		responsetype.NewIDTokenResponseType(builder),
		responsetype.NoneResponseType{},
	)
	responseModes := responsemode.NewDefaultManager()
	checkers := checker.NewDefaultPipeline(checker.Dependencies{
		ResponseTypes:              responseTypes,
		ResponseModes:              responseModes,
		AllowResponseModeParameter: true,
		EnforceSecuredRedirectURI:  true,
		Scopes:                     scope.NewMemoryRepository(scope.Scope{Name: "openid"}, scope.Scope{Name: "profile"}),
		PKCE:                       pkce.NewRegistry(false),
		TokenTypes:                 tokenTypes,
	})
	users := user.NewHeaderResolver(userHeader, user.NewMemoryRepository(
		&user.UserAccount{ID: "alice", Claims: map[string]interface{}{"name": "Alice"}}))
	loader := requestobject.NewLoader(requestobject.Config{}, provider, keySets, httpClient)

	suite.handler = NewAuthorizeHandler(clients, users, loader, checkers, responseTypes, responseModes, nil, nil)
}

func (suite *AuthorizeHandlerTestSuite) serve(query url.Values, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorize?"+query.Encode(), nil)
	if userID != "" {
		req.Header.Set(userHeader, userID)
	}
	w := httptest.NewRecorder()
	suite.handler.HandleAuthorizeRequest(w, req)
	return w
}

func (suite *AuthorizeHandlerTestSuite) codeRequest() url.Values {
	return url.Values{
		constants.ResponseType: {"code"},
		constants.ClientID:     {"web-app"},
		constants.RedirectURI:  {redirectURI},
		constants.Scope:        {"openid"},
		constants.State:        {"af0ifjsldkj"},
	}
}

func (suite *AuthorizeHandlerTestSuite) location(w *httptest.ResponseRecorder) *url.URL {
	require.Equal(suite.T(), http.StatusFound, w.Code)
	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(suite.T(), err)
	return location
}

func (suite *AuthorizeHandlerTestSuite) jsonError(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (suite *AuthorizeHandlerTestSuite) TestCodeFlow() {
	w := suite.serve(suite.codeRequest(), "alice")
	location := suite.location(w)
	assert.Equal(suite.T(), "client.example.com", location.Host)
	assert.Equal(suite.T(), "af0ifjsldkj", location.Query().Get(constants.State))

	codeID := location.Query().Get(constants.Code)
	require.NotEmpty(suite.T(), codeID)
	code, err := suite.stores.Codes.Find(context.Background(), codeID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "alice", code.UserAccountID)
	assert.Equal(suite.T(), redirectURI, code.RedirectURI)
	assert.False(suite.T(), code.Used)
}

func (suite *AuthorizeHandlerTestSuite) TestImplicitFlowUsesFragment() {
	query := suite.codeRequest()
	query.Set(constants.ResponseType, "id_token token")
	query.Set(constants.Nonce, "n-0S6_WzA2Mj")
	location := suite.location(suite.serve(query, "alice"))

	assert.Empty(suite.T(), location.RawQuery)
	fragment, err := url.ParseQuery(location.Fragment)
	require.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), fragment.Get(constants.AccessToken))
	assert.NotEmpty(suite.T(), fragment.Get(constants.IDToken))
	assert.Equal(suite.T(), constants.TokenTypeBearer, fragment.Get(constants.TokenType))
	assert.Equal(suite.T(), "af0ifjsldkj", fragment.Get(constants.State))
}

func (suite *AuthorizeHandlerTestSuite) TestFormPost() {
	query := suite.codeRequest()
	query.Set(constants.ResponseMode, constants.ResponseModeFormPost)
	w := suite.serve(query, "alice")
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), `action="https://client.example.com/cb"`)
	assert.Contains(suite.T(), w.Body.String(), `name="state" value="af0ifjsldkj"`)
}

func (suite *AuthorizeHandlerTestSuite) TestLoginRequiredIsRedirected() {
	location := suite.location(suite.serve(suite.codeRequest(), ""))
	assert.Equal(suite.T(), constants.ErrorLoginRequired, location.Query().Get(constants.Error))
	assert.Equal(suite.T(), "af0ifjsldkj", location.Query().Get(constants.State))
	assert.Empty(suite.T(), location.Query().Get(constants.Code))
}

func (suite *AuthorizeHandlerTestSuite) TestInvalidScopeIsRedirected() {
	query := suite.codeRequest()
	query.Set(constants.Scope, "openid admin")
	location := suite.location(suite.serve(query, "alice"))
	assert.Equal(suite.T(), constants.ErrorInvalidScope, location.Query().Get(constants.Error))
	assert.Equal(suite.T(), `The scope 'admin' is not supported.`, location.Query().Get(constants.ErrorDescription))
}

func (suite *AuthorizeHandlerTestSuite) TestCheckerErrorsAreRedirected() {
	missingNonce := suite.codeRequest()
	missingNonce.Set(constants.ResponseType, "id_token token")
	promptNoneWithLogin := suite.codeRequest()
	promptNoneWithLogin.Set(constants.Prompt, "none login")
	methodWithoutChallenge := suite.codeRequest()
	methodWithoutChallenge.Set(constants.CodeChallengeMethod, "S256")

	cases := map[string]struct {
		query    url.Values
		fragment bool
	}{
		"missing nonce":            {missingNonce, true},
		"prompt none with login":   {promptNoneWithLogin, false},
		"method without challenge": {methodWithoutChallenge, false},
	}
	for name, tc := range cases {
		suite.Run(name, func() {
			location := suite.location(suite.serve(tc.query, "alice"))
			assert.Equal(suite.T(), "client.example.com", location.Host)

			params := location.Query()
			if tc.fragment {
				var err error
				params, err = url.ParseQuery(location.Fragment)
				require.NoError(suite.T(), err)
			}
			assert.Equal(suite.T(), constants.ErrorInvalidRequest, params.Get(constants.Error))
			assert.NotEmpty(suite.T(), params.Get(constants.ErrorDescription))
			assert.NotContains(suite.T(), params.Get(constants.ErrorDescription), `"`)
			assert.Equal(suite.T(), "af0ifjsldkj", params.Get(constants.State))
		})
	}
}

func (suite *AuthorizeHandlerTestSuite) TestDirectErrors() {
	missingClient := suite.codeRequest()
	missingClient.Del(constants.ClientID)
	unknownClient := suite.codeRequest()
	unknownClient.Set(constants.ClientID, "nobody")
	badRedirect := suite.codeRequest()
	badRedirect.Set(constants.RedirectURI, "https://attacker.example.com/cb")
	badResponseType := suite.codeRequest()
	badResponseType.Set(constants.ResponseType, "device")
	withRequest := suite.codeRequest()
	withRequest.Set(constants.Request, "eyJhbGciOiJub25lIn0.e30.")

	cases := map[string]struct {
		query url.Values
		code  string
	}{
		"missing client":        {missingClient, constants.ErrorInvalidRequest},
		"unknown client":        {unknownClient, constants.ErrorInvalidRequest},
		"bad redirect uri":      {badRedirect, constants.ErrorInvalidRequest},
		"bad response type":     {badResponseType, constants.ErrorUnsupportedResponseType},
		"request not supported": {withRequest, constants.ErrorRequestNotSupported},
	}
	for name, tc := range cases {
		suite.Run(name, func() {
			w := suite.serve(tc.query, "alice")
			assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
			assert.Empty(suite.T(), w.Header().Get("Location"))
			assert.Equal(suite.T(), tc.code, suite.jsonError(w)[constants.Error])
		})
	}
}

func (suite *AuthorizeHandlerTestSuite) TestPostRequest() {
	req := httptest.NewRequest(http.MethodPost, "/oauth2/authorize", strings.NewReader(suite.codeRequest().Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(userHeader, "alice")
	w := httptest.NewRecorder()
	suite.handler.HandleAuthorizeRequest(w, req)
	assert.NotEmpty(suite.T(), suite.location(w).Query().Get(constants.Code))

	req = httptest.NewRequest(http.MethodDelete, "/oauth2/authorize", nil)
	w = httptest.NewRecorder()
	suite.handler.HandleAuthorizeRequest(w, req)
	assert.Equal(suite.T(), http.StatusMethodNotAllowed, w.Code)
}
