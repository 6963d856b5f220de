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

package token

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/asgardeo/oidcengine/internal/oauth/client/store"
	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/clientauth"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/granthandlers"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/idtoken"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/issuer"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/pkce"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/tokenstore"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/tokentype"
	"github.com/asgardeo/oidcengine/internal/oauth/scope"
	"github.com/asgardeo/oidcengine/internal/oauth/user"
	"github.com/asgardeo/oidcengine/internal/system/audit"
	"github.com/asgardeo/oidcengine/internal/system/cache"
	syshttp "github.com/asgardeo/oidcengine/internal/system/http"
	"github.com/asgardeo/oidcengine/internal/system/jose"
)

const (
	redirectURI = "https://client.example.com/cb"
	verifier    = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
)

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *recordingSink) Publish(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Close() error {
	return nil
}

func (s *recordingSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]string, 0, len(s.events))
	for _, event := range s.events {
		types = append(types, event.Type)
	}
	return types
}

type TokenHandlerTestSuite struct {
	suite.Suite
	stores     tokenstore.Stores
	deps       Dependencies
	handler    *TokenHandler
	sink       *recordingSink
	signingKey jose.Key
}

func TestTokenHandlerSuite(t *testing.T) {
	suite.Run(t, new(TokenHandlerTestSuite))
}

func (suite *TokenHandlerTestSuite) SetupTest() {
	ctx := context.Background()
	clients := store.NewMemoryClientStore()
	_, err := clients.Create(ctx, "web-app", databag.New(
		constants.ClientParamTokenEndpointAuthMethod, constants.AuthMethodClientSecretBasic,
		constants.ClientParamClientSecret, "web-secret",
		constants.ClientParamRedirectURIs, []string{redirectURI},
		constants.ClientParamGrantTypes, []string{constants.GrantTypeAuthorizationCode,
			constants.GrantTypeRefreshToken, constants.GrantTypeClientCredentials},
	), "")
	require.NoError(suite.T(), err)
	_, err = clients.Create(ctx, "spa", databag.New(
		constants.ClientParamTokenEndpointAuthMethod, constants.AuthMethodNone,
		constants.ClientParamRedirectURIs, []string{redirectURI},
		constants.ClientParamGrantTypes, []string{constants.GrantTypeAuthorizationCode},
	), "")
	require.NoError(suite.T(), err)

	suite.stores = tokenstore.NewMemoryStores()
	tokenTypes := tokentype.NewManager(constants.TokenTypeBearer, tokentype.NewBearerHandler("", nil))
	provider := jose.NewProvider()
	suite.signingKey, err = jose.GenerateSigningKey("RS256", "server-key")
	require.NoError(suite.T(), err)
	keySets := jose.NewKeySetResolver(syshttp.NewHTTPClientWithTimeout(time.Second),
		cache.NewCache[*jose.KeySet]("jwks", 10, time.Minute))
	scopes := scope.NewMemoryRepository(scope.Scope{Name: "openid"}, scope.Scope{Name: "profile"},
		scope.Scope{Name: "read"})

	suite.sink = &recordingSink{}
	suite.deps = Dependencies{
		ClientAuth: clientauth.NewManager(clients, clientauth.NoneMethod{},
			clientauth.ClientSecretBasicMethod{}, clientauth.ClientSecretPostMethod{}),
		GrantHandlers: granthandlers.NewGrantHandlerProvider(
			granthandlers.NewAuthorizationCodeGrantHandler(suite.stores.Codes, pkce.NewRegistry(false)),
			granthandlers.NewRefreshTokenGrantHandler(suite.stores.RefreshTokens),
			granthandlers.NewClientCredentialsGrantHandler(),
		),
		Processors:    NewProcessors(NewScopeProcessor(scopes), NewTokenTypeProcessor(tokenTypes)),
		Issuer:        issuer.NewIssuer(suite.stores.AccessTokens, suite.stores.RefreshTokens, tokenTypes, time.Hour, 0),
		RefreshTokens: suite.stores.RefreshTokens,
		IDTokens: idtoken.NewBuilder("https://op.example.com", time.Hour, provider, []jose.Key{suite.signingKey},
			keySets, jose.None[jose.Encryption]()),
		Users: user.NewMemoryRepository(&user.UserAccount{ID: "alice",
			Claims: map[string]interface{}{"name": "Alice"}}),
		RenewRefreshToken: true,
		Auditor:           audit.NewAuditor(suite.sink),
	}
	suite.handler = NewTokenHandler(suite.deps)
}

func (suite *TokenHandlerTestSuite) createCode(clientID string, params databag.DataBag) string {
	code, err := suite.stores.Codes.Create(context.Background(), &model.AuthorizationCode{
		ClientID:      clientID,
		UserAccountID: "alice",
		RedirectURI:   redirectURI,
		ExpiresAt:     time.Now().Add(time.Minute),
		Parameters:    params,
		Metadata: databag.New(model.MetadataResourceOwnerIsUser, true,
			model.MetadataAuthTime, time.Now().Unix(), model.MetadataNonce, "n-0S6"),
	})
	require.NoError(suite.T(), err)
	return code.ID
}

func (suite *TokenHandlerTestSuite) post(form url.Values, basicUser, basicPassword string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/oauth2/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if basicUser != "" {
		req.SetBasicAuth(basicUser, basicPassword)
	}
	w := httptest.NewRecorder()
	suite.handler.HandleTokenRequest(w, req)
	return w
}

func (suite *TokenHandlerTestSuite) body(w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (suite *TokenHandlerTestSuite) codeForm(code string) url.Values {
	return url.Values{
		constants.GrantType:   {constants.GrantTypeAuthorizationCode},
		constants.Code:        {code},
		constants.RedirectURI: {redirectURI},
	}
}

func (suite *TokenHandlerTestSuite) TestAuthorizationCodeExchange() {
	code := suite.createCode("web-app", databag.New(constants.Scope, "openid profile"))

	w := suite.post(suite.codeForm(code), "web-app", "web-secret")
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(suite.T(), "no-cache", w.Header().Get("Pragma"))

	body := suite.body(w)
	assert.NotEmpty(suite.T(), body[constants.AccessToken])
	assert.NotEmpty(suite.T(), body[constants.RefreshToken])
	assert.Equal(suite.T(), constants.TokenTypeBearer, body[constants.TokenType])
	assert.Equal(suite.T(), "openid profile", body[constants.Scope])
	assert.EqualValues(suite.T(), 3600, body[constants.ExpiresIn])

	idToken, ok := body[constants.IDToken].(string)
	require.True(suite.T(), ok)
	publicSet := jose.PublicKeySet(suite.signingKey)
	claims, err := jose.NewProvider().Verify(idToken, &publicSet, []string{"RS256"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "alice", claims["sub"])
	assert.Equal(suite.T(), "web-app", claims["aud"])
	assert.Equal(suite.T(), "n-0S6", claims["nonce"])
	assert.Equal(suite.T(), jose.TokenHash(body[constants.AccessToken].(string), "RS256"), claims["at_hash"])

	stored, err := suite.stores.AccessTokens.Find(context.Background(), body[constants.AccessToken].(string))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "alice", stored.ResourceOwnerID)
	assert.Equal(suite.T(), code, stored.Metadata.GetString(model.MetadataAuthorizationCodeID))

	w = suite.post(suite.codeForm(code), "web-app", "web-secret")
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), constants.ErrorInvalidGrant, suite.body(w)[constants.Error])
	assert.Equal(suite.T(), []string{audit.EventTokenIssued, audit.EventCodeReuseDetected}, suite.sink.types())
}

func (suite *TokenHandlerTestSuite) TestPublicClientWithPKCE() {
	challenge, err := pkce.GenerateCodeChallenge(verifier, pkce.CodeChallengeMethodS256)
	require.NoError(suite.T(), err)
	code := suite.createCode("spa", databag.New(constants.Scope, "profile",
		constants.CodeChallenge, challenge, constants.CodeChallengeMethod, pkce.CodeChallengeMethodS256))

	form := suite.codeForm(code)
	form.Set(constants.ClientID, "spa")
	form.Set(constants.CodeVerifier, verifier)
	w := suite.post(form, "", "")
	require.Equal(suite.T(), http.StatusOK, w.Code)

	body := suite.body(w)
	assert.NotEmpty(suite.T(), body[constants.AccessToken])
	assert.NotContains(suite.T(), body, constants.RefreshToken)
	assert.NotContains(suite.T(), body, constants.IDToken)
}

func (suite *TokenHandlerTestSuite) TestRefreshTokenRenewal() {
	code := suite.createCode("web-app", databag.New(constants.Scope, "openid profile"))
	first := suite.body(suite.post(suite.codeForm(code), "web-app", "web-secret"))
	oldRefreshToken := first[constants.RefreshToken].(string)

	w := suite.post(url.Values{
		constants.GrantType:    {constants.GrantTypeRefreshToken},
		constants.RefreshToken: {oldRefreshToken},
		constants.Scope:        {"profile"},
	}, "web-app", "web-secret")
	require.Equal(suite.T(), http.StatusOK, w.Code)
	body := suite.body(w)
	assert.Equal(suite.T(), "profile", body[constants.Scope])
	assert.NotEqual(suite.T(), oldRefreshToken, body[constants.RefreshToken])
	assert.NotContains(suite.T(), body, constants.IDToken)

	old, err := suite.stores.RefreshTokens.Find(context.Background(), oldRefreshToken)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), old.Revoked)

	w = suite.post(url.Values{
		constants.GrantType:    {constants.GrantTypeRefreshToken},
		constants.RefreshToken: {oldRefreshToken},
	}, "web-app", "web-secret")
	assert.Equal(suite.T(), constants.ErrorInvalidGrant, suite.body(w)[constants.Error])
	assert.Contains(suite.T(), suite.sink.types(), audit.EventTokenRefreshed)
}

func (suite *TokenHandlerTestSuite) TestRefreshTokenWithoutRenewal() {
	suite.deps.RenewRefreshToken = false
	suite.handler = NewTokenHandler(suite.deps)

	code := suite.createCode("web-app", databag.New(constants.Scope, "profile"))
	first := suite.body(suite.post(suite.codeForm(code), "web-app", "web-secret"))
	refreshToken := first[constants.RefreshToken].(string)

	w := suite.post(url.Values{
		constants.GrantType:    {constants.GrantTypeRefreshToken},
		constants.RefreshToken: {refreshToken},
	}, "web-app", "web-secret")
	require.Equal(suite.T(), http.StatusOK, w.Code)
	body := suite.body(w)
	assert.NotContains(suite.T(), body, constants.RefreshToken)

	stored, err := suite.stores.RefreshTokens.Find(context.Background(), refreshToken)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), stored.Revoked)
	assert.Contains(suite.T(), stored.AccessTokenIDs, body[constants.AccessToken])
}

func (suite *TokenHandlerTestSuite) TestClientCredentials() {
	w := suite.post(url.Values{
		constants.GrantType: {constants.GrantTypeClientCredentials},
		constants.Scope:     {"read"},
	}, "web-app", "web-secret")
	require.Equal(suite.T(), http.StatusOK, w.Code)
	body := suite.body(w)
	assert.Equal(suite.T(), "read", body[constants.Scope])
	assert.NotContains(suite.T(), body, constants.RefreshToken)

	w = suite.post(url.Values{
		constants.GrantType: {constants.GrantTypeClientCredentials},
		constants.Scope:     {"admin"},
	}, "web-app", "web-secret")
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), constants.ErrorInvalidScope, suite.body(w)[constants.Error])
}

func (suite *TokenHandlerTestSuite) TestErrors() {
	req := httptest.NewRequest(http.MethodGet, "/oauth2/token", nil)
	w := httptest.NewRecorder()
	suite.handler.HandleTokenRequest(w, req)
	assert.Equal(suite.T(), http.StatusMethodNotAllowed, w.Code)

	w = suite.post(url.Values{}, "web-app", "web-secret")
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), constants.ErrorInvalidRequest, suite.body(w)[constants.Error])

	w = suite.post(url.Values{constants.GrantType: {constants.GrantTypeClientCredentials}}, "web-app", "wrong")
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(suite.T(), constants.ErrorInvalidClient, suite.body(w)[constants.Error])
	assert.Contains(suite.T(), w.Header().Get("WWW-Authenticate"), "Basic")
	assert.Contains(suite.T(), suite.sink.types(), audit.EventClientAuthFailed)

	w = suite.post(url.Values{constants.GrantType: {"password"}}, "web-app", "web-secret")
	assert.Equal(suite.T(), constants.ErrorUnsupportedGrantType, suite.body(w)[constants.Error])

	w = suite.post(url.Values{
		constants.GrantType: {constants.GrantTypeClientCredentials},
		constants.ClientID:  {"spa"},
	}, "", "")
	assert.Equal(suite.T(), constants.ErrorUnauthorizedClient, suite.body(w)[constants.Error])

	w = suite.post(url.Values{constants.GrantType: {constants.GrantTypeAuthorizationCode}}, "web-app", "web-secret")
	assert.Equal(suite.T(), constants.ErrorInvalidRequest, suite.body(w)[constants.Error])
}
