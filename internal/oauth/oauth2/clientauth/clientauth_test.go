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

package clientauth

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
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/system/cache"
	syshttp "github.com/asgardeo/oidcengine/internal/system/http"
	"github.com/asgardeo/oidcengine/internal/system/jose"
	"github.com/asgardeo/oidcengine/internal/system/utils"
)

const (
	testTokenEndpoint = "https://op.example.com/oauth2/token"
	testSecret        = "s3cr3t-value-that-is-long-enough-for-hmac"
)

type ClientAuthTestSuite struct {
	suite.Suite
	clients    *store.MemoryClientStore
	provider   jose.ProviderInterface
	clientKey  jose.Key
	serverKey  jose.Key
	manager    *Manager
	assertions AssertionConfig
}

func TestClientAuthSuite(t *testing.T) {
	suite.Run(t, new(ClientAuthTestSuite))
}

func (suite *ClientAuthTestSuite) SetupTest() {
	ctx := context.Background()
	suite.clients = store.NewMemoryClientStore()
	suite.provider = jose.NewProvider()

	key, err := jose.GenerateSigningKey("RS256", "client-key")
	require.NoError(suite.T(), err)
	suite.clientKey = key
	serverKey, err := jose.GenerateSigningKey("RS256", "enc-key")
	require.NoError(suite.T(), err)
	serverKey.Use = "enc"
	serverKey.Algorithm = ""
	suite.serverKey = serverKey

	raw, err := json.Marshal(jose.PublicKeySet(key))
	require.NoError(suite.T(), err)
	var jwks map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(raw, &jwks))

	hashed, err := HashSecret(testSecret)
	require.NoError(suite.T(), err)

	clients := map[string]databag.DataBag{
		"basic-client": databag.New(
			constants.ClientParamTokenEndpointAuthMethod, constants.AuthMethodClientSecretBasic,
			constants.ClientParamClientSecret, testSecret),
		"post-client": databag.New(
			constants.ClientParamTokenEndpointAuthMethod, constants.AuthMethodClientSecretPost,
			constants.ClientParamClientSecret, testSecret),
		"hashed-client": databag.New(
			constants.ClientParamTokenEndpointAuthMethod, constants.AuthMethodClientSecretBasic,
			constants.ClientParamClientSecret, hashed),
		"expired-client": databag.New(
			constants.ClientParamTokenEndpointAuthMethod, constants.AuthMethodClientSecretBasic,
			constants.ClientParamClientSecret, testSecret,
			constants.ClientParamClientSecretExpiresAt, time.Now().Add(-time.Minute).Unix()),
		"public-client": databag.New(
			constants.ClientParamTokenEndpointAuthMethod, constants.AuthMethodNone),
		"jwt-client": databag.New(
			constants.ClientParamTokenEndpointAuthMethod, constants.AuthMethodClientSecretJWT,
			constants.ClientParamClientSecret, testSecret),
		"key-client": databag.New(
			constants.ClientParamTokenEndpointAuthMethod, constants.AuthMethodPrivateKeyJWT,
			constants.ClientParamJWKS, jwks),
	}
	for id, params := range clients {
		_, err := suite.clients.Create(ctx, id, params, "")
		require.NoError(suite.T(), err)
	}

	suite.assertions = AssertionConfig{
		Audiences: []string{testTokenEndpoint, "https://op.example.com"},
		JOSE:      suite.provider,
		KeySets: jose.NewKeySetResolver(syshttp.NewHTTPClientWithTimeout(time.Second),
			cache.NewCache[*jose.KeySet]("jwks", 10, time.Minute)),
		Replay:     cache.NewCache[bool]("client-assertions", 100, time.Minute),
		Encryption: jose.None[jose.Encryption](),
	}
	suite.manager = suite.newManager()
}

func (suite *ClientAuthTestSuite) newManager() *Manager {
	return NewManager(suite.clients,
		NoneMethod{},
		ClientSecretBasicMethod{Realm: "oauth"},
		ClientSecretPostMethod{},
		NewClientSecretJWTMethod(suite.assertions),
		NewPrivateKeyJWTMethod(suite.assertions),
	)
}

func newTokenRequest(form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/oauth2/token", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func (suite *ClientAuthTestSuite) assertionClaims(clientID string) map[string]interface{} {
	now := time.Now()
	return map[string]interface{}{
		"iss": clientID,
		"sub": clientID,
		"aud": testTokenEndpoint,
		"jti": utils.GenerateUUID(),
		"iat": now.Unix(),
		"exp": now.Add(time.Minute).Unix(),
	}
}

func assertionForm(assertion string) url.Values {
	return url.Values{
		constants.ClientAssertionType: {constants.ClientAssertionTypeJWTBearer},
		constants.ClientAssertion:     {assertion},
	}
}

func (suite *ClientAuthTestSuite) requireOAuthError(err error, code string, status int) *model.OAuthError {
	var oauthErr *model.OAuthError
	require.ErrorAs(suite.T(), err, &oauthErr)
	assert.Equal(suite.T(), code, oauthErr.Code)
	assert.Equal(suite.T(), status, oauthErr.StatusCode)
	return oauthErr
}

func (suite *ClientAuthTestSuite) TestClientSecretBasic() {
	r := newTokenRequest(url.Values{})
	r.SetBasicAuth("basic-client", testSecret)
	c, err := suite.manager.Authenticate(context.Background(), r)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "basic-client", c.ID)

	r = newTokenRequest(url.Values{})
	r.SetBasicAuth("basic-client", "wrong")
	_, err = suite.manager.Authenticate(context.Background(), r)
	oauthErr := suite.requireOAuthError(err, constants.ErrorInvalidClient, http.StatusUnauthorized)
	assert.Equal(suite.T(), `Basic realm="oauth"`, oauthErr.Headers["WWW-Authenticate"])
}

func (suite *ClientAuthTestSuite) TestHashedSecret() {
	r := newTokenRequest(url.Values{})
	r.SetBasicAuth("hashed-client", testSecret)
	_, err := suite.manager.Authenticate(context.Background(), r)
	require.NoError(suite.T(), err)

	assert.False(suite.T(), SecretMatches("", ""))
	assert.True(suite.T(), SecretMatches("plain", "plain"))
	assert.False(suite.T(), SecretMatches("plain", "plain2"))
}

func (suite *ClientAuthTestSuite) TestClientSecretPost() {
	_, err := suite.manager.Authenticate(context.Background(), newTokenRequest(url.Values{
		constants.ClientID:     {"post-client"},
		constants.ClientSecret: {testSecret},
	}))
	require.NoError(suite.T(), err)

	_, err = suite.manager.Authenticate(context.Background(), newTokenRequest(url.Values{
		constants.ClientID:     {"basic-client"},
		constants.ClientSecret: {testSecret},
	}))
	suite.requireOAuthError(err, constants.ErrorInvalidClient, http.StatusUnauthorized)
}

func (suite *ClientAuthTestSuite) TestMultipleMethods() {
	r := newTokenRequest(url.Values{
		constants.ClientID:     {"post-client"},
		constants.ClientSecret: {testSecret},
	})
	r.SetBasicAuth("basic-client", testSecret)
	_, err := suite.manager.Authenticate(context.Background(), r)
	oauthErr := suite.requireOAuthError(err, constants.ErrorInvalidRequest, http.StatusBadRequest)
	assert.Equal(suite.T(), "Only one authentication method may be used to authenticate the client.",
		oauthErr.Description)
}

func (suite *ClientAuthTestSuite) TestNoCredentials() {
	_, err := suite.manager.Authenticate(context.Background(), newTokenRequest(url.Values{}))
	oauthErr := suite.requireOAuthError(err, constants.ErrorInvalidClient, http.StatusUnauthorized)
	assert.Contains(suite.T(), oauthErr.Headers["WWW-Authenticate"], "Basic")
}

func (suite *ClientAuthTestSuite) TestNoneMethod() {
	c, err := suite.manager.Authenticate(context.Background(), newTokenRequest(url.Values{
		constants.ClientID: {"public-client"},
	}))
	require.NoError(suite.T(), err)
	assert.True(suite.T(), c.IsPublic())

	_, err = suite.manager.Authenticate(context.Background(), newTokenRequest(url.Values{
		constants.ClientID: {"basic-client"},
	}))
	suite.requireOAuthError(err, constants.ErrorInvalidClient, http.StatusUnauthorized)
}

func (suite *ClientAuthTestSuite) TestUnknownDeletedAndExpiredClients() {
	r := newTokenRequest(url.Values{})
	r.SetBasicAuth("missing-client", testSecret)
	_, err := suite.manager.Authenticate(context.Background(), r)
	suite.requireOAuthError(err, constants.ErrorInvalidClient, http.StatusUnauthorized)

	r = newTokenRequest(url.Values{})
	r.SetBasicAuth("expired-client", testSecret)
	_, err = suite.manager.Authenticate(context.Background(), r)
	suite.requireOAuthError(err, constants.ErrorInvalidClient, http.StatusUnauthorized)

	deleted, err := suite.clients.Find(context.Background(), "basic-client")
	require.NoError(suite.T(), err)
	deleted.Deleted = true
	require.NoError(suite.T(), suite.clients.Save(context.Background(), deleted))
	r = newTokenRequest(url.Values{})
	r.SetBasicAuth("basic-client", testSecret)
	_, err = suite.manager.Authenticate(context.Background(), r)
	suite.requireOAuthError(err, constants.ErrorInvalidClient, http.StatusUnauthorized)
}

func (suite *ClientAuthTestSuite) TestPrivateKeyJWT() {
	claims := suite.assertionClaims("key-client")
	assertion, err := suite.provider.Sign(claims, suite.clientKey, nil)
	require.NoError(suite.T(), err)

	c, err := suite.manager.Authenticate(context.Background(), newTokenRequest(assertionForm(assertion)))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "key-client", c.ID)

	_, err = suite.manager.Authenticate(context.Background(), newTokenRequest(assertionForm(assertion)))
	suite.requireOAuthError(err, constants.ErrorInvalidClient, http.StatusUnauthorized)
}

func (suite *ClientAuthTestSuite) TestPrivateKeyJWTClaimChecks() {
	cases := map[string]func(map[string]interface{}){
		"wrong audience":  func(c map[string]interface{}) { c["aud"] = "https://elsewhere.example.com" },
		"issuer mismatch": func(c map[string]interface{}) { c["iss"] = "someone-else" },
		"expired":         func(c map[string]interface{}) { c["exp"] = time.Now().Add(-time.Hour).Unix() },
		"missing jti":     func(c map[string]interface{}) { delete(c, "jti") },
		"missing exp":     func(c map[string]interface{}) { delete(c, "exp") },
	}
	for name, mutate := range cases {
		suite.Run(name, func() {
			claims := suite.assertionClaims("key-client")
			mutate(claims)
			assertion, err := suite.provider.Sign(claims, suite.clientKey, nil)
			require.NoError(suite.T(), err)
			_, err = suite.manager.Authenticate(context.Background(), newTokenRequest(assertionForm(assertion)))
			suite.requireOAuthError(err, constants.ErrorInvalidClient, http.StatusUnauthorized)
		})
	}
}

func (suite *ClientAuthTestSuite) TestClientSecretJWT() {
	claims := suite.assertionClaims("jwt-client")
	claims["aud"] = []interface{}{"https://op.example.com"}
	assertion, err := suite.provider.Sign(claims, jose.SymmetricKey(testSecret, "HS256"), nil)
	require.NoError(suite.T(), err)

	c, err := suite.manager.Authenticate(context.Background(), newTokenRequest(assertionForm(assertion)))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "jwt-client", c.ID)

	claims = suite.assertionClaims("jwt-client")
	forged, err := suite.provider.Sign(claims, jose.SymmetricKey("another-secret-of-some-length", "HS256"), nil)
	require.NoError(suite.T(), err)
	_, err = suite.manager.Authenticate(context.Background(), newTokenRequest(assertionForm(forged)))
	suite.requireOAuthError(err, constants.ErrorInvalidClient, http.StatusUnauthorized)
}

func (suite *ClientAuthTestSuite) TestAssertionRequestErrors() {
	form := assertionForm("anything")
	form.Set(constants.ClientAssertionType, "urn:example:unknown")
	_, err := suite.manager.Authenticate(context.Background(), newTokenRequest(form))
	suite.requireOAuthError(err, constants.ErrorInvalidRequest, http.StatusBadRequest)

	_, err = suite.manager.Authenticate(context.Background(), newTokenRequest(assertionForm("not-a-jwt")))
	suite.requireOAuthError(err, constants.ErrorInvalidClient, http.StatusUnauthorized)

	assertion, err := suite.provider.Sign(suite.assertionClaims("key-client"), suite.clientKey, nil)
	require.NoError(suite.T(), err)
	form = assertionForm(assertion)
	form.Set(constants.ClientID, "post-client")
	_, err = suite.manager.Authenticate(context.Background(), newTokenRequest(form))
	suite.requireOAuthError(err, constants.ErrorInvalidClient, http.StatusUnauthorized)
}

func (suite *ClientAuthTestSuite) TestEncryptedAssertion() {
	assertion, err := suite.provider.Sign(suite.assertionClaims("key-client"), suite.clientKey, nil)
	require.NoError(suite.T(), err)
	encrypted, err := suite.provider.Encrypt([]byte(assertion), suite.serverKey, "RSA-OAEP-256", "A256GCM")
	require.NoError(suite.T(), err)

	_, err = suite.manager.Authenticate(context.Background(), newTokenRequest(assertionForm(encrypted)))
	suite.requireOAuthError(err, constants.ErrorInvalidClient, http.StatusUnauthorized)

	suite.assertions.Encryption = jose.Some(jose.Encryption{
		KeyAlgorithms:      []string{"RSA-OAEP-256"},
		ContentEncryptions: []string{"A256GCM"},
		DecryptionKeys:     jose.KeySet{Keys: []jose.Key{suite.serverKey}},
	})
	manager := suite.newManager()
	c, err := manager.Authenticate(context.Background(), newTokenRequest(assertionForm(encrypted)))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "key-client", c.ID)
}

func (suite *ClientAuthTestSuite) TestSupportedMethods() {
	assert.True(suite.T(), suite.manager.Has(constants.AuthMethodPrivateKeyJWT))
	assert.False(suite.T(), suite.manager.Has("tls_client_auth"))
	assert.Len(suite.T(), suite.manager.SupportedMethods(), 5)
}
