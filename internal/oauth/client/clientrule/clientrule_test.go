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

package clientrule

import (
	"encoding/json"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/system/jose"
)

type stringSet []string

func (s stringSet) Has(name string) bool { return slices.Contains(s, name) }

type stubTokenTypes struct{ stringSet }

func (stubTokenTypes) Default() string { return constants.TokenTypeBearer }

type stubResponseTypes struct{}

func (stubResponseTypes) IsSupported(names []string) bool {
	for _, name := range names {
		switch name {
		case constants.ResponseTypeCode, constants.ResponseTypeToken, constants.ResponseTypeIDToken:
		case constants.ResponseTypeNone:
			if len(names) > 1 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

type ClientRuleTestSuite struct {
	suite.Suite
	now      time.Time
	pipeline *Pipeline
	jwks     map[string]interface{}
}

func TestClientRuleSuite(t *testing.T) {
	suite.Run(t, new(ClientRuleTestSuite))
}

func (suite *ClientRuleTestSuite) SetupTest() {
	suite.now = time.Unix(1700000000, 0)
	suite.pipeline = NewDefaultPipeline(Dependencies{
		AuthMethods: stringSet{constants.AuthMethodNone, constants.AuthMethodClientSecretBasic,
			constants.AuthMethodClientSecretPost, constants.AuthMethodClientSecretJWT,
			constants.AuthMethodPrivateKeyJWT},
		GrantTypes: stringSet{constants.GrantTypeAuthorizationCode, constants.GrantTypeRefreshToken,
			constants.GrantTypeClientCredentials, constants.GrantTypeJWTBearer},
		ResponseTypes:  stubResponseTypes{},
		Scopes:         stringSet{"openid", "profile", "offline_access"},
		TokenTypes:     stubTokenTypes{stringSet{constants.TokenTypeBearer, constants.TokenTypeMAC}},
		SecretLifetime: time.Hour,
		Now:            func() time.Time { return suite.now },
	})

	key, err := jose.GenerateSigningKey("RS256", "client-key")
	require.NoError(suite.T(), err)
	raw, err := json.Marshal(jose.PublicKeySet(key))
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), json.Unmarshal(raw, &suite.jwks))
}

func (suite *ClientRuleTestSuite) assertRejected(err error, code, description string) {
	var validationErr *ValidationError
	require.ErrorAs(suite.T(), err, &validationErr)
	assert.Equal(suite.T(), code, validationErr.Code)
	if description != "" {
		assert.Equal(suite.T(), description, validationErr.Description)
	}
}

func (suite *ClientRuleTestSuite) TestDefaultsForConfidentialClient() {
	validated, err := suite.pipeline.Handle("client-1", databag.New(
		constants.ClientParamRedirectURIs, []string{"https://app.example.com/cb"},
		"unknown_parameter", "dropped",
	))
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), constants.ApplicationTypeWeb, validated.GetString(constants.ClientParamApplicationType))
	assert.Equal(suite.T(), constants.AuthMethodClientSecretBasic,
		validated.GetString(constants.ClientParamTokenEndpointAuthMethod))
	assert.NotEmpty(suite.T(), validated.GetString(constants.ClientParamClientSecret))
	expiresAt, _ := validated.GetInt64(constants.ClientParamClientSecretExpiresAt)
	assert.Equal(suite.T(), suite.now.Add(time.Hour).Unix(), expiresAt)
	issuedAt, _ := validated.GetInt64(constants.ClientParamClientIDIssuedAt)
	assert.Equal(suite.T(), suite.now.Unix(), issuedAt)
	assert.Equal(suite.T(), []string{constants.GrantTypeAuthorizationCode},
		validated.GetStringSlice(constants.ClientParamGrantTypes))
	assert.Equal(suite.T(), []string{constants.ResponseTypeCode},
		validated.GetStringSlice(constants.ClientParamResponseTypes))
	assert.Equal(suite.T(), constants.TokenTypeBearer, validated.GetString(constants.ClientParamTokenType))
	assert.Equal(suite.T(), "RS256", validated.GetString(constants.ClientParamIDTokenSignedResponseAlg))
	assert.False(suite.T(), validated.Has("unknown_parameter"))
}

func (suite *ClientRuleTestSuite) TestExistingCredentialsAreKept() {
	validated, err := suite.pipeline.Handle("client-1", databag.New(
		constants.ClientParamRedirectURIs, []string{"https://app.example.com/cb"},
		constants.ClientParamClientSecret, "existing-secret",
		constants.ClientParamClientSecretExpiresAt, int64(0),
		constants.ClientParamClientIDIssuedAt, int64(1600000000),
	))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "existing-secret", validated.GetString(constants.ClientParamClientSecret))
	expiresAt, _ := validated.GetInt64(constants.ClientParamClientSecretExpiresAt)
	assert.Equal(suite.T(), int64(0), expiresAt)
	issuedAt, _ := validated.GetInt64(constants.ClientParamClientIDIssuedAt)
	assert.Equal(suite.T(), int64(1600000000), issuedAt)
}

func (suite *ClientRuleTestSuite) TestInvalidApplicationType() {
	_, err := suite.pipeline.Handle("client-1", databag.New(constants.ClientParamApplicationType, "foo"))
	suite.assertRejected(err, constants.ErrorInvalidClientMetadata,
		`The parameter "application_type" must be either "native" or "web".`)
}

func (suite *ClientRuleTestSuite) TestPublicClientWithoutRedirectURIs() {
	_, err := suite.pipeline.Handle("client-1", databag.New(
		constants.ClientParamTokenEndpointAuthMethod, constants.AuthMethodNone,
		constants.ClientParamResponseTypes, []string{"code"},
	))
	suite.assertRejected(err, constants.ErrorInvalidRedirectURI,
		"Non-confidential clients must register at least one redirect URI.")
}

func (suite *ClientRuleTestSuite) TestPublicClientHasNoSecret() {
	validated, err := suite.pipeline.Handle("client-1", databag.New(
		constants.ClientParamTokenEndpointAuthMethod, constants.AuthMethodNone,
		constants.ClientParamRedirectURIs, []interface{}{"http://127.0.0.1:8080/cb"},
	))
	require.NoError(suite.T(), err)
	assert.False(suite.T(), validated.Has(constants.ClientParamClientSecret))
	assert.Equal(suite.T(), []string{"http://127.0.0.1:8080/cb"},
		validated.GetStringSlice(constants.ClientParamRedirectURIs))
}

func (suite *ClientRuleTestSuite) TestRedirectURIsDroppedWithoutResponseTypes() {
	validated, err := suite.pipeline.Handle("client-1", databag.New(
		constants.ClientParamGrantTypes, []string{constants.GrantTypeClientCredentials},
		constants.ClientParamRedirectURIs, []string{"https://app.example.com/cb"},
	))
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), validated.GetStringSlice(constants.ClientParamResponseTypes))
	assert.Empty(suite.T(), validated.GetStringSlice(constants.ClientParamRedirectURIs))
}

func (suite *ClientRuleTestSuite) TestRedirectURIChecks() {
	cases := []struct {
		name        string
		uri         string
		description string
	}{
		{"fragment", "https://app.example.com/cb#frag",
			`The parameter "redirect_uris" must only contain URIs without fragment.`},
		{"traversal", "https://app.example.com/cb/../admin",
			`The URI listed in the "redirect_uris" parameter must not contain any path traversal.`},
		{"trailing traversal", "https://app.example.com/cb/..",
			`The URI listed in the "redirect_uris" parameter must not contain any path traversal.`},
		{"bad urn", "urn:Invalid_NID:oob", `The parameter "redirect_uris" must only contain valid URIs.`},
		{"relative", "/callback", `The parameter "redirect_uris" must only contain valid URIs.`},
	}
	for _, tc := range cases {
		suite.Run(tc.name, func() {
			_, err := suite.pipeline.Handle("client-1", databag.New(
				constants.ClientParamRedirectURIs, []string{tc.uri}))
			suite.assertRejected(err, constants.ErrorInvalidRedirectURI, tc.description)
		})
	}

	validated, err := suite.pipeline.Handle("client-1", databag.New(
		constants.ClientParamRedirectURIs, []string{"urn:ietf:wg:oauth:2.0:oob", "https://app.example.com/cb.d/x"}))
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), validated.GetStringSlice(constants.ClientParamRedirectURIs), 2)
}

func (suite *ClientRuleTestSuite) TestWebImplicitClientNeedsHTTPS() {
	params := databag.New(
		constants.ClientParamGrantTypes, []string{constants.GrantTypeImplicit},
		constants.ClientParamResponseTypes, []string{"token"},
		constants.ClientParamRedirectURIs, []string{"http://app.example.com/cb"},
	)
	_, err := suite.pipeline.Handle("client-1", params)
	suite.assertRejected(err, constants.ErrorInvalidRedirectURI, "")

	_, err = suite.pipeline.Handle("client-1",
		params.With(constants.ClientParamRedirectURIs, []string{"https://localhost/cb"}))
	suite.assertRejected(err, constants.ErrorInvalidRedirectURI, "")

	_, err = suite.pipeline.Handle("client-1", params.With(constants.ClientParamApplicationType,
		constants.ApplicationTypeNative))
	assert.NoError(suite.T(), err)
}

func (suite *ClientRuleTestSuite) TestResponseTypesRequireMatchingGrants() {
	_, err := suite.pipeline.Handle("client-1", databag.New(
		constants.ClientParamResponseTypes, []string{"code id_token"},
		constants.ClientParamRedirectURIs, []string{"https://app.example.com/cb"},
	))
	suite.assertRejected(err, constants.ErrorInvalidClientMetadata,
		`The response type "id_token" requires the "implicit" grant type.`)

	_, err = suite.pipeline.Handle("client-1", databag.New(
		constants.ClientParamGrantTypes, []string{constants.GrantTypeImplicit},
		constants.ClientParamResponseTypes, []string{"code"},
		constants.ClientParamRedirectURIs, []string{"https://app.example.com/cb"},
	))
	suite.assertRejected(err, constants.ErrorInvalidClientMetadata,
		`The response type "code" requires the "authorization_code" grant type.`)

	_, err = suite.pipeline.Handle("client-1", databag.New(
		constants.ClientParamGrantTypes, []string{"password"},
	))
	suite.assertRejected(err, constants.ErrorInvalidClientMetadata, `The grant type "password" is not supported.`)

	_, err = suite.pipeline.Handle("client-1", databag.New(
		constants.ClientParamResponseTypes, []string{"code none"},
	))
	suite.assertRejected(err, constants.ErrorInvalidClientMetadata, `The response type "code none" is not supported.`)
}

func (suite *ClientRuleTestSuite) TestKeys() {
	_, err := suite.pipeline.Handle("client-1", databag.New(
		constants.ClientParamTokenEndpointAuthMethod, constants.AuthMethodPrivateKeyJWT,
		constants.ClientParamRedirectURIs, []string{"https://app.example.com/cb"},
	))
	suite.assertRejected(err, constants.ErrorInvalidClientMetadata,
		`The "private_key_jwt" authentication method requires either "jwks" or "jwks_uri".`)

	validated, err := suite.pipeline.Handle("client-1", databag.New(
		constants.ClientParamTokenEndpointAuthMethod, constants.AuthMethodPrivateKeyJWT,
		constants.ClientParamJWKS, suite.jwks,
		constants.ClientParamRedirectURIs, []string{"https://app.example.com/cb"},
	))
	require.NoError(suite.T(), err)
	assert.True(suite.T(), validated.Has(constants.ClientParamJWKS))
	assert.False(suite.T(), validated.Has(constants.ClientParamClientSecret))

	_, err = suite.pipeline.Handle("client-1", databag.New(
		constants.ClientParamJWKS, suite.jwks,
		constants.ClientParamJWKSURI, "https://app.example.com/jwks",
	))
	suite.assertRejected(err, constants.ErrorInvalidClientMetadata,
		`The parameters "jwks" and "jwks_uri" must not be used together.`)

	_, err = suite.pipeline.Handle("client-1", databag.New(constants.ClientParamJWKSURI, "http://app.example.com/jwks"))
	suite.assertRejected(err, constants.ErrorInvalidClientMetadata, `The parameter "jwks_uri" must be a valid HTTPS URL.`)

	_, err = suite.pipeline.Handle("client-1", databag.New(constants.ClientParamJWKS, map[string]interface{}{"keys": []interface{}{}}))
	suite.assertRejected(err, constants.ErrorInvalidClientMetadata, `The parameter "jwks" must be a valid JSON web key set.`)
}

func (suite *ClientRuleTestSuite) TestIDTokenEncryption() {
	base := databag.New(constants.ClientParamRedirectURIs, []string{"https://app.example.com/cb"})

	_, err := suite.pipeline.Handle("client-1", base.With(constants.ClientParamIDTokenEncryptedResponseAlg, "RSA-OAEP-256"))
	suite.assertRejected(err, constants.ErrorInvalidClientMetadata, "")

	_, err = suite.pipeline.Handle("client-1", base.
		With(constants.ClientParamIDTokenEncryptedResponseAlg, "RSA-OAEP-256").
		With(constants.ClientParamIDTokenEncryptedResponseEnc, "A256GCM"))
	suite.assertRejected(err, constants.ErrorInvalidClientMetadata,
		`ID token encryption requires either "jwks" or "jwks_uri".`)

	validated, err := suite.pipeline.Handle("client-1", base.
		With(constants.ClientParamJWKSURI, "https://app.example.com/jwks").
		With(constants.ClientParamIDTokenSignedResponseAlg, "ES256").
		With(constants.ClientParamIDTokenEncryptedResponseAlg, "RSA-OAEP-256").
		With(constants.ClientParamIDTokenEncryptedResponseEnc, "A256GCM"))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "ES256", validated.GetString(constants.ClientParamIDTokenSignedResponseAlg))
	assert.Equal(suite.T(), "A256GCM", validated.GetString(constants.ClientParamIDTokenEncryptedResponseEnc))

	_, err = suite.pipeline.Handle("client-1", base.With(constants.ClientParamIDTokenSignedResponseAlg, "none"))
	suite.assertRejected(err, constants.ErrorInvalidClientMetadata, "")
}

func (suite *ClientRuleTestSuite) TestDescriptiveMetadata() {
	validated, err := suite.pipeline.Handle("client-1", databag.New(
		constants.ClientParamRedirectURIs, []string{"https://app.example.com/cb"},
		constants.ClientParamClientName, "My App",
		constants.ClientParamLogoURI, "https://app.example.com/logo.png",
		constants.ClientParamContacts, []string{"admin@example.com"},
		constants.ClientParamScope, "openid  profile",
	))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "My App", validated.GetString(constants.ClientParamClientName))
	assert.Equal(suite.T(), []string{"admin@example.com"}, validated.GetStringSlice(constants.ClientParamContacts))
	assert.Equal(suite.T(), "openid profile", validated.GetString(constants.ClientParamScope))

	_, err = suite.pipeline.Handle("client-1", databag.New(constants.ClientParamContacts, []string{"not-an-email"}))
	suite.assertRejected(err, constants.ErrorInvalidClientMetadata, "")

	_, err = suite.pipeline.Handle("client-1", databag.New(constants.ClientParamLogoURI, "ftp://example.com/logo"))
	suite.assertRejected(err, constants.ErrorInvalidClientMetadata, `The parameter "logo_uri" must be a valid URL.`)

	_, err = suite.pipeline.Handle("client-1", databag.New(constants.ClientParamScope, "openid admin"))
	suite.assertRejected(err, constants.ErrorInvalidClientMetadata, `The scope "admin" is not supported.`)

	_, err = suite.pipeline.Handle("client-1", databag.New(constants.ClientParamTokenType, "DPoP"))
	suite.assertRejected(err, constants.ErrorInvalidClientMetadata, `The token type "DPoP" is not supported.`)
}

type recordingValidator struct {
	name  string
	calls *[]string
}

func (v recordingValidator) PreValidate(_ string, _, validated databag.DataBag) (databag.DataBag, error) {
	*v.calls = append(*v.calls, "pre:"+v.name)
	return validated.With(v.name, true), nil
}

func (v recordingValidator) PostValidate(_ string, _, validated databag.DataBag) (databag.DataBag, error) {
	*v.calls = append(*v.calls, "post:"+v.name)
	return validated.With(v.name+"-seen", validated.Has("b")), nil
}

func (suite *ClientRuleTestSuite) TestPreAndPostOrdering() {
	var calls []string
	pipeline := NewPipeline(
		Post(recordingValidator{name: "a", calls: &calls}),
		Pre(recordingValidator{name: "b", calls: &calls}),
		Pre(recordingValidator{name: "c", calls: &calls}),
	)
	validated, err := pipeline.Handle("client-1", databag.DataBag{})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"pre:b", "pre:c", "post:a"}, calls)
	assert.True(suite.T(), validated.GetBool("a-seen"))

	calls = nil
	_, err = NewPipeline(
		Post(recordingValidator{name: "a", calls: &calls}),
		Pre(ApplicationTypeRule{}),
	).Handle("client-1", databag.New(constants.ClientParamApplicationType, "desktop"))
	require.Error(suite.T(), err)
	assert.Empty(suite.T(), calls)
}
