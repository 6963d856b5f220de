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
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/system/cache"
	"github.com/asgardeo/oidcengine/internal/system/jose"
	"github.com/asgardeo/oidcengine/internal/system/log"
)

const assertionLeeway = 30 * time.Second

var (
	symmetricAssertionAlgorithms  = []string{"HS256", "HS384", "HS512"}
	asymmetricAssertionAlgorithms = []string{
		"RS256", "RS384", "RS512", "PS256", "PS384", "PS512", "ES256", "ES384", "ES512",
	}
)

// AssertionConfig holds the collaborators of the JWT client authentication methods.
type AssertionConfig struct {
	// Audiences lists the accepted aud values, usually the token endpoint URL and the issuer.
	Audiences []string
	JOSE      jose.ProviderInterface
	KeySets   jose.KeySetResolverInterface
	// Replay remembers the jti of accepted assertions until they expire.
	Replay     cache.CacheInterface[bool]
	Encryption jose.Option[jose.Encryption]
}

// ClientAssertionMethod authenticates clients with a signed JWT, either HMAC signed with the
// client secret (client_secret_jwt) or signed with a client key (private_key_jwt).
type ClientAssertionMethod struct {
	config    AssertionConfig
	symmetric bool
	now       func() time.Time
}

// NewClientSecretJWTMethod creates the client_secret_jwt method.
func NewClientSecretJWTMethod(config AssertionConfig) *ClientAssertionMethod {
	return &ClientAssertionMethod{config: config, symmetric: true, now: time.Now}
}

// NewPrivateKeyJWTMethod creates the private_key_jwt method.
func NewPrivateKeyJWTMethod(config AssertionConfig) *ClientAssertionMethod {
	return &ClientAssertionMethod{config: config, now: time.Now}
}

// SupportedMethods implements MethodInterface.
func (m *ClientAssertionMethod) SupportedMethods() []string {
	if m.symmetric {
		return []string{constants.AuthMethodClientSecretJWT}
	}
	return []string{constants.AuthMethodPrivateKeyJWT}
}

// SchemesParameters implements MethodInterface.
func (m *ClientAssertionMethod) SchemesParameters() []string {
	return nil
}

// FindClientID implements MethodInterface. The assertion is claimed by the method matching the
// family of its signing algorithm.
func (m *ClientAssertionMethod) FindClientID(r *http.Request) (string, interface{}, error) {
	assertionType := r.PostForm.Get(constants.ClientAssertionType)
	if assertionType == "" && !r.PostForm.Has(constants.ClientAssertion) {
		return "", nil, nil
	}
	if assertionType != constants.ClientAssertionTypeJWTBearer {
		return "", nil, model.NewInvalidRequestError("The client_assertion_type parameter is invalid.")
	}
	assertion := r.PostForm.Get(constants.ClientAssertion)
	if assertion == "" {
		return "", nil, model.NewInvalidRequestError("The client_assertion parameter is missing.")
	}

	token, err := m.open(assertion)
	if err != nil {
		return "", nil, err
	}
	claims, header, err := jose.ParseUnverified(token)
	if err != nil {
		return "", nil, model.NewInvalidClientError("The client assertion is malformed.")
	}
	alg, _ := header["alg"].(string)
	if strings.HasPrefix(alg, "HS") != m.symmetric {
		return "", nil, nil
	}

	clientID, _ := claims.GetSubject()
	if clientID == "" {
		return "", nil, model.NewInvalidClientError("The client assertion has no subject.")
	}
	if bodyID := r.PostForm.Get(constants.ClientID); bodyID != "" && bodyID != clientID {
		return "", nil, model.NewInvalidClientError("The client_id parameter does not match the client assertion.")
	}
	return clientID, token, nil
}

// IsClientAuthenticated implements MethodInterface.
func (m *ClientAssertionMethod) IsClientAuthenticated(ctx context.Context, c *client.Client,
	credentials interface{}, _ *http.Request) bool {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "ClientAssertionMethod"),
		log.String(log.LoggerKeyClientID, c.ID))

	token, ok := credentials.(string)
	if !ok {
		return false
	}

	keys, algorithms, err := m.verificationKeys(ctx, c)
	if err != nil {
		logger.Debug("No verification key for client assertion", log.Error(err))
		return false
	}
	claims, err := m.config.JOSE.Verify(token, keys, algorithms)
	if err != nil {
		logger.Debug("Client assertion signature rejected", log.Error(err))
		return false
	}
	if err := m.checkClaims(c.ID, claims); err != nil {
		logger.Debug("Client assertion claims rejected", log.Error(err))
		return false
	}
	return true
}

func (m *ClientAssertionMethod) verificationKeys(ctx context.Context, c *client.Client) (
	*jose.KeySet, []string, error) {
	algorithms := asymmetricAssertionAlgorithms
	if m.symmetric {
		algorithms = symmetricAssertionAlgorithms
	}
	if alg := c.Parameters.GetString(constants.ClientParamTokenEndpointAuthSigningAlg); alg != "" {
		algorithms = []string{alg}
	}

	if m.symmetric {
		secret := c.Secret()
		if secret == "" || isBcryptHash(secret) {
			return nil, nil, jose.ErrNoKeySet
		}
		return &jose.KeySet{Keys: []jose.Key{jose.SymmetricKey(secret, "")}}, algorithms, nil
	}
	keys, err := m.config.KeySets.Resolve(ctx, c.JWKS(), c.JWKSURI())
	return keys, algorithms, err
}

func (m *ClientAssertionMethod) checkClaims(clientID string, claims jwt.MapClaims) error {
	now := m.now()

	issuer, _ := claims.GetIssuer()
	subject, _ := claims.GetSubject()
	if issuer != clientID || subject != clientID {
		return model.NewInvalidClientError("The iss and sub claims must be the client id.")
	}

	audience, _ := claims.GetAudience()
	if !slices.ContainsFunc(audience, func(aud string) bool { return slices.Contains(m.config.Audiences, aud) }) {
		return model.NewInvalidClientError("The aud claim does not name this server.")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return model.NewInvalidClientError("The exp claim is missing.")
	}
	if !now.Before(exp.Add(assertionLeeway)) {
		return model.NewInvalidClientError("The client assertion expired.")
	}
	if nbf, err := claims.GetNotBefore(); err == nil && nbf != nil && now.Add(assertionLeeway).Before(nbf.Time) {
		return model.NewInvalidClientError("The client assertion is not yet valid.")
	}

	jti, _ := claims["jti"].(string)
	if jti == "" {
		return model.NewInvalidClientError("The jti claim is missing.")
	}
	ttl := exp.Add(assertionLeeway).Sub(now)
	if !m.config.Replay.Add(clientID+":"+jti, true, ttl) {
		return model.NewInvalidClientError("The client assertion was already used.")
	}
	return nil
}

// open decrypts an encrypted assertion when encryption is enabled.
func (m *ClientAssertionMethod) open(assertion string) (string, error) {
	if !jose.IsEncrypted(assertion) {
		return assertion, nil
	}
	encryption, ok := m.config.Encryption.Get()
	if !ok {
		return "", model.NewInvalidClientError("Encrypted client assertions are not supported.")
	}
	plaintext, err := m.config.JOSE.Decrypt(assertion, &encryption.DecryptionKeys,
		encryption.KeyAlgorithms, encryption.ContentEncryptions)
	if err != nil {
		return "", model.NewInvalidClientError("The client assertion could not be decrypted.")
	}
	return string(plaintext), nil
}
