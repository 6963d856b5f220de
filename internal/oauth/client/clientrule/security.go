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
	"fmt"
	"slices"
	"time"

	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/system/jose"
	"github.com/asgardeo/oidcengine/internal/system/utils"
)

const clientSecretBytes = 32

// JwksRule validates the client key set. A client can register either jwks or jwks_uri.
type JwksRule struct{}

// PreValidate implements PreValidator.
func (JwksRule) PreValidate(_ string, params, validated databag.DataBag) (databag.DataBag, error) {
	jwks, hasJWKS := params.Get(constants.ClientParamJWKS)
	jwksURI, hasJWKSURI := params.Get(constants.ClientParamJWKSURI)
	if hasJWKS && hasJWKSURI {
		return validated, newMetadataError(`The parameters "jwks" and "jwks_uri" must not be used together.`)
	}

	if hasJWKS {
		if _, err := jose.ParseKeySet(jwks); err != nil {
			return validated, newMetadataError(`The parameter "jwks" must be a valid JSON web key set.`)
		}
		return validated.With(constants.ClientParamJWKS, jwks), nil
	}
	if hasJWKSURI {
		uri, ok := jwksURI.(string)
		if !ok || !isWebURL(uri, true) {
			return validated, newMetadataError(`The parameter "jwks_uri" must be a valid HTTPS URL.`)
		}
		return validated.With(constants.ClientParamJWKSURI, uri), nil
	}
	return validated, nil
}

// AuthMethodRegistry is the subset of the client authentication manager the rule needs.
type AuthMethodRegistry interface {
	Has(method string) bool
}

// TokenEndpointAuthMethodRule sets the client authentication method and its credentials.
type TokenEndpointAuthMethodRule struct {
	methods        AuthMethodRegistry
	secretLifetime time.Duration
	now            func() time.Time
}

// NewTokenEndpointAuthMethodRule creates the rule. A zero secret lifetime issues
// secrets that never expire.
func NewTokenEndpointAuthMethodRule(methods AuthMethodRegistry, secretLifetime time.Duration,
	now func() time.Time) *TokenEndpointAuthMethodRule {
	if now == nil {
		now = time.Now
	}
	return &TokenEndpointAuthMethodRule{methods: methods, secretLifetime: secretLifetime, now: now}
}

// PreValidate implements PreValidator.
func (r *TokenEndpointAuthMethodRule) PreValidate(_ string, params, validated databag.DataBag) (
	databag.DataBag, error) {
	method := constants.DefaultTokenEndpointAuthenticationMethod
	if value, present := params.Get(constants.ClientParamTokenEndpointAuthMethod); present {
		m, ok := value.(string)
		if !ok || !r.methods.Has(m) {
			return validated, newMetadataError(
				fmt.Sprintf(`The token endpoint authentication method "%v" is not supported.`, value))
		}
		method = m
	}
	validated = validated.With(constants.ClientParamTokenEndpointAuthMethod, method)

	switch method {
	case constants.AuthMethodClientSecretBasic, constants.AuthMethodClientSecretPost,
		constants.AuthMethodClientSecretJWT:
		return r.withSecret(params, validated)
	case constants.AuthMethodPrivateKeyJWT:
		if !validated.Has(constants.ClientParamJWKS) && !validated.Has(constants.ClientParamJWKSURI) {
			return validated, newMetadataError(
				`The "private_key_jwt" authentication method requires either "jwks" or "jwks_uri".`)
		}
	}
	return validated, nil
}

func (r *TokenEndpointAuthMethodRule) withSecret(params, validated databag.DataBag) (databag.DataBag, error) {
	secret := params.GetString(constants.ClientParamClientSecret)
	if secret == "" {
		generated, err := utils.GenerateSecureToken(clientSecretBytes)
		if err != nil {
			return validated, fmt.Errorf("failed to generate client secret: %w", err)
		}
		secret = generated
	}
	validated = validated.With(constants.ClientParamClientSecret, secret)

	if expiresAt, ok := params.GetInt64(constants.ClientParamClientSecretExpiresAt); ok {
		return validated.With(constants.ClientParamClientSecretExpiresAt, expiresAt), nil
	}
	var expiresAt int64
	if r.secretLifetime > 0 {
		expiresAt = r.now().Add(r.secretLifetime).Unix()
	}
	return validated.With(constants.ClientParamClientSecretExpiresAt, expiresAt), nil
}

// IDTokenAlgorithmsRule validates the ID token signing and encryption algorithms.
type IDTokenAlgorithmsRule struct {
	keyAlgorithms      []string
	contentEncryptions []string
}

// NewIDTokenAlgorithmsRule creates the rule. Empty lists accept any encryption algorithm.
func NewIDTokenAlgorithmsRule(keyAlgorithms, contentEncryptions []string) *IDTokenAlgorithmsRule {
	return &IDTokenAlgorithmsRule{keyAlgorithms: keyAlgorithms, contentEncryptions: contentEncryptions}
}

// PreValidate implements PreValidator.
func (r *IDTokenAlgorithmsRule) PreValidate(_ string, params, validated databag.DataBag) (databag.DataBag, error) {
	signingAlg := constants.DefaultIDTokenSignedResponseAlgorithm
	if value, present := params.Get(constants.ClientParamIDTokenSignedResponseAlg); present {
		alg, ok := value.(string)
		if !ok || !jose.SupportsAlgorithm(alg) {
			return validated, newMetadataError(
				fmt.Sprintf(`The ID token signing algorithm "%v" is not supported.`, value))
		}
		signingAlg = alg
	}
	validated = validated.With(constants.ClientParamIDTokenSignedResponseAlg, signingAlg)

	keyAlg := params.GetString(constants.ClientParamIDTokenEncryptedResponseAlg)
	contentEnc := params.GetString(constants.ClientParamIDTokenEncryptedResponseEnc)
	if keyAlg == "" && contentEnc == "" {
		return validated, nil
	}
	if keyAlg == "" || contentEnc == "" {
		return validated, newMetadataError(`The parameters "id_token_encrypted_response_alg" and ` +
			`"id_token_encrypted_response_enc" must be used together.`)
	}
	if len(r.keyAlgorithms) > 0 && !slices.Contains(r.keyAlgorithms, keyAlg) {
		return validated, newMetadataError(
			fmt.Sprintf(`The ID token encryption algorithm "%s" is not supported.`, keyAlg))
	}
	if len(r.contentEncryptions) > 0 && !slices.Contains(r.contentEncryptions, contentEnc) {
		return validated, newMetadataError(
			fmt.Sprintf(`The ID token content encryption "%s" is not supported.`, contentEnc))
	}
	if !validated.Has(constants.ClientParamJWKS) && !validated.Has(constants.ClientParamJWKSURI) {
		return validated, newMetadataError(`ID token encryption requires either "jwks" or "jwks_uri".`)
	}
	return validated.
		With(constants.ClientParamIDTokenEncryptedResponseAlg, keyAlg).
		With(constants.ClientParamIDTokenEncryptedResponseEnc, contentEnc), nil
}
