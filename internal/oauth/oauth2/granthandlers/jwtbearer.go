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
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/system/jose"
	"github.com/asgardeo/oidcengine/internal/system/log"
)

const (
	jwtBearerLeeway             = 30 * time.Second
	invalidAssertionDescription = "The assertion is invalid."
)

var (
	symmetricAlgorithms  = []string{"HS256", "HS384", "HS512"}
	asymmetricAlgorithms = []string{
		"RS256", "RS384", "RS512", "PS256", "PS384", "PS512", "ES256", "ES384", "ES512",
	}
)

// TrustedIssuer is a third party whose assertions are accepted by the JWT bearer grant.
type TrustedIssuer struct {
	Issuer string
	// JWKS is an inline key set. JWKSURI is used when it is empty.
	JWKS       string
	JWKSURI    string
	Algorithms []string
}

// JWTBearerConfig holds the collaborators of the JWT bearer grant.
type JWTBearerConfig struct {
	// Audiences lists the accepted aud values, usually the token endpoint URL and the issuer.
	Audiences      []string
	TrustedIssuers []TrustedIssuer
	JOSE           jose.ProviderInterface
	KeySets        jose.KeySetResolverInterface
}

// JWTBearerGrantHandler exchanges a signed assertion for an access token (RFC 7523).
type JWTBearerGrantHandler struct {
	config JWTBearerConfig
	now    func() time.Time
}

// NewJWTBearerGrantHandler creates the JWT bearer grant.
func NewJWTBearerGrantHandler(config JWTBearerConfig) *JWTBearerGrantHandler {
	return &JWTBearerGrantHandler{config: config, now: time.Now}
}

// GrantType implements GrantHandlerInterface.
func (h *JWTBearerGrantHandler) GrantType() string {
	return constants.GrantTypeJWTBearer
}

// CheckRequest implements GrantHandlerInterface.
func (h *JWTBearerGrantHandler) CheckRequest(form url.Values) error {
	if form.Get(constants.Assertion) == "" {
		return model.NewInvalidRequestError(`The "assertion" parameter is mandatory.`)
	}
	return nil
}

// Grant implements GrantHandlerInterface. Assertions issued by the client itself are verified
// with the client keys, all others with the keys of a trusted issuer.
func (h *JWTBearerGrantHandler) Grant(ctx context.Context, c *client.Client,
	form url.Values) (*GrantData, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "JWTBearerGrantHandler"),
		log.String(log.LoggerKeyClientID, c.ID))

	assertion := form.Get(constants.Assertion)
	unverified, header, err := jose.ParseUnverified(assertion)
	if err != nil {
		return nil, model.NewInvalidGrantError(invalidAssertionDescription).WithCause(err)
	}
	issuer, _ := unverified.GetIssuer()
	alg, _ := header["alg"].(string)

	keys, algorithms, err := h.verificationKeys(ctx, c, issuer, alg)
	if err != nil {
		return nil, err
	}
	claims, err := h.config.JOSE.Verify(assertion, keys, algorithms)
	if err != nil {
		logger.Debug("Assertion signature rejected", log.String("issuer", issuer), log.Error(err))
		return nil, model.NewInvalidGrantError(invalidAssertionDescription).WithCause(err)
	}
	if err := h.checkClaims(claims); err != nil {
		return nil, err
	}

	subject, _ := claims.GetSubject()
	params := databag.New()
	if scope := form.Get(constants.Scope); scope != "" {
		params = params.With(constants.Scope, scope)
	}
	if tokenType := form.Get(constants.TokenType); tokenType != "" {
		params = params.With(constants.TokenType, tokenType)
	}
	return &GrantData{
		Client:          c,
		GrantType:       constants.GrantTypeJWTBearer,
		Parameters:      params,
		Metadata:        databag.New(model.MetadataResourceOwnerIsUser, true),
		ResourceOwnerID: subject,
	}, nil
}

func (h *JWTBearerGrantHandler) verificationKeys(ctx context.Context, c *client.Client, issuer, alg string) (
	*jose.KeySet, []string, error) {
	if issuer == "" {
		return nil, nil, model.NewInvalidRequestError("The assertion has no issuer.")
	}

	if issuer == c.ID {
		if slices.Contains(symmetricAlgorithms, alg) {
			secret := c.Secret()
			if secret == "" || strings.HasPrefix(secret, "$2") {
				return nil, nil, model.NewInvalidGrantError(invalidAssertionDescription)
			}
			return &jose.KeySet{Keys: []jose.Key{jose.SymmetricKey(secret, "")}}, symmetricAlgorithms, nil
		}
		keys, err := h.config.KeySets.Resolve(ctx, c.JWKS(), c.JWKSURI())
		if err != nil {
			return nil, nil, model.NewInvalidGrantError("The client has no key to verify the assertion.").
				WithCause(err)
		}
		return keys, asymmetricAlgorithms, nil
	}

	for _, trusted := range h.config.TrustedIssuers {
		if trusted.Issuer != issuer {
			continue
		}
		var inline interface{}
		if trusted.JWKS != "" {
			inline = trusted.JWKS
		}
		keys, err := h.config.KeySets.Resolve(ctx, inline, trusted.JWKSURI)
		if err != nil {
			return nil, nil, model.NewServerError(err)
		}
		algorithms := trusted.Algorithms
		if len(algorithms) == 0 {
			algorithms = asymmetricAlgorithms
		}
		return keys, algorithms, nil
	}
	return nil, nil, model.NewInvalidRequestError("The assertion issuer is not trusted.")
}

func (h *JWTBearerGrantHandler) checkClaims(claims jwt.MapClaims) error {
	now := h.now()

	if subject, _ := claims.GetSubject(); subject == "" {
		return model.NewInvalidGrantError("The assertion has no subject.")
	}
	audience, _ := claims.GetAudience()
	if !slices.ContainsFunc(audience, func(aud string) bool { return slices.Contains(h.config.Audiences, aud) }) {
		return model.NewInvalidGrantError("The aud claim does not name this server.")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return model.NewInvalidGrantError("The exp claim is missing.")
	}
	if !now.Before(exp.Add(jwtBearerLeeway)) {
		return model.NewInvalidGrantError("The assertion expired.")
	}
	if nbf, err := claims.GetNotBefore(); err == nil && nbf != nil && now.Add(jwtBearerLeeway).Before(nbf.Time) {
		return model.NewInvalidGrantError("The assertion is not yet valid.")
	}
	iat, err := claims.GetIssuedAt()
	if err != nil || iat == nil {
		return model.NewInvalidGrantError("The iat claim is missing.")
	}
	if now.Add(jwtBearerLeeway).Before(iat.Time) {
		return model.NewInvalidGrantError("The assertion was issued in the future.")
	}
	return nil
}
