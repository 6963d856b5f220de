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

// Package requestobject loads authorization request parameters passed by value with the
// "request" parameter or by reference with "request_uri".
package requestobject

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	syshttp "github.com/asgardeo/oidcengine/internal/system/http"
	"github.com/asgardeo/oidcengine/internal/system/jose"
	"github.com/asgardeo/oidcengine/internal/system/log"
)

const (
	maxRequestObjectBytes = 64 * 1024
	clockLeeway           = 30 * time.Second
	requestObjectAccept   = "application/oauth-authz-req+jwt, application/jwt"
)

// Registered JWT claims that are never copied into the request parameters.
var reservedClaims = []string{"iss", "aud", "exp", "nbf", "iat", "jti", "sub",
	constants.Request, constants.RequestURI}

// Config holds the request object settings.
type Config struct {
	Enabled             bool
	AllowRequestURI     bool
	AllowUnsigned       bool
	MaxRequestURILength int
	// Audience is the issuer identifier expected in the aud claim.
	Audience   string
	Encryption jose.Option[jose.Encryption]
}

// LoaderInterface resolves the effective authorization request parameters.
type LoaderInterface interface {
	Load(ctx context.Context, c *client.Client, query url.Values) (url.Values, error)
}

// Loader verifies request objects and merges their claims over the query parameters.
type Loader struct {
	config     Config
	jose       jose.ProviderInterface
	keySets    jose.KeySetResolverInterface
	httpClient syshttp.HTTPClientInterface
	now        func() time.Time
}

// NewLoader creates a request object loader.
func NewLoader(config Config, provider jose.ProviderInterface, keySets jose.KeySetResolverInterface,
	httpClient syshttp.HTTPClientInterface) *Loader {
	return &Loader{
		config:     config,
		jose:       provider,
		keySets:    keySets,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Load returns the query unchanged when it carries no request object. Otherwise the claims of
// the verified request object replace the query parameters of the same name.
func (l *Loader) Load(ctx context.Context, c *client.Client, query url.Values) (url.Values, error) {
	hasRequest := query.Has(constants.Request)
	hasRequestURI := query.Has(constants.RequestURI)
	if !hasRequest && !hasRequestURI {
		return query, nil
	}
	if hasRequest && hasRequestURI {
		return nil, model.NewInvalidRequestError(
			`The "request" and "request_uri" parameters must not be used together.`)
	}
	if !l.config.Enabled {
		if hasRequestURI {
			return nil, model.NewRequestURINotSupportedError(`The "request_uri" parameter is not supported.`)
		}
		return nil, model.NewRequestNotSupportedError(`The "request" parameter is not supported.`)
	}

	token := query.Get(constants.Request)
	if hasRequestURI {
		fetched, err := l.fetch(ctx, query.Get(constants.RequestURI))
		if err != nil {
			return nil, err
		}
		token = fetched
	}

	claims, err := l.verify(ctx, c, token)
	if err != nil {
		return nil, err
	}
	if err := l.checkClaims(c, query, claims); err != nil {
		return nil, err
	}
	return merge(query, claims)
}

func (l *Loader) fetch(ctx context.Context, requestURI string) (string, error) {
	if !l.config.AllowRequestURI {
		return "", model.NewRequestURINotSupportedError(`The "request_uri" parameter is not supported.`)
	}
	if l.config.MaxRequestURILength > 0 && len(requestURI) > l.config.MaxRequestURILength {
		return "", model.NewInvalidRequestURIError(`The "request_uri" parameter is too long.`)
	}
	uri, err := url.Parse(requestURI)
	if err != nil || uri.Scheme != "https" || uri.Host == "" {
		return "", model.NewInvalidRequestURIError(`The "request_uri" parameter must be a valid HTTPS URL.`)
	}

	body, err := l.httpClient.Fetch(ctx, requestURI, requestObjectAccept, maxRequestObjectBytes)
	if err != nil {
		logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "RequestObjectLoader"))
		logger.Debug("Failed to fetch request object", log.String("uri", requestURI), log.Error(err))
		return "", model.NewInvalidRequestURIError("The request object could not be retrieved.").WithCause(err)
	}
	return strings.TrimSpace(string(body)), nil
}

func (l *Loader) verify(ctx context.Context, c *client.Client, token string) (jwt.MapClaims, error) {
	if jose.IsEncrypted(token) {
		decrypted, err := l.decrypt(token)
		if err != nil {
			return nil, err
		}
		token = decrypted
	}

	_, header, err := jose.ParseUnverified(token)
	if err != nil {
		return nil, model.NewInvalidRequestObjectError("The request object is malformed.").WithCause(err)
	}
	alg, _ := header["alg"].(string)
	if expected := c.Parameters.GetString(constants.ClientParamRequestObjectSigningAlg); expected != "" &&
		expected != alg {
		return nil, model.NewInvalidRequestObjectError(
			fmt.Sprintf("The request object must be signed with %q.", expected))
	}

	var keys *jose.KeySet
	switch {
	case alg == jwt.SigningMethodNone.Alg():
		if !l.config.AllowUnsigned {
			return nil, model.NewInvalidRequestObjectError("Unsigned request objects are not allowed.")
		}
	case strings.HasPrefix(alg, "HS"):
		secret := c.Secret()
		if secret == "" || strings.HasPrefix(secret, "$2") {
			return nil, model.NewInvalidRequestObjectError(
				"The client has no secret usable to verify the request object.")
		}
		keys = &jose.KeySet{Keys: []jose.Key{jose.SymmetricKey(secret, alg)}}
	case jose.SupportsAlgorithm(alg):
		keys, err = l.keySets.Resolve(ctx, c.JWKS(), c.JWKSURI())
		if err != nil {
			return nil, model.NewInvalidRequestObjectError(
				"The client keys needed to verify the request object are not available.").WithCause(err)
		}
	default:
		return nil, model.NewInvalidRequestObjectError(
			fmt.Sprintf("The request object algorithm %q is not supported.", alg))
	}

	claims, err := l.jose.Verify(token, keys, []string{alg})
	if err != nil {
		return nil, model.NewInvalidRequestObjectError("The request object signature is invalid.").WithCause(err)
	}
	return claims, nil
}

func (l *Loader) decrypt(token string) (string, error) {
	encryption, ok := l.config.Encryption.Get()
	if !ok {
		return "", model.NewInvalidRequestObjectError("Encrypted request objects are not supported.")
	}
	plaintext, err := l.jose.Decrypt(token, &encryption.DecryptionKeys, encryption.KeyAlgorithms,
		encryption.ContentEncryptions)
	if err != nil {
		return "", model.NewInvalidRequestObjectError("The request object could not be decrypted.").WithCause(err)
	}
	return string(plaintext), nil
}

func (l *Loader) checkClaims(c *client.Client, query url.Values, claims jwt.MapClaims) error {
	if iss, ok := claims["iss"]; ok && iss != c.ID {
		return model.NewInvalidRequestObjectError(`The "iss" claim must be the client identifier.`)
	}
	if clientID, ok := claims[constants.ClientID]; ok && clientID != c.ID {
		return model.NewInvalidRequestObjectError(`The "client_id" claim does not match the client.`)
	}
	if _, ok := claims["aud"]; ok && l.config.Audience != "" {
		audience, err := claims.GetAudience()
		if err != nil || !slices.Contains(audience, l.config.Audience) {
			return model.NewInvalidRequestObjectError(`The "aud" claim must contain the issuer identifier.`)
		}
	}
	if responseType, ok := claims[constants.ResponseType]; ok &&
		responseType != query.Get(constants.ResponseType) {
		return model.NewInvalidRequestObjectError(
			`The "response_type" claim must match the "response_type" parameter.`)
	}

	now := l.now()
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return model.NewInvalidRequestObjectError(`The "exp" claim is invalid.`)
	}
	if exp != nil && now.Add(-clockLeeway).After(exp.Time) {
		return model.NewInvalidRequestObjectError("The request object has expired.")
	}
	nbf, err := claims.GetNotBefore()
	if err != nil {
		return model.NewInvalidRequestObjectError(`The "nbf" claim is invalid.`)
	}
	if nbf != nil && now.Add(clockLeeway).Before(nbf.Time) {
		return model.NewInvalidRequestObjectError("The request object is not yet valid.")
	}
	return nil
}

func merge(query url.Values, claims jwt.MapClaims) (url.Values, error) {
	merged := make(url.Values, len(query)+len(claims))
	for k, v := range query {
		if k == constants.Request || k == constants.RequestURI {
			continue
		}
		merged[k] = slices.Clone(v)
	}
	for name, value := range claims {
		if slices.Contains(reservedClaims, name) {
			continue
		}
		text, err := parameterValue(value)
		if err != nil {
			return nil, model.NewInvalidRequestObjectError(
				fmt.Sprintf("The claim %q cannot be used as a request parameter.", name))
		}
		merged.Set(name, text)
	}
	return merged, nil
}

func parameterValue(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}
}
