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

// Package idtoken builds OpenID Connect ID tokens.
package idtoken

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/user"
	"github.com/asgardeo/oidcengine/internal/system/jose"
)

// Errors returned by the builder.
var (
	ErrNoSigningKey        = errors.New("no signing key for the requested algorithm")
	ErrEncryptionDisabled  = errors.New("ID token encryption is disabled")
	ErrNoEncryptionKey     = errors.New("client has no key usable for encryption")
	ErrSymmetricKeyMissing = errors.New("client has no usable secret for HMAC signing")
)

// Request holds what goes into an ID token.
type Request struct {
	Client      *client.Client
	User        *user.UserAccount
	Scopes      []string
	Nonce       string
	AuthTime    time.Time
	AccessToken string
	Code        string
}

// BuilderInterface issues ID tokens.
type BuilderInterface interface {
	Build(ctx context.Context, req Request) (string, error)
}

// Builder signs ID tokens with the server keys and optionally encrypts them for the client.
type Builder struct {
	issuer      string
	validity    time.Duration
	jose        jose.ProviderInterface
	signingKeys []jose.Key
	keySets     jose.KeySetResolverInterface
	encryption  jose.Option[jose.Encryption]
	now         func() time.Time
}

// NewBuilder creates an ID token builder.
func NewBuilder(issuer string, validity time.Duration, provider jose.ProviderInterface, signingKeys []jose.Key,
	keySets jose.KeySetResolverInterface, encryption jose.Option[jose.Encryption]) *Builder {
	return &Builder{
		issuer:      issuer,
		validity:    validity,
		jose:        provider,
		signingKeys: signingKeys,
		keySets:     keySets,
		encryption:  encryption,
		now:         time.Now,
	}
}

// Build creates the ID token of the request.
func (b *Builder) Build(ctx context.Context, req Request) (string, error) {
	c := req.Client
	alg := c.Parameters.GetString(constants.ClientParamIDTokenSignedResponseAlg)
	if alg == "" {
		alg = constants.DefaultIDTokenSignedResponseAlgorithm
	}
	key, err := b.signingKey(c, alg)
	if err != nil {
		return "", err
	}

	now := b.now()
	claims := map[string]interface{}{}
	if req.User != nil {
		for name, value := range req.User.ClaimsForScopes(req.Scopes) {
			claims[name] = value
		}
		claims["sub"] = req.User.ID
	}
	claims["iss"] = b.issuer
	claims["aud"] = c.ID
	claims["azp"] = c.ID
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(b.validity).Unix()
	if !req.AuthTime.IsZero() {
		claims["auth_time"] = req.AuthTime.Unix()
	}
	if req.Nonce != "" {
		claims["nonce"] = req.Nonce
	}
	if req.AccessToken != "" {
		claims["at_hash"] = jose.TokenHash(req.AccessToken, alg)
	}
	if req.Code != "" {
		claims["c_hash"] = jose.TokenHash(req.Code, alg)
	}

	signed, err := b.jose.Sign(claims, key, map[string]interface{}{"typ": "JWT"})
	if err != nil {
		return "", fmt.Errorf("failed to sign ID token: %w", err)
	}

	keyAlg := c.Parameters.GetString(constants.ClientParamIDTokenEncryptedResponseAlg)
	contentEnc := c.Parameters.GetString(constants.ClientParamIDTokenEncryptedResponseEnc)
	if keyAlg == "" || contentEnc == "" {
		return signed, nil
	}
	return b.encrypt(ctx, c, signed, keyAlg, contentEnc)
}

func (b *Builder) signingKey(c *client.Client, alg string) (jose.Key, error) {
	if strings.HasPrefix(alg, "HS") {
		secret := c.Secret()
		if secret == "" || strings.HasPrefix(secret, "$2") {
			return jose.Key{}, ErrSymmetricKeyMissing
		}
		return jose.SymmetricKey(secret, alg), nil
	}
	for _, k := range b.signingKeys {
		if k.Algorithm == alg {
			return k, nil
		}
	}
	return jose.Key{}, fmt.Errorf("%w: %s", ErrNoSigningKey, alg)
}

func (b *Builder) encrypt(ctx context.Context, c *client.Client, signed, keyAlg, contentEnc string) (string, error) {
	if !b.encryption.IsPresent() {
		return "", ErrEncryptionDisabled
	}
	keys, err := b.keySets.Resolve(ctx, c.JWKS(), c.JWKSURI())
	if err != nil {
		return "", fmt.Errorf("failed to resolve client keys: %w", err)
	}
	recipient, ok := encryptionKey(keys)
	if !ok {
		return "", ErrNoEncryptionKey
	}
	encrypted, err := b.jose.Encrypt([]byte(signed), recipient, keyAlg, contentEnc)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt ID token: %w", err)
	}
	return encrypted, nil
}

// encryptionKey prefers keys marked for encryption and falls back to keys without a use.
func encryptionKey(keys *jose.KeySet) (jose.Key, bool) {
	var fallback *jose.Key
	for i, k := range keys.Keys {
		if _, symmetric := k.Key.([]byte); symmetric {
			continue
		}
		switch k.Use {
		case "enc":
			return k, true
		case "":
			if fallback == nil {
				fallback = &keys.Keys[i]
			}
		}
	}
	if fallback == nil {
		return jose.Key{}, false
	}
	return *fallback, true
}
