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

// Package jose signs, verifies, encrypts and decrypts JSON web tokens. Signatures
// are handled with golang-jwt and key sets and encryption with go-jose.
package jose

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	gojose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

// Errors returned by the provider.
var (
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrNoMatchingKey        = errors.New("no key matches the token header")
	ErrInvalidSignature     = errors.New("token signature is invalid")
	ErrMalformedToken       = errors.New("malformed token")
)

// SupportedSignatureAlgorithms lists the JWS algorithms the provider can verify.
var SupportedSignatureAlgorithms = []string{
	"HS256", "HS384", "HS512",
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
}

// ProviderInterface defines the JOSE operations used by the protocol engine.
type ProviderInterface interface {
	// Sign creates a compact JWS over the given claims.
	Sign(claims map[string]interface{}, key Key, headers map[string]interface{}) (string, error)
	// Verify checks the signature of a compact JWS against the key set and returns its claims.
	// Registered claims are not validated here.
	Verify(token string, keys *KeySet, allowedAlgorithms []string) (jwt.MapClaims, error)
	// Encrypt wraps the payload into a compact JWE for the recipient key.
	Encrypt(payload []byte, recipient Key, keyAlgorithm, contentEncryption string) (string, error)
	// Decrypt opens a compact JWE with one of the given keys.
	Decrypt(token string, keys *KeySet, keyAlgorithms, contentEncryptions []string) ([]byte, error)
}

type provider struct{}

// NewProvider creates a new JOSE provider.
func NewProvider() ProviderInterface {
	return &provider{}
}

// Sign creates a compact JWS over the given claims.
func (p *provider) Sign(claims map[string]interface{}, key Key, headers map[string]interface{}) (string, error) {
	method := jwt.GetSigningMethod(key.Algorithm)
	if method == nil || method == jwt.SigningMethodNone {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, key.Algorithm)
	}

	token := jwt.NewWithClaims(method, jwt.MapClaims(claims))
	if key.KeyID != "" {
		token.Header["kid"] = key.KeyID
	}
	for name, value := range headers {
		token.Header[name] = value
	}
	return token.SignedString(key.Key)
}

// Verify checks the signature of a compact JWS and returns its claims.
func (p *provider) Verify(token string, keys *KeySet, allowedAlgorithms []string) (jwt.MapClaims, error) {
	if len(allowedAlgorithms) == 0 {
		return nil, fmt.Errorf("%w: no algorithm allowed", ErrUnsupportedAlgorithm)
	}

	parser := jwt.NewParser(jwt.WithValidMethods(allowedAlgorithms), jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		alg := t.Method.Alg()
		if alg == jwt.SigningMethodNone.Alg() {
			return jwt.UnsafeAllowNoneSignatureType, nil
		}
		kid, _ := t.Header["kid"].(string)
		return selectVerificationKey(keys, kid, alg)
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
		case errors.Is(err, ErrNoMatchingKey):
			return nil, ErrNoMatchingKey
		default:
			return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
		}
	}
	return claims, nil
}

// Encrypt wraps the payload into a compact JWE for the recipient key.
func (p *provider) Encrypt(payload []byte, recipient Key, keyAlgorithm, contentEncryption string) (string, error) {
	publicKey := recipient.Key
	if _, symmetric := recipient.Key.([]byte); !symmetric {
		publicKey = recipient.Public().Key
	}

	encrypter, err := gojose.NewEncrypter(
		gojose.ContentEncryption(contentEncryption),
		gojose.Recipient{
			Algorithm: gojose.KeyAlgorithm(keyAlgorithm),
			Key:       publicKey,
			KeyID:     recipient.KeyID,
		},
		(&gojose.EncrypterOptions{}).WithContentType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnsupportedAlgorithm, err)
	}

	object, err := encrypter.Encrypt(payload)
	if err != nil {
		return "", err
	}
	return object.CompactSerialize()
}

// Decrypt opens a compact JWE with the key named by its header, or any key when no kid is set.
func (p *provider) Decrypt(token string, keys *KeySet, keyAlgorithms, contentEncryptions []string) ([]byte, error) {
	if keys == nil || len(keys.Keys) == 0 {
		return nil, ErrNoMatchingKey
	}

	algs := make([]gojose.KeyAlgorithm, 0, len(keyAlgorithms))
	for _, a := range keyAlgorithms {
		algs = append(algs, gojose.KeyAlgorithm(a))
	}
	encs := make([]gojose.ContentEncryption, 0, len(contentEncryptions))
	for _, e := range contentEncryptions {
		encs = append(encs, gojose.ContentEncryption(e))
	}

	object, err := gojose.ParseEncrypted(token, algs, encs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	kid := object.Header.KeyID
	var lastErr error = ErrNoMatchingKey
	for _, k := range keys.Keys {
		if kid != "" && k.KeyID != "" && k.KeyID != kid {
			continue
		}
		plaintext, err := object.Decrypt(k.Key)
		if err == nil {
			return plaintext, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// IsEncrypted reports whether the compact token is a JWE rather than a JWS.
func IsEncrypted(token string) bool {
	return strings.Count(token, ".") == 4
}

// ParseUnverified decodes the claims of a compact JWS without checking its signature.
func ParseUnverified(token string) (jwt.MapClaims, map[string]interface{}, error) {
	claims := jwt.MapClaims{}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	return claims, parsed.Header, nil
}

// selectVerificationKey picks the key matching the kid and algorithm of a token.
func selectVerificationKey(keys *KeySet, kid, alg string) (interface{}, error) {
	if keys == nil {
		return nil, ErrNoMatchingKey
	}
	for _, k := range keys.Keys {
		if kid != "" && k.KeyID != "" && k.KeyID != kid {
			continue
		}
		if k.Algorithm != "" && k.Algorithm != alg {
			continue
		}
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		if key, ok := verificationKeyFor(k, alg); ok {
			return key, nil
		}
	}
	return nil, ErrNoMatchingKey
}

// verificationKeyFor returns the key material golang-jwt expects for the algorithm.
func verificationKeyFor(k Key, alg string) (interface{}, bool) {
	if secret, ok := k.Key.([]byte); ok {
		return secret, strings.HasPrefix(alg, "HS")
	}
	if strings.HasPrefix(alg, "HS") {
		return nil, false
	}

	public := k.Public()
	if !public.Valid() {
		return nil, false
	}
	switch {
	case strings.HasPrefix(alg, "RS"), strings.HasPrefix(alg, "PS"):
		return public.Key, isRSA(public.Key)
	case strings.HasPrefix(alg, "ES"):
		return public.Key, isECDSA(public.Key)
	default:
		return nil, false
	}
}

// SupportsAlgorithm reports whether the algorithm can be verified by the provider.
func SupportsAlgorithm(alg string) bool {
	return slices.Contains(SupportedSignatureAlgorithms, alg)
}
