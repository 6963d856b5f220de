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

// Package pkce provides the PKCE (Proof Key for Code Exchange) code challenge methods.
package pkce

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"slices"
)

// PKCE Code Challenge Methods.
const (
	CodeChallengeMethodPlain = "plain"
	CodeChallengeMethodS256  = "S256"
)

// PKCE validation errors
var (
	ErrInvalidCodeVerifier    = errors.New("invalid code verifier")
	ErrInvalidCodeChallenge   = errors.New("invalid code challenge")
	ErrInvalidChallengeMethod = errors.New("invalid code challenge method")
	ErrPKCEValidationFailed   = errors.New("PKCE validation failed")
)

// MethodInterface is a code challenge method.
type MethodInterface interface {
	Name() string
	// IsChallengeVerified reports whether the verifier matches the challenge.
	IsChallengeVerified(codeVerifier, codeChallenge string) bool
	// ValidateChallenge checks the format of a challenge created with this method.
	ValidateChallenge(codeChallenge string) error
}

type plainMethod struct{}

func (plainMethod) Name() string {
	return CodeChallengeMethodPlain
}

func (plainMethod) IsChallengeVerified(codeVerifier, codeChallenge string) bool {
	return subtle.ConstantTimeCompare([]byte(codeVerifier), []byte(codeChallenge)) == 1
}

func (plainMethod) ValidateChallenge(codeChallenge string) error {
	if len(codeChallenge) < 43 || len(codeChallenge) > 128 {
		return ErrInvalidCodeChallenge
	}
	for _, c := range codeChallenge {
		if !isValidASCIIUnreserved(c) {
			return ErrInvalidCodeChallenge
		}
	}
	return nil
}

type s256Method struct{}

func (s256Method) Name() string {
	return CodeChallengeMethodS256
}

func (s256Method) IsChallengeVerified(codeVerifier, codeChallenge string) bool {
	hash := sha256.Sum256([]byte(codeVerifier))
	expectedChallenge := base64.RawURLEncoding.EncodeToString(hash[:])
	return subtle.ConstantTimeCompare([]byte(expectedChallenge), []byte(codeChallenge)) == 1
}

func (s256Method) ValidateChallenge(codeChallenge string) error {
	if len(codeChallenge) != 43 {
		return ErrInvalidCodeChallenge
	}
	for _, c := range codeChallenge {
		if !isValidBase64URLChar(c) {
			return ErrInvalidCodeChallenge
		}
	}
	return nil
}

// Registry holds the supported code challenge methods. It is read-only once built.
type Registry struct {
	methods map[string]MethodInterface
	names   []string
}

// NewRegistry creates a registry with S256 and, when allowed, plain.
func NewRegistry(allowPlain bool) *Registry {
	r := &Registry{methods: map[string]MethodInterface{}}
	r.register(s256Method{})
	if allowPlain {
		r.register(plainMethod{})
	}
	return r
}

func (r *Registry) register(m MethodInterface) {
	r.methods[m.Name()] = m
	r.names = append(r.names, m.Name())
}

// Has reports whether the method is supported.
func (r *Registry) Has(name string) bool {
	_, ok := r.methods[name]
	return ok
}

// Get returns the method with the given name.
func (r *Registry) Get(name string) (MethodInterface, error) {
	m, ok := r.methods[name]
	if !ok {
		return nil, ErrInvalidChallengeMethod
	}
	return m, nil
}

// Names returns the supported method names.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// Verify checks the verifier against a stored challenge. An empty method means plain.
func (r *Registry) Verify(codeChallenge, codeChallengeMethod, codeVerifier string) error {
	if codeChallengeMethod == "" {
		codeChallengeMethod = CodeChallengeMethodPlain
	}
	method, err := r.Get(codeChallengeMethod)
	if err != nil {
		return err
	}
	if err := ValidateCodeVerifier(codeVerifier); err != nil {
		return err
	}
	if codeChallenge == "" {
		return ErrInvalidCodeChallenge
	}
	if !method.IsChallengeVerified(codeVerifier, codeChallenge) {
		return ErrPKCEValidationFailed
	}
	return nil
}

// ValidateCodeVerifier validates the format of a code verifier according to RFC 7636.
func ValidateCodeVerifier(codeVerifier string) error {
	if len(codeVerifier) < 43 || len(codeVerifier) > 128 {
		return ErrInvalidCodeVerifier
	}
	for _, c := range codeVerifier {
		if !isValidASCIIUnreserved(c) {
			return ErrInvalidCodeVerifier
		}
	}
	return nil
}

// GenerateCodeChallenge generates a code challenge from a code verifier using the specified method.
func GenerateCodeChallenge(codeVerifier, method string) (string, error) {
	if err := ValidateCodeVerifier(codeVerifier); err != nil {
		return "", err
	}

	switch method {
	case CodeChallengeMethodPlain:
		return codeVerifier, nil
	case CodeChallengeMethodS256:
		hash := sha256.Sum256([]byte(codeVerifier))
		return base64.RawURLEncoding.EncodeToString(hash[:]), nil
	default:
		return "", ErrInvalidChallengeMethod
	}
}

// isValidASCIIUnreserved validates that a character is in the unreserved set.
func isValidASCIIUnreserved(c rune) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

// isValidBase64URLChar validates that a character is in the base64url alphabet.
func isValidBase64URLChar(c rune) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_'
}
