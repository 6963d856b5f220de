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

package jose

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gojose "github.com/go-jose/go-jose/v4"
)

// Key is a JSON Web Key.
type Key = gojose.JSONWebKey

// KeySet is a JSON Web Key Set.
type KeySet = gojose.JSONWebKeySet

// Errors returned while handling keys.
var (
	ErrInvalidKeySet      = errors.New("invalid JSON web key set")
	ErrUnsupportedKeyType = errors.New("unsupported private key type")
)

// ParseKeySet parses a JWK set given either as raw JSON or as an already decoded
// JSON/YAML value. A set without keys is rejected.
func ParseKeySet(value interface{}) (*KeySet, error) {
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case *KeySet:
		if v == nil || len(v.Keys) == 0 {
			return nil, ErrInvalidKeySet
		}
		return v, nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidKeySet, err)
		}
		raw = encoded
	}

	var keySet KeySet
	if err := json.Unmarshal(raw, &keySet); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeySet, err)
	}
	if len(keySet.Keys) == 0 {
		return nil, ErrInvalidKeySet
	}
	for _, k := range keySet.Keys {
		if !k.Valid() {
			return nil, ErrInvalidKeySet
		}
	}
	return &keySet, nil
}

// SymmetricKey returns an HMAC key for the given shared secret.
func SymmetricKey(secret string, alg string) Key {
	return Key{Key: []byte(secret), Algorithm: alg, Use: "sig"}
}

// GenerateSigningKey creates a fresh private signing key for the given algorithm.
func GenerateSigningKey(alg, keyID string) (Key, error) {
	var private crypto.Signer
	var err error
	switch {
	case strings.HasPrefix(alg, "RS"), strings.HasPrefix(alg, "PS"):
		private, err = rsa.GenerateKey(rand.Reader, 2048)
	case alg == "ES256":
		private, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case alg == "ES384":
		private, err = ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	case alg == "ES512":
		private, err = ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
	default:
		return Key{}, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
	}
	if err != nil {
		return Key{}, err
	}
	return Key{Key: private, KeyID: keyID, Algorithm: alg, Use: "sig"}, nil
}

// LoadPrivateKey reads a PEM encoded PKCS#1, PKCS#8 or SEC 1 private key.
func LoadPrivateKey(path, keyID, alg, use string) (Key, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Key{}, err
	}
	block, _ := pem.Decode(content)
	if block == nil {
		return Key{}, errors.New("no PEM block found in " + path)
	}

	var private interface{}
	switch block.Type {
	case "RSA PRIVATE KEY":
		private, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		private, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		private, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	}
	if err != nil {
		return Key{}, err
	}

	switch private.(type) {
	case *rsa.PrivateKey, *ecdsa.PrivateKey:
	default:
		return Key{}, ErrUnsupportedKeyType
	}
	return Key{Key: private, KeyID: keyID, Algorithm: alg, Use: use}, nil
}

// PublicKeySet returns the public part of the given keys, skipping symmetric ones.
func PublicKeySet(keys ...Key) KeySet {
	set := KeySet{}
	for _, k := range keys {
		if _, symmetric := k.Key.([]byte); symmetric {
			continue
		}
		public := k.Public()
		if public.Valid() {
			set.Keys = append(set.Keys, public)
		}
	}
	return set
}
