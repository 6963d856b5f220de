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

// Package cert loads the key material of the server: the TLS certificate and the token signing key.
package cert

import (
	"crypto"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/asgardeo/oidcengine/internal/system/config"
	"github.com/asgardeo/oidcengine/internal/system/jose"
	"github.com/asgardeo/oidcengine/internal/system/log"
)

// GetTLSConfig loads the TLS configuration from the certificate and key files.
func GetTLSConfig(cfg *config.Config, currentDirectory string) (*tls.Config, error) {
	certFilePath := path.Join(currentDirectory, cfg.Security.CertFile)
	keyFilePath := path.Join(currentDirectory, cfg.Security.KeyFile)

	// Check if the certificate and key files exist.
	if _, err := os.Stat(certFilePath); os.IsNotExist(err) {
		return nil, errors.New("certificate file not found at " + certFilePath)
	}
	if _, err := os.Stat(keyFilePath); os.IsNotExist(err) {
		return nil, errors.New("key file not found at " + keyFilePath)
	}

	cert, err := tls.LoadX509KeyPair(certFilePath, keyFilePath)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// LoadSigningKey loads the private key used to sign ID tokens. Without a configured key file an
// ephemeral key is generated, which invalidates every issued ID token on restart.
func LoadSigningKey(cfg config.SigningKeyConfig, currentDirectory string) (jose.Key, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "CertLoader"))

	var (
		key jose.Key
		err error
	)
	if cfg.KeyFile == "" {
		logger.Warn("No signing key configured, generating an ephemeral key",
			log.String("algorithm", cfg.Algorithm))
		key, err = jose.GenerateSigningKey(cfg.Algorithm, cfg.KeyID)
	} else {
		key, err = jose.LoadPrivateKey(path.Join(currentDirectory, cfg.KeyFile), cfg.KeyID, cfg.Algorithm, "sig")
	}
	if err != nil {
		return jose.Key{}, fmt.Errorf("failed to load signing key: %w", err)
	}

	if key.KeyID == "" {
		kid, err := KeyID(key)
		if err != nil {
			return jose.Key{}, err
		}
		key.KeyID = kid
	}
	return key, nil
}

// KeyID returns the RFC 7638 SHA-256 thumbprint of the public key, base64url encoded.
func KeyID(key jose.Key) (string, error) {
	public := key.Public()
	thumbprint, err := public.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("failed to compute key thumbprint: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(thumbprint), nil
}

// LoadEncryption builds the JWE settings of a component. Decryption keys are only loaded when
// the component receives encrypted tokens.
func LoadEncryption(cfg config.EncryptionConfig, currentDirectory string) (jose.Option[jose.Encryption], error) {
	if !cfg.Enabled {
		return jose.None[jose.Encryption](), nil
	}

	encryption := jose.Encryption{
		KeyAlgorithms:      cfg.KeyAlgorithms,
		ContentEncryptions: cfg.ContentEncryptions,
	}
	if cfg.DecryptionKeyFile != "" {
		key, err := jose.LoadPrivateKey(path.Join(currentDirectory, cfg.DecryptionKeyFile), cfg.DecryptionKeyID,
			cfg.DecryptionAlgorithm, "enc")
		if err != nil {
			return jose.None[jose.Encryption](), fmt.Errorf("failed to load decryption key: %w", err)
		}
		encryption.DecryptionKeys = jose.KeySet{Keys: []jose.Key{key}}
	}
	return jose.Some(encryption), nil
}
