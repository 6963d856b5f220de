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

package cert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/asgardeo/oidcengine/internal/system/config"
)

type CertTestSuite struct {
	suite.Suite
	dir string
}

func TestCertSuite(t *testing.T) {
	suite.Run(t, new(CertTestSuite))
}

func (suite *CertTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
}

func (suite *CertTestSuite) writePEM(name, blockType string, der []byte) {
	content := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	require.NoError(suite.T(), os.WriteFile(filepath.Join(suite.dir, name), content, 0o600))
}

func (suite *CertTestSuite) TestLoadSigningKeyFromFile() {
	private, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(suite.T(), err)
	suite.writePEM("signing.key", "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(private))

	key, err := LoadSigningKey(config.SigningKeyConfig{KeyFile: "signing.key", KeyID: "k1", Algorithm: "RS256"},
		suite.dir)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "k1", key.KeyID)
	assert.Equal(suite.T(), "RS256", key.Algorithm)
	assert.IsType(suite.T(), &rsa.PrivateKey{}, key.Key)
}

func (suite *CertTestSuite) TestGeneratedKeyGetsThumbprintKeyID() {
	key, err := LoadSigningKey(config.SigningKeyConfig{Algorithm: "ES256"}, suite.dir)
	require.NoError(suite.T(), err)
	assert.IsType(suite.T(), &ecdsa.PrivateKey{}, key.Key)

	expected, err := KeyID(key)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), expected, key.KeyID)
	assert.Len(suite.T(), key.KeyID, 43)
}

func (suite *CertTestSuite) TestMissingSigningKeyFile() {
	_, err := LoadSigningKey(config.SigningKeyConfig{KeyFile: "missing.key", Algorithm: "RS256"}, suite.dir)
	assert.Error(suite.T(), err)
}

func (suite *CertTestSuite) TestGetTLSConfig() {
	private, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(suite.T(), err)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &private.PublicKey, private)
	require.NoError(suite.T(), err)
	keyDER, err := x509.MarshalECPrivateKey(private)
	require.NoError(suite.T(), err)
	suite.writePEM("server.cert", "CERTIFICATE", der)
	suite.writePEM("server.key", "EC PRIVATE KEY", keyDER)

	cfg := &config.Config{Security: config.SecurityConfig{CertFile: "server.cert", KeyFile: "server.key"}}
	tlsConfig, err := GetTLSConfig(cfg, suite.dir)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), tlsConfig.Certificates, 1)

	cfg.Security.CertFile = "absent.cert"
	_, err = GetTLSConfig(cfg, suite.dir)
	assert.ErrorContains(suite.T(), err, "certificate file not found")
}

func (suite *CertTestSuite) TestLoadEncryptionDisabled() {
	encryption, err := LoadEncryption(config.EncryptionConfig{KeyAlgorithms: []string{"RSA-OAEP"}}, suite.dir)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), encryption.IsPresent())
}

func (suite *CertTestSuite) TestLoadEncryptionWithDecryptionKey() {
	private, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(suite.T(), err)
	der, err := x509.MarshalPKCS8PrivateKey(private)
	require.NoError(suite.T(), err)
	suite.writePEM("enc.key", "PRIVATE KEY", der)

	encryption, err := LoadEncryption(config.EncryptionConfig{
		Enabled:             true,
		KeyAlgorithms:       []string{"RSA-OAEP-256"},
		ContentEncryptions:  []string{"A256GCM"},
		DecryptionKeyFile:   "enc.key",
		DecryptionKeyID:     "enc-1",
		DecryptionAlgorithm: "RSA-OAEP-256",
	}, suite.dir)
	require.NoError(suite.T(), err)

	value, ok := encryption.Get()
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), []string{"RSA-OAEP-256"}, value.KeyAlgorithms)
	assert.Equal(suite.T(), []string{"A256GCM"}, value.ContentEncryptions)
	require.Len(suite.T(), value.DecryptionKeys.Keys, 1)
	assert.Equal(suite.T(), "enc-1", value.DecryptionKeys.Keys[0].KeyID)
	assert.Equal(suite.T(), "enc", value.DecryptionKeys.Keys[0].Use)
}

func (suite *CertTestSuite) TestLoadEncryptionMissingKeyFile() {
	_, err := LoadEncryption(config.EncryptionConfig{Enabled: true, DecryptionKeyFile: "missing.key"}, suite.dir)
	assert.ErrorContains(suite.T(), err, "failed to load decryption key")
}
