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
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/asgardeo/oidcengine/internal/system/cache"
	syshttp "github.com/asgardeo/oidcengine/internal/system/http"
)

type JoseTestSuite struct {
	suite.Suite
	provider   ProviderInterface
	signingKey Key
}

func TestJoseSuite(t *testing.T) {
	suite.Run(t, new(JoseTestSuite))
}

func (suite *JoseTestSuite) SetupSuite() {
	suite.provider = NewProvider()
	key, err := GenerateSigningKey("RS256", "server-key")
	require.NoError(suite.T(), err)
	suite.signingKey = key
}

func (suite *JoseTestSuite) TestSignAndVerifyRSA() {
	token, err := suite.provider.Sign(map[string]interface{}{"sub": "alice", "iss": "https://op"},
		suite.signingKey, map[string]interface{}{"typ": "JWT"})
	require.NoError(suite.T(), err)

	publicSet := PublicKeySet(suite.signingKey)
	claims, err := suite.provider.Verify(token, &publicSet, []string{"RS256"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "alice", claims["sub"])

	_, header, err := ParseUnverified(token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "server-key", header["kid"])
	assert.Equal(suite.T(), "JWT", header["typ"])
}

func (suite *JoseTestSuite) TestVerifyRejectsDisallowedAlgorithm() {
	token, err := suite.provider.Sign(map[string]interface{}{"sub": "alice"}, suite.signingKey, nil)
	require.NoError(suite.T(), err)

	publicSet := PublicKeySet(suite.signingKey)
	_, err = suite.provider.Verify(token, &publicSet, []string{"ES256"})
	assert.ErrorIs(suite.T(), err, ErrInvalidSignature)
}

func (suite *JoseTestSuite) TestVerifyWithWrongKey() {
	token, err := suite.provider.Sign(map[string]interface{}{"sub": "alice"}, suite.signingKey, nil)
	require.NoError(suite.T(), err)

	other, err := GenerateSigningKey("RS256", "server-key")
	require.NoError(suite.T(), err)
	otherSet := PublicKeySet(other)
	_, err = suite.provider.Verify(token, &otherSet, []string{"RS256"})
	assert.ErrorIs(suite.T(), err, ErrInvalidSignature)
}

func (suite *JoseTestSuite) TestVerifyUnknownKeyID() {
	token, err := suite.provider.Sign(map[string]interface{}{"sub": "alice"}, suite.signingKey, nil)
	require.NoError(suite.T(), err)

	other, err := GenerateSigningKey("RS256", "another-key")
	require.NoError(suite.T(), err)
	otherSet := PublicKeySet(other)
	_, err = suite.provider.Verify(token, &otherSet, []string{"RS256"})
	assert.ErrorIs(suite.T(), err, ErrNoMatchingKey)
}

func (suite *JoseTestSuite) TestSignAndVerifyHMAC() {
	key := SymmetricKey("a-shared-secret-that-is-long-enough-for-hs256", "HS256")
	token, err := suite.provider.Sign(map[string]interface{}{"iss": "client"}, key, nil)
	require.NoError(suite.T(), err)

	claims, err := suite.provider.Verify(token, &KeySet{Keys: []Key{key}}, []string{"HS256"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "client", claims["iss"])

	wrong := SymmetricKey("another-secret", "HS256")
	_, err = suite.provider.Verify(token, &KeySet{Keys: []Key{wrong}}, []string{"HS256"})
	assert.Error(suite.T(), err)
}

func (suite *JoseTestSuite) TestUnsignedTokens() {
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"iss": "client"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(suite.T(), err)

	_, err = suite.provider.Verify(unsigned, nil, []string{"RS256"})
	assert.Error(suite.T(), err)

	claims, err := suite.provider.Verify(unsigned, nil, []string{"RS256", "none"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "client", claims["iss"])

	_, err = suite.provider.Sign(map[string]interface{}{}, Key{Algorithm: "none"}, nil)
	assert.ErrorIs(suite.T(), err, ErrUnsupportedAlgorithm)
}

func (suite *JoseTestSuite) TestMalformedToken() {
	_, err := suite.provider.Verify("not-a-token", nil, []string{"RS256"})
	assert.ErrorIs(suite.T(), err, ErrMalformedToken)
}

func (suite *JoseTestSuite) TestEncryptAndDecrypt() {
	encryptionKey, err := GenerateSigningKey("RS256", "enc-key")
	require.NoError(suite.T(), err)
	encryptionKey.Use = "enc"

	jwe, err := suite.provider.Encrypt([]byte("payload"), encryptionKey, "RSA-OAEP-256", "A256GCM")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), IsEncrypted(jwe))

	plaintext, err := suite.provider.Decrypt(jwe, &KeySet{Keys: []Key{encryptionKey}},
		[]string{"RSA-OAEP-256"}, []string{"A256GCM"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "payload", string(plaintext))

	_, err = suite.provider.Decrypt(jwe, &KeySet{Keys: []Key{encryptionKey}},
		[]string{"RSA-OAEP"}, []string{"A256GCM"})
	assert.Error(suite.T(), err)

	_, err = suite.provider.Decrypt(jwe, &KeySet{}, []string{"RSA-OAEP-256"}, []string{"A256GCM"})
	assert.ErrorIs(suite.T(), err, ErrNoMatchingKey)
}

func (suite *JoseTestSuite) TestTokenHash() {
	sum := sha256.Sum256([]byte("access-token"))
	expected := base64.RawURLEncoding.EncodeToString(sum[:16])
	assert.Equal(suite.T(), expected, TokenHash("access-token", "RS256"))
	assert.Len(suite.T(), TokenHash("access-token", "RS512"), 43)
}

func (suite *JoseTestSuite) TestParseKeySet() {
	publicSet := PublicKeySet(suite.signingKey)
	raw, err := json.Marshal(publicSet)
	require.NoError(suite.T(), err)

	parsed, err := ParseKeySet(raw)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), parsed.Keys, 1)

	var decoded map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(raw, &decoded))
	parsed, err = ParseKeySet(decoded)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "server-key", parsed.Keys[0].KeyID)

	_, err = ParseKeySet(`{"keys":[]}`)
	assert.ErrorIs(suite.T(), err, ErrInvalidKeySet)
	_, err = ParseKeySet("{")
	assert.ErrorIs(suite.T(), err, ErrInvalidKeySet)
}

func (suite *JoseTestSuite) TestResolverCachesRemoteKeySets() {
	publicSet := PublicKeySet(suite.signingKey)
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_ = json.NewEncoder(w).Encode(publicSet)
	}))
	defer server.Close()

	resolver := NewKeySetResolver(syshttp.NewHTTPClientWithTimeout(time.Second),
		cache.NewCache[*KeySet]("jwks", 10, time.Minute))

	for i := 0; i < 2; i++ {
		keySet, err := resolver.Resolve(context.Background(), nil, server.URL)
		require.NoError(suite.T(), err)
		assert.Len(suite.T(), keySet.Keys, 1)
	}
	assert.Equal(suite.T(), int32(1), atomic.LoadInt32(&hits))

	_, err := resolver.Resolve(context.Background(), nil, "")
	assert.ErrorIs(suite.T(), err, ErrNoKeySet)
}

func (suite *JoseTestSuite) TestOption() {
	none := None[Encryption]()
	_, ok := none.Get()
	assert.False(suite.T(), ok)

	some := Some(Encryption{KeyAlgorithms: []string{"RSA-OAEP-256"}})
	value, ok := some.Get()
	assert.True(suite.T(), ok)
	assert.True(suite.T(), some.IsPresent())
	assert.Equal(suite.T(), []string{"RSA-OAEP-256"}, value.KeyAlgorithms)
}
