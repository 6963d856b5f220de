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

package tokenstore

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
)

func newTestCode() *model.AuthorizationCode {
	return &model.AuthorizationCode{
		ClientID:        "client-1",
		UserAccountID:   "alice",
		QueryParameters: url.Values{"scope": {"openid"}, "code_challenge": {"abc"}},
		RedirectURI:     "https://rp.example.com/cb",
		ExpiresAt:       time.Now().Add(time.Minute),
		Parameters:      databag.New("scope", "openid"),
	}
}

// storeContract runs the behavior every backend must share.
func storeContract(t *testing.T, stores Stores) {
	ctx := context.Background()

	code, err := stores.Codes.Create(ctx, newTestCode())
	require.NoError(t, err)
	require.NotEmpty(t, code.ID)

	found, err := stores.Codes.Find(ctx, code.ID)
	require.NoError(t, err)
	assert.Equal(t, "abc", found.QueryParameter("code_challenge"))
	assert.Equal(t, "openid", found.Parameters.GetString("scope"))
	assert.False(t, found.Used)

	require.NoError(t, stores.Codes.MarkUsed(ctx, code.ID))
	assert.ErrorIs(t, stores.Codes.MarkUsed(ctx, code.ID), model.ErrCodeAlreadyUsed)
	found, err = stores.Codes.Find(ctx, code.ID)
	require.NoError(t, err)
	assert.True(t, found.Used)

	assert.ErrorIs(t, stores.Codes.MarkUsed(ctx, "missing"), model.ErrTokenNotFound)
	_, err = stores.Codes.Find(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrTokenNotFound)

	access, err := stores.AccessTokens.Create(ctx, &model.AccessToken{
		ClientID:        "client-1",
		ResourceOwnerID: "alice",
		IssuedAt:        time.Now(),
		ExpiresAt:       time.Now().Add(time.Hour),
		Parameters:      databag.New("token_type", "Bearer"),
	})
	require.NoError(t, err)

	refresh, err := stores.RefreshTokens.Create(ctx, &model.RefreshToken{
		ClientID:        "client-1",
		ResourceOwnerID: "alice",
		IssuedAt:        time.Now(),
		AccessTokenIDs:  []string{access.ID},
	})
	require.NoError(t, err)

	refresh.Revoked = true
	require.NoError(t, stores.RefreshTokens.Save(ctx, refresh))
	storedRefresh, err := stores.RefreshTokens.Find(ctx, refresh.ID)
	require.NoError(t, err)
	assert.True(t, storedRefresh.Revoked)
	assert.Equal(t, []string{access.ID}, storedRefresh.AccessTokenIDs)

	storedAccess, err := stores.AccessTokens.Find(ctx, access.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", storedAccess.TokenType())

	err = stores.AccessTokens.Save(ctx, &model.AccessToken{ID: "missing"})
	assert.ErrorIs(t, err, model.ErrTokenNotFound)
}

// concurrentRedemption checks that exactly one of many concurrent MarkUsed calls succeeds.
func concurrentRedemption(t *testing.T, codes model.AuthorizationCodeRepositoryInterface) {
	code, err := codes.Create(context.Background(), newTestCode())
	require.NoError(t, err)

	var successes int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if codes.MarkUsed(context.Background(), code.ID) == nil {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), successes)
}

type MemoryStoreTestSuite struct {
	suite.Suite
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreTestSuite))
}

func (suite *MemoryStoreTestSuite) TestContract() {
	storeContract(suite.T(), NewMemoryStores())
}

func (suite *MemoryStoreTestSuite) TestConcurrentRedemption() {
	concurrentRedemption(suite.T(), NewMemoryAuthorizationCodeStore())
}

func (suite *MemoryStoreTestSuite) TestStoredCopyIsIndependent() {
	store := NewMemoryAccessTokenStore()
	token, err := store.Create(context.Background(), &model.AccessToken{ClientID: "client-1"})
	require.NoError(suite.T(), err)

	token.Revoked = true
	stored, err := store.Find(context.Background(), token.ID)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), stored.Revoked)
}

type RedisStoreTestSuite struct {
	suite.Suite
	server *miniredis.Miniredis
	rdb    *redis.Client
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreTestSuite))
}

func (suite *RedisStoreTestSuite) SetupTest() {
	suite.server = miniredis.RunT(suite.T())
	suite.rdb = redis.NewClient(&redis.Options{Addr: suite.server.Addr()})
}

func (suite *RedisStoreTestSuite) TearDownTest() {
	_ = suite.rdb.Close()
}

func (suite *RedisStoreTestSuite) TestContract() {
	storeContract(suite.T(), NewRedisStores(suite.rdb, "oidc"))
}

func (suite *RedisStoreTestSuite) TestConcurrentRedemption() {
	concurrentRedemption(suite.T(), NewRedisAuthorizationCodeStore(suite.rdb, "oidc"))
}

func (suite *RedisStoreTestSuite) TestCodeExpiresWithTTL() {
	store := NewRedisAuthorizationCodeStore(suite.rdb, "oidc")
	code, err := store.Create(context.Background(), newTestCode())
	require.NoError(suite.T(), err)

	key := "oidc:code:" + code.ID
	assert.True(suite.T(), suite.server.Exists(key))
	assert.Greater(suite.T(), suite.server.TTL(key), time.Duration(0))

	require.NoError(suite.T(), store.MarkUsed(context.Background(), code.ID))
	assert.Greater(suite.T(), suite.server.TTL(key+":used"), time.Duration(0))

	suite.server.FastForward(2 * time.Minute)
	_, err = store.Find(context.Background(), code.ID)
	assert.ErrorIs(suite.T(), err, model.ErrTokenNotFound)
}

func (suite *RedisStoreTestSuite) TestRefreshTokenWithoutExpiryIsPersistent() {
	store := NewRedisRefreshTokenStore(suite.rdb, "oidc")
	token, err := store.Create(context.Background(), &model.RefreshToken{ClientID: "client-1"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), time.Duration(0), suite.server.TTL("oidc:refresh_token:"+token.ID))
}
