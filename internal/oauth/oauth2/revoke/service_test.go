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

package revoke

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/tokenstore"
	"github.com/asgardeo/oidcengine/tests/mocks/oauth/oauth2/modelmock"
)

type TokenRevocationServiceTestSuite struct {
	suite.Suite
	stores  tokenstore.Stores
	service *TokenRevocationService
	client  *client.Client
}

func TestTokenRevocationServiceSuite(t *testing.T) {
	suite.Run(t, new(TokenRevocationServiceTestSuite))
}

func (suite *TokenRevocationServiceTestSuite) SetupTest() {
	ctx := context.Background()
	suite.stores = tokenstore.NewMemoryStores()
	suite.service = NewTokenRevocationService(suite.stores.AccessTokens, suite.stores.RefreshTokens)
	suite.client = &client.Client{ID: "web-app"}

	expiresAt := time.Now().Add(time.Hour)
	for _, id := range []string{"at-1", "at-2", "at-3"} {
		_, err := suite.stores.AccessTokens.Create(ctx, &model.AccessToken{
			ID: id, ClientID: "web-app", ResourceOwnerID: "alice", ExpiresAt: expiresAt})
		require.NoError(suite.T(), err)
	}
	_, err := suite.stores.RefreshTokens.Create(ctx, &model.RefreshToken{
		ID: "rt-1", ClientID: "web-app", ResourceOwnerID: "alice", AccessTokenIDs: []string{"at-1", "at-2", "gone"}})
	require.NoError(suite.T(), err)
	_, err = suite.stores.AccessTokens.Create(ctx, &model.AccessToken{
		ID: "other-at", ClientID: "other-app", ExpiresAt: expiresAt})
	require.NoError(suite.T(), err)
}

func (suite *TokenRevocationServiceTestSuite) accessToken(id string) *model.AccessToken {
	at, err := suite.stores.AccessTokens.Find(context.Background(), id)
	require.NoError(suite.T(), err)
	return at
}

func (suite *TokenRevocationServiceTestSuite) TestRevokeAccessToken() {
	result, err := suite.service.RevokeToken(context.Background(), suite.client, "at-3", "")
	require.NoError(suite.T(), err)

	assert.True(suite.T(), result.Revoked)
	assert.Equal(suite.T(), constants.TokenTypeHintAccessToken, result.TokenType)
	assert.Equal(suite.T(), "alice", result.ResourceOwnerID)
	assert.True(suite.T(), suite.accessToken("at-3").Revoked)
	assert.False(suite.T(), suite.accessToken("at-1").Revoked)
}

func (suite *TokenRevocationServiceTestSuite) TestRevokeRefreshTokenCascades() {
	result, err := suite.service.RevokeToken(context.Background(), suite.client, "rt-1",
		constants.TokenTypeHintRefreshToken)
	require.NoError(suite.T(), err)

	assert.True(suite.T(), result.Revoked)
	assert.Equal(suite.T(), constants.TokenTypeHintRefreshToken, result.TokenType)
	assert.Equal(suite.T(), []string{"at-1", "at-2"}, result.AccessTokenIDs)

	rt, err := suite.stores.RefreshTokens.Find(context.Background(), "rt-1")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), rt.Revoked)
	assert.True(suite.T(), suite.accessToken("at-1").Revoked)
	assert.True(suite.T(), suite.accessToken("at-2").Revoked)
	assert.False(suite.T(), suite.accessToken("at-3").Revoked)
}

func (suite *TokenRevocationServiceTestSuite) TestWrongHintStillFindsToken() {
	result, err := suite.service.RevokeToken(context.Background(), suite.client, "rt-1",
		constants.TokenTypeHintAccessToken)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Revoked)
	assert.Equal(suite.T(), constants.TokenTypeHintRefreshToken, result.TokenType)
}

func (suite *TokenRevocationServiceTestSuite) TestRevokingTwiceSucceeds() {
	for i := 0; i < 2; i++ {
		result, err := suite.service.RevokeToken(context.Background(), suite.client, "at-3", "")
		require.NoError(suite.T(), err)
		assert.True(suite.T(), result.Revoked)
	}
}

func (suite *TokenRevocationServiceTestSuite) TestUnknownTokenIsNotAnError() {
	result, err := suite.service.RevokeToken(context.Background(), suite.client, "unknown", "")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), result.Revoked)
}

func (suite *TokenRevocationServiceTestSuite) TestTokenOfAnotherClientIsLeftUntouched() {
	result, err := suite.service.RevokeToken(context.Background(), suite.client, "other-at", "")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), result.Revoked)
	assert.False(suite.T(), suite.accessToken("other-at").Revoked)
}

func (suite *TokenRevocationServiceTestSuite) TestUnsupportedHint() {
	_, err := suite.service.RevokeToken(context.Background(), suite.client, "at-3", "id_token")

	var oauthErr *model.OAuthError
	require.ErrorAs(suite.T(), err, &oauthErr)
	assert.Equal(suite.T(), constants.ErrorUnsupportedTokenType, oauthErr.Code)
	assert.False(suite.T(), suite.accessToken("at-3").Revoked)
}

func (suite *TokenRevocationServiceTestSuite) TestRepositoryFailure() {
	refreshTokens := &modelmock.RefreshTokenRepositoryInterfaceMock{}
	refreshTokens.On("Find", mock.Anything, "rt-1").Return(nil, errors.New("connection reset"))
	service := NewTokenRevocationService(suite.stores.AccessTokens, refreshTokens)

	_, err := service.RevokeToken(context.Background(), suite.client, "rt-1", constants.TokenTypeHintRefreshToken)
	var oauthErr *model.OAuthError
	require.ErrorAs(suite.T(), err, &oauthErr)
	assert.Equal(suite.T(), constants.ErrorServerError, oauthErr.Code)
	refreshTokens.AssertExpectations(suite.T())
}
