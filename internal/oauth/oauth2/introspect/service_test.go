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

package introspect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/tokenstore"
	"github.com/asgardeo/oidcengine/tests/mocks/oauth/oauth2/modelmock"
)

const testIssuer = "https://op.example.com"

type TokenIntrospectionServiceTestSuite struct {
	suite.Suite
	stores  tokenstore.Stores
	service *TokenIntrospectionService
	now     time.Time
}

func TestTokenIntrospectionServiceSuite(t *testing.T) {
	suite.Run(t, new(TokenIntrospectionServiceTestSuite))
}

func (suite *TokenIntrospectionServiceTestSuite) SetupTest() {
	suite.now = time.Now()
	suite.stores = tokenstore.NewMemoryStores()
	suite.service = NewTokenIntrospectionService(suite.stores.AccessTokens, suite.stores.RefreshTokens, testIssuer)

	ctx := context.Background()
	_, err := suite.stores.AccessTokens.Create(ctx, &model.AccessToken{
		ID:              "at-1",
		ClientID:        "web-app",
		ResourceOwnerID: "alice",
		IssuedAt:        suite.now.Add(-time.Minute),
		ExpiresAt:       suite.now.Add(time.Hour),
		Parameters: databag.New(constants.Scope, "openid read",
			constants.TokenType, constants.TokenTypeBearer),
		Metadata: databag.New(model.MetadataResourceOwnerIsUser, true),
	})
	require.NoError(suite.T(), err)
	_, err = suite.stores.AccessTokens.Create(ctx, &model.AccessToken{
		ID:        "at-expired",
		ClientID:  "web-app",
		IssuedAt:  suite.now.Add(-2 * time.Hour),
		ExpiresAt: suite.now.Add(-time.Hour),
	})
	require.NoError(suite.T(), err)
	_, err = suite.stores.RefreshTokens.Create(ctx, &model.RefreshToken{
		ID:              "rt-1",
		ClientID:        "web-app",
		ResourceOwnerID: "service",
		IssuedAt:        suite.now.Add(-time.Minute),
		Parameters:      databag.New(constants.Scope, "read"),
	})
	require.NoError(suite.T(), err)
	_, err = suite.stores.RefreshTokens.Create(ctx, &model.RefreshToken{
		ID:       "rt-revoked",
		ClientID: "web-app",
		IssuedAt: suite.now.Add(-time.Minute),
		Revoked:  true,
	})
	require.NoError(suite.T(), err)
}

func (suite *TokenIntrospectionServiceTestSuite) TestActiveAccessToken() {
	response, err := suite.service.IntrospectToken(context.Background(), "at-1", "")
	require.NoError(suite.T(), err)

	assert.True(suite.T(), response.Active)
	assert.Equal(suite.T(), "openid read", response.Scope)
	assert.Equal(suite.T(), "web-app", response.ClientID)
	assert.Equal(suite.T(), "alice", response.Username)
	assert.Equal(suite.T(), "alice", response.Sub)
	assert.Equal(suite.T(), constants.TokenTypeBearer, response.TokenType)
	assert.Equal(suite.T(), testIssuer, response.Iss)
	assert.Equal(suite.T(), "at-1", response.Jti)
	assert.Equal(suite.T(), suite.now.Add(time.Hour).Unix(), response.Exp)
}

func (suite *TokenIntrospectionServiceTestSuite) TestActiveRefreshToken() {
	response, err := suite.service.IntrospectToken(context.Background(), "rt-1",
		constants.TokenTypeHintRefreshToken)
	require.NoError(suite.T(), err)

	assert.True(suite.T(), response.Active)
	assert.Equal(suite.T(), "read", response.Scope)
	assert.Empty(suite.T(), response.Username)
	assert.Empty(suite.T(), response.TokenType)
	assert.Zero(suite.T(), response.Exp)
}

func (suite *TokenIntrospectionServiceTestSuite) TestHintOnlyChangesLookupOrder() {
	response, err := suite.service.IntrospectToken(context.Background(), "rt-1",
		constants.TokenTypeHintAccessToken)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), response.Active)

	response, err = suite.service.IntrospectToken(context.Background(), "at-1", "unknown_hint")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), response.Active)
}

func (suite *TokenIntrospectionServiceTestSuite) TestInactiveTokens() {
	for _, token := range []string{"at-expired", "rt-revoked", "does-not-exist"} {
		response, err := suite.service.IntrospectToken(context.Background(), token, "")
		require.NoError(suite.T(), err, token)
		assert.Equal(suite.T(), &IntrospectResponse{Active: false}, response, token)
	}
}

func (suite *TokenIntrospectionServiceTestSuite) TestEmptyToken() {
	_, err := suite.service.IntrospectToken(context.Background(), "", "")
	assert.Error(suite.T(), err)
}

func (suite *TokenIntrospectionServiceTestSuite) TestRepositoryFailure() {
	accessTokens := &modelmock.AccessTokenRepositoryInterfaceMock{}
	accessTokens.On("Find", mock.Anything, "at-1").Return(nil, errors.New("connection refused"))
	service := NewTokenIntrospectionService(accessTokens, suite.stores.RefreshTokens, testIssuer)

	_, err := service.IntrospectToken(context.Background(), "at-1", "")
	assert.ErrorContains(suite.T(), err, "connection refused")
	accessTokens.AssertExpectations(suite.T())
}
