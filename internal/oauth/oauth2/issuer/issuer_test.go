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

package issuer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/tokenstore"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/tokentype"
)

type IssuerTestSuite struct {
	suite.Suite
	stores tokenstore.Stores
	issuer *Issuer
}

func TestIssuerSuite(t *testing.T) {
	suite.Run(t, new(IssuerTestSuite))
}

func (suite *IssuerTestSuite) SetupTest() {
	suite.stores = tokenstore.NewMemoryStores()
	tokenTypes := tokentype.NewManager(constants.TokenTypeBearer,
		tokentype.NewBearerHandler("", nil), tokentype.NewMACHandler("", 10*time.Second))
	suite.issuer = NewIssuer(suite.stores.AccessTokens, suite.stores.RefreshTokens, tokenTypes,
		time.Hour, 0)
}

func (suite *IssuerTestSuite) TestIssueBearerToken() {
	token, err := suite.issuer.IssueAccessToken(context.Background(), TokenRequest{
		ClientID:        "client-1",
		ResourceOwnerID: "alice",
		Scopes:          []string{"openid", "profile"},
		Metadata:        databag.New("k", "v"),
	})
	require.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), token.ID)
	assert.Equal(suite.T(), constants.TokenTypeBearer, token.TokenType())
	assert.Equal(suite.T(), "openid profile", token.Scope())

	stored, err := suite.stores.AccessTokens.Find(context.Background(), token.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "alice", stored.ResourceOwnerID)

	response := suite.issuer.AccessTokenResponse(token)
	assert.Equal(suite.T(), token.ID, response.GetString(constants.AccessToken))
	expiresIn, _ := response.GetInt64(constants.ExpiresIn)
	assert.Equal(suite.T(), int64(3600), expiresIn)
}

func (suite *IssuerTestSuite) TestIssueMACToken() {
	token, err := suite.issuer.IssueAccessToken(context.Background(), TokenRequest{
		ClientID:  "client-1",
		TokenType: constants.TokenTypeMAC,
	})
	require.NoError(suite.T(), err)
	response := suite.issuer.AccessTokenResponse(token)
	assert.Equal(suite.T(), constants.TokenTypeMAC, response.GetString(constants.TokenType))
	assert.NotEmpty(suite.T(), response.GetString(tokentype.ParamMACKey))

	_, err = suite.issuer.IssueAccessToken(context.Background(), TokenRequest{TokenType: "DPoP"})
	assert.Error(suite.T(), err)
}

func (suite *IssuerTestSuite) TestIssueRefreshToken() {
	token, err := suite.issuer.IssueRefreshToken(context.Background(), TokenRequest{
		ClientID: "client-1",
		Scopes:   []string{"offline_access"},
	}, "access-1")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), token.ExpiresAt.IsZero())
	assert.Equal(suite.T(), []string{"access-1"}, token.AccessTokenIDs)
	assert.Equal(suite.T(), "offline_access", token.Scope())
}
