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

package granthandlers

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
)

func TestClientCredentialsGrant(t *testing.T) {
	handler := NewClientCredentialsGrantHandler()
	assert.Equal(t, constants.GrantTypeClientCredentials, handler.GrantType())
	assert.NoError(t, handler.CheckRequest(url.Values{}))

	confidential := &client.Client{ID: "service", Parameters: databag.New(
		constants.ClientParamTokenEndpointAuthMethod, constants.AuthMethodClientSecretBasic)}
	data, err := handler.Grant(context.Background(), confidential, url.Values{constants.Scope: {"read write"}})
	require.NoError(t, err)
	assert.Equal(t, "service", data.ResourceOwnerID)
	assert.Equal(t, "read write", data.Parameters.GetString(constants.Scope))
	assert.False(t, data.ResourceOwnerIsUser())
	assert.False(t, data.RefreshTokenAllowed)
}

func TestClientCredentialsGrantRejectsPublicClients(t *testing.T) {
	public := &client.Client{ID: "spa", Parameters: databag.New(
		constants.ClientParamTokenEndpointAuthMethod, constants.AuthMethodNone)}

	_, err := NewClientCredentialsGrantHandler().Grant(context.Background(), public, url.Values{})
	assert.Equal(t, constants.ErrorUnauthorizedClient, model.ToOAuthError(err).Code)
}
