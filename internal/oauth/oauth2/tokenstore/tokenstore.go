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

// Package tokenstore provides the authorization code, access token and refresh token
// repositories backed by memory, Redis and SQL.
package tokenstore

import (
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/system/utils"
)

const tokenIDBytes = 32

// Stores groups the token repositories of one storage backend.
type Stores struct {
	Codes         model.AuthorizationCodeRepositoryInterface
	AccessTokens  model.AccessTokenRepositoryInterface
	RefreshTokens model.RefreshTokenRepositoryInterface
}

// assignID sets a fresh opaque identifier when id is empty.
func assignID(id *string) error {
	if *id != "" {
		return nil
	}
	generated, err := utils.GenerateSecureToken(tokenIDBytes)
	if err != nil {
		return err
	}
	*id = generated
	return nil
}
