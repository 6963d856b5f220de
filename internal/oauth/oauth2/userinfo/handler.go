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

// Package userinfo provides the OpenID Connect userinfo endpoint.
package userinfo

import (
	"errors"
	"net/http"

	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/resource"
	"github.com/asgardeo/oidcengine/internal/oauth/user"
	"github.com/asgardeo/oidcengine/internal/system/log"
	"github.com/asgardeo/oidcengine/internal/system/utils"
)

// UserInfoHandler returns the claims of the user an access token was issued for.
// It must be mounted behind the resource middleware requiring the openid scope.
type UserInfoHandler struct {
	users user.RepositoryInterface
}

// NewUserInfoHandler creates the userinfo handler.
func NewUserInfoHandler(users user.RepositoryInterface) *UserInfoHandler {
	return &UserInfoHandler{users: users}
}

// ServeHTTP implements http.Handler.
func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "UserInfoHandler"))

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		utils.WriteJSONError(w, constants.ErrorInvalidRequest,
			"The userinfo endpoint only accepts GET and POST requests.", http.StatusMethodNotAllowed, nil)
		return
	}

	token, ok := resource.AccessTokenFromContext(r.Context())
	if !ok {
		logger.Error("Userinfo request reached the handler without an access token")
		utils.WriteJSONError(w, constants.ErrorServerError, "", http.StatusInternalServerError, nil)
		return
	}
	if !token.Metadata.GetBool(model.MetadataResourceOwnerIsUser) {
		writeInvalidToken(w, "The access token was not issued to a user.")
		return
	}

	account, err := h.users.Find(r.Context(), token.ResourceOwnerID)
	if errors.Is(err, user.ErrUserNotFound) {
		writeInvalidToken(w, "The user of the access token no longer exists.")
		return
	}
	if err != nil {
		logger.Error("Failed to find user", log.Error(err))
		utils.WriteJSONError(w, constants.ErrorServerError, "", http.StatusInternalServerError, nil)
		return
	}

	claims := account.ClaimsForScopes(utils.SplitSpaceDelimited(token.Scope()))
	claims["sub"] = account.ID
	utils.WriteJSON(w, http.StatusOK, claims, true)
}

func writeInvalidToken(w http.ResponseWriter, description string) {
	utils.WriteJSONError(w, constants.ErrorInvalidToken, description, http.StatusUnauthorized,
		map[string]string{"WWW-Authenticate": `Bearer error="invalid_token"`})
}
