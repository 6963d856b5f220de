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
	"net/http"

	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/clientauth"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/system/log"
	"github.com/asgardeo/oidcengine/internal/system/utils"
)

// TokenIntrospectionHandler handles OAuth 2.0 token introspection requests.
type TokenIntrospectionHandler struct {
	service    TokenIntrospectionServiceInterface
	clientAuth clientauth.ManagerInterface
}

// NewTokenIntrospectionHandler creates a new token introspection handler. Callers must
// authenticate as a registered client.
func NewTokenIntrospectionHandler(introspectionService TokenIntrospectionServiceInterface,
	clientAuth clientauth.ManagerInterface) *TokenIntrospectionHandler {
	return &TokenIntrospectionHandler{
		service:    introspectionService,
		clientAuth: clientAuth,
	}
}

// HandleIntrospect handles token introspection requests
func (h *TokenIntrospectionHandler) HandleIntrospect(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "TokenIntrospectionHandler"))

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		utils.WriteJSONError(w, constants.ErrorInvalidRequest,
			"The introspection endpoint only accepts POST requests.", http.StatusMethodNotAllowed, nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		utils.WriteJSONError(w, constants.ErrorInvalidRequest, "Failed to decode request body",
			http.StatusBadRequest, nil)
		return
	}

	c, err := h.clientAuth.Authenticate(r.Context(), r)
	if err != nil {
		oauthErr := model.ToOAuthError(err)
		utils.WriteJSONError(w, oauthErr.Code, oauthErr.Description, oauthErr.StatusCode, oauthErr.Headers)
		return
	}

	token := r.PostForm.Get(constants.Token)
	if token == "" {
		utils.WriteJSONError(w, constants.ErrorInvalidRequest, "Token parameter is required",
			http.StatusBadRequest, nil)
		return
	}
	// Unknown hints are ignored and both token kinds are searched.
	tokenTypeHint := r.PostForm.Get(constants.TokenTypeHint)

	response, err := h.service.IntrospectToken(r.Context(), token, tokenTypeHint)
	if err != nil {
		logger.Error("Failed to introspect token", log.String(log.LoggerKeyClientID, c.ID), log.Error(err))
		utils.WriteJSONError(w, constants.ErrorServerError, "Server error while introspecting token",
			http.StatusInternalServerError, nil)
		return
	}

	utils.WriteJSON(w, http.StatusOK, response, true)
}
