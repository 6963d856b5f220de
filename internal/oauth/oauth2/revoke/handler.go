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
	"net/http"

	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/clientauth"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/system/audit"
	"github.com/asgardeo/oidcengine/internal/system/instrumentation"
	"github.com/asgardeo/oidcengine/internal/system/log"
	"github.com/asgardeo/oidcengine/internal/system/utils"
)

// TokenRevocationHandler handles OAuth 2.0 token revocation requests.
type TokenRevocationHandler struct {
	service    TokenRevocationServiceInterface
	clientAuth clientauth.ManagerInterface
	auditor    audit.AuditorInterface
	metrics    *instrumentation.Metrics
}

// NewTokenRevocationHandler creates a new token revocation handler. The auditor and metrics may be nil.
func NewTokenRevocationHandler(service TokenRevocationServiceInterface, clientAuth clientauth.ManagerInterface,
	auditor audit.AuditorInterface, metrics *instrumentation.Metrics) *TokenRevocationHandler {
	return &TokenRevocationHandler{
		service:    service,
		clientAuth: clientAuth,
		auditor:    auditor,
		metrics:    metrics,
	}
}

// HandleRevoke handles token revocation requests.
func (h *TokenRevocationHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "TokenRevocationHandler"))

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		utils.WriteJSONError(w, constants.ErrorInvalidRequest,
			"The revocation endpoint only accepts POST requests.", http.StatusMethodNotAllowed, nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		utils.WriteJSONError(w, constants.ErrorInvalidRequest, "Failed to decode request body",
			http.StatusBadRequest, nil)
		return
	}

	c, err := h.clientAuth.Authenticate(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}

	token := r.PostForm.Get(constants.Token)
	if token == "" {
		utils.WriteJSONError(w, constants.ErrorInvalidRequest, `The "token" parameter is mandatory.`,
			http.StatusBadRequest, nil)
		return
	}

	result, err := h.service.RevokeToken(r.Context(), c, token, r.PostForm.Get(constants.TokenTypeHint))
	if err != nil {
		if oauthErr := model.ToOAuthError(err); oauthErr.Code == constants.ErrorServerError {
			logger.Error("Failed to revoke token", log.String(log.LoggerKeyClientID, c.ID), log.Error(err))
		}
		writeError(w, err)
		return
	}

	if result.Revoked {
		logger.Debug("Token revoked", log.String(log.LoggerKeyClientID, c.ID),
			log.String("tokenType", result.TokenType), log.Int("cascaded", len(result.AccessTokenIDs)))
		h.metrics.RecordTokenRevoked(r.Context(), c.ID)
		if h.auditor != nil {
			h.auditor.Record(r.Context(), audit.Event{
				Type:      audit.EventTokenRevoked,
				ClientID:  c.ID,
				Subject:   result.ResourceOwnerID,
				IPAddress: r.RemoteAddr,
				Details: map[string]interface{}{
					"token_type":       result.TokenType,
					"cascaded_revokes": len(result.AccessTokenIDs),
				},
			})
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(http.StatusOK)
}

func writeError(w http.ResponseWriter, err error) {
	oauthErr := model.ToOAuthError(err)
	utils.WriteJSONError(w, oauthErr.Code, oauthErr.Description, oauthErr.StatusCode, oauthErr.Headers)
}
