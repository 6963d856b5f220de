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

// Package jwks publishes the JSON Web Key Set the server signs tokens with.
package jwks

import (
	"errors"
	"net/http"

	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/system/jose"
	"github.com/asgardeo/oidcengine/internal/system/log"
	"github.com/asgardeo/oidcengine/internal/system/utils"
)

// ErrNoSigningKeys is returned when no asymmetric key is configured.
var ErrNoSigningKeys = errors.New("no public signing keys available")

// JWKSServiceInterface defines the interface for JWKS service.
type JWKSServiceInterface interface {
	GetJWKS() (*jose.KeySet, error)
}

// JWKSService derives the public key set from the signing keys.
type JWKSService struct {
	keys []jose.Key
}

// NewJWKSService creates a new instance of JWKSService.
func NewJWKSService(signingKeys ...jose.Key) *JWKSService {
	return &JWKSService{keys: signingKeys}
}

// GetJWKS returns the public part of every asymmetric signing key.
func (s *JWKSService) GetJWKS() (*jose.KeySet, error) {
	keySet := jose.PublicKeySet(s.keys...)
	if len(keySet.Keys) == 0 {
		return nil, ErrNoSigningKeys
	}
	return &keySet, nil
}

// JWKSHandler handles requests for the JSON Web Key Set (JWKS).
type JWKSHandler struct {
	jwksService JWKSServiceInterface
}

// NewJWKSHandler creates a new instance of JWKSHandler.
func NewJWKSHandler(jwksService JWKSServiceInterface) *JWKSHandler {
	return &JWKSHandler{jwksService: jwksService}
}

// HandleJWKSRequest handles the HTTP request to retrieve the JSON Web Key Set (JWKS).
func (h *JWKSHandler) HandleJWKSRequest(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "JWKSHandler"))

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		utils.WriteJSONError(w, constants.ErrorInvalidRequest, "The JWKS endpoint only accepts GET requests.",
			http.StatusMethodNotAllowed, nil)
		return
	}

	keySet, err := h.jwksService.GetJWKS()
	if err != nil {
		logger.Error("Failed to build JWKS response", log.Error(err))
		utils.WriteJSONError(w, constants.ErrorServerError, "", http.StatusInternalServerError, nil)
		return
	}

	utils.WriteJSON(w, http.StatusOK, keySet, false)
	logger.Debug("JWKS response successfully sent")
}
