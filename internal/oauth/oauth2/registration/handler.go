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

// Package registration provides the OAuth 2.0 dynamic client registration endpoint (RFC 7591).
package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/client/clientrule"
	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/clientauth"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/system/audit"
	"github.com/asgardeo/oidcengine/internal/system/instrumentation"
	"github.com/asgardeo/oidcengine/internal/system/log"
	"github.com/asgardeo/oidcengine/internal/system/utils"
)

const maxRequestBytes = 64 << 10

// ValidatorInterface validates client metadata and returns the canonical form.
type ValidatorInterface interface {
	Handle(clientID string, params databag.DataBag) (databag.DataBag, error)
}

// Config holds the registration options.
type Config struct {
	// HashSecrets stores bcrypt hashes of client_secret_basic and client_secret_post secrets.
	HashSecrets bool
	// NewClientID generates client identifiers. Defaults to UUIDs.
	NewClientID func() string
}

// RegistrationHandler handles client registration requests.
type RegistrationHandler struct {
	validator ValidatorInterface
	clients   client.RepositoryInterface
	cfg       Config
	auditor   audit.AuditorInterface
	metrics   *instrumentation.Metrics
}

// NewRegistrationHandler creates the registration handler. The auditor and metrics may be nil.
func NewRegistrationHandler(validator ValidatorInterface, clients client.RepositoryInterface, cfg Config,
	auditor audit.AuditorInterface, metrics *instrumentation.Metrics) *RegistrationHandler {
	if cfg.NewClientID == nil {
		cfg.NewClientID = utils.GenerateUUID
	}
	return &RegistrationHandler{
		validator: validator,
		clients:   clients,
		cfg:       cfg,
		auditor:   auditor,
		metrics:   metrics,
	}
}

// HandleRegistration registers a client from the JSON metadata in the request body and returns
// the stored metadata with the issued credentials.
func (h *RegistrationHandler) HandleRegistration(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "RegistrationHandler"))

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		utils.WriteJSONError(w, constants.ErrorInvalidRequest,
			"The registration endpoint only accepts POST requests.", http.StatusMethodNotAllowed, nil)
		return
	}
	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil ||
		mediaType != "application/json" {
		utils.WriteJSONError(w, constants.ErrorInvalidRequest, "The request body must be JSON.",
			http.StatusUnsupportedMediaType, nil)
		return
	}

	var params databag.DataBag
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&params); err != nil {
		logger.Debug("Failed to decode client metadata", log.Error(err))
		utils.WriteJSONError(w, constants.ErrorInvalidClientMetadata, "The client metadata must be a JSON object.",
			http.StatusBadRequest, nil)
		return
	}

	clientID := h.cfg.NewClientID()
	validated, err := h.validator.Handle(clientID, params)
	if err != nil {
		var validationErr *clientrule.ValidationError
		if errors.As(err, &validationErr) {
			utils.WriteJSONError(w, validationErr.Code, validationErr.Description, http.StatusBadRequest, nil)
			return
		}
		logger.Error("Failed to validate client metadata", log.Error(err))
		utils.WriteJSONError(w, constants.ErrorServerError, "", http.StatusInternalServerError, nil)
		return
	}

	registered, err := h.store(r.Context(), clientID, validated)
	if err != nil {
		logger.Error("Failed to store client", log.String(log.LoggerKeyClientID, clientID), log.Error(err))
		utils.WriteJSONError(w, constants.ErrorServerError, "", http.StatusInternalServerError, nil)
		return
	}

	clientType := "confidential"
	if registered.IsPublic() {
		clientType = "public"
	}
	logger.Debug("Client registered", log.String(log.LoggerKeyClientID, clientID),
		log.String("clientType", clientType))
	h.metrics.RecordClientRegistered(r.Context(), clientType)
	if h.auditor != nil {
		h.auditor.Record(r.Context(), audit.Event{
			Type:      audit.EventClientRegistered,
			ClientID:  clientID,
			IPAddress: r.RemoteAddr,
			Details: map[string]interface{}{
				"client_type":                clientType,
				"token_endpoint_auth_method": registered.TokenEndpointAuthMethod(),
			},
		})
	}

	response := databag.New(constants.ClientID, clientID).Merge(validated)
	utils.WriteJSON(w, http.StatusCreated, response, true)
}

// store persists the client, hashing its secret when configured. The validated metadata keeps
// the plain secret so it can be returned once.
func (h *RegistrationHandler) store(ctx context.Context, clientID string, validated databag.DataBag) (
	*client.Client, error) {
	stored := validated
	secret := validated.GetString(constants.ClientParamClientSecret)
	method := validated.GetString(constants.ClientParamTokenEndpointAuthMethod)
	if h.cfg.HashSecrets && secret != "" &&
		(method == constants.AuthMethodClientSecretBasic || method == constants.AuthMethodClientSecretPost) {
		hashed, err := clientauth.HashSecret(secret)
		if err != nil {
			return nil, fmt.Errorf("failed to hash client secret: %w", err)
		}
		stored = validated.With(constants.ClientParamClientSecret, hashed)
	}
	return h.clients.Create(ctx, clientID, stored, "")
}
