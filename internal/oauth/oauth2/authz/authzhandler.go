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

// Package authz implements the OAuth2 authorization endpoint.
package authz

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/authz/model"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/authz/requestobject"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/authz/responsemode"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/authz/responsetype"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	oauthmodel "github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/oauth/user"
	"github.com/asgardeo/oidcengine/internal/system/audit"
	"github.com/asgardeo/oidcengine/internal/system/instrumentation"
	"github.com/asgardeo/oidcengine/internal/system/log"
	"github.com/asgardeo/oidcengine/internal/system/utils"
)

// Outcomes recorded for authorization requests.
const (
	outcomeGranted    = "granted"
	outcomeRedirected = "error_redirected"
	outcomeRejected   = "error_direct"
)

// CheckerInterface validates the parameters of an authorization request.
type CheckerInterface interface {
	Check(ctx context.Context, auth *model.Authorization) error
}

// AuthorizeHandler serves the authorization endpoint.
type AuthorizeHandler struct {
	clients        client.RepositoryInterface
	users          user.ResolverInterface
	requestObjects requestobject.LoaderInterface
	checkers       CheckerInterface
	responseTypes  *responsetype.Manager
	responseModes  *responsemode.Manager
	auditor        audit.AuditorInterface
	metrics        *instrumentation.Metrics
	now            func() time.Time
}

// NewAuthorizeHandler creates the authorization endpoint handler.
func NewAuthorizeHandler(clients client.RepositoryInterface, users user.ResolverInterface,
	requestObjects requestobject.LoaderInterface, checkers CheckerInterface, responseTypes *responsetype.Manager,
	responseModes *responsemode.Manager, auditor audit.AuditorInterface,
	metrics *instrumentation.Metrics) *AuthorizeHandler {
	return &AuthorizeHandler{
		clients:        clients,
		users:          users,
		requestObjects: requestObjects,
		checkers:       checkers,
		responseTypes:  responseTypes,
		responseModes:  responseModes,
		auditor:        auditor,
		metrics:        metrics,
		now:            time.Now,
	}
}

// HandleAuthorizeRequest processes an authorization request and redirects the user agent
// back to the client.
func (h *AuthorizeHandler) HandleAuthorizeRequest(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "AuthorizeHandler"))

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		utils.WriteJSONError(w, constants.ErrorInvalidRequest, "The request method is not supported.",
			http.StatusMethodNotAllowed, nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		utils.WriteJSONError(w, constants.ErrorInvalidRequest, "The request could not be parsed.",
			http.StatusBadRequest, nil)
		return
	}
	query := r.URL.Query()
	if r.Method == http.MethodPost {
		query = r.PostForm
	}

	c, err := h.findClient(r.Context(), query.Get(constants.ClientID))
	if err != nil {
		h.writeError(w, r, model.NewAuthorizationError(err, nil))
		return
	}

	loaded, err := h.requestObjects.Load(r.Context(), c, query)
	if err != nil {
		logger.Debug("Failed to load the request object", log.String(log.LoggerKeyClientID, c.ID), log.Error(err))
		h.writeError(w, r, model.NewAuthorizationError(err, model.NewAuthorization(c, query)))
		return
	}

	auth := model.NewAuthorization(c, loaded)
	if err := h.checkers.Check(r.Context(), auth); err != nil {
		h.writeError(w, r, model.NewAuthorizationError(err, auth))
		return
	}

	account, err := h.users.Resolve(r)
	if err != nil {
		logger.Error("Failed to resolve the authenticated user", log.Error(err))
		h.writeError(w, r, model.NewAuthorizationError(err, auth))
		return
	}
	if account == nil {
		h.writeError(w, r, model.NewAuthorizationError(
			oauthmodel.NewLoginRequiredError("The user must be authenticated."), auth))
		return
	}
	auth.UserAccount = account
	auth.SetData(model.DataAuthTime, h.now().Unix())
	// Consent is granted implicitly for every client.
	auth.Authorized = true

	chain, ok := h.responseTypes.Chain(auth.ResponseTypes)
	if !ok {
		h.writeError(w, r, model.NewAuthorizationError(
			oauthmodel.NewUnsupportedResponseTypeError("The response type is not supported."), auth))
		return
	}
	if err := chain.Process(r.Context(), auth); err != nil {
		h.writeError(w, r, model.NewAuthorizationError(err, auth))
		return
	}
	if state := auth.QueryParameter(constants.State); state != "" {
		auth.SetResponseParameter(constants.State, state)
	}

	h.recordIssued(r, auth)
	if err := h.respond(w, auth, auth.ResponseParameters); err != nil {
		logger.Error("Failed to write the authorization response", log.Error(err))
		utils.WriteJSONError(w, constants.ErrorServerError, "The server encountered an unexpected condition.",
			http.StatusInternalServerError, nil)
		return
	}
	h.metrics.RecordAuthorization(r.Context(), c.ID, strings.Join(auth.ResponseTypes, " "), outcomeGranted)
}

func (h *AuthorizeHandler) findClient(ctx context.Context, clientID string) (*client.Client, error) {
	if clientID == "" {
		return nil, oauthmodel.NewInvalidRequestError(`The "client_id" parameter is mandatory.`)
	}
	c, err := h.clients.Find(ctx, clientID)
	if errors.Is(err, client.ErrClientNotFound) || (err == nil && c.Deleted) {
		return nil, oauthmodel.NewInvalidRequestError("The client is unknown.")
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (h *AuthorizeHandler) writeError(w http.ResponseWriter, r *http.Request, authzErr *model.AuthorizationError) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "AuthorizeHandler"))
	oauthErr := authzErr.Err
	if oauthErr.Code == constants.ErrorServerError {
		logger.Error("Authorization request failed", log.Error(oauthErr.Cause))
	}

	auth := authzErr.Authorization
	clientID := ""
	responseType := ""
	if auth != nil {
		clientID = auth.Client.ID
		responseType = strings.Join(auth.ResponseTypes, " ")
	}
	if h.auditor != nil && oauthErr.Code == constants.ErrorAccessDenied {
		h.auditor.Record(r.Context(), audit.Event{Type: audit.EventAuthorizationDenied, ClientID: clientID,
			IPAddress: r.RemoteAddr})
	}

	if authzErr.CanRedirect() {
		params := databag.New(constants.Error, oauthErr.Code)
		if oauthErr.Description != "" {
			params = params.With(constants.ErrorDescription, oauthErr.Description)
		}
		if state := auth.QueryParameter(constants.State); state != "" {
			params = params.With(constants.State, state)
		}
		if err := h.respond(w, auth, params); err == nil {
			h.metrics.RecordAuthorization(r.Context(), clientID, responseType, outcomeRedirected)
			return
		}
		logger.Error("Failed to redirect the authorization error", log.String(log.LoggerKeyClientID, clientID))
	}

	h.metrics.RecordAuthorization(r.Context(), clientID, responseType, outcomeRejected)
	utils.WriteJSONError(w, oauthErr.Code, oauthErr.Description, oauthErr.StatusCode, oauthErr.Headers)
}

func (h *AuthorizeHandler) respond(w http.ResponseWriter, auth *model.Authorization, params databag.DataBag) error {
	mode, ok := h.responseModes.Get(auth.ResponseMode)
	if !ok {
		return errors.New("response mode is not registered: " + auth.ResponseMode)
	}
	for name, value := range auth.ResponseHeaders {
		w.Header().Set(name, value)
	}
	return mode.Respond(w, auth.RedirectURI, params)
}

func (h *AuthorizeHandler) recordIssued(r *http.Request, auth *model.Authorization) {
	if h.auditor == nil {
		return
	}
	if codeID := auth.Data.GetString(model.DataAuthorizationCodeID); codeID != "" {
		h.auditor.Record(r.Context(), audit.Event{Type: audit.EventCodeIssued, ClientID: auth.Client.ID,
			Subject: auth.UserAccount.ID, IPAddress: r.RemoteAddr})
	}
	if tokenID := auth.Data.GetString(model.DataAccessTokenID); tokenID != "" {
		h.auditor.Record(r.Context(), audit.Event{Type: audit.EventTokenIssued, ClientID: auth.Client.ID,
			Subject: auth.UserAccount.ID, IPAddress: r.RemoteAddr,
			Details: map[string]interface{}{"response_type": strings.Join(auth.ResponseTypes, " ")}})
	}
}
