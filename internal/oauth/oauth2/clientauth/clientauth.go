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

// Package clientauth authenticates OAuth clients at the token, introspection and revocation endpoints.
package clientauth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/system/log"
)

// MethodInterface is a client authentication method.
type MethodInterface interface {
	// SupportedMethods returns the token_endpoint_auth_method values handled by the method.
	SupportedMethods() []string
	// SchemesParameters returns the WWW-Authenticate challenges advertised by the method.
	SchemesParameters() []string
	// FindClientID returns the client id the request claims with this method, or an empty
	// string when the request does not use the method.
	FindClientID(r *http.Request) (string, interface{}, error)
	// IsClientAuthenticated verifies the credentials found for the client.
	IsClientAuthenticated(ctx context.Context, c *client.Client, credentials interface{}, r *http.Request) bool
}

// ManagerInterface authenticates the client of a request.
type ManagerInterface interface {
	Authenticate(ctx context.Context, r *http.Request) (*client.Client, error)
	Has(method string) bool
	SupportedMethods() []string
}

// Manager tries every registered method and authenticates the client with the single one that applies.
type Manager struct {
	methods []MethodInterface
	clients client.RepositoryInterface
	now     func() time.Time
}

var secretBasedMethods = []string{
	constants.AuthMethodClientSecretBasic,
	constants.AuthMethodClientSecretPost,
	constants.AuthMethodClientSecretJWT,
}

// NewManager creates a manager for the given methods.
func NewManager(clients client.RepositoryInterface, methods ...MethodInterface) *Manager {
	return &Manager{methods: methods, clients: clients, now: time.Now}
}

// Has reports whether a method handles the token_endpoint_auth_method value.
func (m *Manager) Has(method string) bool {
	return slices.Contains(m.SupportedMethods(), method)
}

// SupportedMethods returns every supported token_endpoint_auth_method value.
func (m *Manager) SupportedMethods() []string {
	var supported []string
	for _, method := range m.methods {
		supported = append(supported, method.SupportedMethods()...)
	}
	return supported
}

// Authenticate authenticates the client of the request. Failures are returned as *model.OAuthError.
func (m *Manager) Authenticate(ctx context.Context, r *http.Request) (*client.Client, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "ClientAuthManager"))

	if err := r.ParseForm(); err != nil {
		return nil, model.NewInvalidRequestError("Failed to parse request body.")
	}

	var (
		method      MethodInterface
		clientID    string
		credentials interface{}
	)
	for _, candidate := range m.methods {
		id, creds, err := candidate.FindClientID(r)
		if err != nil {
			return nil, m.withChallenges(model.ToOAuthError(err))
		}
		if id == "" {
			continue
		}
		if method != nil {
			return nil, model.NewInvalidRequestError(
				"Only one authentication method may be used to authenticate the client.")
		}
		method, clientID, credentials = candidate, id, creds
	}
	if method == nil {
		return nil, m.withChallenges(model.NewInvalidClientError("Client authentication is required."))
	}

	logger = logger.With(log.String(log.LoggerKeyClientID, clientID))
	c, err := m.clients.Find(ctx, clientID)
	if err != nil {
		if errors.Is(err, client.ErrClientNotFound) {
			logger.Debug("Client not found")
			return nil, m.invalidClient()
		}
		return nil, model.NewServerError(err)
	}
	if c.Deleted {
		logger.Debug("Client is deleted")
		return nil, m.invalidClient()
	}

	authMethod := c.TokenEndpointAuthMethod()
	if !slices.Contains(method.SupportedMethods(), authMethod) {
		logger.Debug("Client used an authentication method it did not register",
			log.String("registeredMethod", authMethod))
		return nil, m.invalidClient()
	}
	if slices.Contains(secretBasedMethods, authMethod) && c.IsSecretExpired(m.now()) {
		logger.Debug("Client secret expired")
		return nil, m.invalidClient()
	}
	if !method.IsClientAuthenticated(ctx, c, credentials, r) {
		logger.Debug("Client credentials rejected", log.String("method", authMethod))
		return nil, m.invalidClient()
	}
	return c, nil
}

func (m *Manager) invalidClient() *model.OAuthError {
	return m.withChallenges(model.NewInvalidClientError("Client authentication failed."))
}

func (m *Manager) withChallenges(err *model.OAuthError) *model.OAuthError {
	if err.StatusCode != http.StatusUnauthorized {
		return err
	}
	var challenges []string
	for _, method := range m.methods {
		challenges = append(challenges, method.SchemesParameters()...)
	}
	if len(challenges) == 0 {
		return err
	}
	return err.WithHeader("WWW-Authenticate", strings.Join(challenges, ", "))
}
