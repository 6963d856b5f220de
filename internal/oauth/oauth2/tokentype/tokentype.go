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

// Package tokentype implements the access token types the server issues and accepts.
package tokentype

import (
	"context"
	"net/http"
	"slices"

	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
)

// HandlerInterface is an access token type.
type HandlerInterface interface {
	// Name returns the token_type value, e.g. "Bearer".
	Name() string
	// SchemesParameters returns the WWW-Authenticate challenges of the type.
	SchemesParameters() []string
	// FindToken returns the access token presented with this type, or an empty string
	// when the request does not use it.
	FindToken(r *http.Request) (string, interface{}, error)
	// IsValid checks that the stored token can be used with the presented credentials.
	IsValid(ctx context.Context, token *model.AccessToken, credentials interface{}, r *http.Request) bool
	// Prepare returns the type specific parameters stored with a new token.
	Prepare(parameters databag.DataBag) (databag.DataBag, error)
	// ResponseParameters returns the type specific parameters added to the token response.
	ResponseParameters(token *model.AccessToken) databag.DataBag
}

// ManagerInterface resolves token types.
type ManagerInterface interface {
	Has(name string) bool
	Get(name string) (HandlerInterface, bool)
	Default() string
	FindToken(r *http.Request) (HandlerInterface, string, interface{}, error)
	SchemesParameters() []string
}

// Manager holds the registered token types.
type Manager struct {
	handlers    []HandlerInterface
	defaultName string
}

// NewManager creates a manager. The default type must be one of the handlers.
func NewManager(defaultName string, handlers ...HandlerInterface) *Manager {
	return &Manager{handlers: handlers, defaultName: defaultName}
}

// Has reports whether the token type is registered.
func (m *Manager) Has(name string) bool {
	_, ok := m.Get(name)
	return ok
}

// Get returns the handler of the token type.
func (m *Manager) Get(name string) (HandlerInterface, bool) {
	idx := slices.IndexFunc(m.handlers, func(h HandlerInterface) bool { return h.Name() == name })
	if idx < 0 {
		return nil, false
	}
	return m.handlers[idx], true
}

// Default returns the token type used when neither the request nor the client names one.
func (m *Manager) Default() string {
	return m.defaultName
}

// Names returns the registered token types.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.handlers))
	for _, h := range m.handlers {
		names = append(names, h.Name())
	}
	return names
}

// FindToken returns the handler and token presented with the request. A request that uses
// several token types is rejected with invalid_request.
func (m *Manager) FindToken(r *http.Request) (HandlerInterface, string, interface{}, error) {
	var (
		found       HandlerInterface
		token       string
		credentials interface{}
	)
	for _, h := range m.handlers {
		t, creds, err := h.FindToken(r)
		if err != nil {
			return nil, "", nil, err
		}
		if t == "" {
			continue
		}
		if found != nil {
			return nil, "", nil, model.NewInvalidRequestError("Only one token type may be used per request.")
		}
		found, token, credentials = h, t, creds
	}
	return found, token, credentials, nil
}

// SchemesParameters returns the WWW-Authenticate challenges of every registered type.
func (m *Manager) SchemesParameters() []string {
	var challenges []string
	for _, h := range m.handlers {
		challenges = append(challenges, h.SchemesParameters()...)
	}
	return challenges
}
