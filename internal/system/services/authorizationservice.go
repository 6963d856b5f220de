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

package services

import (
	"net/http"

	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/authz"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
)

// AuthorizationService defines the service for handling OAuth2 authorization requests.
type AuthorizationService struct {
	authHandler *authz.AuthorizeHandler
	opts        RouteOptions
}

// NewAuthorizationService creates a new instance of AuthorizationService.
func NewAuthorizationService(mux *http.ServeMux, authHandler *authz.AuthorizeHandler,
	opts RouteOptions) ServiceInterface {
	instance := &AuthorizationService{
		authHandler: authHandler,
		opts:        opts,
	}
	instance.RegisterRoutes(mux)

	return instance
}

// RegisterRoutes registers the routes for the AuthorizationService.
func (s *AuthorizationService) RegisterRoutes(mux *http.ServeMux) {
	s.opts.handle(mux, constants.OAuth2AuthorizationEndpoint, []string{http.MethodGet, http.MethodPost},
		http.HandlerFunc(s.authHandler.HandleAuthorizeRequest))
}
