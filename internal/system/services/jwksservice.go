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

	"github.com/asgardeo/oidcengine/internal/oauth/jwks"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
)

// JWKSAPIService defines the API service for handling JWKS requests.
type JWKSAPIService struct {
	jwksHandler *jwks.JWKSHandler
	opts        RouteOptions
}

// NewJWKSAPIService creates a new instance of JWKSAPIService.
func NewJWKSAPIService(mux *http.ServeMux, jwksHandler *jwks.JWKSHandler, opts RouteOptions) ServiceInterface {
	instance := &JWKSAPIService{
		jwksHandler: jwksHandler,
		opts:        opts,
	}
	instance.RegisterRoutes(mux)

	return instance
}

// RegisterRoutes registers the routes for the JWKSAPIService.
func (s *JWKSAPIService) RegisterRoutes(mux *http.ServeMux) {
	s.opts.handle(mux, constants.OAuth2JWKSEndpoint, []string{http.MethodGet},
		http.HandlerFunc(s.jwksHandler.HandleJWKSRequest))
}
