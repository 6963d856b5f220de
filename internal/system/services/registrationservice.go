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

	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/registration"
	"github.com/asgardeo/oidcengine/internal/system/ratelimit"
)

// RegistrationService defines the service for handling dynamic client registration requests.
type RegistrationService struct {
	registrationHandler *registration.RegistrationHandler
	limiter             ratelimit.RateLimiterInterface
	onReject            func(r *http.Request)
	opts                RouteOptions
}

// NewRegistrationService creates a new instance of RegistrationService. A nil limiter disables
// rate limiting.
func NewRegistrationService(mux *http.ServeMux, registrationHandler *registration.RegistrationHandler,
	limiter ratelimit.RateLimiterInterface, onReject func(r *http.Request), opts RouteOptions) ServiceInterface {
	instance := &RegistrationService{
		registrationHandler: registrationHandler,
		limiter:             limiter,
		onReject:            onReject,
		opts:                opts,
	}
	instance.RegisterRoutes(mux)

	return instance
}

// RegisterRoutes registers the routes for the RegistrationService.
func (s *RegistrationService) RegisterRoutes(mux *http.ServeMux) {
	var handler http.Handler = http.HandlerFunc(s.registrationHandler.HandleRegistration)
	if s.limiter != nil {
		handler = ratelimit.Middleware(s.limiter, s.onReject, handler)
	}
	s.opts.handle(mux, constants.OAuth2RegistrationEndpoint, []string{http.MethodPost}, handler)
}
