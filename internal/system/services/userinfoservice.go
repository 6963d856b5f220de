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
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/resource"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/userinfo"
)

// UserInfoService defines the service for handling OpenID Connect userinfo requests.
type UserInfoService struct {
	userInfoHandler *userinfo.UserInfoHandler
	protector       *resource.Middleware
	opts            RouteOptions
}

// NewUserInfoService creates a new instance of UserInfoService.
func NewUserInfoService(mux *http.ServeMux, userInfoHandler *userinfo.UserInfoHandler,
	protector *resource.Middleware, opts RouteOptions) ServiceInterface {
	instance := &UserInfoService{
		userInfoHandler: userInfoHandler,
		protector:       protector,
		opts:            opts,
	}
	instance.RegisterRoutes(mux)

	return instance
}

// RegisterRoutes registers the routes for the UserInfoService. The endpoint requires an
// access token carrying the openid scope.
func (s *UserInfoService) RegisterRoutes(mux *http.ServeMux) {
	s.opts.handle(mux, constants.OAuth2UserInfoEndpoint, []string{http.MethodGet, http.MethodPost},
		s.protector.Protect([]string{constants.ScopeOpenID}, s.userInfoHandler))
}
