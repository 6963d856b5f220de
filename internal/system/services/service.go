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

// Package services provides a way to register and manage HTTP routes for the server.
package services

import (
	"net/http"
	"strings"

	"github.com/asgardeo/oidcengine/internal/system/instrumentation"
	"github.com/asgardeo/oidcengine/internal/system/middleware"
)

// ServiceInterface is a service that registers its HTTP routes.
type ServiceInterface interface {
	RegisterRoutes(mux *http.ServeMux)
}

// RouteOptions holds the wrappers applied to every registered route.
type RouteOptions struct {
	AllowedOrigins []string
	// Instrumentation may be nil, in which case routes are not traced.
	Instrumentation *instrumentation.Instrumentation
}

// handle registers the handler for every method of the path together with its CORS preflight route.
func (o RouteOptions) handle(mux *http.ServeMux, path string, methods []string, handler http.Handler) {
	corsOpts := middleware.CORSOptions{
		AllowedOrigins:   o.AllowedOrigins,
		AllowedMethods:   strings.Join(methods, ", ") + ", " + http.MethodOptions,
		AllowedHeaders:   "Content-Type, Authorization",
		AllowCredentials: true,
	}
	if o.Instrumentation != nil {
		handler = o.Instrumentation.Middleware(path, handler)
	}

	for _, method := range methods {
		mux.HandleFunc(middleware.WithCORS(method+" "+path, handler.ServeHTTP, corsOpts))
	}
	mux.HandleFunc(middleware.WithCORS(http.MethodOptions+" "+path, middleware.PreflightHandler, corsOpts))
}
