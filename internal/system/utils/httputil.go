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

// Package utils provides utility functions for HTTP operations, identifiers and strings.
package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/asgardeo/oidcengine/internal/system/log"
)

// Errors returned while reading basic authentication credentials.
var (
	ErrNoBasicAuthHeader      = errors.New("invalid authorization header")
	ErrMalformedBasicAuth     = errors.New("failed to decode authorization header")
	ErrInvalidBasicAuthFormat = errors.New("invalid authorization header format")
)

// ExtractBasicAuthCredentials extracts the basic authentication credentials from the request header.
// Both parts are form-url-decoded as required for OAuth client credentials.
func ExtractBasicAuthCredentials(r *http.Request) (string, string, error) {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < 6 || !strings.EqualFold(authHeader[:6], "Basic ") {
		return "", "", ErrNoBasicAuthHeader
	}

	decodedCredentials, err := base64.StdEncoding.DecodeString(strings.TrimSpace(authHeader[6:]))
	if err != nil {
		return "", "", ErrMalformedBasicAuth
	}

	credentials := strings.SplitN(string(decodedCredentials), ":", 2)
	if len(credentials) != 2 {
		return "", "", ErrInvalidBasicAuthFormat
	}

	username, err := url.QueryUnescape(credentials[0])
	if err != nil {
		return "", "", ErrInvalidBasicAuthFormat
	}
	password, err := url.QueryUnescape(credentials[1])
	if err != nil {
		return "", "", ErrInvalidBasicAuthFormat
	}
	return username, password, nil
}

// WriteJSON writes the given body as a JSON response with the provided status code.
func WriteJSON(w http.ResponseWriter, statusCode int, body interface{}, noStore bool) {
	w.Header().Set("Content-Type", "application/json")
	if noStore {
		// Must include the following headers when sensitive data is returned.
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
	}
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.GetLogger().Error("Failed to write JSON response", log.Error(err))
	}
}

// WriteJSONError writes a JSON error response with the given details.
func WriteJSONError(w http.ResponseWriter, code, desc string, statusCode int, respHeaders map[string]string) {
	logger := log.GetLogger()
	logger.Debug("Error in HTTP response", log.String("error", code), log.String("description", desc))

	for key, value := range respHeaders {
		w.Header().Set(key, value)
	}
	body := map[string]string{"error": code}
	if desc != "" {
		body["error_description"] = desc
	}
	WriteJSON(w, statusCode, body, true)
}

// IsLoopbackHost reports whether the host of the given URL is a loopback address.
func IsLoopbackHost(u *url.URL) bool {
	host := u.Hostname()
	return host == "127.0.0.1" || host == "::1"
}
