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

package clientauth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/system/utils"
)

// NoneMethod identifies public clients by the client_id form parameter alone.
type NoneMethod struct{}

// SupportedMethods implements MethodInterface.
func (NoneMethod) SupportedMethods() []string {
	return []string{constants.AuthMethodNone}
}

// SchemesParameters implements MethodInterface.
func (NoneMethod) SchemesParameters() []string {
	return nil
}

// FindClientID implements MethodInterface. Requests carrying any other credential are left to the
// other methods.
func (NoneMethod) FindClientID(r *http.Request) (string, interface{}, error) {
	if r.Header.Get("Authorization") != "" || r.PostForm.Has(constants.ClientSecret) ||
		r.PostForm.Has(constants.ClientAssertion) || r.PostForm.Has(constants.ClientAssertionType) {
		return "", nil, nil
	}
	return r.PostForm.Get(constants.ClientID), nil, nil
}

// IsClientAuthenticated implements MethodInterface.
func (NoneMethod) IsClientAuthenticated(_ context.Context, c *client.Client, _ interface{}, _ *http.Request) bool {
	return c.IsPublic()
}

// ClientSecretBasicMethod reads the client credentials from the HTTP Basic authorization header.
type ClientSecretBasicMethod struct {
	Realm string
}

// SupportedMethods implements MethodInterface.
func (m ClientSecretBasicMethod) SupportedMethods() []string {
	return []string{constants.AuthMethodClientSecretBasic}
}

// SchemesParameters implements MethodInterface.
func (m ClientSecretBasicMethod) SchemesParameters() []string {
	if m.Realm == "" {
		return []string{"Basic"}
	}
	return []string{fmt.Sprintf("Basic realm=%q", m.Realm)}
}

// FindClientID implements MethodInterface.
func (m ClientSecretBasicMethod) FindClientID(r *http.Request) (string, interface{}, error) {
	header := r.Header.Get("Authorization")
	if len(header) < 6 || !strings.EqualFold(header[:6], "Basic ") {
		return "", nil, nil
	}
	clientID, secret, err := utils.ExtractBasicAuthCredentials(r)
	if err != nil || clientID == "" {
		return "", nil, model.NewInvalidClientError("Invalid client credentials.")
	}
	return clientID, secret, nil
}

// IsClientAuthenticated implements MethodInterface.
func (m ClientSecretBasicMethod) IsClientAuthenticated(_ context.Context, c *client.Client,
	credentials interface{}, _ *http.Request) bool {
	secret, ok := credentials.(string)
	return ok && SecretMatches(c.Secret(), secret)
}

// ClientSecretPostMethod reads the client credentials from the request body.
type ClientSecretPostMethod struct{}

// SupportedMethods implements MethodInterface.
func (ClientSecretPostMethod) SupportedMethods() []string {
	return []string{constants.AuthMethodClientSecretPost}
}

// SchemesParameters implements MethodInterface.
func (ClientSecretPostMethod) SchemesParameters() []string {
	return nil
}

// FindClientID implements MethodInterface.
func (ClientSecretPostMethod) FindClientID(r *http.Request) (string, interface{}, error) {
	if !r.PostForm.Has(constants.ClientSecret) {
		return "", nil, nil
	}
	clientID := r.PostForm.Get(constants.ClientID)
	if clientID == "" {
		return "", nil, model.NewInvalidRequestError("The client_id parameter is missing.")
	}
	return clientID, r.PostForm.Get(constants.ClientSecret), nil
}

// IsClientAuthenticated implements MethodInterface.
func (ClientSecretPostMethod) IsClientAuthenticated(_ context.Context, c *client.Client,
	credentials interface{}, _ *http.Request) bool {
	secret, ok := credentials.(string)
	return ok && SecretMatches(c.Secret(), secret)
}

// SecretMatches compares a presented secret with the stored one. Stored secrets may be bcrypt hashes.
func SecretMatches(stored, presented string) bool {
	if stored == "" || presented == "" {
		return false
	}
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

// HashSecret hashes a client secret for storage.
func HashSecret(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func isBcryptHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
