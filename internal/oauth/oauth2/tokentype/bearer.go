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

package tokentype

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
)

// Locations a bearer token can be presented in.
const (
	LocationHeader = "header"
	LocationBody   = "body"
	LocationQuery  = "query"
)

// BearerHandler implements RFC 6750 bearer tokens.
type BearerHandler struct {
	precedence []string
	realm      string
}

// NewBearerHandler creates a bearer handler that looks for the token in the given order.
func NewBearerHandler(realm string, precedence []string) *BearerHandler {
	if len(precedence) == 0 {
		precedence = []string{LocationHeader, LocationBody, LocationQuery}
	}
	return &BearerHandler{precedence: precedence, realm: realm}
}

// Name implements HandlerInterface.
func (h *BearerHandler) Name() string {
	return constants.TokenTypeBearer
}

// SchemesParameters implements HandlerInterface.
func (h *BearerHandler) SchemesParameters() []string {
	if h.realm == "" {
		return []string{"Bearer"}
	}
	return []string{fmt.Sprintf("Bearer realm=%q", h.realm)}
}

// FindToken implements HandlerInterface.
func (h *BearerHandler) FindToken(r *http.Request) (string, interface{}, error) {
	for _, location := range h.precedence {
		var token string
		switch location {
		case LocationHeader:
			token = bearerFromHeader(r)
		case LocationBody:
			token = bearerFromBody(r)
		case LocationQuery:
			token = r.URL.Query().Get(constants.AccessToken)
		}
		if token != "" {
			return token, nil, nil
		}
	}
	return "", nil, nil
}

// IsValid implements HandlerInterface.
func (h *BearerHandler) IsValid(_ context.Context, token *model.AccessToken, _ interface{}, _ *http.Request) bool {
	return token.TokenType() == constants.TokenTypeBearer
}

// Prepare implements HandlerInterface.
func (h *BearerHandler) Prepare(parameters databag.DataBag) (databag.DataBag, error) {
	return parameters, nil
}

// ResponseParameters implements HandlerInterface.
func (h *BearerHandler) ResponseParameters(_ *model.AccessToken) databag.DataBag {
	return databag.DataBag{}
}

func bearerFromHeader(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func bearerFromBody(r *http.Request) string {
	if r.Method == http.MethodGet || r.Body == nil {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/x-www-form-urlencoded" {
		return ""
	}
	if err := r.ParseForm(); err != nil {
		return ""
	}
	return r.PostForm.Get(constants.AccessToken)
}
