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

// Package introspect provides the OAuth 2.0 token introspection endpoint (RFC 7662).
package introspect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/system/log"
)

// IntrospectResponse is the introspection result. Only Active is set for inactive tokens.
type IntrospectResponse struct {
	Active    bool   `json:"active"`
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Username  string `json:"username,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
	Nbf       int64  `json:"nbf,omitempty"`
	Sub       string `json:"sub,omitempty"`
	Aud       string `json:"aud,omitempty"`
	Iss       string `json:"iss,omitempty"`
	Jti       string `json:"jti,omitempty"`
}

// TokenIntrospectionServiceInterface defines the interface for OAuth 2.0 token introspection.
type TokenIntrospectionServiceInterface interface {
	IntrospectToken(ctx context.Context, token, tokenTypeHint string) (*IntrospectResponse, error)
}

// TokenIntrospectionService looks tokens up in the token repositories.
type TokenIntrospectionService struct {
	accessTokens  model.AccessTokenRepositoryInterface
	refreshTokens model.RefreshTokenRepositoryInterface
	issuer        string
	now           func() time.Time
}

// NewTokenIntrospectionService creates a new TokenIntrospectionService instance.
func NewTokenIntrospectionService(accessTokens model.AccessTokenRepositoryInterface,
	refreshTokens model.RefreshTokenRepositoryInterface, issuer string) *TokenIntrospectionService {
	return &TokenIntrospectionService{
		accessTokens:  accessTokens,
		refreshTokens: refreshTokens,
		issuer:        issuer,
		now:           time.Now,
	}
}

// IntrospectToken returns the state of the token. It only returns an error if a server error occurs.
// Unknown, expired and revoked tokens are reported as inactive.
func (s *TokenIntrospectionService) IntrospectToken(ctx context.Context, token, tokenTypeHint string) (
	*IntrospectResponse, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "TokenIntrospectionService"))

	if token == "" {
		return nil, errors.New("token is required")
	}

	lookups := []func(context.Context, string) (*IntrospectResponse, error){s.accessToken, s.refreshToken}
	if tokenTypeHint == constants.TokenTypeHintRefreshToken {
		lookups[0], lookups[1] = lookups[1], lookups[0]
	}
	for _, lookup := range lookups {
		response, err := lookup(ctx, token)
		if err != nil {
			return nil, err
		}
		if response != nil {
			return response, nil
		}
	}

	logger.Debug("Introspected token is not known to the server")
	return &IntrospectResponse{Active: false}, nil
}

// accessToken returns nil when no access token matches.
func (s *TokenIntrospectionService) accessToken(ctx context.Context, token string) (*IntrospectResponse, error) {
	at, err := s.accessTokens.Find(ctx, token)
	if errors.Is(err, model.ErrTokenNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find access token: %w", err)
	}
	if !at.IsActive(s.now()) {
		return &IntrospectResponse{Active: false}, nil
	}

	response := &IntrospectResponse{
		Active:    true,
		Scope:     at.Scope(),
		ClientID:  at.ClientID,
		TokenType: at.TokenType(),
		Exp:       at.ExpiresAt.Unix(),
		Iat:       at.IssuedAt.Unix(),
		Nbf:       at.IssuedAt.Unix(),
		Sub:       at.ResourceOwnerID,
		Aud:       at.ClientID,
		Iss:       s.issuer,
		Jti:       at.ID,
	}
	if at.Metadata.GetBool(model.MetadataResourceOwnerIsUser) {
		response.Username = at.ResourceOwnerID
	}
	return response, nil
}

// refreshToken returns nil when no refresh token matches.
func (s *TokenIntrospectionService) refreshToken(ctx context.Context, token string) (*IntrospectResponse, error) {
	rt, err := s.refreshTokens.Find(ctx, token)
	if errors.Is(err, model.ErrTokenNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}
	if !rt.IsActive(s.now()) {
		return &IntrospectResponse{Active: false}, nil
	}

	response := &IntrospectResponse{
		Active:   true,
		Scope:    rt.Scope(),
		ClientID: rt.ClientID,
		Iat:      rt.IssuedAt.Unix(),
		Nbf:      rt.IssuedAt.Unix(),
		Sub:      rt.ResourceOwnerID,
		Aud:      rt.ClientID,
		Iss:      s.issuer,
		Jti:      rt.ID,
	}
	if !rt.ExpiresAt.IsZero() {
		response.Exp = rt.ExpiresAt.Unix()
	}
	if rt.Metadata.GetBool(model.MetadataResourceOwnerIsUser) {
		response.Username = rt.ResourceOwnerID
	}
	return response, nil
}
