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

// Package revoke provides the OAuth 2.0 token revocation endpoint (RFC 7009).
package revoke

import (
	"context"
	"errors"
	"fmt"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/system/log"
)

// Result describes what a revocation request revoked.
type Result struct {
	// Revoked is false when the token was unknown or belonged to another client.
	Revoked   bool
	TokenType string
	// ResourceOwnerID is the owner of the revoked token.
	ResourceOwnerID string
	// AccessTokenIDs are the access tokens revoked along with a refresh token.
	AccessTokenIDs []string
}

// TokenRevocationServiceInterface defines the interface for OAuth 2.0 token revocation.
type TokenRevocationServiceInterface interface {
	RevokeToken(ctx context.Context, c *client.Client, token, tokenTypeHint string) (*Result, error)
}

// TokenRevocationService revokes tokens in the token repositories.
type TokenRevocationService struct {
	accessTokens  model.AccessTokenRepositoryInterface
	refreshTokens model.RefreshTokenRepositoryInterface
}

// NewTokenRevocationService creates a new TokenRevocationService instance.
func NewTokenRevocationService(accessTokens model.AccessTokenRepositoryInterface,
	refreshTokens model.RefreshTokenRepositoryInterface) *TokenRevocationService {
	return &TokenRevocationService{accessTokens: accessTokens, refreshTokens: refreshTokens}
}

// RevokeToken revokes a token issued to the client. Revoking a refresh token also revokes the
// access tokens issued with it. Unknown tokens and tokens of other clients are not an error.
func (s *TokenRevocationService) RevokeToken(ctx context.Context, c *client.Client, token,
	tokenTypeHint string) (*Result, error) {
	var refreshFirst bool
	switch tokenTypeHint {
	case "", constants.TokenTypeHintAccessToken:
	case constants.TokenTypeHintRefreshToken:
		refreshFirst = true
	default:
		return nil, model.NewUnsupportedTokenTypeError(
			fmt.Sprintf("The token type hint %q is not supported.", tokenTypeHint))
	}

	lookups := []func(context.Context, *client.Client, string) (*Result, error){
		s.revokeAccessToken, s.revokeRefreshToken,
	}
	if refreshFirst {
		lookups[0], lookups[1] = lookups[1], lookups[0]
	}
	for _, lookup := range lookups {
		result, err := lookup(ctx, c, token)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
	}
	return &Result{}, nil
}

// revokeAccessToken returns nil when no access token matches.
func (s *TokenRevocationService) revokeAccessToken(ctx context.Context, c *client.Client,
	token string) (*Result, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "TokenRevocationService"))

	at, err := s.accessTokens.Find(ctx, token)
	if errors.Is(err, model.ErrTokenNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewServerError(fmt.Errorf("failed to find access token: %w", err))
	}
	if at.ClientID != c.ID {
		logger.Debug("Ignoring revocation of a token issued to another client",
			log.String(log.LoggerKeyClientID, c.ID))
		return &Result{}, nil
	}

	if !at.Revoked {
		at.Revoked = true
		if err := s.accessTokens.Save(ctx, at); err != nil {
			return nil, model.NewServerError(fmt.Errorf("failed to revoke access token: %w", err))
		}
	}
	return &Result{Revoked: true, TokenType: constants.TokenTypeHintAccessToken,
		ResourceOwnerID: at.ResourceOwnerID}, nil
}

// revokeRefreshToken returns nil when no refresh token matches.
func (s *TokenRevocationService) revokeRefreshToken(ctx context.Context, c *client.Client,
	token string) (*Result, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "TokenRevocationService"))

	rt, err := s.refreshTokens.Find(ctx, token)
	if errors.Is(err, model.ErrTokenNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewServerError(fmt.Errorf("failed to find refresh token: %w", err))
	}
	if rt.ClientID != c.ID {
		logger.Debug("Ignoring revocation of a token issued to another client",
			log.String(log.LoggerKeyClientID, c.ID))
		return &Result{}, nil
	}

	if !rt.Revoked {
		rt.Revoked = true
		if err := s.refreshTokens.Save(ctx, rt); err != nil {
			return nil, model.NewServerError(fmt.Errorf("failed to revoke refresh token: %w", err))
		}
	}

	result := &Result{Revoked: true, TokenType: constants.TokenTypeHintRefreshToken,
		ResourceOwnerID: rt.ResourceOwnerID}
	for _, id := range rt.AccessTokenIDs {
		at, err := s.accessTokens.Find(ctx, id)
		if errors.Is(err, model.ErrTokenNotFound) {
			continue
		}
		if err != nil {
			return nil, model.NewServerError(fmt.Errorf("failed to find access token: %w", err))
		}
		if at.Revoked {
			continue
		}
		at.Revoked = true
		if err := s.accessTokens.Save(ctx, at); err != nil {
			return nil, model.NewServerError(fmt.Errorf("failed to revoke access token: %w", err))
		}
		result.AccessTokenIDs = append(result.AccessTokenIDs, id)
	}
	return result, nil
}
