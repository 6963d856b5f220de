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

package token

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/granthandlers"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
)

// Next continues the processor chain.
type Next interface {
	Process(ctx context.Context, data *granthandlers.GrantData) error
}

// ProcessorInterface resolves part of the grant data before tokens are issued.
type ProcessorInterface interface {
	Process(ctx context.Context, data *granthandlers.GrantData, next Next) error
}

type link struct {
	processor ProcessorInterface
	next      Next
}

func (l link) Process(ctx context.Context, data *granthandlers.GrantData) error {
	return l.processor.Process(ctx, data, l.next)
}

type terminal struct{}

func (terminal) Process(context.Context, *granthandlers.GrantData) error {
	return nil
}

// Processors is a composed processor chain.
type Processors struct {
	head Next
}

// NewProcessors composes the processors in order.
func NewProcessors(processors ...ProcessorInterface) *Processors {
	var next Next = terminal{}
	for i := len(processors) - 1; i >= 0; i-- {
		next = link{processor: processors[i], next: next}
	}
	return &Processors{head: next}
}

// Process runs the chain.
func (p *Processors) Process(ctx context.Context, data *granthandlers.GrantData) error {
	return p.head.Process(ctx, data)
}

// ScopeRegistry lists the supported scopes.
type ScopeRegistry interface {
	Has(name string) bool
}

// ScopeProcessor resolves the granted scopes. Without a scope parameter the client's
// registered scopes are granted.
type ScopeProcessor struct {
	scopes ScopeRegistry
}

// NewScopeProcessor creates a scope processor.
func NewScopeProcessor(scopes ScopeRegistry) *ScopeProcessor {
	return &ScopeProcessor{scopes: scopes}
}

// Process implements ProcessorInterface.
func (p *ScopeProcessor) Process(ctx context.Context, data *granthandlers.GrantData, next Next) error {
	requested := strings.Fields(data.Parameters.GetString(constants.Scope))
	if len(requested) == 0 {
		requested = data.Client.Scopes()
	}

	registered := data.Client.Scopes()
	granted := make([]string, 0, len(requested))
	for _, name := range requested {
		if slices.Contains(granted, name) {
			continue
		}
		if !p.scopes.Has(name) {
			return model.NewInvalidScopeError(fmt.Sprintf("The scope %q is not supported.", name))
		}
		if len(registered) > 0 && !slices.Contains(registered, name) {
			return model.NewInvalidScopeError(fmt.Sprintf("The client is not allowed to request the scope %q.", name))
		}
		granted = append(granted, name)
	}

	data.Scopes = granted
	if len(granted) > 0 {
		data.Parameters = data.Parameters.With(constants.Scope, strings.Join(granted, " "))
	} else {
		data.Parameters = data.Parameters.Without(constants.Scope)
	}
	return next.Process(ctx, data)
}

// TokenTypeRegistry lists the supported token types.
type TokenTypeRegistry interface {
	Has(name string) bool
	Default() string
}

// TokenTypeProcessor resolves the access token type from the grant, the client or the server default.
type TokenTypeProcessor struct {
	types TokenTypeRegistry
}

// NewTokenTypeProcessor creates a token type processor.
func NewTokenTypeProcessor(types TokenTypeRegistry) *TokenTypeProcessor {
	return &TokenTypeProcessor{types: types}
}

// Process implements ProcessorInterface.
func (p *TokenTypeProcessor) Process(ctx context.Context, data *granthandlers.GrantData, next Next) error {
	tokenType := data.Parameters.GetString(constants.TokenType)
	if tokenType == "" {
		tokenType = data.Client.TokenType()
	}
	if tokenType == "" {
		tokenType = p.types.Default()
	}
	if !p.types.Has(tokenType) {
		return model.NewInvalidRequestError(fmt.Sprintf("The token type %q is not supported.", tokenType))
	}
	data.TokenType = tokenType
	return next.Process(ctx, data)
}
