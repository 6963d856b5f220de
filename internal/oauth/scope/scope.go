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

// Package scope provides the scopes supported by the authorization server.
package scope

import (
	"errors"
	"slices"

	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/system/config"
)

// ErrScopeNotFound is returned when a scope is not supported.
var ErrScopeNotFound = errors.New("scope not found")

// Scope is a supported scope.
type Scope struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// RepositoryInterface gives access to the supported scopes.
type RepositoryInterface interface {
	Has(name string) bool
	Get(name string) (*Scope, error)
	All() []Scope
}

// MemoryRepository is a read-only set of scopes built at startup.
type MemoryRepository struct {
	scopes []Scope
	index  map[string]int
}

// NewMemoryRepository creates a repository with the given scopes. Duplicates are ignored.
func NewMemoryRepository(scopes ...Scope) *MemoryRepository {
	r := &MemoryRepository{index: make(map[string]int, len(scopes))}
	for _, s := range scopes {
		if _, exists := r.index[s.Name]; exists {
			continue
		}
		r.index[s.Name] = len(r.scopes)
		r.scopes = append(r.scopes, s)
	}
	return r
}

// NewMemoryRepositoryFromConfig creates a repository with the configured scopes.
// The openid and offline_access scopes are always supported.
func NewMemoryRepositoryFromConfig(scopes []config.ScopeConfig) *MemoryRepository {
	all := []Scope{
		{Name: constants.ScopeOpenID, Description: "OpenID Connect authentication"},
		{Name: constants.ScopeOfflineAccess, Description: "Offline access"},
	}
	for _, s := range scopes {
		all = append(all, Scope{Name: s.Name, Description: s.Description})
	}
	return NewMemoryRepository(all...)
}

// Has reports whether the scope is supported.
func (r *MemoryRepository) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Get returns the scope with the given name.
func (r *MemoryRepository) Get(name string) (*Scope, error) {
	i, ok := r.index[name]
	if !ok {
		return nil, ErrScopeNotFound
	}
	s := r.scopes[i]
	return &s, nil
}

// All returns the supported scopes in registration order.
func (r *MemoryRepository) All() []Scope {
	return slices.Clone(r.scopes)
}

// Unknown returns the requested scopes the repository does not support.
func Unknown(repository RepositoryInterface, requested []string) []string {
	var unknown []string
	for _, name := range requested {
		if !repository.Has(name) {
			unknown = append(unknown, name)
		}
	}
	return unknown
}
