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

// Package user provides the resource owner accounts known to the authorization server.
package user

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/asgardeo/oidcengine/internal/system/config"
)

// ErrUserNotFound is returned when no account exists for the given id.
var ErrUserNotFound = errors.New("user account not found")

// UserAccount is an authenticated resource owner.
type UserAccount struct {
	ID     string                 `json:"id"`
	Claims map[string]interface{} `json:"claims,omitempty"`
}

// Claim returns a claim of the account.
func (u *UserAccount) Claim(name string) (interface{}, bool) {
	v, ok := u.Claims[name]
	return v, ok
}

// RepositoryInterface looks up user accounts.
type RepositoryInterface interface {
	Find(ctx context.Context, id string) (*UserAccount, error)
}

// MemoryRepository holds user accounts in memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]*UserAccount
}

// NewMemoryRepository creates a repository holding the given accounts.
func NewMemoryRepository(accounts ...*UserAccount) *MemoryRepository {
	r := &MemoryRepository{accounts: make(map[string]*UserAccount, len(accounts))}
	for _, a := range accounts {
		r.accounts[a.ID] = a
	}
	return r
}

// NewMemoryRepositoryFromConfig creates a repository with the statically provisioned users.
func NewMemoryRepositoryFromConfig(users []config.UserConfig) *MemoryRepository {
	accounts := make([]*UserAccount, 0, len(users))
	for _, u := range users {
		accounts = append(accounts, &UserAccount{ID: u.ID, Claims: u.Claims})
	}
	return NewMemoryRepository(accounts...)
}

// Find returns the account with the given id.
func (r *MemoryRepository) Find(_ context.Context, id string) (*UserAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return account, nil
}

// Add stores or replaces an account.
func (r *MemoryRepository) Add(account *UserAccount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.ID] = account
}

// ResolverInterface resolves the authenticated user of an authorization request.
// A nil account without error means nobody is logged in.
type ResolverInterface interface {
	Resolve(r *http.Request) (*UserAccount, error)
}

// HeaderResolver trusts a header set by the authenticating front end.
type HeaderResolver struct {
	header     string
	repository RepositoryInterface
}

// NewHeaderResolver creates a resolver reading the user id from the given header.
func NewHeaderResolver(header string, repository RepositoryInterface) *HeaderResolver {
	return &HeaderResolver{header: header, repository: repository}
}

// Resolve returns the account named by the header, or nil when the header is absent.
func (h *HeaderResolver) Resolve(r *http.Request) (*UserAccount, error) {
	id := r.Header.Get(h.header)
	if id == "" {
		return nil, nil
	}
	account, err := h.repository.Find(r.Context(), id)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	return account, err
}
