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

package tokenstore

import (
	"context"
	"sync"

	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
)

// memoryTable is a mutex guarded map of entities keyed by id.
type memoryTable[T any] struct {
	mu    sync.Mutex
	items map[string]T
}

func newMemoryTable[T any]() *memoryTable[T] {
	return &memoryTable[T]{items: make(map[string]T)}
}

func (t *memoryTable[T]) find(id string) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	item, ok := t.items[id]
	if !ok {
		var zero T
		return zero, model.ErrTokenNotFound
	}
	return item, nil
}

func (t *memoryTable[T]) save(id string, item T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.items[id]; !ok {
		return model.ErrTokenNotFound
	}
	t.items[id] = item
	return nil
}

func (t *memoryTable[T]) create(id string, item T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items[id] = item
}

// update applies fn to the stored entity while holding the lock.
func (t *memoryTable[T]) update(id string, fn func(item *T) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	item, ok := t.items[id]
	if !ok {
		return model.ErrTokenNotFound
	}
	if err := fn(&item); err != nil {
		return err
	}
	t.items[id] = item
	return nil
}

// NewMemoryStores creates in-memory token repositories.
func NewMemoryStores() Stores {
	return Stores{
		Codes:         NewMemoryAuthorizationCodeStore(),
		AccessTokens:  NewMemoryAccessTokenStore(),
		RefreshTokens: NewMemoryRefreshTokenStore(),
	}
}

// MemoryAuthorizationCodeStore keeps authorization codes in memory.
type MemoryAuthorizationCodeStore struct {
	table *memoryTable[model.AuthorizationCode]
}

// NewMemoryAuthorizationCodeStore creates an empty in-memory code store.
func NewMemoryAuthorizationCodeStore() *MemoryAuthorizationCodeStore {
	return &MemoryAuthorizationCodeStore{table: newMemoryTable[model.AuthorizationCode]()}
}

// Find returns the code with the given id.
func (s *MemoryAuthorizationCodeStore) Find(_ context.Context, id string) (*model.AuthorizationCode, error) {
	code, err := s.table.find(id)
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// Save replaces a stored code.
func (s *MemoryAuthorizationCodeStore) Save(_ context.Context, code *model.AuthorizationCode) error {
	return s.table.save(code.ID, *code)
}

// Create stores a new code.
func (s *MemoryAuthorizationCodeStore) Create(_ context.Context,
	code *model.AuthorizationCode) (*model.AuthorizationCode, error) {
	if err := assignID(&code.ID); err != nil {
		return nil, err
	}
	s.table.create(code.ID, *code)
	return code, nil
}

// MarkUsed flags the code as used unless it already was.
func (s *MemoryAuthorizationCodeStore) MarkUsed(_ context.Context, id string) error {
	return s.table.update(id, func(code *model.AuthorizationCode) error {
		if code.Used {
			return model.ErrCodeAlreadyUsed
		}
		code.Used = true
		return nil
	})
}

// MemoryAccessTokenStore keeps access tokens in memory.
type MemoryAccessTokenStore struct {
	table *memoryTable[model.AccessToken]
}

// NewMemoryAccessTokenStore creates an empty in-memory access token store.
func NewMemoryAccessTokenStore() *MemoryAccessTokenStore {
	return &MemoryAccessTokenStore{table: newMemoryTable[model.AccessToken]()}
}

// Find returns the token with the given id.
func (s *MemoryAccessTokenStore) Find(_ context.Context, id string) (*model.AccessToken, error) {
	token, err := s.table.find(id)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Save replaces a stored token.
func (s *MemoryAccessTokenStore) Save(_ context.Context, token *model.AccessToken) error {
	return s.table.save(token.ID, *token)
}

// Create stores a new token.
func (s *MemoryAccessTokenStore) Create(_ context.Context, token *model.AccessToken) (*model.AccessToken, error) {
	if err := assignID(&token.ID); err != nil {
		return nil, err
	}
	s.table.create(token.ID, *token)
	return token, nil
}

// MemoryRefreshTokenStore keeps refresh tokens in memory.
type MemoryRefreshTokenStore struct {
	table *memoryTable[model.RefreshToken]
}

// NewMemoryRefreshTokenStore creates an empty in-memory refresh token store.
func NewMemoryRefreshTokenStore() *MemoryRefreshTokenStore {
	return &MemoryRefreshTokenStore{table: newMemoryTable[model.RefreshToken]()}
}

// Find returns the token with the given id.
func (s *MemoryRefreshTokenStore) Find(_ context.Context, id string) (*model.RefreshToken, error) {
	token, err := s.table.find(id)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Save replaces a stored token.
func (s *MemoryRefreshTokenStore) Save(_ context.Context, token *model.RefreshToken) error {
	return s.table.save(token.ID, *token)
}

// Create stores a new token.
func (s *MemoryRefreshTokenStore) Create(_ context.Context, token *model.RefreshToken) (*model.RefreshToken, error) {
	if err := assignID(&token.ID); err != nil {
		return nil, err
	}
	s.table.create(token.ID, *token)
	return token, nil
}
