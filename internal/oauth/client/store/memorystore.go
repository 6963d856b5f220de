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

// Package store provides client repository implementations backed by memory, SQL and Redis.
package store

import (
	"context"
	"sync"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/databag"
)

// MemoryClientStore keeps clients in process memory.
type MemoryClientStore struct {
	mu      sync.RWMutex
	clients map[string]client.Client
}

// NewMemoryClientStore creates an empty in-memory client store.
func NewMemoryClientStore() *MemoryClientStore {
	return &MemoryClientStore{clients: make(map[string]client.Client)}
}

// Find returns the client with the given id.
func (s *MemoryClientStore) Find(_ context.Context, clientID string) (*client.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[clientID]
	if !ok {
		return nil, client.ErrClientNotFound
	}
	return &c, nil
}

// Save stores the client, replacing any previous version.
func (s *MemoryClientStore) Save(_ context.Context, c *client.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[c.ID] = *c
	return nil
}

// Create stores a new client.
func (s *MemoryClientStore) Create(_ context.Context, clientID string, parameters databag.DataBag,
	ownerID string) (*client.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.clients[clientID]; exists {
		return nil, client.ErrClientAlreadyExists
	}
	c := client.Client{ID: clientID, OwnerID: ownerID, Parameters: parameters}
	s.clients[clientID] = c
	return &c, nil
}
