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

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/databag"
)

// RedisClientStore keeps clients as JSON documents in Redis.
type RedisClientStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisClientStore creates a Redis backed client store using the given key prefix.
func NewRedisClientStore(rdb redis.UniversalClient, prefix string) *RedisClientStore {
	return &RedisClientStore{rdb: rdb, prefix: prefix}
}

func (s *RedisClientStore) key(clientID string) string {
	return s.prefix + ":client:" + clientID
}

// Find returns the client with the given id.
func (s *RedisClientStore) Find(ctx context.Context, clientID string) (*client.Client, error) {
	raw, err := s.rdb.Get(ctx, s.key(clientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, client.ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read client: %w", err)
	}

	var c client.Client
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to decode client: %w", err)
	}
	return &c, nil
}

// Save replaces the stored client.
func (s *RedisClientStore) Save(ctx context.Context, c *client.Client) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode client: %w", err)
	}
	ok, err := s.rdb.SetXX(ctx, s.key(c.ID), raw, redis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}
	if !ok {
		return client.ErrClientNotFound
	}
	return nil
}

// Create stores a new client. An existing client with the same id is never overwritten.
func (s *RedisClientStore) Create(ctx context.Context, clientID string, parameters databag.DataBag,
	ownerID string) (*client.Client, error) {
	c := &client.Client{ID: clientID, OwnerID: ownerID, Parameters: parameters}
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode client: %w", err)
	}
	created, err := s.rdb.SetNX(ctx, s.key(clientID), raw, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	if !created {
		return nil, client.ErrClientAlreadyExists
	}
	return c, nil
}
