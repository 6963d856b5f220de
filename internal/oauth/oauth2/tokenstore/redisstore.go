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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
)

const minimumRedisTTL = time.Second

// redisTable stores entities as JSON documents under "{prefix}:{kind}:{id}".
type redisTable[T any] struct {
	rdb    redis.UniversalClient
	prefix string
}

func (t redisTable[T]) key(id string) string {
	return t.prefix + ":" + id
}

func (t redisTable[T]) find(ctx context.Context, id string) (*T, error) {
	raw, err := t.rdb.Get(ctx, t.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", t.prefix, err)
	}
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", t.prefix, err)
	}
	return &item, nil
}

// create stores the entity, expiring it at expiresAt. A zero expiry keeps it forever.
func (t redisTable[T]) create(ctx context.Context, id string, item *T, expiresAt time.Time) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", t.prefix, err)
	}
	created, err := t.rdb.SetNX(ctx, t.key(id), raw, ttlUntil(expiresAt)).Result()
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", t.prefix, err)
	}
	if !created {
		return fmt.Errorf("%s %q already exists", t.prefix, id)
	}
	return nil
}

func (t redisTable[T]) save(ctx context.Context, id string, item *T) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", t.prefix, err)
	}
	ok, err := t.rdb.SetXX(ctx, t.key(id), raw, redis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", t.prefix, err)
	}
	if !ok {
		return model.ErrTokenNotFound
	}
	return nil
}

func ttlUntil(expiresAt time.Time) time.Duration {
	if expiresAt.IsZero() {
		return 0
	}
	return max(time.Until(expiresAt), minimumRedisTTL)
}

// NewRedisStores creates token repositories sharing one Redis client.
func NewRedisStores(rdb redis.UniversalClient, keyPrefix string) Stores {
	return Stores{
		Codes:         NewRedisAuthorizationCodeStore(rdb, keyPrefix),
		AccessTokens:  NewRedisAccessTokenStore(rdb, keyPrefix),
		RefreshTokens: NewRedisRefreshTokenStore(rdb, keyPrefix),
	}
}

// RedisAuthorizationCodeStore keeps authorization codes in Redis. The used flag lives
// in a separate key claimed with SETNX so that only one redemption can win.
type RedisAuthorizationCodeStore struct {
	table redisTable[model.AuthorizationCode]
}

// NewRedisAuthorizationCodeStore creates a Redis backed code store.
func NewRedisAuthorizationCodeStore(rdb redis.UniversalClient, keyPrefix string) *RedisAuthorizationCodeStore {
	return &RedisAuthorizationCodeStore{
		table: redisTable[model.AuthorizationCode]{rdb: rdb, prefix: keyPrefix + ":code"},
	}
}

func (s *RedisAuthorizationCodeStore) usedKey(id string) string {
	return s.table.key(id) + ":used"
}

// Find returns the code with the given id.
func (s *RedisAuthorizationCodeStore) Find(ctx context.Context, id string) (*model.AuthorizationCode, error) {
	code, err := s.table.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !code.Used {
		used, err := s.table.rdb.Exists(ctx, s.usedKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read code state: %w", err)
		}
		code.Used = used > 0
	}
	return code, nil
}

// Save replaces a stored code.
func (s *RedisAuthorizationCodeStore) Save(ctx context.Context, code *model.AuthorizationCode) error {
	return s.table.save(ctx, code.ID, code)
}

// Create stores a new code until it expires.
func (s *RedisAuthorizationCodeStore) Create(ctx context.Context,
	code *model.AuthorizationCode) (*model.AuthorizationCode, error) {
	if err := assignID(&code.ID); err != nil {
		return nil, err
	}
	if err := s.table.create(ctx, code.ID, code, code.ExpiresAt); err != nil {
		return nil, err
	}
	return code, nil
}

// MarkUsed claims the used flag of the code.
func (s *RedisAuthorizationCodeStore) MarkUsed(ctx context.Context, id string) error {
	exists, err := s.table.rdb.Exists(ctx, s.table.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to read code: %w", err)
	}
	if exists == 0 {
		return model.ErrTokenNotFound
	}
	ttl, err := s.table.rdb.PTTL(ctx, s.table.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to read code expiry: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}

	claimed, err := s.table.rdb.SetNX(ctx, s.usedKey(id), "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to mark code used: %w", err)
	}
	if !claimed {
		return model.ErrCodeAlreadyUsed
	}
	return nil
}

// RedisAccessTokenStore keeps access tokens in Redis until they expire.
type RedisAccessTokenStore struct {
	table redisTable[model.AccessToken]
}

// NewRedisAccessTokenStore creates a Redis backed access token store.
func NewRedisAccessTokenStore(rdb redis.UniversalClient, keyPrefix string) *RedisAccessTokenStore {
	return &RedisAccessTokenStore{
		table: redisTable[model.AccessToken]{rdb: rdb, prefix: keyPrefix + ":access_token"},
	}
}

// Find returns the token with the given id.
func (s *RedisAccessTokenStore) Find(ctx context.Context, id string) (*model.AccessToken, error) {
	return s.table.find(ctx, id)
}

// Save replaces a stored token.
func (s *RedisAccessTokenStore) Save(ctx context.Context, token *model.AccessToken) error {
	return s.table.save(ctx, token.ID, token)
}

// Create stores a new token.
func (s *RedisAccessTokenStore) Create(ctx context.Context, token *model.AccessToken) (*model.AccessToken, error) {
	if err := assignID(&token.ID); err != nil {
		return nil, err
	}
	if err := s.table.create(ctx, token.ID, token, token.ExpiresAt); err != nil {
		return nil, err
	}
	return token, nil
}

// RedisRefreshTokenStore keeps refresh tokens in Redis.
type RedisRefreshTokenStore struct {
	table redisTable[model.RefreshToken]
}

// NewRedisRefreshTokenStore creates a Redis backed refresh token store.
func NewRedisRefreshTokenStore(rdb redis.UniversalClient, keyPrefix string) *RedisRefreshTokenStore {
	return &RedisRefreshTokenStore{
		table: redisTable[model.RefreshToken]{rdb: rdb, prefix: keyPrefix + ":refresh_token"},
	}
}

// Find returns the token with the given id.
func (s *RedisRefreshTokenStore) Find(ctx context.Context, id string) (*model.RefreshToken, error) {
	return s.table.find(ctx, id)
}

// Save replaces a stored token.
func (s *RedisRefreshTokenStore) Save(ctx context.Context, token *model.RefreshToken) error {
	return s.table.save(ctx, token.ID, token)
}

// Create stores a new token.
func (s *RedisRefreshTokenStore) Create(ctx context.Context, token *model.RefreshToken) (*model.RefreshToken, error) {
	if err := assignID(&token.ID); err != nil {
		return nil, err
	}
	if err := s.table.create(ctx, token.ID, token, token.ExpiresAt); err != nil {
		return nil, err
	}
	return token, nil
}
