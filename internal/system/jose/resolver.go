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

package jose

import (
	"context"
	"errors"
	"fmt"

	"github.com/asgardeo/oidcengine/internal/system/cache"
	syshttp "github.com/asgardeo/oidcengine/internal/system/http"
	"github.com/asgardeo/oidcengine/internal/system/log"
)

const maxKeySetBytes = 64 * 1024

// ErrNoKeySet is returned when neither an inline key set nor a key set URI is available.
var ErrNoKeySet = errors.New("no key set available")

// KeySetResolverInterface resolves a key set from an inline value or a remote URI.
type KeySetResolverInterface interface {
	Resolve(ctx context.Context, inline interface{}, uri string) (*KeySet, error)
}

// KeySetResolver resolves key sets, caching remote ones.
type KeySetResolver struct {
	httpClient syshttp.HTTPClientInterface
	cache      cache.CacheInterface[*KeySet]
}

// NewKeySetResolver creates a resolver using the given HTTP client and cache.
func NewKeySetResolver(httpClient syshttp.HTTPClientInterface,
	keySetCache cache.CacheInterface[*KeySet]) KeySetResolverInterface {
	return &KeySetResolver{
		httpClient: httpClient,
		cache:      keySetCache,
	}
}

// Resolve returns the inline key set when given, otherwise fetches the key set URI.
func (r *KeySetResolver) Resolve(ctx context.Context, inline interface{}, uri string) (*KeySet, error) {
	if inline != nil {
		return ParseKeySet(inline)
	}
	if uri == "" {
		return nil, ErrNoKeySet
	}

	if keySet, ok := r.cache.Get(uri); ok {
		return keySet, nil
	}

	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "KeySetResolver"))
	logger.Debug("Fetching remote key set", log.String("uri", uri))

	body, err := r.httpClient.Fetch(ctx, uri, "application/jwk-set+json, application/json", maxKeySetBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch key set: %w", err)
	}
	keySet, err := ParseKeySet(body)
	if err != nil {
		return nil, err
	}
	r.cache.Set(uri, keySet)
	return keySet, nil
}
