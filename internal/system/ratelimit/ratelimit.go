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

// Package ratelimit provides per client address rate limiting for the protocol endpoints.
package ratelimit

import (
	"container/list"
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/asgardeo/oidcengine/internal/system/config"
	"github.com/asgardeo/oidcengine/internal/system/log"
	"github.com/asgardeo/oidcengine/internal/system/utils"
)

const defaultMaxEntries = 10000

type limiterEntry struct {
	key     string
	limiter *rate.Limiter
}

// RateLimiterInterface decides whether a request of the given key may proceed.
type RateLimiterInterface interface {
	Allow(key string) bool
}

// RateLimiter is a token bucket limiter per key with LRU eviction.
type RateLimiter struct {
	mu         sync.Mutex
	limit      rate.Limit
	burst      int
	maxEntries int
	entries    map[string]*list.Element
	lru        *list.List
}

// NewRateLimiter creates a rate limiter from the configuration.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limit:      rate.Limit(cfg.RequestsPerSecond),
		burst:      cfg.Burst,
		maxEntries: defaultMaxEntries,
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
	}
}

// Allow reports whether a request for the key is allowed now.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if elem, ok := rl.entries[key]; ok {
		rl.lru.MoveToFront(elem)
		return elem.Value.(*limiterEntry).limiter.Allow()
	}

	if len(rl.entries) >= rl.maxEntries {
		if oldest := rl.lru.Back(); oldest != nil {
			rl.lru.Remove(oldest)
			delete(rl.entries, oldest.Value.(*limiterEntry).key)
		}
	}

	entry := &limiterEntry{key: key, limiter: rate.NewLimiter(rl.limit, rl.burst)}
	rl.entries[key] = rl.lru.PushFront(entry)
	return entry.limiter.Allow()
}

// Len returns the number of tracked keys.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

// Middleware rejects requests over the limit with 429 and an OAuth error body.
// The onReject callback is invoked for every rejected request when set.
func Middleware(limiter RateLimiterInterface, onReject func(r *http.Request), next http.Handler) http.Handler {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "RateLimiter"))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientAddress(r)
		if !limiter.Allow(key) {
			logger.Warn("Rate limit exceeded", log.String("path", r.URL.Path))
			if onReject != nil {
				onReject(r)
			}
			utils.WriteJSONError(w, "slow_down", "Rate limit exceeded. Please try again later.",
				http.StatusTooManyRequests, map[string]string{"Retry-After": "1"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientAddress returns the address the request originates from.
func ClientAddress(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
