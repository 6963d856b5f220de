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

package managers

import (
	"context"
	"errors"
	"fmt"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/client/store"
	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/registration"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/tokenstore"
	"github.com/asgardeo/oidcengine/internal/system/config"
	"github.com/asgardeo/oidcengine/internal/system/database/provider"
	healthservice "github.com/asgardeo/oidcengine/internal/system/healthcheck/service"
	"github.com/asgardeo/oidcengine/internal/system/log"
)

// Storage types.
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypeDatabase = "database"
)

// storage holds the repositories of the configured backend and the readiness checks probing it.
type storage struct {
	clients  client.RepositoryInterface
	tokens   tokenstore.Stores
	checkers []healthservice.CheckerInterface
}

// initStorage opens the configured backend.
func (sm *ServiceManager) initStorage(ctx context.Context) (*storage, error) {
	switch sm.config.Storage.Type {
	case StorageTypeRedis:
		rdb, err := provider.NewRedisClient(ctx, sm.config.Redis)
		if err != nil {
			return nil, err
		}
		sm.addCloser(func(context.Context) error { return rdb.Close() })
		return &storage{
			clients:  store.NewRedisClientStore(rdb, sm.config.Redis.KeyPrefix),
			tokens:   tokenstore.NewRedisStores(rdb, sm.config.Redis.KeyPrefix),
			checkers: []healthservice.CheckerInterface{healthservice.NewRedisChecker(rdb)},
		}, nil
	case StorageTypeDatabase:
		dbProvider := provider.NewDBProvider(sm.home, sm.config.Database.Runtime)
		if _, err := dbProvider.GetDBClient(ctx); err != nil {
			return nil, err
		}
		sm.addCloser(func(context.Context) error { return dbProvider.Close() })
		return &storage{
			clients:  store.NewSQLClientStore(dbProvider),
			tokens:   tokenstore.NewSQLStores(dbProvider),
			checkers: []healthservice.CheckerInterface{healthservice.NewDatabaseChecker(dbProvider)},
		}, nil
	case StorageTypeMemory, "":
		return &storage{
			clients: store.NewMemoryClientStore(),
			tokens:  tokenstore.NewMemoryStores(),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %q", sm.config.Storage.Type)
	}
}

// seedClients validates the statically configured clients and creates or updates them.
func seedClients(ctx context.Context, validator registration.ValidatorInterface, clients client.RepositoryInterface,
	cfgs []config.ClientConfig) error {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "ServiceManager"))

	for _, c := range cfgs {
		validated, err := validator.Handle(c.ClientID, databag.FromMap(c.Parameters))
		if err != nil {
			return fmt.Errorf("invalid configuration of client %q: %w", c.ClientID, err)
		}

		existing, err := clients.Find(ctx, c.ClientID)
		switch {
		case errors.Is(err, client.ErrClientNotFound):
			if _, err := clients.Create(ctx, c.ClientID, validated, c.OwnerID); err != nil {
				return fmt.Errorf("failed to create client %q: %w", c.ClientID, err)
			}
			logger.Debug("Created configured client", log.String(log.LoggerKeyClientID, c.ClientID))
		case err != nil:
			return fmt.Errorf("failed to load client %q: %w", c.ClientID, err)
		default:
			existing.OwnerID = c.OwnerID
			existing.Parameters = validated
			if err := clients.Save(ctx, existing); err != nil {
				return fmt.Errorf("failed to update client %q: %w", c.ClientID, err)
			}
			logger.Debug("Updated configured client", log.String(log.LoggerKeyClientID, c.ClientID))
		}
	}
	return nil
}
