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
	"fmt"

	"github.com/asgardeo/oidcengine/internal/oauth/client"
	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/system/database/provider"
	dbutils "github.com/asgardeo/oidcengine/internal/system/database/utils"
	"github.com/asgardeo/oidcengine/internal/system/log"
)

const sqlStoreLoggerComponentName = "SQLClientStore"

// SQLClientStore persists clients in the runtime database.
type SQLClientStore struct {
	DBProvider provider.DBProviderInterface
}

// NewSQLClientStore creates a new SQL backed client store.
func NewSQLClientStore(dbProvider provider.DBProviderInterface) *SQLClientStore {
	return &SQLClientStore{DBProvider: dbProvider}
}

// Find returns the client with the given id.
func (s *SQLClientStore) Find(ctx context.Context, clientID string) (*client.Client, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, sqlStoreLoggerComponentName))

	dbClient, err := s.DBProvider.GetDBClient(ctx)
	if err != nil {
		logger.Error("Failed to get database client", log.Error(err))
		return nil, err
	}

	results, err := dbClient.Query(ctx, QueryGetClient, clientID)
	if err != nil {
		return nil, fmt.Errorf("error while retrieving client: %w", err)
	}
	if len(results) == 0 {
		return nil, client.ErrClientNotFound
	}
	return buildClientFromRow(results[0])
}

// Save updates the stored client.
func (s *SQLClientStore) Save(ctx context.Context, c *client.Client) error {
	dbClient, err := s.DBProvider.GetDBClient(ctx)
	if err != nil {
		return err
	}

	parameters, err := json.Marshal(c.Parameters)
	if err != nil {
		return fmt.Errorf("failed to encode client parameters: %w", err)
	}
	rows, err := dbClient.Execute(ctx, QueryUpdateClient, c.ID, c.OwnerID, string(parameters), c.Deleted)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	if rows == 0 {
		return client.ErrClientNotFound
	}
	return nil
}

// Create inserts a new client.
func (s *SQLClientStore) Create(ctx context.Context, clientID string, parameters databag.DataBag,
	ownerID string) (*client.Client, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, sqlStoreLoggerComponentName))

	dbClient, err := s.DBProvider.GetDBClient(ctx)
	if err != nil {
		logger.Error("Failed to get database client", log.Error(err))
		return nil, err
	}

	if existing, err := dbClient.Query(ctx, QueryGetClient, clientID); err != nil {
		return nil, fmt.Errorf("error while checking client: %w", err)
	} else if len(existing) > 0 {
		return nil, client.ErrClientAlreadyExists
	}

	encoded, err := json.Marshal(parameters)
	if err != nil {
		return nil, fmt.Errorf("failed to encode client parameters: %w", err)
	}
	if _, err := dbClient.Execute(ctx, QueryInsertClient, clientID, ownerID, string(encoded), false); err != nil {
		logger.Error("Failed to insert client", log.Error(err))
		return nil, fmt.Errorf("failed to insert client: %w", err)
	}
	return &client.Client{ID: clientID, OwnerID: ownerID, Parameters: parameters}, nil
}

func buildClientFromRow(row map[string]interface{}) (*client.Client, error) {
	clientID, err := dbutils.GetString(row, "client_id")
	if err != nil {
		return nil, err
	}
	ownerID, err := dbutils.GetString(row, "owner_id")
	if err != nil {
		return nil, err
	}
	rawParameters, err := dbutils.GetString(row, "parameters")
	if err != nil {
		return nil, err
	}
	deleted, err := dbutils.GetBool(row, "deleted")
	if err != nil {
		return nil, err
	}

	var parameters databag.DataBag
	if rawParameters != "" {
		if err := json.Unmarshal([]byte(rawParameters), &parameters); err != nil {
			return nil, fmt.Errorf("failed to decode client parameters: %w", err)
		}
	}
	return &client.Client{ID: clientID, OwnerID: ownerID, Parameters: parameters, Deleted: deleted}, nil
}
