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

// Package provider provides functionality for managing database connections and clients.
package provider

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/asgardeo/oidcengine/internal/system/config"
	"github.com/asgardeo/oidcengine/internal/system/database/client"
	"github.com/asgardeo/oidcengine/internal/system/database/model"
	"github.com/asgardeo/oidcengine/internal/system/log"
)

const (
	dataSourceTypePostgres = "postgres"
	dataSourceTypeSQLite   = "sqlite"
)

// dbConfig represents the local database configuration.
type dbConfig struct {
	dsn        string
	driverName string
}

// DBProviderInterface defines the interface for getting database clients.
type DBProviderInterface interface {
	GetDBClient(ctx context.Context) (client.DBClientInterface, error)
	Close() error
}

// DBProvider lazily opens the runtime database and hands out a shared client.
type DBProvider struct {
	home       string
	dataSource config.DataSource
	dbClient   client.DBClientInterface
	mutex      sync.RWMutex
}

// NewDBProvider creates a provider for the given data source. Relative SQLite
// paths are resolved against the server home directory.
func NewDBProvider(home string, dataSource config.DataSource) DBProviderInterface {
	return &DBProvider{
		home:       home,
		dataSource: dataSource,
	}
}

// GetDBClient returns the database client, opening the connection on first use.
// Not required to close the returned client manually since it manages its own connection pool.
func (d *DBProvider) GetDBClient(ctx context.Context) (client.DBClientInterface, error) {
	d.mutex.RLock()
	if d.dbClient != nil {
		dbClient := d.dbClient
		d.mutex.RUnlock()
		return dbClient, nil
	}
	d.mutex.RUnlock()

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.dbClient != nil {
		return d.dbClient, nil
	}

	dbClient, err := d.openClient(ctx)
	if err != nil {
		return nil, err
	}
	d.dbClient = dbClient
	return dbClient, nil
}

// Close closes the underlying connection pool if it was opened.
func (d *DBProvider) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.dbClient == nil {
		return nil
	}
	err := d.dbClient.Close()
	d.dbClient = nil
	return err
}

// openClient opens and verifies a database connection.
func (d *DBProvider) openClient(ctx context.Context) (client.DBClientInterface, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "DBProvider"))

	cfg, err := d.getDBConfig()
	if err != nil {
		return nil, err
	}
	dbName := d.dataSource.Name

	db, err := sql.Open(cfg.driverName, cfg.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %s: %w", dbName, err)
	}

	if d.dataSource.MaxOpenConns > 0 {
		db.SetMaxOpenConns(d.dataSource.MaxOpenConns)
	}
	if d.dataSource.MaxIdleConns > 0 {
		db.SetMaxIdleConns(d.dataSource.MaxIdleConns)
	}
	if d.dataSource.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(d.dataSource.ConnMaxLifetime) * time.Second)
	}

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database %s: %w (close error: %w)", dbName, err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database %s: %w", dbName, err)
	}

	logger.Info("Connected to the runtime database", log.String("type", cfg.driverName))
	return client.NewDBClient(model.NewDB(db), cfg.driverName), nil
}

// getDBConfig returns the driver and DSN for the configured data source.
func (d *DBProvider) getDBConfig() (dbConfig, error) {
	var cfg dbConfig

	switch d.dataSource.Type {
	case dataSourceTypePostgres:
		cfg.driverName = dataSourceTypePostgres
		cfg.dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.dataSource.Hostname, d.dataSource.Port, d.dataSource.Username, d.dataSource.Password,
			d.dataSource.Name, d.dataSource.SSLMode)
	case dataSourceTypeSQLite:
		cfg.driverName = dataSourceTypeSQLite
		options := d.dataSource.Options
		if options != "" && options[0] != '?' {
			options = "?" + options
		}
		cfg.dsn = fmt.Sprintf("%s%s", path.Join(d.home, d.dataSource.Path), options)
	default:
		return cfg, fmt.Errorf("unsupported data source type: %q", d.dataSource.Type)
	}

	return cfg, nil
}
