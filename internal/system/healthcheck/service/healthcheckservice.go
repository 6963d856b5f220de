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

// Package service provides health check-related business logic and operations.
package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/asgardeo/oidcengine/internal/system/database/provider"
	"github.com/asgardeo/oidcengine/internal/system/healthcheck/model"
	"github.com/asgardeo/oidcengine/internal/system/log"
)

const checkTimeout = 2 * time.Second

// CheckerInterface probes a single dependency of the server.
type CheckerInterface interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthCheckServiceInterface defines the interface for the health check service.
type HealthCheckServiceInterface interface {
	CheckReadiness(ctx context.Context) model.ServerStatus
}

// HealthCheckService is the default implementation of the HealthCheckServiceInterface.
type HealthCheckService struct {
	checkers []CheckerInterface
}

// NewHealthCheckService creates a health check service probing the given dependencies.
func NewHealthCheckService(checkers ...CheckerInterface) *HealthCheckService {
	return &HealthCheckService{checkers: checkers}
}

// CheckReadiness checks the readiness of the server and its dependencies.
func (hcs *HealthCheckService) CheckReadiness(ctx context.Context) model.ServerStatus {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "HealthCheckService"))

	status := model.ServerStatus{Status: model.StatusUp, ServiceStatus: []model.ServiceStatus{}}
	for _, checker := range hcs.checkers {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := checker.Check(checkCtx)
		cancel()

		serviceStatus := model.ServiceStatus{ServiceName: checker.Name(), Status: model.StatusUp}
		if err != nil {
			logger.Error("Dependency is not ready", log.String("service", checker.Name()), log.Error(err))
			serviceStatus.Status = model.StatusDown
			status.Status = model.StatusDown
		}
		status.ServiceStatus = append(status.ServiceStatus, serviceStatus)
	}
	return status
}

// DatabaseChecker verifies that the runtime database is reachable and carries the schema.
type DatabaseChecker struct {
	dbProvider provider.DBProviderInterface
}

// NewDatabaseChecker creates a checker for the runtime database.
func NewDatabaseChecker(dbProvider provider.DBProviderInterface) *DatabaseChecker {
	return &DatabaseChecker{dbProvider: dbProvider}
}

// Name implements CheckerInterface.
func (c *DatabaseChecker) Name() string {
	return "RuntimeDB"
}

// Check implements CheckerInterface.
func (c *DatabaseChecker) Check(ctx context.Context) error {
	dbClient, err := c.dbProvider.GetDBClient(ctx)
	if err != nil {
		return err
	}
	_, err = dbClient.Query(ctx, queryRuntimeDBTable)
	return err
}

// RedisChecker verifies that the Redis server answers PING.
type RedisChecker struct {
	rdb redis.UniversalClient
}

// NewRedisChecker creates a checker for the Redis server.
func NewRedisChecker(rdb redis.UniversalClient) *RedisChecker {
	return &RedisChecker{rdb: rdb}
}

// Name implements CheckerInterface.
func (c *RedisChecker) Name() string {
	return "Redis"
}

// Check implements CheckerInterface.
func (c *RedisChecker) Check(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
