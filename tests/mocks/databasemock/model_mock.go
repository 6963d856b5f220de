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

package databasemock

import (
	"context"

	"github.com/asgardeo/oidcengine/internal/system/database/model"
)

// MockTx is a mock implementation of the TxInterface.
type MockTx struct {
	// MockCommit defines the behavior for the Commit method.
	MockCommit func() error

	// MockExec defines the behavior for the Exec method.
	MockExec func(query model.DBQuery, args ...any) (int64, error)

	// CommitCalls tracks the calls to Commit.
	CommitCalls int

	// RollbackCalls tracks the calls to Rollback.
	RollbackCalls int

	// ExecCalls tracks the arguments passed to Exec.
	ExecCalls []struct {
		Query model.DBQuery
		Args  []any
	}
}

// Commit mocks the Commit method of the TxInterface.
func (m *MockTx) Commit() error {
	m.CommitCalls++

	if m.MockCommit != nil {
		return m.MockCommit()
	}
	return nil
}

// Rollback mocks the Rollback method of the TxInterface.
func (m *MockTx) Rollback() error {
	m.RollbackCalls++
	return nil
}

// Exec mocks the Exec method of the TxInterface.
func (m *MockTx) Exec(_ context.Context, query model.DBQuery, args ...any) (int64, error) {
	m.ExecCalls = append(m.ExecCalls, struct {
		Query model.DBQuery
		Args  []any
	}{query, args})

	if m.MockExec != nil {
		return m.MockExec(query, args...)
	}
	return 1, nil
}
