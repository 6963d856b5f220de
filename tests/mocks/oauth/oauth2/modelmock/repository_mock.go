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

// Package modelmock provides mock implementations of the token repositories.
package modelmock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
)

// AuthorizationCodeRepositoryInterfaceMock is a mock implementation of
// model.AuthorizationCodeRepositoryInterface.
type AuthorizationCodeRepositoryInterfaceMock struct {
	mock.Mock
}

// Find provides a mock function with given fields: ctx, id
func (m *AuthorizationCodeRepositoryInterfaceMock) Find(ctx context.Context, id string) (
	*model.AuthorizationCode, error) {
	ret := m.Called(ctx, id)

	var code *model.AuthorizationCode
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.AuthorizationCode); ok {
		code = rf(ctx, id)
	} else if ret.Get(0) != nil {
		code = ret.Get(0).(*model.AuthorizationCode)
	}
	return code, ret.Error(1)
}

// Save provides a mock function with given fields: ctx, code
func (m *AuthorizationCodeRepositoryInterfaceMock) Save(ctx context.Context, code *model.AuthorizationCode) error {
	ret := m.Called(ctx, code)
	return ret.Error(0)
}

// Create provides a mock function with given fields: ctx, code
func (m *AuthorizationCodeRepositoryInterfaceMock) Create(ctx context.Context, code *model.AuthorizationCode) (
	*model.AuthorizationCode, error) {
	ret := m.Called(ctx, code)

	var created *model.AuthorizationCode
	if ret.Get(0) != nil {
		created = ret.Get(0).(*model.AuthorizationCode)
	}
	return created, ret.Error(1)
}

// MarkUsed provides a mock function with given fields: ctx, id
func (m *AuthorizationCodeRepositoryInterfaceMock) MarkUsed(ctx context.Context, id string) error {
	ret := m.Called(ctx, id)
	return ret.Error(0)
}

// RefreshTokenRepositoryInterfaceMock is a mock implementation of
// model.RefreshTokenRepositoryInterface.
type RefreshTokenRepositoryInterfaceMock struct {
	mock.Mock
}

// Find provides a mock function with given fields: ctx, id
func (m *RefreshTokenRepositoryInterfaceMock) Find(ctx context.Context, id string) (*model.RefreshToken, error) {
	ret := m.Called(ctx, id)

	var token *model.RefreshToken
	if ret.Get(0) != nil {
		token = ret.Get(0).(*model.RefreshToken)
	}
	return token, ret.Error(1)
}

// Save provides a mock function with given fields: ctx, token
func (m *RefreshTokenRepositoryInterfaceMock) Save(ctx context.Context, token *model.RefreshToken) error {
	ret := m.Called(ctx, token)
	return ret.Error(0)
}

// Create provides a mock function with given fields: ctx, token
func (m *RefreshTokenRepositoryInterfaceMock) Create(ctx context.Context, token *model.RefreshToken) (
	*model.RefreshToken, error) {
	ret := m.Called(ctx, token)

	var created *model.RefreshToken
	if ret.Get(0) != nil {
		created = ret.Get(0).(*model.RefreshToken)
	}
	return created, ret.Error(1)
}

// AccessTokenRepositoryInterfaceMock is a mock implementation of
// model.AccessTokenRepositoryInterface.
type AccessTokenRepositoryInterfaceMock struct {
	mock.Mock
}

// Find provides a mock function with given fields: ctx, id
func (m *AccessTokenRepositoryInterfaceMock) Find(ctx context.Context, id string) (*model.AccessToken, error) {
	ret := m.Called(ctx, id)

	var token *model.AccessToken
	if ret.Get(0) != nil {
		token = ret.Get(0).(*model.AccessToken)
	}
	return token, ret.Error(1)
}

// Save provides a mock function with given fields: ctx, token
func (m *AccessTokenRepositoryInterfaceMock) Save(ctx context.Context, token *model.AccessToken) error {
	ret := m.Called(ctx, token)
	return ret.Error(0)
}

// Create provides a mock function with given fields: ctx, token
func (m *AccessTokenRepositoryInterfaceMock) Create(ctx context.Context, token *model.AccessToken) (
	*model.AccessToken, error) {
	ret := m.Called(ctx, token)

	var created *model.AccessToken
	if ret.Get(0) != nil {
		created = ret.Get(0).(*model.AccessToken)
	}
	return created, ret.Error(1)
}
