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

// Package checker validates the parameters of authorization requests. Checkers run in a fixed
// order since later checkers rely on the state resolved by earlier ones.
package checker

import (
	"context"

	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/authz/model"
)

// Next continues the checker chain.
type Next interface {
	Check(ctx context.Context, auth *model.Authorization) error
}

// ParameterChecker validates one aspect of the request, updates the authorization and calls next.
type ParameterChecker interface {
	Check(ctx context.Context, auth *model.Authorization, next Next) error
}

type link struct {
	checker ParameterChecker
	next    Next
}

func (l link) Check(ctx context.Context, auth *model.Authorization) error {
	return l.checker.Check(ctx, auth, l.next)
}

type terminal struct{}

func (terminal) Check(context.Context, *model.Authorization) error {
	return nil
}

// Pipeline runs the checkers in order.
type Pipeline struct {
	head Next
}

// NewPipeline composes the checkers into a pipeline.
func NewPipeline(checkers ...ParameterChecker) *Pipeline {
	var next Next = terminal{}
	for i := len(checkers) - 1; i >= 0; i-- {
		next = link{checker: checkers[i], next: next}
	}
	return &Pipeline{head: next}
}

// Check validates the request. Failures are returned as *model.AuthorizationError holding the
// partial authorization.
func (p *Pipeline) Check(ctx context.Context, auth *model.Authorization) error {
	if err := p.head.Check(ctx, auth); err != nil {
		return model.NewAuthorizationError(err, auth)
	}
	return nil
}
