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

package clientrule

import (
	"time"
)

// Dependencies holds the registries the default rules validate against.
type Dependencies struct {
	AuthMethods             AuthMethodRegistry
	GrantTypes              GrantTypeRegistry
	ResponseTypes           ResponseTypeRegistry
	Scopes                  ScopeRepository
	TokenTypes              TokenTypeRegistry
	SecretLifetime          time.Duration
	IDTokenKeyAlgorithms    []string
	IDTokenContentEncodings []string
	Now                     func() time.Time
}

// NewDefaultPipeline builds the client validation pipeline with every rule in registration order.
func NewDefaultPipeline(deps Dependencies) *Pipeline {
	return NewPipeline(
		Pre(ApplicationTypeRule{}),
		Pre(CommonParametersRule{}),
		Pre(NewContactsRule()),
		Pre(NewClientIDIssuedAtRule(deps.Now)),
		Pre(JwksRule{}),
		Pre(NewTokenEndpointAuthMethodRule(deps.AuthMethods, deps.SecretLifetime, deps.Now)),
		Pre(NewGrantTypeFlowRule(deps.GrantTypes, deps.ResponseTypes)),
		Pre(NewScopeRule(deps.Scopes)),
		Pre(NewTokenTypeRule(deps.TokenTypes)),
		Pre(NewIDTokenAlgorithmsRule(deps.IDTokenKeyAlgorithms, deps.IDTokenContentEncodings)),
		Post(RedirectionURIRule{}),
	)
}
