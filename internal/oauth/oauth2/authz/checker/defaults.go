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

package checker

// Dependencies are the registries and settings of the default checker pipeline.
type Dependencies struct {
	ResponseTypes               ResponseTypeRegistry
	ResponseModes               ResponseModeRegistry
	AllowResponseModeParameter  bool
	EnforceSecuredRedirectURI   bool
	Scopes                      ScopeRegistry
	EnforceState                bool
	PKCE                        PKCERegistry
	EnforcePKCEForPublicClients bool
	TokenTypes                  TokenTypeRegistry
}

// NewDefaultPipeline creates the authorization request checker pipeline.
func NewDefaultPipeline(deps Dependencies) *Pipeline {
	return NewPipeline(
		NewResponseTypeChecker(deps.ResponseTypes, deps.ResponseModes, deps.AllowResponseModeParameter),
		NewRedirectURIChecker(deps.EnforceSecuredRedirectURI),
		NewScopeChecker(deps.Scopes),
		NewStateChecker(deps.EnforceState),
		NonceChecker{},
		PromptChecker{},
		NewPKCEChecker(deps.PKCE, deps.EnforcePKCEForPublicClients),
		NewTokenTypeChecker(deps.TokenTypes),
		DisplayChecker{},
		MaxAgeChecker{},
	)
}
