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
	"fmt"
	"slices"
	"strings"

	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/system/utils"
)

// GrantTypeRegistry is the subset of the grant handler registry the flow rule needs.
type GrantTypeRegistry interface {
	Has(grantType string) bool
}

// ResponseTypeRegistry is the subset of the response type manager the flow rule needs.
type ResponseTypeRegistry interface {
	IsSupported(responseTypes []string) bool
}

// GrantTypeFlowRule validates grant_types and response_types and their consistency.
type GrantTypeFlowRule struct {
	grantTypes    GrantTypeRegistry
	responseTypes ResponseTypeRegistry
}

// NewGrantTypeFlowRule creates a grant type flow rule.
func NewGrantTypeFlowRule(grantTypes GrantTypeRegistry, responseTypes ResponseTypeRegistry) *GrantTypeFlowRule {
	return &GrantTypeFlowRule{grantTypes: grantTypes, responseTypes: responseTypes}
}

// PreValidate implements PreValidator.
func (r *GrantTypeFlowRule) PreValidate(_ string, params, validated databag.DataBag) (databag.DataBag, error) {
	grantTypes := []string{constants.GrantTypeAuthorizationCode}
	if value, present := params.Get(constants.ClientParamGrantTypes); present {
		values, ok := utils.ToStringSlice(value)
		if !ok {
			return validated, newMetadataError(`The parameter "grant_types" must be a list of strings.`)
		}
		grantTypes = values
	}
	for _, grantType := range grantTypes {
		if grantType != constants.GrantTypeImplicit && !r.grantTypes.Has(grantType) {
			return validated, newMetadataError(fmt.Sprintf(`The grant type "%s" is not supported.`, grantType))
		}
	}

	responseTypes := []string{}
	if slices.Contains(grantTypes, constants.GrantTypeAuthorizationCode) {
		responseTypes = []string{constants.ResponseTypeCode}
	}
	if value, present := params.Get(constants.ClientParamResponseTypes); present {
		values, ok := utils.ToStringSlice(value)
		if !ok {
			return validated, newMetadataError(`The parameter "response_types" must be a list of strings.`)
		}
		responseTypes = values
	}

	for _, combination := range responseTypes {
		names := strings.Fields(combination)
		if len(names) == 0 || !r.responseTypes.IsSupported(names) {
			return validated, newMetadataError(
				fmt.Sprintf(`The response type "%s" is not supported.`, combination))
		}
		for _, name := range names {
			if err := checkResponseTypeGrant(name, grantTypes); err != nil {
				return validated, err
			}
		}
	}

	return validated.
		With(constants.ClientParamGrantTypes, grantTypes).
		With(constants.ClientParamResponseTypes, responseTypes), nil
}

func checkResponseTypeGrant(responseType string, grantTypes []string) error {
	switch responseType {
	case constants.ResponseTypeCode:
		if !slices.Contains(grantTypes, constants.GrantTypeAuthorizationCode) {
			return newMetadataError(`The response type "code" requires the "authorization_code" grant type.`)
		}
	case constants.ResponseTypeToken, constants.ResponseTypeIDToken:
		if !slices.Contains(grantTypes, constants.GrantTypeImplicit) {
			return newMetadataError(
				fmt.Sprintf(`The response type "%s" requires the "implicit" grant type.`, responseType))
		}
	}
	return nil
}
