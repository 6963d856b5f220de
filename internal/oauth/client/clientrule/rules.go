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
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/system/utils"
)

// ApplicationTypeRule defaults application_type to "web".
type ApplicationTypeRule struct{}

// PreValidate implements PreValidator.
func (ApplicationTypeRule) PreValidate(_ string, params, validated databag.DataBag) (databag.DataBag, error) {
	value, present := params.Get(constants.ClientParamApplicationType)
	if !present {
		return validated.With(constants.ClientParamApplicationType, constants.ApplicationTypeWeb), nil
	}
	applicationType, ok := value.(string)
	if !ok || (applicationType != constants.ApplicationTypeNative && applicationType != constants.ApplicationTypeWeb) {
		return validated, newMetadataError(`The parameter "application_type" must be either "native" or "web".`)
	}
	return validated.With(constants.ClientParamApplicationType, applicationType), nil
}

// CommonParametersRule copies the descriptive client metadata.
type CommonParametersRule struct{}

var (
	commonTextParameters = []string{
		constants.ClientParamClientName,
		constants.ClientParamSoftwareID,
		constants.ClientParamSoftwareVersion,
	}
	commonURIParameters = []string{
		constants.ClientParamClientURI,
		constants.ClientParamLogoURI,
		constants.ClientParamTosURI,
		constants.ClientParamPolicyURI,
	}
)

// PreValidate implements PreValidator.
func (CommonParametersRule) PreValidate(_ string, params, validated databag.DataBag) (databag.DataBag, error) {
	for _, name := range commonTextParameters {
		value, present := params.Get(name)
		if !present {
			continue
		}
		text, ok := value.(string)
		if !ok {
			return validated, newMetadataError(fmt.Sprintf(`The parameter "%s" must be a string.`, name))
		}
		validated = validated.With(name, text)
	}
	for _, name := range commonURIParameters {
		value, present := params.Get(name)
		if !present {
			continue
		}
		text, ok := value.(string)
		if !ok || !isWebURL(text, false) {
			return validated, newMetadataError(fmt.Sprintf(`The parameter "%s" must be a valid URL.`, name))
		}
		validated = validated.With(name, text)
	}
	return validated, nil
}

// ContactsRule checks that contacts is a list of e-mail addresses.
type ContactsRule struct {
	validate *validator.Validate
}

// NewContactsRule creates a contacts rule.
func NewContactsRule() *ContactsRule {
	return &ContactsRule{validate: validator.New()}
}

// PreValidate implements PreValidator.
func (r *ContactsRule) PreValidate(_ string, params, validated databag.DataBag) (databag.DataBag, error) {
	value, present := params.Get(constants.ClientParamContacts)
	if !present {
		return validated, nil
	}
	contacts, ok := utils.ToStringSlice(value)
	if !ok {
		return validated, newMetadataError(`The parameter "contacts" must be a list of e-mail addresses.`)
	}
	for _, contact := range contacts {
		if err := r.validate.Var(contact, "required,email"); err != nil {
			return validated, newMetadataError(`The parameter "contacts" must be a list of e-mail addresses.`)
		}
	}
	return validated.With(constants.ClientParamContacts, contacts), nil
}

// ClientIDIssuedAtRule records when the client id was issued. An existing value is kept.
type ClientIDIssuedAtRule struct {
	now func() time.Time
}

// NewClientIDIssuedAtRule creates the rule using the given clock.
func NewClientIDIssuedAtRule(now func() time.Time) *ClientIDIssuedAtRule {
	if now == nil {
		now = time.Now
	}
	return &ClientIDIssuedAtRule{now: now}
}

// PreValidate implements PreValidator.
func (r *ClientIDIssuedAtRule) PreValidate(_ string, params, validated databag.DataBag) (databag.DataBag, error) {
	if issuedAt, ok := params.GetInt64(constants.ClientParamClientIDIssuedAt); ok && issuedAt > 0 {
		return validated.With(constants.ClientParamClientIDIssuedAt, issuedAt), nil
	}
	return validated.With(constants.ClientParamClientIDIssuedAt, r.now().Unix()), nil
}

// ScopeRepository is the subset of the scope repository the scope rule needs.
type ScopeRepository interface {
	Has(name string) bool
}

// ScopeRule checks that every registered scope is supported.
type ScopeRule struct {
	scopes ScopeRepository
}

// NewScopeRule creates a scope rule.
func NewScopeRule(scopes ScopeRepository) *ScopeRule {
	return &ScopeRule{scopes: scopes}
}

// PreValidate implements PreValidator.
func (r *ScopeRule) PreValidate(_ string, params, validated databag.DataBag) (databag.DataBag, error) {
	value, present := params.Get(constants.ClientParamScope)
	if !present {
		return validated, nil
	}
	raw, ok := value.(string)
	if !ok {
		return validated, newMetadataError(`The parameter "scope" must be a string.`)
	}
	requested := strings.Fields(raw)
	for _, s := range requested {
		if !r.scopes.Has(s) {
			return validated, newMetadataError(fmt.Sprintf(`The scope "%s" is not supported.`, s))
		}
	}
	return validated.With(constants.ClientParamScope, strings.Join(requested, " ")), nil
}

// TokenTypeRegistry is the subset of the token type manager the token type rule needs.
type TokenTypeRegistry interface {
	Has(name string) bool
	Default() string
}

// TokenTypeRule sets the default token type of the client.
type TokenTypeRule struct {
	tokenTypes TokenTypeRegistry
}

// NewTokenTypeRule creates a token type rule.
func NewTokenTypeRule(tokenTypes TokenTypeRegistry) *TokenTypeRule {
	return &TokenTypeRule{tokenTypes: tokenTypes}
}

// PreValidate implements PreValidator.
func (r *TokenTypeRule) PreValidate(_ string, params, validated databag.DataBag) (databag.DataBag, error) {
	value, present := params.Get(constants.ClientParamTokenType)
	if !present {
		return validated.With(constants.ClientParamTokenType, r.tokenTypes.Default()), nil
	}
	tokenType, ok := value.(string)
	if !ok || !r.tokenTypes.Has(tokenType) {
		return validated, newMetadataError(fmt.Sprintf(`The token type "%v" is not supported.`, value))
	}
	return validated.With(constants.ClientParamTokenType, tokenType), nil
}

var (
	pathTraversalPattern = regexp.MustCompile(`/\.\.?(/|$)`)
	urnPattern           = regexp.MustCompile(`^urn:[a-z0-9][a-z0-9-]{0,31}:`)
)

// RedirectionURIRule validates redirect_uris against the validated response types,
// authentication method and application type, so it runs after the rest of the chain.
type RedirectionURIRule struct{}

// PostValidate implements PostValidator.
func (RedirectionURIRule) PostValidate(_ string, params, validated databag.DataBag) (databag.DataBag, error) {
	redirectURIs := []string{}
	if value, present := params.Get(constants.ClientParamRedirectURIs); present {
		uris, ok := utils.ToStringSlice(value)
		if !ok {
			return validated, newRedirectURIError(`The parameter "redirect_uris" must be a list of URIs.`)
		}
		redirectURIs = uris
	}

	responseTypes := validated.GetStringSlice(constants.ClientParamResponseTypes)
	if len(responseTypes) == 0 {
		return validated.With(constants.ClientParamRedirectURIs, []string{}), nil
	}

	isPublic := validated.GetString(constants.ClientParamTokenEndpointAuthMethod) == constants.AuthMethodNone
	if (isPublic || usesResponseType(responseTypes, constants.ResponseTypeToken)) && len(redirectURIs) == 0 {
		return validated, newRedirectURIError("Non-confidential clients must register at least one redirect URI.")
	}

	isWeb := validated.GetString(constants.ClientParamApplicationType) == constants.ApplicationTypeWeb
	usesImplicit := slices.Contains(validated.GetStringSlice(constants.ClientParamGrantTypes),
		constants.GrantTypeImplicit)
	for _, uri := range redirectURIs {
		if err := checkRedirectURI(uri, isWeb && usesImplicit); err != nil {
			return validated, err
		}
	}
	return validated.With(constants.ClientParamRedirectURIs, redirectURIs), nil
}

func checkRedirectURI(uri string, webImplicit bool) error {
	if strings.HasPrefix(uri, "urn:") {
		if !urnPattern.MatchString(uri) {
			return newRedirectURIError(`The parameter "redirect_uris" must only contain valid URIs.`)
		}
		return nil
	}

	parsed, err := url.Parse(uri)
	if err != nil || parsed.Scheme == "" {
		return newRedirectURIError(`The parameter "redirect_uris" must only contain valid URIs.`)
	}
	if parsed.Fragment != "" || strings.Contains(uri, "#") {
		return newRedirectURIError(`The parameter "redirect_uris" must only contain URIs without fragment.`)
	}
	if pathTraversalPattern.MatchString(parsed.Path) {
		return newRedirectURIError(`The URI listed in the "redirect_uris" parameter must not contain any path traversal.`)
	}
	if webImplicit {
		if parsed.Scheme != "https" {
			return newRedirectURIError(
				`The parameter "redirect_uris" must only contain URIs with the HTTPS scheme for web applications.`)
		}
		if parsed.Hostname() == "localhost" {
			return newRedirectURIError(
				`The parameter "redirect_uris" must not contain "localhost" for web applications.`)
		}
	}
	return nil
}

func usesResponseType(responseTypes []string, responseType string) bool {
	for _, combination := range responseTypes {
		if slices.Contains(strings.Fields(combination), responseType) {
			return true
		}
	}
	return false
}

// isWebURL reports whether value is an absolute http(s) URL, or https only when requested.
func isWebURL(value string, httpsOnly bool) bool {
	parsed, err := url.Parse(value)
	if err != nil || parsed.Host == "" {
		return false
	}
	if httpsOnly {
		return parsed.Scheme == "https"
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}
