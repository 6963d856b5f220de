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

// Package clientrule validates client metadata through an ordered chain of rules.
//
// A rule either validates before handing over to the rest of the chain (PreValidator)
// or validates the output of the rest of the chain (PostValidator). Rules only copy
// the parameters they accept into the validated bag, so anything no rule knows about
// is dropped.
package clientrule

import (
	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
)

// ValidationError is returned when client metadata is rejected.
type ValidationError struct {
	Code        string
	Description string
}

// Error returns the error description.
func (e *ValidationError) Error() string {
	return e.Code + ": " + e.Description
}

func newMetadataError(description string) *ValidationError {
	return &ValidationError{Code: constants.ErrorInvalidClientMetadata, Description: description}
}

func newRedirectURIError(description string) *ValidationError {
	return &ValidationError{Code: constants.ErrorInvalidRedirectURI, Description: description}
}

// Next continues the chain with the parameters validated so far.
type Next interface {
	Handle(clientID string, params, validated databag.DataBag) (databag.DataBag, error)
}

// Rule is one step of the client validation chain.
type Rule interface {
	Handle(clientID string, params, validated databag.DataBag, next Next) (databag.DataBag, error)
}

// PreValidator validates before the rest of the chain runs.
type PreValidator interface {
	PreValidate(clientID string, params, validated databag.DataBag) (databag.DataBag, error)
}

// PostValidator validates the output of the rest of the chain.
type PostValidator interface {
	PostValidate(clientID string, params, validated databag.DataBag) (databag.DataBag, error)
}

type preRule struct {
	validator PreValidator
}

func (r preRule) Handle(clientID string, params, validated databag.DataBag, next Next) (databag.DataBag, error) {
	validated, err := r.validator.PreValidate(clientID, params, validated)
	if err != nil {
		return databag.DataBag{}, err
	}
	return next.Handle(clientID, params, validated)
}

type postRule struct {
	validator PostValidator
}

func (r postRule) Handle(clientID string, params, validated databag.DataBag, next Next) (databag.DataBag, error) {
	validated, err := next.Handle(clientID, params, validated)
	if err != nil {
		return databag.DataBag{}, err
	}
	return r.validator.PostValidate(clientID, params, validated)
}

// Pre adapts a PreValidator into a rule.
func Pre(v PreValidator) Rule {
	return preRule{validator: v}
}

// Post adapts a PostValidator into a rule.
func Post(v PostValidator) Rule {
	return postRule{validator: v}
}

type link struct {
	rule Rule
	next Next
}

func (l link) Handle(clientID string, params, validated databag.DataBag) (databag.DataBag, error) {
	return l.rule.Handle(clientID, params, validated, l.next)
}

type terminal struct{}

func (terminal) Handle(_ string, _, validated databag.DataBag) (databag.DataBag, error) {
	return validated, nil
}

// Pipeline is an immutable chain of rules composed once.
type Pipeline struct {
	head Next
}

// NewPipeline composes the rules back to front. Rules run in the given order.
func NewPipeline(rules ...Rule) *Pipeline {
	var next Next = terminal{}
	for i := len(rules) - 1; i >= 0; i-- {
		next = link{rule: rules[i], next: next}
	}
	return &Pipeline{head: next}
}

// Handle validates the client parameters and returns the canonical metadata.
func (p *Pipeline) Handle(clientID string, params databag.DataBag) (databag.DataBag, error) {
	return p.head.Handle(clientID, params, databag.DataBag{})
}
