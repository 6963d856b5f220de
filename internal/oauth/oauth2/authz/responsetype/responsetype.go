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

// Package responsetype implements the response types of the authorization endpoint and the
// chains that process every supported combination of them.
package responsetype

import (
	"context"
	"slices"
	"strings"

	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/authz/model"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
)

// Next continues the response type chain.
type Next interface {
	Process(ctx context.Context, auth *model.Authorization) error
}

// ResponseTypeInterface is a response_type value.
type ResponseTypeInterface interface {
	Name() string
	// ResponseMode returns the response mode used when the type is requested alone.
	ResponseMode() string
	// GrantType returns the grant type a client must register to use the type.
	GrantType() string
	Process(ctx context.Context, auth *model.Authorization, next Next) error
}

// Response modes of the multi-valued response types.
var combinationResponseModes = map[string]string{
	"code token":          constants.ResponseModeFragment,
	"code id_token":       constants.ResponseModeFragment,
	"id_token token":      constants.ResponseModeFragment,
	"code id_token token": constants.ResponseModeFragment,
}

// Chain processes one combination of response types in the declared order.
type Chain struct {
	head Next
}

// Process runs the chain.
func (c *Chain) Process(ctx context.Context, auth *model.Authorization) error {
	return c.head.Process(ctx, auth)
}

type link struct {
	responseType ResponseTypeInterface
	next         Next
}

func (l link) Process(ctx context.Context, auth *model.Authorization) error {
	return l.responseType.Process(ctx, auth, l.next)
}

type terminal struct{}

func (terminal) Process(context.Context, *model.Authorization) error {
	return nil
}

// Manager holds the registered response types and a chain for every permutation of them.
type Manager struct {
	types  map[string]ResponseTypeInterface
	names  []string
	chains map[string]*Chain
}

// NewManager registers the response types and composes their chains.
func NewManager(types ...ResponseTypeInterface) *Manager {
	m := &Manager{
		types:  make(map[string]ResponseTypeInterface, len(types)),
		chains: map[string]*Chain{},
	}
	for _, t := range types {
		m.types[t.Name()] = t
		m.names = append(m.names, t.Name())
	}
	for _, combination := range permutations(m.names) {
		if len(combination) > 1 && slices.Contains(combination, constants.ResponseTypeNone) {
			continue
		}
		m.chains[strings.Join(combination, " ")] = m.compose(combination)
	}
	return m
}

func (m *Manager) compose(names []string) *Chain {
	var next Next = terminal{}
	for i := len(names) - 1; i >= 0; i-- {
		next = link{responseType: m.types[names[i]], next: next}
	}
	return &Chain{head: next}
}

// Has reports whether the response type is registered.
func (m *Manager) Has(name string) bool {
	_, ok := m.types[name]
	return ok
}

// Get returns a registered response type.
func (m *Manager) Get(name string) (ResponseTypeInterface, bool) {
	t, ok := m.types[name]
	return t, ok
}

// IsSupported reports whether the combination of response types can be processed.
func (m *Manager) IsSupported(names []string) bool {
	_, ok := m.chains[strings.Join(names, " ")]
	return ok
}

// Chain returns the chain processing the response types in the given order.
func (m *Manager) Chain(names []string) (*Chain, bool) {
	c, ok := m.chains[strings.Join(names, " ")]
	return c, ok
}

// ResponseMode returns the default response mode of a supported combination.
func (m *Manager) ResponseMode(names []string) string {
	if len(names) == 1 {
		if t, ok := m.types[names[0]]; ok {
			return t.ResponseMode()
		}
	}
	sorted := slices.Clone(names)
	slices.SortFunc(sorted, func(a, b string) int { return strings.Compare(a, b) })
	if mode, ok := combinationResponseModes[strings.Join(sorted, " ")]; ok {
		return mode
	}
	return constants.ResponseModeFragment
}

// Names returns the registered response type names.
func (m *Manager) Names() []string {
	return slices.Clone(m.names)
}

// SupportedCombinations returns every supported response_type value with its members in
// registration order.
func (m *Manager) SupportedCombinations() []string {
	var combinations []string
	for key := range m.chains {
		names := strings.Fields(key)
		if slices.IsSortedFunc(names, func(a, b string) int {
			return slices.Index(m.names, a) - slices.Index(m.names, b)
		}) {
			combinations = append(combinations, key)
		}
	}
	slices.Sort(combinations)
	return combinations
}

// permutations returns every ordering of every non-empty subset of names.
func permutations(names []string) [][]string {
	var result [][]string
	var build func(prefix []string, remaining []string)
	build = func(prefix []string, remaining []string) {
		for i, name := range remaining {
			current := append(slices.Clone(prefix), name)
			result = append(result, current)
			rest := append(slices.Clone(remaining[:i]), remaining[i+1:]...)
			build(current, rest)
		}
	}
	build(nil, names)
	return result
}
