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

// Package responsemode delivers authorization responses to the client redirect URI.
package responsemode

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
)

// ErrInvalidErrorParameter is returned when an error code holds characters that may not be
// sent to the client.
var ErrInvalidErrorParameter = errors.New("invalid characters in error parameters")

var errorCharPattern = regexp.MustCompile(`^[\x20-\x21\x23-\x5B\x5D-\x7E]*$`)

// ResponseModeInterface writes an authorization response.
type ResponseModeInterface interface {
	Name() string
	Respond(w http.ResponseWriter, redirectURI string, params databag.DataBag) error
}

// Manager holds the supported response modes.
type Manager struct {
	modes map[string]ResponseModeInterface
	names []string
}

// NewManager registers the given response modes.
func NewManager(modes ...ResponseModeInterface) *Manager {
	m := &Manager{modes: make(map[string]ResponseModeInterface, len(modes))}
	for _, mode := range modes {
		m.modes[mode.Name()] = mode
		m.names = append(m.names, mode.Name())
	}
	return m
}

// NewDefaultManager registers the query, fragment and form_post modes.
func NewDefaultManager() *Manager {
	return NewManager(QueryMode{}, FragmentMode{}, FormPostMode{})
}

// Has reports whether the response mode is supported.
func (m *Manager) Has(name string) bool {
	_, ok := m.modes[name]
	return ok
}

// Get returns a supported response mode.
func (m *Manager) Get(name string) (ResponseModeInterface, bool) {
	mode, ok := m.modes[name]
	return mode, ok
}

// Names returns the supported response modes.
func (m *Manager) Names() []string {
	return slices.Clone(m.names)
}

// QueryMode appends the response to the query component of the redirect URI.
type QueryMode struct{}

// Name returns "query".
func (QueryMode) Name() string { return constants.ResponseModeQuery }

// Respond redirects with the parameters in the query.
func (QueryMode) Respond(w http.ResponseWriter, redirectURI string, params databag.DataBag) error {
	target, values, err := prepare(redirectURI, params)
	if err != nil {
		return err
	}
	query := target.Query()
	for k, v := range values {
		query[k] = v
	}
	target.RawQuery = query.Encode()
	redirect(w, target.String())
	return nil
}

// FragmentMode places the response in the fragment component of the redirect URI.
type FragmentMode struct{}

// Name returns "fragment".
func (FragmentMode) Name() string { return constants.ResponseModeFragment }

// Respond redirects with the parameters in the fragment.
func (FragmentMode) Respond(w http.ResponseWriter, redirectURI string, params databag.DataBag) error {
	target, values, err := prepare(redirectURI, params)
	if err != nil {
		return err
	}
	target.Fragment = ""
	target.RawFragment = ""
	redirect(w, target.String()+"#"+values.Encode())
	return nil
}

var formPostTemplate = template.Must(template.New("form_post").Parse(`<!DOCTYPE html>
<html>
<head><title>Submit This Form</title></head>
<body onload="javascript:document.forms[0].submit()">
<form method="post" action="{{.Action}}">
{{range .Fields}}<input type="hidden" name="{{.Name}}" value="{{.Value}}"/>
{{end}}<noscript><button type="submit">Continue</button></noscript>
</form>
</body>
</html>
`))

type formField struct {
	Name  string
	Value string
}

// FormPostMode returns an auto-submitting HTML form posting the response to the redirect URI.
type FormPostMode struct{}

// Name returns "form_post".
func (FormPostMode) Name() string { return constants.ResponseModeFormPost }

// Respond writes the form.
func (FormPostMode) Respond(w http.ResponseWriter, redirectURI string, params databag.DataBag) error {
	target, _, err := prepare(redirectURI, params)
	if err != nil {
		return err
	}
	fields := make([]formField, 0, params.Len())
	params.Range(func(key string, value interface{}) bool {
		fields = append(fields, formField{Name: key, Value: fmt.Sprint(value)})
		return true
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(http.StatusOK)
	return formPostTemplate.Execute(w, struct {
		Action string
		Fields []formField
	}{Action: target.String(), Fields: fields})
}

func prepare(redirectURI string, params databag.DataBag) (*url.URL, url.Values, error) {
	target, err := url.Parse(redirectURI)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redirect URI: %w", err)
	}
	if !errorCharPattern.MatchString(params.GetString(constants.Error)) {
		return nil, nil, ErrInvalidErrorParameter
	}
	if description, ok := params.Get(constants.ErrorDescription); ok {
		params = params.With(constants.ErrorDescription, sanitizeErrorDescription(fmt.Sprint(description)))
	}
	values := url.Values{}
	params.Range(func(key string, value interface{}) bool {
		values.Set(key, fmt.Sprint(value))
		return true
	})
	return target, values, nil
}

// sanitizeErrorDescription maps a description onto the RFC 6749 error_description
// character set. Quotes and backslashes are replaced, other characters outside it dropped.
func sanitizeErrorDescription(description string) string {
	if errorCharPattern.MatchString(description) {
		return description
	}
	var b strings.Builder
	for _, r := range description {
		switch {
		case r == '"':
			b.WriteRune('\'')
		case r == '\\':
			b.WriteRune('/')
		case r >= 0x20 && r <= 0x7E:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func redirect(w http.ResponseWriter, location string) {
	w.Header().Set("Location", location)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusFound)
}
