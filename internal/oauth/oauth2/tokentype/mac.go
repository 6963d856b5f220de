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

package tokentype

import (
	"context"
	"crypto/hmac"
	"crypto/sha1" // #nosec G505
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/system/log"
	"github.com/asgardeo/oidcengine/internal/system/utils"
)

// MAC token parameters.
const (
	ParamMACKey       = "mac_key"
	ParamMACAlgorithm = "mac_algorithm"

	AlgorithmHMACSHA1   = "hmac-sha-1"
	AlgorithmHMACSHA256 = "hmac-sha-256"
)

const macKeyBytes = 32

// MACCredentials holds the attributes of a MAC authorization header.
type MACCredentials struct {
	ID    string
	TS    string
	Nonce string
	Ext   string
	MAC   string
}

// MACHandler implements MAC access authentication tokens.
type MACHandler struct {
	algorithm         string
	timestampLifetime time.Duration
	now               func() time.Time
}

// NewMACHandler creates a MAC handler issuing keys for the given algorithm.
func NewMACHandler(algorithm string, timestampLifetime time.Duration) *MACHandler {
	if algorithm == "" {
		algorithm = AlgorithmHMACSHA256
	}
	return &MACHandler{algorithm: algorithm, timestampLifetime: timestampLifetime, now: time.Now}
}

// Name implements HandlerInterface.
func (h *MACHandler) Name() string {
	return constants.TokenTypeMAC
}

// SchemesParameters implements HandlerInterface.
func (h *MACHandler) SchemesParameters() []string {
	return []string{"MAC"}
}

// FindToken implements HandlerInterface.
func (h *MACHandler) FindToken(r *http.Request) (string, interface{}, error) {
	header := r.Header.Get("Authorization")
	if len(header) < 4 || !strings.EqualFold(header[:4], "MAC ") {
		return "", nil, nil
	}
	credentials, err := parseMACHeader(header[4:])
	if err != nil {
		return "", nil, model.NewInvalidRequestError(err.Error())
	}
	return credentials.ID, credentials, nil
}

// IsValid implements HandlerInterface.
func (h *MACHandler) IsValid(_ context.Context, token *model.AccessToken, credentials interface{},
	r *http.Request) bool {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "MACHandler"))

	creds, ok := credentials.(*MACCredentials)
	if !ok || token.TokenType() != constants.TokenTypeMAC {
		return false
	}

	ts, err := strconv.ParseInt(creds.TS, 10, 64)
	if err != nil {
		return false
	}
	drift := h.now().Sub(time.Unix(ts, 0))
	if drift < 0 {
		drift = -drift
	}
	if drift > h.timestampLifetime {
		logger.Debug("MAC timestamp outside the accepted window", log.String("drift", drift.String()))
		return false
	}

	key := token.Parameters.GetString(ParamMACKey)
	newHash := hashFor(token.Parameters.GetString(ParamMACAlgorithm))
	if key == "" || newHash == nil {
		return false
	}
	expected := SignMAC(newHash, key, NormalizedRequestString(creds, r))
	presented, err := base64.StdEncoding.DecodeString(creds.MAC)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, presented)
}

// Prepare implements HandlerInterface.
func (h *MACHandler) Prepare(parameters databag.DataBag) (databag.DataBag, error) {
	key, err := utils.GenerateSecureToken(macKeyBytes)
	if err != nil {
		return parameters, fmt.Errorf("failed to generate MAC key: %w", err)
	}
	return parameters.With(ParamMACKey, key).With(ParamMACAlgorithm, h.algorithm), nil
}

// ResponseParameters implements HandlerInterface.
func (h *MACHandler) ResponseParameters(token *model.AccessToken) databag.DataBag {
	return databag.New(
		ParamMACKey, token.Parameters.GetString(ParamMACKey),
		ParamMACAlgorithm, token.Parameters.GetString(ParamMACAlgorithm),
	)
}

// NormalizedRequestString builds the string covered by the MAC of a request.
func NormalizedRequestString(creds *MACCredentials, r *http.Request) string {
	host, port := r.Host, ""
	if h, p, err := net.SplitHostPort(r.Host); err == nil {
		host, port = h, p
	}
	if port == "" {
		port = "80"
		if r.TLS != nil {
			port = "443"
		}
	}
	return strings.Join([]string{
		creds.TS, creds.Nonce, r.Method, r.URL.RequestURI(), strings.ToLower(host), port, creds.Ext,
	}, "\n") + "\n"
}

// SignMAC computes the MAC of the normalized request string.
func SignMAC(newHash func() hash.Hash, key, normalized string) []byte {
	mac := hmac.New(newHash, []byte(key))
	mac.Write([]byte(normalized))
	return mac.Sum(nil)
}

func hashFor(algorithm string) func() hash.Hash {
	switch algorithm {
	case AlgorithmHMACSHA1:
		return sha1.New
	case AlgorithmHMACSHA256:
		return sha256.New
	default:
		return nil
	}
}

func parseMACHeader(value string) (*MACCredentials, error) {
	attributes := map[string]string{}
	for _, part := range splitMACAttributes(value) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, quoted, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("malformed MAC attribute %q", part)
		}
		unquoted, err := strconv.Unquote(strings.TrimSpace(quoted))
		if err != nil {
			return nil, fmt.Errorf("MAC attribute %q must be quoted", name)
		}
		attributes[strings.TrimSpace(name)] = unquoted
	}

	creds := &MACCredentials{
		ID:    attributes["id"],
		TS:    attributes["ts"],
		Nonce: attributes["nonce"],
		Ext:   attributes["ext"],
		MAC:   attributes["mac"],
	}
	if creds.ID == "" || creds.TS == "" || creds.Nonce == "" || creds.MAC == "" {
		return nil, errors.New("the MAC authorization header must carry id, ts, nonce and mac")
	}
	return creds, nil
}

// splitMACAttributes splits the header on commas that sit outside quoted strings.
func splitMACAttributes(value string) []string {
	var parts []string
	start, quoted, escaped := 0, false, false
	for i := 0; i < len(value); i++ {
		switch c := value[i]; {
		case escaped:
			escaped = false
		case quoted && c == '\\':
			escaped = true
		case c == '"':
			quoted = !quoted
		case c == ',' && !quoted:
			parts = append(parts, value[start:i])
			start = i + 1
		}
	}
	return append(parts, value[start:])
}
