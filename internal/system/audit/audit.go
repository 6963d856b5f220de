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

// Package audit records security relevant protocol events to the configured sinks.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/asgardeo/oidcengine/internal/system/log"
)

// Audit event types.
const (
	EventTokenIssued         = "token_issued"
	EventTokenRefreshed      = "token_refreshed"
	EventTokenRevoked        = "token_revoked"
	EventCodeIssued          = "authorization_code_issued"
	EventCodeReuseDetected   = "authorization_code_reuse"
	EventClientAuthFailed    = "client_authentication_failed"
	EventClientRegistered    = "client_registered"
	EventAuthorizationDenied = "authorization_denied"
	EventRateLimitExceeded   = "rate_limit_exceeded"
)

// Event is a single audit record. Subjects are hashed before leaving the process.
type Event struct {
	Type      string                 `json:"type"`
	ClientID  string                 `json:"client_id,omitempty"`
	Subject   string                 `json:"subject_hash,omitempty"`
	IPAddress string                 `json:"ip_address,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// SinkInterface delivers audit events to a destination.
type SinkInterface interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// AuditorInterface records audit events.
type AuditorInterface interface {
	Record(ctx context.Context, event Event)
	Close() error
}

// Auditor fans events out to its sinks. A failing sink never fails the request.
type Auditor struct {
	sinks []SinkInterface
	now   func() time.Time
}

// NewAuditor creates an auditor writing to the given sinks.
func NewAuditor(sinks ...SinkInterface) *Auditor {
	return &Auditor{sinks: sinks, now: time.Now}
}

// Record stamps and publishes the event.
func (a *Auditor) Record(ctx context.Context, event Event) {
	if a == nil {
		return
	}
	event.Timestamp = a.now().UTC()
	if event.Subject != "" {
		event.Subject = HashSubject(event.Subject)
	}
	for _, sink := range a.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			log.GetLogger().With(log.String(log.LoggerKeyComponentName, "Auditor")).
				Error("Failed to publish audit event", log.String("type", event.Type), log.Error(err))
		}
	}
}

// Close closes every sink.
func (a *Auditor) Close() error {
	if a == nil {
		return nil
	}
	var err error
	for _, sink := range a.sinks {
		err = errors.Join(err, sink.Close())
	}
	return err
}

// HashSubject returns a stable, non reversible representation of a subject identifier.
func HashSubject(subject string) string {
	sum := sha256.Sum256([]byte(subject))
	return hex.EncodeToString(sum[:8])
}
