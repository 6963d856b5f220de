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

package audit

import (
	"context"

	"github.com/asgardeo/oidcengine/internal/system/log"
)

// LogSink writes audit events to the server log.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a sink on top of the given logger.
func NewLogSink(logger *log.Logger) *LogSink {
	return &LogSink{logger: logger.With(log.String(log.LoggerKeyComponentName, "Audit"))}
}

// Publish logs the event.
func (s *LogSink) Publish(_ context.Context, event Event) error {
	s.logger.Info("security_audit",
		log.String("event_type", event.Type),
		log.String(log.LoggerKeyClientID, event.ClientID),
		log.String("subject_hash", event.Subject),
		log.String("ip_address", event.IPAddress),
		log.Any("details", event.Details),
	)
	return nil
}

// Close is a no-op for the log sink.
func (s *LogSink) Close() error {
	return nil
}
