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

package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys. Token and code values must never be recorded.
const (
	AttrClientID     = "oauth.client_id"
	AttrGrantType    = "oauth.grant_type"
	AttrResponseType = "oauth.response_type"
	AttrError        = "oauth.error"
	AttrOutcome      = "oauth.outcome"
	AttrHTTPMethod   = "http.method"
	AttrHTTPEndpoint = "http.endpoint"
	AttrHTTPStatus   = "http.status_code"
)

// Metrics holds the metric instruments of the server. A nil *Metrics records nothing.
type Metrics struct {
	HTTPRequestsTotal     metric.Int64Counter
	HTTPRequestDuration   metric.Float64Histogram
	AuthorizationRequests metric.Int64Counter
	TokensIssued          metric.Int64Counter
	TokenErrors           metric.Int64Counter
	TokensRevoked         metric.Int64Counter
	ClientsRegistered     metric.Int64Counter
	RateLimitExceeded     metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter("oauth.http.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}")); err != nil {
		return nil, fmt.Errorf("failed to create http.requests.total counter: %w", err)
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram("oauth.http.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("failed to create http.request.duration histogram: %w", err)
	}
	if m.AuthorizationRequests, err = meter.Int64Counter("oauth.authorization.requests",
		metric.WithDescription("Number of processed authorization requests"),
		metric.WithUnit("{request}")); err != nil {
		return nil, fmt.Errorf("failed to create authorization.requests counter: %w", err)
	}
	if m.TokensIssued, err = meter.Int64Counter("oauth.tokens.issued",
		metric.WithDescription("Number of token responses issued"),
		metric.WithUnit("{token}")); err != nil {
		return nil, fmt.Errorf("failed to create tokens.issued counter: %w", err)
	}
	if m.TokenErrors, err = meter.Int64Counter("oauth.token.errors",
		metric.WithDescription("Number of failed token requests"),
		metric.WithUnit("{error}")); err != nil {
		return nil, fmt.Errorf("failed to create token.errors counter: %w", err)
	}
	if m.TokensRevoked, err = meter.Int64Counter("oauth.tokens.revoked",
		metric.WithDescription("Number of revoked tokens"),
		metric.WithUnit("{token}")); err != nil {
		return nil, fmt.Errorf("failed to create tokens.revoked counter: %w", err)
	}
	if m.ClientsRegistered, err = meter.Int64Counter("oauth.clients.registered",
		metric.WithDescription("Number of registered clients"),
		metric.WithUnit("{client}")); err != nil {
		return nil, fmt.Errorf("failed to create clients.registered counter: %w", err)
	}
	if m.RateLimitExceeded, err = meter.Int64Counter("oauth.rate_limit.exceeded",
		metric.WithDescription("Number of requests rejected by the rate limiter"),
		metric.WithUnit("{request}")); err != nil {
		return nil, fmt.Errorf("failed to create rate_limit.exceeded counter: %w", err)
	}
	return m, nil
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, endpoint string, status int, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPEndpoint, endpoint),
		attribute.Int(AttrHTTPStatus, status),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, durationMs, attrs)
}

// RecordAuthorization records the outcome of an authorization request.
func (m *Metrics) RecordAuthorization(ctx context.Context, clientID, responseType, outcome string) {
	if m == nil {
		return
	}
	m.AuthorizationRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrClientID, clientID),
		attribute.String(AttrResponseType, responseType),
		attribute.String(AttrOutcome, outcome),
	))
}

// RecordTokenIssued records a successful token response.
func (m *Metrics) RecordTokenIssued(ctx context.Context, clientID, grantType string) {
	if m == nil {
		return
	}
	m.TokensIssued.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrClientID, clientID),
		attribute.String(AttrGrantType, grantType),
	))
}

// RecordTokenError records a failed token request.
func (m *Metrics) RecordTokenError(ctx context.Context, grantType, errorCode string) {
	if m == nil {
		return
	}
	m.TokenErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrGrantType, grantType),
		attribute.String(AttrError, errorCode),
	))
}

// RecordTokenRevoked records a token revocation.
func (m *Metrics) RecordTokenRevoked(ctx context.Context, clientID string) {
	if m == nil {
		return
	}
	m.TokensRevoked.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrClientID, clientID)))
}

// RecordClientRegistered records a dynamic client registration.
func (m *Metrics) RecordClientRegistered(ctx context.Context, clientType string) {
	if m == nil {
		return
	}
	m.ClientsRegistered.Add(ctx, 1, metric.WithAttributes(attribute.String("oauth.client_type", clientType)))
}

// RecordRateLimitExceeded records a request rejected by the rate limiter.
func (m *Metrics) RecordRateLimitExceeded(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	m.RateLimitExceeded.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrHTTPEndpoint, endpoint)))
}
