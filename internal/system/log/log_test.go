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

package log

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type LogTestSuite struct {
	suite.Suite
	originalLogLevel string
}

func TestLogSuite(t *testing.T) {
	suite.Run(t, new(LogTestSuite))
}

func (suite *LogTestSuite) SetupTest() {
	suite.originalLogLevel = os.Getenv(LogLevelEnvironmentVariable)
}

func (suite *LogTestSuite) TearDownTest() {
	if err := os.Setenv(LogLevelEnvironmentVariable, suite.originalLogLevel); err != nil {
		suite.T().Errorf("Failed to restore environment variable: %v", err)
	}
	logger = nil
	once = sync.Once{}
}

func (suite *LogTestSuite) TestInitLoggerWithEnvironmentVariable() {
	testCases := []struct {
		name     string
		logLevel string
		isValid  bool
	}{
		{"DefaultLevel", "", true},
		{"DebugLevel", "debug", true},
		{"InfoLevel", "INFO", true},
		{"WarnLevel", "warn", true},
		{"ErrorLevel", "error", true},
		{"InvalidLevel", "unknown", false},
	}

	for _, tc := range testCases {
		suite.T().Run(tc.name, func(t *testing.T) {
			logger = nil
			once = sync.Once{}

			if tc.logLevel != "" {
				assert.NoError(t, os.Setenv(LogLevelEnvironmentVariable, tc.logLevel))
			} else {
				assert.NoError(t, os.Unsetenv(LogLevelEnvironmentVariable))
			}

			if tc.isValid {
				assert.NotPanics(t, func() {
					_ = GetLogger()
				})
			} else {
				assert.Panics(t, func() {
					_ = GetLogger()
				})
			}
		})
	}
}

func (suite *LogTestSuite) TestDebugEnabled() {
	assert.NoError(suite.T(), os.Setenv(LogLevelEnvironmentVariable, "debug"))
	assert.True(suite.T(), GetLogger().IsDebugEnabled())
}

func (suite *LogTestSuite) TestWithFieldsAndErrors() {
	core, observed := observer.New(zapcore.DebugLevel)
	l := NewLogger(zap.New(core)).With(String(LoggerKeyComponentName, "TestComponent"))

	l.Error("Something failed", Error(errors.New("boom")), Int("attempt", 2), Bool("retry", false))

	entries := observed.All()
	assert.Len(suite.T(), entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(suite.T(), "TestComponent", ctx[LoggerKeyComponentName])
	assert.Equal(suite.T(), "boom", ctx["error"])
	assert.Equal(suite.T(), int64(2), ctx["attempt"])
	assert.Equal(suite.T(), false, ctx["retry"])
}

func (suite *LogTestSuite) TestAccessLogHandler() {
	core, observed := observer.New(zapcore.InfoLevel)
	l := NewLogger(zap.New(core))

	handler := AccessLogHandler(l, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorize?code=secret", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := observed.All()
	assert.Len(suite.T(), entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(suite.T(), "/oauth2/authorize", ctx["path"])
	assert.Equal(suite.T(), int64(http.StatusFound), ctx["status"])
	assert.Equal(suite.T(), int64(2), ctx["size"])
}

func (suite *LogTestSuite) TestMaskString() {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"Empty", "", ""},
		{"Short", "abc", "***"},
		{"Long", "secret", "s****t"},
	}
	for _, tc := range testCases {
		suite.T().Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MaskString(tc.input))
		})
	}
}
