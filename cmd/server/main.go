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

// Package main is the entry point for starting the OpenID Connect authorization server.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/asgardeo/oidcengine/internal/cert"
	"github.com/asgardeo/oidcengine/internal/system/config"
	"github.com/asgardeo/oidcengine/internal/system/log"
	"github.com/asgardeo/oidcengine/internal/system/managers"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger := log.GetLogger()
	defer logger.Sync()

	serverHome := getServerHome(logger)

	cfg := initConfigurations(logger, serverHome)
	if cfg == nil {
		logger.Fatal("Failed to initialize configurations")
	}

	signingKey, err := cert.LoadSigningKey(cfg.OAuth.SigningKey, serverHome)
	if err != nil {
		logger.Fatal("Failed to load the signing key", log.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	serviceManager := managers.NewServiceManager(mux, cfg, serverHome, signingKey)
	if err := serviceManager.RegisterServices(ctx); err != nil {
		logger.Fatal("Failed to register the services", log.Error(err))
	}

	server, serverAddr := createHTTPServer(logger, cfg, mux)
	listener, err := createListener(logger, cfg, serverAddr, serverHome)
	if err != nil {
		logger.Fatal("Failed to start the listener", log.Error(err))
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()
	logger.Info("OIDC engine started", log.String("address", serverAddr),
		log.Bool("tls", !cfg.Server.HTTPOnly), log.String("issuer", cfg.OAuth.Issuer))

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to serve requests", log.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutting down the server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down the server gracefully", log.Error(err))
	}
	if err := serviceManager.Close(shutdownCtx); err != nil {
		logger.Error("Failed to release the services", log.Error(err))
	}
}

// getServerHome retrieves and returns the server home directory.
func getServerHome(logger *log.Logger) string {
	// Parse project directory from command line arguments.
	projectHome := ""
	projectHomeFlag := flag.String("home", "", "Path to the server home directory")
	flag.Parse()

	if *projectHomeFlag != "" {
		logger.Info("Using home from command line argument", log.String("home", *projectHomeFlag))
		projectHome = *projectHomeFlag
	} else {
		// If no command line argument is provided, use the current working directory.
		dir, dirErr := os.Getwd()
		if dirErr != nil {
			logger.Fatal("Failed to get current working directory", log.Error(dirErr))
		}
		projectHome = dir
	}

	return projectHome
}

// initConfigurations loads the server configurations from the home directory.
func initConfigurations(logger *log.Logger, serverHome string) *config.Config {
	configFilePath := path.Join(serverHome, "repository/conf/deployment.yaml")
	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		logger.Fatal("Failed to load configurations", log.Error(err))
	}
	return cfg
}

// createListener opens a TLS listener unless the server is configured for plain HTTP.
func createListener(logger *log.Logger, cfg *config.Config, serverAddr, serverHome string) (net.Listener, error) {
	if cfg.Server.HTTPOnly {
		logger.Info("TLS is not enabled, starting server without TLS")
		return net.Listen("tcp", serverAddr)
	}

	tlsConfig, err := cert.GetTLSConfig(cfg, serverHome)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS configuration: %w", err)
	}
	return tls.Listen("tcp", serverAddr, tlsConfig)
}

// createHTTPServer creates and configures an HTTP server with common settings.
func createHTTPServer(logger *log.Logger, cfg *config.Config, mux *http.ServeMux) (*http.Server, string) {
	// Wrap the multiplexer with AccessLogHandler.
	wrappedMux := log.AccessLogHandler(logger, mux)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Hostname, cfg.Server.Port)

	server := &http.Server{
		Addr:              serverAddr,
		Handler:           wrappedMux,
		ReadHeaderTimeout: 10 * time.Second, // Mitigate Slowloris attacks
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return server, serverAddr
}
