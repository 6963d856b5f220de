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

// Package managers provides functionality for managing and registering system services.
package managers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/asgardeo/oidcengine/internal/cert"
	"github.com/asgardeo/oidcengine/internal/oauth/client/clientrule"
	"github.com/asgardeo/oidcengine/internal/oauth/jwks"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/authz"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/authz/checker"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/authz/requestobject"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/authz/responsemode"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/authz/responsetype"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/clientauth"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/constants"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/granthandlers"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/idtoken"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/introspect"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/issuer"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/pkce"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/registration"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/resource"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/revoke"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/token"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/tokentype"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/userinfo"
	"github.com/asgardeo/oidcengine/internal/oauth/scope"
	"github.com/asgardeo/oidcengine/internal/oauth/user"
	"github.com/asgardeo/oidcengine/internal/system/audit"
	"github.com/asgardeo/oidcengine/internal/system/cache"
	"github.com/asgardeo/oidcengine/internal/system/config"
	healthhandler "github.com/asgardeo/oidcengine/internal/system/healthcheck/handler"
	healthservice "github.com/asgardeo/oidcengine/internal/system/healthcheck/service"
	syshttp "github.com/asgardeo/oidcengine/internal/system/http"
	"github.com/asgardeo/oidcengine/internal/system/instrumentation"
	"github.com/asgardeo/oidcengine/internal/system/jose"
	"github.com/asgardeo/oidcengine/internal/system/log"
	"github.com/asgardeo/oidcengine/internal/system/ratelimit"
	"github.com/asgardeo/oidcengine/internal/system/services"
)

const (
	realm              = "oidcengine"
	keySetCacheSize    = 256
	keySetCacheTTL     = 10 * time.Minute
	assertionCacheSize = 10000
	assertionCacheTTL  = 10 * time.Minute
)

// ServiceManagerInterface defines the interface for managing services.
type ServiceManagerInterface interface {
	RegisterServices(ctx context.Context) error
	Close(ctx context.Context) error
}

// ServiceManager builds the protocol components from the configuration and registers their
// services with the multiplexer.
type ServiceManager struct {
	mux                *http.ServeMux
	config             *config.Config
	home               string
	signingKey         jose.Key
	instrumentationOps []instrumentation.Option
	closers            []func(ctx context.Context) error
}

// NewServiceManager creates a new instance of ServiceManager. Relative key and database paths
// are resolved against home.
func NewServiceManager(mux *http.ServeMux, cfg *config.Config, home string, signingKey jose.Key,
	opts ...instrumentation.Option) ServiceManagerInterface {
	return &ServiceManager{
		mux:                mux,
		config:             cfg,
		home:               home,
		signingKey:         signingKey,
		instrumentationOps: opts,
	}
}

// RegisterServices wires every component and registers all the services with the multiplexer.
func (sm *ServiceManager) RegisterServices(ctx context.Context) error {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "ServiceManager"))
	oauthCfg := sm.config.OAuth

	inst, err := instrumentation.New(sm.config.Instrumentation, sm.instrumentationOps...)
	if err != nil {
		return err
	}
	sm.addCloser(inst.Shutdown)
	metrics := inst.Metrics()

	auditor := sm.newAuditor()
	sm.addCloser(func(context.Context) error { return auditor.Close() })

	storage, err := sm.initStorage(ctx)
	if err != nil {
		return err
	}

	idTokenEncryption, err := cert.LoadEncryption(oauthCfg.IDToken.Encryption, sm.home)
	if err != nil {
		return err
	}
	assertionEncryption, err := cert.LoadEncryption(oauthCfg.ClientAssertion.Encryption, sm.home)
	if err != nil {
		return err
	}
	requestObjectEncryption, err := cert.LoadEncryption(oauthCfg.Authorization.RequestObject.Encryption, sm.home)
	if err != nil {
		return err
	}

	httpClient := syshttp.NewHTTPClientWithTimeout(seconds(sm.config.HTTPClient.Timeout))
	keySets := jose.NewKeySetResolver(httpClient,
		cache.NewCache[*jose.KeySet]("KeySetCache", keySetCacheSize, keySetCacheTTL))
	joseProvider := jose.NewProvider()
	audiences := []string{oauthCfg.Issuer, oauthCfg.Issuer + constants.OAuth2TokenEndpoint}

	scopes := scope.NewMemoryRepositoryFromConfig(oauthCfg.Scopes)
	users := user.NewMemoryRepositoryFromConfig(oauthCfg.Users)
	pkceMethods := pkce.NewRegistry(oauthCfg.PKCE.AllowPlain)
	tokenTypes := tokentype.NewManager(oauthCfg.TokenType.Default,
		tokentype.NewBearerHandler(realm, oauthCfg.TokenType.Bearer.Precedence),
		tokentype.NewMACHandler(oauthCfg.TokenType.MAC.Algorithm, seconds(oauthCfg.TokenType.MAC.TimestampLifetime)),
	)

	assertionConfig := clientauth.AssertionConfig{
		Audiences:  audiences,
		JOSE:       joseProvider,
		KeySets:    keySets,
		Replay:     cache.NewCache[bool]("ClientAssertionCache", assertionCacheSize, assertionCacheTTL),
		Encryption: assertionEncryption,
	}
	clientAuth := clientauth.NewManager(storage.clients,
		clientauth.NoneMethod{},
		clientauth.ClientSecretBasicMethod{Realm: realm},
		clientauth.ClientSecretPostMethod{},
		clientauth.NewClientSecretJWTMethod(assertionConfig),
		clientauth.NewPrivateKeyJWTMethod(assertionConfig),
	)

	tokenIssuer := issuer.NewIssuer(storage.tokens.AccessTokens, storage.tokens.RefreshTokens, tokenTypes,
		seconds(oauthCfg.AccessToken.ValidityPeriod), seconds(oauthCfg.RefreshToken.ValidityPeriod))
	idTokens := idtoken.NewBuilder(oauthCfg.Issuer, seconds(oauthCfg.IDToken.ValidityPeriod), joseProvider,
		[]jose.Key{sm.signingKey}, keySets, idTokenEncryption)

	responseTypes := responsetype.NewManager(
		responsetype.NewCodeResponseType(storage.tokens.Codes, seconds(oauthCfg.AuthorizationCode.ValidityPeriod)),
		responsetype.NewTokenResponseType(tokenIssuer),
		responsetype.NewIDTokenResponseType(idTokens),
		responsetype.NoneResponseType{},
	)
	responseModes := responsemode.NewDefaultManager()

	grantHandlers := granthandlers.NewGrantHandlerProvider(
		granthandlers.NewAuthorizationCodeGrantHandler(storage.tokens.Codes, pkceMethods),
		granthandlers.NewRefreshTokenGrantHandler(storage.tokens.RefreshTokens),
		granthandlers.NewClientCredentialsGrantHandler(),
		granthandlers.NewJWTBearerGrantHandler(granthandlers.JWTBearerConfig{
			Audiences:      audiences,
			TrustedIssuers: trustedIssuers(oauthCfg.TrustedIssuers),
			JOSE:           joseProvider,
			KeySets:        keySets,
		}),
	)

	clientRules := clientrule.NewDefaultPipeline(clientrule.Dependencies{
		AuthMethods:             clientAuth,
		GrantTypes:              grantHandlers,
		ResponseTypes:           responseTypes,
		Scopes:                  scopes,
		TokenTypes:              tokenTypes,
		SecretLifetime:          seconds(oauthCfg.ClientRegistration.SecretLifetime),
		IDTokenKeyAlgorithms:    encryptionKeyAlgorithms(idTokenEncryption),
		IDTokenContentEncodings: encryptionContentEncodings(idTokenEncryption),
		Now:                     time.Now,
	})
	if err := seedClients(ctx, clientRules, storage.clients, oauthCfg.Clients); err != nil {
		return err
	}

	checkers := checker.NewDefaultPipeline(checker.Dependencies{
		ResponseTypes:               responseTypes,
		ResponseModes:               responseModes,
		AllowResponseModeParameter:  oauthCfg.Authorization.AllowResponseModeParam,
		EnforceSecuredRedirectURI:   oauthCfg.Authorization.EnforceSecuredRedirectURI,
		Scopes:                      scopes,
		EnforceState:                oauthCfg.Authorization.EnforceState,
		PKCE:                        pkceMethods,
		EnforcePKCEForPublicClients: oauthCfg.PKCE.EnforceForPublicClients,
		TokenTypes:                  tokenTypes,
	})
	requestObjects := requestobject.NewLoader(requestobject.Config{
		Enabled:             oauthCfg.Authorization.RequestObject.Enabled,
		AllowRequestURI:     oauthCfg.Authorization.RequestObject.AllowRequestURI,
		AllowUnsigned:       oauthCfg.Authorization.RequestObject.AllowUnsigned,
		MaxRequestURILength: oauthCfg.Authorization.RequestObject.MaxRequestURILen,
		Audience:            oauthCfg.Issuer,
		Encryption:          requestObjectEncryption,
	}, joseProvider, keySets, httpClient)

	authorizeHandler := authz.NewAuthorizeHandler(storage.clients,
		user.NewHeaderResolver(oauthCfg.Authorization.UserHeader, users), requestObjects, checkers,
		responseTypes, responseModes, auditor, metrics)
	tokenHandler := token.NewTokenHandler(token.Dependencies{
		ClientAuth:        clientAuth,
		GrantHandlers:     grantHandlers,
		Processors:        token.NewProcessors(token.NewScopeProcessor(scopes), token.NewTokenTypeProcessor(tokenTypes)),
		Issuer:            tokenIssuer,
		RefreshTokens:     storage.tokens.RefreshTokens,
		IDTokens:          idTokens,
		Users:             users,
		RenewRefreshToken: oauthCfg.RefreshToken.RenewOnGrant,
		Auditor:           auditor,
		Metrics:           metrics,
	})
	introspectHandler := introspect.NewTokenIntrospectionHandler(
		introspect.NewTokenIntrospectionService(storage.tokens.AccessTokens, storage.tokens.RefreshTokens,
			oauthCfg.Issuer), clientAuth)
	revokeHandler := revoke.NewTokenRevocationHandler(
		revoke.NewTokenRevocationService(storage.tokens.AccessTokens, storage.tokens.RefreshTokens),
		clientAuth, auditor, metrics)
	registrationHandler := registration.NewRegistrationHandler(clientRules, storage.clients,
		registration.Config{HashSecrets: oauthCfg.ClientRegistration.HashSecrets}, auditor, metrics)

	var limiter ratelimit.RateLimiterInterface
	if sm.config.RateLimit.Enabled {
		limiter = ratelimit.NewRateLimiter(sm.config.RateLimit)
	}
	onReject := func(r *http.Request) {
		metrics.RecordRateLimitExceeded(r.Context(), r.URL.Path)
		auditor.Record(r.Context(), audit.Event{
			Type:      audit.EventRateLimitExceeded,
			IPAddress: ratelimit.ClientAddress(r),
			Details:   map[string]interface{}{"endpoint": r.URL.Path},
		})
	}

	opts := services.RouteOptions{AllowedOrigins: sm.config.CORS.AllowedOrigins, Instrumentation: inst}
	services.NewHealthCheckService(sm.mux,
		healthhandler.NewHealthCheckHandler(healthservice.NewHealthCheckService(storage.checkers...)), opts)
	services.NewAuthorizationService(sm.mux, authorizeHandler, opts)
	services.NewTokenService(sm.mux, tokenHandler, limiter, onReject, opts)
	services.NewIntrospectionAPIService(sm.mux, introspectHandler, opts)
	services.NewRevocationAPIService(sm.mux, revokeHandler, opts)
	services.NewJWKSAPIService(sm.mux, jwks.NewJWKSHandler(jwks.NewJWKSService(sm.signingKey)), opts)
	services.NewUserInfoService(sm.mux, userinfo.NewUserInfoHandler(users),
		resource.NewMiddleware(tokenTypes, storage.tokens.AccessTokens), opts)
	services.NewRegistrationService(sm.mux, registrationHandler, limiter, onReject, opts)

	logger.Info("Registered services", log.String("storage", sm.config.Storage.Type),
		log.String("issuer", oauthCfg.Issuer), log.Int("clients", len(oauthCfg.Clients)))
	return nil
}

// Close releases the connections and flushes the telemetry opened by RegisterServices, in
// reverse order of creation.
func (sm *ServiceManager) Close(ctx context.Context) error {
	var err error
	for i := len(sm.closers) - 1; i >= 0; i-- {
		err = errors.Join(err, sm.closers[i](ctx))
	}
	sm.closers = nil
	if err != nil {
		return fmt.Errorf("failed to close services: %w", err)
	}
	return nil
}

func (sm *ServiceManager) addCloser(closer func(ctx context.Context) error) {
	sm.closers = append(sm.closers, closer)
}

// newAuditor writes audit events to the log and, when enabled, to Kafka.
func (sm *ServiceManager) newAuditor() *audit.Auditor {
	sinks := []audit.SinkInterface{audit.NewLogSink(log.GetLogger())}
	if sm.config.Audit.Kafka.Enabled {
		sinks = append(sinks, audit.NewKafkaSink(sm.config.Audit.Kafka))
	}
	return audit.NewAuditor(sinks...)
}

func seconds(value int64) time.Duration {
	return time.Duration(value) * time.Second
}

func trustedIssuers(cfgs []config.TrustedIssuerConfig) []granthandlers.TrustedIssuer {
	issuers := make([]granthandlers.TrustedIssuer, 0, len(cfgs))
	for _, c := range cfgs {
		issuers = append(issuers, granthandlers.TrustedIssuer{
			Issuer:     c.Issuer,
			JWKS:       c.JWKS,
			JWKSURI:    c.JWKSURI,
			Algorithms: c.AllowedAlgorithms,
		})
	}
	return issuers
}

func encryptionKeyAlgorithms(encryption jose.Option[jose.Encryption]) []string {
	if value, ok := encryption.Get(); ok {
		return value.KeyAlgorithms
	}
	return nil
}

func encryptionContentEncodings(encryption jose.Option[jose.Encryption]) []string {
	if value, ok := encryption.Get(); ok {
		return value.ContentEncryptions
	}
	return nil
}
