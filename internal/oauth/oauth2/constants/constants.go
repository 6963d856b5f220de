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

// Package constants defines constants used across the OAuth2 module.
package constants

// OAuth2 request parameters.
const (
	GrantType           = "grant_type"
	ClientID            = "client_id"
	ClientSecret        = "client_secret"
	ClientAssertion     = "client_assertion"
	ClientAssertionType = "client_assertion_type"
	RedirectURI         = "redirect_uri"
	Scope               = "scope"
	Code                = "code"
	CodeVerifier        = "code_verifier"
	CodeChallenge       = "code_challenge"
	CodeChallengeMethod = "code_challenge_method"
	RefreshToken        = "refresh_token"
	AccessToken         = "access_token"
	IDToken             = "id_token"
	ExpiresIn           = "expires_in"
	ResponseType        = "response_type"
	ResponseMode        = "response_mode"
	State               = "state"
	Nonce               = "nonce"
	Prompt              = "prompt"
	Display             = "display"
	MaxAge              = "max_age"
	Claims              = "claims"
	ClaimsLocales       = "claims_locales"
	UILocales           = "ui_locales"
	LoginHint           = "login_hint"
	TokenType           = "token_type"
	Assertion           = "assertion"
	Request             = "request"
	RequestURI          = "request_uri"
	Token               = "token"
	TokenTypeHint       = "token_type_hint"
	Error               = "error"
	ErrorDescription    = "error_description"
)

// Client metadata parameters.
const (
	ClientParamApplicationType               = "application_type"
	ClientParamRedirectURIs                  = "redirect_uris"
	ClientParamResponseTypes                 = "response_types"
	ClientParamGrantTypes                    = "grant_types"
	ClientParamTokenEndpointAuthMethod       = "token_endpoint_auth_method"
	ClientParamClientSecret                  = "client_secret"
	ClientParamClientSecretExpiresAt         = "client_secret_expires_at"
	ClientParamClientIDIssuedAt              = "client_id_issued_at"
	ClientParamJWKS                          = "jwks"
	ClientParamJWKSURI                       = "jwks_uri"
	ClientParamScope                         = "scope"
	ClientParamContacts                      = "contacts"
	ClientParamTokenType                     = "token_type"
	ClientParamIDTokenSignedResponseAlg      = "id_token_signed_response_alg"
	ClientParamIDTokenEncryptedResponseAlg   = "id_token_encrypted_response_alg"
	ClientParamIDTokenEncryptedResponseEnc   = "id_token_encrypted_response_enc"
	ClientParamRequestObjectSigningAlg       = "request_object_signing_alg"
	ClientParamTokenEndpointAuthSigningAlg   = "token_endpoint_auth_signing_alg"
	ClientParamClientName                    = "client_name"
	ClientParamClientURI                     = "client_uri"
	ClientParamLogoURI                       = "logo_uri"
	ClientParamTosURI                        = "tos_uri"
	ClientParamPolicyURI                     = "policy_uri"
	ClientParamSoftwareID                    = "software_id"
	ClientParamSoftwareVersion               = "software_version"
	ApplicationTypeWeb                       = "web"
	ApplicationTypeNative                    = "native"
	ClientAssertionTypeJWTBearer             = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
	DefaultIDTokenSignedResponseAlgorithm    = "RS256"
	DefaultTokenEndpointAuthenticationMethod = "client_secret_basic"
)

// Client authentication methods.
const (
	AuthMethodNone              = "none"
	AuthMethodClientSecretBasic = "client_secret_basic"
	AuthMethodClientSecretPost  = "client_secret_post"
	AuthMethodClientSecretJWT   = "client_secret_jwt"
	AuthMethodPrivateKeyJWT     = "private_key_jwt"
)

// OAuth2 endpoints.
const (
	OAuth2TokenEndpoint         = "/oauth2/token" // #nosec G101
	OAuth2AuthorizationEndpoint = "/oauth2/authorize"
	OAuth2IntrospectionEndpoint = "/oauth2/introspect"
	OAuth2RevokeEndpoint        = "/oauth2/revoke"
	OAuth2UserInfoEndpoint      = "/oauth2/userinfo"
	OAuth2JWKSEndpoint          = "/oauth2/jwks"
	OAuth2RegistrationEndpoint  = "/oauth2/register"
)

// OAuth2 grant types.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeClientCredentials = "client_credentials"
	GrantTypeImplicit          = "implicit"
	GrantTypeRefreshToken      = "refresh_token"
	GrantTypeJWTBearer         = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

// OAuth2 response types.
const (
	ResponseTypeCode    = "code"
	ResponseTypeToken   = "token"
	ResponseTypeIDToken = "id_token"
	ResponseTypeNone    = "none"
)

// OAuth2 response modes.
const (
	ResponseModeQuery    = "query"
	ResponseModeFragment = "fragment"
	ResponseModeFormPost = "form_post"
)

// OAuth2 token types.
const (
	TokenTypeBearer = "Bearer"
	TokenTypeMAC    = "MAC"
)

// Token type hints.
const (
	TokenTypeHintAccessToken  = "access_token"
	TokenTypeHintRefreshToken = "refresh_token"
)

// OpenID Connect values.
const (
	ScopeOpenID        = "openid"
	ScopeOfflineAccess = "offline_access"
	PromptNone         = "none"
	PromptLogin        = "login"
	PromptConsent      = "consent"
	PromptSelectAcct   = "select_account"
)

// OAuth2 error codes.
const (
	ErrorInvalidRequest          = "invalid_request"
	ErrorInvalidClient           = "invalid_client"
	ErrorInvalidGrant            = "invalid_grant"
	ErrorUnauthorizedClient      = "unauthorized_client"
	ErrorUnsupportedGrantType    = "unsupported_grant_type"
	ErrorInvalidScope            = "invalid_scope"
	ErrorServerError             = "server_error"
	ErrorUnsupportedResponseType = "unsupported_response_type"
	ErrorAccessDenied            = "access_denied"
	ErrorLoginRequired           = "login_required"
	ErrorConsentRequired         = "consent_required"
	ErrorInvalidRequestObject    = "invalid_request_object"
	ErrorInvalidRequestURI       = "invalid_request_uri"
	ErrorInvalidToken            = "invalid_token"
	ErrorInsufficientScope       = "insufficient_scope"
	ErrorInvalidClientMetadata   = "invalid_client_metadata"
	ErrorInvalidRedirectURI      = "invalid_redirect_uri"
	ErrorUnsupportedTokenType    = "unsupported_token_type"
	ErrorRequestNotSupported     = "request_not_supported"
	ErrorRequestURINotSupported  = "request_uri_not_supported"
)
