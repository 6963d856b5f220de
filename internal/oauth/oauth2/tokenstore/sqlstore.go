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

package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/asgardeo/oidcengine/internal/oauth/databag"
	"github.com/asgardeo/oidcengine/internal/oauth/oauth2/model"
	"github.com/asgardeo/oidcengine/internal/system/database/client"
	dbmodel "github.com/asgardeo/oidcengine/internal/system/database/model"
	"github.com/asgardeo/oidcengine/internal/system/database/provider"
	dbutils "github.com/asgardeo/oidcengine/internal/system/database/utils"
	"github.com/asgardeo/oidcengine/internal/system/log"
)

const sqlStoreLoggerComponentName = "SQLTokenStore"

// NewSQLStores creates token repositories backed by the runtime database.
func NewSQLStores(dbProvider provider.DBProviderInterface) Stores {
	return Stores{
		Codes:         NewSQLAuthorizationCodeStore(dbProvider),
		AccessTokens:  NewSQLAccessTokenStore(dbProvider),
		RefreshTokens: NewSQLRefreshTokenStore(dbProvider),
	}
}

// SQLAuthorizationCodeStore persists authorization codes in the runtime database.
type SQLAuthorizationCodeStore struct {
	DBProvider provider.DBProviderInterface
}

// NewSQLAuthorizationCodeStore creates a SQL backed code store.
func NewSQLAuthorizationCodeStore(dbProvider provider.DBProviderInterface) *SQLAuthorizationCodeStore {
	return &SQLAuthorizationCodeStore{DBProvider: dbProvider}
}

// Find returns the code with the given id.
func (s *SQLAuthorizationCodeStore) Find(ctx context.Context, id string) (*model.AuthorizationCode, error) {
	dbClient, err := getDBClient(ctx, s.DBProvider)
	if err != nil {
		return nil, err
	}

	results, err := dbClient.Query(ctx, QueryGetAuthorizationCode, id)
	if err != nil {
		return nil, fmt.Errorf("error while retrieving authorization code: %w", err)
	}
	if len(results) == 0 {
		return nil, model.ErrTokenNotFound
	}
	return buildAuthorizationCode(results[0])
}

// Save updates the mutable state of a stored code.
func (s *SQLAuthorizationCodeStore) Save(ctx context.Context, code *model.AuthorizationCode) error {
	dbClient, err := getDBClient(ctx, s.DBProvider)
	if err != nil {
		return err
	}

	parameters, metadata, err := encodeBags(code.Parameters, code.Metadata)
	if err != nil {
		return err
	}
	rows, err := dbClient.Execute(ctx, QueryUpdateAuthorizationCode, code.ID, parameters, metadata,
		code.Used, code.Revoked)
	if err != nil {
		return fmt.Errorf("failed to update authorization code: %w", err)
	}
	if rows == 0 {
		return model.ErrTokenNotFound
	}
	return nil
}

// Create inserts a new code.
func (s *SQLAuthorizationCodeStore) Create(ctx context.Context,
	code *model.AuthorizationCode) (*model.AuthorizationCode, error) {
	dbClient, err := getDBClient(ctx, s.DBProvider)
	if err != nil {
		return nil, err
	}
	if err := assignID(&code.ID); err != nil {
		return nil, err
	}

	queryParameters, err := encodeJSON(code.QueryParameters)
	if err != nil {
		return nil, err
	}
	parameters, metadata, err := encodeBags(code.Parameters, code.Metadata)
	if err != nil {
		return nil, err
	}
	_, err = dbClient.Execute(ctx, QueryInsertAuthorizationCode, code.ID, code.ClientID, code.UserAccountID,
		queryParameters, code.RedirectURI, toUnix(code.ExpiresAt), parameters, metadata,
		code.ResourceServerID, code.Used, code.Revoked)
	if err != nil {
		return nil, fmt.Errorf("failed to insert authorization code: %w", err)
	}
	return code, nil
}

// MarkUsed flags the code as used with a conditional update, so that only one
// of several concurrent redemptions affects a row.
func (s *SQLAuthorizationCodeStore) MarkUsed(ctx context.Context, id string) error {
	dbClient, err := getDBClient(ctx, s.DBProvider)
	if err != nil {
		return err
	}

	rows, err := dbClient.Execute(ctx, QueryMarkAuthorizationCodeUsed, id)
	if err != nil {
		return fmt.Errorf("failed to mark authorization code used: %w", err)
	}
	if rows > 0 {
		return nil
	}

	results, err := dbClient.Query(ctx, QueryGetAuthorizationCode, id)
	if err != nil {
		return fmt.Errorf("error while retrieving authorization code: %w", err)
	}
	if len(results) == 0 {
		return model.ErrTokenNotFound
	}
	return model.ErrCodeAlreadyUsed
}

// SQLAccessTokenStore persists access tokens in the runtime database.
type SQLAccessTokenStore struct {
	DBProvider provider.DBProviderInterface
}

// NewSQLAccessTokenStore creates a SQL backed access token store.
func NewSQLAccessTokenStore(dbProvider provider.DBProviderInterface) *SQLAccessTokenStore {
	return &SQLAccessTokenStore{DBProvider: dbProvider}
}

// Find returns the token with the given id.
func (s *SQLAccessTokenStore) Find(ctx context.Context, id string) (*model.AccessToken, error) {
	dbClient, err := getDBClient(ctx, s.DBProvider)
	if err != nil {
		return nil, err
	}

	results, err := dbClient.Query(ctx, QueryGetAccessToken, id)
	if err != nil {
		return nil, fmt.Errorf("error while retrieving access token: %w", err)
	}
	if len(results) == 0 {
		return nil, model.ErrTokenNotFound
	}

	row, err := readTokenRow(results[0])
	if err != nil {
		return nil, err
	}
	return &model.AccessToken{
		ID:               row.id,
		ClientID:         row.clientID,
		ResourceOwnerID:  row.resourceOwnerID,
		IssuedAt:         row.issuedAt,
		ExpiresAt:        row.expiresAt,
		Parameters:       row.parameters,
		Metadata:         row.metadata,
		ResourceServerID: row.resourceServerID,
		Revoked:          row.revoked,
	}, nil
}

// Save updates the mutable state of a stored token.
func (s *SQLAccessTokenStore) Save(ctx context.Context, token *model.AccessToken) error {
	dbClient, err := getDBClient(ctx, s.DBProvider)
	if err != nil {
		return err
	}

	parameters, metadata, err := encodeBags(token.Parameters, token.Metadata)
	if err != nil {
		return err
	}
	rows, err := dbClient.Execute(ctx, QueryUpdateAccessToken, token.ID, parameters, metadata, token.Revoked)
	if err != nil {
		return fmt.Errorf("failed to update access token: %w", err)
	}
	if rows == 0 {
		return model.ErrTokenNotFound
	}
	return nil
}

// Create inserts a new token.
func (s *SQLAccessTokenStore) Create(ctx context.Context, token *model.AccessToken) (*model.AccessToken, error) {
	dbClient, err := getDBClient(ctx, s.DBProvider)
	if err != nil {
		return nil, err
	}
	if err := assignID(&token.ID); err != nil {
		return nil, err
	}

	parameters, metadata, err := encodeBags(token.Parameters, token.Metadata)
	if err != nil {
		return nil, err
	}
	_, err = dbClient.Execute(ctx, QueryInsertAccessToken, token.ID, token.ClientID, token.ResourceOwnerID,
		toUnix(token.IssuedAt), toUnix(token.ExpiresAt), parameters, metadata, token.ResourceServerID,
		token.Revoked)
	if err != nil {
		return nil, fmt.Errorf("failed to insert access token: %w", err)
	}
	return token, nil
}

// SQLRefreshTokenStore persists refresh tokens and the access tokens issued with them.
type SQLRefreshTokenStore struct {
	DBProvider provider.DBProviderInterface
}

// NewSQLRefreshTokenStore creates a SQL backed refresh token store.
func NewSQLRefreshTokenStore(dbProvider provider.DBProviderInterface) *SQLRefreshTokenStore {
	return &SQLRefreshTokenStore{DBProvider: dbProvider}
}

// Find returns the token with the given id.
func (s *SQLRefreshTokenStore) Find(ctx context.Context, id string) (*model.RefreshToken, error) {
	dbClient, err := getDBClient(ctx, s.DBProvider)
	if err != nil {
		return nil, err
	}

	results, err := dbClient.Query(ctx, QueryGetRefreshToken, id)
	if err != nil {
		return nil, fmt.Errorf("error while retrieving refresh token: %w", err)
	}
	if len(results) == 0 {
		return nil, model.ErrTokenNotFound
	}
	row, err := readTokenRow(results[0])
	if err != nil {
		return nil, err
	}

	linkResults, err := dbClient.Query(ctx, QueryGetRefreshTokenAccessTokens, id)
	if err != nil {
		return nil, fmt.Errorf("error while retrieving linked access tokens: %w", err)
	}
	var accessTokenIDs []string
	for _, link := range linkResults {
		accessTokenID, err := dbutils.GetString(link, "access_token_id")
		if err != nil {
			return nil, err
		}
		accessTokenIDs = append(accessTokenIDs, accessTokenID)
	}

	return &model.RefreshToken{
		ID:               row.id,
		ClientID:         row.clientID,
		ResourceOwnerID:  row.resourceOwnerID,
		IssuedAt:         row.issuedAt,
		ExpiresAt:        row.expiresAt,
		Parameters:       row.parameters,
		Metadata:         row.metadata,
		ResourceServerID: row.resourceServerID,
		AccessTokenIDs:   accessTokenIDs,
		Revoked:          row.revoked,
	}, nil
}

// Save updates the mutable state of a stored token and replaces its access token links.
func (s *SQLRefreshTokenStore) Save(ctx context.Context, token *model.RefreshToken) error {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, sqlStoreLoggerComponentName))

	dbClient, err := getDBClient(ctx, s.DBProvider)
	if err != nil {
		return err
	}
	parameters, metadata, err := encodeBags(token.Parameters, token.Metadata)
	if err != nil {
		return err
	}

	tx, err := dbClient.BeginTx(ctx)
	if err != nil {
		logger.Error("Failed to begin transaction", log.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	rows, err := tx.Exec(ctx, QueryUpdateRefreshToken, token.ID, parameters, metadata, token.Revoked)
	if err == nil && rows == 0 {
		err = model.ErrTokenNotFound
	}
	if err == nil {
		_, err = tx.Exec(ctx, QueryDeleteRefreshTokenAccessTokens, token.ID)
	}
	if err == nil {
		err = insertAccessTokenLinks(ctx, tx, token)
	}
	if err != nil {
		return rollback(tx, logger, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Failed to commit transaction", log.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Create inserts a new token together with its access token links.
func (s *SQLRefreshTokenStore) Create(ctx context.Context, token *model.RefreshToken) (*model.RefreshToken, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, sqlStoreLoggerComponentName))

	dbClient, err := getDBClient(ctx, s.DBProvider)
	if err != nil {
		return nil, err
	}
	if err := assignID(&token.ID); err != nil {
		return nil, err
	}
	parameters, metadata, err := encodeBags(token.Parameters, token.Metadata)
	if err != nil {
		return nil, err
	}

	tx, err := dbClient.BeginTx(ctx)
	if err != nil {
		logger.Error("Failed to begin transaction", log.Error(err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	_, err = tx.Exec(ctx, QueryInsertRefreshToken, token.ID, token.ClientID, token.ResourceOwnerID,
		toUnix(token.IssuedAt), toUnix(token.ExpiresAt), parameters, metadata, token.ResourceServerID,
		token.Revoked)
	if err == nil {
		err = insertAccessTokenLinks(ctx, tx, token)
	}
	if err != nil {
		return nil, rollback(tx, logger, fmt.Errorf("failed to insert refresh token: %w", err))
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Failed to commit transaction", log.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return token, nil
}

func insertAccessTokenLinks(ctx context.Context, tx dbmodel.TxInterface, token *model.RefreshToken) error {
	for _, accessTokenID := range token.AccessTokenIDs {
		if _, err := tx.Exec(ctx, QueryInsertRefreshTokenAccessToken, token.ID, accessTokenID); err != nil {
			return err
		}
	}
	return nil
}

func rollback(tx dbmodel.TxInterface, logger *log.Logger, err error) error {
	if rollbackErr := tx.Rollback(); rollbackErr != nil {
		logger.Error("Failed to rollback transaction", log.Error(rollbackErr))
		return errors.Join(err, fmt.Errorf("failed to rollback transaction: %w", rollbackErr))
	}
	return err
}

func getDBClient(ctx context.Context, dbProvider provider.DBProviderInterface) (client.DBClientInterface, error) {
	dbClient, err := dbProvider.GetDBClient(ctx)
	if err != nil {
		logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, sqlStoreLoggerComponentName))
		logger.Error("Failed to get database client", log.Error(err))
		return nil, err
	}
	return dbClient, nil
}

type tokenRow struct {
	id               string
	clientID         string
	resourceOwnerID  string
	issuedAt         time.Time
	expiresAt        time.Time
	parameters       databag.DataBag
	metadata         databag.DataBag
	resourceServerID string
	revoked          bool
}

func readTokenRow(row map[string]interface{}) (tokenRow, error) {
	var t tokenRow
	var err error
	if t.id, err = dbutils.GetString(row, "token_id"); err != nil {
		return t, err
	}
	if t.clientID, err = dbutils.GetString(row, "client_id"); err != nil {
		return t, err
	}
	if t.resourceOwnerID, err = dbutils.GetString(row, "resource_owner_id"); err != nil {
		return t, err
	}
	if t.resourceServerID, err = dbutils.GetString(row, "resource_server_id"); err != nil {
		return t, err
	}
	if t.revoked, err = dbutils.GetBool(row, "revoked"); err != nil {
		return t, err
	}
	if t.issuedAt, err = readUnix(row, "issued_at"); err != nil {
		return t, err
	}
	if t.expiresAt, err = readUnix(row, "expires_at"); err != nil {
		return t, err
	}
	if t.parameters, err = readBag(row, "parameters"); err != nil {
		return t, err
	}
	if t.metadata, err = readBag(row, "metadata"); err != nil {
		return t, err
	}
	return t, nil
}

func buildAuthorizationCode(row map[string]interface{}) (*model.AuthorizationCode, error) {
	code := &model.AuthorizationCode{}
	var err error
	if code.ID, err = dbutils.GetString(row, "code_id"); err != nil {
		return nil, err
	}
	if code.ClientID, err = dbutils.GetString(row, "client_id"); err != nil {
		return nil, err
	}
	if code.UserAccountID, err = dbutils.GetString(row, "user_account_id"); err != nil {
		return nil, err
	}
	if code.RedirectURI, err = dbutils.GetString(row, "redirect_uri"); err != nil {
		return nil, err
	}
	if code.ResourceServerID, err = dbutils.GetString(row, "resource_server_id"); err != nil {
		return nil, err
	}
	if code.Used, err = dbutils.GetBool(row, "used"); err != nil {
		return nil, err
	}
	if code.Revoked, err = dbutils.GetBool(row, "revoked"); err != nil {
		return nil, err
	}
	if code.ExpiresAt, err = readUnix(row, "expires_at"); err != nil {
		return nil, err
	}
	if code.Parameters, err = readBag(row, "parameters"); err != nil {
		return nil, err
	}
	if code.Metadata, err = readBag(row, "metadata"); err != nil {
		return nil, err
	}

	rawQuery, err := dbutils.GetString(row, "query_parameters")
	if err != nil {
		return nil, err
	}
	code.QueryParameters = url.Values{}
	if rawQuery != "" {
		if err := json.Unmarshal([]byte(rawQuery), &code.QueryParameters); err != nil {
			return nil, fmt.Errorf("failed to decode query parameters: %w", err)
		}
	}
	return code, nil
}

func readUnix(row map[string]interface{}, column string) (time.Time, error) {
	seconds, err := dbutils.GetInt64(row, column)
	if err != nil || seconds == 0 {
		return time.Time{}, err
	}
	return time.Unix(seconds, 0), nil
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func readBag(row map[string]interface{}, column string) (databag.DataBag, error) {
	raw, err := dbutils.GetString(row, column)
	if err != nil || raw == "" {
		return databag.DataBag{}, err
	}
	var bag databag.DataBag
	if err := json.Unmarshal([]byte(raw), &bag); err != nil {
		return databag.DataBag{}, fmt.Errorf("failed to decode %s: %w", column, err)
	}
	return bag, nil
}

func encodeBags(parameters, metadata databag.DataBag) (string, string, error) {
	encodedParameters, err := encodeJSON(parameters)
	if err != nil {
		return "", "", err
	}
	encodedMetadata, err := encodeJSON(metadata)
	if err != nil {
		return "", "", err
	}
	return encodedParameters, encodedMetadata, nil
}

func encodeJSON(value interface{}) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode column value: %w", err)
	}
	return string(raw), nil
}
