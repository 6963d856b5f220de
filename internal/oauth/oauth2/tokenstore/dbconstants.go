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

import dbmodel "github.com/asgardeo/oidcengine/internal/system/database/model"

// QueryInsertAuthorizationCode is the query to insert a new authorization code.
var QueryInsertAuthorizationCode = dbmodel.DBQuery{
	ID: "TSQ-00001",
	Query: "INSERT INTO OAUTH_AUTHZ_CODE (CODE_ID, CLIENT_ID, USER_ACCOUNT_ID, QUERY_PARAMETERS, " +
		"REDIRECT_URI, EXPIRES_AT, PARAMETERS, METADATA, RESOURCE_SERVER_ID, USED, REVOKED) " +
		"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
}

// QueryGetAuthorizationCode is the query to retrieve an authorization code by id.
var QueryGetAuthorizationCode = dbmodel.DBQuery{
	ID: "TSQ-00002",
	Query: "SELECT CODE_ID, CLIENT_ID, USER_ACCOUNT_ID, QUERY_PARAMETERS, REDIRECT_URI, EXPIRES_AT, " +
		"PARAMETERS, METADATA, RESOURCE_SERVER_ID, USED, REVOKED FROM OAUTH_AUTHZ_CODE WHERE CODE_ID = $1",
}

// QueryUpdateAuthorizationCode is the query to update the mutable state of an authorization code.
var QueryUpdateAuthorizationCode = dbmodel.DBQuery{
	ID: "TSQ-00003",
	Query: "UPDATE OAUTH_AUTHZ_CODE SET PARAMETERS = $2, METADATA = $3, USED = $4, REVOKED = $5 " +
		"WHERE CODE_ID = $1",
}

// QueryMarkAuthorizationCodeUsed flags a code as used only if it was not used before.
var QueryMarkAuthorizationCodeUsed = dbmodel.DBQuery{
	ID:    "TSQ-00004",
	Query: "UPDATE OAUTH_AUTHZ_CODE SET USED = TRUE WHERE CODE_ID = $1 AND USED = FALSE",
}

// QueryInsertAccessToken is the query to insert a new access token.
var QueryInsertAccessToken = dbmodel.DBQuery{
	ID: "TSQ-00005",
	Query: "INSERT INTO OAUTH_ACCESS_TOKEN (TOKEN_ID, CLIENT_ID, RESOURCE_OWNER_ID, ISSUED_AT, EXPIRES_AT, " +
		"PARAMETERS, METADATA, RESOURCE_SERVER_ID, REVOKED) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
}

// QueryGetAccessToken is the query to retrieve an access token by id.
var QueryGetAccessToken = dbmodel.DBQuery{
	ID: "TSQ-00006",
	Query: "SELECT TOKEN_ID, CLIENT_ID, RESOURCE_OWNER_ID, ISSUED_AT, EXPIRES_AT, PARAMETERS, METADATA, " +
		"RESOURCE_SERVER_ID, REVOKED FROM OAUTH_ACCESS_TOKEN WHERE TOKEN_ID = $1",
}

// QueryUpdateAccessToken is the query to update the mutable state of an access token.
var QueryUpdateAccessToken = dbmodel.DBQuery{
	ID:    "TSQ-00007",
	Query: "UPDATE OAUTH_ACCESS_TOKEN SET PARAMETERS = $2, METADATA = $3, REVOKED = $4 WHERE TOKEN_ID = $1",
}

// QueryInsertRefreshToken is the query to insert a new refresh token.
var QueryInsertRefreshToken = dbmodel.DBQuery{
	ID: "TSQ-00008",
	Query: "INSERT INTO OAUTH_REFRESH_TOKEN (TOKEN_ID, CLIENT_ID, RESOURCE_OWNER_ID, ISSUED_AT, EXPIRES_AT, " +
		"PARAMETERS, METADATA, RESOURCE_SERVER_ID, REVOKED) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
}

// QueryGetRefreshToken is the query to retrieve a refresh token by id.
var QueryGetRefreshToken = dbmodel.DBQuery{
	ID: "TSQ-00009",
	Query: "SELECT TOKEN_ID, CLIENT_ID, RESOURCE_OWNER_ID, ISSUED_AT, EXPIRES_AT, PARAMETERS, METADATA, " +
		"RESOURCE_SERVER_ID, REVOKED FROM OAUTH_REFRESH_TOKEN WHERE TOKEN_ID = $1",
}

// QueryUpdateRefreshToken is the query to update the mutable state of a refresh token.
var QueryUpdateRefreshToken = dbmodel.DBQuery{
	ID:    "TSQ-00010",
	Query: "UPDATE OAUTH_REFRESH_TOKEN SET PARAMETERS = $2, METADATA = $3, REVOKED = $4 WHERE TOKEN_ID = $1",
}

// QueryInsertRefreshTokenAccessToken links an access token to the refresh token it was issued with.
var QueryInsertRefreshTokenAccessToken = dbmodel.DBQuery{
	ID:    "TSQ-00011",
	Query: "INSERT INTO OAUTH_REFRESH_TOKEN_ACCESS_TOKEN (REFRESH_TOKEN_ID, ACCESS_TOKEN_ID) VALUES ($1, $2)",
}

// QueryGetRefreshTokenAccessTokens is the query to retrieve the access tokens linked to a refresh token.
var QueryGetRefreshTokenAccessTokens = dbmodel.DBQuery{
	ID:    "TSQ-00012",
	Query: "SELECT ACCESS_TOKEN_ID FROM OAUTH_REFRESH_TOKEN_ACCESS_TOKEN WHERE REFRESH_TOKEN_ID = $1",
}

// QueryDeleteRefreshTokenAccessTokens removes the access token links of a refresh token.
var QueryDeleteRefreshTokenAccessTokens = dbmodel.DBQuery{
	ID:    "TSQ-00013",
	Query: "DELETE FROM OAUTH_REFRESH_TOKEN_ACCESS_TOKEN WHERE REFRESH_TOKEN_ID = $1",
}
