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

package store

import dbmodel "github.com/asgardeo/oidcengine/internal/system/database/model"

var (
	// QueryInsertClient is the query to insert a new client.
	QueryInsertClient = dbmodel.DBQuery{
		ID: "CLQ-00001",
		Query: "INSERT INTO OAUTH_CLIENT (CLIENT_ID, OWNER_ID, PARAMETERS, DELETED) " +
			"VALUES ($1, $2, $3, $4)",
	}
	// QueryGetClient is the query to retrieve a client by id.
	QueryGetClient = dbmodel.DBQuery{
		ID:    "CLQ-00002",
		Query: "SELECT CLIENT_ID, OWNER_ID, PARAMETERS, DELETED FROM OAUTH_CLIENT WHERE CLIENT_ID = $1",
	}
	// QueryUpdateClient is the query to update an existing client.
	QueryUpdateClient = dbmodel.DBQuery{
		ID:    "CLQ-00003",
		Query: "UPDATE OAUTH_CLIENT SET OWNER_ID = $2, PARAMETERS = $3, DELETED = $4 WHERE CLIENT_ID = $1",
	}
)
