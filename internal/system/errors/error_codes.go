/*
 * Copyright (c) 2025, WSO2 LLC. (http://www.wso2.com).
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

package errors

const errorPrefix = "OBC-"

var (
	// Server error codes

	CREATE_CONSENT = ErrorMessage{
		Code:    errorPrefix + "15001",
		Message: "Error while creating the consent.",
	}

	FETCH_CONSENT = ErrorMessage{
		Code:    errorPrefix + "15002",
		Message: "Error while fetching consent data.",
	}

	UPDATE_CONSENT = ErrorMessage{
		Code:    errorPrefix + "15003",
		Message: "Error while updating consent data.",
	}

	REVOKE_CONSENT = ErrorMessage{
		Code:    errorPrefix + "15004",
		Message: "Error while revoking the consent.",
	}

	AMEND_CONSENT = ErrorMessage{
		Code:    errorPrefix + "15005",
		Message: "Error while amending the consent.",
	}

	SEARCH_CONSENTS = ErrorMessage{
		Code:    errorPrefix + "15006",
		Message: "Error while searching consents.",
	}

	CONSENT_ATTRIBUTES = ErrorMessage{
		Code:    errorPrefix + "15007",
		Message: "Error while processing consent attributes.",
	}

	CONSENT_AUTHORIZATION = ErrorMessage{
		Code:    errorPrefix + "15008",
		Message: "Error while processing the consent authorization.",
	}

	CONSENT_HISTORY = ErrorMessage{
		Code:    errorPrefix + "15009",
		Message: "Error while processing consent amendment history.",
	}

	TOKEN_REVOCATION = ErrorMessage{
		Code:    errorPrefix + "15010",
		Message: "Error while revoking tokens bound to the consent.",
	}

	CONSENT_FILE = ErrorMessage{
		Code:    errorPrefix + "15011",
		Message: "Error while processing the consent file.",
	}

	PARSING_ERROR = ErrorMessage{
		Code:    errorPrefix + "15012",
		Message: "Error while parsing the request.",
	}

	// Client error codes

	BAD_REQUEST = ErrorMessage{
		Code:    errorPrefix + "10001",
		Message: "Invalid request.",
	}

	CONSENT_NOT_FOUND = ErrorMessage{
		Code:    errorPrefix + "10002",
		Message: "Consent not found.",
	}

	CONSENT_VALIDATION = ErrorMessage{
		Code:    errorPrefix + "10003",
		Message: "Consent request validation failed.",
	}

	UN_AUTHORIZED = ErrorMessage{
		Code:    errorPrefix + "10004",
		Message: "Authentication failure.",
	}

	FORBIDDEN = ErrorMessage{
		Code:    errorPrefix + "10005",
		Message: "Insufficient permissions.",
	}
)
