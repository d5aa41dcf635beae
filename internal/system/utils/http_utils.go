/*
 * Copyright (c) 2025, WSO2 LLC. (http://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License. You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied. See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	errors2 "github.com/wso2/open-banking-consent-mgt-service/internal/system/errors"
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/log"
)

// HandleError maps an engine or system error onto the HTTP response.
// Validation failures surface as 400, missing consents as 404, revocation
// failures as 502, and every other failure as 500.
func HandleError(w http.ResponseWriter, err error) {

	w.Header().Set("Content-Type", "application/json")

	var clientError *errors2.ClientError
	if errors.As(err, &clientError) {
		w.WriteHeader(clientError.StatusCode)
		_ = json.NewEncoder(w).Encode(clientError.ErrorMessage)
		return
	}

	var consentError *errors2.ConsentError
	if errors.As(err, &consentError) {
		switch consentError.Kind {
		case errors2.KindValidation:
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(errors2.ErrorMessage{
				Code:        errors2.CONSENT_VALIDATION.Code,
				Message:     errors2.CONSENT_VALIDATION.Message,
				Description: consentError.Message,
			})
		case errors2.KindRetrieval:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(errors2.ErrorMessage{
				Code:        errors2.CONSENT_NOT_FOUND.Code,
				Message:     errors2.CONSENT_NOT_FOUND.Message,
				Description: consentError.Message,
			})
		case errors2.KindRevocation:
			log.GetLogger().Error(err.Error())
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(errors2.ErrorMessage{
				Code:        errors2.TOKEN_REVOCATION.Code,
				Message:     errors2.TOKEN_REVOCATION.Message,
				Description: consentError.Message,
			})
		default:
			log.GetLogger().Error(err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "Internal server error",
			})
		}
		return
	}

	var serverError *errors2.ServerError
	if errors.As(err, &serverError) {
		log.GetLogger().Error(err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "Internal server error",
		})
		return
	}

	log.GetLogger().Error("Unhandled error", log.Error(err))
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": "Internal server error",
	})
}

// WriteJSONResponse writes a JSON body with the given status code.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, body interface{}) {

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
