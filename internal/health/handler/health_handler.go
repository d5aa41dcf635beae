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

package handler

import (
	"net/http"

	"github.com/wso2/open-banking-consent-mgt-service/internal/system/config"
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/database/provider"
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/utils"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

type healthStatus struct {
	Status string `json:"status"`
}

// HandleHealth reports process liveness.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {

	utils.WriteJSONResponse(w, http.StatusOK, healthStatus{Status: "UP"})
}

// HandleReadiness reports readiness by opening a database connection.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {

	dbProvider := provider.NewDBProvider(config.GetRuntime().Config.DataSource)
	dbClient, err := dbProvider.GetDBClient()
	if err != nil {
		utils.WriteJSONResponse(w, http.StatusServiceUnavailable, healthStatus{Status: "DOWN"})
		return
	}
	defer dbClient.Close()

	utils.WriteJSONResponse(w, http.StatusOK, healthStatus{Status: "UP"})
}
