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

package services

import (
	"fmt"
	"net/http"

	"github.com/wso2/open-banking-consent-mgt-service/internal/consent/handler"
)

type ConsentService struct {
	handler *handler.ConsentHandler
}

func NewConsentService(mux *http.ServeMux, apiBasePath string) *ConsentService {
	instance := &ConsentService{
		handler: handler.NewConsentHandler(),
	}
	instance.RegisterRoutes(mux, apiBasePath)
	return instance
}

func (s *ConsentService) RegisterRoutes(mux *http.ServeMux, apiBasePath string) {
	mux.HandleFunc(fmt.Sprintf("POST %s/consents", apiBasePath), s.handler.CreateConsent)
	mux.HandleFunc(fmt.Sprintf("GET %s/consents", apiBasePath), s.handler.SearchConsents)
	mux.HandleFunc(fmt.Sprintf("GET %s/consents/{id}", apiBasePath), s.handler.GetConsent)
	mux.HandleFunc(fmt.Sprintf("PUT %s/consents/{id}/status", apiBasePath), s.handler.UpdateConsentStatus)
	mux.HandleFunc(fmt.Sprintf("POST %s/consents/{id}/revoke", apiBasePath), s.handler.RevokeConsent)
	mux.HandleFunc(fmt.Sprintf("PUT %s/consents/{id}", apiBasePath), s.handler.AmendConsent)
	mux.HandleFunc(fmt.Sprintf("GET %s/consents/{id}/attributes", apiBasePath), s.handler.GetConsentAttributes)
	mux.HandleFunc(fmt.Sprintf("POST %s/consents/{id}/attributes", apiBasePath), s.handler.StoreConsentAttributes)
	mux.HandleFunc(fmt.Sprintf("GET %s/consents/{id}/audit-records", apiBasePath), s.handler.GetAuditRecords)
	mux.HandleFunc(fmt.Sprintf("GET %s/consents/{id}/history", apiBasePath), s.handler.GetAmendmentHistory)
	mux.HandleFunc(fmt.Sprintf("POST %s/consents/{id}/file", apiBasePath), s.handler.UploadConsentFile)
	mux.HandleFunc(fmt.Sprintf("GET %s/consents/{id}/file", apiBasePath), s.handler.GetConsentFile)
	mux.HandleFunc(fmt.Sprintf("POST %s/consents/{id}/authorizations", apiBasePath), s.handler.CreateAuthorization)
	mux.HandleFunc(fmt.Sprintf("GET %s/consents/{id}/authorizations", apiBasePath), s.handler.GetAuthorizations)
}
