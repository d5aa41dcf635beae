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

package provider

import (
	"github.com/wso2/open-banking-consent-mgt-service/internal/consent/service"
	"github.com/wso2/open-banking-consent-mgt-service/internal/consent/store"
	"github.com/wso2/open-banking-consent-mgt-service/internal/consent/token"
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/config"
	dbprovider "github.com/wso2/open-banking-consent-mgt-service/internal/system/database/provider"
)

// ConsentProviderInterface defines the interface for the consent provider.
type ConsentProviderInterface interface {
	GetConsentCoreService() service.ConsentCoreServiceInterface
}

// ConsentProvider is the default implementation of ConsentProviderInterface,
// wiring the lifecycle engine with the configured Postgres store and the
// authorization server revocation gateway.
type ConsentProvider struct{}

// NewConsentProvider creates a new instance of ConsentProvider.
func NewConsentProvider() ConsentProviderInterface {

	return &ConsentProvider{}
}

// GetConsentCoreService returns the consent lifecycle engine instance.
func (cp *ConsentProvider) GetConsentCoreService() service.ConsentCoreServiceInterface {

	runtime := config.GetRuntime()
	return service.NewConsentCoreService(
		dbprovider.NewDBProvider(runtime.Config.DataSource),
		store.NewPostgresConsentStore(),
		token.NewRevocationGateway(runtime.Config.AuthServer),
	)
}
