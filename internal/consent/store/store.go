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

package store

import (
	model "github.com/wso2/open-banking-consent-mgt-service/internal/consent/model"
	dbclient "github.com/wso2/open-banking-consent-mgt-service/internal/system/database/client"
)

// ConsentStore is the persistence contract of the consent lifecycle engine.
// Every method runs against the caller-supplied transactional handle; the
// engine owns commit and rollback. Failures surface as ConsentError values
// tagged with the matching data-access kind.
type ConsentStore interface {

	// Consent rows.
	StoreConsentResource(tx dbclient.TxInterface, consent model.ConsentResource) (*model.ConsentResource, error)
	GetConsentResource(tx dbclient.TxInterface, consentID string) (*model.ConsentResource, error)
	GetConsentResourceWithAttributes(tx dbclient.TxInterface, consentID string) (*model.ConsentResource, error)
	GetDetailedConsentResource(tx dbclient.TxInterface, consentID string) (*model.DetailedConsentResource, error)
	UpdateConsentStatus(tx dbclient.TxInterface, consentID, newStatus string) error
	UpdateConsentReceipt(tx dbclient.TxInterface, consentID, receipt string) error
	UpdateConsentValidityTime(tx dbclient.TxInterface, consentID string, validityTime int64) error
	SearchConsents(tx dbclient.TxInterface, filter model.ConsentSearchFilter) ([]model.DetailedConsentResource, error)
	GetExpiringConsents(tx dbclient.TxInterface, statuses []string) ([]model.DetailedConsentResource, error)

	// Authorization rows.
	StoreAuthorizationResource(tx dbclient.TxInterface, authorization model.AuthorizationResource) (*model.AuthorizationResource, error)
	GetAuthorizationResource(tx dbclient.TxInterface, authorizationID string) (*model.AuthorizationResource, error)
	UpdateAuthorizationStatus(tx dbclient.TxInterface, authorizationID, newStatus string) (*model.AuthorizationResource, error)
	UpdateAuthorizationUser(tx dbclient.TxInterface, authorizationID, userID string) error
	SearchConsentAuthorizations(tx dbclient.TxInterface, consentID, userID string) ([]model.AuthorizationResource, error)

	// Account mapping rows.
	StoreConsentMappingResource(tx dbclient.TxInterface, mapping model.ConsentMappingResource) (*model.ConsentMappingResource, error)
	GetConsentMappingResources(tx dbclient.TxInterface, authorizationID string) ([]model.ConsentMappingResource, error)
	UpdateConsentMappingStatus(tx dbclient.TxInterface, mappingIDs []string, newStatus string) error

	// Consent attributes.
	StoreConsentAttributes(tx dbclient.TxInterface, attributes model.ConsentAttributes) error
	GetConsentAttributes(tx dbclient.TxInterface, consentID string) (*model.ConsentAttributes, error)
	GetConsentAttributesWithKeys(tx dbclient.TxInterface, consentID string, keys []string) (*model.ConsentAttributes, error)
	GetConsentAttributesByName(tx dbclient.TxInterface, attributeName string) (map[string]string, error)
	GetConsentIDByAttributeNameAndValue(tx dbclient.TxInterface, attributeName, attributeValue string) ([]string, error)
	DeleteConsentAttributes(tx dbclient.TxInterface, consentID string, keys []string) error

	// Status audit records.
	StoreConsentStatusAuditRecord(tx dbclient.TxInterface, record model.ConsentStatusAuditRecord) (*model.ConsentStatusAuditRecord, error)
	SearchConsentStatusAuditRecords(tx dbclient.TxInterface, filter model.AuditRecordSearchFilter) ([]model.ConsentStatusAuditRecord, error)
	GetConsentStatusAuditRecords(tx dbclient.TxInterface, consentIDs []string, limit, offset *int) ([]model.ConsentStatusAuditRecord, error)

	// Amendment history.
	StoreConsentAmendmentHistory(tx dbclient.TxInterface, record model.AmendmentHistoryRecord) error
	RetrieveConsentAmendmentHistory(tx dbclient.TxInterface, recordIDs []string) ([]model.AmendmentHistoryRecord, error)

	// Consent files.
	StoreConsentFile(tx dbclient.TxInterface, file model.ConsentFile) error
	GetConsentFile(tx dbclient.TxInterface, consentID string) (*model.ConsentFile, error)
}
