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

package service

import (
	model "github.com/wso2/open-banking-consent-mgt-service/internal/consent/model"
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/constants"
	dbclient "github.com/wso2/open-banking-consent-mgt-service/internal/system/database/client"
	errors2 "github.com/wso2/open-banking-consent-mgt-service/internal/system/errors"
)

// AmendConsentData updates the receipt and/or validity period of a consent
// and records the amendment in the audit trail. At least one of the two
// fields must be supplied.
func (s *ConsentCoreService) AmendConsentData(consentID string, newReceipt *string,
	newValidityPeriod *int64, userID string) (*model.ConsentResource, error) {

	if consentID == "" {
		return nil, errors2.NewValidationError("consent ID is required for consent amendment")
	}
	if newReceipt == nil && newValidityPeriod == nil {
		return nil, errors2.NewValidationError(
			"either a new receipt or a new validity period is required for consent amendment")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := s.amendReceiptAndValidity(tx, consentID, newReceipt, newValidityPeriod); err != nil {
		rollback(tx)
		return nil, err
	}

	updated, err := s.store.GetConsentResource(tx, consentID)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := s.createAuditRecord(tx, consentID, constants.ConsentAmendedStatus, updated.CurrentStatus,
		constants.ConsentAmendReason, userID); err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return updated, nil
}

// AmendDetailedConsent composes receipt/validity update, account mapping
// reconciliation, attribute replacement, status transition and any
// additional authorization amendments into one transaction. All supplied
// additional resources are validated before any write.
func (s *ConsentCoreService) AmendDetailedConsent(consentID string, newReceipt *string,
	newValidityPeriod *int64, authorizationID string, accountsAndPermissions map[string][]string,
	newConsentStatus string, newAttributes map[string]string, userID string,
	additionalAmendments *model.AmendmentResources) (*model.DetailedConsentResource, error) {

	if consentID == "" || authorizationID == "" {
		return nil, errors2.NewValidationError(
			"consent ID and authorization ID are required for detailed consent amendment")
	}
	if newReceipt == nil && newValidityPeriod == nil {
		return nil, errors2.NewValidationError(
			"either a new receipt or a new validity period is required for detailed consent amendment")
	}
	if newConsentStatus == "" {
		return nil, errors2.NewValidationError("new consent status is required for detailed consent amendment")
	}
	if len(accountsAndPermissions) == 0 {
		return nil, errors2.NewValidationError(
			"account IDs and permissions are required for detailed consent amendment")
	}
	if err := validateAdditionalAmendments(consentID, additionalAmendments); err != nil {
		return nil, err
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := s.amendReceiptAndValidity(tx, consentID, newReceipt, newValidityPeriod); err != nil {
		rollback(tx)
		return nil, err
	}

	detailed, err := s.store.GetDetailedConsentResource(tx, consentID)
	if err != nil {
		rollback(tx)
		return nil, err
	}

	if err := s.store.UpdateConsentStatus(tx, consentID, newConsentStatus); err != nil {
		rollback(tx)
		return nil, err
	}
	if err := s.createAuditRecord(tx, consentID, newConsentStatus, detailed.CurrentStatus,
		constants.ConsentAmendReason, userID); err != nil {
		rollback(tx)
		return nil, err
	}

	toDeactivate, toCreate := reconcileAccountMappings(authorizationID,
		detailed.ConsentMappingResources, accountsAndPermissions)
	if err := s.store.UpdateConsentMappingStatus(tx, toDeactivate,
		constants.InactiveMappingStatus); err != nil {
		rollback(tx)
		return nil, err
	}
	for _, mapping := range toCreate {
		if _, err := s.store.StoreConsentMappingResource(tx, mapping); err != nil {
			rollback(tx)
			return nil, err
		}
	}

	if newAttributes != nil {
		existingKeys := make([]string, 0, len(detailed.ConsentAttributes))
		for key := range detailed.ConsentAttributes {
			existingKeys = append(existingKeys, key)
		}
		if err := s.store.DeleteConsentAttributes(tx, consentID, existingKeys); err != nil {
			rollback(tx)
			return nil, err
		}
		if err := s.store.StoreConsentAttributes(tx, model.ConsentAttributes{
			ConsentID:         consentID,
			ConsentAttributes: newAttributes,
		}); err != nil {
			rollback(tx)
			return nil, err
		}
	}

	if !additionalAmendments.IsEmpty() {
		if err := s.storeAdditionalAmendments(tx, additionalAmendments); err != nil {
			rollback(tx)
			return nil, err
		}
	}

	amended, err := s.store.GetDetailedConsentResource(tx, consentID)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return amended, nil
}

// amendReceiptAndValidity applies whichever of the two amendable consent
// fields were supplied.
func (s *ConsentCoreService) amendReceiptAndValidity(tx dbclient.TxInterface, consentID string,
	newReceipt *string, newValidityPeriod *int64) error {

	if newReceipt != nil {
		if err := s.store.UpdateConsentReceipt(tx, consentID, *newReceipt); err != nil {
			return err
		}
	}
	if newValidityPeriod != nil {
		if err := s.store.UpdateConsentValidityTime(tx, consentID, *newValidityPeriod); err != nil {
			return err
		}
	}
	return nil
}

// storeAdditionalAmendments persists the extra authorizations and their
// mappings supplied with a detailed amendment. Generated authorization IDs
// flow into the mapping rows.
func (s *ConsentCoreService) storeAdditionalAmendments(tx dbclient.TxInterface,
	amendments *model.AmendmentResources) error {

	for _, amendment := range amendments.Authorizations {
		storedAuth, err := s.store.StoreAuthorizationResource(tx, amendment.Authorization)
		if err != nil {
			return err
		}
		for _, mapping := range amendment.Mappings {
			mapping.AuthorizationID = storedAuth.AuthorizationID
			if mapping.MappingStatus == "" {
				mapping.MappingStatus = constants.ActiveMappingStatus
			}
			if _, err := s.store.StoreConsentMappingResource(tx, mapping); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateAdditionalAmendments rejects a batch whose authorizations do not
// target the amended consent or whose mappings carry no account ID.
func validateAdditionalAmendments(consentID string, amendments *model.AmendmentResources) error {

	if amendments.IsEmpty() {
		return nil
	}
	for _, amendment := range amendments.Authorizations {
		if amendment.Authorization.ConsentID != consentID {
			return errors2.NewValidationError(
				"additional amendment authorizations must carry the amended consent ID")
		}
		if amendment.Authorization.AuthorizationStatus == "" || amendment.Authorization.AuthorizationType == "" {
			return errors2.NewValidationError(
				"additional amendment authorizations must carry a status and a type")
		}
		for _, mapping := range amendment.Mappings {
			if mapping.AccountID == "" {
				return errors2.NewValidationError("additional amendment mappings must carry an account ID")
			}
		}
	}
	return nil
}
