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
	errors2 "github.com/wso2/open-banking-consent-mgt-service/internal/system/errors"
)

// SearchConsentStatusAuditRecords returns the audit records matching the
// filter, newest first.
func (s *ConsentCoreService) SearchConsentStatusAuditRecords(
	filter model.AuditRecordSearchFilter) ([]model.ConsentStatusAuditRecord, error) {

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	records, err := s.store.SearchConsentStatusAuditRecords(tx, filter)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return records, nil
}

// GetConsentStatusAuditRecords returns the audit records of the given
// consents with optional pagination.
func (s *ConsentCoreService) GetConsentStatusAuditRecords(consentIDs []string,
	limit, offset *int) ([]model.ConsentStatusAuditRecord, error) {

	if len(consentIDs) == 0 {
		return nil, errors2.NewValidationError("consent IDs are required for audit record retrieval")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	records, err := s.store.GetConsentStatusAuditRecords(tx, consentIDs, limit, offset)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return records, nil
}

// CreateConsentFile stores the uploaded consent file and transitions the
// consent, provided the consent currently sits in the status that permits
// file upload.
func (s *ConsentCoreService) CreateConsentFile(file model.ConsentFile, newConsentStatus, userID,
	applicableStatusToFileUpload string) error {

	if file.ConsentID == "" || file.ConsentFile == "" {
		return errors2.NewValidationError("consent ID and file content are required for file upload")
	}
	if newConsentStatus == "" || applicableStatusToFileUpload == "" {
		return errors2.NewValidationError(
			"new consent status and applicable upload status are required for file upload")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return err
	}
	defer client.Close()

	consent, err := s.store.GetConsentResource(tx, file.ConsentID)
	if err != nil {
		rollback(tx)
		return err
	}
	if consent.CurrentStatus != applicableStatusToFileUpload {
		rollback(tx)
		return errors2.NewValidationError("the consent is not in a status that allows file upload")
	}

	if err := s.store.StoreConsentFile(tx, file); err != nil {
		rollback(tx)
		return err
	}
	if err := s.store.UpdateConsentStatus(tx, file.ConsentID, newConsentStatus); err != nil {
		rollback(tx)
		return err
	}
	if err := s.createAuditRecord(tx, file.ConsentID, newConsentStatus, consent.CurrentStatus,
		constants.ConsentFileUploadReason, userID); err != nil {
		rollback(tx)
		return err
	}
	return commit(tx)
}

// GetConsentFile returns the stored file of a consent.
func (s *ConsentCoreService) GetConsentFile(consentID string) (*model.ConsentFile, error) {

	if consentID == "" {
		return nil, errors2.NewValidationError("consent ID is required for file retrieval")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	file, err := s.store.GetConsentFile(tx, consentID)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return file, nil
}
