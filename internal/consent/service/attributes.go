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
	errors2 "github.com/wso2/open-banking-consent-mgt-service/internal/system/errors"
)

// StoreConsentAttributes persists the given attribute map for a consent.
func (s *ConsentCoreService) StoreConsentAttributes(consentID string, attributes map[string]string) error {

	if consentID == "" {
		return errors2.NewValidationError("consent ID is required for attribute storage")
	}
	if len(attributes) == 0 {
		return errors2.NewValidationError("consent attributes are required for attribute storage")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := s.store.StoreConsentAttributes(tx, model.ConsentAttributes{
		ConsentID:         consentID,
		ConsentAttributes: attributes,
	}); err != nil {
		rollback(tx)
		return err
	}
	return commit(tx)
}

// GetConsentAttributes returns all attributes of a consent.
func (s *ConsentCoreService) GetConsentAttributes(consentID string) (*model.ConsentAttributes, error) {

	if consentID == "" {
		return nil, errors2.NewValidationError("consent ID is required for attribute retrieval")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	attributes, err := s.store.GetConsentAttributes(tx, consentID)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return attributes, nil
}

// GetConsentAttributesWithKeys returns a consent's attributes restricted to
// the given keys.
func (s *ConsentCoreService) GetConsentAttributesWithKeys(consentID string,
	keys []string) (*model.ConsentAttributes, error) {

	if consentID == "" {
		return nil, errors2.NewValidationError("consent ID is required for attribute retrieval")
	}
	if len(keys) == 0 {
		return nil, errors2.NewValidationError("attribute keys are required for attribute retrieval")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	attributes, err := s.store.GetConsentAttributesWithKeys(tx, consentID, keys)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return attributes, nil
}

// GetConsentAttributesByName returns a consent-ID to value map of every
// attribute stored under the given name.
func (s *ConsentCoreService) GetConsentAttributesByName(attributeName string) (map[string]string, error) {

	if attributeName == "" {
		return nil, errors2.NewValidationError("attribute name is required for attribute retrieval")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	values, err := s.store.GetConsentAttributesByName(tx, attributeName)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return values, nil
}

// GetConsentIDByConsentAttributeNameAndValue returns the IDs of the consents
// carrying the given attribute pair.
func (s *ConsentCoreService) GetConsentIDByConsentAttributeNameAndValue(attributeName,
	attributeValue string) ([]string, error) {

	if attributeName == "" || attributeValue == "" {
		return nil, errors2.NewValidationError(
			"attribute name and attribute value are required for consent ID retrieval")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	consentIDs, err := s.store.GetConsentIDByAttributeNameAndValue(tx, attributeName, attributeValue)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return consentIDs, nil
}

// UpdateConsentAttributes replaces the stored values of the supplied
// attribute keys, as a delete-then-insert batch.
func (s *ConsentCoreService) UpdateConsentAttributes(consentID string, attributes map[string]string) error {

	if consentID == "" {
		return errors2.NewValidationError("consent ID is required for attribute update")
	}
	if len(attributes) == 0 {
		return errors2.NewValidationError("consent attributes are required for attribute update")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return err
	}
	defer client.Close()

	keys := make([]string, 0, len(attributes))
	for key := range attributes {
		keys = append(keys, key)
	}
	if err := s.store.DeleteConsentAttributes(tx, consentID, keys); err != nil {
		rollback(tx)
		return err
	}
	if err := s.store.StoreConsentAttributes(tx, model.ConsentAttributes{
		ConsentID:         consentID,
		ConsentAttributes: attributes,
	}); err != nil {
		rollback(tx)
		return err
	}
	return commit(tx)
}

// DeleteConsentAttributes removes the given attribute keys of a consent. An
// empty key list is rejected rather than treated as delete-all.
func (s *ConsentCoreService) DeleteConsentAttributes(consentID string, keys []string) error {

	if consentID == "" {
		return errors2.NewValidationError("consent ID is required for attribute deletion")
	}
	if len(keys) == 0 {
		return errors2.NewValidationError("attribute keys are required for attribute deletion")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := s.store.DeleteConsentAttributes(tx, consentID, keys); err != nil {
		rollback(tx)
		return err
	}
	return commit(tx)
}
