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
	"fmt"

	"github.com/lib/pq"
	model "github.com/wso2/open-banking-consent-mgt-service/internal/consent/model"
	dbclient "github.com/wso2/open-banking-consent-mgt-service/internal/system/database/client"
	errors2 "github.com/wso2/open-banking-consent-mgt-service/internal/system/errors"
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/log"
)

// StoreConsentAttributes inserts the given key-value pairs for a consent.
// An empty attribute map is a no-op.
func (s *PostgresConsentStore) StoreConsentAttributes(tx dbclient.TxInterface,
	attributes model.ConsentAttributes) error {

	query := `INSERT INTO ob_consent_attribute (consent_id, att_key, att_value) VALUES ($1, $2, $3)`
	for key, value := range attributes.ConsentAttributes {
		if _, err := tx.Exec(query, attributes.ConsentID, key, value); err != nil {
			errorMsg := fmt.Sprintf("failed to insert attribute %s of consent: %s", key, attributes.ConsentID)
			log.GetLogger().Debug(errorMsg, log.Error(err))
			return errors2.NewConsentError(errors2.KindInsertion, errorMsg, err)
		}
	}
	return nil
}

// GetConsentAttributes returns all attributes of a consent.
func (s *PostgresConsentStore) GetConsentAttributes(tx dbclient.TxInterface,
	consentID string) (*model.ConsentAttributes, error) {

	attributes, err := s.getAttributeMap(tx, consentID)
	if err != nil {
		return nil, err
	}
	return &model.ConsentAttributes{ConsentID: consentID, ConsentAttributes: attributes}, nil
}

// GetConsentAttributesWithKeys returns the attributes of a consent restricted
// to the given keys. Keys with no stored value are absent from the result.
func (s *PostgresConsentStore) GetConsentAttributesWithKeys(tx dbclient.TxInterface,
	consentID string, keys []string) (*model.ConsentAttributes, error) {

	query := `SELECT att_key, att_value FROM ob_consent_attribute WHERE consent_id = $1 AND att_key = ANY($2)`
	rows, err := tx.Query(query, consentID, pq.Array(keys))
	if err != nil {
		errorMsg := fmt.Sprintf("failed to retrieve attributes of consent: %s", consentID)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindRetrieval, errorMsg, err)
	}
	attributes, err := scanAttributePairs(rows)
	if err != nil {
		return nil, errors2.NewConsentError(errors2.KindRetrieval, "failed to read attribute results", err)
	}
	return &model.ConsentAttributes{ConsentID: consentID, ConsentAttributes: attributes}, nil
}

// GetConsentAttributesByName returns a consentID to value map of every stored
// attribute carrying the given name.
func (s *PostgresConsentStore) GetConsentAttributesByName(tx dbclient.TxInterface,
	attributeName string) (map[string]string, error) {

	query := `SELECT consent_id, att_value FROM ob_consent_attribute WHERE att_key = $1`
	rows, err := tx.Query(query, attributeName)
	if err != nil {
		errorMsg := fmt.Sprintf("failed to retrieve attributes by name: %s", attributeName)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindRetrieval, errorMsg, err)
	}
	values, err := scanAttributePairs(rows)
	if err != nil {
		return nil, errors2.NewConsentError(errors2.KindRetrieval, "failed to read attribute results", err)
	}
	return values, nil
}

// GetConsentIDByAttributeNameAndValue returns the IDs of the consents that
// carry the given attribute name and value pair.
func (s *PostgresConsentStore) GetConsentIDByAttributeNameAndValue(tx dbclient.TxInterface,
	attributeName, attributeValue string) ([]string, error) {

	query := `SELECT consent_id FROM ob_consent_attribute WHERE att_key = $1 AND att_value = $2`
	rows, err := tx.Query(query, attributeName, attributeValue)
	if err != nil {
		errorMsg := fmt.Sprintf("failed to retrieve consent IDs by attribute: %s", attributeName)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindRetrieval, errorMsg, err)
	}
	consentIDs, err := scanIDs(rows)
	if err != nil {
		return nil, errors2.NewConsentError(errors2.KindRetrieval, "failed to read attribute results", err)
	}
	return consentIDs, nil
}

// DeleteConsentAttributes removes the given attribute keys of a consent.
func (s *PostgresConsentStore) DeleteConsentAttributes(tx dbclient.TxInterface,
	consentID string, keys []string) error {

	if len(keys) == 0 {
		return nil
	}
	query := `DELETE FROM ob_consent_attribute WHERE consent_id = $1 AND att_key = ANY($2)`
	if _, err := tx.Exec(query, consentID, pq.Array(keys)); err != nil {
		errorMsg := fmt.Sprintf("failed to delete attributes of consent: %s", consentID)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return errors2.NewConsentError(errors2.KindDeletion, errorMsg, err)
	}
	return nil
}

// getAttributeMap loads the attributes of a consent as a plain map.
func (s *PostgresConsentStore) getAttributeMap(tx dbclient.TxInterface, consentID string) (map[string]string, error) {

	query := `SELECT att_key, att_value FROM ob_consent_attribute WHERE consent_id = $1`
	rows, err := tx.Query(query, consentID)
	if err != nil {
		errorMsg := fmt.Sprintf("failed to retrieve attributes of consent: %s", consentID)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindRetrieval, errorMsg, err)
	}
	attributes, err := scanAttributePairs(rows)
	if err != nil {
		return nil, errors2.NewConsentError(errors2.KindRetrieval, "failed to read attribute results", err)
	}
	return attributes, nil
}
