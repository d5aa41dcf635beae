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
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	model "github.com/wso2/open-banking-consent-mgt-service/internal/consent/model"
	dbclient "github.com/wso2/open-banking-consent-mgt-service/internal/system/database/client"
	errors2 "github.com/wso2/open-banking-consent-mgt-service/internal/system/errors"
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/log"
)

// StoreAuthorizationResource inserts a new authorization row under a consent.
func (s *PostgresConsentStore) StoreAuthorizationResource(tx dbclient.TxInterface,
	authorization model.AuthorizationResource) (*model.AuthorizationResource, error) {

	if authorization.AuthorizationID == "" {
		authorization.AuthorizationID = uuid.New().String()
	}
	authorization.UpdatedTime = time.Now().Unix()

	query := `INSERT INTO ob_consent_auth_resource (auth_id, consent_id, user_id, auth_type, auth_status, updated_time)
				VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := tx.Exec(query, authorization.AuthorizationID, authorization.ConsentID, authorization.UserID,
		authorization.AuthorizationType, authorization.AuthorizationStatus, authorization.UpdatedTime)
	if err != nil {
		errorMsg := fmt.Sprintf("failed to insert authorization for consent: %s", authorization.ConsentID)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindInsertion, errorMsg, err)
	}
	return &authorization, nil
}

// GetAuthorizationResource retrieves an authorization row by its ID.
func (s *PostgresConsentStore) GetAuthorizationResource(tx dbclient.TxInterface,
	authorizationID string) (*model.AuthorizationResource, error) {

	query := `SELECT auth_id, consent_id, user_id, auth_type, auth_status, updated_time
				FROM ob_consent_auth_resource WHERE auth_id = $1`
	row := tx.QueryRow(query, authorizationID)

	var authorization model.AuthorizationResource
	err := row.Scan(&authorization.AuthorizationID, &authorization.ConsentID, &authorization.UserID,
		&authorization.AuthorizationType, &authorization.AuthorizationStatus, &authorization.UpdatedTime)
	if err != nil {
		errorMsg := fmt.Sprintf("failed to retrieve authorization: %s", authorizationID)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindRetrieval, errorMsg, err)
	}
	return &authorization, nil
}

// UpdateAuthorizationStatus updates the status of an authorization and
// returns the updated row.
func (s *PostgresConsentStore) UpdateAuthorizationStatus(tx dbclient.TxInterface,
	authorizationID, newStatus string) (*model.AuthorizationResource, error) {

	query := `UPDATE ob_consent_auth_resource SET auth_status = $1, updated_time = $2 WHERE auth_id = $3`
	result, err := tx.Exec(query, newStatus, time.Now().Unix(), authorizationID)
	if err != nil {
		errorMsg := fmt.Sprintf("failed to update status of authorization: %s", authorizationID)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindUpdate, errorMsg, err)
	}
	if err := checkAffected(result, errors2.KindUpdate,
		fmt.Sprintf("no authorization found for status update: %s", authorizationID)); err != nil {
		return nil, err
	}
	return s.GetAuthorizationResource(tx, authorizationID)
}

// UpdateAuthorizationUser binds a user to an authorization.
func (s *PostgresConsentStore) UpdateAuthorizationUser(tx dbclient.TxInterface, authorizationID, userID string) error {

	query := `UPDATE ob_consent_auth_resource SET user_id = $1, updated_time = $2 WHERE auth_id = $3`
	result, err := tx.Exec(query, userID, time.Now().Unix(), authorizationID)
	if err != nil {
		errorMsg := fmt.Sprintf("failed to update user of authorization: %s", authorizationID)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return errors2.NewConsentError(errors2.KindUpdate, errorMsg, err)
	}
	return checkAffected(result, errors2.KindUpdate,
		fmt.Sprintf("no authorization found for user update: %s", authorizationID))
}

// SearchConsentAuthorizations returns the authorizations of a consent,
// optionally restricted to a user. An empty userID applies no restriction.
func (s *PostgresConsentStore) SearchConsentAuthorizations(tx dbclient.TxInterface,
	consentID, userID string) ([]model.AuthorizationResource, error) {

	query := `SELECT auth_id, consent_id, user_id, auth_type, auth_status, updated_time
				FROM ob_consent_auth_resource WHERE consent_id = $1`
	args := []interface{}{consentID}
	if userID != "" {
		args = append(args, userID)
		query += " AND user_id = $2"
	}
	query += " ORDER BY updated_time"

	rows, err := tx.Query(query, args...)
	if err != nil {
		errorMsg := fmt.Sprintf("failed to search authorizations of consent: %s", consentID)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindRetrieval, errorMsg, err)
	}
	defer rows.Close()

	authorizations := make([]model.AuthorizationResource, 0)
	for rows.Next() {
		var authorization model.AuthorizationResource
		if err := rows.Scan(&authorization.AuthorizationID, &authorization.ConsentID, &authorization.UserID,
			&authorization.AuthorizationType, &authorization.AuthorizationStatus,
			&authorization.UpdatedTime); err != nil {
			return nil, errors2.NewConsentError(errors2.KindRetrieval, "failed to read authorization results", err)
		}
		authorizations = append(authorizations, authorization)
	}
	if err := rows.Err(); err != nil {
		return nil, errors2.NewConsentError(errors2.KindRetrieval, "failed to read authorization results", err)
	}
	return authorizations, nil
}

// StoreConsentMappingResource inserts a new account mapping row under an
// authorization.
func (s *PostgresConsentStore) StoreConsentMappingResource(tx dbclient.TxInterface,
	mapping model.ConsentMappingResource) (*model.ConsentMappingResource, error) {

	if mapping.MappingID == "" {
		mapping.MappingID = uuid.New().String()
	}

	query := `INSERT INTO ob_consent_mapping (mapping_id, auth_id, account_id, permission, mapping_status)
				VALUES ($1, $2, $3, $4, $5)`
	_, err := tx.Exec(query, mapping.MappingID, mapping.AuthorizationID, mapping.AccountID,
		mapping.Permission, mapping.MappingStatus)
	if err != nil {
		errorMsg := fmt.Sprintf("failed to insert account mapping for authorization: %s", mapping.AuthorizationID)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindInsertion, errorMsg, err)
	}
	return &mapping, nil
}

// GetConsentMappingResources returns all account mappings of an authorization.
func (s *PostgresConsentStore) GetConsentMappingResources(tx dbclient.TxInterface,
	authorizationID string) ([]model.ConsentMappingResource, error) {

	query := `SELECT mapping_id, auth_id, account_id, permission, mapping_status
				FROM ob_consent_mapping WHERE auth_id = $1`
	rows, err := tx.Query(query, authorizationID)
	if err != nil {
		errorMsg := fmt.Sprintf("failed to retrieve account mappings of authorization: %s", authorizationID)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindRetrieval, errorMsg, err)
	}
	defer rows.Close()

	mappings := make([]model.ConsentMappingResource, 0)
	for rows.Next() {
		var mapping model.ConsentMappingResource
		if err := rows.Scan(&mapping.MappingID, &mapping.AuthorizationID, &mapping.AccountID,
			&mapping.Permission, &mapping.MappingStatus); err != nil {
			return nil, errors2.NewConsentError(errors2.KindRetrieval, "failed to read account mapping results", err)
		}
		mappings = append(mappings, mapping)
	}
	if err := rows.Err(); err != nil {
		return nil, errors2.NewConsentError(errors2.KindRetrieval, "failed to read account mapping results", err)
	}
	return mappings, nil
}

// UpdateConsentMappingStatus updates the status of the given mappings. An
// empty ID list is a no-op.
func (s *PostgresConsentStore) UpdateConsentMappingStatus(tx dbclient.TxInterface,
	mappingIDs []string, newStatus string) error {

	if len(mappingIDs) == 0 {
		return nil
	}
	query := `UPDATE ob_consent_mapping SET mapping_status = $1 WHERE mapping_id = ANY($2)`
	_, err := tx.Exec(query, newStatus, pq.Array(mappingIDs))
	if err != nil {
		errorMsg := "failed to update status of account mappings"
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return errors2.NewConsentError(errors2.KindUpdate, errorMsg, err)
	}
	return nil
}
