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
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	model "github.com/wso2/open-banking-consent-mgt-service/internal/consent/model"
	dbclient "github.com/wso2/open-banking-consent-mgt-service/internal/system/database/client"
	errors2 "github.com/wso2/open-banking-consent-mgt-service/internal/system/errors"
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/log"
)

// PostgresConsentStore is the Postgres-backed implementation of ConsentStore.
type PostgresConsentStore struct{}

// NewPostgresConsentStore returns a new Postgres consent store.
func NewPostgresConsentStore() ConsentStore {
	return &PostgresConsentStore{}
}

// StoreConsentResource inserts a new consent row. A consent ID is generated
// when not supplied, and created/updated times are stamped here.
func (s *PostgresConsentStore) StoreConsentResource(tx dbclient.TxInterface,
	consent model.ConsentResource) (*model.ConsentResource, error) {

	if consent.ConsentID == "" {
		consent.ConsentID = uuid.New().String()
	}
	now := time.Now().Unix()
	if consent.CreatedTime == 0 {
		consent.CreatedTime = now
	}
	consent.UpdatedTime = now

	query := `INSERT INTO ob_consent (consent_id, client_id, receipt, consent_type, current_status,
				consent_frequency, validity_time, recurring_indicator, created_time, updated_time)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := tx.Exec(query, consent.ConsentID, consent.ClientID, consent.Receipt, consent.ConsentType,
		consent.CurrentStatus, consent.ConsentFrequency, consent.ValidityPeriod, consent.RecurringIndicator,
		consent.CreatedTime, consent.UpdatedTime)
	if err != nil {
		errorMsg := fmt.Sprintf("failed to insert consent: %s", consent.ConsentID)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindInsertion, errorMsg, err)
	}
	return &consent, nil
}

// GetConsentResource retrieves a consent row by its ID.
func (s *PostgresConsentStore) GetConsentResource(tx dbclient.TxInterface,
	consentID string) (*model.ConsentResource, error) {

	query := `SELECT consent_id, client_id, receipt, consent_type, current_status, consent_frequency,
				validity_time, recurring_indicator, created_time, updated_time
				FROM ob_consent WHERE consent_id = $1`
	row := tx.QueryRow(query, consentID)

	var consent model.ConsentResource
	err := row.Scan(&consent.ConsentID, &consent.ClientID, &consent.Receipt, &consent.ConsentType,
		&consent.CurrentStatus, &consent.ConsentFrequency, &consent.ValidityPeriod,
		&consent.RecurringIndicator, &consent.CreatedTime, &consent.UpdatedTime)
	if err != nil {
		errorMsg := fmt.Sprintf("failed to retrieve consent: %s", consentID)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindRetrieval, errorMsg, err)
	}
	return &consent, nil
}

// GetConsentResourceWithAttributes retrieves a consent row along with all of
// its attributes.
func (s *PostgresConsentStore) GetConsentResourceWithAttributes(tx dbclient.TxInterface,
	consentID string) (*model.ConsentResource, error) {

	consent, err := s.GetConsentResource(tx, consentID)
	if err != nil {
		return nil, err
	}
	attributes, err := s.getAttributeMap(tx, consentID)
	if err != nil {
		return nil, err
	}
	consent.ConsentAttributes = attributes
	return consent, nil
}

// GetDetailedConsentResource builds the full aggregate of a consent: the
// consent row, every authorization, every mapping across those
// authorizations, and all attributes.
func (s *PostgresConsentStore) GetDetailedConsentResource(tx dbclient.TxInterface,
	consentID string) (*model.DetailedConsentResource, error) {

	consent, err := s.GetConsentResource(tx, consentID)
	if err != nil {
		return nil, err
	}

	authorizations, err := s.SearchConsentAuthorizations(tx, consentID, "")
	if err != nil {
		return nil, err
	}

	mappings := make([]model.ConsentMappingResource, 0)
	for _, authorization := range authorizations {
		authMappings, err := s.GetConsentMappingResources(tx, authorization.AuthorizationID)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, authMappings...)
	}

	attributes, err := s.getAttributeMap(tx, consentID)
	if err != nil {
		return nil, err
	}

	return &model.DetailedConsentResource{
		ConsentID:               consent.ConsentID,
		ClientID:                consent.ClientID,
		Receipt:                 consent.Receipt,
		ConsentType:             consent.ConsentType,
		CurrentStatus:           consent.CurrentStatus,
		ConsentFrequency:        consent.ConsentFrequency,
		ValidityPeriod:          consent.ValidityPeriod,
		RecurringIndicator:      consent.RecurringIndicator,
		CreatedTime:             consent.CreatedTime,
		UpdatedTime:             consent.UpdatedTime,
		ConsentAttributes:       attributes,
		AuthorizationResources:  authorizations,
		ConsentMappingResources: mappings,
	}, nil
}

// UpdateConsentStatus updates the current status of a consent and stamps the
// updated time.
func (s *PostgresConsentStore) UpdateConsentStatus(tx dbclient.TxInterface, consentID, newStatus string) error {

	query := `UPDATE ob_consent SET current_status = $1, updated_time = $2 WHERE consent_id = $3`
	result, err := tx.Exec(query, newStatus, time.Now().Unix(), consentID)
	if err != nil {
		errorMsg := fmt.Sprintf("failed to update status of consent: %s", consentID)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return errors2.NewConsentError(errors2.KindUpdate, errorMsg, err)
	}
	return checkAffected(result, errors2.KindUpdate, fmt.Sprintf("no consent found for status update: %s", consentID))
}

// UpdateConsentReceipt replaces the receipt payload of a consent.
func (s *PostgresConsentStore) UpdateConsentReceipt(tx dbclient.TxInterface, consentID, receipt string) error {

	query := `UPDATE ob_consent SET receipt = $1, updated_time = $2 WHERE consent_id = $3`
	result, err := tx.Exec(query, receipt, time.Now().Unix(), consentID)
	if err != nil {
		errorMsg := fmt.Sprintf("failed to update receipt of consent: %s", consentID)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return errors2.NewConsentError(errors2.KindUpdate, errorMsg, err)
	}
	return checkAffected(result, errors2.KindUpdate, fmt.Sprintf("no consent found for receipt update: %s", consentID))
}

// UpdateConsentValidityTime replaces the validity period of a consent.
func (s *PostgresConsentStore) UpdateConsentValidityTime(tx dbclient.TxInterface, consentID string,
	validityTime int64) error {

	query := `UPDATE ob_consent SET validity_time = $1, updated_time = $2 WHERE consent_id = $3`
	result, err := tx.Exec(query, validityTime, time.Now().Unix(), consentID)
	if err != nil {
		errorMsg := fmt.Sprintf("failed to update validity time of consent: %s", consentID)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return errors2.NewConsentError(errors2.KindUpdate, errorMsg, err)
	}
	return checkAffected(result, errors2.KindUpdate,
		fmt.Sprintf("no consent found for validity time update: %s", consentID))
}

// SearchConsents returns the detailed consents matching the filter. Nil
// filter fields apply no restriction; a nil limit means unlimited.
func (s *PostgresConsentStore) SearchConsents(tx dbclient.TxInterface,
	filter model.ConsentSearchFilter) ([]model.DetailedConsentResource, error) {

	query := `SELECT c.consent_id FROM ob_consent c WHERE 1=1`
	args := make([]interface{}, 0)

	appendListFilter := func(column string, values []string) {
		if len(values) > 0 {
			args = append(args, pq.Array(values))
			query += fmt.Sprintf(" AND %s = ANY($%d)", column, len(args))
		}
	}
	appendListFilter("c.consent_id", filter.ConsentIDs)
	appendListFilter("c.client_id", filter.ClientIDs)
	appendListFilter("c.consent_type", filter.ConsentTypes)
	appendListFilter("c.current_status", filter.ConsentStatuses)

	if len(filter.UserIDs) > 0 {
		args = append(args, pq.Array(filter.UserIDs))
		query += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM ob_consent_auth_resource a"+
			" WHERE a.consent_id = c.consent_id AND a.user_id = ANY($%d))", len(args))
	}
	if filter.FromTime != nil {
		args = append(args, *filter.FromTime)
		query += fmt.Sprintf(" AND c.updated_time >= $%d", len(args))
	}
	if filter.ToTime != nil {
		args = append(args, *filter.ToTime)
		query += fmt.Sprintf(" AND c.updated_time <= $%d", len(args))
	}

	query += " ORDER BY c.updated_time DESC"
	if filter.Limit != nil {
		args = append(args, *filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset != nil {
		args = append(args, *filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := tx.Query(query, args...)
	if err != nil {
		errorMsg := "failed to search consents"
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindRetrieval, errorMsg, err)
	}
	consentIDs, err := scanIDs(rows)
	if err != nil {
		return nil, errors2.NewConsentError(errors2.KindRetrieval, "failed to read consent search results", err)
	}

	results := make([]model.DetailedConsentResource, 0, len(consentIDs))
	for _, consentID := range consentIDs {
		detailed, err := s.GetDetailedConsentResource(tx, consentID)
		if err != nil {
			return nil, err
		}
		results = append(results, *detailed)
	}
	return results, nil
}

// GetExpiringConsents returns detailed consents in the given statuses that
// carry an expiration time attribute, for the external expiry batch.
func (s *PostgresConsentStore) GetExpiringConsents(tx dbclient.TxInterface,
	statuses []string) ([]model.DetailedConsentResource, error) {

	query := `SELECT DISTINCT c.consent_id FROM ob_consent c
				JOIN ob_consent_attribute att ON att.consent_id = c.consent_id
				WHERE att.att_key = 'ExpirationDateTime' AND c.current_status = ANY($1)`
	rows, err := tx.Query(query, pq.Array(statuses))
	if err != nil {
		errorMsg := "failed to retrieve expiring consents"
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindRetrieval, errorMsg, err)
	}
	consentIDs, err := scanIDs(rows)
	if err != nil {
		return nil, errors2.NewConsentError(errors2.KindRetrieval, "failed to read expiring consent results", err)
	}

	results := make([]model.DetailedConsentResource, 0, len(consentIDs))
	for _, consentID := range consentIDs {
		detailed, err := s.GetDetailedConsentResource(tx, consentID)
		if err != nil {
			return nil, err
		}
		results = append(results, *detailed)
	}
	return results, nil
}

// scanIDs drains a single-column result set of IDs.
func scanIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// scanAttributePairs drains a two-column key-value result set.
func scanAttributePairs(rows *sql.Rows) (map[string]string, error) {
	defer rows.Close()

	pairs := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		pairs[key] = value
	}
	return pairs, rows.Err()
}

// checkAffected converts a zero-row update into a typed error.
func checkAffected(result sql.Result, kind errors2.ErrorKind, msg string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return errors2.NewConsentError(kind, msg, err)
	}
	if affected == 0 {
		return errors2.NewConsentError(kind, msg, sql.ErrNoRows)
	}
	return nil
}
