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

const auditRecordColumns = `status_audit_id, consent_id, current_status, action_time, reason, action_by, previous_status`

// StoreConsentStatusAuditRecord inserts a new status audit row. The audit ID
// and action time are stamped here when not supplied.
func (s *PostgresConsentStore) StoreConsentStatusAuditRecord(tx dbclient.TxInterface,
	record model.ConsentStatusAuditRecord) (*model.ConsentStatusAuditRecord, error) {

	if record.StatusAuditID == "" {
		record.StatusAuditID = uuid.New().String()
	}
	if record.ActionTime == 0 {
		record.ActionTime = time.Now().Unix()
	}

	query := `INSERT INTO ob_consent_status_audit (` + auditRecordColumns + `)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := tx.Exec(query, record.StatusAuditID, record.ConsentID, record.CurrentStatus,
		record.ActionTime, record.Reason, record.ActionBy, record.PreviousStatus)
	if err != nil {
		errorMsg := fmt.Sprintf("failed to insert status audit record for consent: %s", record.ConsentID)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindInsertion, errorMsg, err)
	}
	return &record, nil
}

// SearchConsentStatusAuditRecords returns the audit rows matching the filter,
// newest first. Nil filter fields apply no restriction.
func (s *PostgresConsentStore) SearchConsentStatusAuditRecords(tx dbclient.TxInterface,
	filter model.AuditRecordSearchFilter) ([]model.ConsentStatusAuditRecord, error) {

	query := `SELECT ` + auditRecordColumns + ` FROM ob_consent_status_audit WHERE 1=1`
	args := make([]interface{}, 0)

	if filter.ConsentID != "" {
		args = append(args, filter.ConsentID)
		query += fmt.Sprintf(" AND consent_id = $%d", len(args))
	}
	if filter.CurrentStatus != "" {
		args = append(args, filter.CurrentStatus)
		query += fmt.Sprintf(" AND current_status = $%d", len(args))
	}
	if filter.ActionBy != "" {
		args = append(args, filter.ActionBy)
		query += fmt.Sprintf(" AND action_by = $%d", len(args))
	}
	if filter.AuditID != "" {
		args = append(args, filter.AuditID)
		query += fmt.Sprintf(" AND status_audit_id = $%d", len(args))
	}
	if filter.FromTime != nil {
		args = append(args, *filter.FromTime)
		query += fmt.Sprintf(" AND action_time >= $%d", len(args))
	}
	if filter.ToTime != nil {
		args = append(args, *filter.ToTime)
		query += fmt.Sprintf(" AND action_time <= $%d", len(args))
	}
	query += " ORDER BY action_time DESC"

	rows, err := tx.Query(query, args...)
	if err != nil {
		errorMsg := "failed to search status audit records"
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindRetrieval, errorMsg, err)
	}
	return scanAuditRecords(rows)
}

// GetConsentStatusAuditRecords returns the audit rows of the given consents,
// newest first, with optional pagination.
func (s *PostgresConsentStore) GetConsentStatusAuditRecords(tx dbclient.TxInterface,
	consentIDs []string, limit, offset *int) ([]model.ConsentStatusAuditRecord, error) {

	query := `SELECT ` + auditRecordColumns + ` FROM ob_consent_status_audit
				WHERE consent_id = ANY($1) ORDER BY action_time DESC`
	args := []interface{}{pq.Array(consentIDs)}
	if limit != nil {
		args = append(args, *limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset != nil {
		args = append(args, *offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := tx.Query(query, args...)
	if err != nil {
		errorMsg := "failed to retrieve status audit records"
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindRetrieval, errorMsg, err)
	}
	return scanAuditRecords(rows)
}

// StoreConsentAmendmentHistory inserts one amendment history row holding the
// changed values of a single record under an amendment.
func (s *PostgresConsentStore) StoreConsentAmendmentHistory(tx dbclient.TxInterface,
	record model.AmendmentHistoryRecord) error {

	query := `INSERT INTO ob_consent_history (history_id, record_id, data_type, changed_values, reason, effective_time)
				VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := tx.Exec(query, record.HistoryID, record.RecordID, record.DataType,
		record.ChangedValues, record.Reason, record.Timestamp)
	if err != nil {
		errorMsg := fmt.Sprintf("failed to insert amendment history record: %s", record.RecordID)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return errors2.NewConsentError(errors2.KindInsertion, errorMsg, err)
	}
	return nil
}

// RetrieveConsentAmendmentHistory returns every history row of the given
// record IDs, newest amendment first.
func (s *PostgresConsentStore) RetrieveConsentAmendmentHistory(tx dbclient.TxInterface,
	recordIDs []string) ([]model.AmendmentHistoryRecord, error) {

	query := `SELECT history_id, record_id, data_type, changed_values, reason, effective_time
				FROM ob_consent_history WHERE record_id = ANY($1) ORDER BY effective_time DESC, history_id`
	rows, err := tx.Query(query, pq.Array(recordIDs))
	if err != nil {
		errorMsg := "failed to retrieve amendment history records"
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindRetrieval, errorMsg, err)
	}
	defer rows.Close()

	records := make([]model.AmendmentHistoryRecord, 0)
	for rows.Next() {
		var record model.AmendmentHistoryRecord
		if err := rows.Scan(&record.HistoryID, &record.RecordID, &record.DataType,
			&record.ChangedValues, &record.Reason, &record.Timestamp); err != nil {
			return nil, errors2.NewConsentError(errors2.KindRetrieval, "failed to read amendment history results", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors2.NewConsentError(errors2.KindRetrieval, "failed to read amendment history results", err)
	}
	return records, nil
}

// StoreConsentFile inserts the file payload of a consent.
func (s *PostgresConsentStore) StoreConsentFile(tx dbclient.TxInterface, file model.ConsentFile) error {

	query := `INSERT INTO ob_consent_file (consent_id, consent_file) VALUES ($1, $2)`
	if _, err := tx.Exec(query, file.ConsentID, file.ConsentFile); err != nil {
		errorMsg := fmt.Sprintf("failed to insert file of consent: %s", file.ConsentID)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return errors2.NewConsentError(errors2.KindInsertion, errorMsg, err)
	}
	return nil
}

// GetConsentFile returns the file payload of a consent.
func (s *PostgresConsentStore) GetConsentFile(tx dbclient.TxInterface, consentID string) (*model.ConsentFile, error) {

	query := `SELECT consent_id, consent_file FROM ob_consent_file WHERE consent_id = $1`
	row := tx.QueryRow(query, consentID)

	var file model.ConsentFile
	if err := row.Scan(&file.ConsentID, &file.ConsentFile); err != nil {
		errorMsg := fmt.Sprintf("failed to retrieve file of consent: %s", consentID)
		log.GetLogger().Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindRetrieval, errorMsg, err)
	}
	return &file, nil
}

// scanAuditRecords drains a result set of audit rows.
func scanAuditRecords(rows *sql.Rows) ([]model.ConsentStatusAuditRecord, error) {
	defer rows.Close()

	records := make([]model.ConsentStatusAuditRecord, 0)
	for rows.Next() {
		var record model.ConsentStatusAuditRecord
		if err := rows.Scan(&record.StatusAuditID, &record.ConsentID, &record.CurrentStatus,
			&record.ActionTime, &record.Reason, &record.ActionBy, &record.PreviousStatus); err != nil {
			return nil, errors2.NewConsentError(errors2.KindRetrieval, "failed to read status audit results", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors2.NewConsentError(errors2.KindRetrieval, "failed to read status audit results", err)
	}
	return records, nil
}
