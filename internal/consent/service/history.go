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
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	model "github.com/wso2/open-banking-consent-mgt-service/internal/consent/model"
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/constants"
	errors2 "github.com/wso2/open-banking-consent-mgt-service/internal/system/errors"
)

// nullChangedValues marks a record that did not exist before the amendment.
const nullChangedValues = "null"

// basicDataChange carries the pre-amendment values of the changed basic
// consent fields inside a history row.
type basicDataChange struct {
	Receipt       *string `json:"RECEIPT,omitempty"`
	ValidityTime  *int64  `json:"VALIDITY_TIME,omitempty"`
	UpdatedTime   *int64  `json:"UPDATED_TIME,omitempty"`
	CurrentStatus *string `json:"CURRENT_STATUS,omitempty"`
}

// mappingStatusChange carries the pre-amendment status of one mapping.
type mappingStatusChange struct {
	MappingStatus string `json:"MAPPING_STATUS"`
}

// StoreConsentAmendmentHistory diffs the pre-amendment snapshot against the
// current consent and stores one history row per changed facet, all under
// one history ID. When no current snapshot is supplied the engine fetches
// the live consent itself, so the stored history always reflects a real,
// retrievable state.
func (s *ConsentCoreService) StoreConsentAmendmentHistory(consentID string,
	history model.ConsentHistoryResource, currentConsent *model.DetailedConsentResource) error {

	if consentID == "" {
		return errors2.NewValidationError("consent ID is required for amendment history storage")
	}
	if history.Reason == "" {
		return errors2.NewValidationError("amendment reason is required for amendment history storage")
	}
	if history.Timestamp <= 0 {
		return errors2.NewValidationError("a positive amendment timestamp is required for amendment history storage")
	}
	if history.DetailedConsentResource == nil {
		return errors2.NewValidationError("the pre-amendment consent snapshot is required for amendment history storage")
	}
	if history.HistoryID == "" {
		history.HistoryID = uuid.New().String()
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return err
	}
	defer client.Close()

	if currentConsent == nil {
		currentConsent, err = s.store.GetDetailedConsentResource(tx, consentID)
		if err != nil {
			rollback(tx)
			return err
		}
	}

	records, err := buildAmendmentHistoryRecords(history, history.DetailedConsentResource, currentConsent)
	if err != nil {
		rollback(tx)
		return err
	}
	for _, record := range records {
		if err := s.store.StoreConsentAmendmentHistory(tx, record); err != nil {
			rollback(tx)
			return err
		}
	}
	return commit(tx)
}

// GetConsentAmendmentHistoryData reconstructs every recorded amendment of a
// consent into a history-ID keyed map of point-in-time consent views, by
// applying the stored pre-amendment values backward onto the current state,
// newest amendment first.
func (s *ConsentCoreService) GetConsentAmendmentHistoryData(
	consentID string) (map[string]model.ConsentHistoryResource, error) {

	if consentID == "" {
		return nil, errors2.NewValidationError("consent ID is required for amendment history retrieval")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	current, err := s.store.GetDetailedConsentResource(tx, consentID)
	if err != nil {
		rollback(tx)
		return nil, err
	}

	recordIDs := []string{consentID}
	for _, mapping := range current.ConsentMappingResources {
		recordIDs = append(recordIDs, mapping.MappingID)
	}
	for _, authorization := range current.AuthorizationResources {
		recordIDs = append(recordIDs, authorization.AuthorizationID)
	}

	records, err := s.store.RetrieveConsentAmendmentHistory(tx, recordIDs)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	// Records come back newest amendment first; group them per history ID
	// preserving that order.
	groupOrder := make([]string, 0)
	groups := make(map[string][]model.AmendmentHistoryRecord)
	for _, record := range records {
		if _, seen := groups[record.HistoryID]; !seen {
			groupOrder = append(groupOrder, record.HistoryID)
		}
		groups[record.HistoryID] = append(groups[record.HistoryID], record)
	}

	result := make(map[string]model.ConsentHistoryResource, len(groups))
	working := current.Clone()
	for _, historyID := range groupOrder {
		group := groups[historyID]
		for _, record := range group {
			if err := applyHistoryRecord(working, consentID, record); err != nil {
				return nil, err
			}
		}
		result[historyID] = model.ConsentHistoryResource{
			HistoryID:               historyID,
			Reason:                  group[0].Reason,
			Timestamp:               group[0].Timestamp,
			DetailedConsentResource: working.Clone(),
		}
	}
	return result, nil
}

// buildAmendmentHistoryRecords computes the changed-facet rows of one
// amendment: basic consent data, attributes, mapping status flips, new
// mappings and new or changed authorizations.
func buildAmendmentHistoryRecords(history model.ConsentHistoryResource,
	old, current *model.DetailedConsentResource) ([]model.AmendmentHistoryRecord, error) {

	newRecord := func(recordID, dataType, changedValues string) model.AmendmentHistoryRecord {
		return model.AmendmentHistoryRecord{
			HistoryID:     history.HistoryID,
			RecordID:      recordID,
			DataType:      dataType,
			ChangedValues: changedValues,
			Reason:        history.Reason,
			Timestamp:     history.Timestamp,
		}
	}

	records := make([]model.AmendmentHistoryRecord, 0)

	basic := basicDataChange{}
	changed := false
	if old.Receipt != current.Receipt {
		basic.Receipt = &old.Receipt
		changed = true
	}
	if old.ValidityPeriod != current.ValidityPeriod {
		basic.ValidityTime = &old.ValidityPeriod
		changed = true
	}
	if old.UpdatedTime != current.UpdatedTime {
		basic.UpdatedTime = &old.UpdatedTime
		changed = true
	}
	if old.CurrentStatus != current.CurrentStatus {
		basic.CurrentStatus = &old.CurrentStatus
		changed = true
	}
	if changed {
		payload, err := json.Marshal(basic)
		if err != nil {
			return nil, errors2.NewConsentError(errors2.KindInsertion,
				"failed to serialize basic consent data history", err)
		}
		records = append(records, newRecord(current.ConsentID,
			constants.AmendmentTypeConsentBasicData, string(payload)))
	}

	if !attributeMapsEqual(old.ConsentAttributes, current.ConsentAttributes) {
		payload, err := json.Marshal(old.ConsentAttributes)
		if err != nil {
			return nil, errors2.NewConsentError(errors2.KindInsertion,
				"failed to serialize consent attribute history", err)
		}
		records = append(records, newRecord(current.ConsentID,
			constants.AmendmentTypeConsentAttributes, string(payload)))
	}

	oldMappings := make(map[string]model.ConsentMappingResource, len(old.ConsentMappingResources))
	for _, mapping := range old.ConsentMappingResources {
		oldMappings[mapping.MappingID] = mapping
	}
	for _, mapping := range current.ConsentMappingResources {
		oldMapping, existed := oldMappings[mapping.MappingID]
		if !existed {
			records = append(records, newRecord(mapping.MappingID,
				constants.AmendmentTypeConsentMappings, nullChangedValues))
			continue
		}
		if oldMapping.MappingStatus != mapping.MappingStatus {
			payload, err := json.Marshal(mappingStatusChange{MappingStatus: oldMapping.MappingStatus})
			if err != nil {
				return nil, errors2.NewConsentError(errors2.KindInsertion,
					"failed to serialize mapping history", err)
			}
			records = append(records, newRecord(mapping.MappingID,
				constants.AmendmentTypeConsentMappings, string(payload)))
		}
	}

	oldAuths := make(map[string]model.AuthorizationResource, len(old.AuthorizationResources))
	for _, authorization := range old.AuthorizationResources {
		oldAuths[authorization.AuthorizationID] = authorization
	}
	for _, authorization := range current.AuthorizationResources {
		oldAuth, existed := oldAuths[authorization.AuthorizationID]
		if !existed {
			records = append(records, newRecord(authorization.AuthorizationID,
				constants.AmendmentTypeConsentAuthResource, nullChangedValues))
			continue
		}
		if oldAuth.AuthorizationStatus != authorization.AuthorizationStatus ||
			oldAuth.UserID != authorization.UserID {
			payload, err := json.Marshal(oldAuth)
			if err != nil {
				return nil, errors2.NewConsentError(errors2.KindInsertion,
					"failed to serialize authorization history", err)
			}
			records = append(records, newRecord(authorization.AuthorizationID,
				constants.AmendmentTypeConsentAuthResource, string(payload)))
		}
	}

	return records, nil
}

// applyHistoryRecord rolls one stored pre-amendment facet backward onto the
// working consent view.
func applyHistoryRecord(working *model.DetailedConsentResource, consentID string,
	record model.AmendmentHistoryRecord) error {

	switch record.DataType {
	case constants.AmendmentTypeConsentBasicData:
		var change basicDataChange
		if err := json.Unmarshal([]byte(record.ChangedValues), &change); err != nil {
			return parseHistoryError(record, err)
		}
		if change.Receipt != nil {
			working.Receipt = *change.Receipt
		}
		if change.ValidityTime != nil {
			working.ValidityPeriod = *change.ValidityTime
		}
		if change.UpdatedTime != nil {
			working.UpdatedTime = *change.UpdatedTime
		}
		if change.CurrentStatus != nil {
			working.CurrentStatus = *change.CurrentStatus
		}

	case constants.AmendmentTypeConsentAttributes:
		var attributes map[string]string
		if err := json.Unmarshal([]byte(record.ChangedValues), &attributes); err != nil {
			return parseHistoryError(record, err)
		}
		working.ConsentAttributes = attributes

	case constants.AmendmentTypeConsentMappings:
		if record.ChangedValues == nullChangedValues {
			working.ConsentMappingResources = removeMapping(working.ConsentMappingResources, record.RecordID)
			return nil
		}
		var change mappingStatusChange
		if err := json.Unmarshal([]byte(record.ChangedValues), &change); err != nil {
			return parseHistoryError(record, err)
		}
		for i := range working.ConsentMappingResources {
			if working.ConsentMappingResources[i].MappingID == record.RecordID {
				working.ConsentMappingResources[i].MappingStatus = change.MappingStatus
			}
		}

	case constants.AmendmentTypeConsentAuthResource:
		if record.ChangedValues == nullChangedValues {
			working.AuthorizationResources = removeAuthorization(working.AuthorizationResources, record.RecordID)
			return nil
		}
		var oldAuth model.AuthorizationResource
		if err := json.Unmarshal([]byte(record.ChangedValues), &oldAuth); err != nil {
			return parseHistoryError(record, err)
		}
		for i := range working.AuthorizationResources {
			if working.AuthorizationResources[i].AuthorizationID == record.RecordID {
				working.AuthorizationResources[i] = oldAuth
			}
		}
	}
	return nil
}

func parseHistoryError(record model.AmendmentHistoryRecord, err error) error {
	return errors2.NewConsentError(errors2.KindRetrieval,
		fmt.Sprintf("failed to parse stored history values of record: %s", record.RecordID), err)
}

func removeMapping(mappings []model.ConsentMappingResource, mappingID string) []model.ConsentMappingResource {
	remaining := make([]model.ConsentMappingResource, 0, len(mappings))
	for _, mapping := range mappings {
		if mapping.MappingID != mappingID {
			remaining = append(remaining, mapping)
		}
	}
	return remaining
}

func removeAuthorization(authorizations []model.AuthorizationResource,
	authorizationID string) []model.AuthorizationResource {
	remaining := make([]model.AuthorizationResource, 0, len(authorizations))
	for _, authorization := range authorizations {
		if authorization.AuthorizationID != authorizationID {
			remaining = append(remaining, authorization)
		}
	}
	return remaining
}

// attributeMapsEqual compares two attribute maps, treating nil and empty as
// equal.
func attributeMapsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for key, value := range a {
		if b[key] != value {
			return false
		}
	}
	return true
}
