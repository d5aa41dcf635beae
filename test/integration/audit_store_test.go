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

package integration

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	model "github.com/wso2/open-banking-consent-mgt-service/internal/consent/model"
	errors2 "github.com/wso2/open-banking-consent-mgt-service/internal/system/errors"
)

// ---------------------------------------------------------------------------
// Attributes
// ---------------------------------------------------------------------------

func TestConsentAttributesRoundTrip(t *testing.T) {
	tx := beginTx(t)
	consent := seedConsent(t, tx, "client-attr", "authorized")

	require.NoError(t, consentStore.StoreConsentAttributes(tx, model.ConsentAttributes{
		ConsentID: consent.ConsentID,
		ConsentAttributes: map[string]string{
			"channel":   "web",
			"sharing":   "joint",
			"idempot_k": "key-123",
		},
	}))

	all, err := consentStore.GetConsentAttributes(tx, consent.ConsentID)
	require.NoError(t, err)
	assert.Len(t, all.ConsentAttributes, 3)
	assert.Equal(t, "web", all.ConsentAttributes["channel"])

	subset, err := consentStore.GetConsentAttributesWithKeys(tx, consent.ConsentID,
		[]string{"channel", "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"channel": "web"}, subset.ConsentAttributes)

	require.NoError(t, consentStore.DeleteConsentAttributes(tx, consent.ConsentID, []string{"sharing"}))
	all, err = consentStore.GetConsentAttributes(tx, consent.ConsentID)
	require.NoError(t, err)
	assert.NotContains(t, all.ConsentAttributes, "sharing")
	assert.Len(t, all.ConsentAttributes, 2)

	commitTx(t, tx)
}

func TestConsentAttributeLookupsByNameAndValue(t *testing.T) {
	attributeName := "lookup-" + uuid.New().String()

	tx := beginTx(t)
	first := seedConsent(t, tx, "client-attr-lookup", "authorized")
	second := seedConsent(t, tx, "client-attr-lookup", "authorized")
	require.NoError(t, consentStore.StoreConsentAttributes(tx, model.ConsentAttributes{
		ConsentID:         first.ConsentID,
		ConsentAttributes: map[string]string{attributeName: "value-a"},
	}))
	require.NoError(t, consentStore.StoreConsentAttributes(tx, model.ConsentAttributes{
		ConsentID:         second.ConsentID,
		ConsentAttributes: map[string]string{attributeName: "value-b"},
	}))

	byName, err := consentStore.GetConsentAttributesByName(tx, attributeName)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		first.ConsentID:  "value-a",
		second.ConsentID: "value-b",
	}, byName)

	consentIDs, err := consentStore.GetConsentIDByAttributeNameAndValue(tx, attributeName, "value-b")
	require.NoError(t, err)
	assert.Equal(t, []string{second.ConsentID}, consentIDs)

	commitTx(t, tx)
}

// ---------------------------------------------------------------------------
// Status audit records
// ---------------------------------------------------------------------------

func TestAuditRecordSearch(t *testing.T) {
	tx := beginTx(t)
	consent := seedConsent(t, tx, "client-audit", "awaitingAuthorization")

	_, err := consentStore.StoreConsentStatusAuditRecord(tx, model.ConsentStatusAuditRecord{
		ConsentID:      consent.ConsentID,
		CurrentStatus:  "awaitingAuthorization",
		ActionTime:     1000,
		Reason:         "Create consent",
		PreviousStatus: "",
	})
	require.NoError(t, err)
	_, err = consentStore.StoreConsentStatusAuditRecord(tx, model.ConsentStatusAuditRecord{
		ConsentID:      consent.ConsentID,
		CurrentStatus:  "authorized",
		ActionTime:     2000,
		Reason:         "User accounts binding",
		ActionBy:       "user-audit",
		PreviousStatus: "awaitingAuthorization",
	})
	require.NoError(t, err)

	records, err := consentStore.SearchConsentStatusAuditRecords(tx, model.AuditRecordSearchFilter{
		ConsentID: consent.ConsentID,
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "authorized", records[0].CurrentStatus)
	assert.Equal(t, "awaitingAuthorization", records[1].CurrentStatus)

	byStatus, err := consentStore.SearchConsentStatusAuditRecords(tx, model.AuditRecordSearchFilter{
		ConsentID:     consent.ConsentID,
		CurrentStatus: "authorized",
	})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "user-audit", byStatus[0].ActionBy)

	fromTime := int64(1500)
	byTime, err := consentStore.SearchConsentStatusAuditRecords(tx, model.AuditRecordSearchFilter{
		ConsentID: consent.ConsentID,
		FromTime:  &fromTime,
	})
	require.NoError(t, err)
	require.Len(t, byTime, 1)
	assert.Equal(t, int64(2000), byTime[0].ActionTime)

	commitTx(t, tx)
}

func TestGetAuditRecordsWithPagination(t *testing.T) {
	tx := beginTx(t)
	consent := seedConsent(t, tx, "client-audit-page", "authorized")

	for i, status := range []string{"awaitingAuthorization", "authorized", "revoked"} {
		_, err := consentStore.StoreConsentStatusAuditRecord(tx, model.ConsentStatusAuditRecord{
			ConsentID:     consent.ConsentID,
			CurrentStatus: status,
			ActionTime:    int64(1000 * (i + 1)),
		})
		require.NoError(t, err)
	}

	limit, offset := 1, 1
	records, err := consentStore.GetConsentStatusAuditRecords(tx,
		[]string{consent.ConsentID}, &limit, &offset)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "authorized", records[0].CurrentStatus)

	commitTx(t, tx)
}

// ---------------------------------------------------------------------------
// Amendment history rows
// ---------------------------------------------------------------------------

func TestAmendmentHistoryOrdering(t *testing.T) {
	consentID := uuid.New().String()

	tx := beginTx(t)
	older := model.AmendmentHistoryRecord{
		HistoryID:     uuid.New().String(),
		RecordID:      consentID,
		DataType:      "ConsentData",
		ChangedValues: `{"RECEIPT":"v1"}`,
		Reason:        "Consent amendment",
		Timestamp:     1000,
	}
	newer := model.AmendmentHistoryRecord{
		HistoryID:     uuid.New().String(),
		RecordID:      consentID,
		DataType:      "ConsentData",
		ChangedValues: `{"RECEIPT":"v2"}`,
		Reason:        "Consent amendment",
		Timestamp:     2000,
	}
	require.NoError(t, consentStore.StoreConsentAmendmentHistory(tx, older))
	require.NoError(t, consentStore.StoreConsentAmendmentHistory(tx, newer))

	records, err := consentStore.RetrieveConsentAmendmentHistory(tx, []string{consentID})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, newer.HistoryID, records[0].HistoryID)
	assert.Equal(t, older.HistoryID, records[1].HistoryID)
	assert.Equal(t, `{"RECEIPT":"v2"}`, records[0].ChangedValues)

	commitTx(t, tx)
}

func TestAmendmentHistorySpansRecordIDs(t *testing.T) {
	consentID := uuid.New().String()
	mappingID := uuid.New().String()
	historyID := uuid.New().String()

	tx := beginTx(t)
	require.NoError(t, consentStore.StoreConsentAmendmentHistory(tx, model.AmendmentHistoryRecord{
		HistoryID:     historyID,
		RecordID:      consentID,
		DataType:      "ConsentData",
		ChangedValues: `{"RECEIPT":"old"}`,
		Reason:        "Consent amendment",
		Timestamp:     1000,
	}))
	require.NoError(t, consentStore.StoreConsentAmendmentHistory(tx, model.AmendmentHistoryRecord{
		HistoryID:     historyID,
		RecordID:      mappingID,
		DataType:      "ConsentMappingData",
		ChangedValues: "null",
		Reason:        "Consent amendment",
		Timestamp:     1000,
	}))

	records, err := consentStore.RetrieveConsentAmendmentHistory(tx, []string{consentID, mappingID})
	require.NoError(t, err)
	assert.Len(t, records, 2)
	for _, record := range records {
		assert.Equal(t, historyID, record.HistoryID)
	}

	commitTx(t, tx)
}

// ---------------------------------------------------------------------------
// Consent files
// ---------------------------------------------------------------------------

func TestConsentFileRoundTrip(t *testing.T) {
	tx := beginTx(t)
	consent := seedConsent(t, tx, "client-file", "awaitingUpload")

	require.NoError(t, consentStore.StoreConsentFile(tx, model.ConsentFile{
		ConsentID:   consent.ConsentID,
		ConsentFile: "bulk-payment-instructions",
	}))

	file, err := consentStore.GetConsentFile(tx, consent.ConsentID)
	require.NoError(t, err)
	assert.Equal(t, "bulk-payment-instructions", file.ConsentFile)

	_, err = consentStore.GetConsentFile(tx, uuid.New().String())
	require.Error(t, err)
	assert.True(t, errors2.IsKind(err, errors2.KindRetrieval))

	commitTx(t, tx)
}
