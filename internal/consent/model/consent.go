/*
 * Copyright (c) 2025, WSO2 LLC. (http://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package models

// ConsentResource is the root consent entity. ClientID, Receipt, ConsentType
// and CurrentStatus are mandatory; a consent is never persisted without them.
type ConsentResource struct {
	ConsentID          string            `json:"consent_id"`
	ClientID           string            `json:"client_id"`
	Receipt            string            `json:"receipt"`
	ConsentType        string            `json:"consent_type"`
	CurrentStatus      string            `json:"current_status"`
	ConsentFrequency   int               `json:"consent_frequency"`
	ValidityPeriod     int64             `json:"validity_period"`
	RecurringIndicator bool              `json:"recurring_indicator"`
	CreatedTime        int64             `json:"created_time"`
	UpdatedTime        int64             `json:"updated_time"`
	ConsentAttributes  map[string]string `json:"consent_attributes,omitempty"`
}

// AuthorizationResource is one user's grant instance under a consent.
type AuthorizationResource struct {
	AuthorizationID     string `json:"authorization_id"`
	ConsentID           string `json:"consent_id"`
	UserID              string `json:"user_id"`
	AuthorizationType   string `json:"authorization_type"`
	AuthorizationStatus string `json:"authorization_status"`
	UpdatedTime         int64  `json:"updated_time"`
}

// ConsentMappingResource is a single (account, permission) grant under an
// authorization. Deactivation flips MappingStatus; rows are never deleted.
type ConsentMappingResource struct {
	MappingID       string `json:"mapping_id"`
	AuthorizationID string `json:"authorization_id"`
	AccountID       string `json:"account_id"`
	Permission      string `json:"permission"`
	MappingStatus   string `json:"mapping_status"`
}

// ConsentAttributes carries the free-form metadata of a consent as a batch.
type ConsentAttributes struct {
	ConsentID         string            `json:"consent_id"`
	ConsentAttributes map[string]string `json:"consent_attributes"`
}

// ConsentStatusAuditRecord is the append-only log entry written for every
// consent status transition, creation included.
type ConsentStatusAuditRecord struct {
	StatusAuditID  string `json:"status_audit_id"`
	ConsentID      string `json:"consent_id"`
	CurrentStatus  string `json:"current_status"`
	ActionTime     int64  `json:"action_time"`
	Reason         string `json:"reason"`
	ActionBy       string `json:"action_by"`
	PreviousStatus string `json:"previous_status"`
}

// ConsentFile holds the uploaded file content bound to a consent.
type ConsentFile struct {
	ConsentID   string `json:"consent_id"`
	ConsentFile string `json:"consent_file"`
}

// DetailedConsentResource is the read-time aggregate of a consent with all
// of its authorizations, mappings and attributes. It is the unit the
// lifecycle engine reasons about when amending or revoking.
type DetailedConsentResource struct {
	ConsentID               string                   `json:"consent_id"`
	ClientID                string                   `json:"client_id"`
	Receipt                 string                   `json:"receipt"`
	ConsentType             string                   `json:"consent_type"`
	CurrentStatus           string                   `json:"current_status"`
	ConsentFrequency        int                      `json:"consent_frequency"`
	ValidityPeriod          int64                    `json:"validity_period"`
	RecurringIndicator      bool                     `json:"recurring_indicator"`
	CreatedTime             int64                    `json:"created_time"`
	UpdatedTime             int64                    `json:"updated_time"`
	ConsentAttributes       map[string]string        `json:"consent_attributes"`
	AuthorizationResources  []AuthorizationResource  `json:"authorization_resources"`
	ConsentMappingResources []ConsentMappingResource `json:"consent_mapping_resources"`
}

// Clone returns a deep copy of the detailed consent, used when history
// reconstruction rolls old values backward without touching the original.
func (d *DetailedConsentResource) Clone() *DetailedConsentResource {

	cloned := *d
	if d.ConsentAttributes != nil {
		cloned.ConsentAttributes = make(map[string]string, len(d.ConsentAttributes))
		for key, value := range d.ConsentAttributes {
			cloned.ConsentAttributes[key] = value
		}
	}
	cloned.AuthorizationResources = append([]AuthorizationResource(nil), d.AuthorizationResources...)
	cloned.ConsentMappingResources = append([]ConsentMappingResource(nil), d.ConsentMappingResources...)
	return &cloned
}

// ConsentHistoryResource is one reconstructable point-in-time view of a
// consent, captured when the consent was amended.
type ConsentHistoryResource struct {
	HistoryID               string                   `json:"history_id"`
	Reason                  string                   `json:"reason"`
	Timestamp               int64                    `json:"timestamp"`
	DetailedConsentResource *DetailedConsentResource `json:"detailed_consent_resource"`
}

// AmendmentHistoryRecord is one stored history row: a single changed facet
// (basic data, attributes, one mapping or one authorization) of one
// amendment, keyed by history ID and the changed record's ID.
type AmendmentHistoryRecord struct {
	HistoryID     string `json:"history_id"`
	RecordID      string `json:"record_id"`
	DataType      string `json:"data_type"`
	ChangedValues string `json:"changed_values"`
	Reason        string `json:"reason"`
	Timestamp     int64  `json:"timestamp"`
}

// AuthorizationAmendment is one extra authorization, with its mappings, to
// be created as part of a detailed consent amendment.
type AuthorizationAmendment struct {
	Authorization AuthorizationResource    `json:"authorization"`
	Mappings      []ConsentMappingResource `json:"mappings"`
}

// AmendmentResources is the typed batch of additional amendment data
// accepted by AmendDetailedConsent.
type AmendmentResources struct {
	Authorizations []AuthorizationAmendment `json:"authorizations"`
}

// IsEmpty reports whether the batch carries no additional resources.
func (a *AmendmentResources) IsEmpty() bool {
	return a == nil || len(a.Authorizations) == 0
}

// ConsentSearchFilter narrows a detailed consent search. Nil slices and nil
// times mean "no restriction"; nil limit means unlimited.
type ConsentSearchFilter struct {
	ConsentIDs      []string
	ClientIDs       []string
	ConsentTypes    []string
	ConsentStatuses []string
	UserIDs         []string
	FromTime        *int64
	ToTime          *int64
	Limit           *int
	Offset          *int
}

// AuditRecordSearchFilter narrows a status audit record search.
type AuditRecordSearchFilter struct {
	ConsentID     string
	CurrentStatus string
	AuditID       string
	FromTime      *int64
	ToTime        *int64
	ActionBy      string
}
