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
	"database/sql"
	"fmt"
	"sort"

	model "github.com/wso2/open-banking-consent-mgt-service/internal/consent/model"
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/constants"
	dbclient "github.com/wso2/open-banking-consent-mgt-service/internal/system/database/client"
	errors2 "github.com/wso2/open-banking-consent-mgt-service/internal/system/errors"
)

// fakeTx records transaction outcomes; the in-memory store never touches the
// SQL methods.
type fakeTx struct {
	commits   int
	rollbacks int
}

func (t *fakeTx) Exec(query string, args ...interface{}) (sql.Result, error) { return nil, nil }
func (t *fakeTx) Query(query string, args ...interface{}) (*sql.Rows, error) { return nil, nil }
func (t *fakeTx) QueryRow(query string, args ...interface{}) *sql.Row        { return nil }
func (t *fakeTx) Commit() error                                              { t.commits++; return nil }
func (t *fakeTx) Rollback() error                                            { t.rollbacks++; return nil }

type fakeDBClient struct {
	txs    []*fakeTx
	closed int
}

func (c *fakeDBClient) ExecuteQuery(query string, args ...interface{}) ([]map[string]interface{}, error) {
	return nil, nil
}

func (c *fakeDBClient) BeginTx() (dbclient.TxInterface, error) {
	tx := &fakeTx{}
	c.txs = append(c.txs, tx)
	return tx, nil
}

func (c *fakeDBClient) Close() error { c.closed++; return nil }

func (c *fakeDBClient) InitDatabase(home, file string) error { return nil }

func (c *fakeDBClient) lastTx() *fakeTx {
	if len(c.txs) == 0 {
		return nil
	}
	return c.txs[len(c.txs)-1]
}

type fakeDBProvider struct {
	client *fakeDBClient
}

func (p *fakeDBProvider) GetDBClient() (dbclient.DBClientInterface, error) {
	return p.client, nil
}

type revokeCall struct {
	clientID  string
	userID    string
	consentID string
}

type fakeGateway struct {
	err   error
	calls []revokeCall
}

func (g *fakeGateway) RevokeTokens(clientID, userID, consentID string) error {
	g.calls = append(g.calls, revokeCall{clientID: clientID, userID: userID, consentID: consentID})
	return g.err
}

// fakeStore is an in-memory ConsentStore mirroring the Postgres store's
// observable behavior, with per-method failure injection.
type fakeStore struct {
	consents     map[string]model.ConsentResource
	consentOrder []string
	auths        map[string]model.AuthorizationResource
	authOrder    []string
	mappings     map[string]model.ConsentMappingResource
	mappingOrder []string
	attributes   map[string]map[string]string
	auditRecords []model.ConsentStatusAuditRecord
	history      []model.AmendmentHistoryRecord
	files        map[string]model.ConsentFile
	failOn       map[string]error
	seq          int
	now          int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		consents:   make(map[string]model.ConsentResource),
		auths:      make(map[string]model.AuthorizationResource),
		mappings:   make(map[string]model.ConsentMappingResource),
		attributes: make(map[string]map[string]string),
		files:      make(map[string]model.ConsentFile),
		failOn:     make(map[string]error),
		now:        1700000000,
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeStore) tick() int64 {
	f.now++
	return f.now
}

func (f *fakeStore) failure(method string) error {
	return f.failOn[method]
}

func (f *fakeStore) StoreConsentResource(tx dbclient.TxInterface,
	consent model.ConsentResource) (*model.ConsentResource, error) {

	if err := f.failure("StoreConsentResource"); err != nil {
		return nil, err
	}
	if consent.ConsentID == "" {
		consent.ConsentID = f.nextID("consent")
	}
	now := f.tick()
	if consent.CreatedTime == 0 {
		consent.CreatedTime = now
	}
	consent.UpdatedTime = now

	// Attribute rows live in their own table; the consent row carries none.
	stored := consent
	stored.ConsentAttributes = nil
	f.consents[consent.ConsentID] = stored
	f.consentOrder = append(f.consentOrder, consent.ConsentID)
	return &consent, nil
}

func (f *fakeStore) GetConsentResource(tx dbclient.TxInterface,
	consentID string) (*model.ConsentResource, error) {

	if err := f.failure("GetConsentResource"); err != nil {
		return nil, err
	}
	consent, ok := f.consents[consentID]
	if !ok {
		return nil, errors2.NewConsentError(errors2.KindRetrieval,
			fmt.Sprintf("failed to retrieve consent: %s", consentID), sql.ErrNoRows)
	}
	return &consent, nil
}

func (f *fakeStore) GetConsentResourceWithAttributes(tx dbclient.TxInterface,
	consentID string) (*model.ConsentResource, error) {

	consent, err := f.GetConsentResource(tx, consentID)
	if err != nil {
		return nil, err
	}
	consent.ConsentAttributes = copyAttributes(f.attributes[consentID])
	return consent, nil
}

func (f *fakeStore) GetDetailedConsentResource(tx dbclient.TxInterface,
	consentID string) (*model.DetailedConsentResource, error) {

	if err := f.failure("GetDetailedConsentResource"); err != nil {
		return nil, err
	}
	consent, ok := f.consents[consentID]
	if !ok {
		return nil, errors2.NewConsentError(errors2.KindRetrieval,
			fmt.Sprintf("failed to retrieve consent: %s", consentID), sql.ErrNoRows)
	}
	return f.composeDetailed(consent), nil
}

func (f *fakeStore) composeDetailed(consent model.ConsentResource) *model.DetailedConsentResource {

	detailed := &model.DetailedConsentResource{
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
		ConsentAttributes:       copyAttributes(f.attributes[consent.ConsentID]),
		AuthorizationResources:  make([]model.AuthorizationResource, 0),
		ConsentMappingResources: make([]model.ConsentMappingResource, 0),
	}
	for _, authID := range f.authOrder {
		authorization := f.auths[authID]
		if authorization.ConsentID != consent.ConsentID {
			continue
		}
		detailed.AuthorizationResources = append(detailed.AuthorizationResources, authorization)
		for _, mappingID := range f.mappingOrder {
			mapping := f.mappings[mappingID]
			if mapping.AuthorizationID == authID {
				detailed.ConsentMappingResources = append(detailed.ConsentMappingResources, mapping)
			}
		}
	}
	return detailed
}

func (f *fakeStore) UpdateConsentStatus(tx dbclient.TxInterface, consentID, newStatus string) error {

	if err := f.failure("UpdateConsentStatus"); err != nil {
		return err
	}
	consent, ok := f.consents[consentID]
	if !ok {
		return errors2.NewConsentError(errors2.KindUpdate,
			fmt.Sprintf("failed to update consent status: %s", consentID), sql.ErrNoRows)
	}
	consent.CurrentStatus = newStatus
	consent.UpdatedTime = f.tick()
	f.consents[consentID] = consent
	return nil
}

func (f *fakeStore) UpdateConsentReceipt(tx dbclient.TxInterface, consentID, receipt string) error {

	if err := f.failure("UpdateConsentReceipt"); err != nil {
		return err
	}
	consent, ok := f.consents[consentID]
	if !ok {
		return errors2.NewConsentError(errors2.KindUpdate,
			fmt.Sprintf("failed to update consent receipt: %s", consentID), sql.ErrNoRows)
	}
	consent.Receipt = receipt
	consent.UpdatedTime = f.tick()
	f.consents[consentID] = consent
	return nil
}

func (f *fakeStore) UpdateConsentValidityTime(tx dbclient.TxInterface, consentID string,
	validityTime int64) error {

	if err := f.failure("UpdateConsentValidityTime"); err != nil {
		return err
	}
	consent, ok := f.consents[consentID]
	if !ok {
		return errors2.NewConsentError(errors2.KindUpdate,
			fmt.Sprintf("failed to update consent validity time: %s", consentID), sql.ErrNoRows)
	}
	consent.ValidityPeriod = validityTime
	consent.UpdatedTime = f.tick()
	f.consents[consentID] = consent
	return nil
}

func (f *fakeStore) SearchConsents(tx dbclient.TxInterface,
	filter model.ConsentSearchFilter) ([]model.DetailedConsentResource, error) {

	if err := f.failure("SearchConsents"); err != nil {
		return nil, err
	}
	results := make([]model.DetailedConsentResource, 0)
	for _, consentID := range f.consentOrder {
		consent := f.consents[consentID]
		if !matchesList(filter.ConsentIDs, consent.ConsentID) ||
			!matchesList(filter.ClientIDs, consent.ClientID) ||
			!matchesList(filter.ConsentTypes, consent.ConsentType) ||
			!matchesList(filter.ConsentStatuses, consent.CurrentStatus) {
			continue
		}
		if len(filter.UserIDs) > 0 && !f.consentHasUser(consentID, filter.UserIDs) {
			continue
		}
		results = append(results, *f.composeDetailed(consent))
	}
	return results, nil
}

func (f *fakeStore) consentHasUser(consentID string, userIDs []string) bool {
	for _, authorization := range f.auths {
		if authorization.ConsentID == consentID && matchesList(userIDs, authorization.UserID) {
			return true
		}
	}
	return false
}

func (f *fakeStore) GetExpiringConsents(tx dbclient.TxInterface,
	statuses []string) ([]model.DetailedConsentResource, error) {

	if err := f.failure("GetExpiringConsents"); err != nil {
		return nil, err
	}
	results := make([]model.DetailedConsentResource, 0)
	for _, consentID := range f.consentOrder {
		consent := f.consents[consentID]
		if _, ok := f.attributes[consentID]["ExpirationDateTime"]; !ok {
			continue
		}
		if !matchesList(statuses, consent.CurrentStatus) {
			continue
		}
		results = append(results, *f.composeDetailed(consent))
	}
	return results, nil
}

func (f *fakeStore) StoreAuthorizationResource(tx dbclient.TxInterface,
	authorization model.AuthorizationResource) (*model.AuthorizationResource, error) {

	if err := f.failure("StoreAuthorizationResource"); err != nil {
		return nil, err
	}
	if authorization.AuthorizationID == "" {
		authorization.AuthorizationID = f.nextID("auth")
	}
	authorization.UpdatedTime = f.tick()
	f.auths[authorization.AuthorizationID] = authorization
	f.authOrder = append(f.authOrder, authorization.AuthorizationID)
	return &authorization, nil
}

func (f *fakeStore) GetAuthorizationResource(tx dbclient.TxInterface,
	authorizationID string) (*model.AuthorizationResource, error) {

	if err := f.failure("GetAuthorizationResource"); err != nil {
		return nil, err
	}
	authorization, ok := f.auths[authorizationID]
	if !ok {
		return nil, errors2.NewConsentError(errors2.KindRetrieval,
			fmt.Sprintf("failed to retrieve authorization: %s", authorizationID), sql.ErrNoRows)
	}
	return &authorization, nil
}

func (f *fakeStore) UpdateAuthorizationStatus(tx dbclient.TxInterface, authorizationID,
	newStatus string) (*model.AuthorizationResource, error) {

	if err := f.failure("UpdateAuthorizationStatus"); err != nil {
		return nil, err
	}
	authorization, ok := f.auths[authorizationID]
	if !ok {
		return nil, errors2.NewConsentError(errors2.KindUpdate,
			fmt.Sprintf("failed to update authorization status: %s", authorizationID), sql.ErrNoRows)
	}
	authorization.AuthorizationStatus = newStatus
	authorization.UpdatedTime = f.tick()
	f.auths[authorizationID] = authorization
	return &authorization, nil
}

func (f *fakeStore) UpdateAuthorizationUser(tx dbclient.TxInterface, authorizationID, userID string) error {

	if err := f.failure("UpdateAuthorizationUser"); err != nil {
		return err
	}
	authorization, ok := f.auths[authorizationID]
	if !ok {
		return errors2.NewConsentError(errors2.KindUpdate,
			fmt.Sprintf("failed to update authorization user: %s", authorizationID), sql.ErrNoRows)
	}
	authorization.UserID = userID
	authorization.UpdatedTime = f.tick()
	f.auths[authorizationID] = authorization
	return nil
}

func (f *fakeStore) SearchConsentAuthorizations(tx dbclient.TxInterface, consentID,
	userID string) ([]model.AuthorizationResource, error) {

	if err := f.failure("SearchConsentAuthorizations"); err != nil {
		return nil, err
	}
	results := make([]model.AuthorizationResource, 0)
	for _, authID := range f.authOrder {
		authorization := f.auths[authID]
		if authorization.ConsentID != consentID {
			continue
		}
		if userID != "" && authorization.UserID != userID {
			continue
		}
		results = append(results, authorization)
	}
	return results, nil
}

func (f *fakeStore) StoreConsentMappingResource(tx dbclient.TxInterface,
	mapping model.ConsentMappingResource) (*model.ConsentMappingResource, error) {

	if err := f.failure("StoreConsentMappingResource"); err != nil {
		return nil, err
	}
	if mapping.MappingID == "" {
		mapping.MappingID = f.nextID("mapping")
	}
	f.mappings[mapping.MappingID] = mapping
	f.mappingOrder = append(f.mappingOrder, mapping.MappingID)
	return &mapping, nil
}

func (f *fakeStore) GetConsentMappingResources(tx dbclient.TxInterface,
	authorizationID string) ([]model.ConsentMappingResource, error) {

	if err := f.failure("GetConsentMappingResources"); err != nil {
		return nil, err
	}
	results := make([]model.ConsentMappingResource, 0)
	for _, mappingID := range f.mappingOrder {
		mapping := f.mappings[mappingID]
		if mapping.AuthorizationID == authorizationID {
			results = append(results, mapping)
		}
	}
	return results, nil
}

func (f *fakeStore) UpdateConsentMappingStatus(tx dbclient.TxInterface, mappingIDs []string,
	newStatus string) error {

	if err := f.failure("UpdateConsentMappingStatus"); err != nil {
		return err
	}
	for _, mappingID := range mappingIDs {
		mapping, ok := f.mappings[mappingID]
		if !ok {
			continue
		}
		mapping.MappingStatus = newStatus
		f.mappings[mappingID] = mapping
	}
	return nil
}

func (f *fakeStore) StoreConsentAttributes(tx dbclient.TxInterface,
	attributes model.ConsentAttributes) error {

	if err := f.failure("StoreConsentAttributes"); err != nil {
		return err
	}
	existing := f.attributes[attributes.ConsentID]
	if existing == nil {
		existing = make(map[string]string)
		f.attributes[attributes.ConsentID] = existing
	}
	for key, value := range attributes.ConsentAttributes {
		existing[key] = value
	}
	return nil
}

func (f *fakeStore) GetConsentAttributes(tx dbclient.TxInterface,
	consentID string) (*model.ConsentAttributes, error) {

	if err := f.failure("GetConsentAttributes"); err != nil {
		return nil, err
	}
	return &model.ConsentAttributes{
		ConsentID:         consentID,
		ConsentAttributes: copyAttributes(f.attributes[consentID]),
	}, nil
}

func (f *fakeStore) GetConsentAttributesWithKeys(tx dbclient.TxInterface, consentID string,
	keys []string) (*model.ConsentAttributes, error) {

	if err := f.failure("GetConsentAttributesWithKeys"); err != nil {
		return nil, err
	}
	picked := make(map[string]string)
	for _, key := range keys {
		if value, ok := f.attributes[consentID][key]; ok {
			picked[key] = value
		}
	}
	return &model.ConsentAttributes{ConsentID: consentID, ConsentAttributes: picked}, nil
}

func (f *fakeStore) GetConsentAttributesByName(tx dbclient.TxInterface,
	attributeName string) (map[string]string, error) {

	if err := f.failure("GetConsentAttributesByName"); err != nil {
		return nil, err
	}
	results := make(map[string]string)
	for consentID, attributes := range f.attributes {
		if value, ok := attributes[attributeName]; ok {
			results[consentID] = value
		}
	}
	return results, nil
}

func (f *fakeStore) GetConsentIDByAttributeNameAndValue(tx dbclient.TxInterface, attributeName,
	attributeValue string) ([]string, error) {

	if err := f.failure("GetConsentIDByAttributeNameAndValue"); err != nil {
		return nil, err
	}
	results := make([]string, 0)
	for _, consentID := range f.consentOrder {
		if f.attributes[consentID][attributeName] == attributeValue {
			results = append(results, consentID)
		}
	}
	return results, nil
}

func (f *fakeStore) DeleteConsentAttributes(tx dbclient.TxInterface, consentID string,
	keys []string) error {

	if err := f.failure("DeleteConsentAttributes"); err != nil {
		return err
	}
	for _, key := range keys {
		delete(f.attributes[consentID], key)
	}
	return nil
}

func (f *fakeStore) StoreConsentStatusAuditRecord(tx dbclient.TxInterface,
	record model.ConsentStatusAuditRecord) (*model.ConsentStatusAuditRecord, error) {

	if err := f.failure("StoreConsentStatusAuditRecord"); err != nil {
		return nil, err
	}
	if record.StatusAuditID == "" {
		record.StatusAuditID = f.nextID("audit")
	}
	if record.ActionTime == 0 {
		record.ActionTime = f.tick()
	}
	f.auditRecords = append(f.auditRecords, record)
	return &record, nil
}

func (f *fakeStore) SearchConsentStatusAuditRecords(tx dbclient.TxInterface,
	filter model.AuditRecordSearchFilter) ([]model.ConsentStatusAuditRecord, error) {

	if err := f.failure("SearchConsentStatusAuditRecords"); err != nil {
		return nil, err
	}
	results := make([]model.ConsentStatusAuditRecord, 0)
	for _, record := range f.auditRecords {
		if filter.ConsentID != "" && record.ConsentID != filter.ConsentID {
			continue
		}
		if filter.CurrentStatus != "" && record.CurrentStatus != filter.CurrentStatus {
			continue
		}
		if filter.AuditID != "" && record.StatusAuditID != filter.AuditID {
			continue
		}
		if filter.ActionBy != "" && record.ActionBy != filter.ActionBy {
			continue
		}
		if filter.FromTime != nil && record.ActionTime < *filter.FromTime {
			continue
		}
		if filter.ToTime != nil && record.ActionTime > *filter.ToTime {
			continue
		}
		results = append(results, record)
	}
	return results, nil
}

func (f *fakeStore) GetConsentStatusAuditRecords(tx dbclient.TxInterface, consentIDs []string,
	limit, offset *int) ([]model.ConsentStatusAuditRecord, error) {

	if err := f.failure("GetConsentStatusAuditRecords"); err != nil {
		return nil, err
	}
	results := make([]model.ConsentStatusAuditRecord, 0)
	for _, record := range f.auditRecords {
		if matchesList(consentIDs, record.ConsentID) {
			results = append(results, record)
		}
	}
	return results, nil
}

func (f *fakeStore) StoreConsentAmendmentHistory(tx dbclient.TxInterface,
	record model.AmendmentHistoryRecord) error {

	if err := f.failure("StoreConsentAmendmentHistory"); err != nil {
		return err
	}
	f.history = append(f.history, record)
	return nil
}

func (f *fakeStore) RetrieveConsentAmendmentHistory(tx dbclient.TxInterface,
	recordIDs []string) ([]model.AmendmentHistoryRecord, error) {

	if err := f.failure("RetrieveConsentAmendmentHistory"); err != nil {
		return nil, err
	}
	results := make([]model.AmendmentHistoryRecord, 0)
	for _, record := range f.history {
		if matchesList(recordIDs, record.RecordID) {
			results = append(results, record)
		}
	}
	// Newest amendment first, matching the store's ordering contract.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Timestamp != results[j].Timestamp {
			return results[i].Timestamp > results[j].Timestamp
		}
		return results[i].HistoryID < results[j].HistoryID
	})
	return results, nil
}

func (f *fakeStore) StoreConsentFile(tx dbclient.TxInterface, file model.ConsentFile) error {

	if err := f.failure("StoreConsentFile"); err != nil {
		return err
	}
	f.files[file.ConsentID] = file
	return nil
}

func (f *fakeStore) GetConsentFile(tx dbclient.TxInterface, consentID string) (*model.ConsentFile, error) {

	if err := f.failure("GetConsentFile"); err != nil {
		return nil, err
	}
	file, ok := f.files[consentID]
	if !ok {
		return nil, errors2.NewConsentError(errors2.KindRetrieval,
			fmt.Sprintf("failed to retrieve consent file: %s", consentID), sql.ErrNoRows)
	}
	return &file, nil
}

func (f *fakeStore) auditRecordsFor(consentID string) []model.ConsentStatusAuditRecord {
	records := make([]model.ConsentStatusAuditRecord, 0)
	for _, record := range f.auditRecords {
		if record.ConsentID == consentID {
			records = append(records, record)
		}
	}
	return records
}

func (f *fakeStore) activeMappings(authorizationID string) []model.ConsentMappingResource {
	results := make([]model.ConsentMappingResource, 0)
	for _, mappingID := range f.mappingOrder {
		mapping := f.mappings[mappingID]
		if mapping.AuthorizationID == authorizationID &&
			mapping.MappingStatus == constants.ActiveMappingStatus {
			results = append(results, mapping)
		}
	}
	return results
}

func matchesList(values []string, value string) bool {
	if len(values) == 0 {
		return true
	}
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}

func copyAttributes(attributes map[string]string) map[string]string {
	copied := make(map[string]string, len(attributes))
	for key, value := range attributes {
		copied[key] = value
	}
	return copied
}

// newTestService wires the engine with the in-memory collaborators.
func newTestService() (*ConsentCoreService, *fakeStore, *fakeDBClient, *fakeGateway) {
	consentStore := newFakeStore()
	dbClient := &fakeDBClient{}
	gateway := &fakeGateway{}
	engine := NewConsentCoreService(&fakeDBProvider{client: dbClient}, consentStore, gateway)
	return engine.(*ConsentCoreService), consentStore, dbClient, gateway
}
