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
	"fmt"

	model "github.com/wso2/open-banking-consent-mgt-service/internal/consent/model"
	"github.com/wso2/open-banking-consent-mgt-service/internal/consent/store"
	"github.com/wso2/open-banking-consent-mgt-service/internal/consent/token"
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/constants"
	dbclient "github.com/wso2/open-banking-consent-mgt-service/internal/system/database/client"
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/database/provider"
	errors2 "github.com/wso2/open-banking-consent-mgt-service/internal/system/errors"
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/log"
)

// ConsentCoreServiceInterface is the consent lifecycle engine. Every
// operation validates its inputs before any I/O, runs its store calls
// against a single transaction, and pairs every consent status change with
// a status audit record in the same transaction.
type ConsentCoreServiceInterface interface {

	// Creation.
	CreateAuthorizableConsent(consent model.ConsentResource, userID, authStatus, authType string,
		isImplicitAuth bool) (*model.DetailedConsentResource, error)
	CreateExclusiveConsent(consent model.ConsentResource, userID, authStatus, authType,
		applicableExistingStatus, newExistingStatus string, isImplicitAuth bool) (*model.DetailedConsentResource, error)

	// Retrieval and search.
	GetConsent(consentID string, withAttributes bool) (*model.ConsentResource, error)
	GetDetailedConsent(consentID string) (*model.DetailedConsentResource, error)
	SearchDetailedConsents(filter model.ConsentSearchFilter) ([]model.DetailedConsentResource, error)
	GetConsentsEligibleForExpiration(status string) ([]model.DetailedConsentResource, error)

	// Status.
	UpdateConsentStatus(consentID, newStatus string) (*model.ConsentResource, error)

	// Authorizations and account mappings.
	CreateConsentAuthorization(authorization model.AuthorizationResource) (*model.AuthorizationResource, error)
	GetAuthorizationResource(authorizationID string) (*model.AuthorizationResource, error)
	UpdateAuthorizationStatus(authorizationID, newStatus string) (*model.AuthorizationResource, error)
	UpdateAuthorizationUser(authorizationID, userID string) error
	SearchAuthorizations(consentID string) ([]model.AuthorizationResource, error)
	SearchAuthorizationsForUser(consentID, userID string) ([]model.AuthorizationResource, error)
	CreateConsentAccountMappings(authorizationID string,
		accountsAndPermissions map[string][]string) ([]model.ConsentMappingResource, error)
	DeactivateAccountMappings(mappingIDs []string) error
	UpdateAccountMappingStatus(mappingIDs []string, newStatus string) error
	BindUserAccountsToConsent(consent model.ConsentResource, userID, authorizationID string,
		accountsAndPermissions map[string][]string, newAuthStatus, newConsentStatus string) error
	ReAuthorizeExistingAuthResource(consentID, authorizationID, userID string,
		accountsAndPermissions map[string][]string, currentConsentStatus, newConsentStatus string) error
	ReAuthorizeConsentWithNewAuthResource(consentID, userID string,
		accountsAndPermissions map[string][]string, currentConsentStatus, newConsentStatus,
		newExistingAuthStatus, newAuthStatus, newAuthType string) error

	// Revocation.
	RevokeConsent(consentID, revokedConsentStatus, userID string, shouldRevokeTokens bool) error
	RevokeConsentWithReason(consentID, revokedConsentStatus, userID string,
		shouldRevokeTokens bool, revokedReason string) error
	RevokeExistingApplicableConsents(clientID, userID, consentType, applicableStatusToRevoke,
		revokedConsentStatus string, shouldRevokeTokens bool) error

	// Amendment and history.
	AmendConsentData(consentID string, newReceipt *string, newValidityPeriod *int64,
		userID string) (*model.ConsentResource, error)
	AmendDetailedConsent(consentID string, newReceipt *string, newValidityPeriod *int64,
		authorizationID string, accountsAndPermissions map[string][]string, newConsentStatus string,
		newAttributes map[string]string, userID string,
		additionalAmendments *model.AmendmentResources) (*model.DetailedConsentResource, error)
	StoreConsentAmendmentHistory(consentID string, history model.ConsentHistoryResource,
		currentConsent *model.DetailedConsentResource) error
	GetConsentAmendmentHistoryData(consentID string) (map[string]model.ConsentHistoryResource, error)

	// Attributes.
	StoreConsentAttributes(consentID string, attributes map[string]string) error
	GetConsentAttributes(consentID string) (*model.ConsentAttributes, error)
	GetConsentAttributesWithKeys(consentID string, keys []string) (*model.ConsentAttributes, error)
	GetConsentAttributesByName(attributeName string) (map[string]string, error)
	GetConsentIDByConsentAttributeNameAndValue(attributeName, attributeValue string) ([]string, error)
	UpdateConsentAttributes(consentID string, attributes map[string]string) error
	DeleteConsentAttributes(consentID string, keys []string) error

	// Status audit records.
	SearchConsentStatusAuditRecords(filter model.AuditRecordSearchFilter) ([]model.ConsentStatusAuditRecord, error)
	GetConsentStatusAuditRecords(consentIDs []string, limit, offset *int) ([]model.ConsentStatusAuditRecord, error)

	// Consent files.
	CreateConsentFile(file model.ConsentFile, newConsentStatus, userID,
		applicableStatusToFileUpload string) error
	GetConsentFile(consentID string) (*model.ConsentFile, error)
}

// ConsentCoreService is the stateless implementation of the lifecycle
// engine. All mutable state lives behind the injected store and the
// transaction handle scoped to each call.
type ConsentCoreService struct {
	dbProvider provider.DBProviderInterface
	store      store.ConsentStore
	gateway    token.RevocationGatewayInterface
}

// NewConsentCoreService wires the engine with its collaborators.
func NewConsentCoreService(dbProvider provider.DBProviderInterface, consentStore store.ConsentStore,
	gateway token.RevocationGatewayInterface) ConsentCoreServiceInterface {

	return &ConsentCoreService{
		dbProvider: dbProvider,
		store:      consentStore,
		gateway:    gateway,
	}
}

// CreateAuthorizableConsent persists a consent, its attributes and, when
// implicit authorization is requested, an initial authorization resource as
// one atomic unit. Creation counts as the initial status transition, so an
// audit record is written alongside.
func (s *ConsentCoreService) CreateAuthorizableConsent(consent model.ConsentResource, userID, authStatus,
	authType string, isImplicitAuth bool) (*model.DetailedConsentResource, error) {

	if err := validateConsentResource(consent); err != nil {
		return nil, err
	}
	if isImplicitAuth {
		if authStatus == "" || authType == "" {
			return nil, errors2.NewValidationError(
				"authorization status and authorization type are required for implicit authorization")
		}
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	detailed, err := s.createAuthorizableConsentWithTx(tx, consent, userID, authStatus, authType, isImplicitAuth)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return detailed, nil
}

// createAuthorizableConsentWithTx runs the creation sequence against an
// already open transaction, shared with the exclusive creation path.
func (s *ConsentCoreService) createAuthorizableConsentWithTx(tx dbclient.TxInterface,
	consent model.ConsentResource, userID, authStatus, authType string,
	isImplicitAuth bool) (*model.DetailedConsentResource, error) {

	stored, err := s.store.StoreConsentResource(tx, consent)
	if err != nil {
		return nil, err
	}

	if len(consent.ConsentAttributes) > 0 {
		attributes := model.ConsentAttributes{
			ConsentID:         stored.ConsentID,
			ConsentAttributes: consent.ConsentAttributes,
		}
		if err := s.store.StoreConsentAttributes(tx, attributes); err != nil {
			return nil, err
		}
	}

	authorizations := make([]model.AuthorizationResource, 0, 1)
	if isImplicitAuth {
		authorization := model.AuthorizationResource{
			ConsentID:           stored.ConsentID,
			UserID:              userID,
			AuthorizationType:   authType,
			AuthorizationStatus: authStatus,
		}
		storedAuth, err := s.store.StoreAuthorizationResource(tx, authorization)
		if err != nil {
			return nil, err
		}
		authorizations = append(authorizations, *storedAuth)
	}

	if err := s.createAuditRecord(tx, stored.ConsentID, stored.CurrentStatus, "",
		constants.CreateConsentReason, userID); err != nil {
		return nil, err
	}

	return &model.DetailedConsentResource{
		ConsentID:               stored.ConsentID,
		ClientID:                stored.ClientID,
		Receipt:                 stored.Receipt,
		ConsentType:             stored.ConsentType,
		CurrentStatus:           stored.CurrentStatus,
		ConsentFrequency:        stored.ConsentFrequency,
		ValidityPeriod:          stored.ValidityPeriod,
		RecurringIndicator:      stored.RecurringIndicator,
		CreatedTime:             stored.CreatedTime,
		UpdatedTime:             stored.UpdatedTime,
		ConsentAttributes:       consent.ConsentAttributes,
		AuthorizationResources:  authorizations,
		ConsentMappingResources: make([]model.ConsentMappingResource, 0),
	}, nil
}

// CreateExclusiveConsent supersedes every consent of the same client, user
// and type currently in applicableExistingStatus, then creates the new
// consent, all within one transaction. At commit at most one such consent is
// logically active.
func (s *ConsentCoreService) CreateExclusiveConsent(consent model.ConsentResource, userID, authStatus,
	authType, applicableExistingStatus, newExistingStatus string,
	isImplicitAuth bool) (*model.DetailedConsentResource, error) {

	if err := validateConsentResource(consent); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, errors2.NewValidationError("user ID is required for exclusive consent creation")
	}
	if applicableExistingStatus == "" || newExistingStatus == "" {
		return nil, errors2.NewValidationError(
			"applicable existing status and new existing status are required for exclusive consent creation")
	}
	if isImplicitAuth {
		if authStatus == "" || authType == "" {
			return nil, errors2.NewValidationError(
				"authorization status and authorization type are required for implicit authorization")
		}
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	existing, err := s.store.SearchConsents(tx, model.ConsentSearchFilter{
		ClientIDs:       []string{consent.ClientID},
		ConsentTypes:    []string{consent.ConsentType},
		ConsentStatuses: []string{applicableExistingStatus},
		UserIDs:         []string{userID},
	})
	if err != nil {
		rollback(tx)
		return nil, err
	}

	for _, superseded := range existing {
		if err := s.store.UpdateConsentStatus(tx, superseded.ConsentID, newExistingStatus); err != nil {
			rollback(tx)
			return nil, err
		}
		if err := s.createAuditRecord(tx, superseded.ConsentID, newExistingStatus,
			superseded.CurrentStatus, constants.CreateExclusiveConsentReason, userID); err != nil {
			rollback(tx)
			return nil, err
		}
		mappingIDs := activeMappingIDs(superseded.ConsentMappingResources)
		if err := s.store.UpdateConsentMappingStatus(tx, mappingIDs,
			constants.InactiveMappingStatus); err != nil {
			rollback(tx)
			return nil, err
		}
	}

	detailed, err := s.createAuthorizableConsentWithTx(tx, consent, userID, authStatus, authType, isImplicitAuth)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return detailed, nil
}

// GetConsent retrieves a consent, with its attributes when requested.
func (s *ConsentCoreService) GetConsent(consentID string, withAttributes bool) (*model.ConsentResource, error) {

	if consentID == "" {
		return nil, errors2.NewValidationError("consent ID is required")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	var consent *model.ConsentResource
	if withAttributes {
		consent, err = s.store.GetConsentResourceWithAttributes(tx, consentID)
	} else {
		consent, err = s.store.GetConsentResource(tx, consentID)
	}
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return consent, nil
}

// GetDetailedConsent retrieves the full aggregate of a consent.
func (s *ConsentCoreService) GetDetailedConsent(consentID string) (*model.DetailedConsentResource, error) {

	if consentID == "" {
		return nil, errors2.NewValidationError("consent ID is required")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	detailed, err := s.store.GetDetailedConsentResource(tx, consentID)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return detailed, nil
}

// SearchDetailedConsents passes the filter through to the store.
func (s *ConsentCoreService) SearchDetailedConsents(
	filter model.ConsentSearchFilter) ([]model.DetailedConsentResource, error) {

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	results, err := s.store.SearchConsents(tx, filter)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return results, nil
}

// GetConsentsEligibleForExpiration returns the consents in the given status
// carrying an expiration time attribute, for the external expiry batch.
func (s *ConsentCoreService) GetConsentsEligibleForExpiration(
	status string) ([]model.DetailedConsentResource, error) {

	if status == "" {
		return nil, errors2.NewValidationError("eligible status is required for expiration query")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	results, err := s.store.GetExpiringConsents(tx, []string{status})
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateConsentStatus transitions a consent to the new status, writing one
// audit record per authorization user of the consent.
func (s *ConsentCoreService) UpdateConsentStatus(consentID, newStatus string) (*model.ConsentResource, error) {

	if consentID == "" || newStatus == "" {
		return nil, errors2.NewValidationError("consent ID and new consent status are required")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	existing, err := s.store.GetConsentResource(tx, consentID)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := s.store.UpdateConsentStatus(tx, consentID, newStatus); err != nil {
		rollback(tx)
		return nil, err
	}

	authorizations, err := s.store.SearchConsentAuthorizations(tx, consentID, "")
	if err != nil {
		rollback(tx)
		return nil, err
	}
	auditReason := fmt.Sprintf("%s %s", constants.ConsentStatusUpdateReason, newStatus)
	if len(authorizations) == 0 {
		if err := s.createAuditRecord(tx, consentID, newStatus, existing.CurrentStatus,
			auditReason, ""); err != nil {
			rollback(tx)
			return nil, err
		}
	}
	for _, authorization := range authorizations {
		if err := s.createAuditRecord(tx, consentID, newStatus, existing.CurrentStatus,
			auditReason, authorization.UserID); err != nil {
			rollback(tx)
			return nil, err
		}
	}

	updated, err := s.store.GetConsentResource(tx, consentID)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return updated, nil
}

// beginTx acquires a scoped database client and opens a transaction on it.
// The caller closes the client and either commits or rolls back.
func (s *ConsentCoreService) beginTx() (dbclient.DBClientInterface, dbclient.TxInterface, error) {

	client, err := s.dbProvider.GetDBClient()
	if err != nil {
		return nil, nil, errors2.NewConsentError(errors2.KindConnection,
			"failed to obtain a database client", err)
	}
	tx, err := client.BeginTx()
	if err != nil {
		_ = client.Close()
		return nil, nil, errors2.NewConsentError(errors2.KindConnection,
			"failed to begin a database transaction", err)
	}
	return client, tx, nil
}

// createAuditRecord writes the status audit row paired with a status change.
func (s *ConsentCoreService) createAuditRecord(tx dbclient.TxInterface, consentID, currentStatus,
	previousStatus, reason, actionBy string) error {

	record := model.ConsentStatusAuditRecord{
		ConsentID:      consentID,
		CurrentStatus:  currentStatus,
		PreviousStatus: previousStatus,
		Reason:         reason,
		ActionBy:       actionBy,
	}
	_, err := s.store.StoreConsentStatusAuditRecord(tx, record)
	return err
}

// validateConsentResource enforces the mandatory consent fields.
func validateConsentResource(consent model.ConsentResource) error {

	if consent.ClientID == "" {
		return errors2.NewValidationError("client ID is required")
	}
	if consent.Receipt == "" {
		return errors2.NewValidationError("consent receipt is required")
	}
	if consent.ConsentType == "" {
		return errors2.NewValidationError("consent type is required")
	}
	if consent.CurrentStatus == "" {
		return errors2.NewValidationError("consent status is required")
	}
	return nil
}

// activeMappingIDs picks the IDs of the active mappings in a list.
func activeMappingIDs(mappings []model.ConsentMappingResource) []string {

	ids := make([]string, 0, len(mappings))
	for _, mapping := range mappings {
		if mapping.MappingStatus == constants.ActiveMappingStatus {
			ids = append(ids, mapping.MappingID)
		}
	}
	return ids
}

// rollback reverts a transaction, logging when the revert itself fails.
func rollback(tx dbclient.TxInterface) {
	if err := tx.Rollback(); err != nil {
		log.GetLogger().Debug("failed to roll back consent transaction", log.Error(err))
	}
}

// commit finalizes a transaction.
func commit(tx dbclient.TxInterface) error {
	if err := tx.Commit(); err != nil {
		return errors2.NewConsentError(errors2.KindConnection,
			"failed to commit consent transaction", err)
	}
	return nil
}
