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
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/constants"
	dbclient "github.com/wso2/open-banking-consent-mgt-service/internal/system/database/client"
	errors2 "github.com/wso2/open-banking-consent-mgt-service/internal/system/errors"
)

// CreateConsentAuthorization persists a new authorization under a consent.
func (s *ConsentCoreService) CreateConsentAuthorization(
	authorization model.AuthorizationResource) (*model.AuthorizationResource, error) {

	if authorization.ConsentID == "" {
		return nil, errors2.NewValidationError("consent ID is required for authorization creation")
	}
	if authorization.AuthorizationStatus == "" || authorization.AuthorizationType == "" {
		return nil, errors2.NewValidationError(
			"authorization status and authorization type are required for authorization creation")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	stored, err := s.store.StoreAuthorizationResource(tx, authorization)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return stored, nil
}

// GetAuthorizationResource retrieves an authorization by its ID.
func (s *ConsentCoreService) GetAuthorizationResource(
	authorizationID string) (*model.AuthorizationResource, error) {

	if authorizationID == "" {
		return nil, errors2.NewValidationError("authorization ID is required")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	authorization, err := s.store.GetAuthorizationResource(tx, authorizationID)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return authorization, nil
}

// UpdateAuthorizationStatus updates the status of an authorization.
func (s *ConsentCoreService) UpdateAuthorizationStatus(authorizationID,
	newStatus string) (*model.AuthorizationResource, error) {

	if authorizationID == "" || newStatus == "" {
		return nil, errors2.NewValidationError("authorization ID and new authorization status are required")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	updated, err := s.store.UpdateAuthorizationStatus(tx, authorizationID, newStatus)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateAuthorizationUser binds a user to an authorization.
func (s *ConsentCoreService) UpdateAuthorizationUser(authorizationID, userID string) error {

	if authorizationID == "" || userID == "" {
		return errors2.NewValidationError("authorization ID and user ID are required")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := s.store.UpdateAuthorizationUser(tx, authorizationID, userID); err != nil {
		rollback(tx)
		return err
	}
	return commit(tx)
}

// SearchAuthorizations returns all authorizations of a consent.
func (s *ConsentCoreService) SearchAuthorizations(consentID string) ([]model.AuthorizationResource, error) {
	return s.SearchAuthorizationsForUser(consentID, "")
}

// SearchAuthorizationsForUser returns the authorizations of a consent held
// by a user. An empty userID applies no user restriction.
func (s *ConsentCoreService) SearchAuthorizationsForUser(consentID,
	userID string) ([]model.AuthorizationResource, error) {

	if consentID == "" {
		return nil, errors2.NewValidationError("consent ID is required for authorization search")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	authorizations, err := s.store.SearchConsentAuthorizations(tx, consentID, userID)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return authorizations, nil
}

// CreateConsentAccountMappings creates one active mapping per supplied
// (account, permission) pair under an authorization.
func (s *ConsentCoreService) CreateConsentAccountMappings(authorizationID string,
	accountsAndPermissions map[string][]string) ([]model.ConsentMappingResource, error) {

	if authorizationID == "" {
		return nil, errors2.NewValidationError("authorization ID is required for account mapping creation")
	}
	if len(accountsAndPermissions) == 0 {
		return nil, errors2.NewValidationError("account IDs and permissions are required for account mapping creation")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	mappings, err := s.createAccountMappingsWithTx(tx, authorizationID, accountsAndPermissions)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	return mappings, nil
}

// createAccountMappingsWithTx inserts active mappings against an open
// transaction, shared by the binding and re-authorization paths. Accounts
// supplied without permissions get the default permission.
func (s *ConsentCoreService) createAccountMappingsWithTx(tx dbclient.TxInterface, authorizationID string,
	accountsAndPermissions map[string][]string) ([]model.ConsentMappingResource, error) {

	mappings := make([]model.ConsentMappingResource, 0, len(accountsAndPermissions))
	for accountID, permissions := range accountsAndPermissions {
		if len(permissions) == 0 {
			permissions = []string{constants.DefaultPermission}
		}
		for _, permission := range permissions {
			mapping := model.ConsentMappingResource{
				AuthorizationID: authorizationID,
				AccountID:       accountID,
				Permission:      permission,
				MappingStatus:   constants.ActiveMappingStatus,
			}
			stored, err := s.store.StoreConsentMappingResource(tx, mapping)
			if err != nil {
				return nil, err
			}
			mappings = append(mappings, *stored)
		}
	}
	return mappings, nil
}

// DeactivateAccountMappings flips the given mappings to inactive. Calling it
// again for the same IDs leaves them inactive without error.
func (s *ConsentCoreService) DeactivateAccountMappings(mappingIDs []string) error {
	return s.UpdateAccountMappingStatus(mappingIDs, constants.InactiveMappingStatus)
}

// UpdateAccountMappingStatus sets the status of the given mappings.
func (s *ConsentCoreService) UpdateAccountMappingStatus(mappingIDs []string, newStatus string) error {

	if len(mappingIDs) == 0 {
		return errors2.NewValidationError("account mapping IDs are required")
	}
	if newStatus == "" {
		return errors2.NewValidationError("new mapping status is required")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := s.store.UpdateConsentMappingStatus(tx, mappingIDs, newStatus); err != nil {
		rollback(tx)
		return err
	}
	return commit(tx)
}

// BindUserAccountsToConsent updates the authorization's user and status,
// creates the supplied account mappings, and transitions the consent, as one
// atomic unit.
func (s *ConsentCoreService) BindUserAccountsToConsent(consent model.ConsentResource, userID,
	authorizationID string, accountsAndPermissions map[string][]string, newAuthStatus,
	newConsentStatus string) error {

	if consent.ConsentID == "" || consent.ClientID == "" {
		return errors2.NewValidationError("consent ID and client ID are required for account binding")
	}
	if userID == "" || authorizationID == "" {
		return errors2.NewValidationError("user ID and authorization ID are required for account binding")
	}
	if newAuthStatus == "" || newConsentStatus == "" {
		return errors2.NewValidationError(
			"new authorization status and new consent status are required for account binding")
	}
	if len(accountsAndPermissions) == 0 {
		return errors2.NewValidationError("account IDs and permissions are required for account binding")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := s.store.UpdateAuthorizationUser(tx, authorizationID, userID); err != nil {
		rollback(tx)
		return err
	}
	if _, err := s.store.UpdateAuthorizationStatus(tx, authorizationID, newAuthStatus); err != nil {
		rollback(tx)
		return err
	}
	if _, err := s.createAccountMappingsWithTx(tx, authorizationID, accountsAndPermissions); err != nil {
		rollback(tx)
		return err
	}
	if err := s.store.UpdateConsentStatus(tx, consent.ConsentID, newConsentStatus); err != nil {
		rollback(tx)
		return err
	}
	if err := s.createAuditRecord(tx, consent.ConsentID, newConsentStatus, consent.CurrentStatus,
		constants.UserAccountsBindingReason, userID); err != nil {
		rollback(tx)
		return err
	}
	return commit(tx)
}

// ReAuthorizeExistingAuthResource reconciles the active mappings of an
// existing authorization against the newly supplied account set, then
// transitions the consent. Pairs present in both sets stay active
// unduplicated.
func (s *ConsentCoreService) ReAuthorizeExistingAuthResource(consentID, authorizationID, userID string,
	accountsAndPermissions map[string][]string, currentConsentStatus, newConsentStatus string) error {

	if consentID == "" || authorizationID == "" || userID == "" {
		return errors2.NewValidationError(
			"consent ID, authorization ID and user ID are required for reauthorization")
	}
	if currentConsentStatus == "" || newConsentStatus == "" {
		return errors2.NewValidationError(
			"current consent status and new consent status are required for reauthorization")
	}
	if len(accountsAndPermissions) == 0 {
		return errors2.NewValidationError("account IDs and permissions are required for reauthorization")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return err
	}
	defer client.Close()

	detailed, err := s.store.GetDetailedConsentResource(tx, consentID)
	if err != nil {
		rollback(tx)
		return err
	}

	toDeactivate, toCreate := reconcileAccountMappings(authorizationID,
		detailed.ConsentMappingResources, accountsAndPermissions)
	if err := s.store.UpdateConsentMappingStatus(tx, toDeactivate,
		constants.InactiveMappingStatus); err != nil {
		rollback(tx)
		return err
	}
	for _, mapping := range toCreate {
		if _, err := s.store.StoreConsentMappingResource(tx, mapping); err != nil {
			rollback(tx)
			return err
		}
	}

	if err := s.store.UpdateConsentStatus(tx, consentID, newConsentStatus); err != nil {
		rollback(tx)
		return err
	}
	if err := s.createAuditRecord(tx, consentID, newConsentStatus, detailed.CurrentStatus,
		constants.ConsentReauthorizeReason, userID); err != nil {
		rollback(tx)
		return err
	}
	return commit(tx)
}

// ReAuthorizeConsentWithNewAuthResource deactivates the consent's existing
// authorizations, creates a fresh authorization with new mappings, and
// transitions the consent. Mapping creation follows the new authorization's
// insert because it depends on the generated ID.
func (s *ConsentCoreService) ReAuthorizeConsentWithNewAuthResource(consentID, userID string,
	accountsAndPermissions map[string][]string, currentConsentStatus, newConsentStatus,
	newExistingAuthStatus, newAuthStatus, newAuthType string) error {

	if consentID == "" || userID == "" {
		return errors2.NewValidationError("consent ID and user ID are required for reauthorization")
	}
	if currentConsentStatus == "" || newConsentStatus == "" {
		return errors2.NewValidationError(
			"current consent status and new consent status are required for reauthorization")
	}
	if newExistingAuthStatus == "" || newAuthStatus == "" || newAuthType == "" {
		return errors2.NewValidationError(
			"existing and new authorization statuses and the new authorization type are required for reauthorization")
	}
	if len(accountsAndPermissions) == 0 {
		return errors2.NewValidationError("account IDs and permissions are required for reauthorization")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return err
	}
	defer client.Close()

	existing, err := s.store.SearchConsentAuthorizations(tx, consentID, "")
	if err != nil {
		rollback(tx)
		return err
	}
	for _, authorization := range existing {
		if _, err := s.store.UpdateAuthorizationStatus(tx, authorization.AuthorizationID,
			newExistingAuthStatus); err != nil {
			rollback(tx)
			return err
		}
	}

	newAuthorization := model.AuthorizationResource{
		ConsentID:           consentID,
		UserID:              userID,
		AuthorizationType:   newAuthType,
		AuthorizationStatus: newAuthStatus,
	}
	storedAuth, err := s.store.StoreAuthorizationResource(tx, newAuthorization)
	if err != nil {
		rollback(tx)
		return err
	}
	if _, err := s.createAccountMappingsWithTx(tx, storedAuth.AuthorizationID,
		accountsAndPermissions); err != nil {
		rollback(tx)
		return err
	}

	if err := s.store.UpdateConsentStatus(tx, consentID, newConsentStatus); err != nil {
		rollback(tx)
		return err
	}
	if err := s.createAuditRecord(tx, consentID, newConsentStatus, currentConsentStatus,
		constants.ConsentReauthorizeReason, userID); err != nil {
		rollback(tx)
		return err
	}
	return commit(tx)
}
