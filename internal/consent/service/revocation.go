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
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/constants"
	dbclient "github.com/wso2/open-banking-consent-mgt-service/internal/system/database/client"
	errors2 "github.com/wso2/open-banking-consent-mgt-service/internal/system/errors"
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/log"
)

// RevokeConsent revokes a consent with the default revocation reason.
func (s *ConsentCoreService) RevokeConsent(consentID, revokedConsentStatus, userID string,
	shouldRevokeTokens bool) error {

	return s.RevokeConsentWithReason(consentID, revokedConsentStatus, userID, shouldRevokeTokens,
		constants.ConsentRevokeReason)
}

// RevokeConsentWithReason transitions the consent to the revoked status,
// writes the audit record with the given reason and deactivates every
// mapping, in one transaction. Token revocation runs only after commit; a
// gateway failure surfaces as a revocation error while the database change
// stays durable.
func (s *ConsentCoreService) RevokeConsentWithReason(consentID, revokedConsentStatus, userID string,
	shouldRevokeTokens bool, revokedReason string) error {

	if consentID == "" || revokedConsentStatus == "" {
		return errors2.NewValidationError("consent ID and revoked consent status are required")
	}
	if shouldRevokeTokens && userID == "" {
		return errors2.NewValidationError("user ID is required for token revocation")
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
	if err := s.revokeConsentWithTx(tx, detailed, revokedConsentStatus, userID, revokedReason); err != nil {
		rollback(tx)
		return err
	}
	if err := commit(tx); err != nil {
		return err
	}

	if shouldRevokeTokens {
		return s.revokeTokensAfterCommit(detailed, userID)
	}
	return nil
}

// RevokeExistingApplicableConsents bulk-revokes every consent of the client,
// user and type currently in the applicable status, each with the standard
// per-consent sequence.
func (s *ConsentCoreService) RevokeExistingApplicableConsents(clientID, userID, consentType,
	applicableStatusToRevoke, revokedConsentStatus string, shouldRevokeTokens bool) error {

	if clientID == "" || userID == "" || consentType == "" {
		return errors2.NewValidationError("client ID, user ID and consent type are required for bulk revocation")
	}
	if applicableStatusToRevoke == "" || revokedConsentStatus == "" {
		return errors2.NewValidationError(
			"applicable status and revoked consent status are required for bulk revocation")
	}

	client, tx, err := s.beginTx()
	if err != nil {
		return err
	}
	defer client.Close()

	applicable, err := s.store.SearchConsents(tx, model.ConsentSearchFilter{
		ClientIDs:       []string{clientID},
		ConsentTypes:    []string{consentType},
		ConsentStatuses: []string{applicableStatusToRevoke},
		UserIDs:         []string{userID},
	})
	if err != nil {
		rollback(tx)
		return err
	}
	if len(applicable) == 0 {
		rollback(tx)
		return errors2.NewConsentError(errors2.KindRetrieval,
			fmt.Sprintf("no consents found in status %s for client: %s", applicableStatusToRevoke, clientID), nil)
	}

	for i := range applicable {
		if err := s.revokeConsentWithTx(tx, &applicable[i], revokedConsentStatus, userID,
			constants.ConsentRevokeReason); err != nil {
			rollback(tx)
			return err
		}
	}
	if err := commit(tx); err != nil {
		return err
	}

	if shouldRevokeTokens {
		for i := range applicable {
			if err := s.revokeTokensAfterCommit(&applicable[i], userID); err != nil {
				return err
			}
		}
	}
	return nil
}

// revokeConsentWithTx runs one consent's revocation sequence against an open
// transaction: status transition, audit record, mapping deactivation.
func (s *ConsentCoreService) revokeConsentWithTx(tx dbclient.TxInterface,
	detailed *model.DetailedConsentResource, revokedConsentStatus, userID, reason string) error {

	if err := s.store.UpdateConsentStatus(tx, detailed.ConsentID, revokedConsentStatus); err != nil {
		return err
	}
	if err := s.createAuditRecord(tx, detailed.ConsentID, revokedConsentStatus,
		detailed.CurrentStatus, reason, userID); err != nil {
		return err
	}
	mappingIDs := activeMappingIDs(detailed.ConsentMappingResources)
	return s.store.UpdateConsentMappingStatus(tx, mappingIDs, constants.InactiveMappingStatus)
}

// revokeTokensAfterCommit calls the revocation gateway once the database
// changes are durable. On failure the consent is already revoked in the
// store; the caller is told token cleanup may be incomplete.
func (s *ConsentCoreService) revokeTokensAfterCommit(detailed *model.DetailedConsentResource,
	userID string) error {

	if err := s.gateway.RevokeTokens(detailed.ClientID, userID, detailed.ConsentID); err != nil {
		log.GetLogger().Warn("Consent revoked but token revocation failed",
			log.String("consentID", detailed.ConsentID), log.Error(err))
		return errors2.NewConsentError(errors2.KindRevocation,
			fmt.Sprintf("consent %s is revoked but token revocation failed", detailed.ConsentID), err)
	}
	return nil
}
