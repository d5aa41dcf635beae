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
)

type accountPermission struct {
	accountID  string
	permission string
}

// reconcileAccountMappings computes the set difference between the active
// mappings of an authorization and a newly desired (account, permission)
// set. Pairs present in both stay untouched, pairs only in the old set are
// returned for deactivation, pairs only in the new set are returned as fresh
// active mappings. An already-active pair is never duplicated.
func reconcileAccountMappings(authorizationID string, existing []model.ConsentMappingResource,
	desired map[string][]string) (mappingIDsToDeactivate []string, toCreate []model.ConsentMappingResource) {

	desiredPairs := make(map[accountPermission]bool)
	for accountID, permissions := range desired {
		if len(permissions) == 0 {
			desiredPairs[accountPermission{accountID, constants.DefaultPermission}] = true
			continue
		}
		for _, permission := range permissions {
			desiredPairs[accountPermission{accountID, permission}] = true
		}
	}

	activePairs := make(map[accountPermission]bool)
	mappingIDsToDeactivate = make([]string, 0)
	for _, mapping := range existing {
		if mapping.AuthorizationID != authorizationID ||
			mapping.MappingStatus != constants.ActiveMappingStatus {
			continue
		}
		pair := accountPermission{mapping.AccountID, mapping.Permission}
		activePairs[pair] = true
		if !desiredPairs[pair] {
			mappingIDsToDeactivate = append(mappingIDsToDeactivate, mapping.MappingID)
		}
	}

	toCreate = make([]model.ConsentMappingResource, 0)
	for accountID, permissions := range desired {
		if len(permissions) == 0 {
			permissions = []string{constants.DefaultPermission}
		}
		for _, permission := range permissions {
			pair := accountPermission{accountID, permission}
			if activePairs[pair] {
				continue
			}
			activePairs[pair] = true
			toCreate = append(toCreate, model.ConsentMappingResource{
				AuthorizationID: authorizationID,
				AccountID:       accountID,
				Permission:      permission,
				MappingStatus:   constants.ActiveMappingStatus,
			})
		}
	}
	return mappingIDsToDeactivate, toCreate
}
