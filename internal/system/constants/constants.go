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

package constants

const (
	ApiBasePath = "/api/v1"
)

// Account mapping statuses. Mappings are deactivated, never deleted.
const (
	ActiveMappingStatus   = "active"
	InactiveMappingStatus = "inactive"
)

// Audit record reasons for engine-initiated status transitions.
const (
	CreateConsentReason          = "Create consent"
	CreateExclusiveConsentReason = "Create exclusive authorization consent"
	ConsentRevokeReason          = "Revoke the consent"
	ConsentAmendReason           = "Consent amendment"
	ConsentStatusUpdateReason    = "Consent status updated to"
	ConsentReauthorizeReason     = "Reauthorize consent"
	UserAccountsBindingReason    = "Bind user accounts to consent"
	ConsentFileUploadReason      = "Upload consent file"
)

// ConsentAmendedStatus is the audit-only status token recorded when consent
// data is amended while the real consent status stays unchanged.
const ConsentAmendedStatus = "amended"

// Amendment history facet types. One history row is stored per changed facet.
const (
	AmendmentTypeConsentBasicData    = "ConsentData"
	AmendmentTypeConsentAttributes   = "ConsentAttributesData"
	AmendmentTypeConsentMappings     = "ConsentMappingData"
	AmendmentTypeConsentAuthResource = "ConsentAuthResourceData"
)

// DefaultPermission is assigned when accounts are bound without explicit
// permissions.
const DefaultPermission = "n/a"

// ConsentIDScopePrefix prefixes the consent ID inside token scopes, used to
// pick the access tokens bound to a consent during token revocation.
const ConsentIDScopePrefix = "consent_id_"
