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

package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	model "github.com/wso2/open-banking-consent-mgt-service/internal/consent/model"
	"github.com/wso2/open-banking-consent-mgt-service/internal/consent/provider"
	errors2 "github.com/wso2/open-banking-consent-mgt-service/internal/system/errors"
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/utils"
)

const (
	manageScope = "consents:manage"
	viewScope   = "consents:view"
)

// ConsentHandler exposes the consent lifecycle engine over the admin API.
type ConsentHandler struct {
	provider provider.ConsentProviderInterface
}

func NewConsentHandler() *ConsentHandler {

	return &ConsentHandler{
		provider: provider.NewConsentProvider(),
	}
}

type createConsentRequest struct {
	Consent                  model.ConsentResource `json:"consent"`
	UserID                   string                `json:"user_id"`
	AuthStatus               string                `json:"auth_status"`
	AuthType                 string                `json:"auth_type"`
	ImplicitAuth             bool                  `json:"implicit_auth"`
	Exclusive                bool                  `json:"exclusive"`
	ApplicableExistingStatus string                `json:"applicable_existing_status"`
	NewExistingStatus        string                `json:"new_existing_status"`
}

// CreateConsent handles consent creation, exclusive creation included.
func (ch *ConsentHandler) CreateConsent(w http.ResponseWriter, r *http.Request) {

	if err := utils.AuthnAndAuthz(r, manageScope); err != nil {
		utils.HandleError(w, err)
		return
	}

	var request createConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		utils.HandleError(w, badRequest(utils.HandleDecodeError(err, "consent")))
		return
	}

	consentService := ch.provider.GetConsentCoreService()
	var detailed *model.DetailedConsentResource
	var err error
	if request.Exclusive {
		detailed, err = consentService.CreateExclusiveConsent(request.Consent, request.UserID,
			request.AuthStatus, request.AuthType, request.ApplicableExistingStatus,
			request.NewExistingStatus, request.ImplicitAuth)
	} else {
		detailed, err = consentService.CreateAuthorizableConsent(request.Consent, request.UserID,
			request.AuthStatus, request.AuthType, request.ImplicitAuth)
	}
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, detailed)
}

// GetConsent returns one consent, detailed or plain.
func (ch *ConsentHandler) GetConsent(w http.ResponseWriter, r *http.Request) {

	if err := utils.AuthnAndAuthz(r, viewScope); err != nil {
		utils.HandleError(w, err)
		return
	}

	consentID := r.PathValue("id")
	consentService := ch.provider.GetConsentCoreService()

	if r.URL.Query().Get("detailed") == "true" {
		detailed, err := consentService.GetDetailedConsent(consentID)
		if err != nil {
			utils.HandleError(w, err)
			return
		}
		utils.WriteJSONResponse(w, http.StatusOK, detailed)
		return
	}

	withAttributes := r.URL.Query().Get("withAttributes") == "true"
	consent, err := consentService.GetConsent(consentID, withAttributes)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, consent)
}

// SearchConsents runs a filtered detailed consent search.
func (ch *ConsentHandler) SearchConsents(w http.ResponseWriter, r *http.Request) {

	if err := utils.AuthnAndAuthz(r, viewScope); err != nil {
		utils.HandleError(w, err)
		return
	}

	query := r.URL.Query()
	filter := model.ConsentSearchFilter{
		ConsentIDs:      splitQueryList(query.Get("consentIDs")),
		ClientIDs:       splitQueryList(query.Get("clientIDs")),
		ConsentTypes:    splitQueryList(query.Get("consentTypes")),
		ConsentStatuses: splitQueryList(query.Get("consentStatuses")),
		UserIDs:         splitQueryList(query.Get("userIDs")),
		FromTime:        parseInt64Param(query.Get("fromTime")),
		ToTime:          parseInt64Param(query.Get("toTime")),
		Limit:           parseIntParam(query.Get("limit")),
		Offset:          parseIntParam(query.Get("offset")),
	}

	results, err := ch.provider.GetConsentCoreService().SearchDetailedConsents(filter)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, results)
}

type updateStatusRequest struct {
	NewStatus string `json:"new_status"`
}

// UpdateConsentStatus transitions a consent to a new status.
func (ch *ConsentHandler) UpdateConsentStatus(w http.ResponseWriter, r *http.Request) {

	if err := utils.AuthnAndAuthz(r, manageScope); err != nil {
		utils.HandleError(w, err)
		return
	}

	var request updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		utils.HandleError(w, badRequest(utils.HandleDecodeError(err, "consent status")))
		return
	}

	updated, err := ch.provider.GetConsentCoreService().UpdateConsentStatus(r.PathValue("id"), request.NewStatus)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, updated)
}

type revokeConsentRequest struct {
	RevokedStatus string `json:"revoked_status"`
	UserID        string `json:"user_id"`
	RevokeTokens  bool   `json:"revoke_tokens"`
	Reason        string `json:"reason"`
}

// RevokeConsent revokes one consent, optionally revoking its bound tokens.
func (ch *ConsentHandler) RevokeConsent(w http.ResponseWriter, r *http.Request) {

	if err := utils.AuthnAndAuthz(r, manageScope); err != nil {
		utils.HandleError(w, err)
		return
	}

	var request revokeConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		utils.HandleError(w, badRequest(utils.HandleDecodeError(err, "consent revocation")))
		return
	}

	consentService := ch.provider.GetConsentCoreService()
	var err error
	if request.Reason != "" {
		err = consentService.RevokeConsentWithReason(r.PathValue("id"), request.RevokedStatus,
			request.UserID, request.RevokeTokens, request.Reason)
	} else {
		err = consentService.RevokeConsent(r.PathValue("id"), request.RevokedStatus,
			request.UserID, request.RevokeTokens)
	}
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type amendConsentRequest struct {
	Receipt                *string                   `json:"receipt"`
	ValidityPeriod         *int64                    `json:"validity_period"`
	AuthorizationID        string                    `json:"authorization_id"`
	AccountsAndPermissions map[string][]string       `json:"accounts_and_permissions"`
	NewStatus              string                    `json:"new_status"`
	NewAttributes          map[string]string         `json:"new_attributes"`
	UserID                 string                    `json:"user_id"`
	AdditionalAmendments   *model.AmendmentResources `json:"additional_amendments"`
}

// AmendConsent runs a detailed consent amendment.
func (ch *ConsentHandler) AmendConsent(w http.ResponseWriter, r *http.Request) {

	if err := utils.AuthnAndAuthz(r, manageScope); err != nil {
		utils.HandleError(w, err)
		return
	}

	var request amendConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		utils.HandleError(w, badRequest(utils.HandleDecodeError(err, "consent amendment")))
		return
	}

	amended, err := ch.provider.GetConsentCoreService().AmendDetailedConsent(r.PathValue("id"),
		request.Receipt, request.ValidityPeriod, request.AuthorizationID,
		request.AccountsAndPermissions, request.NewStatus, request.NewAttributes,
		request.UserID, request.AdditionalAmendments)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, amended)
}

// GetConsentAttributes returns all attributes of a consent.
func (ch *ConsentHandler) GetConsentAttributes(w http.ResponseWriter, r *http.Request) {

	if err := utils.AuthnAndAuthz(r, viewScope); err != nil {
		utils.HandleError(w, err)
		return
	}

	attributes, err := ch.provider.GetConsentCoreService().GetConsentAttributes(r.PathValue("id"))
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, attributes)
}

// StoreConsentAttributes stores an attribute batch for a consent.
func (ch *ConsentHandler) StoreConsentAttributes(w http.ResponseWriter, r *http.Request) {

	if err := utils.AuthnAndAuthz(r, manageScope); err != nil {
		utils.HandleError(w, err)
		return
	}

	var attributes map[string]string
	if err := json.NewDecoder(r.Body).Decode(&attributes); err != nil {
		utils.HandleError(w, badRequest(utils.HandleDecodeError(err, "consent attributes")))
		return
	}

	if err := ch.provider.GetConsentCoreService().StoreConsentAttributes(r.PathValue("id"), attributes); err != nil {
		utils.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// GetAuditRecords returns the status audit trail of a consent.
func (ch *ConsentHandler) GetAuditRecords(w http.ResponseWriter, r *http.Request) {

	if err := utils.AuthnAndAuthz(r, viewScope); err != nil {
		utils.HandleError(w, err)
		return
	}

	query := r.URL.Query()
	records, err := ch.provider.GetConsentCoreService().GetConsentStatusAuditRecords(
		[]string{r.PathValue("id")}, parseIntParam(query.Get("limit")), parseIntParam(query.Get("offset")))
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, records)
}

// GetAmendmentHistory reconstructs the amendment history of a consent.
func (ch *ConsentHandler) GetAmendmentHistory(w http.ResponseWriter, r *http.Request) {

	if err := utils.AuthnAndAuthz(r, viewScope); err != nil {
		utils.HandleError(w, err)
		return
	}

	history, err := ch.provider.GetConsentCoreService().GetConsentAmendmentHistoryData(r.PathValue("id"))
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, history)
}

type uploadFileRequest struct {
	FileContent      string `json:"file_content"`
	NewStatus        string `json:"new_status"`
	UserID           string `json:"user_id"`
	ApplicableStatus string `json:"applicable_status"`
}

// UploadConsentFile stores the consent file and transitions the consent.
func (ch *ConsentHandler) UploadConsentFile(w http.ResponseWriter, r *http.Request) {

	if err := utils.AuthnAndAuthz(r, manageScope); err != nil {
		utils.HandleError(w, err)
		return
	}

	var request uploadFileRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		utils.HandleError(w, badRequest(utils.HandleDecodeError(err, "consent file")))
		return
	}

	file := model.ConsentFile{
		ConsentID:   r.PathValue("id"),
		ConsentFile: request.FileContent,
	}
	if err := ch.provider.GetConsentCoreService().CreateConsentFile(file, request.NewStatus,
		request.UserID, request.ApplicableStatus); err != nil {
		utils.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// GetConsentFile returns the stored consent file.
func (ch *ConsentHandler) GetConsentFile(w http.ResponseWriter, r *http.Request) {

	if err := utils.AuthnAndAuthz(r, viewScope); err != nil {
		utils.HandleError(w, err)
		return
	}

	file, err := ch.provider.GetConsentCoreService().GetConsentFile(r.PathValue("id"))
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, file)
}

// CreateAuthorization creates a new authorization under a consent.
func (ch *ConsentHandler) CreateAuthorization(w http.ResponseWriter, r *http.Request) {

	if err := utils.AuthnAndAuthz(r, manageScope); err != nil {
		utils.HandleError(w, err)
		return
	}

	var authorization model.AuthorizationResource
	if err := json.NewDecoder(r.Body).Decode(&authorization); err != nil {
		utils.HandleError(w, badRequest(utils.HandleDecodeError(err, "consent authorization")))
		return
	}
	authorization.ConsentID = r.PathValue("id")

	stored, err := ch.provider.GetConsentCoreService().CreateConsentAuthorization(authorization)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, stored)
}

// GetAuthorizations lists the authorizations of a consent, optionally for
// one user.
func (ch *ConsentHandler) GetAuthorizations(w http.ResponseWriter, r *http.Request) {

	if err := utils.AuthnAndAuthz(r, viewScope); err != nil {
		utils.HandleError(w, err)
		return
	}

	authorizations, err := ch.provider.GetConsentCoreService().SearchAuthorizationsForUser(
		r.PathValue("id"), r.URL.Query().Get("userID"))
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, authorizations)
}

func badRequest(description string) error {
	return errors2.NewClientError(errors2.ErrorMessage{
		Code:        errors2.BAD_REQUEST.Code,
		Message:     errors2.BAD_REQUEST.Message,
		Description: description,
	}, http.StatusBadRequest)
}

func splitQueryList(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}

func parseIntParam(value string) *int {
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	return &parsed
}

func parseInt64Param(value string) *int64 {
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil
	}
	return &parsed
}
