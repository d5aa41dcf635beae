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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errors2 "github.com/wso2/open-banking-consent-mgt-service/internal/system/errors"
)

func TestStoreConsentAttributes_Validation(t *testing.T) {
	engine, _, _, _ := newTestService()

	err := engine.StoreConsentAttributes("", map[string]string{"k": "v"})
	require.Error(t, err)
	assert.True(t, errors2.IsKind(err, errors2.KindValidation))

	err = engine.StoreConsentAttributes("consent-1", nil)
	require.Error(t, err)
	assert.True(t, errors2.IsKind(err, errors2.KindValidation))
}

func TestStoreAndGetConsentAttributes(t *testing.T) {
	engine, _, _, _ := newTestService()
	detailed := seedAuthorizedConsent(t, engine)

	err := engine.StoreConsentAttributes(detailed.ConsentID,
		map[string]string{"sharing_duration": "3600", "idempotency_key": "abc"})
	require.NoError(t, err)

	attributes, err := engine.GetConsentAttributes(detailed.ConsentID)
	require.NoError(t, err)
	assert.Equal(t, detailed.ConsentID, attributes.ConsentID)
	assert.Equal(t, map[string]string{"sharing_duration": "3600", "idempotency_key": "abc"},
		attributes.ConsentAttributes)
}

func TestGetConsentAttributesWithKeys(t *testing.T) {
	engine, _, _, _ := newTestService()
	detailed := seedAuthorizedConsent(t, engine)
	require.NoError(t, engine.StoreConsentAttributes(detailed.ConsentID,
		map[string]string{"a": "1", "b": "2"}))

	attributes, err := engine.GetConsentAttributesWithKeys(detailed.ConsentID, []string{"a", "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1"}, attributes.ConsentAttributes)

	_, err = engine.GetConsentAttributesWithKeys(detailed.ConsentID, nil)
	require.Error(t, err)
	assert.True(t, errors2.IsKind(err, errors2.KindValidation))
}

func TestGetConsentAttributesByName(t *testing.T) {
	engine, _, _, _ := newTestService()
	first := seedAuthorizedConsent(t, engine)
	second := seedAuthorizedConsent(t, engine)
	require.NoError(t, engine.StoreConsentAttributes(first.ConsentID, map[string]string{"tier": "gold"}))
	require.NoError(t, engine.StoreConsentAttributes(second.ConsentID, map[string]string{"tier": "silver"}))

	values, err := engine.GetConsentAttributesByName("tier")

	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		first.ConsentID:  "gold",
		second.ConsentID: "silver",
	}, values)
}

func TestGetConsentIDByConsentAttributeNameAndValue(t *testing.T) {
	engine, _, _, _ := newTestService()
	first := seedAuthorizedConsent(t, engine)
	second := seedAuthorizedConsent(t, engine)
	require.NoError(t, engine.StoreConsentAttributes(first.ConsentID, map[string]string{"tier": "gold"}))
	require.NoError(t, engine.StoreConsentAttributes(second.ConsentID, map[string]string{"tier": "silver"}))

	consentIDs, err := engine.GetConsentIDByConsentAttributeNameAndValue("tier", "gold")

	require.NoError(t, err)
	assert.Equal(t, []string{first.ConsentID}, consentIDs)

	_, err = engine.GetConsentIDByConsentAttributeNameAndValue("tier", "")
	require.Error(t, err)
	assert.True(t, errors2.IsKind(err, errors2.KindValidation))
}

func TestUpdateConsentAttributes_ReplacesSuppliedKeys(t *testing.T) {
	engine, consentStore, _, _ := newTestService()
	detailed := seedAuthorizedConsent(t, engine)
	require.NoError(t, engine.StoreConsentAttributes(detailed.ConsentID,
		map[string]string{"a": "1", "b": "2"}))

	err := engine.UpdateConsentAttributes(detailed.ConsentID, map[string]string{"a": "updated"})

	require.NoError(t, err)
	// Only the supplied key is replaced; the others stay.
	assert.Equal(t, map[string]string{"a": "updated", "b": "2"},
		consentStore.attributes[detailed.ConsentID])
}

func TestDeleteConsentAttributes(t *testing.T) {
	engine, consentStore, _, _ := newTestService()
	detailed := seedAuthorizedConsent(t, engine)
	require.NoError(t, engine.StoreConsentAttributes(detailed.ConsentID,
		map[string]string{"a": "1", "b": "2"}))

	err := engine.DeleteConsentAttributes(detailed.ConsentID, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"b": "2"}, consentStore.attributes[detailed.ConsentID])

	// An empty key list is rejected, not treated as delete-all.
	err = engine.DeleteConsentAttributes(detailed.ConsentID, nil)
	require.Error(t, err)
	assert.True(t, errors2.IsKind(err, errors2.KindValidation))
	assert.Equal(t, map[string]string{"b": "2"}, consentStore.attributes[detailed.ConsentID])
}
