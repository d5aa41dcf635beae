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

package authz

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/log"
)

func TestMain(m *testing.M) {
	_ = log.Init("ERROR")
	os.Exit(m.Run())
}

func TestValidatePermission(t *testing.T) {
	assert.True(t, ValidatePermission("consents:view consents:manage", "consents:manage"))
	assert.True(t, ValidatePermission("consents:view", "consents:view"))
	assert.False(t, ValidatePermission("consents:view", "consents:manage"))
	assert.False(t, ValidatePermission("", "consents:view"))
	assert.False(t, ValidatePermission("consents:viewer", "consents:view"))
}
