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

package authn

import (
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/log"
)

func TestMain(m *testing.M) {
	_ = log.Init("ERROR")
	os.Exit(m.Run())
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestValidateAuthentication_ValidToken(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"exp":   time.Now().Add(time.Hour).Unix(),
		"aud":   "consent-mgt",
		"scope": "consents:manage",
	})

	claims, err := ValidateAuthenticationAndReturnClaims(token)

	require.NoError(t, err)
	assert.Equal(t, "consents:manage", claims["scope"])
}

func TestValidateAuthentication_AudienceList(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
		"aud": []string{"other-api", "consent-mgt"},
	})

	_, err := ValidateAuthenticationAndReturnClaims(token)

	assert.NoError(t, err)
}

func TestValidateAuthentication_OpaqueTokenRejected(t *testing.T) {
	_, err := ValidateAuthenticationAndReturnClaims("not-a-jwt")

	assert.Error(t, err)
}

func TestValidateAuthentication_ExpiredToken(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
		"aud": "consent-mgt",
	})

	_, err := ValidateAuthenticationAndReturnClaims(token)

	assert.Error(t, err)
}

func TestValidateAuthentication_MissingExpiry(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"aud": "consent-mgt",
	})

	_, err := ValidateAuthenticationAndReturnClaims(token)

	assert.Error(t, err)
}

func TestValidateAuthentication_WrongAudience(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
		"aud": "some-other-api",
	})

	_, err := ValidateAuthenticationAndReturnClaims(token)

	assert.Error(t, err)
}
