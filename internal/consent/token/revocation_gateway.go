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

package token

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wso2/open-banking-consent-mgt-service/internal/system/config"
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/constants"
	errors2 "github.com/wso2/open-banking-consent-mgt-service/internal/system/errors"
	"github.com/wso2/open-banking-consent-mgt-service/internal/system/log"
)

// RevocationGatewayInterface revokes the access tokens bound to a consent at
// the authorization server. Implementations are only invoked after the
// consent state change has been committed.
type RevocationGatewayInterface interface {
	RevokeTokens(clientID, userID, consentID string) error
}

// RevocationGateway talks to the authorization server over its token lookup
// and RFC 7009 revocation endpoints.
type RevocationGateway struct {
	AuthServer config.AuthServerConfig
	HTTPClient *http.Client
}

// NewRevocationGateway creates a gateway against the configured
// authorization server.
func NewRevocationGateway(authServer config.AuthServerConfig) *RevocationGateway {
	return &RevocationGateway{
		AuthServer: authServer,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSHandshakeTimeout: 10 * time.Second,
				IdleConnTimeout:     60 * time.Second,
				MaxIdleConns:        100,
				MaxConnsPerHost:     100,
			},
		},
	}
}

type activeToken struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}

// RevokeTokens looks up the active tokens of the user and client, keeps the
// ones whose scope binds them to the consent, and revokes each of them.
func (g *RevocationGateway) RevokeTokens(clientID, userID, consentID string) error {

	logger := log.GetLogger()
	tokens, err := g.lookupActiveTokens(clientID, userID)
	if err != nil {
		return err
	}

	boundScope := constants.ConsentIDScopePrefix + consentID
	for _, token := range tokens {
		if !hasScope(token.Scope, boundScope) {
			continue
		}
		if err := g.revokeToken(token.AccessToken, clientID); err != nil {
			return err
		}
	}
	logger.Debug(fmt.Sprintf("Revoked tokens bound to consent: %s", consentID))
	return nil
}

// lookupActiveTokens fetches the active access tokens of a user and client
// from the authorization server.
func (g *RevocationGateway) lookupActiveTokens(clientID, userID string) ([]activeToken, error) {

	logger := log.GetLogger()
	endpoint := g.AuthServer.TokenLookupEndpoint
	query := url.Values{}
	query.Set("client_id", clientID)
	query.Set("user_id", userID)

	req, err := http.NewRequest(http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		errorMsg := fmt.Sprintf("failed to create token lookup request for client: %s", clientID)
		logger.Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindRevocation, errorMsg, err)
	}
	req.SetBasicAuth(g.AuthServer.ClientID, g.AuthServer.ClientSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		errorMsg := fmt.Sprintf("failed to look up active tokens for client: %s", clientID)
		logger.Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindRevocation, errorMsg, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		errorMsg := fmt.Sprintf("token lookup endpoint returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
		logger.Debug(errorMsg)
		return nil, errors2.NewConsentError(errors2.KindRevocation, errorMsg,
			fmt.Errorf("token lookup endpoint non-200: %d", resp.StatusCode))
	}

	var tokens []activeToken
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		errorMsg := fmt.Sprintf("failed to parse token lookup response for client: %s", clientID)
		logger.Debug(errorMsg, log.Error(err))
		return nil, errors2.NewConsentError(errors2.KindRevocation, errorMsg, err)
	}
	return tokens, nil
}

// revokeToken revokes one access token over the RFC 7009 endpoint.
func (g *RevocationGateway) revokeToken(accessToken, clientID string) error {

	logger := log.GetLogger()
	form := url.Values{}
	form.Set("token", accessToken)
	form.Set("token_type_hint", "access_token")

	req, err := http.NewRequest(http.MethodPost, g.AuthServer.RevocationEndpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		errorMsg := fmt.Sprintf("failed to create token revocation request for client: %s", clientID)
		logger.Debug(errorMsg, log.Error(err))
		return errors2.NewConsentError(errors2.KindRevocation, errorMsg, err)
	}
	req.SetBasicAuth(g.AuthServer.ClientID, g.AuthServer.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		errorMsg := fmt.Sprintf("failed to revoke token for client: %s", clientID)
		logger.Debug(errorMsg, log.Error(err))
		return errors2.NewConsentError(errors2.KindRevocation, errorMsg, err)
	}
	defer resp.Body.Close()
	_, _ = io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		errorMsg := fmt.Sprintf("token revocation endpoint returned status %d for client: %s",
			resp.StatusCode, clientID)
		logger.Debug(errorMsg)
		return errors2.NewConsentError(errors2.KindRevocation, errorMsg,
			fmt.Errorf("revocation endpoint non-200: %d", resp.StatusCode))
	}
	return nil
}

// hasScope reports whether a space separated scope string contains the
// given scope.
func hasScope(scopeStr, scope string) bool {
	for _, s := range strings.Fields(scopeStr) {
		if s == scope {
			return true
		}
	}
	return false
}
