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

package errors

import (
	"errors"
	"fmt"
)

// ErrorKind classifies consent management failures.
type ErrorKind int

const (
	// KindValidation marks a missing or invalid input detected before any I/O.
	KindValidation ErrorKind = iota
	// KindConnection marks a failure to obtain a database client or transaction.
	KindConnection
	// KindInsertion, KindRetrieval, KindUpdate and KindDeletion wrap the
	// corresponding consent store failures.
	KindInsertion
	KindRetrieval
	KindUpdate
	KindDeletion
	// KindRevocation marks a token revocation gateway failure reported after
	// the database changes have already been committed.
	KindRevocation
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConnection:
		return "connection"
	case KindInsertion:
		return "insertion"
	case KindRetrieval:
		return "retrieval"
	case KindUpdate:
		return "update"
	case KindDeletion:
		return "deletion"
	case KindRevocation:
		return "revocation"
	default:
		return "unknown"
	}
}

// ConsentError is the single error type surfaced by the consent lifecycle
// engine. The Kind tag replaces the per-category exception classes of older
// consent management implementations.
type ConsentError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ConsentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("consent management %s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("consent management %s error: %s", e.Kind, e.Message)
}

func (e *ConsentError) Unwrap() error {
	return e.Err
}

// NewConsentError wraps a cause with the given kind and message.
func NewConsentError(kind ErrorKind, message string, cause error) *ConsentError {
	return &ConsentError{
		Kind:    kind,
		Message: message,
		Err:     cause,
	}
}

// NewValidationError reports a missing or invalid required field.
func NewValidationError(message string) *ConsentError {
	return &ConsentError{
		Kind:    KindValidation,
		Message: message,
	}
}

// IsKind reports whether err is (or wraps) a ConsentError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var consentErr *ConsentError
	if errors.As(err, &consentErr) {
		return consentErr.Kind == kind
	}
	return false
}
