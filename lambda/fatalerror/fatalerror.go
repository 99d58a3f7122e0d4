// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package fatalerror

import "errors"

// This package defines the error types an invocation can fail with.
// Separate package for namespacing

// ErrorType is reported to the invoking layer alongside the error message
type ErrorType string

const (
	MalformedInput     ErrorType = "Forwarder.MalformedInput"     // event lacks the expected detail fields
	ConfigurationError ErrorType = "Forwarder.ConfigurationError" // destination topic not configured
	PublishFailure     ErrorType = "Forwarder.PublishFailure"     // outbound publish call failed
	Unknown            ErrorType = "Unknown"
)

// Typed is implemented by errors that know their own ErrorType.
type Typed interface {
	error
	ErrorType() ErrorType
}

// GetErrorType returns the ErrorType of the first error in err's chain
// implementing Typed, or Unknown.
func GetErrorType(err error) ErrorType {
	var typed Typed
	if errors.As(err, &typed) {
		return typed.ErrorType()
	}
	return Unknown
}
