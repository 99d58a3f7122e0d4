// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package invokeapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/smithy-go"
	"github.com/go-chi/render"
	log "github.com/sirupsen/logrus"

	"github.com/lambda-sns/ec2-state-notifier/lambda/fatalerror"
)

const (
	// ErrorTypeRequestEntityTooLarge error type for payload too large
	ErrorTypeRequestEntityTooLarge = "RequestEntityTooLarge"
	// ErrorTypeInternalServerError error type for internal server error
	ErrorTypeInternalServerError = "InternalServerError"
)

// RenderJSON renders v with the given status code.
func RenderJSON(status int, w http.ResponseWriter, r *http.Request, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// RenderInvokeError maps a handler error onto an HTTP status and error response.
func RenderInvokeError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := invokeErrorResponse(err)
	log.WithError(err).WithFields(log.Fields{
		"status":     status,
		"error_type": resp.ErrorType,
	}).Warn("Invoke failed")
	RenderJSON(status, w, r, resp)
}

func invokeErrorResponse(err error) (int, *ErrorResponse) {
	resp := &ErrorResponse{ErrorMessage: err.Error()}

	switch errorType := fatalerror.GetErrorType(err); errorType {
	case fatalerror.MalformedInput:
		resp.ErrorType = string(errorType)
		return http.StatusBadRequest, resp
	case fatalerror.ConfigurationError:
		resp.ErrorType = string(errorType)
		return http.StatusInternalServerError, resp
	}

	// Anything else came back from the publish call.
	resp.ErrorType = string(fatalerror.PublishFailure)
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		resp.ErrorCode = apiErr.ErrorCode()
	}
	return http.StatusBadGateway, resp
}

// RenderRequestEntityTooLarge method for rendering error response
func RenderRequestEntityTooLarge(w http.ResponseWriter, r *http.Request) {
	RenderJSON(http.StatusRequestEntityTooLarge, w, r, &ErrorResponse{
		ErrorMessage: fmt.Sprintf("Exceeded maximum allowed payload size (%d bytes).", MaxPayloadSize),
		ErrorType:    ErrorTypeRequestEntityTooLarge,
	})
}

// RenderInternalServerError method for rendering error response
func RenderInternalServerError(w http.ResponseWriter, r *http.Request) {
	RenderJSON(http.StatusInternalServerError, w, r, &ErrorResponse{
		ErrorMessage: "Internal Server Error",
		ErrorType:    ErrorTypeInternalServerError,
	})
}
