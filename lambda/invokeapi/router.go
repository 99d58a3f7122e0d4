// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package invokeapi

import (
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// MaxPayloadSize is the synchronous invoke payload limit of Lambda.
const MaxPayloadSize = 6 * 1024 * 1024

// InvokePath is the invoke endpoint of the Lambda Runtime Interface Emulator.
const InvokePath = "/2015-03-31/functions/function/invocations"

// RequestIDHeader carries the request ID assigned to an invoke.
const RequestIDHeader = "X-Amzn-RequestId"

// HandlerFunc is a Lambda handler taking the raw event.
type HandlerFunc func(ctx context.Context, event json.RawMessage) error

// NewRouter returns a chi router serving handler on InvokePath.
func NewRouter(handler HandlerFunc) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Post(InvokePath, NewInvokeHandler(handler).ServeHTTP)
	return router
}

type invokeHandler struct {
	handler HandlerFunc
}

// NewInvokeHandler returns an http.Handler running one invocation per request.
func NewInvokeHandler(handler HandlerFunc) http.Handler {
	return &invokeHandler{handler: handler}
}

func (h *invokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	w.Header().Set(RequestIDHeader, requestID)

	body, err := ioutil.ReadAll(io.LimitReader(r.Body, MaxPayloadSize+1))
	if err != nil {
		log.WithError(err).Error("Failed to read invoke body")
		RenderInternalServerError(w, r)
		return
	}
	if len(body) > MaxPayloadSize {
		RenderRequestEntityTooLarge(w, r)
		return
	}

	ctx := lambdacontext.NewContext(r.Context(), &lambdacontext.LambdaContext{AwsRequestID: requestID})

	log.WithField("aws_request_id", requestID).Info("START")
	start := time.Now()
	err = h.handler(ctx, json.RawMessage(body))
	log.WithFields(log.Fields{
		"aws_request_id": requestID,
		"duration_ms":    float64(time.Since(start).Microseconds()) / 1000,
	}).Info("END")

	if err != nil {
		RenderInvokeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("null"))
}
