// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/lambda-sns/ec2-state-notifier/lambda/invokeapi"
)

const shutdownTimeout = 5 * time.Second

// startHTTPServer serves the invoke API on ipport until ctx is done.
func startHTTPServer(ctx context.Context, ipport string, handler invokeapi.HandlerFunc) error {
	srv := &http.Server{
		Addr:    ipport,
		Handler: invokeapi.NewRouter(handler),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Warnf("Listening on %s", ipport)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
