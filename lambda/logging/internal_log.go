// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"io"
	"log"

	"github.com/sirupsen/logrus"
)

// SetOutput configures logging output for standard loggers.
// Write errors on w are swallowed: a failing sink must never abort an invocation.
func SetOutput(w io.Writer) {
	bw := &bestEffortWriter{w: w}
	log.SetOutput(bw)
	logrus.SetOutput(bw)
}

// SetLogLevel parses level and installs the JSON formatter used for CloudWatch Logs.
// The record's own timestamp is written as "timestamp", leaving "time" to callers.
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}

	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{logrus.FieldKeyTime: "timestamp"},
	})
	return nil
}

type bestEffortWriter struct {
	w io.Writer
}

// Write always reports success to the caller.
func (b *bestEffortWriter) Write(p []byte) (int, error) {
	_, _ = b.w.Write(p)
	return len(p), nil
}
