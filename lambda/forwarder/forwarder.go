// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package forwarder

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/lambdacontext"
	log "github.com/sirupsen/logrus"

	"github.com/lambda-sns/ec2-state-notifier/lambda/fatalerror"
	"github.com/lambda-sns/ec2-state-notifier/lambda/lifecycle"
)

// Subject is the subject line of every notification.
const Subject = "EC2 State Change Notification"

// Publisher publishes a message to a fan-out topic.
type Publisher interface {
	Publish(ctx context.Context, topicARN, subject, message string) error
}

// ConfigurationError is returned when the forwarder cannot publish because of
// missing configuration.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// ErrorType implements fatalerror.Typed.
func (e *ConfigurationError) ErrorType() fatalerror.ErrorType {
	return fatalerror.ConfigurationError
}

// ErrTopicNotConfigured is returned when no destination topic was configured.
var ErrTopicNotConfigured = &ConfigurationError{Reason: "destination topic ARN is not set"}

// Forwarder republishes EC2 state change events to an SNS topic.
// It holds no per-invocation state and may be invoked concurrently.
type Forwarder struct {
	topicARN  string
	publisher Publisher
}

// New returns a Forwarder publishing to topicARN. An empty topicARN is
// accepted here and reported on every invocation.
func New(topicARN string, publisher Publisher) *Forwarder {
	return &Forwarder{
		topicARN:  topicARN,
		publisher: publisher,
	}
}

// Handle is the Lambda handler. The event is published verbatim; the
// publisher's error, if any, is returned unchanged so the invoking layer's
// retry policy applies.
func (f *Forwarder) Handle(ctx context.Context, event json.RawMessage) error {
	ev, err := lifecycle.Parse(event)
	if err != nil {
		log.WithError(err).Error("Rejected lifecycle event")
		return err
	}

	logEvent(ctx, ev)

	if f.topicARN == "" {
		log.WithError(ErrTopicNotConfigured).Error("Cannot publish notification")
		return ErrTopicNotConfigured
	}

	if err := f.publisher.Publish(ctx, f.topicARN, Subject, string(ev.Raw)); err != nil {
		log.WithError(err).WithField("topic_arn", f.topicARN).Error("Failed to publish notification")
		return err
	}

	log.WithFields(log.Fields{
		"instance_id": ev.InstanceID,
		"topic_arn":   f.topicARN,
	}).Debug("Published notification")
	return nil
}

func logEvent(ctx context.Context, ev *lifecycle.LifecycleEvent) {
	fields := log.Fields{
		"event":       string(ev.Raw),
		"instance_id": ev.InstanceID,
		"state":       ev.State,
		"region":      ev.Region,
		"account_id":  ev.AccountID,
		"time":        ev.Time,
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		fields["aws_request_id"] = lc.AwsRequestID
	}

	log.WithFields(fields).Info("Received EC2 state change event")
}
