// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package snspub publishes notifications to Amazon SNS.
package snspub

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	log "github.com/sirupsen/logrus"
)

// snsClient is the subset of the SNS client we use. The SDK has no mock,
// tests provide their own implementation.
type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// newSNSClient is overwritten in tests.
var newSNSClient = func(cfg aws.Config, optFns ...func(*sns.Options)) snsClient {
	return sns.NewFromConfig(cfg, optFns...)
}

// Option configures a Publisher.
type Option func(*sns.Options)

// WithEndpoint sends requests to endpoint instead of the regional SNS endpoint,
// e.g. a LocalStack instance.
func WithEndpoint(endpoint string) Option {
	return func(o *sns.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}
}

// Publisher publishes messages to SNS topics. A single Publisher reuses one
// SNS client across invocations and is safe for concurrent use.
type Publisher struct {
	client snsClient
}

// New returns a Publisher backed by an SNS client built from cfg.
func New(cfg aws.Config, opts ...Option) *Publisher {
	optFns := make([]func(*sns.Options), 0, len(opts))
	for _, opt := range opts {
		optFns = append(optFns, opt)
	}
	return &Publisher{client: newSNSClient(cfg, optFns...)}
}

// Publish sends one message to topicARN. SDK errors are returned as is so that
// their error code and message reach the caller.
func (p *Publisher) Publish(ctx context.Context, topicARN, subject, message string) error {
	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"topic_arn":  topicARN,
		"message_id": aws.ToString(out.MessageId),
	}).Debug("SNS accepted message")
	return nil
}
