// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"github.com/lambda-sns/ec2-state-notifier/lambda/forwarder"
	"github.com/lambda-sns/ec2-state-notifier/lambda/logging"
	"github.com/lambda-sns/ec2-state-notifier/lambda/snspub"
)

type options struct {
	LogLevel    string `long:"log-level" env:"LOG_LEVEL" default:"info" description:"log level"`
	TopicARN    string `long:"topic-arn" env:"SNS_TOPIC_ARN" description:"ARN of the SNS topic notifications are published to"`
	SNSEndpoint string `long:"sns-endpoint" env:"SNS_ENDPOINT_URL" description:"SNS endpoint override, e.g. a LocalStack URL"`
	LocalAddr   string `long:"local-addr" env:"LOCAL_INVOKE_ADDR" description:"serve the invoke API on this address instead of running under Lambda"`
}

func main() {
	opts := getCLIArgs()

	logging.SetOutput(os.Stderr)
	if err := logging.SetLogLevel(opts.LogLevel); err != nil {
		log.WithError(err).Fatal("Failed to set log level. Valid log levels are:", log.AllLevels)
	}

	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		log.WithError(err).Fatal("Failed to load AWS configuration")
	}

	if opts.TopicARN == "" {
		log.Warn("SNS_TOPIC_ARN is not set, invocations will fail until it is configured")
	}

	// One SNS client for the lifetime of the process.
	fwd := forwarder.New(opts.TopicARN, snspub.New(cfg, snspub.WithEndpoint(opts.SNSEndpoint)))

	if opts.LocalAddr == "" {
		lambda.Start(fwd.Handle)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := startHTTPServer(ctx, opts.LocalAddr, fwd.Handle); err != nil {
		log.WithError(err).Fatal("Invoke API server failed")
	}
}

func getCLIArgs() options {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("Failed to parse command line arguments:", os.Args)
	}
	return opts
}

func parseOptions(args []string) (options, error) {
	var opts options
	parser := flags.NewParser(&opts, flags.IgnoreUnknown)
	if _, err := parser.ParseArgs(args); err != nil {
		return opts, err
	}
	// LOG_LEVEL= in the environment overrides the default with an empty value.
	if opts.LogLevel == "" {
		opts.LogLevel = "info"
	}
	return opts, nil
}
