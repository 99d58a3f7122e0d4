// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-lambda-go/events/test"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/smithy-go"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/lambda-sns/ec2-state-notifier/lambda/fatalerror"
	"github.com/lambda-sns/ec2-state-notifier/lambda/lifecycle"
	"github.com/lambda-sns/ec2-state-notifier/lambda/logging"
)

const scenarioEvent = `{"detail":{"instance-id":"i-0abc123","state":"running"},"region":"us-east-1","account":"111122223333","time":"2024-01-01T00:00:00Z"}`

type publishCall struct {
	topicARN string
	subject  string
	message  string
}

type mockPublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

func (m *mockPublisher) Publish(ctx context.Context, topicARN, subject, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, publishCall{topicARN: topicARN, subject: subject, message: message})
	return m.err
}

func (m *mockPublisher) Calls() []publishCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishCall(nil), m.calls...)
}

func captureLogs(t *testing.T) *bytes.Buffer {
	buf := new(bytes.Buffer)
	logging.SetOutput(buf)
	t.Cleanup(func() { logging.SetOutput(os.Stderr) })
	return buf
}

func TestHandlePublishesScenarioEvent(t *testing.T) {
	captureLogs(t)
	publisher := &mockPublisher{}
	fwd := New("arn:test:topic", publisher)

	require.NoError(t, fwd.Handle(context.Background(), json.RawMessage(scenarioEvent)))

	calls := publisher.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "arn:test:topic", calls[0].topicARN)
	assert.Equal(t, "EC2 State Change Notification", calls[0].subject)
	test.AssertJsonsEqual(t, []byte(scenarioEvent), []byte(calls[0].message))
}

func TestHandleEmptyTopic(t *testing.T) {
	captureLogs(t)
	publisher := &mockPublisher{}
	fwd := New("", publisher)

	err := fwd.Handle(context.Background(), json.RawMessage(scenarioEvent))

	require.Error(t, err)
	assert.Equal(t, ErrTopicNotConfigured, err)
	assert.Equal(t, fatalerror.ConfigurationError, fatalerror.GetErrorType(err))
	assert.Empty(t, publisher.Calls())
}

func TestHandleMalformedInput(t *testing.T) {
	captureLogs(t)

	var inputs = []string{
		`{"region":"us-east-1","account":"111122223333"}`,
		`{"detail":{"state":"running"}}`,
		`{"detail":{"instance-id":"i-0abc123"}}`,
		`not json`,
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			publisher := &mockPublisher{}
			fwd := New("arn:test:topic", publisher)

			err := fwd.Handle(context.Background(), json.RawMessage(input))

			var malformedErr *lifecycle.MalformedInputError
			assert.True(t, errors.As(err, &malformedErr))
			assert.Equal(t, fatalerror.MalformedInput, fatalerror.GetErrorType(err))
			assert.Empty(t, publisher.Calls())
		})
	}
}

func TestHandleMalformedInputPrecedesConfigurationError(t *testing.T) {
	captureLogs(t)
	publisher := &mockPublisher{}

	err := New("", publisher).Handle(context.Background(), json.RawMessage(`{}`))

	assert.Equal(t, fatalerror.MalformedInput, fatalerror.GetErrorType(err))
	assert.Empty(t, publisher.Calls())
}

func TestHandlePublishFailureIsReturnedUnchanged(t *testing.T) {
	captureLogs(t)
	publishErr := &smithy.GenericAPIError{Code: "AuthorizationError", Message: "not authorized to perform SNS:Publish"}
	publisher := &mockPublisher{err: publishErr}
	fwd := New("arn:test:topic", publisher)

	err := fwd.Handle(context.Background(), json.RawMessage(scenarioEvent))

	assert.Same(t, publishErr, err)
	var apiErr smithy.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "AuthorizationError", apiErr.ErrorCode())
	assert.Equal(t, "not authorized to perform SNS:Publish", apiErr.ErrorMessage())
	assert.Len(t, publisher.Calls(), 1)
}

func TestHandleBodyIsVerbatimForArbitraryEvents(t *testing.T) {
	captureLogs(t)

	var inputs = []string{
		`{"version":"0","id":"abc","detail-type":"EC2 Instance State-change Notification","source":"aws.ec2","account":"123456789012","time":"2021-11-11T21:29:54Z","region":"eu-west-1","resources":["arn:aws:ec2:eu-west-1:123456789012:instance/i-1"],"detail":{"instance-id":"i-1","state":"stopped"}}`,
		`{"detail":{"instance-id":"i-2","state":"terminated","extra":{"nested":[1,2,3]}},"unknown-field":true}`,
		"{\n  \"detail\": {\"instance-id\": \"i-3\", \"state\": \"stopping\"}\n}",
	}

	for i, input := range inputs {
		t.Run(fmt.Sprintf("event-%d", i), func(t *testing.T) {
			publisher := &mockPublisher{}
			require.NoError(t, New("arn:test:topic", publisher).Handle(context.Background(), json.RawMessage(input)))

			calls := publisher.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, Subject, calls[0].subject)

			var expected, actual interface{}
			require.NoError(t, json.Unmarshal([]byte(input), &expected))
			require.NoError(t, json.Unmarshal([]byte(calls[0].message), &actual))
			assert.Equal(t, expected, actual)
		})
	}
}

func TestHandleLogsDiagnosticFields(t *testing.T) {
	buf := captureLogs(t)
	fwd := New("arn:test:topic", &mockPublisher{})

	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-1"})
	require.NoError(t, fwd.Handle(ctx, json.RawMessage(scenarioEvent)))

	out := buf.String()
	assert.Contains(t, out, "Received EC2 state change event")
	assert.Contains(t, out, "i-0abc123")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "us-east-1")
	assert.Contains(t, out, "111122223333")
	assert.Contains(t, out, "2024-01-01T00:00:00Z")
	assert.Contains(t, out, "req-1")
}

func TestHandlePublishesAnyTimestampVerbatim(t *testing.T) {
	captureLogs(t)

	var times = []string{
		"2024-01-01T00:00:00+0000",
		"2024-01-01T00:00:00",
		"",
		"20240101T000000Z",
		"2024-01-01T00:00:00.987654321Z",
	}

	for _, ts := range times {
		t.Run(ts, func(t *testing.T) {
			event := fmt.Sprintf(`{"detail":{"instance-id":"i-0abc123","state":"running"},"time":%q}`, ts)
			publisher := &mockPublisher{}

			require.NoError(t, New("arn:test:topic", publisher).Handle(context.Background(), json.RawMessage(event)))

			calls := publisher.Calls()
			require.Len(t, calls, 1)
			test.AssertJsonsEqual(t, []byte(event), []byte(calls[0].message))
		})
	}
}

func TestHandleLogsOriginalTimestamp(t *testing.T) {
	buf := captureLogs(t)
	require.NoError(t, logging.SetLogLevel("info"))
	t.Cleanup(func() { log.SetFormatter(&log.TextFormatter{}) })

	event := `{"detail":{"instance-id":"i-0abc123","state":"running"},"time":"2024-01-01T00:00:00.250+0000"}`
	require.NoError(t, New("arn:test:topic", &mockPublisher{}).Handle(context.Background(), json.RawMessage(event)))

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.SplitN(buf.String(), "\n", 2)[0]), &record))
	assert.Equal(t, "Received EC2 state change event", record["msg"])
	assert.Equal(t, "2024-01-01T00:00:00.250+0000", record["time"])
	assert.Equal(t, "i-0abc123", record["instance_id"])
}

func TestHandleTwiceProducesTwoNotifications(t *testing.T) {
	captureLogs(t)
	publisher := &mockPublisher{}
	fwd := New("arn:test:topic", publisher)

	require.NoError(t, fwd.Handle(context.Background(), json.RawMessage(scenarioEvent)))
	require.NoError(t, fwd.Handle(context.Background(), json.RawMessage(scenarioEvent)))

	assert.Len(t, publisher.Calls(), 2)
}

func TestHandleConcurrentInvocations(t *testing.T) {
	captureLogs(t)
	publisher := &mockPublisher{}
	fwd := New("arn:test:topic", publisher)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 16; i++ {
		event := fmt.Sprintf(`{"detail":{"instance-id":"i-%d","state":"running"}}`, i)
		g.Go(func() error {
			return fwd.Handle(ctx, json.RawMessage(event))
		})
	}
	require.NoError(t, g.Wait())

	seen := map[string]bool{}
	for _, call := range publisher.Calls() {
		seen[call.message] = true
	}
	assert.Len(t, seen, 16)
}
