// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lambda-sns/ec2-state-notifier/lambda/fatalerror"
)

const (
	// Source is the EventBridge namespace of EC2 events.
	Source = "aws.ec2"
	// DetailType labels EC2 instance state change events.
	DetailType = "EC2 Instance State-change Notification"
)

// Detail is the detail object of an EC2 instance state change event.
//
// Example:
//
//	{
//	    "version": "0",
//	    "id": "7bf73129-1428-4cd3-a780-95db273d1602",
//	    "detail-type": "EC2 Instance State-change Notification",
//	    "source": "aws.ec2",
//	    "account": "123456789012",
//	    "time": "2021-11-11T21:29:54Z",
//	    "region": "us-east-1",
//	    "resources": ["arn:aws:ec2:us-east-1:123456789012:instance/i-abcd1111"],
//	    "detail": {
//	        "instance-id": "i-abcd1111",
//	        "state": "pending"
//	    }
//	}
type Detail struct {
	InstanceID string `json:"instance-id"`
	// One of: "pending", "running", "stopping", "stopped", "shutting-down", "terminated".
	// Passed through as is.
	State string `json:"state"`
}

// envelope mirrors events.CloudWatchEvent, keeping time as the string received.
type envelope struct {
	Version    string          `json:"version"`
	ID         string          `json:"id"`
	DetailType string          `json:"detail-type"`
	Source     string          `json:"source"`
	AccountID  string          `json:"account"`
	Time       string          `json:"time"`
	Region     string          `json:"region"`
	Resources  []string        `json:"resources"`
	Detail     json.RawMessage `json:"detail"`
}

// LifecycleEvent is a validated EC2 instance state change event.
// It lives for a single invocation and is never mutated.
type LifecycleEvent struct {
	Source     string
	DetailType string
	InstanceID string
	State      string
	Region     string
	AccountID  string
	// Time is the event timestamp exactly as sent, usually ISO 8601.
	Time string

	// Raw is the event exactly as it was received.
	Raw json.RawMessage
}

// MalformedInputError is returned when an event cannot be parsed into a LifecycleEvent.
type MalformedInputError struct {
	Field  string
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed lifecycle event: %s", e.Reason)
	}
	return fmt.Sprintf("malformed lifecycle event: %s: %s", e.Field, e.Reason)
}

// ErrorType implements fatalerror.Typed.
func (e *MalformedInputError) ErrorType() fatalerror.ErrorType {
	return fatalerror.MalformedInput
}

func malformed(field, reason string) *MalformedInputError {
	return &MalformedInputError{Field: field, Reason: reason}
}

// Parse validates raw as an EC2 instance state change event.
// source and detail-type are checked only when present.
func Parse(raw json.RawMessage) (*LifecycleEvent, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, malformed("", "event is not a JSON object")
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, malformed("", err.Error())
	}

	// Absent source and detail-type are accepted: the routing rule already selects them.
	if env.Source != "" && env.Source != Source {
		return nil, malformed("source", fmt.Sprintf("expected %q, got %q", Source, env.Source))
	}
	if env.DetailType != "" && env.DetailType != DetailType {
		return nil, malformed("detail-type", fmt.Sprintf("expected %q, got %q", DetailType, env.DetailType))
	}

	detailBytes := bytes.TrimSpace(env.Detail)
	if len(detailBytes) == 0 || bytes.Equal(detailBytes, []byte("null")) {
		return nil, malformed("detail", "missing")
	}
	if detailBytes[0] != '{' {
		return nil, malformed("detail", "not an object")
	}

	var detail Detail
	if err := json.Unmarshal(detailBytes, &detail); err != nil {
		return nil, malformed("detail", err.Error())
	}
	if detail.InstanceID == "" {
		return nil, malformed("detail.instance-id", "missing")
	}
	if detail.State == "" {
		return nil, malformed("detail.state", "missing")
	}

	return &LifecycleEvent{
		Source:     env.Source,
		DetailType: env.DetailType,
		InstanceID: detail.InstanceID,
		State:      detail.State,
		Region:     env.Region,
		AccountID:  env.AccountID,
		Time:       env.Time,
		Raw:        raw,
	}, nil
}
