// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

/*

The notifier emits a single log stream: its own diagnostic records, written by
logrus to stderr and collected by the Lambda platform into CloudWatch Logs.

Logging is best-effort. A sink that fails to accept a record does not fail the
invocation that produced it; the record is dropped.

*/
package logging
