// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package protocol

// Status is the outcome of a test method.
type Status string

const (
	Passed  Status = "PASSED"
	Failed  Status = "FAILED"
	Skipped Status = "SKIPPED"
)

// TestResult is the runner's JSON response.
type TestResult struct {
	Status         Status `json:"status"`
	Error          string `json:"error,omitempty"`
	DurationMillis int64  `json:"durationMillis"`
}
