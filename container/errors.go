// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured indicates that Setup has not been called with a valid Configuration.
	ErrNotConfigured = errors.New("container is not configured")

	// ErrAlreadyStarted indicates that Start was called on a running container.
	ErrAlreadyStarted = errors.New("container already started")

	// ErrNotStarted indicates that a deployment was attempted before Start.
	ErrNotStarted = errors.New("container is not started")

	// ErrSlotOccupied indicates that an application is already deployed.
	ErrSlotOccupied = errors.New("an application is already deployed")
)

// ConfigError describes an invalid Configuration field.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid container configuration %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LifecycleError is returned when the server could not be started or stopped.
// Op is the lifecycle operation, e.g. "start".
type LifecycleError struct {
	Op  string
	Err error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("could not %s container: %v", e.Op, e.Err)
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// DeploymentError is returned when an archive could not be deployed.
type DeploymentError struct {
	Archive string
	Err     error
}

func (e *DeploymentError) Error() string {
	return fmt.Sprintf("could not deploy %s: %v", e.Archive, e.Err)
}

func (e *DeploymentError) Unwrap() error {
	return e.Err
}
