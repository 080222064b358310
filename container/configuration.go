// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/xmidt-org/testcontainer/logging"
)

const (
	// ConfigurationKey is the Viper subkey under which the container's Configuration is stored.
	ConfigurationKey = "container"

	DefaultBindHost        = "localhost"
	DefaultBindHTTPPort    = 9090
	DefaultShutdownTimeout = 10 * time.Second
)

// Configuration holds the server settings applied by Setup.
type Configuration struct {
	// BindHost is the host or IP address the server listens on.  Required.
	BindHost string `json:"bindHost" mapstructure:"bindHost"`

	// BindHTTPPort is the TCP port the server listens on.  Must be in 1..65535.
	BindHTTPPort int `json:"bindHttpPort" mapstructure:"bindHttpPort"`

	// ExtendedConfiguration selects webapp.ExtendedConfigurations for deployments, which adds
	// environment bindings and archive initializers.  In-application test invocation requires it.
	ExtendedConfiguration bool `json:"extendedConfiguration" mapstructure:"extendedConfiguration"`

	// MaxConnections limits concurrent connections.  Nonpositive values mean no limit.
	MaxConnections int `json:"maxConnections" mapstructure:"maxConnections"`

	ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" mapstructure:"readHeaderTimeout"`

	// ShutdownTimeout bounds the graceful shutdown performed by Stop.  Defaults to DefaultShutdownTimeout.
	ShutdownTimeout time.Duration `json:"shutdownTimeout" mapstructure:"shutdownTimeout"`

	Log *logging.Options `json:"log" mapstructure:"log"`
}

// Validate checks the required fields.  The returned error, if any, is a *ConfigError.
func (c Configuration) Validate() error {
	if len(c.BindHost) == 0 {
		return &ConfigError{Field: "bindHost", Err: errors.New("a bind host is required")}
	}

	if c.BindHTTPPort < 1 || c.BindHTTPPort > 65535 {
		return &ConfigError{Field: "bindHttpPort", Err: fmt.Errorf("%d is not a valid TCP port", c.BindHTTPPort)}
	}

	if c.ShutdownTimeout < 0 {
		return &ConfigError{Field: "shutdownTimeout", Err: fmt.Errorf("%s is negative", c.ShutdownTimeout)}
	}

	return nil
}

func (c Configuration) shutdownTimeout() time.Duration {
	if c.ShutdownTimeout > 0 {
		return c.ShutdownTimeout
	}

	return DefaultShutdownTimeout
}

// FromViper produces a Configuration from the ConfigurationKey subtree of a (possibly nil) Viper
// instance.  Fields missing from the subtree take their Default values.
func FromViper(v *viper.Viper) (Configuration, error) {
	c := Configuration{
		BindHost:        DefaultBindHost,
		BindHTTPPort:    DefaultBindHTTPPort,
		ShutdownTimeout: DefaultShutdownTimeout,
	}

	if v != nil {
		if sub := v.Sub(ConfigurationKey); sub != nil {
			if err := sub.Unmarshal(&c); err != nil {
				return Configuration{}, err
			}
		}
	}

	return c, nil
}
