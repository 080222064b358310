// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package webapp

import (
	"fmt"
	"net/http"
	"os"

	"github.com/go-kit/log/level"
	"github.com/xmidt-org/testcontainer/archive"
	"github.com/xmidt-org/testcontainer/logging"
	"github.com/xmidt-org/testcontainer/xhttp"
)

const (
	WebInfConfigurationName       = "webinf"
	EnvConfigurationName          = "env"
	InitializersConfigurationName = "initializers"
	DescriptorConfigurationName   = "descriptor"
)

// Configuration is one named stage of the pipeline applied to a Context when it starts.
type Configuration interface {
	Name() string
	Configure(*Context) error
}

type configurationFunc struct {
	name string
	fn   func(*Context) error
}

func (cf configurationFunc) Name() string {
	return cf.name
}

func (cf configurationFunc) Configure(c *Context) error {
	return cf.fn(c)
}

// NewConfiguration adapts a closure into a named Configuration.
func NewConfiguration(name string, fn func(*Context) error) Configuration {
	return configurationFunc{name: name, fn: fn}
}

// WebInf materializes and extracts the archive, serves its assets as static content, and mounts
// every registration that is not deferred.
func WebInf() Configuration {
	return NewConfiguration(WebInfConfigurationName, configureWebInf)
}

func configureWebInf(c *Context) error {
	zipPath, err := c.archive.Materialize(c.workDirectory)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "webapp-")
	if err != nil {
		return err
	}

	c.resourceBase = dir
	c.extracted = true
	if err := archive.Extract(zipPath, dir); err != nil {
		return err
	}

	for _, r := range c.archive.Handlers() {
		if !r.Deferred {
			c.Handle(r.Pattern, r.Handler)
		}
	}

	return nil
}

// Env binds the archive's environment, overlaid with Options.Bindings, into every request context.
// Handlers read bindings with Binding.
func Env() Configuration {
	return NewConfiguration(EnvConfigurationName, configureEnv)
}

func configureEnv(c *Context) error {
	for k, v := range c.archive.Environment() {
		c.Bind(k, v)
	}

	for k, v := range c.extraBindings {
		c.Bind(k, v)
	}

	bindings := make(map[string]string, len(c.bindings))
	for k, v := range c.bindings {
		bindings[k] = v
	}

	c.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
			next.ServeHTTP(response, request.WithContext(WithBindings(request.Context(), bindings)))
		})
	})

	return nil
}

// Initializers runs the archive's initializers in order, offering each one every registration.
func Initializers() Configuration {
	return NewConfiguration(InitializersConfigurationName, configureInitializers)
}

func configureInitializers(c *Context) error {
	registrations := c.archive.Handlers()
	for i, initializer := range c.archive.Initializers() {
		if err := initializer(c, registrations); err != nil {
			return fmt.Errorf("initializer %d: %w", i, err)
		}
	}

	return nil
}

// Descriptor applies the archive's WEB-INF/web.json, if present: display name, welcome file and
// static response headers.
func Descriptor() Configuration {
	return NewConfiguration(DescriptorConfigurationName, configureDescriptor)
}

func configureDescriptor(c *Context) error {
	if len(c.resourceBase) == 0 {
		return nil
	}

	d, err := archive.ReadDescriptor(c.resourceBase)
	if err != nil || d == nil {
		return err
	}

	c.displayName = d.DisplayName
	c.welcomeFile = d.WelcomeFile
	if len(d.Headers) > 0 {
		c.Use(xhttp.StaticHeaders(d.Headers))
	}

	level.Debug(c.logger).Log(logging.MessageKey(), "applied descriptor", "displayName", d.DisplayName)
	return nil
}

// DefaultConfigurations is the pipeline used for plain deployments.
func DefaultConfigurations() []Configuration {
	return []Configuration{WebInf(), Descriptor()}
}

// ExtendedConfigurations is the fixed pipeline used when in-application invocation and
// environment bindings are required.
func ExtendedConfigurations() []Configuration {
	return []Configuration{WebInf(), Env(), Initializers(), Descriptor()}
}
