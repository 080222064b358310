// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/segmentio/ksuid"
	"github.com/xmidt-org/testcontainer/archive"
	"github.com/xmidt-org/testcontainer/logging"
	"github.com/xmidt-org/testcontainer/protocol"
	"github.com/xmidt-org/testcontainer/webapp"
	"github.com/xmidt-org/testcontainer/xhttp"
	"github.com/xmidt-org/testcontainer/xlistener"
)

// ContextPath is where every deployed application is mounted.
const ContextPath = "/test"

// State describes where a Container is in its lifecycle.
type State int

const (
	Idle State = iota

	// Configured means Setup succeeded and no server is running.  A stopped container reports
	// Configured rather than Idle because it keeps its configuration and can be started again.
	Configured
	Running
	Deployed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Configured:
		return "configured"
	case Running:
		return "running"
	case Deployed:
		return "deployed"
	default:
		return "unknown"
	}
}

// Options are the collaborators of a Container.  The zero value is usable.
type Options struct {
	// Logger is the go-kit logger for the container and its deployments.  If unset, logging.DefaultLogger() is used.
	Logger log.Logger

	// Measures receives container metrics.  If unset, DiscardMeasures() is used.
	Measures *Measures

	// WorkDirectory is where archives are materialized.  If unset, webapp.DefaultWorkDirectory() is used.
	WorkDirectory string

	// Bindings are extra environment bindings exposed to applications by the extended configuration.
	Bindings map[string]string
}

type deployment struct {
	id      string
	archive string
	context applicationContext
}

// Container controls an embedded HTTP server with a single deployment slot.
//
// A Container is meant to be driven by one caller, but its methods are safe for concurrent use.
type Container struct {
	logger        log.Logger
	measures      *Measures
	workDirectory string
	bindings      map[string]string
	newContext    contextFactory

	lock          sync.Mutex
	configuration *Configuration
	handlers      *handlerCollection
	server        *http.Server
	listener      net.Listener
	done          chan struct{}
	slot          *deployment
}

// New creates an Idle Container.
func New(o Options) *Container {
	if o.Logger == nil {
		o.Logger = logging.DefaultLogger()
	}

	if o.Measures == nil {
		o.Measures = DiscardMeasures()
	}

	if len(o.WorkDirectory) == 0 {
		o.WorkDirectory = webapp.DefaultWorkDirectory()
	}

	return &Container{
		logger:        o.Logger,
		measures:      o.Measures,
		workDirectory: o.WorkDirectory,
		bindings:      o.Bindings,
		newContext:    newWebappContext,
	}
}

// Setup validates and stores the configuration used by subsequent starts.  A running container
// cannot be reconfigured.
func (c *Container) Setup(configuration Configuration) error {
	if err := configuration.Validate(); err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if c.server != nil {
		return &LifecycleError{Op: "setup", Err: ErrAlreadyStarted}
	}

	c.configuration = &configuration
	level.Info(c.logger).Log(
		logging.MessageKey(), "container configured",
		"bindHost", configuration.BindHost,
		"bindHttpPort", configuration.BindHTTPPort,
		"extendedConfiguration", configuration.ExtendedConfiguration,
	)

	return nil
}

func (c *Container) address() string {
	return net.JoinHostPort(c.configuration.BindHost, strconv.Itoa(c.configuration.BindHTTPPort))
}

// Start binds the configured address and serves requests in the background.  Binding happens
// before Start returns, so an address already in use is reported here as a *LifecycleError.
func (c *Container) Start() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	switch {
	case c.configuration == nil:
		return &LifecycleError{Op: "start", Err: ErrNotConfigured}
	case c.server != nil:
		return &LifecycleError{Op: "start", Err: ErrAlreadyStarted}
	}

	var (
		address = c.address()
		logger  = log.With(c.logger, xhttp.ServerKey(), address)
	)

	listener, err := xlistener.New(xlistener.Options{
		Logger:         logger,
		MaxConnections: c.configuration.MaxConnections,
		Rejected:       c.measures.RejectedConnections,
		Active:         c.measures.ActiveConnections,
		Address:        address,
	})

	if err != nil {
		level.Error(logger).Log(logging.MessageKey(), "could not bind", logging.ErrorKey(), err)
		return &LifecycleError{Op: "start", Err: err}
	}

	handlers := new(handlerCollection)
	server := xhttp.NewServer(xhttp.ServerOptions{
		Logger:            logger,
		Address:           address,
		Handler:           handlers,
		ReadHeaderTimeout: c.configuration.ReadHeaderTimeout,
	})

	starter := xhttp.NewStarter(xhttp.StartOptions{Logger: logger, Listener: listener}, server)
	done := make(chan struct{})
	go func() {
		defer close(done)
		starter()
	}()

	c.handlers = handlers
	c.server = server
	c.listener = listener
	c.done = done

	level.Info(logger).Log(logging.MessageKey(), "container started", "address", listener.Addr())
	return nil
}

// baseURL is the root URL of the server as configured, e.g. http://localhost:9090/.
func (c *Container) baseURL() *url.URL {
	return &url.URL{
		Scheme: "http",
		Host:   c.address(),
		Path:   "/",
	}
}

func (c *Container) configurations() []webapp.Configuration {
	if c.configuration.ExtendedConfiguration {
		return webapp.ExtendedConfigurations()
	}

	return webapp.DefaultConfigurations()
}

// Deploy mounts an archive at ContextPath and starts it.  The returned executor invokes test
// methods in the deployed application.  All errors are *DeploymentError values.
func (c *Container) Deploy(a archive.Archive) (e *protocol.MethodExecutor, err error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	defer func() {
		c.measures.deployed(err)
	}()

	if a == nil {
		return nil, &DeploymentError{Err: errors.New("no archive supplied")}
	}

	name := a.Name()
	switch {
	case c.server == nil:
		return nil, &DeploymentError{Archive: name, Err: ErrNotStarted}
	case c.slot != nil:
		return nil, &DeploymentError{Archive: name, Err: ErrSlotOccupied}
	}

	id := ksuid.New().String()
	logger := log.With(c.logger, "deployment", id)
	ctx := c.newContext(ContextPath, a, webapp.Options{
		Logger:         logger,
		WorkDirectory:  c.workDirectory,
		Configurations: c.configurations(),
		Bindings:       c.bindings,
	})

	c.handlers.Add(ctx)
	if err := ctx.Start(); err != nil {
		c.handlers.Remove(ctx)
		level.Error(logger).Log(logging.MessageKey(), "deployment failed", "archive", name, logging.ErrorKey(), err)
		return nil, &DeploymentError{Archive: name, Err: err}
	}

	c.slot = &deployment{
		id:      id,
		archive: name,
		context: ctx,
	}

	level.Info(logger).Log(logging.MessageKey(), "deployed", "archive", name, "contextPath", ctx.ContextPath())
	return protocol.NewMethodExecutor(c.baseURL(), ContextPath), nil
}

// Undeploy releases the current deployment, if any.  The archive is used only for logging:
// whatever occupies the slot is released.  Errors stopping the application are logged, not returned.
func (c *Container) Undeploy(a archive.Archive) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.slot == nil {
		level.Debug(c.logger).Log(logging.MessageKey(), "nothing to undeploy")
		return nil
	}

	if a != nil && a.Name() != c.slot.archive {
		level.Warn(c.logger).Log(
			logging.MessageKey(), "undeploying a different archive than requested",
			"requested", a.Name(),
			"archive", c.slot.archive,
		)
	}

	c.release()
	return nil
}

// release empties the slot.  The caller must hold the lock and the slot must be occupied.
func (c *Container) release() {
	d := c.slot
	logger := log.With(c.logger, "deployment", d.id, "archive", d.archive, "contextPath", d.context.ContextPath())
	if err := d.context.Stop(); err != nil {
		level.Error(logger).Log(logging.MessageKey(), "could not stop application", logging.ErrorKey(), err)
	}

	if c.handlers.Len() <= 1 {
		c.handlers.Clear()
	} else {
		c.handlers.Remove(d.context)
	}

	c.slot = nil
	level.Info(logger).Log(logging.MessageKey(), "undeployed")
}

// Stop shuts the server down gracefully, waiting at most the configured ShutdownTimeout before
// closing any remaining connections.  An application still deployed is released first.
// Stopping a container that is not running does nothing.
func (c *Container) Stop() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.server == nil {
		return nil
	}

	if c.slot != nil {
		level.Warn(c.logger).Log(logging.MessageKey(), "stopping with an active deployment", "archive", c.slot.archive)
		c.release()
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.configuration.shutdownTimeout())
	defer cancel()

	err := c.server.Shutdown(ctx)
	if err != nil {
		c.server.Close()
	}

	<-c.done
	c.listener.Close()

	c.handlers = nil
	c.server = nil
	c.listener = nil
	c.done = nil

	if err != nil {
		level.Error(c.logger).Log(logging.MessageKey(), "graceful shutdown failed", logging.ErrorKey(), err)
		return &LifecycleError{Op: "stop", Err: err}
	}

	level.Info(c.logger).Log(logging.MessageKey(), "container stopped")
	return nil
}

// State reports the lifecycle state derived from the container's fields.  Stop returns a container
// to Configured.
func (c *Container) State() State {
	c.lock.Lock()
	defer c.lock.Unlock()

	switch {
	case c.slot != nil:
		return Deployed
	case c.server != nil:
		return Running
	case c.configuration != nil:
		return Configured
	default:
		return Idle
	}
}

// Addr is the address the server is listening on, or nil when the container is not running.
func (c *Container) Addr() net.Addr {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.listener == nil {
		return nil
	}

	return c.listener.Addr()
}
