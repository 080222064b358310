// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/testcontainer/archive"
	"github.com/xmidt-org/testcontainer/logging"
	"github.com/xmidt-org/testcontainer/protocol"
	"github.com/xmidt-org/testcontainer/webapp"
	"github.com/xmidt-org/testcontainer/xhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testHost = "127.0.0.1"

// freePort finds a loopback port that is not in use at the time of the call.
func freePort(t *testing.T) int {
	l, err := net.Listen("tcp", net.JoinHostPort(testHost, "0"))
	require.NoError(t, err)

	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func newTestContainer(t *testing.T) *Container {
	return New(Options{
		Logger:        logging.NewTestLogger(&logging.Options{Level: "INFO"}, t),
		WorkDirectory: t.TempDir(),
	})
}

func newTestConfiguration(t *testing.T, extended bool) Configuration {
	return Configuration{
		BindHost:              testHost,
		BindHTTPPort:          freePort(t),
		ExtendedConfiguration: extended,
		ShutdownTimeout:       5 * time.Second,
	}
}

func newTestArchive() *archive.WebArchive {
	registry := protocol.NewRegistry()
	registry.Register("GreeterTest", "shouldGreet", func(ctx context.Context) error {
		if greeting, _ := webapp.Binding(ctx, "greeting"); greeting != "hello" {
			return fmt.Errorf("unexpected greeting %q", greeting)
		}

		return nil
	})

	registry.Register("GreeterTest", "shouldFail", func(context.Context) error {
		return errors.New("expected failure")
	})

	wa := archive.New("test.war").
		AddAsset("greeting.txt", []byte("hello, world")).
		SetEnv("greeting", "hello")

	return protocol.Attach(wa, registry, nil)
}

var testClient = &http.Client{
	Transport: &http.Transport{DisableKeepAlives: true},
	Timeout:   10 * time.Second,
}

func get(t *testing.T, c *Container, path string) (int, string) {
	response, err := testClient.Get("http://" + c.Addr().String() + path)
	require.NoError(t, err)
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	return response.StatusCode, string(body)
}

func TestNew(t *testing.T) {
	var (
		assert = assert.New(t)
		c      = New(Options{})
	)

	assert.NotNil(c.logger)
	assert.NotNil(c.measures)
	assert.Equal(webapp.DefaultWorkDirectory(), c.workDirectory)
	assert.Equal(Idle, c.State())
	assert.Nil(c.Addr())
	assert.NoError(c.Stop())
	assert.NoError(c.Undeploy(nil))
	assert.Equal(Idle, c.State())
}

func TestState(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("idle", Idle.String())
	assert.Equal("configured", Configured.String())
	assert.Equal("running", Running.String())
	assert.Equal("deployed", Deployed.String())
	assert.Equal("unknown", State(-1).String())
}

func TestSetup(t *testing.T) {
	var (
		assert = assert.New(t)
		c      = newTestContainer(t)
	)

	err := c.Setup(Configuration{BindHTTPPort: 9090})
	var configError *ConfigError
	assert.True(errors.As(err, &configError))
	assert.Equal(Idle, c.State())

	assert.NoError(c.Setup(Configuration{BindHost: "localhost", BindHTTPPort: 9090}))
	assert.Equal(Configured, c.State())
}

func TestSetupWhileRunning(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		c       = newTestContainer(t)
	)

	require.NoError(c.Setup(newTestConfiguration(t, false)))
	require.NoError(c.Start())
	defer c.Stop()

	err := c.Setup(newTestConfiguration(t, true))
	var lifecycleError *LifecycleError
	if assert.True(errors.As(err, &lifecycleError)) {
		assert.Equal("setup", lifecycleError.Op)
		assert.ErrorIs(err, ErrAlreadyStarted)
	}
}

func TestStartNotConfigured(t *testing.T) {
	var (
		assert = assert.New(t)
		c      = newTestContainer(t)
	)

	err := c.Start()
	var lifecycleError *LifecycleError
	if assert.True(errors.As(err, &lifecycleError)) {
		assert.Equal("start", lifecycleError.Op)
		assert.ErrorIs(err, ErrNotConfigured)
	}

	assert.Equal(Idle, c.State())
}

func TestStartStop(t *testing.T) {
	var (
		assert        = assert.New(t)
		require       = require.New(t)
		c             = newTestContainer(t)
		configuration = newTestConfiguration(t, false)
		address       = net.JoinHostPort(testHost, strconv.Itoa(configuration.BindHTTPPort))
	)

	require.NoError(c.Setup(configuration))
	require.NoError(c.Start())
	assert.Equal(Running, c.State())
	require.NotNil(c.Addr())
	assert.Equal(address, c.Addr().String())

	err := c.Start()
	assert.ErrorIs(err, ErrAlreadyStarted)
	assert.Equal(Running, c.State())

	// nothing deployed yet
	code, _ := get(t, c, ContextPath+"/greeting.txt")
	assert.Equal(http.StatusNotFound, code)

	require.NoError(c.Stop())
	assert.Equal(Configured, c.State())
	assert.Nil(c.Addr())
	assert.NoError(c.Stop())

	// the port has been released
	l, err := net.Listen("tcp", address)
	require.NoError(err)
	l.Close()

	// the configuration is retained for a restart
	require.NoError(c.Start())
	assert.Equal(Running, c.State())
	assert.NoError(c.Stop())
}

func TestStartPortInUse(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		c       = newTestContainer(t)
	)

	occupied, err := net.Listen("tcp", net.JoinHostPort(testHost, "0"))
	require.NoError(err)
	defer occupied.Close()

	require.NoError(c.Setup(Configuration{
		BindHost:     testHost,
		BindHTTPPort: occupied.Addr().(*net.TCPAddr).Port,
	}))

	err = c.Start()
	var lifecycleError *LifecycleError
	if assert.True(errors.As(err, &lifecycleError)) {
		assert.Equal("start", lifecycleError.Op)
		assert.Error(lifecycleError.Err)
	}

	assert.Equal(Configured, c.State())
	assert.Nil(c.Addr())
	assert.Nil(c.server)
	assert.NoError(c.Stop())
}

func TestDeployNotStarted(t *testing.T) {
	var (
		assert = assert.New(t)
		c      = newTestContainer(t)
	)

	executor, err := c.Deploy(newTestArchive())
	assert.Nil(executor)

	var deploymentError *DeploymentError
	if assert.True(errors.As(err, &deploymentError)) {
		assert.Equal("test.war", deploymentError.Archive)
		assert.ErrorIs(err, ErrNotStarted)
	}

	_, err = c.Deploy(nil)
	assert.True(errors.As(err, &deploymentError))
}

func TestLifecycle(t *testing.T) {
	var (
		assert        = assert.New(t)
		require       = require.New(t)
		registry      = prometheus.NewPedanticRegistry()
		measures, err = NewMeasures(registry)

		configuration = newTestConfiguration(t, true)
		testArchive   = newTestArchive()
	)

	require.NoError(err)
	c := New(Options{
		Logger:        logging.NewTestLogger(&logging.Options{Level: "INFO"}, t),
		Measures:      measures,
		WorkDirectory: t.TempDir(),
	})

	require.NoError(c.Setup(configuration))
	require.NoError(c.Start())
	defer c.Stop()

	executor, err := c.Deploy(testArchive)
	require.NoError(err)
	require.NotNil(executor)
	assert.Equal(Deployed, c.State())
	assert.Equal("http", executor.BaseURL().Scheme)
	assert.Equal(configuration.BindHost, executor.BaseURL().Hostname())
	assert.Equal(strconv.Itoa(configuration.BindHTTPPort), executor.BaseURL().Port())
	assert.Equal("http://127.0.0.1:"+strconv.Itoa(configuration.BindHTTPPort)+"/", executor.BaseURL().String())
	assert.Equal(ContextPath, executor.ContextPath())

	code, body := get(t, c, ContextPath+"/greeting.txt")
	assert.Equal(http.StatusOK, code)
	assert.Equal("hello, world", body)

	result, err := executor.Invoke(context.Background(), protocol.TestMethod{ClassName: "GreeterTest", MethodName: "shouldGreet"})
	require.NoError(err)
	assert.Equal(protocol.Passed, result.Status)

	result, err = executor.Invoke(context.Background(), protocol.TestMethod{ClassName: "GreeterTest", MethodName: "shouldFail"})
	require.NoError(err)
	assert.Equal(protocol.Failed, result.Status)
	assert.Equal("expected failure", result.Error)

	_, err = c.Deploy(testArchive)
	assert.ErrorIs(err, ErrSlotOccupied)
	assert.Equal(Deployed, c.State())

	require.NoError(c.Undeploy(testArchive))
	assert.Equal(Running, c.State())
	code, _ = get(t, c, ContextPath+"/greeting.txt")
	assert.Equal(http.StatusNotFound, code)

	// undeploying an empty slot does nothing
	assert.NoError(c.Undeploy(testArchive))
	assert.Equal(Running, c.State())

	// the same archive may be redeployed
	executor, err = c.Deploy(testArchive)
	require.NoError(err)
	result, err = executor.Invoke(context.Background(), protocol.TestMethod{ClassName: "GreeterTest", MethodName: "shouldGreet"})
	require.NoError(err)
	assert.Equal(protocol.Passed, result.Status)

	// stopping releases the deployment
	require.NoError(c.Stop())
	assert.Equal(Configured, c.State())

	assert.Equal(2.0, deploymentCount(t, registry, SuccessOutcome))
	assert.Equal(1.0, deploymentCount(t, registry, FailureOutcome))
}

func TestDefaultConfigurationOmitsRunner(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		c       = newTestContainer(t)
	)

	require.NoError(c.Setup(newTestConfiguration(t, false)))
	require.NoError(c.Start())
	defer c.Stop()

	executor, err := c.Deploy(newTestArchive())
	require.NoError(err)

	code, _ := get(t, c, ContextPath+"/greeting.txt")
	assert.Equal(http.StatusOK, code)

	_, err = executor.Invoke(context.Background(), protocol.TestMethod{ClassName: "GreeterTest", MethodName: "shouldGreet"})
	var httpError *xhttp.Error
	if assert.True(errors.As(err, &httpError)) {
		assert.Equal(http.StatusNotFound, httpError.Code)
	}

	assert.NoError(c.Undeploy(nil))
}

func newMockedContainer(t *testing.T, extended bool, m *mockContext) (*Container, *observer.ObservedLogs, *webapp.Options) {
	var (
		core, logs = observer.New(zapcore.DebugLevel)
		options    = new(webapp.Options)
		c          = New(Options{
			Logger:        logging.Zap(zap.New(core)),
			WorkDirectory: t.TempDir(),
		})
	)

	c.newContext = func(contextPath string, a archive.Archive, o webapp.Options) applicationContext {
		assert.Equal(t, ContextPath, contextPath)
		*options = o
		return m
	}

	m.On("ContextPath").Return(ContextPath).Maybe()

	require.NoError(t, c.Setup(newTestConfiguration(t, extended)))
	require.NoError(t, c.Start())
	return c, logs, options
}

func TestDeployStartError(t *testing.T) {
	var (
		assert       = assert.New(t)
		m            = new(mockContext)
		expectedErr  = errors.New("expected")
		c, logs, opt = newMockedContainer(t, true, m)
	)

	defer c.Stop()
	m.On("Start").Return(expectedErr).Once()

	executor, err := c.Deploy(archive.New("broken.war"))
	assert.Nil(executor)

	var deploymentError *DeploymentError
	if assert.True(errors.As(err, &deploymentError)) {
		assert.Equal("broken.war", deploymentError.Archive)
		assert.ErrorIs(err, expectedErr)
	}

	assert.Equal(Running, c.State())
	assert.Zero(c.handlers.Len())
	assert.Len(opt.Configurations, len(webapp.ExtendedConfigurations()))
	assert.Equal(1, logs.FilterMessage("deployment failed").Len())
	m.AssertExpectations(t)
}

func TestUndeployStopError(t *testing.T) {
	var (
		assert     = assert.New(t)
		require    = require.New(t)
		m          = new(mockContext)
		c, logs, _ = newMockedContainer(t, false, m)
	)

	defer c.Stop()
	m.On("Start").Return(nil).Once()
	m.On("Stop").Return(errors.New("expected")).Once()

	_, err := c.Deploy(archive.New("test.war"))
	require.NoError(err)
	assert.Equal(1, c.handlers.Len())

	assert.NoError(c.Undeploy(archive.New("other.war")))
	assert.Equal(Running, c.State())
	assert.Zero(c.handlers.Len())

	assert.Equal(1, logs.FilterMessage("undeploying a different archive than requested").Len())
	stopErrors := logs.FilterMessage("could not stop application").All()
	if assert.Len(stopErrors, 1) {
		assert.Equal(zapcore.ErrorLevel, stopErrors[0].Level)
	}

	m.AssertExpectations(t)
}

func TestUndeployRemovesByReference(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		m       = new(mockContext)
		other   = new(mockContext)
		c, _, _ = newMockedContainer(t, false, m)
	)

	defer c.Stop()
	m.On("Start").Return(nil).Once()
	m.On("Stop").Return(nil).Once()

	_, err := c.Deploy(archive.New("test.war"))
	require.NoError(err)

	c.handlers.Add(other)
	require.Equal(2, c.handlers.Len())

	assert.NoError(c.Undeploy(nil))
	assert.Equal(1, c.handlers.Len())
	assert.False(c.handlers.Remove(m))
	assert.True(c.handlers.Remove(other))
	m.AssertExpectations(t)
}

func TestStopWithDeployment(t *testing.T) {
	var (
		assert     = assert.New(t)
		require    = require.New(t)
		m          = new(mockContext)
		c, logs, _ = newMockedContainer(t, false, m)
	)

	m.On("Start").Return(nil).Once()
	m.On("Stop").Return(nil).Once()

	_, err := c.Deploy(archive.New("test.war"))
	require.NoError(err)

	require.NoError(c.Stop())
	assert.Equal(Configured, c.State())

	contextPath := zap.String("contextPath", ContextPath)
	assert.Equal(1, logs.FilterMessage("deployed").FilterField(contextPath).Len())
	assert.Equal(1, logs.FilterMessage("undeployed").FilterField(contextPath).Len())

	warnings := logs.FilterMessage("stopping with an active deployment").All()
	if assert.Len(warnings, 1) {
		assert.Equal(zapcore.WarnLevel, warnings[0].Level)
	}

	m.AssertExpectations(t)
}
