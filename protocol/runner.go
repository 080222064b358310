// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/transport"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/schema"
	"github.com/xmidt-org/testcontainer/archive"
	"github.com/xmidt-org/testcontainer/logging"
	"github.com/xmidt-org/testcontainer/xhttp"
)

const (
	// RunnerPath is where the runner is mounted, relative to the application's context path.
	RunnerPath = "/TestRunner"

	ClassNameParameter  = "className"
	MethodNameParameter = "methodName"
)

// Runner is the http.Handler that executes registered test methods.
type Runner struct {
	http.Handler
}

// NewRunner creates the runner handler for a registry.  Unknown tests are answered with 404 and
// malformed requests with 400; test failures are reported in the TestResult with a 200.
func NewRunner(registry *Registry, logger log.Logger) *Runner {
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	return &Runner{
		Handler: kithttp.NewServer(
			logInvocations(logger)(NewRunnerEndpoint(registry)),
			newRunnerRequestDecoder(schema.NewDecoder()),
			kithttp.EncodeJSONResponse,
			kithttp.ServerErrorHandler(transport.NewLogErrorHandler(level.Warn(logger))),
		),
	}
}

// NewRunnerEndpoint produces the go-kit endpoint that looks up and runs a TestMethod.
func NewRunnerEndpoint(registry *Registry) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		m := request.(TestMethod)
		fn, ok := registry.Lookup(m)
		if !ok {
			return nil, &xhttp.Error{
				Code: http.StatusNotFound,
				Text: fmt.Sprintf("no test method %s.%s", m.ClassName, m.MethodName),
			}
		}

		return run(ctx, fn), nil
	}
}

func run(ctx context.Context, fn TestFunc) (result TestResult) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			result = TestResult{Status: Failed, Error: fmt.Sprintf("panic: %v", p)}
		}

		result.DurationMillis = time.Since(start).Milliseconds()
	}()

	err := fn(ctx)
	switch {
	case err == nil:
		result.Status = Passed
	case errors.Is(err, ErrSkipped):
		result.Status = Skipped
		result.Error = err.Error()
	default:
		result.Status = Failed
		result.Error = err.Error()
	}

	return
}

func logInvocations(logger log.Logger) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (interface{}, error) {
			response, err := next(ctx, request)
			m := request.(TestMethod)
			if result, ok := response.(TestResult); ok {
				level.Info(logger).Log(
					logging.MessageKey(), "test method executed",
					"className", m.ClassName,
					"methodName", m.MethodName,
					"status", result.Status,
					"durationMillis", result.DurationMillis,
				)
			}

			return response, err
		}
	}
}

// newRunnerRequestDecoder produces the go-kit request decoder that reads a TestMethod from the
// query string.  Missing or unknown parameters are rejected with a 400.
func newRunnerRequestDecoder(decoder *schema.Decoder) kithttp.DecodeRequestFunc {
	return func(_ context.Context, request *http.Request) (interface{}, error) {
		var m TestMethod
		if err := decoder.Decode(&m, request.URL.Query()); err != nil {
			return nil, &xhttp.Error{
				Code: http.StatusBadRequest,
				Text: fmt.Sprintf("invalid runner request: %s", err),
			}
		}

		if len(m.ClassName) == 0 || len(m.MethodName) == 0 {
			return nil, &xhttp.Error{
				Code: http.StatusBadRequest,
				Text: fmt.Sprintf("both %s and %s are required", ClassNameParameter, MethodNameParameter),
			}
		}

		return m, nil
	}
}

// Registration bundles a runner as a deferred archive registration at RunnerPath.
func Registration(registry *Registry, logger log.Logger) archive.Registration {
	return archive.Registration{
		Pattern:  RunnerPath,
		Handler:  NewRunner(registry, logger),
		Deferred: true,
	}
}

// Initializer mounts every deferred registration whose handler is a *Runner.
func Initializer(m archive.Mounter, registrations []archive.Registration) error {
	for _, r := range registrations {
		if _, ok := r.Handler.(*Runner); ok && r.Deferred {
			m.Handle(r.Pattern, r.Handler)
		}
	}

	return nil
}

// Attach adds the runner registration and its initializer to an archive.
func Attach(wa *archive.WebArchive, registry *Registry, logger log.Logger) *archive.WebArchive {
	return wa.AddRegistration(Registration(registry, logger)).AddInitializer(Initializer)
}
