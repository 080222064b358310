// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-kit/kit/endpoint"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/schema"
	"github.com/xmidt-org/testcontainer/xhttp"
)

// MethodExecutor invokes test methods inside a deployed application.
type MethodExecutor struct {
	baseURL     *url.URL
	contextPath string
	runnerURL   *url.URL
	invoke      endpoint.Endpoint
}

// NewMethodExecutor targets the runner of the application deployed at contextPath on the server
// at baseURL.  Client options, e.g. kithttp.SetClient, are passed to the go-kit client.
func NewMethodExecutor(baseURL *url.URL, contextPath string, options ...kithttp.ClientOption) *MethodExecutor {
	contextPath = "/" + strings.Trim(contextPath, "/")
	runnerURL := baseURL.ResolveReference(&url.URL{Path: strings.TrimRight(contextPath, "/") + RunnerPath})
	base := *baseURL

	return &MethodExecutor{
		baseURL:     &base,
		contextPath: contextPath,
		runnerURL:   runnerURL,
		invoke: kithttp.NewClient(
			http.MethodGet,
			runnerURL,
			newInvokeRequestEncoder(schema.NewEncoder()),
			decodeInvokeResponse,
			options...,
		).Endpoint(),
	}
}

// BaseURL returns a copy of the server's base URL, e.g. http://localhost:8080/.
func (e *MethodExecutor) BaseURL() *url.URL {
	u := *e.baseURL
	return &u
}

func (e *MethodExecutor) ContextPath() string {
	return e.contextPath
}

// RunnerURL returns a copy of the URL invocations are sent to.
func (e *MethodExecutor) RunnerURL() *url.URL {
	u := *e.runnerURL
	return &u
}

// Invoke runs a test method remotely.  A failing test is not an error: it is reported through
// the returned TestResult.  Errors describe transport failures and runner rejections, the
// latter as *xhttp.Error carrying the runner's status code.
func (e *MethodExecutor) Invoke(ctx context.Context, m TestMethod) (TestResult, error) {
	response, err := e.invoke(ctx, m)
	if err != nil {
		return TestResult{}, err
	}

	return response.(TestResult), nil
}

// newInvokeRequestEncoder produces the go-kit request encoder that writes a TestMethod into
// the runner request's query string.
func newInvokeRequestEncoder(encoder *schema.Encoder) kithttp.EncodeRequestFunc {
	return func(_ context.Context, request *http.Request, value interface{}) error {
		m, ok := value.(TestMethod)
		if !ok {
			return errors.New("invocation requests must be TestMethod values")
		}

		query := request.URL.Query()
		if err := encoder.Encode(m, query); err != nil {
			return err
		}

		request.URL.RawQuery = query.Encode()
		return nil
	}
}

func decodeInvokeResponse(_ context.Context, response *http.Response) (interface{}, error) {
	if response.StatusCode != http.StatusOK {
		var body xhttp.ErrorBody
		if err := json.NewDecoder(response.Body).Decode(&body); err != nil || len(body.Text) == 0 {
			body.Text = http.StatusText(response.StatusCode)
		}

		return nil, &xhttp.Error{
			Code:   response.StatusCode,
			Header: response.Header,
			Text:   body.Text,
		}
	}

	var result TestResult
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return nil, err
	}

	return result, nil
}
