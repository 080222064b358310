// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package xhttp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticHeaders(t *testing.T) {
	testData := []struct {
		name     string
		extra    map[string]string
		expected http.Header
	}{
		{"Nil", nil, http.Header{}},
		{"Empty", map[string]string{}, http.Header{}},
		{"One", map[string]string{"x-deployed-by": "testcontainer"}, http.Header{"X-Deployed-By": {"testcontainer"}}},
		{"Several", map[string]string{"Cache-Control": "no-store", "x-test": "true"}, http.Header{"Cache-Control": {"no-store"}, "X-Test": {"true"}}},
	}

	for _, record := range testData {
		t.Run(record.name, func(t *testing.T) {
			var (
				assert   = assert.New(t)
				response = httptest.NewRecorder()
				next     = http.HandlerFunc(func(response http.ResponseWriter, _ *http.Request) {
					response.WriteHeader(http.StatusAccepted)
				})
			)

			StaticHeaders(record.extra)(next).ServeHTTP(response, httptest.NewRequest("GET", "/", nil))
			assert.Equal(http.StatusAccepted, response.Code)
			assert.Equal(record.expected, response.Header())
		})
	}
}
