// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"net/http"

	"github.com/stretchr/testify/mock"
)

type mockContext struct {
	mock.Mock
}

func (m *mockContext) ServeHTTP(response http.ResponseWriter, request *http.Request) {
	m.Called(response, request)
}

func (m *mockContext) ContextPath() string {
	return m.Called().String(0)
}

func (m *mockContext) Matches(requestPath string) bool {
	return m.Called(requestPath).Bool(0)
}

func (m *mockContext) Start() error {
	return m.Called().Error(0)
}

func (m *mockContext) Stop() error {
	return m.Called().Error(0)
}
