// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package xhttp

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error is an HTTP-specific carrier of error information.  In addition to implementing error,
// this type also implements go-kit's StatusCoder and Headerer.  The json.Marshaler interface
// is implemented so that the default go-kit error encoder will always emit a JSON message.
type Error struct {
	Code   int
	Header http.Header
	Text   string
}

// ErrorBody is the JSON representation of an Error.  Clients decode error responses into it.
type ErrorBody struct {
	Code int    `json:"code"`
	Text string `json:"text"`
}

func (e *Error) StatusCode() int {
	return e.Code
}

func (e *Error) Headers() http.Header {
	return e.Header
}

func (e *Error) Error() string {
	return e.Text
}

func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(ErrorBody{Code: e.Code, Text: e.Text})
}

// WriteErrorf writes a JSON error of the form {"code": %d, "text": "%s"} with the given status code.
// fmt.Sprintf is used to turn the format and parameters into the text.
func WriteErrorf(response http.ResponseWriter, code int, format string, parameters ...interface{}) (int, error) {
	return WriteError(response, code, fmt.Sprintf(format, parameters...))
}

// WriteError writes a JSON error message as a response.  The value parameter is subjected to the
// default stringizing rules of the fmt package.
func WriteError(response http.ResponseWriter, code int, value interface{}) (int, error) {
	body, err := json.Marshal(ErrorBody{Code: code, Text: fmt.Sprint(value)})
	if err != nil {
		return 0, err
	}

	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(code)
	return response.Write(body)
}
