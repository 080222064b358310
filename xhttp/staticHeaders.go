// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package xhttp

import (
	"net/http"

	"github.com/justinas/alice"
)

// StaticHeaders returns a middleware that sets each of the given headers on every response
// before the decorated handler runs.  Keys are canonicalized once, so values decoded from
// sources such as JSON documents are accepted as is.  An empty map produces a middleware
// that does no decoration.
func StaticHeaders(extra map[string]string) alice.Constructor {
	if len(extra) == 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	headers := make(http.Header, len(extra))
	for k, v := range extra {
		headers.Set(k, v)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
			header := response.Header()
			for k, v := range headers {
				header[k] = v
			}

			next.ServeHTTP(response, request)
		})
	}
}
