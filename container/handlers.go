// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"net/http"
	"sync"

	"github.com/xmidt-org/testcontainer/archive"
	"github.com/xmidt-org/testcontainer/webapp"
	"github.com/xmidt-org/testcontainer/xhttp"
)

// applicationContext is the behavior the container needs from a deployed application.
// *webapp.Context is the production implementation.
type applicationContext interface {
	http.Handler
	ContextPath() string
	Matches(string) bool
	Start() error
	Stop() error
}

// contextFactory creates the application context for a deployment.
type contextFactory func(contextPath string, a archive.Archive, o webapp.Options) applicationContext

func newWebappContext(contextPath string, a archive.Archive, o webapp.Options) applicationContext {
	return webapp.New(contextPath, a, o)
}

// handlerCollection is the server's root handler.  Requests are dispatched to the first
// context whose path matches.
type handlerCollection struct {
	lock     sync.RWMutex
	contexts []applicationContext
}

func (hc *handlerCollection) Add(c applicationContext) {
	hc.lock.Lock()
	hc.contexts = append(hc.contexts, c)
	hc.lock.Unlock()
}

// Remove drops c by reference, reporting whether it was present.
func (hc *handlerCollection) Remove(c applicationContext) bool {
	hc.lock.Lock()
	defer hc.lock.Unlock()

	for i, candidate := range hc.contexts {
		if candidate == c {
			hc.contexts = append(hc.contexts[:i], hc.contexts[i+1:]...)
			return true
		}
	}

	return false
}

func (hc *handlerCollection) Len() int {
	hc.lock.RLock()
	defer hc.lock.RUnlock()
	return len(hc.contexts)
}

func (hc *handlerCollection) Clear() {
	hc.lock.Lock()
	hc.contexts = nil
	hc.lock.Unlock()
}

func (hc *handlerCollection) ServeHTTP(response http.ResponseWriter, request *http.Request) {
	hc.lock.RLock()
	var target http.Handler
	for _, c := range hc.contexts {
		if c.Matches(request.URL.Path) {
			target = c
			break
		}
	}

	hc.lock.RUnlock()
	if target == nil {
		xhttp.WriteErrorf(response, http.StatusNotFound, "no application deployed at %s", request.URL.Path)
		return
	}

	target.ServeHTTP(response, request)
}
