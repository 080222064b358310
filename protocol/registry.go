// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrSkipped may be returned, possibly wrapped, by a TestFunc to report a skipped test.
var ErrSkipped = errors.New("test skipped")

// TestFunc is a test method executed inside the deployed application.  The context carries the
// request's logger and any environment bindings.
type TestFunc func(context.Context) error

// TestMethod identifies a registered test.  The schema tags define the runner's query parameters.
type TestMethod struct {
	ClassName  string `schema:"className,required"`
	MethodName string `schema:"methodName,required"`
}

// Registry holds test methods by class and method name.  It is safe for concurrent use.
type Registry struct {
	lock    sync.RWMutex
	classes map[string]map[string]TestFunc
}

func NewRegistry() *Registry {
	return &Registry{
		classes: make(map[string]map[string]TestFunc),
	}
}

// Register adds or replaces a test method.
func (r *Registry) Register(className, methodName string, fn TestFunc) {
	r.lock.Lock()
	defer r.lock.Unlock()

	methods := r.classes[className]
	if methods == nil {
		methods = make(map[string]TestFunc)
		r.classes[className] = methods
	}

	methods[methodName] = fn
}

func (r *Registry) Lookup(m TestMethod) (TestFunc, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	fn, ok := r.classes[m.ClassName][m.MethodName]
	return fn, ok
}

// Methods returns every registered test, sorted by class and then method.
func (r *Registry) Methods() []TestMethod {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var methods []TestMethod
	for className, byName := range r.classes {
		for methodName := range byName {
			methods = append(methods, TestMethod{ClassName: className, MethodName: methodName})
		}
	}

	sort.Slice(methods, func(i, j int) bool {
		if methods[i].ClassName != methods[j].ClassName {
			return methods[i].ClassName < methods[j].ClassName
		}

		return methods[i].MethodName < methods[j].MethodName
	})

	return methods
}
