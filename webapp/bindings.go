// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package webapp

import "context"

type bindingsKey struct{}

// WithBindings returns a context carrying the given environment bindings.
func WithBindings(parent context.Context, bindings map[string]string) context.Context {
	return context.WithValue(parent, bindingsKey{}, bindings)
}

// Binding looks up an environment binding established by the env configuration.
func Binding(ctx context.Context, key string) (string, bool) {
	bindings, _ := ctx.Value(bindingsKey{}).(map[string]string)
	v, ok := bindings[key]
	return v, ok
}
