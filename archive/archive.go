// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrInvalidName is returned when an archive name is empty or contains a path separator.
	ErrInvalidName = errors.New("invalid archive name")

	// ErrInvalidPattern is returned when a handler pattern does not begin with '/'.
	ErrInvalidPattern = errors.New("handler patterns must begin with '/'")
)

// Registration binds a handler to a path pattern relative to the application's context path.
type Registration struct {
	// Pattern is the gorilla/mux path template, e.g. "/TestRunner" or "/items/{id}".
	Pattern string

	// Handler serves requests matching Pattern.
	Handler http.Handler

	// Deferred registrations are not mounted by the default configuration pipeline.  They are
	// offered to the archive's initializers instead, which decide whether to mount them.
	Deferred bool
}

// Mounter is the subset of an application context that initializers may use.
type Mounter interface {
	Handle(pattern string, h http.Handler)
}

// Initializer runs before an application starts, when the extended configuration pipeline is active.
// It receives every registration in the archive and mounts the ones it is responsible for.
type Initializer func(m Mounter, registrations []Registration) error

// Archive is a packaged web application.
type Archive interface {
	// Name is the archive's file name, e.g. "test.war".
	Name() string

	// Materialize writes the archive as a zip file into dir and returns its path.  The path
	// depends only on dir and Name, so an existing file for the same name is replaced.
	Materialize(dir string) (string, error)

	// Handlers returns the archive's handler registrations in the order they were added.
	Handlers() []Registration

	// Initializers returns the archive's initializers in the order they were added.
	Initializers() []Initializer

	// Environment returns the named values the application expects to be bound at runtime.
	Environment() map[string]string
}

// ValidateName checks that name is usable as a file name.
func ValidateName(name string) error {
	if len(name) == 0 || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	return nil
}

// WebArchive is the in-memory Archive implementation.  It is not safe for concurrent modification.
type WebArchive struct {
	name         string
	assets       map[string][]byte
	handlers     []Registration
	initializers []Initializer
	env          map[string]string
	descriptor   *Descriptor
}

var _ Archive = (*WebArchive)(nil)

// New creates an empty archive with the given name.  The name is validated when the archive is materialized.
func New(name string) *WebArchive {
	return &WebArchive{
		name:   name,
		assets: make(map[string][]byte),
		env:    make(map[string]string),
	}
}

func (wa *WebArchive) Name() string {
	return wa.name
}

// AddAsset adds a static file.  Leading slashes are trimmed from the path.
func (wa *WebArchive) AddAsset(path string, data []byte) *WebArchive {
	wa.assets[strings.TrimLeft(path, "/")] = data
	return wa
}

// AddHandler registers a handler that the default configuration pipeline mounts.
func (wa *WebArchive) AddHandler(pattern string, h http.Handler) *WebArchive {
	wa.handlers = append(wa.handlers, Registration{Pattern: pattern, Handler: h})
	return wa
}

// AddRegistration appends an arbitrary registration, including deferred ones.
func (wa *WebArchive) AddRegistration(r Registration) *WebArchive {
	wa.handlers = append(wa.handlers, r)
	return wa
}

func (wa *WebArchive) AddInitializer(i Initializer) *WebArchive {
	wa.initializers = append(wa.initializers, i)
	return wa
}

func (wa *WebArchive) SetEnv(key, value string) *WebArchive {
	wa.env[key] = value
	return wa
}

// SetDescriptor sets the deployment descriptor written to DescriptorPath.
func (wa *WebArchive) SetDescriptor(d Descriptor) *WebArchive {
	wa.descriptor = &d
	return wa
}

// Assets returns the sorted asset paths.
func (wa *WebArchive) Assets() []string {
	paths := make([]string, 0, len(wa.assets))
	for p := range wa.assets {
		paths = append(paths, p)
	}

	sort.Strings(paths)
	return paths
}

func (wa *WebArchive) Handlers() []Registration {
	return append([]Registration(nil), wa.handlers...)
}

func (wa *WebArchive) Initializers() []Initializer {
	return append([]Initializer(nil), wa.initializers...)
}

func (wa *WebArchive) Environment() map[string]string {
	env := make(map[string]string, len(wa.env))
	for k, v := range wa.env {
		env[k] = v
	}

	return env
}

// Validate checks the archive's name and handler patterns.
func (wa *WebArchive) Validate() error {
	if err := ValidateName(wa.name); err != nil {
		return err
	}

	for _, r := range wa.handlers {
		if !strings.HasPrefix(r.Pattern, "/") {
			return fmt.Errorf("%w: %q", ErrInvalidPattern, r.Pattern)
		}

		if r.Handler == nil {
			return fmt.Errorf("no handler for pattern %q", r.Pattern)
		}
	}

	return nil
}
