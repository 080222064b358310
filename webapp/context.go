// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package webapp

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/xmidt-org/testcontainer/archive"
	"github.com/xmidt-org/testcontainer/logging"
	"github.com/xmidt-org/testcontainer/xhttp"
)

// ErrAlreadyStarted is returned by Start when the context is already serving requests.
var ErrAlreadyStarted = errors.New("context already started")

// DefaultWorkDirectory returns the directory archives are materialized into when Options does not name one.
func DefaultWorkDirectory() string {
	return filepath.Join(os.TempDir(), "testcontainer")
}

// Options configures a Context.
type Options struct {
	// Logger is the go-kit logger for the context.  If unset, logging.DefaultLogger() is used.
	Logger log.Logger

	// WorkDirectory receives the materialized archive.  Defaults to DefaultWorkDirectory().
	WorkDirectory string

	// Configurations is the ordered pipeline applied by Start.  Defaults to DefaultConfigurations().
	Configurations []Configuration

	// Bindings are merged over the archive's environment by the env configuration.
	Bindings map[string]string
}

// Context is a web application mounted at a context path.  It implements http.Handler and
// archive.Mounter.  Configurations mutate the context only while Start holds its lock.
type Context struct {
	contextPath    string
	archive        archive.Archive
	logger         log.Logger
	workDirectory  string
	configurations []Configuration
	extraBindings  map[string]string

	lock    sync.RWMutex
	handler http.Handler

	resourceBase string
	extracted    bool
	routes       []archive.Registration
	middleware   []alice.Constructor
	bindings     map[string]string
	welcomeFile  string
	displayName  string
}

var _ archive.Mounter = (*Context)(nil)

// New creates a stopped context that will serve a at contextPath.
func New(contextPath string, a archive.Archive, o Options) *Context {
	if o.Logger == nil {
		o.Logger = logging.DefaultLogger()
	}

	if len(o.WorkDirectory) == 0 {
		o.WorkDirectory = DefaultWorkDirectory()
	}

	if o.Configurations == nil {
		o.Configurations = DefaultConfigurations()
	}

	contextPath = "/" + strings.Trim(contextPath, "/")
	return &Context{
		contextPath:    contextPath,
		archive:        a,
		logger:         log.With(o.Logger, "contextPath", contextPath, "archive", a.Name()),
		workDirectory:  o.WorkDirectory,
		configurations: append([]Configuration(nil), o.Configurations...),
		extraBindings:  o.Bindings,
	}
}

func (c *Context) ContextPath() string {
	return c.contextPath
}

func (c *Context) Logger() log.Logger {
	return c.logger
}

func (c *Context) DisplayName() string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.displayName
}

// Matches tests whether a request path falls under this context's path.
func (c *Context) Matches(requestPath string) bool {
	return c.contextPath == "/" ||
		requestPath == c.contextPath ||
		strings.HasPrefix(requestPath, c.contextPath+"/")
}

// Handle mounts h at pattern, relative to the context path.  Only configurations should call this.
func (c *Context) Handle(pattern string, h http.Handler) {
	c.routes = append(c.routes, archive.Registration{Pattern: pattern, Handler: h})
}

// Use appends a middleware decorating every request to this context.  Only configurations should call this.
func (c *Context) Use(constructor alice.Constructor) {
	c.middleware = append(c.middleware, constructor)
}

// Bind sets an environment binding.  Only configurations should call this.
func (c *Context) Bind(key, value string) {
	if c.bindings == nil {
		c.bindings = make(map[string]string)
	}

	c.bindings[key] = value
}

// Start applies every configuration in order, then builds the router.  The first configuration
// error aborts the start and releases anything extracted so far.
func (c *Context) Start() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.handler != nil {
		return ErrAlreadyStarted
	}

	c.reset()
	for _, cfg := range c.configurations {
		level.Debug(c.logger).Log(logging.MessageKey(), "applying configuration", "configuration", cfg.Name())
		if err := cfg.Configure(c); err != nil {
			c.release()
			return fmt.Errorf("%s configuration failed: %w", cfg.Name(), err)
		}
	}

	c.handler = alice.New(c.logRequests).Append(c.middleware...).Then(c.newRouter())
	level.Info(c.logger).Log(logging.MessageKey(), "context started", "resourceBase", c.resourceBase)
	return nil
}

// Stop takes the context out of service and removes its extracted content.  Requests
// received after Stop are answered with 503.  Stopping a stopped context does nothing.
func (c *Context) Stop() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.handler == nil && !c.extracted {
		return nil
	}

	c.handler = nil
	err := c.release()
	level.Info(c.logger).Log(logging.MessageKey(), "context stopped")
	return err
}

func (c *Context) ServeHTTP(response http.ResponseWriter, request *http.Request) {
	if !c.Matches(request.URL.Path) {
		xhttp.WriteErrorf(response, http.StatusNotFound, "no context for path %s", request.URL.Path)
		return
	}

	c.lock.RLock()
	h := c.handler
	c.lock.RUnlock()

	if h == nil {
		xhttp.WriteErrorf(response, http.StatusServiceUnavailable, "context %s is not started", c.contextPath)
		return
	}

	h.ServeHTTP(response, request)
}

func (c *Context) reset() {
	c.resourceBase = ""
	c.extracted = false
	c.routes = nil
	c.middleware = nil
	c.bindings = nil
	c.welcomeFile = ""
	c.displayName = ""
}

// release removes extracted content.  The caller must hold the write lock.
func (c *Context) release() error {
	var err error
	if c.extracted {
		err = os.RemoveAll(c.resourceBase)
	}

	c.reset()
	return err
}

func (c *Context) newRouter() http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		xhttp.WriteErrorf(response, http.StatusNotFound, "%s not found", request.URL.Path)
	})

	if len(c.resourceBase) > 0 && len(c.welcomeFile) > 0 {
		welcome := filepath.Join(c.resourceBase, filepath.FromSlash(c.welcomeFile))
		router.MatcherFunc(func(request *http.Request, _ *mux.RouteMatch) bool {
			return request.URL.Path == c.contextPath || request.URL.Path == c.contextPath+"/"
		}).HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
			http.ServeFile(response, request, welcome)
		})
	}

	if c.contextPath != "/" {
		router.Path(c.contextPath).HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
			target := c.contextPath + "/"
			if len(request.URL.RawQuery) > 0 {
				target += "?" + request.URL.RawQuery
			}

			http.Redirect(response, request, target, http.StatusMovedPermanently)
		})
	}

	sub := router.PathPrefix(c.contextPath).Subrouter()
	for _, r := range c.routes {
		sub.Handle(r.Pattern, r.Handler)
	}

	if len(c.resourceBase) > 0 {
		sub.PathPrefix("/").Handler(c.static())
	}

	return router
}

// static serves the resource base, hiding WEB-INF.
func (c *Context) static() http.Handler {
	files := http.StripPrefix(strings.TrimRight(c.contextPath, "/"), http.FileServer(http.Dir(c.resourceBase)))
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		relative := path.Clean("/" + strings.TrimPrefix(request.URL.Path, c.contextPath))
		if relative == "/WEB-INF" || strings.HasPrefix(relative, "/WEB-INF/") {
			xhttp.WriteErrorf(response, http.StatusNotFound, "%s not found", request.URL.Path)
			return
		}

		files.ServeHTTP(response, request)
	})
}

func (c *Context) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		level.Debug(c.logger).Log(logging.MessageKey(), "request", "method", request.Method, "path", request.URL.Path)
		next.ServeHTTP(response, request.WithContext(logging.WithLogger(request.Context(), c.logger)))
	})
}
