// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/xmidt-org/testcontainer/archive"
	"github.com/xmidt-org/testcontainer/container"
	"github.com/xmidt-org/testcontainer/logging"
	"github.com/xmidt-org/testcontainer/protocol"
	"go.uber.org/fx"
)

const (
	applicationName = "testcontainer"

	FileFlag         = "file"
	ArchiveFlag      = "archive"
	NameFlag         = "name"
	BindHostFlag     = "bindHost"
	BindHTTPPortFlag = "bindHttpPort"
	ExtendedFlag     = "extended"

	MetricsPath = "/metrics"
)

func newFlagSet() *pflag.FlagSet {
	f := pflag.NewFlagSet(applicationName, pflag.ContinueOnError)
	f.StringP(FileFlag, "f", "", "the configuration file to use.  Overrides the search path.")
	f.StringP(ArchiveFlag, "a", "", "a directory whose contents are deployed as the web application")
	f.StringP(NameFlag, "n", "app.war", "the name of the deployed archive")
	f.String(BindHostFlag, "", "overrides the configured bind host")
	f.Int(BindHTTPPortFlag, 0, "overrides the configured bind port")
	f.Bool(ExtendedFlag, false, "use the extended configuration, which enables in-application test invocation")
	return f
}

// readConfiguration loads the configuration file, if one exists, and applies flag overrides.
func readConfiguration(v *viper.Viper, f *pflag.FlagSet) (container.Configuration, error) {
	if file, _ := f.GetString(FileFlag); len(file) > 0 {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return container.Configuration{}, err
		}
	} else if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return container.Configuration{}, err
		}
	}

	configuration, err := container.FromViper(v)
	if err != nil {
		return configuration, err
	}

	if f.Changed(BindHostFlag) {
		configuration.BindHost, _ = f.GetString(BindHostFlag)
	}

	if f.Changed(BindHTTPPortFlag) {
		configuration.BindHTTPPort, _ = f.GetInt(BindHTTPPortFlag)
	}

	if f.Changed(ExtendedFlag) {
		configuration.ExtendedConfiguration, _ = f.GetBool(ExtendedFlag)
	}

	return configuration, nil
}

func newLogger(v *viper.Viper, configuration container.Configuration) (log.Logger, error) {
	if configuration.Log != nil {
		return logging.New(configuration.Log), nil
	}

	o, err := logging.FromViper(logging.Sub(v))
	if err != nil {
		return nil, err
	}

	return logging.New(o), nil
}

// newArchive builds the deployed archive: the contents of the archive directory, if any, plus
// the prometheus handler and a test runner with a ping method.
func newArchive(f *pflag.FlagSet, logger log.Logger, gatherer prometheus.Gatherer) (*archive.WebArchive, error) {
	var (
		name, _ = f.GetString(NameFlag)
		dir, _  = f.GetString(ArchiveFlag)
		wa      = archive.New(name)
	)

	if len(dir) > 0 {
		var err error
		if wa, err = archive.FromDirectory(name, dir); err != nil {
			return nil, err
		}
	}

	wa.AddHandler(MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	registry := protocol.NewRegistry()
	registry.Register("Container", "ping", func(ctx context.Context) error {
		level.Debug(logging.GetLogger(ctx)).Log(logging.MessageKey(), "ping")
		return nil
	})

	for _, m := range registry.Methods() {
		level.Info(logger).Log(
			logging.MessageKey(), "registered test method",
			"className", m.ClassName,
			"methodName", m.MethodName,
		)
	}

	return protocol.Attach(wa, registry, logger), nil
}

// metricsOut exposes a single prometheus registry as both the Registerer used by
// container measures and the Gatherer behind the /metrics handler.
type metricsOut struct {
	fx.Out

	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

func provideRegistry() (metricsOut, error) {
	registry := prometheus.NewRegistry()
	err := registry.Register(collectors.NewGoCollector())
	if err == nil {
		err = registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	return metricsOut{
		Registerer: registry,
		Gatherer:   registry,
	}, err
}

type lifecycleIn struct {
	fx.In

	Lifecycle     fx.Lifecycle
	Logger        log.Logger
	Configuration container.Configuration
	Container     *container.Container
	Archive       *archive.WebArchive
}

// registerLifecycle binds the container to the application lifecycle.  Starting the application
// configures, starts, and deploys the archive.  Stopping it undeploys and stops the container.
func registerLifecycle(in lifecycleIn) {
	in.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := in.Container.Setup(in.Configuration); err != nil {
				return err
			}

			if err := in.Container.Start(); err != nil {
				return err
			}

			executor, err := in.Container.Deploy(in.Archive)
			if err != nil {
				in.Container.Stop()
				return err
			}

			level.Info(in.Logger).Log(
				logging.MessageKey(), "serving",
				"archive", in.Archive.Name(),
				"url", executor.BaseURL().JoinPath(executor.ContextPath()).String(),
				"runner", executor.RunnerURL().String(),
			)

			return nil
		},
		OnStop: func(context.Context) error {
			if err := in.Container.Undeploy(in.Archive); err != nil {
				level.Error(in.Logger).Log(logging.MessageKey(), "unable to undeploy", logging.ErrorKey(), err)
			}

			return in.Container.Stop()
		},
	})
}

// appOptions assembles the uber/fx graph for a container serving the archive described by f.
func appOptions(f *pflag.FlagSet, configuration container.Configuration, logger log.Logger) fx.Option {
	return fx.Options(
		fx.Supply(configuration),
		fx.Provide(
			func() log.Logger { return logger },
			provideRegistry,
			func(logger log.Logger, m *container.Measures) *container.Container {
				return container.New(container.Options{
					Logger:   logger,
					Measures: m,
				})
			},
			func(logger log.Logger, g prometheus.Gatherer) (*archive.WebArchive, error) {
				return newArchive(f, logger, g)
			},
		),
		container.ProvideMeasures(),
		fx.Invoke(registerLifecycle),
	)
}

func testcontainer(arguments []string) int {
	var (
		f = newFlagSet()
		v = container.NewViper(applicationName)
	)

	if err := container.ParseAndBind(v, f, arguments); err != nil {
		fmt.Fprintf(os.Stderr, "Unable to parse command line: %s\n", err)
		return 1
	}

	configuration, err := readConfiguration(v, f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to read configuration: %s\n", err)
		return 1
	}

	logger, err := newLogger(v, configuration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to create logger: %s\n", err)
		return 1
	}

	app := fx.New(
		appOptions(f, configuration, logger),
		fx.NopLogger,
	)

	if err := app.Err(); err != nil {
		level.Error(logger).Log(logging.MessageKey(), "unable to assemble application", logging.ErrorKey(), err)
		return 2
	}

	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		level.Error(logger).Log(logging.MessageKey(), "unable to start", logging.ErrorKey(), err)
		return 3
	}

	signals := make(chan os.Signal, 10)
	signal.Notify(signals)
	s := container.SignalWait(logger, signals, os.Interrupt, os.Kill)
	level.Info(logger).Log(logging.MessageKey(), "exiting due to signal", "signal", s)

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		level.Error(logger).Log(logging.MessageKey(), "unable to stop cleanly", logging.ErrorKey(), err)
		return 5
	}

	return 0
}

func main() {
	os.Exit(testcontainer(os.Args[1:]))
}
