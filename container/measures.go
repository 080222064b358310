// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

const (
	MetricsNamespace = "testcontainer"

	DeploymentsTotal         = "deployments_total"
	ActiveConnections        = "active_connections"
	RejectedConnectionsTotal = "rejected_connections_total"

	OutcomeLabel   = "outcome"
	SuccessOutcome = "success"
	FailureOutcome = "failure"
)

// Measures is the set of metrics a Container updates.
type Measures struct {
	// Deployments counts Deploy calls, labeled by OutcomeLabel.
	Deployments         metrics.Counter
	ActiveConnections   metrics.Gauge
	RejectedConnections metrics.Counter
}

// DiscardMeasures returns Measures that record nothing.
func DiscardMeasures() *Measures {
	return &Measures{
		Deployments:         discard.NewCounter(),
		ActiveConnections:   discard.NewGauge(),
		RejectedConnections: discard.NewCounter(),
	}
}

// NewMeasures creates prometheus-backed Measures and registers them with r.
func NewMeasures(r prometheus.Registerer) (*Measures, error) {
	deployments := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      DeploymentsTotal,
			Help:      "The number of deployments, by outcome",
		},
		[]string{OutcomeLabel},
	)

	active := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      ActiveConnections,
			Help:      "The number of active connections to the embedded server",
		},
		nil,
	)

	rejected := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      RejectedConnectionsTotal,
			Help:      "The number of connections rejected because of the connection limit",
		},
		nil,
	)

	for _, c := range []prometheus.Collector{deployments, active, rejected} {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}

	return &Measures{
		Deployments:         kitprometheus.NewCounter(deployments),
		ActiveConnections:   kitprometheus.NewGauge(active),
		RejectedConnections: kitprometheus.NewCounter(rejected),
	}, nil
}

// ProvideMeasures provides *Measures as an uber/fx option.  The enclosing application
// must supply a prometheus.Registerer.
func ProvideMeasures() fx.Option {
	return fx.Provide(NewMeasures)
}

func (m *Measures) deployed(err error) {
	outcome := SuccessOutcome
	if err != nil {
		outcome = FailureOutcome
	}

	m.Deployments.With(OutcomeLabel, outcome).Add(1)
}
