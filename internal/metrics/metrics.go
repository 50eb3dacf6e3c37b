/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var Registry = prometheus.NewRegistry()

var (
	// PFIRequests counts provider requests by provider, operation and outcome
	PFIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet",
		Subsystem: "pfi",
		Name:      "requests_total",
		Help:      "Requests sent to liquidity providers.",
	}, []string{"provider", "op", "outcome"})

	PollAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet",
		Subsystem: "exchange",
		Name:      "poll_attempts_total",
		Help:      "Thread fetches made while polling for a quote or settlement.",
	}, []string{"loop"})

	ExchangeOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet",
		Subsystem: "exchange",
		Name:      "outcomes_total",
		Help:      "Conversions by final outcome.",
	}, []string{"outcome"})

	OfferingCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallet",
		Subsystem: "offerings",
		Name:      "cache_lookups_total",
		Help:      "Offering cache lookups by result.",
	}, []string{"result"})

	AggregatedExchanges = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "wallet",
		Subsystem: "aggregator",
		Name:      "exchanges",
		Help:      "Exchanges in the latest aggregation pass.",
	})
)

func init() {
	Registry.MustRegister(
		PFIRequests,
		PollAttempts,
		ExchangeOutcomes,
		OfferingCache,
		AggregatedExchanges,
		collectors.NewGoCollector(),
	)
}

// Handler serves the registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
