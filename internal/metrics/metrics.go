/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package metrics exposes the daemon-wide Prometheus counters named in
// SPEC_FULL.md's health/metrics endpoint expansion: streams opened, closed
// and timed out, heartbeat misses, pool wraparounds, and WRR selections
// per destination type. Every daemon binary owns one Registry and mounts
// its Handler at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the counters one daemon process reports.
type Registry struct {
	reg *prometheus.Registry

	StreamsOpened    prometheus.Counter
	StreamsClosed    prometheus.Counter
	StreamsTimedOut  prometheus.Counter
	HeartbeatMisses  prometheus.Counter
	PoolWraparounds  prometheus.Counter
	RouteSelections  *prometheus.CounterVec
	ConfigCommits    prometheus.Counter
	ConfigNotifySent prometheus.Counter
}

// New builds a Registry for daemon, used as the "daemon" constant label
// distinguishing mink-routingd from mink-configd instances scraped by the
// same Prometheus server.
func New(daemon string) *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := prometheus.Labels{"daemon": daemon}

	return &Registry{
		reg: reg,
		StreamsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name:        "mink_streams_opened_total",
			Help:        "Streams opened by this daemon.",
			ConstLabels: labels,
		}),
		StreamsClosed: factory.NewCounter(prometheus.CounterOpts{
			Name:        "mink_streams_closed_total",
			Help:        "Streams closed normally by this daemon.",
			ConstLabels: labels,
		}),
		StreamsTimedOut: factory.NewCounter(prometheus.CounterOpts{
			Name:        "mink_streams_timed_out_total",
			Help:        "Streams that reached their idle timeout.",
			ConstLabels: labels,
		}),
		HeartbeatMisses: factory.NewCounter(prometheus.CounterOpts{
			Name:        "mink_heartbeat_misses_total",
			Help:        "Heartbeat replies missed across every client.",
			ConstLabels: labels,
		}),
		PoolWraparounds: factory.NewCounter(prometheus.CounterOpts{
			Name:        "mink_pool_wraparounds_total",
			Help:        "Oldest-wins pool wraparound events.",
			ConstLabels: labels,
		}),
		RouteSelections: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "mink_route_selections_total",
			Help:        "Weighted round-robin selections, by destination type.",
			ConstLabels: labels,
		}, []string{"dest_type"}),
		ConfigCommits: factory.NewCounter(prometheus.CounterOpts{
			Name:        "mink_config_commits_total",
			Help:        "Configuration SET/REPLICATE commits applied.",
			ConstLabels: labels,
		}),
		ConfigNotifySent: factory.NewCounter(prometheus.CounterOpts{
			Name:        "mink_config_notify_sent_total",
			Help:        "Configuration NOTIFY messages fanned out to subscribers.",
			ConstLabels: labels,
		}),
	}
}

// Handler returns the /metrics HTTP handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
