/*
 * Copyright The Kmesh Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at:
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	detectInMesh         = "in_mesh"
	detectNotInMesh      = "not_in_mesh"
	detectAddressMissing = "address_missing"
)

// Metrics counts resolver activity. Counters are bound up front so the hot
// path only increments. All methods are no-ops on a nil receiver.
type Metrics struct {
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	populationErrors prometheus.Counter
	detectResults    *prometheus.CounterVec
	inMesh           prometheus.Counter
	notInMesh        prometheus.Counter
	addressMissing   prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cgmesh_cgroup_cache_hits_total",
			Help: "The total number of cgroup resolutions served from the cgroup info map",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cgmesh_cgroup_cache_misses_total",
			Help: "The total number of cgroup resolutions that had to run mesh detection",
		}),
		populationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cgmesh_cgroup_cache_population_errors_total",
			Help: "The total number of detected cgroup records the cgroup info map rejected",
		}),
		detectResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cgmesh_mesh_detect_total",
			Help: "The total number of mesh detections by result",
		}, []string{"result"}),
	}
	m.inMesh = m.detectResults.WithLabelValues(detectInMesh)
	m.notInMesh = m.detectResults.WithLabelValues(detectNotInMesh)
	m.addressMissing = m.detectResults.WithLabelValues(detectAddressMissing)
	return m
}

// Register adds all collectors to registry.
func (m *Metrics) Register(registry prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.cacheHits, m.cacheMisses, m.populationErrors, m.detectResults} {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) CacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) PopulationError() {
	if m != nil {
		m.populationErrors.Inc()
	}
}

func (m *Metrics) DetectInMesh() {
	if m != nil {
		m.inMesh.Inc()
	}
}

func (m *Metrics) DetectNotInMesh() {
	if m != nil {
		m.notInMesh.Inc()
	}
}

func (m *Metrics) DetectAddressMissing() {
	if m != nil {
		m.addressMissing.Inc()
	}
}

func (m *Metrics) CacheHitsCounter() prometheus.Counter        { return m.cacheHits }
func (m *Metrics) CacheMissesCounter() prometheus.Counter      { return m.cacheMisses }
func (m *Metrics) PopulationErrorsCounter() prometheus.Counter { return m.populationErrors }
func (m *Metrics) InMeshCounter() prometheus.Counter           { return m.inMesh }
func (m *Metrics) NotInMeshCounter() prometheus.Counter        { return m.notInMesh }
func (m *Metrics) AddressMissingCounter() prometheus.Counter   { return m.addressMissing }
