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
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics()
	require.NoError(t, m.Register(registry))

	// registering twice collides
	assert.Error(t, m.Register(registry))

	m.CacheHit()
	m.CacheHit()
	m.CacheMiss()
	m.PopulationError()
	m.DetectInMesh()
	m.DetectNotInMesh()
	m.DetectAddressMissing()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheHitsCounter()))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheMissesCounter()))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PopulationErrorsCounter()))

	expected := `
# HELP cgmesh_mesh_detect_total The total number of mesh detections by result
# TYPE cgmesh_mesh_detect_total counter
cgmesh_mesh_detect_total{result="address_missing"} 1
cgmesh_mesh_detect_total{result="in_mesh"} 1
cgmesh_mesh_detect_total{result="not_in_mesh"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "cgmesh_mesh_detect_total"))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheHit()
		m.CacheMiss()
		m.PopulationError()
		m.DetectInMesh()
		m.DetectNotInMesh()
		m.DetectAddressMissing()
	})
}
