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
package cgroup

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cilium/ebpf"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"kmesh.net/cgmesh/pkg/bpfcache"
	"kmesh.net/cgmesh/pkg/constants"
	"kmesh.net/cgmesh/pkg/mesh"
	"kmesh.net/cgmesh/pkg/nets"
	"kmesh.net/cgmesh/pkg/telemetry"
)

type fixture struct {
	maps     bpfcache.MeshMaps
	cache    *bpfcache.Cache
	lookup   *mesh.FakeSockLookuper
	detector *countingDetector
	metrics  *telemetry.Metrics
	resolver *Resolver
}

type countingDetector struct {
	*mesh.Detector
	calls atomic.Int64
}

func (d *countingDetector) Detect(ctx mesh.EventContext) (bool, nets.Address, error) {
	d.calls.Add(1)
	return d.Detector.Detect(ctx)
}

// countingMap counts mutations of the wrapped table.
type countingMap struct {
	bpfcache.Map
	updates atomic.Int64
}

func (m *countingMap) Update(key, value interface{}, flags ebpf.MapUpdateFlags) error {
	m.updates.Add(1)
	return m.Map.Update(key, value, flags)
}

func newFixture(t *testing.T, maps bpfcache.MeshMaps) *fixture {
	f := &fixture{
		maps:    maps,
		cache:   bpfcache.NewCache(maps),
		lookup:  mesh.NewFakeSockLookuper(),
		metrics: telemetry.NewMetrics(),
	}
	f.detector = &countingDetector{
		Detector: mesh.NewDetector(f.lookup, f.cache, constants.SockIPMarkPort, f.metrics),
	}
	f.resolver = NewResolver(f.cache, f.detector, f.metrics)
	return f
}

func (f *fixture) admit(t *testing.T, mark uint32, ip string) {
	require.NoError(t, f.cache.MarkIPUpdate(&bpfcache.MarkKey{Mark: mark},
		&bpfcache.MarkIPValue{Ip: nets.MustParseAddress(ip)}))
}

func TestResolveInvalidArgument(t *testing.T) {
	f := newFixture(t, bpfcache.NewFakeMeshMaps(t))

	err := f.resolver.Resolve(mesh.NetnsEvent("ns"), 1, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, int64(0), f.detector.calls.Load())
}

func TestResolveNonMemberIsCached(t *testing.T) {
	f := newFixture(t, bpfcache.NewFakeMeshMaps(t))
	ctx := mesh.NetnsEvent("ns42")

	var info Info
	require.NoError(t, f.resolver.Resolve(ctx, 42, &info))
	assert.Equal(t, Info{ID: 42}, info)
	assert.Equal(t, "{id:42, is_in_mesh:false, address:0.0.0.0}", info.String())

	var again Info
	require.NoError(t, f.resolver.Resolve(ctx, 42, &again))
	assert.Equal(t, info, again)
	assert.Equal(t, int64(1), f.detector.calls.Load())
	assert.Equal(t, int64(1), f.lookup.Lookups.Load())
}

func TestResolveHitIsIdempotent(t *testing.T) {
	counting := &countingMap{}
	maps := bpfcache.NewFakeMeshMaps(t)
	counting.Map = maps.CgrFib
	maps.CgrFib = counting
	f := newFixture(t, maps)
	f.lookup.SetMark("ns7", 0x7)
	f.admit(t, 0x7, "10.1.0.7")

	var first Info
	require.NoError(t, f.resolver.Resolve(mesh.NetnsEvent("ns7"), 7, &first))
	require.Equal(t, int64(1), counting.updates.Load())

	for i := 0; i < 10; i++ {
		var info Info
		require.NoError(t, f.resolver.Resolve(mesh.NetnsEvent("ns7"), 7, &info))
		assert.Equal(t, first, info)
	}
	assert.Equal(t, int64(1), counting.updates.Load())
	assert.Equal(t, int64(1), f.detector.calls.Load())
	assert.Equal(t, float64(10), testutil.ToFloat64(f.metrics.CacheHitsCounter()))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CacheMissesCounter()))
}

func TestResolveHitReturnsStoredRecord(t *testing.T) {
	f := newFixture(t, bpfcache.NewFakeMeshMaps(t))

	// flags set by another writer survive a hit
	stored := bpfcache.CgroupInfoValue{
		Id:       5,
		IsInMesh: constants.ENABLED,
		CgroupIp: nets.MustParseAddress("10.0.0.9"),
		Flags:    DNSCapturePortFlag,
	}
	require.NoError(t, f.cache.CgroupInfoUpdate(&bpfcache.CgroupInfoKey{Id: 5}, &stored))

	var info Info
	require.NoError(t, f.resolver.Resolve(mesh.NetnsEvent("ns5"), 5, &info))
	assert.True(t, info.InMesh)
	assert.Equal(t, "10.0.0.9", info.Address.String())
	assert.True(t, info.HasFlag(DNSCapturePortFlag))
	assert.False(t, info.HasDetectedFlag(DNSCapturePortFlag))
	assert.Equal(t, int64(0), f.detector.calls.Load())
}

func TestResolvePartialSuccess(t *testing.T) {
	f := newFixture(t, bpfcache.NewFakeMeshMaps(t))
	f.lookup.SetMark("ns", 0xee)

	var info Info
	require.NoError(t, f.resolver.Resolve(mesh.NetnsEvent("ns"), 11, &info))
	assert.True(t, info.InMesh)
	assert.True(t, info.Address.IsZero())
	assert.Equal(t, int64(0), f.lookup.Outstanding())

	// the partial result is cached too
	var again Info
	require.NoError(t, f.resolver.Resolve(mesh.NetnsEvent("ns"), 11, &again))
	assert.Equal(t, info, again)
	assert.Equal(t, int64(1), f.detector.calls.Load())
}

func TestResolveMembershipChangeAfterEvict(t *testing.T) {
	f := newFixture(t, bpfcache.NewFakeMeshMaps(t))
	ctx := mesh.NetnsEvent("ns42")

	var info Info
	require.NoError(t, f.resolver.Resolve(ctx, 42, &info))
	assert.Equal(t, Info{ID: 42}, info)

	// the proxy comes up and gets admitted
	f.admit(t, 0xab, "10.0.0.5")
	f.lookup.SetMark("ns42", 0xab)

	// still served from the cache
	require.NoError(t, f.resolver.Resolve(ctx, 42, &info))
	assert.False(t, info.InMesh)

	require.NoError(t, f.resolver.Evict(42))
	require.NoError(t, f.resolver.Resolve(ctx, 42, &info))
	assert.Equal(t, Info{ID: 42, InMesh: true, Address: nets.MustParseAddress("10.0.0.5")}, info)
	assert.Equal(t, "{id:42, is_in_mesh:true, address:10.0.0.5}", info.String())
	assert.Equal(t, int64(0), f.lookup.Outstanding())
}

func TestResolveCachePopulationError(t *testing.T) {
	f := newFixture(t, bpfcache.NewFakeMeshMapsWithCapacity(t, 1, 16))

	var info Info
	require.NoError(t, f.resolver.Resolve(mesh.NetnsEvent("a"), 1, &info))

	out := Info{ID: 1234}
	err := f.resolver.Resolve(mesh.NetnsEvent("b"), 2, &out)
	assert.ErrorIs(t, err, ErrCachePopulation)
	assert.ErrorContains(t, err, unix.E2BIG.Error())
	assert.Equal(t, Info{ID: 1234}, out, "output must be untouched on failure")
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.PopulationErrorsCounter()))
}

func TestResolveDetectError(t *testing.T) {
	f := newFixture(t, bpfcache.NewFakeMeshMaps(t))
	f.lookup.SetError(errors.New("lookup failed"))

	var info Info
	err := f.resolver.Resolve(mesh.NetnsEvent("ns"), 3, &info)
	assert.ErrorContains(t, err, "lookup failed")

	err = f.resolver.Resolve(nil, 3, &info)
	assert.ErrorIs(t, err, mesh.ErrLookupPrecondition)

	dump, err := f.resolver.Dump()
	require.NoError(t, err)
	assert.Empty(t, dump, "failed detections are not cached")
}

func TestResolveConcurrentDoubleMiss(t *testing.T) {
	f := newFixture(t, bpfcache.NewFakeMeshMaps(t))
	f.lookup.SetMark("ns99", 0x99)
	f.admit(t, 0x99, "10.0.0.99")

	const workers = 16
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results [workers]Info
		errs    [workers]error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = f.resolver.Resolve(mesh.NetnsEvent("ns99"), 99, &results[i])
		}(i)
	}
	close(start)
	wg.Wait()

	inMesh, addr, err := f.detector.Detector.Detect(mesh.NetnsEvent("ns99"))
	require.NoError(t, err)
	expected := Info{ID: 99, InMesh: inMesh, Address: addr}

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, expected, results[i])
	}

	dump, err := f.resolver.Dump()
	require.NoError(t, err)
	require.Len(t, dump, 1)
	assert.Equal(t, expected, dump[0])
	assert.GreaterOrEqual(t, f.detector.calls.Load(), int64(1))
	assert.Equal(t, int64(0), f.lookup.Outstanding())
}

func TestEvictAndDump(t *testing.T) {
	f := newFixture(t, bpfcache.NewFakeMeshMaps(t))

	assert.NoError(t, f.resolver.Evict(1000), "evicting an unknown cgroup is fine")

	var info Info
	for _, id := range []uint64{1, 2, 3} {
		require.NoError(t, f.resolver.Resolve(mesh.NetnsEvent("ns"), id, &info))
	}
	dump, err := f.resolver.Dump()
	require.NoError(t, err)
	assert.Len(t, dump, 3)

	require.NoError(t, f.resolver.Evict(2))
	dump, err = f.resolver.Dump()
	require.NoError(t, err)
	assert.ElementsMatch(t, []Info{{ID: 1}, {ID: 3}}, dump)
}
