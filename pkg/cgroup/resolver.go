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
	"fmt"

	"github.com/cilium/ebpf"

	"kmesh.net/cgmesh/pkg/bpfcache"
	"kmesh.net/cgmesh/pkg/logger"
	"kmesh.net/cgmesh/pkg/mesh"
	"kmesh.net/cgmesh/pkg/nets"
	"kmesh.net/cgmesh/pkg/telemetry"
)

var log = logger.NewLoggerScope("cgroup")

// Detector is what the resolver runs on a cache miss.
type Detector interface {
	Detect(ctx mesh.EventContext) (bool, nets.Address, error)
}

// Resolver is a read-through cache over the cgroup info map. It takes no
// locks: concurrent misses on one cgroup each detect and insert, and the last
// insert wins.
type Resolver struct {
	cache    *bpfcache.Cache
	detector Detector
	metrics  *telemetry.Metrics
}

func NewResolver(cache *bpfcache.Cache, detector Detector, metrics *telemetry.Metrics) *Resolver {
	return &Resolver{
		cache:    cache,
		detector: detector,
		metrics:  metrics,
	}
}

// Resolve fills info with the membership of cgroupID. A cached record is
// returned as is; otherwise ctx is used to detect membership once and the
// result is cached, negative results included.
func (r *Resolver) Resolve(ctx mesh.EventContext, cgroupID uint64, info *Info) error {
	if info == nil {
		log.Error("cg_info can not be NULL")
		return ErrInvalidArgument
	}

	key := bpfcache.CgroupInfoKey{Id: cgroupID}
	var value bpfcache.CgroupInfoValue
	err := r.cache.CgroupInfoLookup(&key, &value)
	if err == nil {
		r.metrics.CacheHit()
		infoFromValue(&value, info)
		return nil
	}
	if !errors.Is(err, ebpf.ErrKeyNotExist) {
		log.Debugf("lookup cgroup(%d) failed, treating as miss: %v", cgroupID, err)
	}
	r.metrics.CacheMiss()

	inMesh, addr, err := r.detector.Detect(ctx)
	if err != nil {
		return fmt.Errorf("detect mesh membership of cgroup(%d): %w", cgroupID, err)
	}

	fresh := Info{
		ID:      cgroupID,
		InMesh:  inMesh,
		Address: addr,
	}
	value = valueFromInfo(&fresh)
	if err := r.cache.CgroupInfoUpdate(&key, &value); err != nil {
		r.metrics.PopulationError()
		log.Errorf("update cgr fib of cgroup(%d) error: %v", cgroupID, err)
		return fmt.Errorf("%w: cgroup(%d): %v", ErrCachePopulation, cgroupID, err)
	}

	*info = fresh
	return nil
}

// Evict drops the cached record of cgroupID so the next resolution detects
// again. Evicting an unknown cgroup is not an error.
func (r *Resolver) Evict(cgroupID uint64) error {
	err := r.cache.CgroupInfoDelete(&bpfcache.CgroupInfoKey{Id: cgroupID})
	if err != nil && !errors.Is(err, ebpf.ErrKeyNotExist) {
		return fmt.Errorf("evict cgroup(%d): %w", cgroupID, err)
	}
	return nil
}

// Dump returns all cached records.
func (r *Resolver) Dump() ([]Info, error) {
	values, err := r.cache.CgroupInfoDump()
	if err != nil {
		return nil, err
	}

	res := make([]Info, len(values))
	for i := range values {
		infoFromValue(&values[i], &res[i])
	}
	return res, nil
}
