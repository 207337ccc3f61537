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
package bpfcache

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/cilium/ebpf"

	"kmesh.net/cgmesh/pkg/constants"
)

type CgroupInfoKey struct {
	Id uint64 // cgroup id
}

type CgroupInfoValue struct {
	Id            uint64
	IsInMesh      uint32
	CgroupIp      [16]byte // network order
	Flags         uint16
	DetectedFlags uint16
}

func CgroupInfoMapSpec(maxEntries uint32) *ebpf.MapSpec {
	return &ebpf.MapSpec{
		Name:       constants.CgrFibMap,
		Type:       ebpf.Hash,
		KeySize:    uint32(unsafe.Sizeof(CgroupInfoKey{})),
		ValueSize:  uint32(unsafe.Sizeof(CgroupInfoValue{})),
		MaxEntries: maxEntries,
	}
}

func (c *Cache) CgroupInfoUpdate(key *CgroupInfoKey, value *CgroupInfoValue) error {
	log.Debugf("CgroupInfoUpdate [%#v], [%#v]", *key, *value)
	return c.bpfMap.CgrFib.
		Update(key, value, ebpf.UpdateAny)
}

func (c *Cache) CgroupInfoDelete(key *CgroupInfoKey) error {
	log.Debugf("CgroupInfoDelete [%#v]", *key)
	return c.bpfMap.CgrFib.
		Delete(key)
}

// CgroupInfoLookup runs on every resolution, so unlike the other accessors it
// does not log.
func (c *Cache) CgroupInfoLookup(key *CgroupInfoKey, value *CgroupInfoValue) error {
	return c.bpfMap.CgrFib.
		Lookup(key, value)
}

// CgroupInfoDump returns every cached record. Entries deleted while the dump
// runs are skipped.
func (c *Cache) CgroupInfoDump() ([]CgroupInfoValue, error) {
	keys, err := dumpKeys[CgroupInfoKey](c.bpfMap.CgrFib)
	if err != nil {
		return nil, err
	}

	res := make([]CgroupInfoValue, 0, len(keys))
	for i := range keys {
		var value CgroupInfoValue
		if err := c.CgroupInfoLookup(&keys[i], &value); err != nil {
			if errors.Is(err, ebpf.ErrKeyNotExist) {
				continue
			}
			return res, fmt.Errorf("lookup cgroup %d: %w", keys[i].Id, err)
		}
		res = append(res, value)
	}
	return res, nil
}
