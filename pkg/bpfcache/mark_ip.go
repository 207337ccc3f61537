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

type MarkKey struct {
	Mark uint32 // socket mark set on admission
}

type MarkIPValue struct {
	Ip [16]byte // network order
}

type MarkIPEntry struct {
	Mark uint32
	Ip   [16]byte
}

func MarkIPMapSpec(maxEntries uint32) *ebpf.MapSpec {
	return &ebpf.MapSpec{
		Name:       constants.CgrMarkFibMap,
		Type:       ebpf.Hash,
		KeySize:    uint32(unsafe.Sizeof(MarkKey{})),
		ValueSize:  uint32(unsafe.Sizeof(MarkIPValue{})),
		MaxEntries: maxEntries,
	}
}

func (c *Cache) MarkIPUpdate(key *MarkKey, value *MarkIPValue) error {
	log.Debugf("MarkIPUpdate [%#v], [%#v]", *key, *value)
	return c.bpfMap.CgrMarkFib.
		Update(key, value, ebpf.UpdateAny)
}

func (c *Cache) MarkIPDelete(key *MarkKey) error {
	log.Debugf("MarkIPDelete [%#v]", *key)
	return c.bpfMap.CgrMarkFib.
		Delete(key)
}

func (c *Cache) MarkIPLookup(key *MarkKey, value *MarkIPValue) error {
	return c.bpfMap.CgrMarkFib.
		Lookup(key, value)
}

func (c *Cache) MarkIPDump() ([]MarkIPEntry, error) {
	keys, err := dumpKeys[MarkKey](c.bpfMap.CgrMarkFib)
	if err != nil {
		return nil, err
	}

	res := make([]MarkIPEntry, 0, len(keys))
	for i := range keys {
		var value MarkIPValue
		if err := c.MarkIPLookup(&keys[i], &value); err != nil {
			if errors.Is(err, ebpf.ErrKeyNotExist) {
				continue
			}
			return res, fmt.Errorf("lookup mark 0x%x: %w", keys[i].Mark, err)
		}
		res = append(res, MarkIPEntry{Mark: keys[i].Mark, Ip: value.Ip})
	}
	return res, nil
}
