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

	"github.com/cilium/ebpf"

	"kmesh.net/cgmesh/pkg/logger"
)

var log = logger.NewLoggerScope("bpfcache")

// MeshMaps holds the handles of the two node wide tables. The loader fills it
// with pinned *ebpf.Map objects, tests with HashMap.
type MeshMaps struct {
	CgrFib     Map
	CgrMarkFib Map
}

type Cache struct {
	bpfMap MeshMaps
}

func NewCache(maps MeshMaps) *Cache {
	return &Cache{
		bpfMap: maps,
	}
}

// dumpKeys walks m with NextKey. The walk is bounded by the map capacity so a
// concurrent delete restarting the iteration cannot loop forever.
func dumpKeys[K any](m Map) ([]K, error) {
	var (
		keys []K
		prev interface{}
	)

	for i := uint32(0); i < m.MaxEntries(); i++ {
		var next K
		err := m.NextKey(prev, &next)
		if errors.Is(err, ebpf.ErrKeyNotExist) {
			return keys, nil
		}
		if err != nil {
			return keys, fmt.Errorf("iterate map: %w", err)
		}
		keys = append(keys, next)
		cur := next
		prev = &cur
	}
	return keys, nil
}
