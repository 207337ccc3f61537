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
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cilium/ebpf"
	"golang.org/x/sys/unix"
)

// Map is the subset of *ebpf.Map the caches rely on. HashMap implements it in
// memory for tests and for running without bpffs.
type Map interface {
	Lookup(key, valueOut interface{}) error
	Update(key, value interface{}, flags ebpf.MapUpdateFlags) error
	Delete(key interface{}) error
	NextKey(key, nextKeyOut interface{}) error
	MaxEntries() uint32
}

var _ Map = (*ebpf.Map)(nil)

// HashMap is a fixed capacity table that behaves like BPF_MAP_TYPE_HASH:
// keys and values are copied in and out by their binary layout, a full map
// rejects new keys with E2BIG and iteration follows NextKey.
type HashMap struct {
	name       string
	keySize    int
	valueSize  int
	maxEntries uint32

	// stands in for the kernel bucket locks
	mu      sync.RWMutex
	entries map[string][]byte
	order   []string
}

var _ Map = (*HashMap)(nil)

func NewHashMap(spec *ebpf.MapSpec) (*HashMap, error) {
	if spec == nil {
		return nil, fmt.Errorf("nil map spec")
	}
	if spec.Type != ebpf.Hash {
		return nil, fmt.Errorf("map %s: unsupported type %s", spec.Name, spec.Type)
	}
	if spec.KeySize == 0 || spec.ValueSize == 0 || spec.MaxEntries == 0 {
		return nil, fmt.Errorf("map %s: key size, value size and max entries must be non-zero", spec.Name)
	}

	return &HashMap{
		name:       spec.Name,
		keySize:    int(spec.KeySize),
		valueSize:  int(spec.ValueSize),
		maxEntries: spec.MaxEntries,
		entries:    make(map[string][]byte, spec.MaxEntries),
	}, nil
}

func (m *HashMap) String() string {
	return fmt.Sprintf("HashMap(%s)", m.name)
}

func (m *HashMap) MaxEntries() uint32 {
	return m.maxEntries
}

// Len returns the number of entries currently stored.
func (m *HashMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *HashMap) Lookup(key, valueOut interface{}) error {
	k, err := marshal(key, m.keySize)
	if err != nil {
		return fmt.Errorf("lookup: key: %w", err)
	}

	m.mu.RLock()
	v, ok := m.entries[string(k)]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("lookup: %w", ebpf.ErrKeyNotExist)
	}

	if err := binary.Read(bytes.NewReader(v), binary.NativeEndian, valueOut); err != nil {
		return fmt.Errorf("lookup: value: %w", err)
	}
	return nil
}

func (m *HashMap) Update(key, value interface{}, flags ebpf.MapUpdateFlags) error {
	k, err := marshal(key, m.keySize)
	if err != nil {
		return fmt.Errorf("update: key: %w", err)
	}
	v, err := marshal(value, m.valueSize)
	if err != nil {
		return fmt.Errorf("update: value: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.entries[string(k)]
	switch flags {
	case ebpf.UpdateAny:
	case ebpf.UpdateNoExist:
		if exists {
			return fmt.Errorf("update: %w", ebpf.ErrKeyExist)
		}
	case ebpf.UpdateExist:
		if !exists {
			return fmt.Errorf("update: %w", ebpf.ErrKeyNotExist)
		}
	default:
		return fmt.Errorf("update: flags %d: %w", flags, unix.EINVAL)
	}

	if !exists {
		if uint32(len(m.entries)) >= m.maxEntries {
			return fmt.Errorf("update: map %s full: %w", m.name, unix.E2BIG)
		}
		m.order = append(m.order, string(k))
	}
	m.entries[string(k)] = v
	return nil
}

func (m *HashMap) Delete(key interface{}) error {
	k, err := marshal(key, m.keySize)
	if err != nil {
		return fmt.Errorf("delete: key: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[string(k)]; !ok {
		return fmt.Errorf("delete: %w", ebpf.ErrKeyNotExist)
	}
	delete(m.entries, string(k))
	for i, o := range m.order {
		if o == string(k) {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// NextKey stores the key following key in nextKeyOut. A nil or unknown key
// yields the first key, the end of the table yields ErrKeyNotExist.
func (m *HashMap) NextKey(key, nextKeyOut interface{}) error {
	var k []byte
	if key != nil {
		var err error
		if k, err = marshal(key, m.keySize); err != nil {
			return fmt.Errorf("next key: %w", err)
		}
	}

	m.mu.RLock()
	next := -1
	if len(m.order) > 0 {
		next = 0
	}
	if k != nil {
		for i, o := range m.order {
			if o == string(k) {
				next = i + 1
				break
			}
		}
	}
	var out []byte
	if next >= 0 && next < len(m.order) {
		out = []byte(m.order[next])
	}
	m.mu.RUnlock()

	if out == nil {
		return fmt.Errorf("next key: %w", ebpf.ErrKeyNotExist)
	}
	if err := binary.Read(bytes.NewReader(out), binary.NativeEndian, nextKeyOut); err != nil {
		return fmt.Errorf("next key: %w", err)
	}
	return nil
}

func (m *HashMap) Close() error {
	return nil
}

func marshal(data interface{}, size int) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, size))
	if err := binary.Write(buf, binary.NativeEndian, data); err != nil {
		return nil, err
	}
	if buf.Len() != size {
		return nil, fmt.Errorf("%T is %d bytes, expected %d: %w", data, buf.Len(), size, unix.EINVAL)
	}
	return buf.Bytes(), nil
}
