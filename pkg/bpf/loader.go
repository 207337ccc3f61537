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
// Package bpf opens the maps shared with the cgroup hooks.
package bpf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/cilium/ebpf"

	"kmesh.net/cgmesh/daemon/options"
	"kmesh.net/cgmesh/pkg/bpfcache"
	"kmesh.net/cgmesh/pkg/logger"
)

var log = logger.NewLoggerScope("bpf")

type MapLoader struct {
	config *options.BpfConfig

	maps    bpfcache.MeshMaps
	closers []io.Closer
	pinned  []*ebpf.Map
}

func NewMapLoader(config *options.BpfConfig) *MapLoader {
	return &MapLoader{
		config: config,
	}
}

func (l *MapLoader) specs() (cgr, mark *ebpf.MapSpec) {
	return bpfcache.CgroupInfoMapSpec(l.config.CgrFibMaxEntries), bpfcache.MarkIPMapSpec(l.config.MarkFibMaxEntries)
}

// Start opens the maps pinned by a previous run, or creates and pins them.
// In memory mode the maps only live in this process.
func (l *MapLoader) Start() error {
	cgrSpec, markSpec := l.specs()

	if !l.config.PinnedMapsEnabled() {
		cgr, err := bpfcache.NewHashMap(cgrSpec)
		if err != nil {
			return err
		}
		mark, err := bpfcache.NewHashMap(markSpec)
		if err != nil {
			return err
		}
		l.maps = bpfcache.MeshMaps{CgrFib: cgr, CgrMarkFib: mark}
		l.closers = append(l.closers, cgr, mark)
		log.Infof("cgroup maps kept in memory")
		return nil
	}

	pinPath := l.config.MapPinPath()
	if err := os.MkdirAll(pinPath,
		syscall.S_IRUSR|syscall.S_IWUSR|syscall.S_IXUSR|syscall.S_IRGRP|syscall.S_IXGRP); err != nil && !os.IsExist(err) {
		return fmt.Errorf("mkdir %s failed, %s", pinPath, err)
	}

	cgr, err := l.loadPinned(pinPath, cgrSpec)
	if err != nil {
		return err
	}
	mark, err := l.loadPinned(pinPath, markSpec)
	if err != nil {
		return err
	}
	l.maps = bpfcache.MeshMaps{CgrFib: cgr, CgrMarkFib: mark}
	log.Infof("cgroup maps pinned under %s", pinPath)
	return nil
}

func (l *MapLoader) loadPinned(pinPath string, spec *ebpf.MapSpec) (*ebpf.Map, error) {
	spec = spec.Copy()
	spec.Pinning = ebpf.PinByName
	opts := ebpf.MapOptions{PinPath: pinPath}

	m, err := ebpf.NewMapWithOptions(spec, opts)
	if errors.Is(err, ebpf.ErrMapIncompatible) {
		// left behind by a build with another layout or capacity
		log.Warnf("pinned map %s is incompatible, recreating: %v", spec.Name, err)
		if err = os.Remove(filepath.Join(pinPath, spec.Name)); err != nil {
			return nil, fmt.Errorf("remove stale pin of %s failed, %s", spec.Name, err)
		}
		m, err = ebpf.NewMapWithOptions(spec, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("load map %s failed, %w", spec.Name, err)
	}

	l.closers = append(l.closers, m)
	l.pinned = append(l.pinned, m)
	return m, nil
}

// Maps returns the handles the cache works on. Valid after Start.
func (l *MapLoader) Maps() bpfcache.MeshMaps {
	return l.maps
}

// Stop closes the map handles. Pinned maps outlive the daemon so cached
// records survive a restart.
func (l *MapLoader) Stop() {
	for _, c := range l.closers {
		if err := c.Close(); err != nil {
			log.Errorf("failed to close map: %v", err)
		}
	}
	l.closers = nil
}

// Cleanup unpins the maps and removes the pin directory.
func (l *MapLoader) Cleanup() {
	for _, m := range l.pinned {
		if err := m.Unpin(); err != nil {
			log.Errorf("unpin map failed, %s", err)
		}
	}
	l.pinned = nil

	if !l.config.PinnedMapsEnabled() {
		return
	}
	if err := os.RemoveAll(l.config.MapPinPath()); err != nil {
		log.Errorf("remove %s error: %v", l.config.MapPinPath(), err)
	}
	log.Info("cleanup bpf map success")
}
