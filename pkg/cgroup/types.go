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
// Package cgroup resolves the mesh membership of a cgroup through the cgroup
// info map, running mesh detection only when the map has no record yet.
package cgroup

import (
	"errors"
	"fmt"

	"kmesh.net/cgmesh/pkg/bpfcache"
	"kmesh.net/cgmesh/pkg/constants"
	"kmesh.net/cgmesh/pkg/nets"
)

var (
	// ErrInvalidArgument is returned when no output record is supplied.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrCachePopulation is returned when the cgroup info map rejects a new
	// record. Callers should treat the flow as not being in the mesh.
	ErrCachePopulation = errors.New("cgroup info cache population failed")
)

// DNSCapturePortFlag marks a cgroup whose dns port is captured.
const DNSCapturePortFlag = constants.DNSCapturePortFlag

// Info is the resolved membership of one cgroup.
type Info struct {
	ID            uint64       `json:"id"`
	InMesh        bool         `json:"inMesh"`
	Address       nets.Address `json:"address"`
	Flags         uint16       `json:"flags"`
	DetectedFlags uint16       `json:"detectedFlags"`
}

func (i *Info) HasFlag(flag uint16) bool {
	return i.Flags&flag != 0
}

func (i *Info) HasDetectedFlag(flag uint16) bool {
	return i.DetectedFlags&flag != 0
}

func (i Info) String() string {
	return fmt.Sprintf("{id:%d, is_in_mesh:%t, address:%s}", i.ID, i.InMesh, i.Address)
}

func infoFromValue(v *bpfcache.CgroupInfoValue, out *Info) {
	*out = Info{
		ID:            v.Id,
		InMesh:        v.IsInMesh == constants.ENABLED,
		Address:       nets.Address(v.CgroupIp),
		Flags:         v.Flags,
		DetectedFlags: v.DetectedFlags,
	}
}

func valueFromInfo(i *Info) bpfcache.CgroupInfoValue {
	v := bpfcache.CgroupInfoValue{
		Id:            i.ID,
		IsInMesh:      constants.DISABLED,
		CgroupIp:      i.Address,
		Flags:         i.Flags,
		DetectedFlags: i.DetectedFlags,
	}
	if i.InMesh {
		v.IsInMesh = constants.ENABLED
	}
	return v
}
