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
package status

import (
	"kmesh.net/cgmesh/pkg/bpfcache"
	"kmesh.net/cgmesh/pkg/cgroup"
	"kmesh.net/cgmesh/pkg/nets"
)

type LoggerInfo struct {
	Name  string `json:"name,omitempty"`
	Level string `json:"level,omitempty"`
}

type MarkEntry struct {
	Mark    uint32       `json:"mark"`
	Address nets.Address `json:"address"`
}

func ConvertMarkEntry(e *bpfcache.MarkIPEntry) MarkEntry {
	return MarkEntry{
		Mark:    e.Mark,
		Address: nets.Address(e.Ip),
	}
}

// ResolveResult is the answer of /debug/resolve for one process.
type ResolveResult struct {
	Pid      int         `json:"pid"`
	CgroupID uint64      `json:"cgroupId"`
	Info     cgroup.Info `json:"info"`
}
