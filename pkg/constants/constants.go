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

package constants

const (
	// SockIPMarkPort is the port a mesh proxy listens on only to announce
	// itself. The socket carries the mark that indexes CgrMarkFibMap.
	SockIPMarkPort = 39807

	// cgroup_info flags
	DNSCapturePortFlag = uint16(1 << 1)

	ENABLED  = uint32(1)
	DISABLED = uint32(0)

	CgrFibMap     = "cgmesh_cgr_fib"
	CgrMarkFibMap = "cgmesh_mark_fib"

	CgrFibMaxEntries     = 1024
	CgrMarkFibMaxEntries = 65535

	PinnedMapMode = "pinned"
	MemoryMapMode = "memory"

	Cgroup2Path = "/mnt/cgmesh_cgroup2"
	BpfFsPath   = "/sys/fs/bpf"
	HostProc    = "/proc"

	MapPinDir = "/cgmesh/map/"

	AdminAddr = "localhost:15300"
)
