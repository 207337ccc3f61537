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
	"testing"

	"kmesh.net/cgmesh/pkg/constants"
)

// NewFakeMeshMaps builds in-memory tables with the production layout.
// Creating real bpf maps needs CAP_BPF, which unit tests do not have.
func NewFakeMeshMaps(t testing.TB) MeshMaps {
	return NewFakeMeshMapsWithCapacity(t, constants.CgrFibMaxEntries, constants.CgrMarkFibMaxEntries)
}

func NewFakeMeshMapsWithCapacity(t testing.TB, cgrEntries, markEntries uint32) MeshMaps {
	cgrFib, err := NewHashMap(CgroupInfoMapSpec(cgrEntries))
	if err != nil {
		t.Fatalf("create cgr fib map failed, err is %v", err)
	}

	markFib, err := NewHashMap(MarkIPMapSpec(markEntries))
	if err != nil {
		t.Fatalf("create mark fib map failed, err is %v", err)
	}

	return MeshMaps{
		CgrFib:     cgrFib,
		CgrMarkFib: markFib,
	}
}
