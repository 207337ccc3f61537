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
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// IDForPid returns the id bpf_get_current_cgroup_id() reports for pid: the
// inode of its cgroup v2 directory.
func IDForPid(hostProc, cgroup2Path string, pid int) (uint64, error) {
	data, err := os.ReadFile(filepath.Join(hostProc, strconv.Itoa(pid), "cgroup"))
	if err != nil {
		return 0, fmt.Errorf("read cgroup of pid %d: %w", pid, err)
	}

	rel, err := unifiedPath(data)
	if err != nil {
		return 0, fmt.Errorf("pid %d: %w", pid, err)
	}

	return IDForPath(filepath.Join(cgroup2Path, rel))
}

// IDForPath returns the cgroup id of a cgroup v2 directory.
func IDForPath(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, fmt.Errorf("stat cgroup %s: %w", path, err)
	}
	return st.Ino, nil
}

// unifiedPath extracts the cgroup v2 path from /proc/<pid>/cgroup content.
func unifiedPath(data []byte) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		// hierarchy-ID:controller-list:cgroup-path
		parts := strings.SplitN(scanner.Text(), ":", 3)
		if len(parts) != 3 {
			continue
		}
		if parts[0] == "0" && parts[1] == "" {
			return parts[2], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("no cgroup v2 entry")
}
