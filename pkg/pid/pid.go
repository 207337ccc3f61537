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
// Package pid keeps a locked pid file so only one daemon owns the pinned maps.
package pid

import (
	"fmt"
	"os"
	"strconv"
	"syscall"
)

const DefaultPidFilePath = "/var/run/cgmesh.pid"

type File struct {
	path string
	f    *os.File
}

// Create opens path, takes an exclusive lock on it and writes the pid of the
// calling process. It fails while another process holds the lock.
func Create(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, syscall.S_IRUSR|syscall.S_IWUSR)
	if err != nil {
		return nil, fmt.Errorf("open or create pid file failed, %v", err)
	}

	if err = syscall.Flock(int(f.Fd()), syscall.LOCK_NB|syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("another cgmesh daemon is already running, %v", err)
	}

	if err = f.Truncate(0); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to truncate pid file, err: %v", err)
	}
	if _, err = f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write pid, err: %v", err)
	}
	return &File{path: path, f: f}, nil
}

func (p *File) Remove() error {
	if err := p.f.Close(); err != nil {
		return fmt.Errorf("failed to close file, err: %v", err)
	}
	if err := os.Remove(p.path); err != nil {
		return fmt.Errorf("failed to remove file, err: %v", err)
	}
	return nil
}
