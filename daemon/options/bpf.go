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
package options

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"kmesh.net/cgmesh/pkg/constants"
)

type BpfConfig struct {
	MapMode           string `json:"mapMode"`
	BpfFsPath         string `json:"bpfFsPath"`
	Cgroup2Path       string `json:"cgroup2Path"`
	HostProc          string `json:"hostProc"`
	CgrFibMaxEntries  uint32 `json:"cgrFibMaxEntries"`
	MarkFibMaxEntries uint32 `json:"markFibMaxEntries"`
	MarkPort          uint16 `json:"markPort"`
}

func (c *BpfConfig) AttachFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&c.MapMode, "map-mode", constants.PinnedMapMode, "where the cgroup maps live, valid values are [pinned, memory]")
	cmd.PersistentFlags().StringVar(&c.BpfFsPath, "bpf-fs-path", constants.BpfFsPath, "bpf fs path")
	cmd.PersistentFlags().StringVar(&c.Cgroup2Path, "cgroup2-path", constants.Cgroup2Path, "cgroup2 path")
	cmd.PersistentFlags().StringVar(&c.HostProc, "host-proc", constants.HostProc, "proc fs of the host, used to find the cgroup and netns of a pid")
	cmd.PersistentFlags().Uint32Var(&c.CgrFibMaxEntries, "cgr-fib-max-entries", constants.CgrFibMaxEntries, "capacity of the cgroup info map")
	cmd.PersistentFlags().Uint32Var(&c.MarkFibMaxEntries, "mark-fib-max-entries", constants.CgrMarkFibMaxEntries, "capacity of the mark to address map")
	cmd.PersistentFlags().Uint16Var(&c.MarkPort, "mark-port", constants.SockIPMarkPort, "port a mesh proxy listens on to announce its mark")
}

func (c *BpfConfig) ParseConfig() error {
	var err error

	switch c.MapMode {
	case constants.PinnedMapMode, constants.MemoryMapMode:
	default:
		return fmt.Errorf("invalid map mode %q", c.MapMode)
	}
	if c.CgrFibMaxEntries == 0 || c.MarkFibMaxEntries == 0 {
		return fmt.Errorf("map capacity must be positive")
	}
	if c.MarkPort == 0 {
		return fmt.Errorf("mark port must not be 0")
	}

	if c.HostProc, err = filepath.Abs(c.HostProc); err != nil {
		return err
	}
	if c.Cgroup2Path, err = filepath.Abs(c.Cgroup2Path); err != nil {
		return err
	}
	if c.BpfFsPath, err = filepath.Abs(c.BpfFsPath); err != nil {
		return err
	}

	// memory mode keeps the maps in the daemon, no kernel mounts needed
	if !c.PinnedMapsEnabled() {
		return nil
	}
	if _, err = os.Stat(c.Cgroup2Path); err != nil {
		return err
	}
	if _, err = os.Stat(c.BpfFsPath); err != nil {
		return err
	}

	return nil
}

func (c *BpfConfig) PinnedMapsEnabled() bool {
	return c.MapMode == constants.PinnedMapMode
}

// MapPinPath is the bpffs directory the cgroup maps are pinned under.
func (c *BpfConfig) MapPinPath() string {
	return filepath.Join(c.BpfFsPath, constants.MapPinDir)
}
