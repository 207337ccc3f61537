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
package cleanup

import (
	"github.com/spf13/cobra"

	"kmesh.net/cgmesh/daemon/options"
	"kmesh.net/cgmesh/pkg/bpf"
	"kmesh.net/cgmesh/pkg/constants"
)

func NewCmd() *cobra.Command {
	configs := options.NewBootstrapConfigs()
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Unpin the cgroup maps",
		Example: `Drop every cached cgroup record before uninstalling:
		cgmesh-daemon cleanup`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := configs.BpfConfig.ParseConfig(); err != nil {
				return err
			}
			if !configs.BpfConfig.PinnedMapsEnabled() {
				cmd.Printf("map mode is %s, nothing pinned\n", constants.MemoryMapMode)
				return nil
			}

			loader := bpf.NewMapLoader(configs.BpfConfig)
			if err := loader.Start(); err != nil {
				return err
			}
			loader.Cleanup()
			loader.Stop()
			return nil
		},
	}

	configs.BpfConfig.AttachFlags(cmd)
	return cmd
}
