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
package common

import (
	"github.com/spf13/cobra"

	"kmesh.net/cgmesh/ctl/dump"
	"kmesh.net/cgmesh/ctl/evict"
	"kmesh.net/cgmesh/ctl/health"
	logcmd "kmesh.net/cgmesh/ctl/log"
	"kmesh.net/cgmesh/ctl/resolve"
	"kmesh.net/cgmesh/ctl/utils"
	"kmesh.net/cgmesh/ctl/version"
)

func GetRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "cgmeshctl",
		Short:        "cgmesh command line tools to operate and debug the cgmesh daemon",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	utils.AttachAdminFlag(rootCmd)

	rootCmd.AddCommand(logcmd.NewCmd())
	rootCmd.AddCommand(dump.NewCmd())
	rootCmd.AddCommand(evict.NewCmd())
	rootCmd.AddCommand(resolve.NewCmd())
	rootCmd.AddCommand(health.NewCmd())
	rootCmd.AddCommand(version.NewCmd())

	return rootCmd
}
