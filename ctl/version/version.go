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
package version

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"kmesh.net/cgmesh/ctl/utils"
	"kmesh.net/cgmesh/pkg/version"
)

const patternVersion = "/version"

func NewCmd() *cobra.Command {
	var daemon bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Prints out build version info",
		Example: `# Show version of cgmeshctl
cgmeshctl version

# Show version info of the cgmesh daemon
cgmeshctl version --daemon`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunVersion(cmd, daemon)
		},
	}
	cmd.Flags().BoolVar(&daemon, "daemon", false, "query the running daemon instead of this binary")
	return cmd
}

// RunVersion provides the version info of cgmeshctl or of the daemon.
func RunVersion(cmd *cobra.Command, daemon bool) error {
	if !daemon {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version.Get().GitVersion)
		return nil
	}

	var v version.Info
	if err := utils.GetJson(utils.AdminURL(cmd, patternVersion), &v); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
