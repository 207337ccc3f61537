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
package resolve

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"kmesh.net/cgmesh/ctl/utils"
	"kmesh.net/cgmesh/pkg/status"
)

const patternResolve = "/debug/resolve"

func NewCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "resolve <pid>",
		Short: "Resolve the mesh membership of the cgroup a process runs in",
		Example: `# Resolve the cgroup of pid 1234:
cgmeshctl resolve 1234`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunResolve(cmd, args[0], outputFormat)
		},
	}
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table or json")
	return cmd
}

func RunResolve(cmd *cobra.Command, arg string, outputFormat string) error {
	pid, err := strconv.Atoi(arg)
	if err != nil || pid <= 0 {
		return fmt.Errorf("invalid pid %q", arg)
	}

	var res status.ResolveResult
	if err := utils.GetJson(fmt.Sprintf("%s?pid=%d", utils.AdminURL(cmd, patternResolve), pid), &res); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "Pid: %d\n", res.Pid)
	fmt.Fprintf(out, "Cgroup ID: %d\n", res.CgroupID)
	fmt.Fprintf(out, "In Mesh: %t\n", res.Info.InMesh)
	if !res.Info.Address.IsZero() {
		fmt.Fprintf(out, "Address: %s\n", res.Info.Address)
	}
	return nil
}
