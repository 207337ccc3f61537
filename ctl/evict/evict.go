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
package evict

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"kmesh.net/cgmesh/ctl/utils"
)

const patternCgroups = "/debug/cgroups"

func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evict <cgroup-id>",
		Short: "Drop the cached record of a cgroup so it is detected again",
		Example: `# Re-detect cgroup 4242 on its next flow:
cgmeshctl evict 4242`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunEvict(cmd, args[0])
		},
	}
	return cmd
}

func RunEvict(cmd *cobra.Command, arg string) error {
	id, err := strconv.ParseUint(arg, 0, 64)
	if err != nil {
		return fmt.Errorf("invalid cgroup id %q: %v", arg, err)
	}

	url := fmt.Sprintf("%s?id=%d", utils.AdminURL(cmd, patternCgroups), id)
	body, err := utils.Do(http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(body))
	return nil
}
