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
package health

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"kmesh.net/cgmesh/ctl/utils"
)

const patternReadyProbe = "/debug/ready"

func NewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check if the cgmesh daemon is healthy and ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := utils.Do(http.MethodGet, utils.AdminURL(cmd, patternReadyProbe), nil); err != nil {
				return fmt.Errorf("cgmesh daemon is not ready: %v", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cgmesh daemon is ready!")
			return nil
		},
	}
}
