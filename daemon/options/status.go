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
	"net"

	"github.com/spf13/cobra"

	"kmesh.net/cgmesh/pkg/constants"
)

type StatusConfig struct {
	AdminAddr       string `json:"adminAddr"`
	EnableProfiling bool   `json:"enableProfiling"`
}

func (c *StatusConfig) AttachFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&c.AdminAddr, "admin-addr", constants.AdminAddr, "address the status server listens on")
	cmd.PersistentFlags().BoolVar(&c.EnableProfiling, "profiling", false, "whether to enable profiling or not, default to false")
}

func (c *StatusConfig) ParseConfig() error {
	if _, _, err := net.SplitHostPort(c.AdminAddr); err != nil {
		return fmt.Errorf("invalid admin address %q: %v", c.AdminAddr, err)
	}
	return nil
}
