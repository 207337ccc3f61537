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
// Package options for parsing config
package options

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"
)

type BootstrapConfigs struct {
	BpfConfig    *BpfConfig    `json:"bpf"`
	StatusConfig *StatusConfig `json:"status"`
}

func NewBootstrapConfigs() *BootstrapConfigs {
	return &BootstrapConfigs{
		BpfConfig:    &BpfConfig{},
		StatusConfig: &StatusConfig{},
	}
}

func (c *BootstrapConfigs) String() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("json marshal failed, %s", err)
	}

	return string(data)
}

func (c *BootstrapConfigs) AttachFlags(cmd *cobra.Command) {
	c.BpfConfig.AttachFlags(cmd)
	c.StatusConfig.AttachFlags(cmd)
}

// LoadConfigFile merges a yaml config file into c. Flags set explicitly on
// the command line take precedence over the file.
func (c *BootstrapConfigs) LoadConfigFile(path string, flags *pflag.FlagSet) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed, %s", err)
	}

	changed := map[string]string{}
	if flags != nil {
		flags.Visit(func(f *pflag.Flag) {
			changed[f.Name] = f.Value.String()
		})
	}

	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("parse config file %s failed, %s", path, err)
	}

	for name, value := range changed {
		if err := flags.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

func (c *BootstrapConfigs) ParseConfigs() error {
	if err := c.BpfConfig.ParseConfig(); err != nil {
		return fmt.Errorf("parse BpfConfig failed, %s", err)
	}
	if err := c.StatusConfig.ParseConfig(); err != nil {
		return fmt.Errorf("parse StatusConfig failed, %s", err)
	}
	return nil
}
