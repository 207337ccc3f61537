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
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kmesh.net/cgmesh/pkg/constants"
)

func newTestCommand(t *testing.T, args ...string) (*cobra.Command, *BootstrapConfigs) {
	t.Helper()
	configs := NewBootstrapConfigs()
	cmd := &cobra.Command{Use: "test"}
	configs.AttachFlags(cmd)
	require.NoError(t, cmd.PersistentFlags().Parse(args))
	return cmd, configs
}

func TestDefaults(t *testing.T) {
	_, configs := newTestCommand(t)

	assert.Equal(t, constants.PinnedMapMode, configs.BpfConfig.MapMode)
	assert.Equal(t, uint16(constants.SockIPMarkPort), configs.BpfConfig.MarkPort)
	assert.Equal(t, uint32(constants.CgrFibMaxEntries), configs.BpfConfig.CgrFibMaxEntries)
	assert.Equal(t, uint32(constants.CgrMarkFibMaxEntries), configs.BpfConfig.MarkFibMaxEntries)
	assert.Equal(t, constants.AdminAddr, configs.StatusConfig.AdminAddr)
	assert.Equal(t, "/sys/fs/bpf/cgmesh/map", configs.BpfConfig.MapPinPath())
}

func TestParseConfigs(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name: "memory mode needs no mounts",
			args: []string{"--map-mode=memory", "--bpf-fs-path=/nonexistent", "--cgroup2-path=/nonexistent"},
		},
		{
			name: "pinned mode with existing paths",
			args: []string{"--bpf-fs-path=" + dir, "--cgroup2-path=" + dir},
		},
		{
			name:    "pinned mode with missing bpffs",
			args:    []string{"--bpf-fs-path=/nonexistent/bpf", "--cgroup2-path=" + dir},
			wantErr: "no such file or directory",
		},
		{
			name:    "unknown map mode",
			args:    []string{"--map-mode=disk"},
			wantErr: "invalid map mode",
		},
		{
			name:    "zero capacity",
			args:    []string{"--map-mode=memory", "--cgr-fib-max-entries=0"},
			wantErr: "map capacity must be positive",
		},
		{
			name:    "zero mark port",
			args:    []string{"--map-mode=memory", "--mark-port=0"},
			wantErr: "mark port must not be 0",
		},
		{
			name:    "bad admin address",
			args:    []string{"--map-mode=memory", "--admin-addr=localhost"},
			wantErr: "invalid admin address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, configs := newTestCommand(t, tt.args...)
			err := configs.ParseConfigs()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cgmesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bpf:
  mapMode: memory
  cgrFibMaxEntries: 64
  markPort: 15000
status:
  adminAddr: 127.0.0.1:9999
`), 0600))

	cmd, configs := newTestCommand(t, "--mark-port=16000")
	require.NoError(t, configs.LoadConfigFile(path, cmd.PersistentFlags()))

	assert.Equal(t, constants.MemoryMapMode, configs.BpfConfig.MapMode)
	assert.Equal(t, uint32(64), configs.BpfConfig.CgrFibMaxEntries)
	// explicit flag wins over the file
	assert.Equal(t, uint16(16000), configs.BpfConfig.MarkPort)
	assert.Equal(t, "127.0.0.1:9999", configs.StatusConfig.AdminAddr)
	// untouched keys keep their flag defaults
	assert.Equal(t, uint32(constants.CgrMarkFibMaxEntries), configs.BpfConfig.MarkFibMaxEntries)
	require.NoError(t, configs.ParseConfigs())
}

func TestLoadConfigFileErrors(t *testing.T) {
	cmd, configs := newTestCommand(t)
	assert.ErrorContains(t, configs.LoadConfigFile("/nonexistent.yaml", cmd.PersistentFlags()), "read config file failed")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bpf:\n  unknownKey: 1\n"), 0600))
	assert.ErrorContains(t, configs.LoadConfigFile(path, cmd.PersistentFlags()), "parse config file")
}

func TestString(t *testing.T) {
	_, configs := newTestCommand(t)

	var decoded map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(configs.String()), &decoded))
	assert.Equal(t, constants.PinnedMapMode, decoded["bpf"]["mapMode"])
	assert.Equal(t, constants.AdminAddr, decoded["status"]["adminAddr"])
}
