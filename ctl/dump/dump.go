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
package dump

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kmesh.net/cgmesh/ctl/utils"
	"kmesh.net/cgmesh/pkg/cgroup"
	"kmesh.net/cgmesh/pkg/status"
)

const (
	patternCgroups = "/debug/cgroups"
	patternMarks   = "/debug/marks"

	kindCgroups = "cgroups"
	kindMarks   = "marks"
)

func NewCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump the cgroup info map or the mark to address map",
		Example: `# Cached cgroup records (table output):
cgmeshctl dump

# Mark to address entries:
cgmeshctl dump marks

# Output as raw JSON:
cgmeshctl dump cgroups -o json`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{kindCgroups, kindMarks},
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunDump(cmd, args, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table or json")
	return cmd
}

func RunDump(cmd *cobra.Command, args []string, outputFormat string) error {
	if outputFormat != "table" && outputFormat != "json" {
		return fmt.Errorf("invalid output format %q, must be table or json", outputFormat)
	}

	kind := kindCgroups
	if len(args) == 1 {
		kind = args[0]
	}
	out := cmd.OutOrStdout()

	switch kind {
	case kindCgroups:
		var infos []cgroup.Info
		if err := utils.GetJson(utils.AdminURL(cmd, patternCgroups), &infos); err != nil {
			return err
		}
		if outputFormat == "json" {
			return printJSON(out, infos)
		}
		return printCgroupTable(out, infos)
	case kindMarks:
		var entries []status.MarkEntry
		if err := utils.GetJson(utils.AdminURL(cmd, patternMarks), &entries); err != nil {
			return err
		}
		if outputFormat == "json" {
			return printJSON(out, entries)
		}
		return printMarkTable(out, entries)
	default:
		return fmt.Errorf("argument must be '%s' or '%s'", kindCgroups, kindMarks)
	}
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func printCgroupTable(out io.Writer, infos []cgroup.Info) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CGROUP_ID\tIN_MESH\tADDRESS\tFLAGS\tDETECTED_FLAGS")
	for _, info := range infos {
		fmt.Fprintf(w, "%d\t%t\t%s\t0x%x\t0x%x\n", info.ID, info.InMesh, addressOrDash(info.Address.IsZero(), info.Address.String()),
			info.Flags, info.DetectedFlags)
	}
	return w.Flush()
}

func printMarkTable(out io.Writer, entries []status.MarkEntry) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "MARK\tADDRESS")
	for _, e := range entries {
		fmt.Fprintf(w, "0x%x\t%s\n", e.Mark, e.Address)
	}
	return w.Flush()
}

func addressOrDash(zero bool, addr string) string {
	if zero {
		return "-"
	}
	return addr
}
