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
package logs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"kmesh.net/cgmesh/ctl/utils"
)

const (
	patternLoggers = "/debug/loggers"
)

type LoggerInfo struct {
	Name  string `json:"name,omitempty"`
	Level string `json:"level,omitempty"`
}

func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Get or set cgmesh-daemon's logger level",
		Example: `# Set default logger's level as "debug":
cgmeshctl log --set default:debug

# Get all loggers' name
cgmeshctl log

# Get default logger's level:
cgmeshctl log default`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunGetOrSetLoggerLevel(cmd, args)
		},
	}
	cmd.Flags().String("set", "", "Set the logger level (e.g., default:debug)")
	return cmd
}

func GetLoggerNames(out io.Writer, url string) error {
	var loggerNames []string
	if err := utils.GetJson(url, &loggerNames); err != nil {
		return err
	}
	fmt.Fprintf(out, "Existing Loggers:\n")
	for _, logger := range loggerNames {
		fmt.Fprintf(out, "\t%s\n", logger)
	}
	return nil
}

func GetLoggerLevel(out io.Writer, url string) error {
	var loggerInfo LoggerInfo
	if err := utils.GetJson(url, &loggerInfo); err != nil {
		return err
	}

	fmt.Fprintf(out, "Logger Name: %s\n", loggerInfo.Name)
	fmt.Fprintf(out, "Logger Level: %s\n", loggerInfo.Level)
	return nil
}

func SetLoggerLevel(out io.Writer, url string, setFlag string) error {
	loggerName, loggerLevel, ok := strings.Cut(setFlag, ":")
	if !ok || loggerName == "" || loggerLevel == "" {
		return fmt.Errorf("invalid set flag %q, which should be loggerName:loggerLevel (e.g. default:debug)", setFlag)
	}

	data, err := json.Marshal(LoggerInfo{
		Name:  loggerName,
		Level: loggerLevel,
	})
	if err != nil {
		return fmt.Errorf("error marshaling logger info: %v", err)
	}

	body, err := utils.Do(http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	fmt.Fprint(out, string(body))
	return nil
}

func RunGetOrSetLoggerLevel(cmd *cobra.Command, args []string) error {
	url := utils.AdminURL(cmd, patternLoggers)
	out := cmd.OutOrStdout()

	setFlag, _ := cmd.Flags().GetString("set")
	if setFlag != "" {
		return SetLoggerLevel(out, url, setFlag)
	}
	if len(args) == 1 {
		return GetLoggerLevel(out, url+"?name="+args[0])
	}
	return GetLoggerNames(out, url)
}
