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
package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"kmesh.net/cgmesh/pkg/constants"
)

const (
	AdminAddrFlag = "admin-addr"

	httpTimeout = 10 * time.Second
)

var client = &http.Client{Timeout: httpTimeout}

// AttachAdminFlag adds the flag every sub command uses to reach the daemon.
func AttachAdminFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().String(AdminAddrFlag, constants.AdminAddr, "address of the cgmesh daemon status server")
}

// AdminURL builds the url of pattern on the daemon selected by --admin-addr.
func AdminURL(cmd *cobra.Command, pattern string) string {
	addr, err := cmd.Flags().GetString(AdminAddrFlag)
	if err != nil || addr == "" {
		addr = constants.AdminAddr
	}
	return fmt.Sprintf("http://%s%s", addr, pattern)
}

// Do sends one request to the daemon and returns the body of a 200 answer.
func Do(method, url string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request(%s): %v", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read HTTP response body(%s): %v", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d: %s", resp.StatusCode, data)
	}
	return data, nil
}

func GetJson(url string, val any) error {
	data, err := Do(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, val); err != nil {
		return fmt.Errorf("failed to unmarshal response body: %v", err)
	}
	return nil
}
