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
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoggerNames(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := json.Marshal([]string{"default", "sockdiag"})
		_, _ = w.Write(data)
	}))
	defer ts.Close()

	var out bytes.Buffer
	require.NoError(t, GetLoggerNames(&out, ts.URL))
	assert.Equal(t, "Existing Loggers:\n\tdefault\n\tsockdiag\n", out.String())
}

func TestGetLoggerLevel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "default", r.URL.Query().Get("name"))
		data, _ := json.Marshal(LoggerInfo{Name: "default", Level: "info"})
		_, _ = w.Write(data)
	}))
	defer ts.Close()

	var out bytes.Buffer
	require.NoError(t, GetLoggerLevel(&out, ts.URL+"?name=default"))
	assert.Contains(t, out.String(), "Logger Name: default")
	assert.Contains(t, out.String(), "Logger Level: info")
}

func TestSetLoggerLevel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var info LoggerInfo
		data, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(data, &info))
		assert.Equal(t, LoggerInfo{Name: "default", Level: "debug"}, info)

		_, _ = w.Write([]byte("set default logger level to debug\n"))
	}))
	defer ts.Close()

	var out bytes.Buffer
	require.NoError(t, SetLoggerLevel(&out, ts.URL, "default:debug"))
	assert.Equal(t, "set default logger level to debug\n", out.String())
}

func TestSetLoggerLevelInvalidFlag(t *testing.T) {
	var out bytes.Buffer
	for _, flag := range []string{"default", ":debug", "default:"} {
		assert.ErrorContains(t, SetLoggerLevel(&out, "http://127.0.0.1:1", flag), "invalid set flag")
	}
	assert.Empty(t, out.String())
}

func TestSetLoggerLevelServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "logger nonexistent does not exist", http.StatusBadRequest)
	}))
	defer ts.Close()

	var out bytes.Buffer
	assert.ErrorContains(t, SetLoggerLevel(&out, ts.URL, "nonexistent:debug"), "status code 400")
}
