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
package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	v := Get()
	assert.Equal(t, gitVersion, v.GitVersion)
	assert.Equal(t, runtime.Version(), v.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, v.Platform)
	assert.False(t, v.IsRelease())
}

func TestIsRelease(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    bool
	}{
		{name: "normal test", version: "v1.1.0", want: true},
		{name: "alpha-version", version: "v1.1.0-alpha", want: true},
		{name: "alpha.0 suffix", version: "v1.1.1-alpha.0", want: true},
		{name: "missing v prefix", version: "7.8.5", want: false},
		{name: "master build", version: "v0.0.0-master", want: false},
		{name: "git describe", version: "v1.1.0-3+gabcdef", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Info{GitVersion: tt.version}.IsRelease())
		})
	}
}
