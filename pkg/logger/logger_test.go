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

package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevel(t *testing.T) {
	assert.Contains(t, GetLoggerNames(), DefaultLoggerName)

	lv, err := GetLoggerLevel(DefaultLoggerName)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = SetLoggerLevel(DefaultLoggerName, lv.String())
	})

	require.NoError(t, SetLoggerLevel(DefaultLoggerName, "debug"))
	lv, err = GetLoggerLevel(DefaultLoggerName)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, lv)

	entry := NewLoggerScope("test")
	assert.True(t, entry.Logger.IsLevelEnabled(logrus.DebugLevel))
	assert.Equal(t, "test", entry.Data[logSubsys])
}

func TestLoggerLevelErrors(t *testing.T) {
	_, err := GetLoggerLevel("nonexistent")
	assert.ErrorContains(t, err, "does not exist")

	assert.ErrorContains(t, SetLoggerLevel("nonexistent", "info"), "does not exist")
	assert.Error(t, SetLoggerLevel(DefaultLoggerName, "loud"))
}
